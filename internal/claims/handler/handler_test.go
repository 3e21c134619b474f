package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"bordero/internal/claims/handler/mocks"
	"bordero/internal/claims/models"
	"bordero/internal/engine"
	"bordero/internal/normalizer"
	"bordero/pkg/domain"
	dErrors "bordero/pkg/domain-errors"
)

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockEngine, *mocks.MockVerdictReader) {
	t.Helper()
	ctrl := gomock.NewController(t)
	eng := mocks.NewMockEngine(ctrl)
	verdicts := mocks.NewMockVerdictReader(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(eng, verdicts, 4, logger)
	r := chi.NewRouter()
	h.Register(r)
	return r, eng, verdicts
}

func submitBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(SubmitRequest{
		SchemaVersion: 1,
		Fields: map[string]string{
			"claim_number":     "CLM-1",
			"cedant_id":        "CED-001",
			"paid_loss_amount": "1000.00",
			"currency":         "USD",
			"date_of_loss":     "2024-03-15",
		},
		ReceivedAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return body
}

func TestHandleSubmit_ReturnsVerdict(t *testing.T) {
	router, eng, _ := newTestRouter(t)
	eng.EXPECT().Process(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sub normalizer.Submission) (models.Verdict, error) {
			assert.Equal(t, "CLM-1", sub.Fields["claim_number"])
			return models.Verdict{
				Claim:   domain.ClaimID{Cedant: "CED-001", Number: "CLM-1"},
				State:   models.StatePendingSupervisor,
				Version: 1,
			}, nil
		})

	req := httptest.NewRequest(http.MethodPost, "/claims", bytes.NewReader(submitBody(t)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp VerdictView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CLM-1", resp.ClaimNumber)
	assert.Equal(t, "pending_supervisor", resp.State)
}

func TestHandleSubmit_UnsupportedSchemaVersion(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body, _ := json.Marshal(SubmitRequest{SchemaVersion: 2, Fields: map[string]string{"a": "b"}})
	req := httptest.NewRequest(http.MethodPost, "/claims", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleSubmit_NormalizationErrorMapsToValidation(t *testing.T) {
	router, eng, _ := newTestRouter(t)
	eng.EXPECT().Process(gomock.Any(), gomock.Any()).
		Return(models.Verdict{}, dErrors.New(dErrors.CodeValidation, "normalize submission"))

	req := httptest.NewRequest(http.MethodPost, "/claims", bytes.NewReader(submitBody(t)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleSubmitBatch_MixedOutcomes(t *testing.T) {
	router, eng, _ := newTestRouter(t)
	eng.EXPECT().ProcessBatch(gomock.Any(), gomock.Any(), 4).
		Return([]engine.BatchResult{
			{Index: 0, Verdict: models.Verdict{
				Claim: domain.ClaimID{Cedant: "CED-001", Number: "CLM-1"},
				State: models.StatePendingSupervisor,
			}},
			{Index: 1, Err: dErrors.New(dErrors.CodeValidation, "normalize submission")},
		})

	batch := BatchRequest{Submissions: []SubmitRequest{
		{SchemaVersion: 1, Fields: map[string]string{"claim_number": "CLM-1"}},
		{SchemaVersion: 1, Fields: map[string]string{"claim_number": "CLM-2"}},
	}}
	body, err := json.Marshal(batch)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/claims/batch", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp BatchView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.NotNil(t, resp.Results[0].Verdict)
	assert.Empty(t, resp.Results[0].Error)
	assert.Nil(t, resp.Results[1].Verdict)
	assert.NotEmpty(t, resp.Results[1].Error)
}

func TestHandleSubmitBatch_EmptyRejected(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/claims/batch", bytes.NewReader([]byte(`{"submissions":[]}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleGet_FoundAndMissing(t *testing.T) {
	router, _, verdicts := newTestRouter(t)
	verdicts.EXPECT().Get(gomock.Any(), domain.ClaimID{Cedant: "CED-001", Number: "CLM-1"}).
		Return(models.Verdict{
			Claim: domain.ClaimID{Cedant: "CED-001", Number: "CLM-1"},
			State: models.StateApproved,
		}, nil)
	verdicts.EXPECT().Get(gomock.Any(), domain.ClaimID{Cedant: "CED-001", Number: "CLM-404"}).
		Return(models.Verdict{}, dErrors.New(dErrors.CodeNotFound, "no verdict for claim"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/claims/CED-001/CLM-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/claims/CED-001/CLM-404", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleStats(t *testing.T) {
	router, eng, _ := newTestRouter(t)
	eng.EXPECT().Snapshot(gomock.Any()).Return(engine.StatsSnapshot{
		Received:  12,
		Processed: 10,
		Rejected:  2,
		VerdictsByState: map[string]int{
			"pending_supervisor": 7,
			"approved":           3,
		},
	}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp engine.StatsSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(12), resp.Received)
	assert.Equal(t, 7, resp.VerdictsByState["pending_supervisor"])
}
