package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"bordero/internal/claims/models"
	"bordero/internal/review/handler/mocks"
	"bordero/pkg/domain"
	dErrors "bordero/pkg/domain-errors"
	"bordero/pkg/testutil"
)

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	service := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(service, logger, nil)
	r := chi.NewRouter()
	h.Register(r)
	return r, service
}

func TestHandlePending_ReturnsQueue(t *testing.T) {
	router, service := newTestRouter(t)
	queued := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	service.EXPECT().ListPending(gomock.Any()).Return([]models.Verdict{{
		Claim:     domain.ClaimID{Cedant: "CED-001", Number: "CLM-1"},
		State:     models.StatePendingSupervisor,
		RiskScore: 0.6,
		RiskLevel: models.RiskMedium,
		Findings: []models.Finding{{
			Check:    models.CheckExclusion,
			Kind:     models.KindExclusionMatch,
			Severity: models.SeverityBlocking,
		}},
		UpdatedAt: queued,
	}}, nil)

	req := testutil.WithSupervisor(testutil.NewJSONRequest(t, http.MethodGet, "/review/pending", nil), "sup-1")
	rr := testutil.DoRequest(router, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[struct {
		Pending []PendingView `json:"pending"`
	}](t, rr)
	require.Len(t, resp.Pending, 1)
	assert.Equal(t, "CLM-1", resp.Pending[0].ClaimNumber)
	assert.True(t, resp.Pending[0].Blocking)
	assert.Equal(t, "medium", resp.Pending[0].RiskLevel)
}

func TestHandleDecide_Approves(t *testing.T) {
	router, service := newTestRouter(t)
	service.EXPECT().Decide(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, d models.ReviewDecision) (models.Verdict, error) {
			assert.True(t, d.Approve)
			assert.Equal(t, "sup-1", d.SupervisorID)
			assert.Equal(t, "treaty team confirmed coverage", d.Justification)
			return models.Verdict{
				Claim:     d.Claim,
				State:     models.StateApproved,
				DecidedBy: d.SupervisorID,
				Version:   3,
			}, nil
		})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/review/CED-001/CLM-1/decision",
		DecisionRequest{Approve: true, Justification: "treaty team confirmed coverage"})
	rr := testutil.DoRequest(router, testutil.WithSupervisor(req, "sup-1"))

	require.Equal(t, http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[map[string]any](t, rr)
	assert.Equal(t, "approved", (*resp)["state"])
	assert.Equal(t, "sup-1", (*resp)["decided_by"])
}

func TestHandleDecide_MissingJustificationRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/review/CED-001/CLM-1/decision",
		DecisionRequest{Approve: false})
	rr := testutil.DoRequest(router, testutil.WithSupervisor(req, "sup-1"))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHandleDecide_MalformedBodyRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewRequestWithBody(t, http.MethodPost, "/review/CED-001/CLM-1/decision", "{not json")
	rr := testutil.DoRequest(router, testutil.WithSupervisor(req, "sup-1"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleDecide_TerminalClaimConflicts(t *testing.T) {
	router, service := newTestRouter(t)
	service.EXPECT().Decide(gomock.Any(), gomock.Any()).
		Return(models.Verdict{}, dErrors.New(dErrors.CodeConflict, "claim already resolved"))

	req := testutil.NewJSONRequest(t, http.MethodPost, "/review/CED-001/CLM-1/decision",
		DecisionRequest{Approve: true, Justification: "second look"})
	rr := testutil.DoRequest(router, testutil.WithSupervisor(req, "sup-1"))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandleDecide_NoSupervisorInContext(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/review/CED-001/CLM-1/decision",
		DecisionRequest{Approve: true, Justification: "n/a"})
	rr := testutil.DoRequest(router, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
