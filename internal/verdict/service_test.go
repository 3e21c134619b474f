package verdict

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"bordero/internal/claims/models"
	"bordero/internal/sics"
	"bordero/internal/sics/mocks"
	"bordero/pkg/domain"
	dErrors "bordero/pkg/domain-errors"
	audit "bordero/pkg/platform/audit"
	"bordero/pkg/platform/audit/publisher"
	auditmem "bordero/pkg/platform/audit/store/memory"
	"bordero/pkg/platform/sentinel"
)

type fixture struct {
	service  *Service
	store    *InMemoryStore
	auditLog *auditmem.InMemoryStore
	poster   *mocks.MockPoster
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	poster := mocks.NewMockPoster(ctrl)
	store := NewInMemoryStore()
	auditStore := auditmem.NewInMemoryStore()
	pub := publisher.NewPublisher(auditStore)
	t.Cleanup(pub.Close)

	opts = append(opts, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return fixture{
		service:  NewService(store, pub, poster, opts...),
		store:    store,
		auditLog: auditStore,
		poster:   poster,
	}
}

func testRecord() models.ClaimRecord {
	return models.ClaimRecord{
		ID:               domain.ClaimID{Cedant: "CED-01", Number: "CLM-1"},
		TreatyID:         "TR-2024-01",
		BrokerRef:        "BRK-42",
		UnderwritingYear: 2024,
		DateOfLoss:       time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		PaidLoss:         domain.Money{MinorUnits: 15_000_000, Currency: "USD"},
		BenefitType:      domain.BenefitDeath,
		ReceivedAt:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func blockingFinding(claim domain.ClaimID) models.Finding {
	return models.Finding{
		Check:    models.CheckDiscrepancy,
		Kind:     models.KindStatementMismatch,
		Claim:    claim,
		Severity: models.SeverityBlocking,
		Message:  "bordereau exceeds statement beyond tolerance",
	}
}

func advisoryFinding(claim domain.ClaimID) models.Finding {
	return models.Finding{
		Check:    models.CheckDuplicate,
		Kind:     models.KindDuplicateSimilar,
		Claim:    claim,
		Severity: models.SeverityAdvisory,
		Message:  "similar claim number seen before",
	}
}

func auditActions(t *testing.T, store *auditmem.InMemoryStore, claim domain.ClaimID) []audit.Action {
	t.Helper()
	events, err := store.ListByClaim(context.Background(), claim)
	require.NoError(t, err)
	actions := make([]audit.Action, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	return actions
}

func TestCompose_CleanClaimQueuesForReviewByDefault(t *testing.T) {
	f := newFixture(t)
	record := testRecord()

	verdict, err := f.service.Compose(context.Background(), record, nil, 0.1)
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingSupervisor, verdict.State)
	assert.Equal(t, 1, verdict.Version)
	assert.Equal(t, models.RiskVeryLow, verdict.RiskLevel)

	actions := auditActions(t, f.auditLog, record.ID)
	assert.Contains(t, actions, audit.ActionVerdictClean)
	assert.Contains(t, actions, audit.ActionReviewQueued)
}

func TestCompose_CleanClaimAutoApprovesStraightThrough(t *testing.T) {
	f := newFixture(t, WithStraightThrough(true))
	record := testRecord()

	f.poster.EXPECT().
		PostClaim(gomock.Any(), gomock.Any()).
		Return(sics.PostingResult{Reference: "SICS-REF-1"}, nil)
	f.poster.EXPECT().
		PostCreditNote(gomock.Any(), gomock.Any()).
		Return(nil)

	verdict, err := f.service.Compose(context.Background(), record, nil, 0.0)
	require.NoError(t, err)
	assert.Equal(t, models.StateApproved, verdict.State)
	assert.Equal(t, "system", verdict.DecidedBy)

	actions := auditActions(t, f.auditLog, record.ID)
	assert.Contains(t, actions, audit.ActionClaimPosted)
	assert.Contains(t, actions, audit.ActionCreditNoteIssued)
}

func TestCompose_FlaggedClaimNeverAutoApproves(t *testing.T) {
	// Even with straight-through on, a blocking finding forces review.
	f := newFixture(t, WithStraightThrough(true))
	record := testRecord()

	verdict, err := f.service.Compose(context.Background(), record,
		[]models.Finding{blockingFinding(record.ID)}, 0.2)
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingSupervisor, verdict.State)
	assert.Empty(t, verdict.DecidedBy)

	actions := auditActions(t, f.auditLog, record.ID)
	assert.Contains(t, actions, audit.ActionVerdictFlagged)
	assert.NotContains(t, actions, audit.ActionClaimPosted)
}

func TestCompose_AdvisoryOnlyFindingsAreClean(t *testing.T) {
	f := newFixture(t)
	record := testRecord()

	verdict, err := f.service.Compose(context.Background(), record,
		[]models.Finding{advisoryFinding(record.ID)}, 0.2)
	require.NoError(t, err)

	// Advisories queue for review like any claim without straight-through,
	// but the verdict itself is clean, not flagged.
	assert.Equal(t, models.StatePendingSupervisor, verdict.State)
	require.Len(t, verdict.Findings, 1)

	actions := auditActions(t, f.auditLog, record.ID)
	assert.Contains(t, actions, audit.ActionVerdictClean)
	assert.NotContains(t, actions, audit.ActionVerdictFlagged)
}

func TestCompose_AdvisoryOnlyFindingsAutoApproveStraightThrough(t *testing.T) {
	f := newFixture(t, WithStraightThrough(true))
	record := testRecord()

	f.poster.EXPECT().
		PostClaim(gomock.Any(), gomock.Any()).
		Return(sics.PostingResult{Reference: "SICS-REF-9"}, nil)
	f.poster.EXPECT().
		PostCreditNote(gomock.Any(), gomock.Any()).
		Return(nil)

	verdict, err := f.service.Compose(context.Background(), record,
		[]models.Finding{advisoryFinding(record.ID)}, 0.2)
	require.NoError(t, err)

	// An advisory does not take auto-approval eligibility away; it rides
	// along on the approved verdict for the record.
	assert.Equal(t, models.StateApproved, verdict.State)
	assert.Equal(t, "system", verdict.DecidedBy)
	require.Len(t, verdict.Findings, 1)
	assert.Equal(t, models.SeverityAdvisory, verdict.Findings[0].Severity)
}

func TestCompose_TerminalVerdictIsImmutable(t *testing.T) {
	f := newFixture(t, WithStraightThrough(true))
	record := testRecord()

	f.poster.EXPECT().
		PostClaim(gomock.Any(), gomock.Any()).
		Return(sics.PostingResult{Reference: "SICS-REF-2"}, nil)
	f.poster.EXPECT().
		PostCreditNote(gomock.Any(), gomock.Any()).
		Return(nil)

	first, err := f.service.Compose(context.Background(), record, nil, 0.0)
	require.NoError(t, err)
	require.Equal(t, models.StateApproved, first.State)

	// Redelivery: same claim, now with a blocking finding. The resolved
	// verdict must not reopen.
	again, err := f.service.Compose(context.Background(), record,
		[]models.Finding{blockingFinding(record.ID)}, 0.9)
	require.ErrorIs(t, err, sentinel.ErrTerminal)
	assert.Equal(t, first.State, again.State)
	assert.Equal(t, first.Version, again.Version)

	actions := auditActions(t, f.auditLog, record.ID)
	assert.Contains(t, actions, audit.ActionReprocessSkipped)
}

func TestCompose_PostingFailureRoutesToReview(t *testing.T) {
	f := newFixture(t, WithStraightThrough(true))
	record := testRecord()

	f.poster.EXPECT().
		PostClaim(gomock.Any(), gomock.Any()).
		Return(sics.PostingResult{}, dErrors.New(dErrors.CodeUnavailable, "posting service unavailable"))

	verdict, err := f.service.Compose(context.Background(), record, nil, 0.0)
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingSupervisor, verdict.State)
	require.Len(t, verdict.Findings, 1)
	assert.Equal(t, models.KindUpstreamUnavailable, verdict.Findings[0].Kind)
	assert.Equal(t, models.SeverityBlocking, verdict.Findings[0].Severity)

	actions := auditActions(t, f.auditLog, record.ID)
	assert.Contains(t, actions, audit.ActionPostingFailed)
}

func TestCompose_CreditNoteCarriesBookingReference(t *testing.T) {
	f := newFixture(t, WithStraightThrough(true))
	record := testRecord()
	postedAt := time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)

	f.poster.EXPECT().
		PostClaim(gomock.Any(), gomock.Any()).
		Return(sics.PostingResult{Reference: "SICS-REF-7", PostedAt: postedAt}, nil)

	var note sics.CreditNote
	f.poster.EXPECT().
		PostCreditNote(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n sics.CreditNote) error {
			note = n
			return nil
		})

	_, err := f.service.Compose(context.Background(), record, nil, 0.0)
	require.NoError(t, err)

	assert.Equal(t, "CED-01", note.CedantID)
	assert.Equal(t, "CLM-1", note.ClaimNumber)
	assert.Equal(t, "SICS-REF-7", note.Reference)
	assert.Equal(t, int64(15_000_000), note.AmountMinor)
	assert.Equal(t, "USD", note.Currency)
	assert.Equal(t, postedAt, note.IssuedAt)
}

func TestCompose_CreditNoteFailureKeepsApproval(t *testing.T) {
	f := newFixture(t, WithStraightThrough(true))
	record := testRecord()

	f.poster.EXPECT().
		PostClaim(gomock.Any(), gomock.Any()).
		Return(sics.PostingResult{Reference: "SICS-REF-8"}, nil)
	f.poster.EXPECT().
		PostCreditNote(gomock.Any(), gomock.Any()).
		Return(dErrors.New(dErrors.CodeUnavailable, "posting service unavailable"))

	verdict, err := f.service.Compose(context.Background(), record, nil, 0.0)
	require.NoError(t, err)

	// The claim is already booked; the note is left for manual follow-up.
	assert.Equal(t, models.StateApproved, verdict.State)
	actions := auditActions(t, f.auditLog, record.ID)
	assert.Contains(t, actions, audit.ActionClaimPosted)
	assert.NotContains(t, actions, audit.ActionCreditNoteIssued)
}

func TestCompose_AuditWriteFailureBlocksSave(t *testing.T) {
	ctrl := gomock.NewController(t)
	poster := mocks.NewMockPoster(ctrl)
	store := NewInMemoryStore()
	pub := publisher.NewPublisher(failingAuditStore{})
	t.Cleanup(pub.Close)

	service := NewService(store, pub, poster,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	record := testRecord()

	_, err := service.Compose(context.Background(), record, nil, 0.1)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	// The transition was not logged, so it must not be durable either.
	_, err = store.Get(context.Background(), record.ID)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestDecide_ApprovePostsFullClaimFacts(t *testing.T) {
	f := newFixture(t)
	record := testRecord()

	_, err := f.service.Compose(context.Background(), record,
		[]models.Finding{blockingFinding(record.ID)}, 0.3)
	require.NoError(t, err)

	var posting sics.ClaimPosting
	f.poster.EXPECT().
		PostClaim(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p sics.ClaimPosting) (sics.PostingResult, error) {
			posting = p
			return sics.PostingResult{Reference: "SICS-REF-3"}, nil
		})
	f.poster.EXPECT().
		PostCreditNote(gomock.Any(), gomock.Any()).
		Return(nil)

	verdict, err := f.service.Decide(context.Background(), models.ReviewDecision{
		Claim:         record.ID,
		Approve:       true,
		SupervisorID:  "m.keller",
		Justification: "statement difference reconciled with cedant",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateApproved, verdict.State)
	assert.Equal(t, "m.keller", verdict.DecidedBy)
	assert.True(t, verdict.State.IsTerminal())

	// The posting must carry the full claim facts, not just the identity.
	assert.Equal(t, "CED-01", posting.CedantID)
	assert.Equal(t, "CLM-1", posting.ClaimNumber)
	assert.Equal(t, "TR-2024-01", posting.TreatyID)
	assert.Equal(t, 2024, posting.UnderwritingYear)
	assert.Equal(t, record.DateOfLoss, posting.DateOfLoss)
	assert.Equal(t, int64(15_000_000), posting.PaidLossMinor)
	assert.Equal(t, "USD", posting.Currency)
	assert.Equal(t, "death", posting.BenefitType)
	assert.Equal(t, "BRK-42", posting.BrokerRef)

	actions := auditActions(t, f.auditLog, record.ID)
	assert.Contains(t, actions, audit.ActionSupervisorDecision)
	assert.Contains(t, actions, audit.ActionClaimPosted)
	assert.Contains(t, actions, audit.ActionCreditNoteIssued)
}

func TestDecide_RejectDoesNotPost(t *testing.T) {
	f := newFixture(t)
	record := testRecord()

	_, err := f.service.Compose(context.Background(), record,
		[]models.Finding{blockingFinding(record.ID)}, 0.3)
	require.NoError(t, err)

	verdict, err := f.service.Decide(context.Background(), models.ReviewDecision{
		Claim:         record.ID,
		Approve:       false,
		SupervisorID:  "m.keller",
		Justification: "duplicate of last quarter's booking",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateRejected, verdict.State)
}

func TestDecide_RequiresJustification(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Decide(context.Background(), models.ReviewDecision{
		Claim:        domain.ClaimID{Cedant: "CED-01", Number: "CLM-1"},
		Approve:      true,
		SupervisorID: "m.keller",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestDecide_TerminalVerdictConflicts(t *testing.T) {
	f := newFixture(t)
	record := testRecord()

	_, err := f.service.Compose(context.Background(), record,
		[]models.Finding{blockingFinding(record.ID)}, 0.3)
	require.NoError(t, err)

	decision := models.ReviewDecision{
		Claim:         record.ID,
		Approve:       false,
		SupervisorID:  "m.keller",
		Justification: "rejected",
	}
	_, err = f.service.Decide(context.Background(), decision)
	require.NoError(t, err)

	_, err = f.service.Decide(context.Background(), decision)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.True(t, errors.Is(err, sentinel.ErrTerminal))
}

func TestDecide_PosterDownKeepsClaimPending(t *testing.T) {
	f := newFixture(t)
	record := testRecord()

	_, err := f.service.Compose(context.Background(), record,
		[]models.Finding{blockingFinding(record.ID)}, 0.3)
	require.NoError(t, err)

	f.poster.EXPECT().
		PostClaim(gomock.Any(), gomock.Any()).
		Return(sics.PostingResult{}, dErrors.New(dErrors.CodeUnavailable, "posting service unavailable"))

	_, err = f.service.Decide(context.Background(), models.ReviewDecision{
		Claim:         record.ID,
		Approve:       true,
		SupervisorID:  "m.keller",
		Justification: "approved after reconciliation",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))

	current, err := f.service.Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingSupervisor, current.State, "no transition on posting failure")
}

func TestListPending_OldestFirst(t *testing.T) {
	f := newFixture(t)

	for i, number := range []string{"CLM-A", "CLM-B", "CLM-C"} {
		record := testRecord()
		record.ID.Number = domain.ClaimNumber(number)
		record.ReceivedAt = record.ReceivedAt.Add(time.Duration(i) * time.Hour)
		_, err := f.service.Compose(context.Background(), record,
			[]models.Finding{blockingFinding(record.ID)}, 0.3)
		require.NoError(t, err)
	}

	pending, err := f.service.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 3)
}

func TestStats_CountsByState(t *testing.T) {
	f := newFixture(t)
	record := testRecord()

	_, err := f.service.Compose(context.Background(), record,
		[]models.Finding{blockingFinding(record.ID)}, 0.3)
	require.NoError(t, err)

	counts, err := f.service.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.StatePendingSupervisor])
}

// failingAuditStore refuses every append so tests can prove transitions do
// not become durable without their trail rows.
type failingAuditStore struct{}

func (failingAuditStore) Append(context.Context, audit.Event) error {
	return fmt.Errorf("audit store down")
}

func (failingAuditStore) AppendWithID(context.Context, uuid.UUID, audit.Event) error {
	return fmt.Errorf("audit store down")
}

func (failingAuditStore) ListByClaim(context.Context, domain.ClaimID) ([]audit.Event, error) {
	return nil, fmt.Errorf("audit store down")
}

func (failingAuditStore) ListRecent(context.Context, int) ([]audit.Event, error) {
	return nil, fmt.Errorf("audit store down")
}
