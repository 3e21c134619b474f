// Package verdict composes check findings into a claim verdict and owns the
// review state machine, including supervisor resolution of flagged claims.
package verdict

import (
	"context"

	"bordero/internal/claims/models"
	"bordero/pkg/domain"
)

// Store persists verdicts keyed by claim identity.
//
// Save is an optimistic upsert: it writes the verdict if the stored version
// matches verdict.Version-1 (or the claim is new and verdict.Version is 1)
// and returns sentinel.ErrConflict otherwise, so concurrent transitions of
// the same claim cannot silently overwrite each other.
type Store interface {
	Get(ctx context.Context, claim domain.ClaimID) (models.Verdict, error)
	Save(ctx context.Context, verdict models.Verdict) error
	ListByState(ctx context.Context, state models.VerdictState) ([]models.Verdict, error)
	CountByState(ctx context.Context) (map[models.VerdictState]int, error)
}
