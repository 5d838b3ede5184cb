package flows

import (
	"context"
	"time"

	"github.com/7L7K/gsnauth/refresh"
	"github.com/7L7K/gsnauth/token"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	// RefreshFailureDecode covers malformed, expired, and badly signed
	// presented tokens.
	RefreshFailureDecode
	// RefreshFailureLost is the benign concurrent-tab race: another caller
	// consumed this sequence moments earlier.
	RefreshFailureLost
	// RefreshFailureReuse is replay: the family has been revoked.
	RefreshFailureReuse
	// RefreshFailureNotFound covers unknown, expired, and revoked families.
	RefreshFailureNotFound
	// RefreshFailureStore means the store was unreachable; fail closed.
	RefreshFailureStore
	// RefreshFailureIssue means the winner could not mint the new pair.
	RefreshFailureIssue
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	Subject      string
	Scopes       []string
	FamilyID     string
	SequenceID   string
	AccessToken  string
	RefreshToken string
}

// RefreshFamilyStore is the minimal store surface the rotation flow needs.
type RefreshFamilyStore interface {
	TryConsume(ctx context.Context, familyID, sequenceID string, ttl time.Duration) (refresh.ConsumeResult, error)
}

// RefreshDeps captures rotation flow dependencies.
type RefreshDeps struct {
	VerifyRefresh func(string) (*token.Claims, error)
	// IssuePair mints the new access+refresh pair for the advanced sequence.
	IssuePair  func(subject string, scopes []string, familyID, sequenceID string) (string, string, error)
	RefreshTTL time.Duration
	Store      RefreshFamilyStore
}

// RunRefresh executes one rotation attempt. Single-attempt policy: no
// internal retries; a fresh client attempt finds the record either still
// pending or already advanced.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := deps.VerifyRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}

	res, err := deps.Store.TryConsume(ctx, claims.FamilyID, claims.SequenceID, deps.RefreshTTL)
	if err != nil {
		return RefreshResult{
			Failure:    RefreshFailureStore,
			Err:        err,
			Subject:    claims.Subject,
			FamilyID:   claims.FamilyID,
			SequenceID: claims.SequenceID,
		}
	}

	switch res.Outcome {
	case refresh.OutcomeWon:
		access, refreshed, err := deps.IssuePair(res.Subject, res.Scopes, claims.FamilyID, res.NewSequence)
		if err != nil {
			return RefreshResult{
				Failure:    RefreshFailureIssue,
				Err:        err,
				Subject:    res.Subject,
				FamilyID:   claims.FamilyID,
				SequenceID: res.NewSequence,
			}
		}
		return RefreshResult{
			Subject:      res.Subject,
			Scopes:       res.Scopes,
			FamilyID:     claims.FamilyID,
			SequenceID:   res.NewSequence,
			AccessToken:  access,
			RefreshToken: refreshed,
		}
	case refresh.OutcomeLost:
		return RefreshResult{
			Failure:    RefreshFailureLost,
			Subject:    claims.Subject,
			FamilyID:   claims.FamilyID,
			SequenceID: claims.SequenceID,
		}
	case refresh.OutcomeReused:
		return RefreshResult{
			Failure:    RefreshFailureReuse,
			Subject:    claims.Subject,
			FamilyID:   claims.FamilyID,
			SequenceID: claims.SequenceID,
		}
	default:
		return RefreshResult{
			Failure:    RefreshFailureNotFound,
			Subject:    claims.Subject,
			FamilyID:   claims.FamilyID,
			SequenceID: claims.SequenceID,
		}
	}
}
