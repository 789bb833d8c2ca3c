// internal/store/store.go
package store

import (
	"context"
	"errors"
	"time"

	"gatekeeper/internal/models"
)

var (
	ErrNotFound = errors.New("RECORD_NOT_FOUND")

	// ErrStaleStep means a guarded update lost: the record's status or step no
	// longer matches what the caller read. Duplicate deliveries and races land
	// here and are ignored at the call site.
	ErrStaleStep = errors.New("STALE_STEP")

	// ErrAlreadyDecided means a decision update found the record no longer
	// SUBMITTED.
	ErrAlreadyDecided = errors.New("ALREADY_DECIDED")
)

// ApplicationStore is the single source of truth for interview state. Every
// mutation is one guarded statement; handlers never act on cached state.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	Get(ctx context.Context, id string) (*models.Application, error)

	// FindActive returns the newest IN_PROGRESS or SUBMITTED attempt for the
	// applicant, or ErrNotFound.
	FindActive(ctx context.Context, communityID, applicantID string) (*models.Application, error)

	// FindByConversation returns the IN_PROGRESS attempt bound to the given
	// surface channel for the applicant, or ErrNotFound. Used for DM surfaces,
	// where inbound messages carry no community.
	FindByConversation(ctx context.Context, channelID, applicantID string) (*models.Application, error)

	// ExpireActive transitions every IN_PROGRESS/SUBMITTED attempt for the
	// applicant to EXPIRED with the given note. Returns how many it expired.
	ExpireActive(ctx context.Context, communityID, applicantID, note string) (int, error)

	// BindConversation attaches the opened surface to the attempt.
	BindConversation(ctx context.Context, id string, ref models.ConversationRef) error

	// AppendAnswer stores one accepted answer and advances the step in a
	// single update guarded on (status=IN_PROGRESS, currentStep=expectStep).
	// complete flips the record to SUBMITTED and stamps submittedAt. playerID
	// is promoted when non-empty. Returns ErrStaleStep when the guard misses.
	AppendAnswer(ctx context.Context, id string, expectStep int, key, value, playerID string, complete bool) error

	// SetReviewCard records where the staff card was posted.
	SetReviewCard(ctx context.Context, id string, channelID, messageID string) error

	// Decide transitions a SUBMITTED record to the given status exactly once.
	// Returns ErrAlreadyDecided when the record is not SUBMITTED anymore.
	Decide(ctx context.Context, id string, status models.Status, by models.DecidedBy, note string) error

	// ExpireStale expires IN_PROGRESS attempts untouched since the cutoff.
	ExpireStale(ctx context.Context, olderThan time.Time, note string) (int, error)
}

// CommunityStore holds per-community channel/role bindings.
type CommunityStore interface {
	Get(ctx context.Context, communityID string) (*models.CommunityConfig, error)
	Save(ctx context.Context, cfg *models.CommunityConfig) error
	SetField(ctx context.Context, communityID string, field models.ConfigField, value string) error
}
