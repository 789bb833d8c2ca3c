// internal/store/memory_test.go
package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gatekeeper/internal/models"
)

func TestMemoryStore_FindActiveReturnsNewestAttempt(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	old := &models.Application{
		ID: "old", CommunityID: "g", ApplicantID: "u",
		Status: models.StatusInProgress, CreatedAt: time.Now().Add(-time.Hour),
	}
	fresh := &models.Application{
		ID: "fresh", CommunityID: "g", ApplicantID: "u",
		Status: models.StatusInProgress, CreatedAt: time.Now(),
	}
	assert.NoError(t, s.Create(ctx, old))
	assert.NoError(t, s.Create(ctx, fresh))

	got, err := s.FindActive(ctx, "g", "u")
	assert.NoError(t, err)
	assert.Equal(t, "fresh", got.ID)
}

func TestMemoryStore_ExpireActiveSkipsDecidedAttempts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	assert.NoError(t, s.Create(ctx, &models.Application{
		ID: "a", CommunityID: "g", ApplicantID: "u",
		Status: models.StatusApproved, CreatedAt: time.Now(),
	}))
	assert.NoError(t, s.Create(ctx, &models.Application{
		ID: "b", CommunityID: "g", ApplicantID: "u",
		Status: models.StatusSubmitted, CreatedAt: time.Now(),
	}))

	n, err := s.ExpireActive(ctx, "g", "u", "superseded by new attempt")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	approved, _ := s.Get(ctx, "a")
	assert.Equal(t, models.StatusApproved, approved.Status)
	expired, _ := s.Get(ctx, "b")
	assert.Equal(t, models.StatusExpired, expired.Status)
	assert.Equal(t, "superseded by new attempt", expired.DecisionNote)
}

func TestMemoryStore_AppendAnswerGuards(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	assert.NoError(t, s.Create(ctx, &models.Application{
		ID: "a", CommunityID: "g", ApplicantID: "u",
		Status: models.StatusInProgress, CurrentStep: 0, CreatedAt: time.Now(),
	}))

	assert.NoError(t, s.AppendAnswer(ctx, "a", 0, "name", "Rook", "", false))
	// Replayed delivery for the step that already advanced.
	assert.ErrorIs(t, s.AppendAnswer(ctx, "a", 0, "name", "Rook", "", false), ErrStaleStep)

	got, _ := s.Get(ctx, "a")
	assert.Equal(t, 1, got.CurrentStep)
	assert.Len(t, got.Answers, 1)
}

func TestMemoryStore_DecideIsTerminal(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	assert.NoError(t, s.Create(ctx, &models.Application{
		ID: "a", CommunityID: "g", ApplicantID: "u",
		Status: models.StatusSubmitted, CreatedAt: time.Now(),
	}))

	by := models.DecidedBy{ID: "staff", DisplayName: "Mara"}
	assert.NoError(t, s.Decide(ctx, "a", models.StatusApproved, by, ""))
	assert.ErrorIs(t, s.Decide(ctx, "a", models.StatusRejected, by, "nope"), ErrAlreadyDecided)

	got, _ := s.Get(ctx, "a")
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.NotNil(t, got.DecidedAt)
}

func TestMemoryStore_ExpireStaleUsesActivityCutoff(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	assert.NoError(t, s.Create(ctx, &models.Application{
		ID: "stale", CommunityID: "g", ApplicantID: "u1",
		Status: models.StatusInProgress, CreatedAt: time.Now(),
	}))
	assert.NoError(t, s.Create(ctx, &models.Application{
		ID: "live", CommunityID: "g", ApplicantID: "u2",
		Status: models.StatusInProgress, CreatedAt: time.Now(),
	}))
	s.Touch("stale", time.Now().Add(-100*time.Hour))

	n, err := s.ExpireStale(ctx, time.Now().Add(-72*time.Hour), "abandoned")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	expired, _ := s.Get(ctx, "stale")
	assert.Equal(t, models.StatusExpired, expired.Status)
	live, _ := s.Get(ctx, "live")
	assert.Equal(t, models.StatusInProgress, live.Status)
}
