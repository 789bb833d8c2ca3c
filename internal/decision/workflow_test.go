// internal/decision/workflow_test.go
package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/chat"
	"gatekeeper/internal/chat/chattest"
	apperrors "gatekeeper/internal/common/errors"
	"gatekeeper/internal/common/logger"
	"gatekeeper/internal/conversation"
	"gatekeeper/internal/models"
	"gatekeeper/internal/notify"
	"gatekeeper/internal/store"
)

type fixture struct {
	workflow    *Workflow
	apps        *store.MemoryStore
	communities *store.MemoryCommunityStore
	fake        *chattest.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	apps := store.NewMemoryStore()
	communities := store.NewMemoryCommunityStore()
	fake := chattest.NewFake()
	log := logger.NewTestLogger(t)

	require.NoError(t, communities.Save(context.Background(), &models.CommunityConfig{
		CommunityID:        "guild-1",
		StaffChannelID:     "staff",
		RejectLogChannelID: "reject-log",
		PendingRoleID:      "role-pending",
		ApprovedRoleID:     "role-approved",
		RejectedRoleID:     "role-rejected",
	}))

	w := NewWorkflow(
		apps, communities, fake, fake, fake,
		conversation.NewOpener(fake, fake, log),
		notify.NewNotifier(fake, fake, log),
		nil, // search indexing not configured
		log,
	)
	return &fixture{workflow: w, apps: apps, communities: communities, fake: fake}
}

func (f *fixture) seedSubmitted(t *testing.T) *models.Application {
	t.Helper()
	now := time.Now()
	app := &models.Application{
		ID:                   "app-1",
		CommunityID:          "guild-1",
		ApplicantID:          "user-1",
		ApplicantDisplayName: "Rook",
		Status:               models.StatusSubmitted,
		CurrentStep:          8,
		PlayerID:             "76561198000000001",
		Answers:              models.Answers{{Key: "name", Value: "Rook"}},
		Conversation:         &models.ConversationRef{Kind: models.SurfaceThread, ChannelID: "thr-1"},
		CardChannelID:        "staff",
		CardMessageID:        "msg-1",
		CreatedAt:            now,
		SubmittedAt:          &now,
	}
	require.NoError(t, f.apps.Create(context.Background(), app))
	return app
}

func staffEvent(customID string) chat.InteractionEvent {
	return chat.InteractionEvent{
		InteractionID: "int-1",
		CommunityID:   "guild-1",
		UserID:        "staff-1",
		UserDisplay:   "Mara",
		ChannelID:     "staff",
		MessageID:     "msg-1",
		CustomID:      customID,
	}
}

// ============================================================================
// Approve
// ============================================================================

func TestApprove_DecidesAndAppliesSideEffects(t *testing.T) {
	f := newFixture(t)
	f.seedSubmitted(t)
	ctx := context.Background()

	require.NoError(t, f.workflow.HandleButton(ctx, ActionApprove, "app-1", staffEvent("wl:decision:approve:app-1")))

	app, err := f.apps.Get(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, app.Status)
	require.NotNil(t, app.DecidedBy)
	assert.Equal(t, "staff-1", app.DecidedBy.ID)
	assert.NotNil(t, app.DecidedAt)

	// Roles: pending off, approved on, rejected cleared.
	assert.Contains(t, f.fake.Revoked, "guild-1/user-1/role-pending")
	assert.Contains(t, f.fake.Granted, "guild-1/user-1/role-approved")
	assert.Contains(t, f.fake.Revoked, "guild-1/user-1/role-rejected")

	// Applicant notified by DM.
	dmChannel := f.fake.DMs["user-1"]
	require.NotEmpty(t, dmChannel)
	msgs := f.fake.MessagesTo(dmChannel)
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0], "approved")

	// Card edited in place with controls disabled.
	edit, ok := f.fake.Edits["staff/msg-1"]
	require.True(t, ok)
	for _, control := range edit.Controls {
		assert.True(t, control.Disabled)
	}

	// Interview thread locked.
	assert.Contains(t, f.fake.LockedIDs, "thr-1")
}

func TestApprove_SecondPressIsNoOpNotice(t *testing.T) {
	f := newFixture(t)
	f.seedSubmitted(t)
	ctx := context.Background()

	require.NoError(t, f.workflow.HandleButton(ctx, ActionApprove, "app-1", staffEvent("wl:decision:approve:app-1")))

	ev := staffEvent("wl:decision:reject:app-1")
	ev.UserID = "staff-2"
	require.NoError(t, f.workflow.HandleNote(ctx, ActionReject, "app-1",
		withNote(ev, "changed my mind")))

	app, err := f.apps.Get(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, app.Status)
	assert.Equal(t, "staff-1", app.DecidedBy.ID)

	replies := f.fake.Replies["int-1"]
	require.NotEmpty(t, replies)
	assert.Contains(t, replies[len(replies)-1], "already been decided")
}

// ============================================================================
// Reject / adjust
// ============================================================================

func withNote(ev chat.InteractionEvent, note string) chat.InteractionEvent {
	ev.Values = map[string]string{"note": note}
	return ev
}

func TestRejectButton_OpensNotePrompt(t *testing.T) {
	f := newFixture(t)
	f.seedSubmitted(t)

	require.NoError(t, f.workflow.HandleButton(context.Background(), ActionReject, "app-1",
		staffEvent("wl:decision:reject:app-1")))

	app, err := f.apps.Get(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, app.Status, "button alone must not transition")

	require.Len(t, f.fake.NotePrompts, 1)
	assert.Equal(t, "wl:reject_reason:app-1", f.fake.NotePrompts[0].CustomID)
}

func TestRejectNote_DecidesAndLogsRejection(t *testing.T) {
	f := newFixture(t)
	f.seedSubmitted(t)
	ctx := context.Background()

	require.NoError(t, f.workflow.HandleNote(ctx, ActionReject, "app-1",
		withNote(staffEvent("wl:reject_reason:app-1"), "answers contradict the lore")))

	app, err := f.apps.Get(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, app.Status)
	assert.Equal(t, "answers contradict the lore", app.DecisionNote)

	assert.Contains(t, f.fake.Granted, "guild-1/user-1/role-rejected")

	logLines := f.fake.MessagesTo("reject-log")
	require.NotEmpty(t, logLines)
	assert.Contains(t, logLines[0], "answers contradict the lore")

	dmChannel := f.fake.DMs["user-1"]
	msgs := f.fake.MessagesTo(dmChannel)
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0], "rejected")
	assert.Contains(t, msgs[0], "answers contradict the lore")
}

func TestRejectNote_EmptyNoteRefused(t *testing.T) {
	f := newFixture(t)
	f.seedSubmitted(t)

	err := f.workflow.HandleNote(context.Background(), ActionReject, "app-1",
		withNote(staffEvent("wl:reject_reason:app-1"), "   "))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNoteRequired))

	app, gerr := f.apps.Get(context.Background(), "app-1")
	require.NoError(t, gerr)
	assert.Equal(t, models.StatusSubmitted, app.Status)
}

func TestAdjustNote_MarksAdjustWithoutRejectedRole(t *testing.T) {
	f := newFixture(t)
	f.seedSubmitted(t)
	ctx := context.Background()

	require.NoError(t, f.workflow.HandleNote(ctx, ActionAdjust, "app-1",
		withNote(staffEvent("wl:adjust_note:app-1"), "final scene needs more detail")))

	app, err := f.apps.Get(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAdjust, app.Status)

	assert.NotContains(t, f.fake.Granted, "guild-1/user-1/role-rejected")
	assert.Contains(t, f.fake.Revoked, "guild-1/user-1/role-pending")
	assert.Empty(t, f.fake.MessagesTo("reject-log"))

	dmChannel := f.fake.DMs["user-1"]
	msgs := f.fake.MessagesTo(dmChannel)
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0], "adjustments")
	assert.Contains(t, msgs[0], "final scene needs more detail")
}

// ============================================================================
// Side-effect resilience
// ============================================================================

func TestApprove_NotifyFailureDoesNotBlockDecision(t *testing.T) {
	f := newFixture(t)
	f.seedSubmitted(t)
	f.fake.DMErr = errors.New("DMs closed")

	require.NoError(t, f.workflow.HandleButton(context.Background(), ActionApprove, "app-1",
		staffEvent("wl:decision:approve:app-1")))

	app, err := f.apps.Get(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, app.Status)
}

func TestApprove_RoleFailureDoesNotBlockDecision(t *testing.T) {
	f := newFixture(t)
	f.seedSubmitted(t)
	f.fake.RoleErr = errors.New("missing permission")

	require.NoError(t, f.workflow.HandleButton(context.Background(), ActionApprove, "app-1",
		staffEvent("wl:decision:approve:app-1")))

	app, err := f.apps.Get(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, app.Status)
}

func TestDecide_MissingApplication(t *testing.T) {
	f := newFixture(t)

	err := f.workflow.HandleButton(context.Background(), ActionApprove, "nope",
		staffEvent("wl:decision:approve:nope"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeApplicationMissing))
}
