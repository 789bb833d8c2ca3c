// internal/router/router_test.go
package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/catalog"
	"gatekeeper/internal/chat"
	"gatekeeper/internal/chat/chattest"
	"gatekeeper/internal/common/logger"
	"gatekeeper/internal/common/observability"
	"gatekeeper/internal/conversation"
	"gatekeeper/internal/decision"
	"gatekeeper/internal/interview"
	"gatekeeper/internal/models"
	"gatekeeper/internal/notify"
	"gatekeeper/internal/review"
	"gatekeeper/internal/store"
)

type routerFixture struct {
	router      *Router
	apps        *store.MemoryStore
	communities *store.MemoryCommunityStore
	fake        *chattest.Fake
}

// newRouterFixture wires the full pipeline against in-memory collaborators:
// panel button through interview to review card to decision.
func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	apps := store.NewMemoryStore()
	communities := store.NewMemoryCommunityStore()
	fake := chattest.NewFake()
	log := logger.NewTestLogger(t)
	obs := observability.NewNoop()
	cat := catalog.Default()
	opener := conversation.NewOpener(fake, fake, log)

	require.NoError(t, communities.Save(context.Background(), &models.CommunityConfig{
		CommunityID:        "guild-1",
		InterviewChannelID: "interviews",
		StaffChannelID:     "staff",
		StaffRoleID:        "role-staff",
		PendingRoleID:      "role-pending",
		ApprovedRoleID:     "role-approved",
	}))

	dispatcher := review.NewDispatcher(apps, communities, cat, fake, noopAlerter{}, log)
	engine := interview.NewEngine(apps, communities, cat, opener, fake, dispatcher, interview.NoopLock{}, obs, log)
	workflow := decision.NewWorkflow(apps, communities, fake, fake, fake, opener,
		notify.NewNotifier(fake, fake, log), nil, log)

	return &routerFixture{
		router:      New(engine, workflow, communities, fake, fake, obs, log),
		apps:        apps,
		communities: communities,
		fake:        fake,
	}
}

type noopAlerter struct{}

func (noopAlerter) Alert(context.Context, string, string) {}

var interviewAnswers = []string{
	"Rook",
	"Came down from the northern passes after the collapse.",
	"Traded salvage, kept my head down.",
	"Only the people who have bled next to me.",
	"I will not raid declared safe zones.",
	"76561198000000001",
	"A drifter who keeps maps of the dead towns.",
	"one\ntwo\nthree\nfour\nfive\nsix",
}

func (f *routerFixture) runInterview(t *testing.T) *models.Application {
	t.Helper()
	ctx := context.Background()

	f.router.HandleInteraction(ctx, chat.InteractionEvent{
		InteractionID: "int-start",
		CommunityID:   "guild-1",
		UserID:        "user-1",
		UserDisplay:   "Rook",
		CustomID:      "wl:start",
	})

	app, err := f.apps.FindActive(ctx, "guild-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, app.Conversation)

	for _, answer := range interviewAnswers {
		f.router.HandleMessage(ctx, chat.MessageEvent{
			CommunityID: "guild-1",
			UserID:      "user-1",
			ChannelID:   app.Conversation.ChannelID,
			Content:     answer,
		})
	}

	app, err = f.apps.FindActive(ctx, "guild-1", "user-1")
	require.NoError(t, err)
	return app
}

func TestRouter_PanelButtonThroughReview(t *testing.T) {
	f := newRouterFixture(t)

	app := f.runInterview(t)
	assert.Equal(t, models.StatusSubmitted, app.Status)

	card, ok := f.fake.LastCardTo("staff")
	require.True(t, ok)
	assert.Equal(t, app.ID, card.Card.Footer, "review card carries the application id")
}

func TestRouter_SurfaceUnavailableTellsApplicantWhatToDo(t *testing.T) {
	f := newRouterFixture(t)
	f.fake.ThreadErr = errors.New("missing permission")
	f.fake.DMErr = errors.New("DMs closed")

	f.router.HandleInteraction(context.Background(), chat.InteractionEvent{
		InteractionID: "int-blocked",
		CommunityID:   "guild-1",
		UserID:        "user-1",
		UserDisplay:   "Rook",
		CustomID:      "wl:start",
	})

	replies := f.fake.Replies["int-blocked"]
	require.NotEmpty(t, replies)
	last := replies[len(replies)-1]
	assert.Contains(t, last, "Enable direct messages")
	assert.Contains(t, last, "press Start again")
	assert.NotContains(t, last, "Something went wrong")
}

func TestRouter_StaffGateBlocksNonStaff(t *testing.T) {
	f := newRouterFixture(t)
	app := f.runInterview(t)
	ctx := context.Background()

	f.router.HandleInteraction(ctx, chat.InteractionEvent{
		InteractionID: "int-2",
		CommunityID:   "guild-1",
		UserID:        "rando",
		UserDisplay:   "Rando",
		CustomID:      "wl:decision:approve:" + app.ID,
	})

	got, err := f.apps.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, got.Status)

	replies := f.fake.Replies["int-2"]
	require.NotEmpty(t, replies)
	assert.Contains(t, replies[0], "Only staff")
}

func TestRouter_StaffDecisionFlow(t *testing.T) {
	f := newRouterFixture(t)
	app := f.runInterview(t)
	ctx := context.Background()

	f.fake.StaffRoles["guild-1/staff-1/role-staff"] = true

	f.router.HandleInteraction(ctx, chat.InteractionEvent{
		InteractionID: "int-3",
		CommunityID:   "guild-1",
		UserID:        "staff-1",
		UserDisplay:   "Mara",
		CustomID:      "wl:decision:reject:" + app.ID,
	})

	// Button press opened the note prompt, nothing decided yet.
	got, err := f.apps.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, got.Status)
	require.Len(t, f.fake.NotePrompts, 1)

	f.router.HandleInteraction(ctx, chat.InteractionEvent{
		InteractionID: "int-4",
		CommunityID:   "guild-1",
		UserID:        "staff-1",
		UserDisplay:   "Mara",
		CustomID:      f.fake.NotePrompts[0].CustomID,
		Values:        map[string]string{"note": "application too thin"},
	})

	got, err = f.apps.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, "application too thin", got.DecisionNote)
}

func TestRouter_UnknownCustomIDIgnored(t *testing.T) {
	f := newRouterFixture(t)

	f.router.HandleInteraction(context.Background(), chat.InteractionEvent{
		InteractionID: "int-5",
		CommunityID:   "guild-1",
		UserID:        "user-1",
		CustomID:      "music:play",
	})

	assert.Empty(t, f.fake.Replies["int-5"])
}

func TestRouter_StrayMessagesDoNothing(t *testing.T) {
	f := newRouterFixture(t)

	f.router.HandleMessage(context.Background(), chat.MessageEvent{
		CommunityID: "guild-1",
		UserID:      "user-1",
		ChannelID:   "general",
		Content:     "anyone online?",
	})

	_, err := f.apps.FindActive(context.Background(), "guild-1", "user-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRouter_NoStaffRoleBoundMeansNoGate(t *testing.T) {
	f := newRouterFixture(t)
	require.NoError(t, f.communities.Save(context.Background(), &models.CommunityConfig{
		CommunityID:        "guild-1",
		InterviewChannelID: "interviews",
		StaffChannelID:     "staff",
	}))
	app := f.runInterview(t)
	ctx := context.Background()

	f.router.HandleInteraction(ctx, chat.InteractionEvent{
		InteractionID: "int-6",
		CommunityID:   "guild-1",
		UserID:        "anyone",
		UserDisplay:   "Anyone",
		CustomID:      "wl:decision:approve:" + app.ID,
	})

	got, err := f.apps.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
}

func TestRouter_RestartMidInterviewSupersedes(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	f.router.HandleInteraction(ctx, chat.InteractionEvent{
		InteractionID: "int-7", CommunityID: "guild-1",
		UserID: "user-1", UserDisplay: "Rook", CustomID: "wl:start",
	})
	first, err := f.apps.FindActive(ctx, "guild-1", "user-1")
	require.NoError(t, err)

	// Answer two questions, then restart from the panel.
	for _, answer := range interviewAnswers[:2] {
		f.router.HandleMessage(ctx, chat.MessageEvent{
			CommunityID: "guild-1", UserID: "user-1",
			ChannelID: first.Conversation.ChannelID, Content: answer,
		})
	}
	f.router.HandleInteraction(ctx, chat.InteractionEvent{
		InteractionID: "int-8", CommunityID: "guild-1",
		UserID: "user-1", UserDisplay: "Rook", CustomID: "wl:start",
	})

	second, err := f.apps.FindActive(ctx, "guild-1", "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 0, second.CurrentStep)
	assert.Empty(t, second.Answers)

	// A late message on the old surface is ignored.
	f.router.HandleMessage(ctx, chat.MessageEvent{
		CommunityID: "guild-1", UserID: "user-1",
		ChannelID: first.Conversation.ChannelID, Content: "late answer",
	})
	refreshed, err := f.apps.FindActive(ctx, "guild-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, refreshed.CurrentStep)
}
