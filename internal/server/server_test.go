// internal/server/server_test.go
package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/catalog"
	"gatekeeper/internal/chat/chattest"
	"gatekeeper/internal/common/logger"
	"gatekeeper/internal/common/observability"
	"gatekeeper/internal/conversation"
	"gatekeeper/internal/decision"
	"gatekeeper/internal/interview"
	"gatekeeper/internal/models"
	"gatekeeper/internal/notify"
	"gatekeeper/internal/review"
	"gatekeeper/internal/router"
	"gatekeeper/internal/store"
)

type noopAlerter struct{}

func (noopAlerter) Alert(context.Context, string, string) {}

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
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
	}))

	dispatcher := review.NewDispatcher(apps, communities, cat, fake, noopAlerter{}, log)
	engine := interview.NewEngine(apps, communities, cat, opener, fake, dispatcher, interview.NoopLock{}, obs, log)
	workflow := decision.NewWorkflow(apps, communities, fake, fake, fake, opener,
		notify.NewNotifier(fake, fake, log), nil, log)
	rt := router.New(engine, workflow, communities, fake, fake, obs, log)

	srv := httptest.NewServer(New(rt, log).Handler())
	t.Cleanup(srv.Close)
	return srv, apps
}

func TestInteractionEndpoint_StartsInterview(t *testing.T) {
	srv, apps := newTestServer(t)

	body := `{"interactionId":"int-1","communityId":"guild-1","userId":"user-1","userDisplay":"Rook","customId":"wl:start"}`
	resp, err := http.Post(srv.URL+"/events/interaction", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	app, err := apps.FindActive(context.Background(), "guild-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, app.Status)
}

func TestMessageEndpoint_RejectsMalformedPayload(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/events/message", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEndpoints_RejectNonPost(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/events/interaction")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
