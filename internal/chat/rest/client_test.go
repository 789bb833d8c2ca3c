// internal/chat/rest/client_test.go
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/chat"
)

type recordedRequest struct {
	Path string
	Auth string
	Body map[string]interface{}
}

func newAPIServer(t *testing.T, status int, response interface{}) (*Client, *[]recordedRequest) {
	t.Helper()
	var recorded []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		recorded = append(recorded, recordedRequest{
			Path: r.URL.Path,
			Auth: r.Header.Get("Authorization"),
			Body: body,
		})
		w.WriteHeader(status)
		if response != nil {
			json.NewEncoder(w).Encode(response)
		}
	}))
	t.Cleanup(srv.Close)

	return New(srv.URL, "secret-token", 2*time.Second), &recorded
}

func TestSendMessage_PostsWithBotToken(t *testing.T) {
	client, recorded := newAPIServer(t, http.StatusOK,
		chat.MessageRef{ChannelID: "chan-1", MessageID: "msg-9"})

	ref, err := client.SendMessage(context.Background(), "chan-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "msg-9", ref.MessageID)

	require.Len(t, *recorded, 1)
	req := (*recorded)[0]
	assert.Equal(t, "/channels/chan-1/messages", req.Path)
	assert.Equal(t, "Bot secret-token", req.Auth)
	assert.Equal(t, "hello", req.Body["content"])
}

func TestSendCard_IncludesControls(t *testing.T) {
	client, recorded := newAPIServer(t, http.StatusOK,
		chat.MessageRef{ChannelID: "staff", MessageID: "msg-1"})

	_, err := client.SendCard(context.Background(), "staff", "new application",
		chat.Card{Title: "Whitelist application: Rook"},
		[]chat.Control{{CustomID: "wl:decision:approve:app-1", Label: "Approve", Style: chat.StyleSuccess}})
	require.NoError(t, err)

	req := (*recorded)[0]
	require.NotNil(t, req.Body["card"])
	controls, ok := req.Body["controls"].([]interface{})
	require.True(t, ok)
	assert.Len(t, controls, 1)
}

func TestCreateThread_ReturnsThreadID(t *testing.T) {
	client, recorded := newAPIServer(t, http.StatusOK, map[string]string{"threadId": "thr-7"})

	id, err := client.CreateThread(context.Background(), "interviews", "whitelist-Rook", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "thr-7", id)
	assert.Equal(t, "/channels/interviews/threads", (*recorded)[0].Path)
}

func TestMemberHasRole_DecodesCheck(t *testing.T) {
	client, _ := newAPIServer(t, http.StatusOK, map[string]bool{"hasRole": true})

	has, err := client.MemberHasRole(context.Background(), "guild-1", "user-1", "role-staff")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	client, _ := newAPIServer(t, http.StatusForbidden, map[string]string{"error": "missing permission"})

	_, err := client.SendMessage(context.Background(), "chan-1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
