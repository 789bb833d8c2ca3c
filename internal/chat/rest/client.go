// internal/chat/rest/client.go
// Package rest implements the chat boundary over the platform's JSON REST
// API. Endpoint shapes are deliberately plain; the gateway in front of the
// platform translates them to the platform's native calls.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gatekeeper/internal/chat"
	httpclient "gatekeeper/internal/common/http"
)

type Client struct {
	baseURL string
	token   string
	http    *httpclient.Client
}

var (
	_ chat.Messenger       = (*Client)(nil)
	_ chat.SurfaceManager  = (*Client)(nil)
	_ chat.DirectMessenger = (*Client)(nil)
	_ chat.RoleManager     = (*Client)(nil)
	_ chat.Responder       = (*Client)(nil)
)

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    httpclient.NewClient(timeout),
	}
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("chat api %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("chat api %s: status %d: %s", path, resp.StatusCode, string(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response from %s: %w", path, err)
		}
	}
	return nil
}

// --- Messenger ---

type messagePayload struct {
	Content  string         `json:"content"`
	Card     *chat.Card     `json:"card,omitempty"`
	Controls []chat.Control `json:"controls,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, channelID, content string) (chat.MessageRef, error) {
	var ref chat.MessageRef
	err := c.post(ctx, fmt.Sprintf("/channels/%s/messages", channelID), messagePayload{Content: content}, &ref)
	return ref, err
}

func (c *Client) SendCard(ctx context.Context, channelID, content string, card chat.Card, controls []chat.Control) (chat.MessageRef, error) {
	var ref chat.MessageRef
	err := c.post(ctx, fmt.Sprintf("/channels/%s/messages", channelID), messagePayload{
		Content:  content,
		Card:     &card,
		Controls: controls,
	}, &ref)
	return ref, err
}

func (c *Client) EditCard(ctx context.Context, ref chat.MessageRef, card chat.Card, controls []chat.Control) error {
	return c.post(ctx, fmt.Sprintf("/channels/%s/messages/%s/edit", ref.ChannelID, ref.MessageID), messagePayload{
		Card:     &card,
		Controls: controls,
	}, nil)
}

// --- SurfaceManager ---

func (c *Client) CreateThread(ctx context.Context, parentChannelID, name, memberID string) (string, error) {
	var out struct {
		ThreadID string `json:"threadId"`
	}
	err := c.post(ctx, fmt.Sprintf("/channels/%s/threads", parentChannelID), map[string]string{
		"name":     name,
		"memberId": memberID,
	}, &out)
	return out.ThreadID, err
}

func (c *Client) LockThread(ctx context.Context, threadID, reason string) error {
	return c.post(ctx, fmt.Sprintf("/threads/%s/lock", threadID), map[string]string{"reason": reason}, nil)
}

// --- DirectMessenger ---

func (c *Client) OpenDM(ctx context.Context, userID string) (string, error) {
	var out struct {
		ChannelID string `json:"channelId"`
	}
	err := c.post(ctx, fmt.Sprintf("/users/%s/dm", userID), nil, &out)
	return out.ChannelID, err
}

// --- RoleManager ---

func (c *Client) GrantRole(ctx context.Context, communityID, userID, roleID string) error {
	return c.post(ctx, fmt.Sprintf("/communities/%s/members/%s/roles/%s", communityID, userID, roleID), nil, nil)
}

func (c *Client) RevokeRole(ctx context.Context, communityID, userID, roleID string) error {
	return c.post(ctx, fmt.Sprintf("/communities/%s/members/%s/roles/%s/remove", communityID, userID, roleID), nil, nil)
}

func (c *Client) MemberHasRole(ctx context.Context, communityID, userID, roleID string) (bool, error) {
	var out struct {
		HasRole bool `json:"hasRole"`
	}
	err := c.post(ctx, fmt.Sprintf("/communities/%s/members/%s/roles/%s/check", communityID, userID, roleID), nil, &out)
	return out.HasRole, err
}

// --- Responder ---

func (c *Client) Reply(ctx context.Context, interactionID, content string) error {
	return c.post(ctx, fmt.Sprintf("/interactions/%s/reply", interactionID), map[string]string{"content": content}, nil)
}

func (c *Client) PromptNote(ctx context.Context, interactionID string, prompt chat.NotePrompt) error {
	return c.post(ctx, fmt.Sprintf("/interactions/%s/prompt", interactionID), prompt, nil)
}
