// internal/chat/chat.go
// Package chat is the boundary to the messaging platform. The interview and
// review logic depends only on these interfaces; the REST adapter and the
// test fakes implement them.
package chat

import "context"

// MessageRef identifies a posted message for later in-place edits.
type MessageRef struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
}

// CardField is one name/value pair rendered on a staff card.
type CardField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Card is the reviewable rendering of a completed application.
type Card struct {
	Title  string      `json:"title"`
	Fields []CardField `json:"fields"`
	Footer string      `json:"footer,omitempty"`
}

// ControlStyle hints how a decision control is rendered.
type ControlStyle string

const (
	StylePrimary   ControlStyle = "primary"
	StyleSuccess   ControlStyle = "success"
	StyleDanger    ControlStyle = "danger"
	StyleSecondary ControlStyle = "secondary"
)

// Control is an actionable affordance bound to a customID.
type Control struct {
	CustomID string       `json:"customId"`
	Label    string       `json:"label"`
	Style    ControlStyle `json:"style"`
	Disabled bool         `json:"disabled"`
}

// NotePrompt asks the acting reviewer for a short required free-text note.
// The customID carries everything needed to resume; nothing is persisted
// while the prompt is open.
type NotePrompt struct {
	CustomID  string `json:"customId"`
	Title     string `json:"title"`
	Label     string `json:"label"`
	MaxLength int    `json:"maxLength"`
}

// Messenger posts and edits messages in channels and threads.
type Messenger interface {
	SendMessage(ctx context.Context, channelID, content string) (MessageRef, error)
	SendCard(ctx context.Context, channelID, content string, card Card, controls []Control) (MessageRef, error)
	EditCard(ctx context.Context, ref MessageRef, card Card, controls []Control) error
}

// SurfaceManager creates and archives private threads nested in a parent
// channel.
type SurfaceManager interface {
	CreateThread(ctx context.Context, parentChannelID, name, memberID string) (string, error)
	LockThread(ctx context.Context, threadID, reason string) error
}

// DirectMessenger opens one-to-one channels with users.
type DirectMessenger interface {
	OpenDM(ctx context.Context, userID string) (string, error)
}

// RoleManager mutates and inspects member roles within a community.
type RoleManager interface {
	GrantRole(ctx context.Context, communityID, userID, roleID string) error
	RevokeRole(ctx context.Context, communityID, userID, roleID string) error
	MemberHasRole(ctx context.Context, communityID, userID, roleID string) (bool, error)
}

// Responder acknowledges interaction events back to the acting user. Replies
// are ephemeral to that user.
type Responder interface {
	Reply(ctx context.Context, interactionID, content string) error
	PromptNote(ctx context.Context, interactionID string, prompt NotePrompt) error
}

// InteractionEvent is a button press or a note submission delivered by the
// platform gateway.
type InteractionEvent struct {
	InteractionID string            `json:"interactionId"`
	CommunityID   string            `json:"communityId"`
	UserID        string            `json:"userId"`
	UserDisplay   string            `json:"userDisplay"`
	ChannelID     string            `json:"channelId"`
	MessageID     string            `json:"messageId,omitempty"`
	CustomID      string            `json:"customId"`
	Values        map[string]string `json:"values,omitempty"` // note prompt fields
}

// MessageEvent is a raw message delivered by the platform gateway.
type MessageEvent struct {
	CommunityID string `json:"communityId,omitempty"` // empty for direct messages
	UserID      string `json:"userId"`
	ChannelID   string `json:"channelId"`
	Content     string `json:"content"`
	FromBot     bool   `json:"fromBot"`
}
