// internal/chat/chattest/fake.go
// Package chattest provides in-memory fakes for the chat boundary, shared by
// the interview, review, decision, and router tests.
package chattest

import (
	"context"
	"fmt"
	"sync"

	"gatekeeper/internal/chat"
)

// SentMessage records one SendMessage/SendCard call.
type SentMessage struct {
	ChannelID string
	Content   string
	Card      *chat.Card
	Controls  []chat.Control
}

// Fake implements every chat interface and records calls. Error fields make
// individual operations fail on demand.
type Fake struct {
	mu sync.Mutex

	Messages    []SentMessage
	Edits       map[string]SentMessage // keyed by channelID/messageID
	Threads     []string               // created thread IDs
	LockedIDs   []string
	DMs         map[string]string // userID -> dm channel id
	Granted     []string          // "communityID/userID/roleID"
	Revoked     []string
	StaffRoles  map[string]bool // "communityID/userID/roleID" -> has
	Replies     map[string][]string
	NotePrompts []chat.NotePrompt

	ThreadErr error
	DMErr     error
	SendErr   error
	RoleErr   error

	nextID int
}

func NewFake() *Fake {
	return &Fake{
		Edits:      make(map[string]SentMessage),
		DMs:        make(map[string]string),
		StaffRoles: make(map[string]bool),
		Replies:    make(map[string][]string),
	}
}

func (f *Fake) next(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// --- Messenger ---

func (f *Fake) SendMessage(_ context.Context, channelID, content string) (chat.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return chat.MessageRef{}, f.SendErr
	}
	f.Messages = append(f.Messages, SentMessage{ChannelID: channelID, Content: content})
	return chat.MessageRef{ChannelID: channelID, MessageID: f.next("msg")}, nil
}

func (f *Fake) SendCard(_ context.Context, channelID, content string, card chat.Card, controls []chat.Control) (chat.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return chat.MessageRef{}, f.SendErr
	}
	c := card
	f.Messages = append(f.Messages, SentMessage{ChannelID: channelID, Content: content, Card: &c, Controls: controls})
	return chat.MessageRef{ChannelID: channelID, MessageID: f.next("msg")}, nil
}

func (f *Fake) EditCard(_ context.Context, ref chat.MessageRef, card chat.Card, controls []chat.Control) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := card
	f.Edits[ref.ChannelID+"/"+ref.MessageID] = SentMessage{ChannelID: ref.ChannelID, Card: &c, Controls: controls}
	return nil
}

// --- SurfaceManager ---

func (f *Fake) CreateThread(_ context.Context, parentChannelID, name, memberID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ThreadErr != nil {
		return "", f.ThreadErr
	}
	id := f.next("thread")
	f.Threads = append(f.Threads, id)
	return id, nil
}

func (f *Fake) LockThread(_ context.Context, threadID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LockedIDs = append(f.LockedIDs, threadID)
	return nil
}

// --- DirectMessenger ---

func (f *Fake) OpenDM(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DMErr != nil {
		return "", f.DMErr
	}
	if id, ok := f.DMs[userID]; ok {
		return id, nil
	}
	id := f.next("dm")
	f.DMs[userID] = id
	return id, nil
}

// --- RoleManager ---

func (f *Fake) GrantRole(_ context.Context, communityID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RoleErr != nil {
		return f.RoleErr
	}
	f.Granted = append(f.Granted, communityID+"/"+userID+"/"+roleID)
	return nil
}

func (f *Fake) RevokeRole(_ context.Context, communityID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RoleErr != nil {
		return f.RoleErr
	}
	f.Revoked = append(f.Revoked, communityID+"/"+userID+"/"+roleID)
	return nil
}

func (f *Fake) MemberHasRole(_ context.Context, communityID, userID, roleID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.StaffRoles[communityID+"/"+userID+"/"+roleID], nil
}

// --- Responder ---

func (f *Fake) Reply(_ context.Context, interactionID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Replies[interactionID] = append(f.Replies[interactionID], content)
	return nil
}

func (f *Fake) PromptNote(_ context.Context, interactionID string, prompt chat.NotePrompt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.NotePrompts = append(f.NotePrompts, prompt)
	return nil
}

// MessagesTo returns contents sent to the given channel.
func (f *Fake) MessagesTo(channelID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.Messages {
		if m.ChannelID == channelID {
			out = append(out, m.Content)
		}
	}
	return out
}

// LastCardTo returns the most recent card posted to the channel.
func (f *Fake) LastCardTo(channelID string) (SentMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Messages) - 1; i >= 0; i-- {
		if f.Messages[i].ChannelID == channelID && f.Messages[i].Card != nil {
			return f.Messages[i], true
		}
	}
	return SentMessage{}, false
}
