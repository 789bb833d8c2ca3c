// internal/models/application.go
package models

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a whitelist application attempt.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusSubmitted  Status = "SUBMITTED"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusAdjust     Status = "ADJUST"
	StatusExpired    Status = "EXPIRED"
)

// Terminal reports whether the status may never be re-entered or mutated.
// ADJUST and EXPIRED are decided but restart-eligible, not terminal.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Active reports whether the attempt still occupies the applicant's single
// live-attempt slot.
func (s Status) Active() bool {
	return s == StatusInProgress || s == StatusSubmitted
}

// AnswerPair is one catalog key with its stored answer.
type AnswerPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Answers preserves insertion order (question order). Keys are written at
// most once per attempt.
type Answers []AnswerPair

// Get returns the answer for key and whether it was set.
func (a Answers) Get(key string) (string, bool) {
	for _, p := range a {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// With returns a copy of a with the key appended. Existing keys are left
// untouched; a later redo is a new application, not a mutation.
func (a Answers) With(key, value string) Answers {
	if _, ok := a.Get(key); ok {
		return a
	}
	out := make(Answers, len(a), len(a)+1)
	copy(out, a)
	return append(out, AnswerPair{Key: key, Value: value})
}

// Marshal serializes answers for the JSONB column.
func (a Answers) Marshal() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// UnmarshalAnswers restores answers from the JSONB column.
func UnmarshalAnswers(data []byte) (Answers, error) {
	if len(data) == 0 {
		return Answers{}, nil
	}
	var a Answers
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return a, nil
}

// DecidedBy identifies the reviewer who produced a decision.
type DecidedBy struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// ConversationRef points at the surface bound to an attempt: a private thread
// nested in the community's interview channel, or a direct-message channel.
type ConversationRef struct {
	Kind      SurfaceKind `json:"kind"`
	ChannelID string      `json:"channelId"`
}

type SurfaceKind string

const (
	SurfaceThread SurfaceKind = "thread"
	SurfaceDirect SurfaceKind = "dm"
)

// Application is the single durable entity: one attempt by one applicant to
// complete the interview. Superseded attempts remain as EXPIRED audit history.
type Application struct {
	ID                   string           `json:"id"`
	CommunityID          string           `json:"communityId"`
	ApplicantID          string           `json:"applicantId"`
	ApplicantDisplayName string           `json:"applicantDisplayName"`
	Status               Status           `json:"status"`
	CurrentStep          int              `json:"currentStep"`
	Answers              Answers          `json:"answers"`
	PlayerID             string           `json:"playerId,omitempty"` // extracted identifier
	Conversation         *ConversationRef `json:"conversation,omitempty"`
	CardChannelID        string           `json:"cardChannelId,omitempty"`
	CardMessageID        string           `json:"cardMessageId,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	SubmittedAt          *time.Time       `json:"submittedAt,omitempty"`
	DecidedAt            *time.Time       `json:"decidedAt,omitempty"`
	DecidedBy            *DecidedBy       `json:"decidedBy,omitempty"`
	DecisionNote         string           `json:"decisionNote,omitempty"`
}
