// internal/catalog/catalog.go
package catalog

import (
	"fmt"
	"strings"
)

// PlayerIDKey is the distinguished question whose answer is promoted onto the
// application record for fast lookup.
const PlayerIDKey = "playerId"

// PlayerIDDigits is the fixed length of the game-platform account identifier.
const PlayerIDDigits = 17

// Question is one prompt in the ordered interview catalog.
type Question struct {
	Key       string
	Prompt    string
	MaxLen    int
	Validator Validator // optional, runs after the length check
}

// Catalog is the fixed, ordered list of interview questions.
type Catalog struct {
	questions []Question
}

func New(questions []Question) (*Catalog, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("catalog must have at least one question")
	}
	seen := make(map[string]bool, len(questions))
	for i, q := range questions {
		if q.Key == "" {
			return nil, fmt.Errorf("question %d has no key", i)
		}
		if seen[q.Key] {
			return nil, fmt.Errorf("duplicate question key: %s", q.Key)
		}
		seen[q.Key] = true
		if q.MaxLen <= 0 {
			return nil, fmt.Errorf("question %s has no max length", q.Key)
		}
	}
	return &Catalog{questions: questions}, nil
}

// Len returns the number of questions.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// At returns the question at step, or false when step is out of range.
func (c *Catalog) At(step int) (Question, bool) {
	if step < 0 || step >= len(c.questions) {
		return Question{}, false
	}
	return c.questions[step], true
}

// Questions returns the ordered questions for rendering.
func (c *Catalog) Questions() []Question {
	return c.questions
}

// Check validates a raw answer against the question at step. It returns the
// trimmed answer, or a rejection reason. The check is pure: no state changes.
func (c *Catalog) Check(step int, raw string) (string, string) {
	q, ok := c.At(step)
	if !ok {
		return "", "no question at this step"
	}
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "", "answer cannot be empty"
	}
	if len(answer) > q.MaxLen {
		return "", fmt.Sprintf("answer too long: limit is %d characters (got %d)", q.MaxLen, len(answer))
	}
	if q.Validator != nil {
		if reason := q.Validator(answer); reason != "" {
			return "", reason
		}
	}
	return answer, ""
}

// Default is the built-in interview catalog.
func Default() *Catalog {
	c, err := New([]Question{
		{
			Key:    "name",
			Prompt: "Who are you?\nTell us the name that survived the end of the world.",
			MaxLen: 80,
		},
		{
			Key:    "origin",
			Prompt: "Where did you come from?\nWhat happened there, and why did you never go back?",
			MaxLen: 500,
		},
		{
			Key:    "survival",
			Prompt: "What did you do to survive?\nNobody out here is clean. And you?",
			MaxLen: 500,
		},
		{
			Key:    "trust",
			Prompt: "Who do you trust today: people, groups, or only yourself?\nExplain.",
			MaxLen: 250,
		},
		{
			Key:    "limits",
			Prompt: "How far would you go to live one more day?\nLie, steal, or abandon someone?",
			MaxLen: 350,
		},
		{
			Key:       PlayerIDKey,
			Prompt:    "Game account ID (required):\nSend numbers only (17 digits).",
			MaxLen:    32,
			Validator: ExactDigits(PlayerIDDigits),
		},
		{
			Key:    "story",
			Prompt: "Character backstory (up to 200 characters):\nA short history grounded in the server lore.",
			MaxLen: 200,
		},
		{
			Key:       "finalScene",
			Prompt:    "Narrate your arrival at the valley.\nDescribe the place, the silence, the fear. At least 6 lines.",
			MaxLen:    1000,
			Validator: MinLines(6),
		},
	})
	if err != nil {
		panic(err) // built-in catalog is checked by tests
	}
	return c
}
