// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"gatekeeper/internal/models"
)

// MemoryStore implements ApplicationStore in memory. Used by unit tests and
// local runs without a database. Guard semantics mirror PostgresStore.
type MemoryStore struct {
	mu      sync.Mutex
	apps    map[string]*models.Application
	touched map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		apps:    make(map[string]*models.Application),
		touched: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *app
	s.apps[app.ID] = &cp
	s.touched[app.ID] = time.Now()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *app
	return &cp, nil
}

func (s *MemoryStore) FindActive(_ context.Context, communityID, applicantID string) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found []*models.Application
	for _, app := range s.apps {
		if app.CommunityID == communityID && app.ApplicantID == applicantID && app.Status.Active() {
			found = append(found, app)
		}
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].CreatedAt.After(found[j].CreatedAt)
	})
	cp := *found[0]
	return &cp, nil
}

func (s *MemoryStore) FindByConversation(_ context.Context, channelID, applicantID string) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, app := range s.apps {
		if app.Status == models.StatusInProgress && app.ApplicantID == applicantID &&
			app.Conversation != nil && app.Conversation.ChannelID == channelID {
			cp := *app
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ExpireActive(_ context.Context, communityID, applicantID, note string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	n := 0
	for _, app := range s.apps {
		if app.CommunityID == communityID && app.ApplicantID == applicantID && app.Status.Active() {
			app.Status = models.StatusExpired
			app.DecisionNote = note
			t := now
			app.DecidedAt = &t
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) BindConversation(_ context.Context, id string, ref models.ConversationRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return ErrNotFound
	}
	cp := ref
	app.Conversation = &cp
	s.touched[id] = time.Now()
	return nil
}

func (s *MemoryStore) AppendAnswer(_ context.Context, id string, expectStep int, key, value, playerID string, complete bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[id]
	if !ok {
		return ErrStaleStep
	}
	if app.Status != models.StatusInProgress || app.CurrentStep != expectStep {
		return ErrStaleStep
	}

	app.Answers = app.Answers.With(key, value)
	app.CurrentStep++
	if playerID != "" {
		app.PlayerID = playerID
	}
	if complete {
		app.Status = models.StatusSubmitted
		now := time.Now()
		app.SubmittedAt = &now
	}
	s.touched[id] = time.Now()
	return nil
}

func (s *MemoryStore) SetReviewCard(_ context.Context, id string, channelID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return ErrNotFound
	}
	app.CardChannelID = channelID
	app.CardMessageID = messageID
	return nil
}

func (s *MemoryStore) Decide(_ context.Context, id string, status models.Status, by models.DecidedBy, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[id]
	if !ok {
		return ErrNotFound
	}
	if app.Status != models.StatusSubmitted {
		return ErrAlreadyDecided
	}

	app.Status = status
	now := time.Now()
	app.DecidedAt = &now
	by2 := by
	app.DecidedBy = &by2
	app.DecisionNote = note
	return nil
}

func (s *MemoryStore) ExpireStale(_ context.Context, olderThan time.Time, note string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, app := range s.apps {
		if app.Status == models.StatusInProgress && s.touched[id].Before(olderThan) {
			app.Status = models.StatusExpired
			app.DecisionNote = note
			now := time.Now()
			app.DecidedAt = &now
			n++
		}
	}
	return n, nil
}

// Touch backdates an attempt's last activity. Test helper for ExpireStale.
func (s *MemoryStore) Touch(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[id] = at
}

// MemoryCommunityStore implements CommunityStore in memory.
type MemoryCommunityStore struct {
	mu      sync.Mutex
	configs map[string]*models.CommunityConfig
}

func NewMemoryCommunityStore() *MemoryCommunityStore {
	return &MemoryCommunityStore{configs: make(map[string]*models.CommunityConfig)}
}

func (s *MemoryCommunityStore) Get(_ context.Context, communityID string) (*models.CommunityConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[communityID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cfg
	return &cp, nil
}

func (s *MemoryCommunityStore) Save(_ context.Context, cfg *models.CommunityConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	s.configs[cfg.CommunityID] = &cp
	return nil
}

func (s *MemoryCommunityStore) SetField(ctx context.Context, communityID string, field models.ConfigField, value string) error {
	cfg, err := s.Get(ctx, communityID)
	if err == ErrNotFound {
		cfg = &models.CommunityConfig{CommunityID: communityID}
	} else if err != nil {
		return err
	}
	if err := cfg.Apply(field, value); err != nil {
		return err
	}
	return s.Save(ctx, cfg)
}
