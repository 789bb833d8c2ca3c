// internal/interview/engine.go
package interview

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gatekeeper/internal/catalog"
	"gatekeeper/internal/chat"
	apperrors "gatekeeper/internal/common/errors"
	"gatekeeper/internal/common/logger"
	"gatekeeper/internal/common/metrics"
	"gatekeeper/internal/common/observability"
	"gatekeeper/internal/conversation"
	"gatekeeper/internal/models"
	"gatekeeper/internal/store"
)

const supersededNote = "superseded by new attempt"

// Dispatcher hands a submitted application to staff review.
type Dispatcher interface {
	Dispatch(ctx context.Context, applicationID string) error
}

// Engine runs the question-at-a-time interview. All state lives in the store;
// every inbound event re-reads the record and mutates it through a guarded
// update, so concurrent and replayed deliveries resolve to exactly one
// winner.
type Engine struct {
	apps        store.ApplicationStore
	communities store.CommunityStore
	catalog     *catalog.Catalog
	opener      *conversation.Opener
	messenger   chat.Messenger
	dispatcher  Dispatcher
	locks       StartLocker
	obs         *observability.Observability
	logger      logger.Logger
}

func NewEngine(
	apps store.ApplicationStore,
	communities store.CommunityStore,
	cat *catalog.Catalog,
	opener *conversation.Opener,
	messenger chat.Messenger,
	dispatcher Dispatcher,
	locks StartLocker,
	obs *observability.Observability,
	log logger.Logger,
) *Engine {
	return &Engine{
		apps:        apps,
		communities: communities,
		catalog:     cat,
		opener:      opener,
		messenger:   messenger,
		dispatcher:  dispatcher,
		locks:       locks,
		obs:         obs,
		logger:      log.WithFields(map[string]interface{}{"component": "interview"}),
	}
}

// Start begins a fresh attempt for the applicant. Any prior IN_PROGRESS or
// SUBMITTED attempt is expired first, so at most one active attempt exists
// per applicant per community. The newest attempt always wins.
func (e *Engine) Start(ctx context.Context, communityID, applicantID, displayName string) error {
	startedAt := time.Now()
	defer func() {
		e.obs.RecordEventDuration(ctx, time.Since(startedAt), "interview.start")
	}()

	acquired, err := e.locks.Acquire(ctx, communityID, applicantID)
	if err != nil {
		// The lock only absorbs duplicate triggers. When redis is down the
		// guarded store updates still keep state consistent.
		e.logger.Warn("start lock unavailable, continuing", map[string]interface{}{
			"communityId": communityID,
			"error":       err,
		})
	} else if !acquired {
		e.logger.Info("duplicate start trigger absorbed", map[string]interface{}{
			"communityId": communityID,
			"applicantId": applicantID,
		})
		e.obs.RecordEvent(ctx, "interview.start", "duplicate")
		return nil
	}

	cfg, err := e.communities.Get(ctx, communityID)
	if err == store.ErrNotFound {
		cfg = &models.CommunityConfig{CommunityID: communityID}
	} else if err != nil {
		return fmt.Errorf("load community config: %w", err)
	}

	expired, err := e.apps.ExpireActive(ctx, communityID, applicantID, supersededNote)
	if err != nil {
		return apperrors.NewDatabaseWriteFailedError(err)
	}
	if expired > 0 {
		metrics.InterviewsSuperseded.Add(float64(expired))
		e.logger.Info("superseded prior attempts", map[string]interface{}{
			"applicantId": applicantID,
			"count":       expired,
		})
	}

	app := &models.Application{
		ID:                   uuid.New().String(),
		CommunityID:          communityID,
		ApplicantID:          applicantID,
		ApplicantDisplayName: displayName,
		Status:               models.StatusInProgress,
		CurrentStep:          0,
		Answers:              models.Answers{},
		CreatedAt:            time.Now().UTC(),
	}
	if err := e.apps.Create(ctx, app); err != nil {
		return apperrors.NewDatabaseWriteFailedError(err)
	}

	ref, err := e.opener.Open(ctx, cfg, applicantID, displayName)
	if err != nil {
		// The record stays IN_PROGRESS; the next start supersedes it.
		e.obs.RecordEvent(ctx, "interview.start", "surface_unavailable")
		return err
	}
	if err := e.apps.BindConversation(ctx, app.ID, ref); err != nil {
		return apperrors.NewDatabaseWriteFailedError(err)
	}

	greeting := fmt.Sprintf("Welcome %s! Answer each question in a single message. You can restart at any time from the panel.", displayName)
	if _, err := e.messenger.SendMessage(ctx, ref.ChannelID, greeting); err != nil {
		e.logger.Warn("failed to send greeting", map[string]interface{}{"error": err})
	}
	if err := e.sendQuestion(ctx, ref.ChannelID, 0); err != nil {
		return err
	}

	metrics.InterviewsStarted.Inc()
	e.obs.RecordEvent(ctx, "interview.start", "success")
	e.logger.Info("interview started", map[string]interface{}{
		"applicationId": app.ID,
		"communityId":   communityID,
		"applicantId":   applicantID,
		"surface":       string(ref.Kind),
	})
	return nil
}

// SubmitAnswer handles one inbound message on an interview surface. Messages
// that do not belong to an active attempt's bound surface are ignored
// without error.
func (e *Engine) SubmitAnswer(ctx context.Context, ev chat.MessageEvent) error {
	if ev.FromBot {
		return nil
	}

	app, err := e.findAttempt(ctx, ev)
	if err == store.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("locate active attempt: %w", err)
	}
	if app.Status != models.StatusInProgress {
		return nil
	}
	if app.Conversation == nil || app.Conversation.ChannelID != ev.ChannelID {
		// Message on some other channel. Not part of this interview.
		return nil
	}

	step := app.CurrentStep
	q, ok := e.catalog.At(step)
	if !ok {
		e.logger.Error("attempt step beyond catalog", map[string]interface{}{
			"applicationId": app.ID,
			"step":          step,
		})
		return nil
	}

	answer, reason := e.catalog.Check(step, ev.Content)
	if reason != "" {
		metrics.AnswersRejected.WithLabelValues(q.Key).Inc()
		e.obs.RecordEvent(ctx, "interview.answer", "rejected")
		if _, err := e.messenger.SendMessage(ctx, ev.ChannelID, reason+" Please try again."); err != nil {
			e.logger.Warn("failed to send validation feedback", map[string]interface{}{"error": err})
		}
		return nil
	}

	playerID := ""
	if q.Key == catalog.PlayerIDKey {
		playerID = answer
	}
	complete := step == e.catalog.Len()-1

	err = e.apps.AppendAnswer(ctx, app.ID, step, q.Key, answer, playerID, complete)
	if err == store.ErrStaleStep {
		// Duplicate or concurrent delivery lost the guard. First write won.
		e.obs.RecordEvent(ctx, "interview.answer", "stale")
		return nil
	}
	if err != nil {
		return apperrors.NewDatabaseWriteFailedError(err)
	}

	metrics.AnswersAccepted.Inc()
	e.obs.RecordEvent(ctx, "interview.answer", "accepted")

	if !complete {
		return e.sendQuestion(ctx, ev.ChannelID, step+1)
	}

	metrics.ApplicationsSubmitted.Inc()

	// Winning the guarded update above means this delivery, and only this
	// delivery, dispatches the review. The applicant is only told the
	// application is with staff once that is actually true; a dispatch
	// failure is reported into the same surface.
	if err := e.dispatcher.Dispatch(ctx, app.ID); err != nil {
		e.logger.Error("review dispatch failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err,
		})
		if _, serr := e.messenger.SendMessage(ctx, ev.ChannelID,
			"That was the last question, but your application could not be handed to staff review. Staff have been alerted; please contact them directly if you do not hear back."); serr != nil {
			e.logger.Warn("failed to send dispatch failure notice", map[string]interface{}{"error": serr})
		}
		return err
	}

	if _, err := e.messenger.SendMessage(ctx, ev.ChannelID,
		"That was the last question. Your application has been submitted for review; you will hear back here."); err != nil {
		e.logger.Warn("failed to send completion message", map[string]interface{}{"error": err})
	}
	return nil
}

func (e *Engine) findAttempt(ctx context.Context, ev chat.MessageEvent) (*models.Application, error) {
	if ev.CommunityID != "" {
		return e.apps.FindActive(ctx, ev.CommunityID, ev.UserID)
	}
	// DM surfaces carry no community; resolve through the bound channel.
	return e.apps.FindByConversation(ctx, ev.ChannelID, ev.UserID)
}

func (e *Engine) sendQuestion(ctx context.Context, channelID string, step int) error {
	q, ok := e.catalog.At(step)
	if !ok {
		return nil
	}
	content := fmt.Sprintf("**Question %d of %d**\n%s", step+1, e.catalog.Len(), q.Prompt)
	if _, err := e.messenger.SendMessage(ctx, channelID, content); err != nil {
		return fmt.Errorf("send question %d: %w", step, err)
	}
	return nil
}

// SweepStale expires IN_PROGRESS attempts idle past the TTL. Runs on a
// ticker from main.
func (e *Engine) SweepStale(ctx context.Context, ttl time.Duration) {
	n, err := e.apps.ExpireStale(ctx, time.Now().Add(-ttl), "abandoned")
	if err != nil {
		e.logger.Error("stale sweep failed", map[string]interface{}{"error": err})
		return
	}
	if n > 0 {
		e.logger.Info("expired abandoned attempts", map[string]interface{}{"count": n})
	}
}
