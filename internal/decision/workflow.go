// internal/decision/workflow.go
// Package decision applies staff verdicts to submitted applications: the
// single terminal transition plus its side effects (roles, applicant DM,
// card edit, surface close, reject log, search index).
package decision

import (
	"context"
	"fmt"
	"strings"

	"gatekeeper/internal/audit"
	"gatekeeper/internal/chat"
	apperrors "gatekeeper/internal/common/errors"
	"gatekeeper/internal/common/logger"
	"gatekeeper/internal/common/metrics"
	"gatekeeper/internal/conversation"
	"gatekeeper/internal/models"
	"gatekeeper/internal/notify"
	"gatekeeper/internal/store"
)

// Action is a staff verdict.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionAdjust  Action = "adjust"
)

func (a Action) status() (models.Status, bool) {
	switch a {
	case ActionApprove:
		return models.StatusApproved, true
	case ActionReject:
		return models.StatusRejected, true
	case ActionAdjust:
		return models.StatusAdjust, true
	}
	return "", false
}

// Workflow handles the two-step decision flow. Approve applies immediately.
// Reject and adjust first open a note prompt; the note submission carries
// the action and application ID in its customID, so nothing interim is
// persisted.
type Workflow struct {
	apps        store.ApplicationStore
	communities store.CommunityStore
	messenger   chat.Messenger
	roles       chat.RoleManager
	responder   chat.Responder
	opener      *conversation.Opener
	notifier    *notify.Notifier
	indexer     *audit.Indexer
	logger      logger.Logger
}

func NewWorkflow(
	apps store.ApplicationStore,
	communities store.CommunityStore,
	messenger chat.Messenger,
	roles chat.RoleManager,
	responder chat.Responder,
	opener *conversation.Opener,
	notifier *notify.Notifier,
	indexer *audit.Indexer,
	log logger.Logger,
) *Workflow {
	return &Workflow{
		apps:        apps,
		communities: communities,
		messenger:   messenger,
		roles:       roles,
		responder:   responder,
		opener:      opener,
		notifier:    notifier,
		indexer:     indexer,
		logger:      log.WithFields(map[string]interface{}{"component": "decision"}),
	}
}

// HandleButton handles a press on one of the review card controls. Approve
// decides immediately; reject and adjust open the note prompt.
func (w *Workflow) HandleButton(ctx context.Context, action Action, applicationID string, ev chat.InteractionEvent) error {
	switch action {
	case ActionApprove:
		return w.apply(ctx, ActionApprove, applicationID, "", ev)
	case ActionReject:
		return w.responder.PromptNote(ctx, ev.InteractionID, chat.NotePrompt{
			CustomID:  "wl:reject_reason:" + applicationID,
			Title:     "Reject application",
			Label:     "Reason (sent to the applicant)",
			MaxLength: 500,
		})
	case ActionAdjust:
		return w.responder.PromptNote(ctx, ev.InteractionID, chat.NotePrompt{
			CustomID:  "wl:adjust_note:" + applicationID,
			Title:     "Request adjustments",
			Label:     "What should the applicant change?",
			MaxLength: 500,
		})
	}
	return fmt.Errorf("unknown decision action %q", action)
}

// HandleNote completes a reject or adjust with the submitted note.
func (w *Workflow) HandleNote(ctx context.Context, action Action, applicationID string, ev chat.InteractionEvent) error {
	note := strings.TrimSpace(ev.Values["note"])
	if note == "" {
		if err := w.responder.Reply(ctx, ev.InteractionID, "A note is required for this action."); err != nil {
			w.logger.Warn("failed to send note-required reply", map[string]interface{}{"error": err})
		}
		return apperrors.NewNoteRequiredError(string(action))
	}
	return w.apply(ctx, action, applicationID, note, ev)
}

func (w *Workflow) apply(ctx context.Context, action Action, applicationID, note string, ev chat.InteractionEvent) error {
	status, ok := action.status()
	if !ok {
		return fmt.Errorf("unknown decision action %q", action)
	}

	by := models.DecidedBy{ID: ev.UserID, DisplayName: ev.UserDisplay}
	err := w.apps.Decide(ctx, applicationID, status, by, note)
	if err == store.ErrAlreadyDecided {
		metrics.StaleDecisions.Inc()
		if rerr := w.responder.Reply(ctx, ev.InteractionID, "This application has already been decided."); rerr != nil {
			w.logger.Warn("failed to send already-decided reply", map[string]interface{}{"error": rerr})
		}
		return nil
	}
	if err == store.ErrNotFound {
		return apperrors.NewApplicationMissingError(applicationID)
	}
	if err != nil {
		return apperrors.NewDatabaseWriteFailedError(err)
	}

	metrics.DecisionsTotal.WithLabelValues(string(action)).Inc()

	// The transition is durable. Everything below is side effects: each one
	// best effort and independent of the others.
	app, err := w.apps.Get(ctx, applicationID)
	if err != nil {
		w.logger.Error("decided application unreadable for side effects", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err,
		})
		return nil
	}

	cfg, err := w.communities.Get(ctx, app.CommunityID)
	if err != nil {
		cfg = &models.CommunityConfig{CommunityID: app.CommunityID}
	}

	w.applyRoles(ctx, app, cfg)
	w.notifier.Outcome(ctx, app)
	w.editCard(ctx, app, ev)
	w.opener.Close(ctx, app.Conversation, "application decided")
	if app.Status == models.StatusRejected {
		w.logRejection(ctx, app, cfg)
	}
	w.indexer.IndexDecision(ctx, app)

	if err := w.responder.Reply(ctx, ev.InteractionID,
		fmt.Sprintf("Application %s: %s.", shortID(app.ID), pastTense(action))); err != nil {
		w.logger.Warn("failed to acknowledge decision", map[string]interface{}{"error": err})
	}

	w.logger.Info("application decided", map[string]interface{}{
		"applicationId": app.ID,
		"status":        string(app.Status),
		"decidedBy":     ev.UserID,
	})
	return nil
}

func (w *Workflow) applyRoles(ctx context.Context, app *models.Application, cfg *models.CommunityConfig) {
	revoke := func(roleID string) {
		if roleID == "" {
			return
		}
		if err := w.roles.RevokeRole(ctx, app.CommunityID, app.ApplicantID, roleID); err != nil {
			w.logger.Warn("failed to revoke role", map[string]interface{}{
				"roleId": roleID, "applicantId": app.ApplicantID, "error": err,
			})
		}
	}
	grant := func(roleID string) {
		if roleID == "" {
			return
		}
		if err := w.roles.GrantRole(ctx, app.CommunityID, app.ApplicantID, roleID); err != nil {
			w.logger.Warn("failed to grant role", map[string]interface{}{
				"roleId": roleID, "applicantId": app.ApplicantID, "error": err,
			})
		}
	}

	revoke(cfg.PendingRoleID)
	switch app.Status {
	case models.StatusApproved:
		grant(cfg.ApprovedRoleID)
		revoke(cfg.RejectedRoleID)
	case models.StatusRejected:
		grant(cfg.RejectedRoleID)
	}
}

// editCard rewrites the review card in place: outcome in the title, controls
// disabled so the verdict cannot be re-triggered from the message.
func (w *Workflow) editCard(ctx context.Context, app *models.Application, ev chat.InteractionEvent) {
	channelID, messageID := app.CardChannelID, app.CardMessageID
	if channelID == "" {
		channelID, messageID = ev.ChannelID, ev.MessageID
	}
	if channelID == "" || messageID == "" {
		return
	}

	card := chat.Card{
		Title: fmt.Sprintf("Whitelist application: %s [%s]", app.ApplicantDisplayName, app.Status),
		Fields: []chat.CardField{
			{Name: "Outcome", Value: decidedLine(app)},
		},
		Footer: app.ID,
	}
	if app.DecisionNote != "" {
		card.Fields = append(card.Fields, chat.CardField{Name: "Note", Value: app.DecisionNote})
	}

	controls := []chat.Control{
		{CustomID: "wl:decision:approve:" + app.ID, Label: "Approve", Style: chat.StyleSuccess, Disabled: true},
		{CustomID: "wl:decision:reject:" + app.ID, Label: "Reject", Style: chat.StyleDanger, Disabled: true},
		{CustomID: "wl:decision:adjust:" + app.ID, Label: "Request adjustment", Style: chat.StyleSecondary, Disabled: true},
	}

	ref := chat.MessageRef{ChannelID: channelID, MessageID: messageID}
	if err := w.messenger.EditCard(ctx, ref, card, controls); err != nil {
		w.logger.Warn("failed to edit review card", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err,
		})
	}
}

func (w *Workflow) logRejection(ctx context.Context, app *models.Application, cfg *models.CommunityConfig) {
	if cfg.RejectLogChannelID == "" {
		return
	}
	line := fmt.Sprintf("Rejected application from %s (<@%s>)", app.ApplicantDisplayName, app.ApplicantID)
	if app.DecisionNote != "" {
		line += "\nReason: " + app.DecisionNote
	}
	if app.DecidedBy != nil {
		line += "\nDecided by: " + app.DecidedBy.DisplayName
	}
	if _, err := w.messenger.SendMessage(ctx, cfg.RejectLogChannelID, line); err != nil {
		w.logger.Warn("failed to write reject log", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err,
		})
	}
}

func decidedLine(app *models.Application) string {
	who := "unknown"
	if app.DecidedBy != nil {
		who = app.DecidedBy.DisplayName
	}
	return fmt.Sprintf("%s by %s", strings.ToUpper(string(app.Status)), who)
}

func pastTense(a Action) string {
	switch a {
	case ActionApprove:
		return "approved"
	case ActionReject:
		return "rejected"
	default:
		return "sent back for adjustments"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
