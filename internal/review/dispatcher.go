// internal/review/dispatcher.go
// Package review posts submitted applications to the community's staff queue
// for a decision.
package review

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"gatekeeper/internal/alerts"
	"gatekeeper/internal/catalog"
	"gatekeeper/internal/chat"
	apperrors "gatekeeper/internal/common/errors"
	"gatekeeper/internal/common/logger"
	"gatekeeper/internal/models"
	"gatekeeper/internal/store"
)

// Platform cards cap field values.
const maxFieldLen = 1024

type Dispatcher struct {
	apps        store.ApplicationStore
	communities store.CommunityStore
	catalog     *catalog.Catalog
	messenger   chat.Messenger
	alerter     alerts.Alerter
	logger      logger.Logger
}

func NewDispatcher(
	apps store.ApplicationStore,
	communities store.CommunityStore,
	cat *catalog.Catalog,
	messenger chat.Messenger,
	alerter alerts.Alerter,
	log logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		apps:        apps,
		communities: communities,
		catalog:     cat,
		messenger:   messenger,
		alerter:     alerter,
		logger:      log.WithFields(map[string]interface{}{"component": "review"}),
	}
}

// Dispatch posts the staff review card for a SUBMITTED application and
// records where it landed. A community without a staff queue is a
// configuration error: the caller gets it loudly and operators get an alert.
func (d *Dispatcher) Dispatch(ctx context.Context, applicationID string) error {
	app, err := d.apps.Get(ctx, applicationID)
	if err == store.ErrNotFound {
		return apperrors.NewApplicationMissingError(applicationID)
	}
	if err != nil {
		return fmt.Errorf("load application: %w", err)
	}
	if app.Status != models.StatusSubmitted {
		// Stale dispatch, the record moved on.
		return nil
	}

	cfg, err := d.communities.Get(ctx, app.CommunityID)
	if err != nil && err != store.ErrNotFound {
		return fmt.Errorf("load community config: %w", err)
	}
	if cfg == nil || cfg.StaffChannelID == "" {
		d.alerter.Alert(ctx, "whitelist review queue not configured",
			fmt.Sprintf("Application %s for community %s is submitted but no staff channel is bound. Bind one with the setup command.", app.ID, app.CommunityID))
		return apperrors.NewStaffQueueMissingError(app.CommunityID)
	}

	card := d.renderCard(app)
	controls := []chat.Control{
		{CustomID: "wl:decision:approve:" + app.ID, Label: "Approve", Style: chat.StyleSuccess},
		{CustomID: "wl:decision:reject:" + app.ID, Label: "Reject", Style: chat.StyleDanger},
		{CustomID: "wl:decision:adjust:" + app.ID, Label: "Request adjustment", Style: chat.StyleSecondary},
	}

	content := fmt.Sprintf("New whitelist application from <@%s>", app.ApplicantID)
	ref, err := d.messenger.SendCard(ctx, cfg.StaffChannelID, content, card, controls)
	if err != nil {
		return fmt.Errorf("post review card: %w", err)
	}

	if err := d.apps.SetReviewCard(ctx, app.ID, ref.ChannelID, ref.MessageID); err != nil {
		return apperrors.NewDatabaseWriteFailedError(err)
	}

	d.logger.Info("review card posted", map[string]interface{}{
		"applicationId": app.ID,
		"channelId":     ref.ChannelID,
	})
	return nil
}

func (d *Dispatcher) renderCard(app *models.Application) chat.Card {
	fields := []chat.CardField{
		{Name: "Applicant", Value: fmt.Sprintf("%s (<@%s>)", app.ApplicantDisplayName, app.ApplicantID)},
	}
	if app.PlayerID != "" {
		fields = append(fields, chat.CardField{Name: "Game account", Value: app.PlayerID})
	}
	for _, q := range d.catalog.Questions() {
		value, ok := app.Answers.Get(q.Key)
		if !ok {
			continue
		}
		fields = append(fields, chat.CardField{
			Name:  fieldTitle(q),
			Value: truncate(value, maxFieldLen),
		})
	}
	return chat.Card{
		Title:  fmt.Sprintf("Whitelist application: %s", app.ApplicantDisplayName),
		Fields: fields,
		Footer: app.ID,
	}
}

// fieldTitle is the first line of the prompt, the part that reads as a
// heading.
func fieldTitle(q catalog.Question) string {
	if i := strings.IndexByte(q.Prompt, '\n'); i > 0 {
		return q.Prompt[:i]
	}
	return q.Prompt
}

// truncate shortens free text to fit a card field, cutting on a rune
// boundary so multi-byte answers stay valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
