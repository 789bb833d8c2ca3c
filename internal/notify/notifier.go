// internal/notify/notifier.go
// Package notify delivers outcome messages to applicants. Delivery is best
// effort: closed DMs or a departed member never block the decision.
package notify

import (
	"context"
	"fmt"

	"gatekeeper/internal/chat"
	"gatekeeper/internal/common/logger"
	"gatekeeper/internal/common/metrics"
	"gatekeeper/internal/models"
)

type Notifier struct {
	dms       chat.DirectMessenger
	messenger chat.Messenger
	logger    logger.Logger
}

func NewNotifier(dms chat.DirectMessenger, messenger chat.Messenger, log logger.Logger) *Notifier {
	return &Notifier{
		dms:       dms,
		messenger: messenger,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// Outcome tells the applicant how their application was decided. Returns
// nothing: failures are counted and logged, never propagated.
func (n *Notifier) Outcome(ctx context.Context, app *models.Application) {
	content := outcomeMessage(app)
	if content == "" {
		return
	}

	channelID, err := n.dms.OpenDM(ctx, app.ApplicantID)
	if err == nil {
		_, err = n.messenger.SendMessage(ctx, channelID, content)
	}
	if err != nil {
		metrics.NotifyFailures.Inc()
		n.logger.Warn("failed to notify applicant", map[string]interface{}{
			"applicationId": app.ID,
			"applicantId":   app.ApplicantID,
			"error":         err,
		})
	}
}

func outcomeMessage(app *models.Application) string {
	switch app.Status {
	case models.StatusApproved:
		return "Your whitelist application has been approved. Welcome in!"
	case models.StatusRejected:
		if app.DecisionNote != "" {
			return fmt.Sprintf("Your whitelist application has been rejected.\nReason: %s", app.DecisionNote)
		}
		return "Your whitelist application has been rejected."
	case models.StatusAdjust:
		msg := "Your whitelist application needs adjustments before it can be accepted. Start a new application from the panel when you are ready."
		if app.DecisionNote != "" {
			msg += fmt.Sprintf("\nRequested changes: %s", app.DecisionNote)
		}
		return msg
	default:
		return ""
	}
}
