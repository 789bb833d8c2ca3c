// internal/alerts/alerts.go
// Package alerts raises operator notifications for configuration failures
// that block the review pipeline, e.g. a submitted application with no staff
// queue bound. Delivery is best effort.
package alerts

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"gatekeeper/internal/common/config"
	"gatekeeper/internal/common/logger"
)

// SESAPI sends email alerts.
type SESAPI interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SNSAPI publishes topic alerts.
type SNSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Alerter delivers an operator alert.
type Alerter interface {
	Alert(ctx context.Context, subject, body string)
}

// OpsAlerter fans an alert out to every configured channel. Failures are
// logged and swallowed; an alert must never take the pipeline down with it.
type OpsAlerter struct {
	cfg    config.AlertsConfig
	ses    SESAPI
	sns    SNSAPI
	logger logger.Logger
}

func NewOpsAlerter(cfg config.AlertsConfig, sesClient SESAPI, snsClient SNSAPI, log logger.Logger) *OpsAlerter {
	return &OpsAlerter{
		cfg:    cfg,
		ses:    sesClient,
		sns:    snsClient,
		logger: log.WithFields(map[string]interface{}{"component": "alerts"}),
	}
}

func (a *OpsAlerter) Alert(ctx context.Context, subject, body string) {
	if a.cfg.Email.Enabled && a.ses != nil {
		a.sendEmail(ctx, subject, body)
	}
	if a.cfg.SNS.Enabled && a.sns != nil {
		a.publish(ctx, subject, body)
	}
}

func (a *OpsAlerter) sendEmail(ctx context.Context, subject, body string) {
	_, err := a.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(a.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{a.cfg.Email.ToEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		a.logger.Error("failed to send alert email", map[string]interface{}{
			"subject": subject,
			"error":   err,
		})
	}
}

func (a *OpsAlerter) publish(ctx context.Context, subject, body string) {
	_, err := a.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.cfg.SNS.TopicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(fmt.Sprintf("%s\n\n%s", subject, body)),
	})
	if err != nil {
		a.logger.Error("failed to publish alert", map[string]interface{}{
			"subject": subject,
			"error":   err,
		})
	}
}

// NoopAlerter discards alerts. Used when no alert channel is configured.
type NoopAlerter struct{}

func (NoopAlerter) Alert(context.Context, string, string) {}
