// internal/assistant/escalation/notifier.go

// Package escalation delivers human-handoff notices to shop staff over SNS and SES.
package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"widget-assistant/internal/assistant/orchestrator"
	awsclient "widget-assistant/internal/common/aws"
	"widget-assistant/internal/common/config"
	"widget-assistant/internal/common/errors"
	"widget-assistant/internal/common/logger"
	"widget-assistant/internal/common/metrics"
	"widget-assistant/internal/common/validation"
)

const (
	ChannelSNS   = "sns"
	ChannelEmail = "email"
)

// Publisher is the SNS surface the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Mailer is the SES surface the notifier needs.
type Mailer interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// Notifier implements orchestrator.Escalator.
type Notifier struct {
	config    config.NotificationConfig
	publisher Publisher
	mailer    Mailer
	logger    logger.Logger
}

var _ orchestrator.Escalator = (*Notifier)(nil)

// NewNotifier builds AWS clients for every configured channel.
func NewNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	if cfg.TopicARN == "" && (cfg.FromEmail == "" || cfg.ToEmail == "") {
		return nil, fmt.Errorf("no escalation channel configured")
	}
	awsCfg, err := awsclient.LoadConfig(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}

	var (
		pub  Publisher
		mail Mailer
	)
	if cfg.TopicARN != "" {
		pub = awsclient.NewSNSClient(awsCfg)
	}
	if cfg.FromEmail != "" && cfg.ToEmail != "" {
		mail = awsclient.NewSESClient(awsCfg)
	}
	return NewNotifierWithClients(cfg, pub, mail, log)
}

// NewNotifierWithClients wires prepared clients. A nil client disables its channel.
func NewNotifierWithClients(cfg config.NotificationConfig, pub Publisher, mail Mailer, log logger.Logger) (*Notifier, error) {
	if pub == nil && mail == nil {
		return nil, fmt.Errorf("no escalation channel configured")
	}
	return &Notifier{
		config:    cfg,
		publisher: pub,
		mailer:    mail,
		logger:    log.With(map[string]interface{}{"component": "escalation"}),
	}, nil
}

// Escalate tries every channel and returns the first failure.
func (n *Notifier) Escalate(ctx context.Context, notice orchestrator.EscalationNotice) error {
	var first error
	if n.publisher != nil {
		if err := n.publish(ctx, notice); err != nil {
			first = err
		}
	}
	if n.mailer != nil {
		if err := n.mail(ctx, notice); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (n *Notifier) publish(ctx context.Context, notice orchestrator.EscalationNotice) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return n.failed(ChannelSNS, notice, err)
	}
	_, err = n.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.config.TopicARN),
		Subject:  aws.String(subject(notice)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"reason": {DataType: aws.String("String"), StringValue: aws.String(notice.Reason)},
		},
	})
	if err != nil {
		return n.failed(ChannelSNS, notice, err)
	}
	n.delivered(ChannelSNS, notice)
	return nil
}

func (n *Notifier) mail(ctx context.Context, notice orchestrator.EscalationNotice) error {
	body := emailBody(notice)
	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{n.config.ToEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject(notice))},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.FromEmail),
	}
	if validation.ValidateEmail(notice.Email) {
		input.ReplyToAddresses = []string{notice.Email}
	}
	if _, err := n.mailer.SendEmail(ctx, input); err != nil {
		return n.failed(ChannelEmail, notice, err)
	}
	n.delivered(ChannelEmail, notice)
	return nil
}

func (n *Notifier) delivered(channel string, notice orchestrator.EscalationNotice) {
	metrics.EscalationsPublished.WithLabelValues(channel, "success").Inc()
	n.logger.Info("escalation notice sent", map[string]interface{}{
		"channel":        channel,
		"conversationId": notice.ConversationID,
		"userId":         notice.UserID,
	})
}

func (n *Notifier) failed(channel string, notice orchestrator.EscalationNotice, err error) error {
	metrics.EscalationsPublished.WithLabelValues(channel, "failure").Inc()
	n.logger.Warn("escalation notice failed", map[string]interface{}{
		"channel":        channel,
		"conversationId": notice.ConversationID,
		"error":          err.Error(),
	})
	return errors.NewEscalationPublishFailedError(channel, err)
}

// SNS subjects are limited to 100 characters.
func subject(notice orchestrator.EscalationNotice) string {
	s := fmt.Sprintf("[%s] %s: conversation %s", notice.UserID, notice.Reason, notice.ConversationID)
	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}
	return s
}

func emailBody(notice orchestrator.EscalationNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shop: %s\n", notice.UserID)
	fmt.Fprintf(&b, "Conversation: %s\n", notice.ConversationID)
	fmt.Fprintf(&b, "Reason: %s\n", notice.Reason)
	fmt.Fprintf(&b, "Language: %s\n", notice.Language)
	if notice.OrderNumber != "" {
		fmt.Fprintf(&b, "Order number: %s\n", notice.OrderNumber)
	}
	if notice.Email != "" {
		fmt.Fprintf(&b, "Customer email: %s\n", notice.Email)
	}
	fmt.Fprintf(&b, "Created: %s\n\n", notice.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Message:\n%s\n", notice.Query)
	if len(notice.RecentQueries) > 0 {
		b.WriteString("\nEarlier messages:\n")
		for _, q := range notice.RecentQueries {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	return b.String()
}
