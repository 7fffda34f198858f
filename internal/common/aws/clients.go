// internal/common/aws/clients.go
package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

const (
	defaultCallTimeout = 10 * time.Second
	maxAttempts        = 3
)

// LoadConfig resolves credentials from the default chain for region.
func LoadConfig(ctx context.Context, region string) (sdkaws.Config, error) {
	if region == "" {
		return sdkaws.Config{}, fmt.Errorf("aws region is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithRetryMaxAttempts(maxAttempts),
	)
	if err != nil {
		return sdkaws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes escalation notices to a topic.
type SNSClient struct {
	client  SNSAPI
	timeout time.Duration
}

func NewSNSClient(cfg sdkaws.Config) *SNSClient {
	return NewSNSClientWithAPI(sns.NewFromConfig(cfg))
}

// NewSNSClientWithAPI is used by tests to inject a fake.
func NewSNSClientWithAPI(api SNSAPI) *SNSClient {
	return &SNSClient{client: api, timeout: defaultCallTimeout}
}

func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Publish(ctx, input)
}

// SESAPI is the subset of the SES client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESClient mails escalation notices to the shop's support inbox.
type SESClient struct {
	client  SESAPI
	timeout time.Duration
}

func NewSESClient(cfg sdkaws.Config) *SESClient {
	return NewSESClientWithAPI(ses.NewFromConfig(cfg))
}

// NewSESClientWithAPI is used by tests to inject a fake.
func NewSESClientWithAPI(api SESAPI) *SESClient {
	return &SESClient{client: api, timeout: defaultCallTimeout}
}

func (s *SESClient) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.SendEmail(ctx, input)
}
