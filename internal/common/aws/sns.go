// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"hr-query-engine/internal/query/engine"
)

// Publisher is the slice of the SNS API used for alerts.
type Publisher interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	client Publisher
}

func NewSNSClient(ctx context.Context, region string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(cfg)}, nil
}

func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	return s.client.Publish(ctx, input)
}

// AlertPublisher sends error-response alerts to an SNS topic.
type AlertPublisher struct {
	client   Publisher
	topicARN string
	service  string
}

func NewAlertPublisher(client Publisher, topicARN, service string) *AlertPublisher {
	return &AlertPublisher{client: client, topicARN: topicARN, service: service}
}

// NewAlertPublisherFromRegion loads AWS credentials for region and targets topicARN.
func NewAlertPublisherFromRegion(ctx context.Context, region, topicARN, service string) (*AlertPublisher, error) {
	c, err := NewSNSClient(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewAlertPublisher(c.client, topicARN, service), nil
}

func (p *AlertPublisher) PublishAlert(ctx context.Context, alert engine.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("[%s] query failed", p.service)
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"query_id": {DataType: aws.String("String"), StringValue: aws.String(alert.QueryID)},
		},
	})
	if err != nil {
		return fmt.Errorf("NOTIFICATION_SEND_FAILED: %w", err)
	}
	return nil
}
