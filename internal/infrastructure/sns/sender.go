package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-steps-nosql/internal/config"
	"github.com/go-steps-nosql/internal/domain"
	"github.com/go-steps-nosql/internal/infrastructure/awsx"
	"github.com/go-steps-nosql/internal/pkg/id"
)

const eventStepsSubmitted = "steps.submitted"

type publishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher announces accepted submissions on an SNS topic.
type Publisher struct {
	client   publishAPI
	topicARN string
}

type submissionEvent struct {
	EventID string        `json:"event_id"`
	Type    string        `json:"type"`
	Entry   *domain.Entry `json:"entry"`
}

// NewClient creates an SNS client honouring the LocalStack endpoint override.
func NewClient(ctx context.Context, cfg *config.Config) (*sns.Client, error) {
	awsCfg, err := awsx.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	endpoint := awsx.Endpoint(cfg)
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	}), nil
}

func NewPublisher(client publishAPI, topicARN string) *Publisher {
	return &Publisher{client: client, topicARN: topicARN}
}

func (p *Publisher) PublishSubmission(ctx context.Context, e *domain.Entry) error {
	body, err := json.Marshal(submissionEvent{EventID: id.New(), Type: eventStepsSubmitted, Entry: e})
	if err != nil {
		return fmt.Errorf("marshal submission event: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(eventStepsSubmitted)},
			"user_id":    {DataType: aws.String("String"), StringValue: aws.String(e.UserID)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
