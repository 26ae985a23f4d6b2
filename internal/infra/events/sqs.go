package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"hsecore/pkg/domain"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends one queue message per movement.
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
}

// NewSQSPublisher loads the default AWS configuration and targets queueURL.
// region overrides the configured region when non-empty.
func NewSQSPublisher(ctx context.Context, queueURL, region string) (*SQSPublisher, error) {
	if queueURL == "" {
		return nil, errors.New("sqs publisher requires a queue url")
	}
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newSQSPublisher(sqs.NewFromConfig(cfg), queueURL), nil
}

func newSQSPublisher(client sqsAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

// PublishStockMovements implements Publisher. Sending stops at the first failure.
func (p *SQSPublisher) PublishStockMovements(ctx context.Context, movements []domain.StockMovement) error {
	for _, m := range movements {
		payload, err := encode(m)
		if err != nil {
			return err
		}
		_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(p.queueURL),
			MessageBody: aws.String(string(payload)),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"medicine_id": {DataType: aws.String("String"), StringValue: aws.String(m.MedicineID)},
				"reason":      {DataType: aws.String("String"), StringValue: aws.String(string(m.Reason))},
			},
		})
		if err != nil {
			return fmt.Errorf("sqs send for medicine %s: %w", m.MedicineID, err)
		}
	}
	return nil
}

// Close implements Publisher.
func (p *SQSPublisher) Close() error { return nil }
