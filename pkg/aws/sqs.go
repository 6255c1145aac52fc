package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// SQSAPI is the subset of the SQS client the consumer needs.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// MessageHandler processes one SQS message body. A returned error leaves the
// message on the queue; it becomes visible again after the visibility timeout.
type MessageHandler func(ctx context.Context, body string) error

// SQSConsumer long-polls a single queue.
type SQSConsumer struct {
	client            SQSAPI
	queueURL          string
	logger            *zap.Logger
	visibilityTimeout int32
	waitTime          int32
	errorBackoff      time.Duration
}

// NewSQSConsumer creates a consumer for queueURL.
func NewSQSConsumer(cfg sdkaws.Config, queueURL string, logger *zap.Logger) *SQSConsumer {
	return NewSQSConsumerWithClient(sqs.NewFromConfig(cfg), queueURL, logger)
}

// NewSQSConsumerWithClient creates a consumer around an existing client.
func NewSQSConsumerWithClient(client SQSAPI, queueURL string, logger *zap.Logger) *SQSConsumer {
	return &SQSConsumer{
		client:            client,
		queueURL:          queueURL,
		logger:            logger,
		visibilityTimeout: 60,
		waitTime:          20,
		errorBackoff:      5 * time.Second,
	}
}

// StartPolling receives and dispatches messages until ctx is cancelled.
func (c *SQSConsumer) StartPolling(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("starting SQS polling", zap.String("queue_url", c.queueURL))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("SQS polling stopped", zap.String("queue_url", c.queueURL))
			return ctx.Err()
		default:
		}

		if err := c.PollOnce(ctx, handler); err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			c.logger.Error("SQS receive failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(c.errorBackoff):
			}
		}
	}
}

// PollOnce performs a single receive and handles every returned message.
// Messages are deleted only after the handler succeeds.
func (c *SQSConsumer) PollOnce(ctx context.Context, handler MessageHandler) error {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &c.queueURL,
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     c.waitTime,
		VisibilityTimeout:   c.visibilityTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, msg := range result.Messages {
		if msg.Body == nil {
			continue
		}
		msgID := sdkaws.ToString(msg.MessageId)

		if err := handler(ctx, *msg.Body); err != nil {
			c.logger.Warn("message handling failed, leaving for redelivery",
				zap.String("message_id", msgID),
				zap.Error(err),
			)
			continue
		}

		if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      &c.queueURL,
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			c.logger.Error("failed to delete message",
				zap.String("message_id", msgID),
				zap.Error(err),
			)
		}
	}

	return nil
}
