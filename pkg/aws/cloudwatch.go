package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

const (
	logBatchSize     = 100
	logFlushInterval = 2 * time.Second
)

// LogsAPI is the subset of the CloudWatch Logs client used here.
type LogsAPI interface {
	CreateLogGroup(ctx context.Context, in *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	PutRetentionPolicy(ctx context.Context, in *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error)
	CreateLogStream(ctx context.Context, in *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, in *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// CloudWatchLogsClient buffers log lines and ships them to one CloudWatch
// Logs stream in batches. It is an io.Writer so zap can tee into it.
type CloudWatchLogsClient struct {
	api    LogsAPI
	group  string
	stream string

	mu      sync.Mutex
	pending []types.InputLogEvent

	flushNow chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once
}

// NewCloudWatchLogsClient creates the log group if missing and a fresh
// stream named after serviceName, then starts the background flusher.
func NewCloudWatchLogsClient(ctx context.Context, cfg sdkaws.Config, logGroupName, serviceName string) (*CloudWatchLogsClient, error) {
	return NewCloudWatchLogsClientWithAPI(ctx, cloudwatchlogs.NewFromConfig(cfg), logGroupName, serviceName, logFlushInterval)
}

func NewCloudWatchLogsClientWithAPI(ctx context.Context, api LogsAPI, logGroupName, serviceName string, flushEvery time.Duration) (*CloudWatchLogsClient, error) {
	if logGroupName == "" {
		logGroupName = "/order-ingestion/services"
	}
	c := &CloudWatchLogsClient{
		api:      api,
		group:    logGroupName,
		stream:   fmt.Sprintf("%s-%d", serviceName, time.Now().Unix()),
		flushNow: make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	_, err := api.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: sdkaws.String(c.group)})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return nil, fmt.Errorf("create log group %s: %w", c.group, err)
	}
	if _, err := api.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    sdkaws.String(c.group),
		RetentionInDays: sdkaws.Int32(30),
	}); err != nil {
		return nil, fmt.Errorf("set retention on %s: %w", c.group, err)
	}
	if _, err := api.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  sdkaws.String(c.group),
		LogStreamName: sdkaws.String(c.stream),
	}); err != nil {
		return nil, fmt.Errorf("create log stream %s: %w", c.stream, err)
	}

	go c.run(flushEvery)
	return c, nil
}

// Write queues one log line. It never fails; shipping errors go to stderr.
func (c *CloudWatchLogsClient) Write(p []byte) (int, error) {
	event := types.InputLogEvent{
		Message:   sdkaws.String(string(p)),
		Timestamp: sdkaws.Int64(time.Now().UnixMilli()),
	}

	c.mu.Lock()
	c.pending = append(c.pending, event)
	full := len(c.pending) >= logBatchSize
	c.mu.Unlock()

	if full {
		select {
		case c.flushNow <- struct{}{}:
		default:
		}
	}
	return len(p), nil
}

// Close flushes what is buffered and stops the background flusher.
func (c *CloudWatchLogsClient) Close() error {
	c.once.Do(func() { close(c.done) })
	<-c.stopped
	return nil
}

func (c *CloudWatchLogsClient) run(every time.Duration) {
	defer close(c.stopped)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.flushNow:
			c.flush()
		case <-c.done:
			c.flush()
			return
		}
	}
}

func (c *CloudWatchLogsClient) flush() {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	for len(batch) > 0 {
		n := min(len(batch), logBatchSize)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := c.api.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  sdkaws.String(c.group),
			LogStreamName: sdkaws.String(c.stream),
			LogEvents:     batch[:n],
		})
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "CloudWatch write error: %v\n", err)
		}
		batch = batch[n:]
	}
}
