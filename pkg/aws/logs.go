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

// DefaultLogGroup receives the storefront's logs.
const DefaultLogGroup = "/storefront/services"

// LogWriter ships each written log line to a CloudWatch Logs stream. It is
// meant to back a zap core, one JSON entry per Write.
type LogWriter struct {
	client *cloudwatchlogs.Client
	group  string
	stream string

	mu sync.Mutex
}

// NewLogWriter ensures the log group exists and opens a fresh stream named
// after serviceName.
func NewLogWriter(ctx context.Context, cfg sdkaws.Config, group, serviceName string) (*LogWriter, error) {
	if group == "" {
		group = DefaultLogGroup
	}
	w := &LogWriter{
		client: cloudwatchlogs.NewFromConfig(cfg),
		group:  group,
		stream: fmt.Sprintf("%s-%d", serviceName, time.Now().Unix()),
	}

	_, err := w.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: sdkaws.String(group)})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return nil, fmt.Errorf("create log group %s: %w", group, err)
	}
	if _, err := w.client.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    sdkaws.String(group),
		RetentionInDays: sdkaws.Int32(30),
	}); err != nil {
		return nil, fmt.Errorf("set retention on %s: %w", group, err)
	}
	if _, err := w.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  sdkaws.String(group),
		LogStreamName: sdkaws.String(w.stream),
	}); err != nil {
		return nil, fmt.Errorf("create log stream %s: %w", w.stream, err)
	}
	return w, nil
}

// Write implements io.Writer. Delivery failures go to stderr and never fail
// the log call.
func (w *LogWriter) Write(p []byte) (int, error) {
	event := types.InputLogEvent{
		Message:   sdkaws.String(string(p)),
		Timestamp: sdkaws.Int64(time.Now().UnixMilli()),
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := w.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  sdkaws.String(w.group),
		LogStreamName: sdkaws.String(w.stream),
		LogEvents:     []types.InputLogEvent{event},
	}); err != nil {
		fmt.Fprintf(os.Stderr, "cloudwatch logs write: %v\n", err)
	}
	return len(p), nil
}
