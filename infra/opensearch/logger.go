package opensearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/vendorpay/vendorpay/infra/logger"
)

// Logger ships system events to OpenSearch. It implements logger.EventSink.
type Logger struct {
	client      *Client
	environment string
}

// NewLogger creates an event sink backed by the given client.
func NewLogger(client *Client, environment string) *Logger {
	return &Logger{
		client:      client,
		environment: environment,
	}
}

// eventDocument is the indexed shape of a system log entry.
type eventDocument struct {
	Timestamp   time.Time `json:"timestamp"`
	Level       string    `json:"level"`
	Message     string    `json:"message"`
	Component   string    `json:"component,omitempty"`
	PaymentID   string    `json:"payment_id,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	Environment string    `json:"environment"`
	Service     string    `json:"service"`
}

// LogSystemEvent indexes a single system log entry.
func (l *Logger) LogSystemEvent(ctx context.Context, entry logger.SystemLog) error {
	if !l.client.IsEnabled() {
		return nil
	}

	doc := eventDocument{
		Timestamp:   entry.Timestamp,
		Level:       string(entry.Level),
		Message:     entry.Message,
		Component:   entry.Component,
		PaymentID:   entry.PaymentID,
		RequestID:   entry.RequestID,
		Error:       entry.Error,
		Environment: l.environment,
		Service:     "vendorpay",
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal event document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: EventIndex,
		Body:  strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index event: %s", res.Status())
	}
	return nil
}
