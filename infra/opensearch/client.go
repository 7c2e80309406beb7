package opensearch

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/vendorpay/vendorpay/infra/config"
)

// EventIndex is where lifecycle and webhook events land.
const EventIndex = "vendorpay-events"

// Client wraps the OpenSearch client
type Client struct {
	client *opensearch.Client
}

// NewClient creates a new OpenSearch client and makes sure the event index
// exists.
func NewClient(cfg *config.AppConfig) (*Client, error) {
	opensearchConfig := opensearch.Config{
		Addresses: []string{cfg.OpenSearchURL},
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // For development/testing
			},
		},
		MaxRetries:    3,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
	}
	if cfg.OpenSearchUser != "" && cfg.OpenSearchPass != "" {
		opensearchConfig.Username = cfg.OpenSearchUser
		opensearchConfig.Password = cfg.OpenSearchPass
	}

	client, err := opensearch.NewClient(opensearchConfig)
	if err != nil {
		return nil, err
	}

	osClient := &Client{client: client}
	if err := osClient.setupIndex(); err != nil {
		log.Printf("Warning: Failed to setup OpenSearch index: %v", err)
	}
	return osClient, nil
}

// GetClient returns the underlying OpenSearch client
func (c *Client) GetClient() *opensearch.Client {
	return c.client
}

// IsEnabled reports whether a usable client exists.
func (c *Client) IsEnabled() bool {
	return c != nil && c.client != nil
}

// setupIndex creates the event index when it does not exist yet.
func (c *Client) setupIndex() error {
	exists, err := c.indexExists(EventIndex)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := c.createEventIndex(EventIndex); err != nil {
		return err
	}
	log.Printf("Created OpenSearch index: %s", EventIndex)
	return nil
}

// indexExists checks if an index exists
func (c *Client) indexExists(indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{
		Index: []string{indexName},
	}

	res, err := req.Do(context.Background(), c.client)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	return res.StatusCode == 200, nil
}

// createEventIndex creates the event index with its mapping
func (c *Client) createEventIndex(indexName string) error {
	mapping := `{
		"mappings": {
			"properties": {
				"timestamp": {
					"type": "date",
					"format": "strict_date_optional_time||epoch_millis"
				},
				"level": { "type": "keyword" },
				"message": { "type": "text" },
				"component": { "type": "keyword" },
				"payment_id": { "type": "keyword" },
				"request_id": { "type": "keyword" },
				"error": { "type": "text" },
				"environment": { "type": "keyword" },
				"service": { "type": "keyword" }
			}
		},
		"settings": {
			"number_of_shards": 1,
			"number_of_replicas": 0
		}
	}`

	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(context.Background(), c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return &indexError{status: res.Status()}
	}
	return nil
}

type indexError struct {
	status string
}

func (e *indexError) Error() string {
	return "opensearch index error: " + e.status
}
