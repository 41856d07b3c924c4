package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// AdminAlert is the payload published to the admin alert topic when a
// distribution run exhausts its retries.
type AdminAlert struct {
	ActionType    string    `json:"action_type"`
	Description   string    `json:"description"`
	Error         string    `json:"error"`
	Attempts      int       `json:"attempts"`
	CorrelationId string    `json:"correlation_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

func getPubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

// GetPubSubClient returns a Pub/Sub client, initializing it on first use.
// Uses Application Default Credentials unless PUBSUB_CREDENTIALS_JSON is provided.
func GetPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		return pubsubClient, nil
	}

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON"); credJSON != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}
	pubsubClient = c
	log.Printf("pubsub client ready (project_id=%s)", projectID)
	return pubsubClient, nil
}

// PublishAdminAlert pushes an alert onto the ADMIN_ALERT_TOPIC. The publish is
// best-effort from the caller's perspective; the audit row written alongside it
// is the durable record.
func PublishAdminAlert(ctx context.Context, alert AdminAlert) error {
	topicName := os.Getenv("ADMIN_ALERT_TOPIC")
	if topicName == "" {
		return errors.New("ADMIN_ALERT_TOPIC not set")
	}

	client, err := GetPubSubClient(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	topic := client.Topic(topicName)
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publish admin alert: %w", err)
	}
	return nil
}
