package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"aanganwadi/pkg/models"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Event is the real-time payload handed to the socket gateway.
type Event struct {
	ID           string              `json:"id"`
	UserID       int                 `json:"userId"`
	Notification models.Notification `json:"notification"`
	SentAt       time.Time           `json:"sentAt"`
}

// Pusher delivers events to connected users. Delivery is best effort.
type Pusher interface {
	Push(ctx context.Context, event Event) error
	Close() error
}

type PubSubPusher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPusher opens a publisher on topic; credentialsJSON may be empty to
// use application default credentials.
func NewPubSubPusher(ctx context.Context, projectID, topic, credentialsJSON string) (*PubSubPusher, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	t := client.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check topic %q: %w", topic, err)
	}
	if !ok {
		if t, err = client.CreateTopic(ctx, topic); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("create topic %q: %w", topic, err)
		}
	}

	return &PubSubPusher{client: client, topic: t}, nil
}

func (p *PubSubPusher) Push(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"user_id": strconv.Itoa(event.UserID),
			"type":    string(event.Notification.Type),
		},
	})
	_, err = result.Get(ctx)
	return err
}

func (p *PubSubPusher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// LogPusher stands in when no push transport is configured.
type LogPusher struct {
	log *zap.Logger
}

func NewLogPusher(log *zap.Logger) *LogPusher {
	return &LogPusher{log: log}
}

func (p *LogPusher) Push(ctx context.Context, event Event) error {
	p.log.Debug("Push event",
		zap.String("event_id", event.ID),
		zap.Int("user_id", event.UserID),
		zap.String("type", string(event.Notification.Type)),
	)
	return nil
}

func (p *LogPusher) Close() error { return nil }

func newEvent(n models.Notification, now time.Time) Event {
	return Event{ID: uuid.NewString(), UserID: n.UserID, Notification: n, SentAt: now}
}
