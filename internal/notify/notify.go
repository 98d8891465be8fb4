// Package notify publishes structured pipeline events for downstream
// delivery (Discord announcers and the like). The pipeline emits facts only;
// message formatting happens on the consumer side.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"rtcwstats/internal/config"
)

// Notification kinds.
const (
	KindNewAchievements = "new achievements"
	KindSeasonComplete  = "season complete"
	KindNewGroup        = "new group"
	KindMatchProcessed  = "match processed"
)

// Event is one structured notification. Detail carries kind-specific fields
// such as the achievement batch or the closed season name.
type Event struct {
	NotificationType string         `json:"notification_type"`
	MatchType        string         `json:"match_type,omitempty"`
	Detail           map[string]any `json:"detail,omitempty"`
}

// Notifier delivers events to the bus. Implementations must tolerate being
// called with batched detail payloads; one match never produces more than
// one event per kind.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// NATSNotifier publishes events as JSON on a single subject.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

func NewNATSNotifier(cfg *config.Config, logger zerolog.Logger) (*NATSNotifier, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	logger.Info().Str("subject", cfg.NatsSubject).Msg("notification bus connected")
	return &NATSNotifier{conn: conn, subject: cfg.NatsSubject, logger: logger}, nil
}

func (n *NATSNotifier) Publish(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		n.logger.Error().Err(err).Str("kind", event.NotificationType).Msg("failed to publish notification")
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	n.logger.Debug().Str("kind", event.NotificationType).Msg("notification published")
	return nil
}

// Close drains the connection.
func (n *NATSNotifier) Close() {
	n.conn.Close()
}

// NopNotifier drops events; used when no bus is configured.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, Event) error { return nil }

// RecordingNotifier captures events for tests.
type RecordingNotifier struct {
	mu     sync.Mutex
	Events []Event
}

func (r *RecordingNotifier) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
	return nil
}
