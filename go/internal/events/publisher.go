package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// RoomEvent is the envelope mirrored to the event bus for every group
// broadcast. External consumers can observe room activity without joining
// the websocket group.
type RoomEvent struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	RoomID    string          `json:"room_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Publisher mirrors room events to an external bus. Implementations must
// never block the broadcast path for long and must never surface errors
// to clients.
type Publisher interface {
	Publish(ctx context.Context, event RoomEvent) error
}

// NewRoomEvent builds an envelope with a fresh event ID.
func NewRoomEvent(eventType, roomID string, payload json.RawMessage) RoomEvent {
	return RoomEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		RoomID:    roomID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// NoopPublisher is used when no event bus is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event RoomEvent) error {
	log.Debug().
		Str("event_type", event.EventType).
		Str("room_id", event.RoomID).
		Msg("event bus not configured, dropping mirror event")
	return nil
}

// NATSConfig holds connection settings for the NATS publisher.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns defaults matching a local NATS server.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "poker.rooms",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher publishes room events to core NATS subjects, one subject
// per room: <prefix>.<roomID>.
type NATSPublisher struct {
	nc     *nats.Conn
	config NATSConfig
}

// NewNATSPublisher connects to NATS and returns a publisher.
func NewNATSPublisher(config NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSPublisher{nc: nc, config: config}, nil
}

// Publish sends the event envelope to the room's subject.
func (p *NATSPublisher) Publish(ctx context.Context, event RoomEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.config.SubjectPrefix, event.RoomID)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
