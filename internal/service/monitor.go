package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/selekta/portal-backend/internal/config"
)

// MonitorEventType enumerates the events on the admin monitor stream.
type MonitorEventType string

const (
	MonitorSessionStarted   MonitorEventType = "session_started"
	MonitorSessionCompleted MonitorEventType = "session_completed"
	MonitorSessionExpired   MonitorEventType = "session_expired"
)

// MonitorEvent is one lifecycle event published to the monitor channel.
type MonitorEvent struct {
	Type            MonitorEventType `json:"type"`
	SessionID       string           `json:"session_id"`
	InvitationCode  string           `json:"invitation_code"`
	ParticipantName string           `json:"participant_name"`
	Score           *int             `json:"score,omitempty"`
	At              time.Time        `json:"at"`
}

// Monitor publishes session lifecycle events over Redis PubSub for the
// admin monitor WebSocket. Publishing is best effort; a broken monitor
// never fails the participant's request.
type Monitor struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewMonitor creates a new Monitor.
func NewMonitor(rdb *redis.Client, log zerolog.Logger) *Monitor {
	return &Monitor{
		rdb: rdb,
		log: log.With().Str("component", "monitor").Logger(),
	}
}

// Publish sends an event to the monitor channel.
func (m *Monitor) Publish(ctx context.Context, event MonitorEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	raw, err := json.Marshal(event)
	if err != nil {
		m.log.Error().Err(err).Msg("Marshal monitor event failed")
		return
	}

	if err := m.rdb.Publish(ctx, config.CacheKey.MonitorChannel(), raw).Err(); err != nil {
		m.log.Warn().Err(err).Str("type", string(event.Type)).Msg("Publish monitor event failed")
	}
}

// Subscribe opens a subscription on the monitor channel. The caller owns
// the returned PubSub and must close it.
func (m *Monitor) Subscribe(ctx context.Context) *redis.PubSub {
	return m.rdb.Subscribe(ctx, config.CacheKey.MonitorChannel())
}
