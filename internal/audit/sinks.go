package audit

import (
	"context"
	"log/slog"

	"github.com/DanialSobri/api-studio/internal/infrastructure/influxdb"
	"github.com/DanialSobri/api-studio/internal/infrastructure/mqtt"
)

// Publisher is the subset of the MQTT client the security feed needs.
type Publisher interface {
	PublishJSON(topic string, v any) error
	Topics() mqtt.Topics
}

// MQTTSink publishes every event to <prefix>/security/<event> and every
// dropped write to <prefix>/security/dropped.
type MQTTSink struct {
	pub    Publisher
	logger *slog.Logger
}

// NewMQTTSink creates a sink publishing through pub. logger may be nil.
func NewMQTTSink(pub Publisher, logger *slog.Logger) *MQTTSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MQTTSink{pub: pub, logger: logger}
}

type droppedMessage struct {
	Event
	Error string `json:"error"`
}

// EventRecorded implements Sink.
func (s *MQTTSink) EventRecorded(_ context.Context, ev Event) {
	if err := s.pub.PublishJSON(s.pub.Topics().SecurityEvent(string(ev.Kind)), ev); err != nil {
		s.logger.Debug("security event not published", "event", string(ev.Kind), "error", err)
	}
}

// EventDropped implements Sink.
func (s *MQTTSink) EventDropped(_ context.Context, ev Event, cause error) {
	msg := droppedMessage{Event: ev, Error: cause.Error()}
	if err := s.pub.PublishJSON(s.pub.Topics().SecurityDropped(), msg); err != nil {
		s.logger.Warn("dropped audit event not published", "event", string(ev.Kind), "error", err)
	}
}

// PointWriter is the subset of the InfluxDB client the sink needs.
type PointWriter interface {
	WriteAuthEvent(ev influxdb.AuthEvent)
}

// InfluxSink writes one auth_event point per event, tagged with whether
// the audit row was persisted.
type InfluxSink struct {
	w PointWriter
}

// NewInfluxSink creates a sink writing through w.
func NewInfluxSink(w PointWriter) *InfluxSink {
	return &InfluxSink{w: w}
}

// EventRecorded implements Sink.
func (s *InfluxSink) EventRecorded(_ context.Context, ev Event) {
	s.w.WriteAuthEvent(toPoint(ev, true))
}

// EventDropped implements Sink.
func (s *InfluxSink) EventDropped(_ context.Context, ev Event, _ error) {
	s.w.WriteAuthEvent(toPoint(ev, false))
}

func toPoint(ev Event, persisted bool) influxdb.AuthEvent {
	return influxdb.AuthEvent{
		Event:     string(ev.Kind),
		UserID:    ev.UserID,
		IPAddress: ev.IPAddress,
		Persisted: persisted,
		At:        ev.Timestamp,
	}
}

// SinkFunc adapts a function to Sink; dropped events are passed with their error.
type SinkFunc func(ctx context.Context, ev Event, err error)

// EventRecorded implements Sink.
func (f SinkFunc) EventRecorded(ctx context.Context, ev Event) { f(ctx, ev, nil) }

// EventDropped implements Sink.
func (f SinkFunc) EventDropped(ctx context.Context, ev Event, err error) { f(ctx, ev, err) }
