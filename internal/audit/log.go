package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sink observes audit outcomes. EventRecorded is called after a successful
// write (or, for events that are never stored, after they are accepted);
// EventDropped is called when the store rejected the write.
//
// Sinks are called synchronously from the request path and must be quick.
type Sink interface {
	EventRecorded(ctx context.Context, ev Event)
	EventDropped(ctx context.Context, ev Event, err error)
}

// Log is the audit entry point used by the authenticator and the session
// manager. Its Record methods never return errors: a failed write is logged
// and forwarded to sinks, and the caller carries on.
type Log struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	sinks []Sink
}

// NewLog creates an audit log over repo. logger may be nil.
func NewLog(repo Repository, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Log{
		repo:   repo,
		logger: logger.With("component", "audit"),
		now:    time.Now,
	}
}

// AddSink registers a sink. Safe to call while events are being recorded.
func (l *Log) AddSink(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// RecordLogin appends a successful login.
func (l *Log) RecordLogin(ctx context.Context, userID int64, ipAddress, userAgent string) {
	l.append(ctx, &Event{UserID: &userID, Kind: KindLogin, IPAddress: ipAddress, UserAgent: userAgent})
}

// RecordFailedLogin appends a failed attempt. userID is nil when the email
// did not resolve to an account.
func (l *Log) RecordFailedLogin(ctx context.Context, userID *int64, ipAddress, userAgent string) {
	l.append(ctx, &Event{UserID: userID, Kind: KindFailedLogin, IPAddress: ipAddress, UserAgent: userAgent})
}

// RecordLogout closes the user's most recent open login row. If there is
// none this is a no-op.
func (l *Log) RecordLogout(ctx context.Context, userID int64) {
	now := l.now()
	ev := Event{UserID: &userID, Kind: KindLogout, Timestamp: now, LogoutTimestamp: &now}

	closed, err := l.repo.CloseLatestLogin(ctx, userID, now)
	if err != nil {
		l.dropped(ctx, ev, err)
		return
	}
	if !closed {
		l.logger.Debug("no open login to close", "user_id", userID)
	}
	l.recorded(ctx, ev)
}

// RecordSessionRevoked publishes a revocation to sinks. Revocations are
// already visible on the session row, so nothing is written here.
func (l *Log) RecordSessionRevoked(ctx context.Context, userID int64, sessionID string) {
	l.recorded(ctx, Event{UserID: &userID, Kind: KindSessionRevoked, SessionID: sessionID, Timestamp: l.now()})
}

func (l *Log) append(ctx context.Context, ev *Event) {
	ev.Timestamp = l.now()
	if err := l.repo.Create(ctx, ev); err != nil {
		l.dropped(ctx, *ev, err)
		return
	}
	l.recorded(ctx, *ev)
}

func (l *Log) recorded(ctx context.Context, ev Event) {
	for _, s := range l.snapshot() {
		s.EventRecorded(ctx, ev)
	}
}

func (l *Log) dropped(ctx context.Context, ev Event, err error) {
	attrs := []any{"event", string(ev.Kind), "error", err}
	if ev.UserID != nil {
		attrs = append(attrs, "user_id", *ev.UserID)
	}
	l.logger.Error("audit write failed", attrs...)
	for _, s := range l.snapshot() {
		s.EventDropped(ctx, ev, err)
	}
}

func (l *Log) snapshot() []Sink {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Sink(nil), l.sinks...)
}
