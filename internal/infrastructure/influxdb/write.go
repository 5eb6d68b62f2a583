package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by this service.
const (
	MeasurementAuthEvent = "auth_event"
)

// AuthEvent is one authentication outcome recorded as a time-series point.
type AuthEvent struct {
	Event     string // login, failed_login, logout, session_revoked
	UserID    *int64 // nil for failed logins against an unknown email
	IPAddress string
	Persisted bool // false when the audit row could not be written
	At        time.Time
}

// WriteAuthEvent records an authentication event. Event and persisted are
// tags (low cardinality); user id and IP are fields.
func (c *Client) WriteAuthEvent(ev AuthEvent) {
	if !c.IsConnected() {
		return
	}

	persisted := "true"
	if !ev.Persisted {
		persisted = "false"
	}

	fields := map[string]interface{}{
		"count": 1,
	}
	if ev.UserID != nil {
		fields["user_id"] = *ev.UserID
	}
	if ev.IPAddress != "" {
		fields["ip_address"] = ev.IPAddress
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementAuthEvent,
		map[string]string{
			"event":     ev.Event,
			"persisted": persisted,
		},
		fields,
		at,
	))
}

// WritePoint writes a custom point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
