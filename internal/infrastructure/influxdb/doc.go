// Package influxdb writes authentication metrics to InfluxDB v2.
//
// Every login, failed login, logout and session revocation becomes one
// auth_event point tagged with the event kind, so dashboards can chart
// login volume and brute-force attempts over time. Writes are batched and
// non-blocking; a slow or unreachable InfluxDB never delays a request.
//
// InfluxDB is optional. Connect returns ErrDisabled when influxdb.enabled
// is false and the service runs without it.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // continue without metrics
//	}
//	client.WriteAuthEvent(influxdb.AuthEvent{Event: "login", UserID: &id})
package influxdb
