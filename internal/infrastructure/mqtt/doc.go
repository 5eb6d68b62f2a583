// Package mqtt provides the MQTT publisher used to fan out security events.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - A retained service status topic with a Last Will for crash detection
//   - Publishing with QoS and payload-size validation
//
// Every login, failed login, logout and session revocation is published to
// {prefix}/security/{event}; audit rows that could not be written go to
// {prefix}/security/dropped so an external consumer still sees them.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) when the broker is not on localhost
//   - Payloads never contain passwords or bearer tokens
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(client.Topics().SecurityEvent("login"), event)
package mqtt
