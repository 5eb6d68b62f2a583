package mqtt

import "strings"

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "apistudio"

// Topics builds the MQTT topic names this service publishes to.
//
//	t := mqtt.NewTopics("apistudio")
//	t.SecurityEvent("failed_login") // "apistudio/security/failed_login"
type Topics struct {
	prefix string
}

// NewTopics returns a builder rooted at prefix (trailing slashes trimmed).
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// ServiceStatus is the retained online/offline status topic.
//
// Example: apistudio/system/status
func (t Topics) ServiceStatus() string {
	return t.prefix + "/system/status"
}

// SecurityEvent is the topic for one kind of authentication event.
//
// Example: apistudio/security/login
func (t Topics) SecurityEvent(kind string) string {
	return t.prefix + "/security/" + kind
}

// SecurityDropped carries audit events that could not be persisted.
//
// Example: apistudio/security/dropped
func (t Topics) SecurityDropped() string {
	return t.prefix + "/security/dropped"
}

// AllSecurityEvents is a wildcard for consumers of every security event.
//
// Example: apistudio/security/#
func (t Topics) AllSecurityEvents() string {
	return t.prefix + "/security/#"
}
