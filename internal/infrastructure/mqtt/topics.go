package mqtt

import (
	"strings"
)

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "meteo"

// Topics builds the station's MQTT topics under a common prefix.
//
//	topics := mqtt.NewTopics("meteo")
//	topics.Reading("internalTemperature")
//	// Returns: "meteo/reading/internalTemperature"
type Topics struct {
	prefix string
}

// NewTopics returns topic builders rooted at prefix. Surrounding slashes
// are trimmed; an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// Reading returns the topic for samples of one metric.
//
// Example: meteo/reading/internalTemperature
func (t Topics) Reading(metric string) string {
	return t.Prefix() + "/reading/" + sanitize(metric)
}

// AllReadings returns a wildcard matching every reading topic.
//
// Example: meteo/reading/+
func (t Topics) AllReadings() string {
	return t.Prefix() + "/reading/+"
}

// Status returns the retained station status topic.
//
// Example: meteo/status
func (t Topics) Status() string {
	return t.Prefix() + "/status"
}

// sanitize replaces characters that have a meaning in MQTT topic filters.
func sanitize(segment string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(segment)
}
