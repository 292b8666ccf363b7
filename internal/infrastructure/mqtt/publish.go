package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/meteo-core/internal/metric"
	"github.com/nerrad567/meteo-core/internal/monitor"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "meteo/reading/internalTemperature")
//   - payload: The message payload (typically JSON, max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validatePublish(topic, payload, qos); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

func validatePublish(topic string, payload []byte, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	return nil
}

// Publisher is the part of Client used by Sink.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// ReadingPayload is the JSON body published for each sample.
type ReadingPayload struct {
	Metric    string `json:"metric"`
	Reader    string `json:"reader"`
	Kind      string `json:"kind"`
	Unit      string `json:"unit,omitempty"`
	Value     any    `json:"value"`
	Timestamp string `json:"timestamp"`
}

// NewReadingPayload converts a sample.
func NewReadingPayload(s monitor.Sample) ReadingPayload {
	return ReadingPayload{
		Metric:    s.Sensor,
		Reader:    s.Reader,
		Kind:      s.Kind,
		Unit:      s.Unit,
		Value:     s.Value,
		Timestamp: metric.FormatTime(s.Time),
	}
}

// Sink publishes every sample of a pass to its reading topic.
type Sink struct {
	pub    Publisher
	topics Topics
	qos    byte
}

// NewSink creates a monitor sink publishing through pub.
func NewSink(pub Publisher, topics Topics, qos byte) *Sink {
	return &Sink{pub: pub, topics: topics, qos: qos}
}

// Name implements monitor.Sink.
func (s *Sink) Name() string { return "mqtt" }

// Write implements monitor.Sink. Every sample is attempted; failures are
// joined in the returned error.
func (s *Sink) Write(_ context.Context, samples []monitor.Sample) error {
	var errs []error
	for _, smp := range samples {
		payload, err := json.Marshal(NewReadingPayload(smp))
		if err != nil {
			errs = append(errs, fmt.Errorf("encoding %s: %w", smp.Sensor, err))
			continue
		}
		if err := s.pub.Publish(s.topics.Reading(smp.Sensor), payload, s.qos, false); err != nil {
			errs = append(errs, fmt.Errorf("publishing %s: %w", smp.Sensor, err))
		}
	}
	return errors.Join(errs...)
}
