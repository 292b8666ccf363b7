package influxdb

import (
	"context"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/meteo-core/internal/monitor"
)

// Measurement is the InfluxDB measurement holding every reading.
const Measurement = "readings"

// NewPoint converts a sample into a point. The metric, reader, kind and
// unit become tags; the value is the single "value" field.
func NewPoint(s monitor.Sample) *write.Point {
	tags := map[string]string{
		"metric": s.Sensor,
		"reader": s.Reader,
	}
	if s.Kind != "" {
		tags["kind"] = s.Kind
	}
	if s.Unit != "" {
		tags["unit"] = s.Unit
	}

	return write.NewPoint(Measurement, tags, map[string]any{"value": s.Value}, s.Time)
}

// WriteSample queues one sample. The write is non-blocking; data is
// batched and sent asynchronously. Nothing is written while disconnected.
func (c *Client) WriteSample(s monitor.Sample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(NewPoint(s))
}

// pointWriter is the part of Client used by Sink.
type pointWriter interface {
	IsConnected() bool
	WriteSample(s monitor.Sample)
	Flush()
}

// Sink mirrors each pass into InfluxDB.
type Sink struct {
	client pointWriter
}

// NewSink creates a monitor sink over client.
func NewSink(client *Client) *Sink {
	return &Sink{client: client}
}

// Name implements monitor.Sink.
func (s *Sink) Name() string { return "influxdb" }

// Write implements monitor.Sink. Samples are queued and flushed at the
// end of the pass. Asynchronous failures go to the client's error
// callback.
func (s *Sink) Write(_ context.Context, samples []monitor.Sample) error {
	if !s.client.IsConnected() {
		return ErrNotConnected
	}
	for _, smp := range samples {
		s.client.WriteSample(smp)
	}
	s.client.Flush()
	return nil
}
