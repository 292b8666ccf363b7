// Package monitor samples attached sensors and persists their readings.
//
// A Monitor performs one pass: every sensor of every attached reader is
// read once (or several times when it asks for a median), and whatever
// succeeded is handed to the configured sinks in one batch. A failing
// sensor is logged and skipped; it never aborts the pass.
//
// Continuous wraps a Monitor and repeats the pass on a fixed interval in
// a single background goroutine:
//
//	mon := monitor.New(monitor.Config{Registry: reg, Sinks: sinks})
//	loop := monitor.NewContinuous(mon, time.Minute)
//	loop.Start(ctx)
//	defer loop.Stop()
//
// Stop is cooperative. The loop observes it after each pass and after
// each sleep, so it may take up to one interval to return.
//
// Sinks:
//   - StoreSink writes to a metric.Store (the "db" storage mode)
//   - CSVSink appends one row per pass to a CSV file ("file" mode)
//   - LogSink logs each sample ("dummy" mode)
//
// The MQTT and InfluxDB mirrors live in the infrastructure packages and
// satisfy Sink as well.
package monitor
