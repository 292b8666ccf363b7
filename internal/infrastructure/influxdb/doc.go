// Package influxdb mirrors station readings into InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health monitoring. The
// SQLite metric store stays the source of truth; InfluxDB is an optional
// copy for dashboards.
//
// # Data layout
//
// Every sample becomes one point in the "readings" measurement:
//
//	readings,metric=internalTemperature,reader=board,kind=temperature,unit=°C value=41.2 <time>
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	sinks = append(sinks, influxdb.NewSink(client))
//
// # Error Handling
//
// Writes are non-blocking. Batch errors are delivered to the callback
// set with SetOnError. Connection and health check errors are returned
// directly.
package influxdb
