// Package mqtt publishes station readings to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Reading publication with the configured QoS
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Topics
//
// All topics sit under the configured prefix (default "meteo"):
//
//	meteo/reading/{metric}   one JSON message per sample, not retained
//	meteo/status             retained online/offline status, also the LWT
//
// # Security Considerations
//
//   - TLS should be enabled when the broker is not on the local host
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	sinks = append(sinks, mqtt.NewSink(client, client.Topics(), byte(cfg.MQTT.QoS)))
package mqtt
