// Package router turns inbound transport messages into device registry and
// telemetry cache updates.
//
// # Processing
//
// For each (topic, payload):
//
//  1. The topic is parsed; unrecognised topics are counted and dropped.
//  2. The payload is decoded for its channel into a StatusMessage,
//     TelemetryMessage or PassThrough. Malformed payloads are logged,
//     counted and dropped.
//  3. Status updates the registry, using the current time when the device
//     sent no "ts".
//  4. Telemetry writes each metric into the cache (stale samples are
//     discarded silently) and marks the device online at the message ts.
//  5. Events and shadow messages are handed to observers untouched.
//
// # Ordering
//
// The transport calls Enqueue; a single goroutine in Run applies messages
// in arrival order. The router is the only writer of the registry and the
// cache, so the latest-by-timestamp rule holds without further locking.
//
//	rtr := router.New(topic.New(cfg.MQTT.Namespace), registry, cache)
//	go rtr.Run(ctx)
//	if err := rtr.Attach(mqttClient, byte(cfg.MQTT.QoS)); err != nil {
//	    return err
//	}
package router
