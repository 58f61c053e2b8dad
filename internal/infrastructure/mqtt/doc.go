// Package mqtt provides the broker transport for the Saphari hub.
//
// This package manages:
//   - An owned connection to the broker (tcp, ssl, ws or wss) with auto-reconnect
//   - Fire-and-forget publishing that fails fast while disconnected
//   - Topic subscriptions with wildcard support, restored after reconnect
//   - Connection state callbacks (connected, reconnecting, disconnected)
//
// # Architecture
//
// Devices publish status and telemetry on per-device topics and receive
// commands on their cmd topic. The hub is one client among them:
//
//	Devices ↔ MQTT Broker ↔ Saphari hub (router, command publisher)
//
// There is no package-level connection. Connect returns a *Client that the
// process owns and injects wherever publish or subscribe is needed; callers
// depend on small interfaces so tests can substitute a fake transport.
//
// # Delivery
//
//   - Handlers run one at a time in receive order (paho OrderMatters).
//   - Commands are published at QoS 0 by default: at most once, no ack wait.
//   - Reconnect backoff is bounded by mqtt.reconnect.initial_delay and max_delay.
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.SetOnStateChange(func(s mqtt.ConnectionState, err error) {
//	    log.Info("transport state", "state", s, "error", err)
//	})
//	err = client.Subscribe("saphari/devices/+/status", 1, handler)
package mqtt
