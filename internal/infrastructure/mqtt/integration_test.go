//go:build integration

package mqtt

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/saphari-core/internal/infrastructure/config"
)

// Integration tests against a real broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS:       1,
		Namespace: "saphari-it",
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func connectIntegration(t *testing.T, clientID string) *Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, integrationConfig(clientID))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIntegration_Connect(t *testing.T) {
	client := connectIntegration(t, "saphari-it-connect")

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	client.Close()
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client := connectIntegration(t, "saphari-it-subs")
	handler := func(string, []byte) error { return nil }

	topics := []string{
		"saphari-it/devices/+/status",
		"saphari-it/devices/+/telemetry",
	}
	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}

	if client.SubscriptionCount() != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topics[0]) {
		t.Error("HasSubscription() = true after Unsubscribe")
	}
}

func TestIntegration_OrderedRoundtrip(t *testing.T) {
	client := connectIntegration(t, "saphari-it-order")

	const n = 50
	var received atomic.Int32
	var outOfOrder atomic.Bool
	done := make(chan struct{})

	err := client.Subscribe("saphari-it/devices/+/telemetry", 1, func(_ string, payload []byte) error {
		want := received.Load()
		if string(payload) != fmt.Sprintf("%d", want) {
			outOfOrder.Store(true)
		}
		if received.Add(1) == n {
			close(done)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	for i := 0; i < n; i++ {
		if err := client.Publish("saphari-it/devices/d1/telemetry", []byte(fmt.Sprintf("%d", i)), 1, false); err != nil {
			t.Fatalf("Publish(%d) error = %v", i, err)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("received %d/%d messages", received.Load(), n)
	}
	if outOfOrder.Load() {
		t.Error("messages delivered out of order on a single subscription")
	}
}
