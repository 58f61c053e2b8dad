package mqtt

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/saphari-core/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// operationTimeout bounds the wait for a publish, subscribe or
	// unsubscribe acknowledgement. Exceeding it yields ErrTimeout.
	operationTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// defaultKeepAlive is used when the config leaves keep_alive unset.
	defaultKeepAlive = 30 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// BrokerURL builds the broker address from config.
//
// The scheme defaults to "ssl" when TLS is set and "tcp" otherwise.
// Websocket schemes ("ws", "wss") append Path, e.g. "wss://broker:8884/mqtt".
func BrokerURL(b config.MQTTBrokerConfig) string {
	scheme := b.Scheme
	if scheme == "" {
		scheme = "tcp"
		if b.TLS {
			scheme = "ssl"
		}
	}

	url := fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)
	if (scheme == "ws" || scheme == "wss") && b.Path != "" {
		if !strings.HasPrefix(b.Path, "/") {
			url += "/"
		}
		url += b.Path
	}
	return url
}

// buildClientOptions creates paho MQTT options from config.
//
// This configures:
//   - Broker URL (tcp, ssl, ws or wss)
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - Auto-reconnect bounded by reconnect.initial_delay and max_delay
//   - TLS configuration for ssl and wss
//   - Ordered delivery to handlers
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	brokerURL := BrokerURL(cfg.Broker)
	opts.AddBroker(brokerURL)

	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Clean session - start fresh on connect (no persistent session on broker)
	opts.SetCleanSession(true)

	// Handlers are called one at a time in receive order.
	opts.SetOrderMatters(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)

	keepAlive := defaultKeepAlive
	if cfg.Reconnect.KeepAlive > 0 {
		keepAlive = time.Duration(cfg.Reconnect.KeepAlive) * time.Second
	}
	opts.SetKeepAlive(keepAlive)

	if strings.HasPrefix(brokerURL, "ssl://") || strings.HasPrefix(brokerURL, "wss://") {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	return opts
}
