package mqtt

import (
	"fmt"
	"strings"
	"time"
)

// maxPayloadSize caps outbound payloads. Device commands are a few hundred
// bytes; anything near this is a bug upstream, not a command.
const maxPayloadSize = 64 << 10

// Publish sends payload on topic.
//
// The topic must be a concrete name: wildcards are only valid in
// subscription filters. Publishing while disconnected fails immediately
// with ErrNotConnected; nothing is queued for later delivery. At QoS 0 the
// call returns as soon as the message is handed to the network.
//
// Errors: ErrInvalidTopic, ErrInvalidQoS, ErrPayloadTooLarge,
// ErrNotConnected, or ErrPublishFailed (wrapping ErrTimeout when the broker
// did not acknowledge in time).
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validatePublishTopic(topic); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return waitToken(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed, operationTimeout)
}

// validatePublishTopic rejects empty topics and topics carrying the '+' or
// '#' wildcard.
func validatePublishTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcard in publish topic %q", ErrInvalidTopic, topic)
	}
	return nil
}

// token is the part of a paho token the client waits on.
type token interface {
	WaitTimeout(time.Duration) bool
	Error() error
}

// waitToken waits up to timeout for t. A timeout wraps both op and
// ErrTimeout; a broker error wraps op and the cause.
func waitToken(t token, op error, timeout time.Duration) error {
	if !t.WaitTimeout(timeout) {
		return fmt.Errorf("%w: %w after %v", op, ErrTimeout, timeout)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("%w: %w", op, err)
	}
	return nil
}
