package mqtt

import "errors"

// Errors returned by the transport. Operation errors may wrap a second
// sentinel, so both checks hold for a timed-out publish:
//
//	errors.Is(err, mqtt.ErrPublishFailed) && errors.Is(err, mqtt.ErrTimeout)
var (
	// ErrNotConnected is returned when the broker connection is down.
	// Nothing is queued; the caller decides whether to retry.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when the broker did not accept a publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when the broker did not accept a subscription.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed is returned when the broker did not accept an unsubscribe.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrTimeout is wrapped alongside the operation error when the broker did
	// not acknowledge within operationTimeout.
	ErrTimeout = errors.New("mqtt: operation timed out")

	// ErrInvalidQoS is returned for QoS levels other than 0, 1 or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty topic, a publish topic that
	// contains a wildcard, or a malformed subscription filter.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrPayloadTooLarge is returned when a payload exceeds maxPayloadSize.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
)
