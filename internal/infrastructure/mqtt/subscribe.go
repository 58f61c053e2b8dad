package mqtt

import (
	"fmt"
	"strings"
)

// Subscribe registers handler for messages matching filter.
//
// filter may use the single-level wildcard as a whole segment
// ("saphari/devices/+/telemetry") and the multi-level wildcard as the last
// segment ("saphari/#"). Subscribing the same filter again replaces its
// handler. Subscriptions are tracked and restored after a reconnect.
//
//	model := topic.New("saphari")
//	err := client.Subscribe(model.Wildcard(topic.ChannelTelemetry), 1, rtr.Enqueue)
//
// Errors: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected, or
// ErrSubscribeFailed (wrapping ErrTimeout when the broker did not
// acknowledge in time). A failed subscription is not tracked.
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if err := validateFilter(filter); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.track(subscription{topic: filter, qos: qos, handler: handler})

	err := waitToken(c.client.Subscribe(filter, qos, c.wrapHandler(handler)), ErrSubscribeFailed, operationTimeout)
	if err != nil {
		c.untrack(filter)
		return err
	}
	return nil
}

// Unsubscribe stops delivery for a filter previously passed to Subscribe.
// Messages already in flight may still reach the handler.
func (c *Client) Unsubscribe(filter string) error {
	if err := validateFilter(filter); err != nil {
		return err
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.untrack(filter)
	return waitToken(c.client.Unsubscribe(filter), ErrUnsubscribeFailed, operationTimeout)
}

// SubscriptionCount returns the number of tracked subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription reports whether filter is tracked. It compares the filter
// string exactly; no wildcard matching is done.
func (c *Client) HasSubscription(filter string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, exists := c.subscriptions[filter]
	return exists
}

func (c *Client) track(sub subscription) {
	c.subMu.Lock()
	c.subscriptions[sub.topic] = sub
	c.subMu.Unlock()
}

func (c *Client) untrack(filter string) {
	c.subMu.Lock()
	delete(c.subscriptions, filter)
	c.subMu.Unlock()
}

// validateFilter checks MQTT subscription filter syntax: '+' must fill a
// whole level and '#' must be the whole last level.
func validateFilter(filter string) error {
	if filter == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	}
	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case strings.Contains(level, "#") && (level != "#" || i != len(levels)-1):
			return fmt.Errorf("%w: '#' must be the last level in %q", ErrInvalidTopic, filter)
		case strings.Contains(level, "+") && level != "+":
			return fmt.Errorf("%w: '+' must fill a level in %q", ErrInvalidTopic, filter)
		}
	}
	return nil
}
