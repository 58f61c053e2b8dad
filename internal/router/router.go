package router

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/saphari-core/internal/device"
	"github.com/nerrad567/saphari-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/saphari-core/internal/metrics"
	"github.com/nerrad567/saphari-core/internal/telemetry"
	"github.com/nerrad567/saphari-core/internal/topic"
)

// DefaultQueueSize is the inbound buffer between the transport and Run.
const DefaultQueueSize = 1024

// Logger defines the logging interface used by the Router.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Subscriber is the part of the transport the router needs to receive messages.
// *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Observer is notified of state changes the router applies.
//
// Observers run on the router goroutine and must not block.
type Observer interface {
	// DeviceChanged is called after a device's status or LastSeen changed.
	DeviceChanged(d device.Device)

	// TelemetryUpdated is called with the samples a telemetry message
	// actually stored; stale samples are not included.
	TelemetryUpdated(deviceID string, samples map[string]telemetry.Sample)

	// PassThrough is called for events and shadow messages, which the
	// router does not interpret.
	PassThrough(deviceID string, ch topic.Channel, payload []byte)
}

// inbound is one queued transport message.
type inbound struct {
	topic   string
	payload []byte
}

// Router is the single entry point for inbound transport messages and the
// only writer of the device registry and the telemetry cache.
//
// Messages handed to Enqueue are processed one at a time, in arrival order,
// by the goroutine running Run. A malformed payload or unknown topic is
// logged, counted and dropped; it never stops the feed.
type Router struct {
	model    topic.Model
	registry *device.Registry
	cache    *telemetry.Cache

	logger  Logger
	metrics *metrics.Metrics
	now     func() time.Time

	observersMu sync.RWMutex
	observers   []Observer

	queue   chan inbound
	done    chan struct{}
	running atomic.Bool
}

// New creates a router that applies messages for model's namespace to
// registry and cache.
func New(model topic.Model, registry *device.Registry, cache *telemetry.Cache) *Router {
	return &Router{
		model:    model,
		registry: registry,
		cache:    cache,
		logger:   noopLogger{},
		now:      time.Now,
		queue:    make(chan inbound, DefaultQueueSize),
		done:     make(chan struct{}),
	}
}

// SetLogger sets the logger for the router.
func (r *Router) SetLogger(logger Logger) {
	r.logger = logger
}

// SetMetrics sets the metrics sink. nil disables metrics.
func (r *Router) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
}

// SetClock overrides the time source used for status messages without "ts".
func (r *Router) SetClock(now func() time.Time) {
	r.now = now
}

// AddObserver registers an observer for applied changes.
func (r *Router) AddObserver(o Observer) {
	r.observersMu.Lock()
	r.observers = append(r.observers, o)
	r.observersMu.Unlock()
}

// Attach subscribes the router to every device channel it consumes.
// The cmd channel is not subscribed; the hub only publishes there.
func (r *Router) Attach(sub Subscriber, qos byte) error {
	for _, ch := range []topic.Channel{
		topic.ChannelStatus,
		topic.ChannelTelemetry,
		topic.ChannelEvents,
		topic.ChannelShadowReport,
		topic.ChannelShadowGet,
	} {
		pattern := r.model.Wildcard(ch)
		if err := sub.Subscribe(pattern, qos, r.Enqueue); err != nil {
			return fmt.Errorf("subscribing %s: %w", pattern, err)
		}
		r.logger.Debug("router subscribed", "topic", pattern)
	}
	return nil
}

// Enqueue hands a message to the processing goroutine. It is an
// mqtt.MessageHandler.
//
// When the queue is full Enqueue waits rather than dropping, so delivery
// order is preserved. After Run has exited it returns ErrStopped.
func (r *Router) Enqueue(t string, payload []byte) error {
	msg := inbound{topic: t, payload: append([]byte(nil), payload...)}

	select {
	case <-r.done:
		return ErrStopped
	default:
	}

	select {
	case r.queue <- msg:
		return nil
	case <-r.done:
		return ErrStopped
	}
}

// Run processes queued messages until ctx is cancelled. It may be called once.
func (r *Router) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(r.done)

	r.logger.Info("message router started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("message router stopped", "pending", len(r.queue))
			return nil
		case msg := <-r.queue:
			r.safeHandle(msg)
		}
	}
}

// safeHandle isolates each message so a panic in an observer cannot stop Run.
func (r *Router) safeHandle(msg inbound) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("router panic recovered", "topic", msg.topic, "panic", rec)
		}
	}()
	r.Handle(msg.topic, msg.payload)
}

// Handle applies one message synchronously.
//
// It is the processing step behind Run and is exposed for callers that
// already serialise delivery (tests, replay). Calling Handle concurrently
// with Run gives up the ordering guarantee.
func (r *Router) Handle(t string, payload []byte) {
	deviceID, ch := r.model.Parse(t)
	if ch == topic.ChannelUnrecognized {
		r.metrics.UnrecognizedTopic()
		r.logger.Debug("discarding unrecognized topic", "topic", t)
		return
	}
	r.metrics.MessageReceived(ch.String())

	msg, err := Decode(ch, payload)
	if err != nil {
		r.metrics.DecodeError(ch.String())
		r.logger.Warn("discarding malformed payload",
			"topic", t,
			"device_id", deviceID,
			"error", err,
		)
		return
	}

	switch m := msg.(type) {
	case StatusMessage:
		r.applyStatus(deviceID, m)
	case TelemetryMessage:
		r.applyTelemetry(deviceID, m)
	case PassThrough:
		r.forEachObserver(func(o Observer) {
			o.PassThrough(deviceID, m.Channel, m.Payload)
		})
	}
}

func (r *Router) applyStatus(deviceID string, m StatusMessage) {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}

	d, changed := r.registry.UpsertStatus(deviceID, m.Status, ts)
	if changed {
		r.forEachObserver(func(o Observer) { o.DeviceChanged(d) })
	}
}

func (r *Router) applyTelemetry(deviceID string, m TelemetryMessage) {
	for _, key := range m.Skipped {
		r.logger.Warn("skipping invalid metric value", "device_id", deviceID, "key", key)
	}

	stored := make(map[string]telemetry.Sample, len(m.Metrics))
	for key, v := range m.Metrics {
		if r.cache.Record(deviceID, key, m.Timestamp, v) {
			stored[key] = telemetry.Sample{Timestamp: m.Timestamp, Value: v}
			r.metrics.SampleStored()
		} else {
			r.metrics.SampleStale()
		}
	}

	// Telemetry implies the device is alive.
	d, changed := r.registry.UpsertStatus(deviceID, device.StatusOnline, m.Timestamp)
	if changed {
		r.forEachObserver(func(o Observer) { o.DeviceChanged(d) })
	}
	if len(stored) > 0 {
		r.forEachObserver(func(o Observer) { o.TelemetryUpdated(deviceID, stored) })
	}
}

func (r *Router) forEachObserver(fn func(Observer)) {
	r.observersMu.RLock()
	observers := r.observers
	r.observersMu.RUnlock()

	for _, o := range observers {
		fn(o)
	}
}
