package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nerrad567/saphari-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/saphari-core/internal/metrics"
	"github.com/nerrad567/saphari-core/internal/topic"
)

// Transport is the publish side of the broker connection.
// *mqtt.Client satisfies it.
type Transport interface {
	IsConnected() bool
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger defines the logging interface used by the Publisher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Publisher sends command messages to a device's cmd topic.
//
// Delivery is at most once: no retry, no queue, no acknowledgment wait.
// While the transport is disconnected Publish fails with ErrNotConnected so
// the caller can tell the user the command was not sent.
type Publisher struct {
	transport Transport
	model     topic.Model
	qos       byte

	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
	limMu    sync.Mutex

	logger  Logger
	metrics *metrics.Metrics
	newID   func() string
}

// NewPublisher creates a publisher. qos 0 matches the fire-and-forget contract.
func NewPublisher(transport Transport, model topic.Model, qos byte) *Publisher {
	return &Publisher{
		transport: transport,
		model:     model,
		qos:       qos,
		limit:     rate.Inf,
		limiters:  make(map[string]*rate.Limiter),
		logger:    noopLogger{},
		newID:     uuid.NewString,
	}
}

// SetRateLimit bounds commands per device to perSecond with the given burst.
// perSecond <= 0 disables the limit.
func (p *Publisher) SetRateLimit(perSecond float64, burst int) {
	p.limMu.Lock()
	defer p.limMu.Unlock()

	if perSecond <= 0 {
		p.limit = rate.Inf
	} else {
		p.limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	p.burst = burst
	p.limiters = make(map[string]*rate.Limiter)
}

// SetLogger sets the logger for the publisher.
func (p *Publisher) SetLogger(logger Logger) {
	p.logger = logger
}

// SetMetrics sets the metrics sink. nil disables metrics.
func (p *Publisher) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// Publish serialises cmd and sends it on deviceID's cmd topic.
//
// An empty ReqID is filled with a UUID; the message actually sent is
// returned. Errors: ErrNotConnected, ErrRateLimited, ErrPublishFailed, or
// ctx.Err() when ctx is already done.
func (p *Publisher) Publish(ctx context.Context, deviceID string, cmd CommandMessage) (CommandMessage, error) {
	if err := ctx.Err(); err != nil {
		return CommandMessage{}, err
	}

	if !p.transport.IsConnected() {
		p.metrics.CommandPublished(metrics.ResultNotConnected)
		return CommandMessage{}, ErrNotConnected
	}

	if !p.allow(deviceID) {
		p.metrics.CommandPublished(metrics.ResultRateLimited)
		return CommandMessage{}, fmt.Errorf("%w: device %s", ErrRateLimited, deviceID)
	}

	if cmd.ReqID == "" {
		cmd.ReqID = p.newID()
	}
	if cmd.Params == nil {
		cmd.Params = map[string]any{}
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		p.metrics.CommandPublished(metrics.ResultError)
		return CommandMessage{}, fmt.Errorf("%w: encoding command: %w", ErrPublishFailed, err)
	}

	t := p.model.For(deviceID).Cmd
	if err := p.transport.Publish(t, payload, p.qos, false); err != nil {
		if errors.Is(err, mqtt.ErrNotConnected) {
			p.metrics.CommandPublished(metrics.ResultNotConnected)
			return CommandMessage{}, fmt.Errorf("%w: %w", ErrNotConnected, err)
		}
		p.metrics.CommandPublished(metrics.ResultError)
		return CommandMessage{}, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	p.metrics.CommandPublished(metrics.ResultSent)
	p.logger.Debug("command published",
		"device_id", deviceID,
		"command", cmd.Command,
		"req_id", cmd.ReqID,
	)
	return cmd, nil
}

func (p *Publisher) allow(deviceID string) bool {
	p.limMu.Lock()
	defer p.limMu.Unlock()

	if p.limit == rate.Inf {
		return true
	}
	lim, ok := p.limiters[deviceID]
	if !ok {
		lim = rate.NewLimiter(p.limit, p.burst)
		p.limiters[deviceID] = lim
	}
	return lim.Allow()
}
