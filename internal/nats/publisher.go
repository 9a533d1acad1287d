package nats

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/devup/internal/events"
)

// Publisher forwards lifecycle events from the event bus to NATS.
type Publisher struct {
	url      string
	eventBus *events.Bus
	conn     *nats.Conn
	unsubs   []func()
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewPublisher creates a new EventBus-to-NATS publisher.
func NewPublisher(url string, eventBus *events.Bus, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		url:      url,
		eventBus: eventBus,
		logger:   logger.With("component", "nats-publisher"),
	}
}

// Start connects to NATS and subscribes to the event bus.
// The caller may keep running without NATS if Start fails.
func (p *Publisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := nats.Connect(p.url,
		nats.Name("devup"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				p.logger.Warn("NATS publisher disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			p.logger.Info("NATS publisher reconnected")
		}),
	)
	if err != nil {
		return err
	}

	p.conn = conn
	p.logger.Info("NATS publisher connected", "url", p.url)

	p.unsubs = []func(){
		p.eventBus.Subscribe(func(e events.StateChangedEvent) {
			p.publish(SubjectProcess(e.Name, KindState), e)
		}),
		p.eventBus.Subscribe(func(e events.ReadyEvent) {
			p.publish(SubjectProcess(e.Name, KindReady), e)
		}),
		p.eventBus.Subscribe(func(e events.LaunchFailedEvent) {
			p.publish(SubjectProcess(e.Name, KindFailed), e)
		}),
		p.eventBus.Subscribe(func(e events.WatchErrorEvent) {
			p.publish(SubjectProcess(e.Name, KindError), e)
		}),
		p.eventBus.Subscribe(func(e events.StoppedEvent) {
			p.publish(SubjectProcess(e.Name, KindStopped), e)
		}),
		p.eventBus.Subscribe(func(e events.AllReadyEvent) {
			p.publish(SubjectStackReady, e)
		}),
		p.eventBus.Subscribe(func(e events.ShutdownStartedEvent) {
			p.publish(SubjectStackShutdown, e)
		}),
	}
	return nil
}

// publish sends v as JSON. No-op while disconnected.
func (p *Publisher) publish(subject string, v any) {
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Warn("Failed to marshal event", "error", err, "subject", subject)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish event", "error", err, "subject", subject)
		return
	}
	p.logger.Debug("Published event", "subject", subject)
}

// Stop unsubscribes from the bus, flushes pending messages and closes the
// connection.
func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, unsub := range p.unsubs {
		unsub()
	}
	p.unsubs = nil

	if p.conn != nil {
		if err := p.conn.FlushTimeout(time.Second); err != nil {
			p.logger.Debug("NATS flush failed", "error", err)
		}
		p.conn.Close()
		p.conn = nil
	}
	p.logger.Info("NATS publisher stopped")
}

// IsConnected returns true if the publisher is connected to NATS.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn != nil && p.conn.IsConnected()
}
