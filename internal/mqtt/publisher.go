// Package mqtt publishes confirmed gesture changes to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/mudra/internal/events"
)

var (
	// ErrNotConnected is returned when publishing before Connect succeeded.
	ErrNotConnected = errors.New("mqtt client not connected")

	// ErrQueueFull is returned when changes arrive faster than the broker takes them.
	ErrQueueFull = errors.New("mqtt publish queue full")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("mqtt publisher closed")
)

// Config holds broker settings.
type Config struct {
	Broker         string        `mapstructure:"broker" yaml:"broker"`
	ClientID       string        `mapstructure:"client_id" yaml:"client_id"`
	Username       string        `mapstructure:"username" yaml:"username"`
	Password       string        `mapstructure:"password" yaml:"password"`
	Topic          string        `mapstructure:"topic" yaml:"topic"`
	QoS            byte          `mapstructure:"qos" yaml:"qos"`
	Retain         bool          `mapstructure:"retain" yaml:"retain"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout" yaml:"publish_timeout"`
	QueueSize      int           `mapstructure:"queue_size" yaml:"queue_size"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool {
	return c.Broker != ""
}

// DefaultConfig returns a Config with publishing disabled.
func DefaultConfig() Config {
	return Config{
		ClientID:       "mudra",
		Topic:          "mudra/gestures",
		QoS:            1,
		PublishTimeout: 2 * time.Second,
		QueueSize:      64,
	}
}

// message is the JSON payload published for each change.
type message struct {
	Session   string `json:"session"`
	Label     string `json:"label"`
	Raw       string `json:"raw"`
	Hands     int    `json:"hands"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher is an events.Consumer that publishes to <topic>/<session>.
// Consume only queues the change; a single worker publishes in arrival order.
type Publisher struct {
	cfg    Config
	client paho.Client

	queue     chan events.Change
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	onError func(error)
}

// NewPublisher creates a Publisher with a paho client for cfg.
func NewPublisher(cfg Config) *Publisher {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c paho.Client) {
		slog.Info("mqtt connection established", "broker", cfg.Broker, "client_id", cfg.ClientID)
	}
	opts.OnConnectionLost = func(c paho.Client, err error) {
		slog.Warn("mqtt connection lost, will auto-reconnect", "broker", cfg.Broker, "error", err)
	}

	return NewPublisherWithClient(cfg, paho.NewClient(opts))
}

// NewPublisherWithClient creates a Publisher over an existing client.
func NewPublisherWithClient(cfg Config, client paho.Client) *Publisher {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultConfig().PublishTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	p := &Publisher{
		cfg:    cfg,
		client: client,
		queue:  make(chan events.Change, cfg.QueueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// OnError sets a function called for every change the worker failed to publish.
func (p *Publisher) OnError(fn func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = fn
}

// Connect connects to the broker, giving up when ctx is done.
func (p *Publisher) Connect(ctx context.Context) error {
	token := p.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("connect to %s: %w", p.cfg.Broker, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", p.cfg.Broker, err)
	}
	return nil
}

// Name returns the consumer name.
func (p *Publisher) Name() string { return "mqtt" }

// Topic returns the topic a session's changes are published to.
func (p *Publisher) Topic(sessionID string) string {
	return strings.TrimSuffix(p.cfg.Topic, "/") + "/" + sessionID
}

// Consume queues one change for publishing.
func (p *Publisher) Consume(c events.Change) error {
	select {
	case <-p.stop:
		return ErrClosed
	default:
	}
	if !p.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	select {
	case p.queue <- c:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for {
		select {
		case c := <-p.queue:
			p.deliver(c)
		case <-p.stop:
			for {
				select {
				case c := <-p.queue:
					p.deliver(c)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) deliver(c events.Change) {
	err := p.publish(c)
	if err == nil {
		return
	}
	slog.Warn("mqtt publish failed", "session", c.SessionID, "label", c.Label.String(), "error", err)

	p.mu.Lock()
	fn := p.onError
	p.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// publish sends one change and waits for the broker.
func (p *Publisher) publish(c events.Change) error {
	payload, err := json.Marshal(message{
		Session:   c.SessionID,
		Label:     string(c.Label),
		Raw:       string(c.Raw),
		Hands:     c.Hands,
		Timestamp: c.Timestamp.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	token := p.client.Publish(p.Topic(c.SessionID), p.cfg.QoS, p.cfg.Retain, payload)
	if !token.WaitTimeout(p.cfg.PublishTimeout) {
		return fmt.Errorf("publish timed out after %s", p.cfg.PublishTimeout)
	}
	return token.Error()
}

// Close publishes what is still queued and disconnects from the broker.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.stop)
		<-p.done
		if p.client.IsConnected() {
			p.client.Disconnect(250)
		}
	})
}
