// Package mqtt wraps the Eclipse Paho client for publishing alert events.
package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/smartalerte/smartalerte/internal/conf"
	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/logger"
)

const (
	defaultTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds
)

// Client publishes payloads to an MQTT broker.
type Client interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Publish(ctx context.Context, topic, payload string) error
	PublishWithRetain(ctx context.Context, topic, payload string, retain bool) error
	Disconnect()
}

type client struct {
	settings conf.MQTTSettings
	log      logger.Logger

	mu   sync.Mutex
	paho paho.Client
}

// NewClient validates settings and returns an unconnected client.
func NewClient(settings conf.MQTTSettings, log logger.Logger) (Client, error) {
	if settings.Broker == "" {
		return nil, errors.Newf("mqtt broker is not configured").
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &client{settings: settings, log: log.Module("mqtt")}, nil
}

func (c *client) timeout() time.Duration {
	if d := c.settings.Timeout.Std(); d > 0 {
		return d
	}
	return defaultTimeout
}

func (c *client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.paho != nil && c.paho.IsConnected() {
		c.mu.Unlock()
		return nil
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.settings.Broker)
	clientID := c.settings.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("smartalerte-%d", time.Now().UnixNano())
	}
	opts.SetClientID(clientID)
	if c.settings.Username != "" {
		opts.SetUsername(c.settings.Username)
		opts.SetPassword(c.settings.Password)
	}
	opts.SetConnectTimeout(c.timeout())
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warn("mqtt connection lost", logger.String("broker", c.settings.Broker), logger.Error(err))
	})
	opts.SetOnConnectHandler(func(_ paho.Client) {
		c.log.Info("mqtt connected", logger.String("broker", c.settings.Broker))
	})

	pc := paho.NewClient(opts)
	c.paho = pc
	c.mu.Unlock()

	if err := wait(ctx, pc.Connect(), c.timeout()); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("operation", "connect").
			Context("broker", c.settings.Broker).
			Build()
	}
	return nil
}

func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paho != nil && c.paho.IsConnected()
}

func (c *client) Publish(ctx context.Context, topic, payload string) error {
	return c.PublishWithRetain(ctx, topic, payload, c.settings.Retain)
}

func (c *client) PublishWithRetain(ctx context.Context, topic, payload string, retain bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	pc := c.paho
	c.mu.Unlock()
	if pc == nil || !pc.IsConnected() {
		return errors.Newf("mqtt client is not connected").
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("topic", topic).
			Build()
	}

	if err := wait(ctx, pc.Publish(topic, c.settings.QoS, retain, payload), c.timeout()); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("operation", "publish").
			Context("topic", topic).
			Build()
	}
	return nil
}

func (c *client) Disconnect() {
	c.mu.Lock()
	pc := c.paho
	c.paho = nil
	c.mu.Unlock()
	if pc != nil && pc.IsConnected() {
		pc.Disconnect(disconnectQuiesce)
	}
}

// wait blocks on a Paho token, honouring ctx and a hard timeout.
func wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("mqtt operation timed out after %s", timeout)
	}
}
