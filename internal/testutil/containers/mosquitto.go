//go:build integration

//nolint:misspell // Mosquitto is the official Eclipse project name
package containers

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/smartalerte/smartalerte/internal/conf"
)

const (
	mosquittoImage   = "eclipse-mosquitto:2.0"
	mosquittoConf    = "listener 1883\nallow_anonymous true\n"
	mqttTokenTimeout = 10 * time.Second
)

// MosquittoContainer is an anonymous-access MQTT broker for the alert event
// publisher tests.
type MosquittoContainer struct {
	container testcontainers.Container
	brokerURL string
}

// NewMosquittoContainer starts a broker and waits until a client can connect.
func NewMosquittoContainer(ctx context.Context) (*MosquittoContainer, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        mosquittoImage,
			ExposedPorts: []string{"1883/tcp"},
			Cmd:          []string{"mosquitto", "-c", "/mosquitto/config/anonymous.conf"},
			Files: []testcontainers.ContainerFile{{
				Reader:            strings.NewReader(mosquittoConf),
				ContainerFilePath: "/mosquitto/config/anonymous.conf",
				FileMode:          0o644,
			}},
			WaitingFor: wait.ForListeningPort("1883/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Mosquitto container: %w", err)
	}

	mc := &MosquittoContainer{container: container}
	if err := mc.resolveURL(ctx); err != nil {
		_ = container.Terminate(context.Background())
		return nil, err
	}

	probe, err := mc.CreateClient("healthcheck")
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	probe.Disconnect(250)
	return mc, nil
}

func (c *MosquittoContainer) resolveURL(ctx context.Context) error {
	host, err := c.container.Host(ctx)
	if err != nil {
		return fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := c.container.MappedPort(ctx, "1883")
	if err != nil {
		return fmt.Errorf("failed to get mapped port: %w", err)
	}
	c.brokerURL = "tcp://" + net.JoinHostPort(host, port.Port())
	return nil
}

// BrokerURL returns the tcp:// URL of the broker.
func (c *MosquittoContainer) BrokerURL() string {
	return c.brokerURL
}

// Settings returns MQTT settings pointing the service client at this broker.
func (c *MosquittoContainer) Settings(clientID string) conf.MQTTSettings {
	return conf.MQTTSettings{
		Enabled:     true,
		Broker:      c.brokerURL,
		ClientID:    clientID,
		TopicPrefix: "smartalerte-test/alerts",
		QoS:         1,
		Timeout:     conf.Duration(mqttTokenTimeout),
	}
}

// CreateClient connects a raw paho client, typically a subscriber that
// observes what the service publishes. The caller disconnects it.
func (c *MosquittoContainer) CreateClient(clientID string) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(c.brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(mqttTokenTimeout).
		SetAutoReconnect(false)

	client := paho.NewClient(opts)
	if err := waitToken(client.Connect()); err != nil {
		return nil, fmt.Errorf("failed to connect client %s: %w", clientID, err)
	}
	return client, nil
}

// ClearRetained removes retained messages from topics by publishing empty
// retained payloads.
func (c *MosquittoContainer) ClearRetained(topics ...string) error {
	client, err := c.CreateClient("retained-cleaner")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	for _, topic := range topics {
		if err := waitToken(client.Publish(topic, 0, true, []byte{})); err != nil {
			return fmt.Errorf("failed to clear retained topic %s: %w", topic, err)
		}
	}
	return nil
}

// Terminate stops and removes the broker.
func (c *MosquittoContainer) Terminate(ctx context.Context) error {
	if c.container == nil {
		return nil
	}
	if err := c.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate container: %w", err)
	}
	return nil
}

func waitToken(token paho.Token) error {
	if !token.WaitTimeout(mqttTokenTimeout) {
		return fmt.Errorf("timed out after %s", mqttTokenTimeout)
	}
	return token.Error()
}
