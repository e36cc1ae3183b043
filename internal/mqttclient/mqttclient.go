// Package mqttclient wraps github.com/eclipse/paho.mqtt.golang behind the
// narrow subscribe/publish surface the Admission Engine and Publisher
// Adapter actually need. Reconnect, a last-will "offline" beacon, and a
// retained "online" status on connect keep external monitors honest
// about the process's live state.
package mqttclient

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config holds the broker connection parameters.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	ClientID    string
	StatusTopic string // retained online/offline beacon; empty disables it
}

// Client is a connected MQTT session.
type Client struct {
	client mqtt.Client
	status string
}

// New connects to the broker described by cfg and blocks until the
// connection succeeds or times out.
func New(cfg Config) (*Client, error) {
	broker := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c := &Client{status: cfg.StatusTopic}

	if cfg.StatusTopic != "" {
		opts.SetWill(cfg.StatusTopic, "offline", 1, true)
		opts.SetOnConnectHandler(func(cli mqtt.Client) {
			cli.Publish(cfg.StatusTopic, 1, true, "online")
		})
	}

	cli := mqtt.NewClient(opts)
	token := cli.Connect()
	if ok := token.WaitTimeout(10 * time.Second); !ok {
		return nil, fmt.Errorf("mqttclient: connect timeout to %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqttclient: connect to %s: %w", broker, err)
	}

	c.client = cli
	return c, nil
}

// Subscribe registers handler for every message on topic. handler is
// invoked on paho's own goroutine; callers that must run on a single
// execution context (the Admission Engine) should hand the payload off
// over a channel rather than mutate shared state directly.
func (c *Client) Subscribe(topic string, qos byte, handler func(payload []byte)) error {
	token := c.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	return token.Error()
}

// Publish submits payload to topic, bounded by ctx's deadline (or a 5s
// default if ctx carries none).
func (c *Client) Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	timeout := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			timeout = d
		}
	}
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqttclient: publish to %s timed out after %v", topic, timeout)
	}
	return token.Error()
}

// Close publishes the retained "offline" beacon (if configured) and
// disconnects cleanly.
func (c *Client) Close() {
	if c.client == nil {
		return
	}
	if c.status != "" && c.client.IsConnected() {
		tok := c.client.Publish(c.status, 1, true, "offline")
		tok.WaitTimeout(2 * time.Second)
	}
	c.client.Disconnect(250)
}
