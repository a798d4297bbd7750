// Package bus wraps an MQTT client behind the narrow contract SPEC_FULL.md
// §4.10/§6.3 requires: connect/disconnect, publish, and subscribe with a
// callback. Core components depend on the local Client interface rather
// than on github.com/eclipse/paho.mqtt.golang directly, the same narrowing
// the teacher applies in internal/interfaces/backend.go in front of a raw
// capability.
package bus

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cas-centre/stagecore/internal/logging"
)

// QoS levels used by the position/result/command topics (SPEC_FULL.md §6.3).
type QoS byte

const (
	QoSAtMostOnce  QoS = 0
	QoSAtLeastOnce QoS = 1
)

// MessageHandler is invoked for every message received on a subscribed
// topic. It must not block — the Dispatcher FIFO exists precisely so this
// callback can hand off the payload and return immediately.
type MessageHandler func(topic string, payload []byte)

// Client is the narrow bus contract core components depend on.
type Client interface {
	Connect() error
	Disconnect()
	Publish(topic string, payload []byte, qos QoS, retained bool) error
	Subscribe(topic string, qos QoS, handler MessageHandler) error
}

// Config configures an MQTT-backed Client.
type Config struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

// mqttClient adapts github.com/eclipse/paho.mqtt.golang to Client.
type mqttClient struct {
	client mqtt.Client
	logger *logging.Logger
}

// New creates an MQTT-backed Client from cfg. It does not connect; call
// Connect to do so.
func New(cfg Config, logger *logging.Logger) Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if logger != nil {
			logger.Warn("bus connection lost", "error", err)
		}
	})

	return &mqttClient{client: mqtt.NewClient(opts), logger: logger}
}

func (c *mqttClient) Connect() error {
	token := c.client.Connect()
	token.Wait()
	return token.Error()
}

func (c *mqttClient) Disconnect() {
	c.client.Disconnect(250)
}

func (c *mqttClient) Publish(topic string, payload []byte, qos QoS, retained bool) error {
	token := c.client.Publish(topic, byte(qos), retained, payload)
	token.Wait()
	return token.Error()
}

func (c *mqttClient) Subscribe(topic string, qos QoS, handler MessageHandler) error {
	token := c.client.Subscribe(topic, byte(qos), func(_ mqtt.Client, m mqtt.Message) {
		handler(m.Topic(), m.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

var _ Client = (*mqttClient)(nil)
