package mqtt

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

var ErrTimeout = errors.New("mqtt operation timed out")

type Config struct {
	Broker               string
	ClientID             string
	Username             string
	Password             string
	CleanSession         bool
	KeepAlive            time.Duration
	ConnectTimeout       time.Duration
	OperationTimeout     time.Duration
	AutoReconnect        bool
	MaxReconnectInterval time.Duration
}

type Client struct {
	client mqtt.Client
	config *Config
	logger *zap.Logger

	onConnect []func()
}

type MessageHandler func(topic string, payload []byte)

func NewClient(config *Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		config: config,
		logger: logger.Named("mqtt"),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetCleanSession(config.CleanSession)
	opts.SetKeepAlive(config.KeepAlive)
	opts.SetConnectTimeout(config.ConnectTimeout)
	opts.SetAutoReconnect(config.AutoReconnect)
	opts.SetMaxReconnectInterval(config.MaxReconnectInterval)

	// paho runs this in its own goroutine, so hooks may block on tokens.
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		c.logger.Info("MQTT client connected", zap.String("broker", config.Broker))
		for _, fn := range c.onConnect {
			fn()
		}
	})

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		c.logger.Warn("MQTT connection lost", zap.Error(err))
	})

	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		c.logger.Info("Reconnecting to MQTT broker...")
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// OnConnect registers a hook run after every successful (re)connect. Register
// hooks before Connect.
func (c *Client) OnConnect(fn func()) {
	if fn != nil {
		c.onConnect = append(c.onConnect, fn)
	}
}

// Connect establishes a connection to the MQTT broker
func (c *Client) Connect() error {
	c.logger.Info("Connecting to MQTT broker", zap.String("broker", c.config.Broker))

	token := c.client.Connect()
	if err := c.wait(token, c.config.ConnectTimeout); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return nil
}

// Subscribe subscribes to a topic with handler
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	c.logger.Debug("Subscribing to topic", zap.String("topic", topic), zap.Uint8("qos", qos))

	token := c.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if err := c.wait(token, c.config.OperationTimeout); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	c.logger.Info("Subscribed to topic", zap.String("topic", topic))
	return nil
}

// Unsubscribe unsubscribes from a topic
func (c *Client) Unsubscribe(topics ...string) error {
	if len(topics) == 0 {
		return nil
	}
	token := c.client.Unsubscribe(topics...)
	return c.wait(token, c.config.OperationTimeout)
}

// Disconnect disconnects from MQTT broker
func (c *Client) Disconnect() {
	c.logger.Info("Disconnecting from MQTT broker...")
	c.client.Disconnect(250)
	c.logger.Info("Disconnected from MQTT broker")
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

func (c *Client) wait(token mqtt.Token, timeout time.Duration) error {
	if timeout <= 0 {
		token.Wait()
		return token.Error()
	}
	if !token.WaitTimeout(timeout) {
		return ErrTimeout
	}
	return token.Error()
}
