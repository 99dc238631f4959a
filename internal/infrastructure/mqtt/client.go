package mqtt

import (
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/neobridge/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang with an explicit connection state.
//
// Paho owns the network session and its keepalive and reconnect goroutines;
// Client mirrors paho's callbacks into a State value that callers query
// with State or follow through StateChanges.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	state   State
	stateMu sync.RWMutex

	changes    chan State
	changesOut <-chan State
	changesMu  sync.Mutex

	// logger for connection events (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Connect establishes a connection to the MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Configures Last Will and Testament on heating/bridge/status
//  3. Sets up auto-reconnect with exponential backoff
//  4. Attempts initial connection with timeout
//
// The retained online status is published from the connect callback,
// so it is repeated after every reconnect.
//
// Parameters:
//   - cfg: MQTT configuration
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If initial connection fails within timeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	c := newClient(cfg)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		c.handleReconnecting()
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect callback runs asynchronously; record the state here so
	// the first Publish after Connect does not race it.
	c.setState(StateConnected)

	return c, nil
}

func newClient(cfg config.MQTTConfig) *Client {
	changes := make(chan State, stateChangeBuffer)
	return &Client{
		cfg:        cfg,
		state:      StateDisconnected,
		changes:    changes,
		changesOut: changes,
	}
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.setState(StateConnected)
	c.publishOnlineStatus()

	if logger := c.getLogger(); logger != nil {
		logger.Info("MQTT connected", "broker", c.cfg.Broker.Host, "client_id", c.cfg.Broker.ClientID)
	}
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.setState(StateDisconnected)

	if logger := c.getLogger(); logger != nil {
		logger.Warn("MQTT connection lost", "broker", c.cfg.Broker.Host, "error", err)
	}
}

// handleReconnecting is called before each reconnection attempt.
func (c *Client) handleReconnecting() {
	c.setState(StateReconnecting)
}

// publishOnlineStatus publishes the retained online status.
func (c *Client) publishOnlineStatus() {
	defer func() {
		if r := recover(); r != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("MQTT status publish panic recovered", "panic", r)
			}
		}
	}()
	payload := buildOnlinePayload(c.cfg.Broker.ClientID)
	c.client.Publish(Topics{}.BridgeStatus(), byte(c.cfg.QoS), true, payload)
}

// Close gracefully disconnects from the MQTT broker.
//
// It performs:
//  1. Publishes graceful offline status (different from LWT crash status)
//  2. Waits for pending publish operations
//  3. Disconnects from broker
//  4. Announces StateClosed and closes the StateChanges channel
//
// Returns:
//   - error: Always nil; a connection that is already down is not an error
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.State() == StateClosed {
		return nil
	}

	if c.IsConnected() {
		payload := buildOfflinePayload(c.cfg.Broker.ClientID)
		token := c.client.Publish(Topics{}.BridgeStatus(), byte(c.cfg.QoS), true, payload)
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)

	c.setState(StateClosed)

	c.changesMu.Lock()
	if c.changes != nil {
		close(c.changes)
		c.changes = nil
	}
	c.changesMu.Unlock()

	return nil
}

// IsConnected reports whether the tracked state is connected and paho agrees.
func (c *Client) IsConnected() bool {
	if c.client == nil {
		return false
	}
	return c.State() == StateConnected && c.client.IsConnected()
}

// SetLogger sets a logger for connection events.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}
