package hub

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/nerrad567/neobridge/internal/infrastructure/config"
)

const (
	// terminator ends every request and response on the wire.
	terminator = 0x00

	// defaultTimeout bounds one exchange when the config leaves it unset.
	defaultTimeout = 10 * time.Second

	// maxResponseSize caps how much a single reply may buffer.
	maxResponseSize = 4 * 1024 * 1024
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Client talks to a neoHub over its JSON-over-TCP API.
//
// Each request opens a fresh connection, writes one NUL-terminated JSON
// command and reads one NUL-terminated reply. Transport failures are
// retried with avast/retry-go; hub-level rejections are not.
//
// Thread Safety:
//   - All methods are safe for concurrent use; no state is shared between requests.
type Client struct {
	address    string
	timeout    time.Duration
	attempts   uint
	retryDelay time.Duration
	maxReply   int
	logger     Logger
}

// New creates a hub client from configuration.
//
// Parameters:
//   - cfg: Hub host, port, timeout and retry settings
//   - logger: Optional logger (nil disables logging)
//
// Returns:
//   - *Client: Ready-to-use client (no connection is opened until the first request)
//   - error: ErrNotConfigured if no host is set
func New(cfg config.HubConfig, logger Logger) (*Client, error) {
	if cfg.Host == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = noopLogger{}
	}
	c := &Client{
		address:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		timeout:    cfg.Timeout,
		attempts:   1,
		retryDelay: cfg.RetryDelay,
		maxReply:   maxResponseSize,
		logger:     logger,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if cfg.Retries > 1 {
		c.attempts = uint(cfg.Retries)
	}
	return c, nil
}

// Address returns the host:port the client dials.
func (c *Client) Address() string {
	return c.address
}

// Call sends a raw JSON request and returns the decoded reply.
func (c *Client) Call(ctx context.Context, request json.RawMessage) (any, error) {
	if !json.Valid(request) {
		return nil, ErrInvalidRequest
	}
	raw, err := c.send(ctx, request)
	if err != nil {
		return nil, err
	}
	return decodeAny(raw)
}

// Devices returns every thermostat keyed by name.
func (c *Client) Devices(ctx context.Context) (map[string]Device, error) {
	records, err := c.info(ctx)
	if err != nil {
		return nil, err
	}
	devices := make(map[string]Device)
	for _, r := range records {
		if r.rec.Type == deviceTypePlug {
			continue
		}
		if r.invalid != nil {
			c.logger.Warn("skipping device with unusable reading", "device", r.rec.Name, "error", r.invalid)
			continue
		}
		devices[r.rec.Name] = Device{
			Name:        r.rec.Name,
			ID:          r.rec.ID,
			Temperature: float64(r.rec.Temperature),
			Heating:     r.rec.Heating,
			Frost:       r.rec.Standby,
			Offline:     r.rec.Offline,
		}
	}
	return devices, nil
}

// Plugs returns every smart plug keyed by name.
func (c *Client) Plugs(ctx context.Context) (map[string]Plug, error) {
	records, err := c.info(ctx)
	if err != nil {
		return nil, err
	}
	plugs := make(map[string]Plug)
	for _, r := range records {
		if r.rec.Type != deviceTypePlug {
			continue
		}
		plugs[r.rec.Name] = Plug{
			Name:    r.rec.Name,
			ID:      r.rec.ID,
			On:      r.rec.Timer,
			Offline: r.rec.Offline,
		}
	}
	return plugs, nil
}

// Update returns the full state record of every device keyed by name,
// exactly as the hub reported it.
func (c *Client) Update(ctx context.Context) (map[string]json.RawMessage, error) {
	records, err := c.info(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(records))
	for _, r := range records {
		out[r.rec.Name] = r.raw
	}
	return out, nil
}

// SetDiff sets the switching differential of a thermostat.
func (c *Client) SetDiff(ctx context.Context, key, value string) (any, error) {
	return c.command(ctx, "SET_DIFF", []any{numberOrString(value), key})
}

// SwitchOn turns a plug on.
func (c *Client) SwitchOn(ctx context.Context, plug string) (any, error) {
	return c.command(ctx, "TIMER_ON", plug)
}

// SwitchOff turns a plug off.
func (c *Client) SwitchOff(ctx context.Context, plug string) (any, error) {
	return c.command(ctx, "TIMER_OFF", plug)
}

// ZoneTitle renames a zone.
func (c *Client) ZoneTitle(ctx context.Context, zone, title string) (any, error) {
	return c.command(ctx, "ZONE_TITLE", []string{zone, title})
}

// RemoveZone deletes a zone from the hub.
func (c *Client) RemoveZone(ctx context.Context, zone string) (any, error) {
	return c.command(ctx, "REMOVE_ZONE", zone)
}

// FrostOn engages frost protection for a zone.
func (c *Client) FrostOn(ctx context.Context, zone string) (any, error) {
	return c.command(ctx, "FROST_ON", zone)
}

// FrostOff releases frost protection for a zone.
func (c *Client) FrostOff(ctx context.Context, zone string) (any, error) {
	return c.command(ctx, "FROST_OFF", zone)
}

// SetProgramMode switches the hub's program mode (e.g. "5DAY", "7DAY", "24HOURSFIXED").
func (c *Client) SetProgramMode(ctx context.Context, mode string) (any, error) {
	return c.command(ctx, "SET_PROGRAM_MODE", mode)
}

type infoRecord struct {
	rec record
	raw json.RawMessage

	// invalid is set when the record decoded without its temperature.
	invalid error
}

func (c *Client) info(ctx context.Context) ([]infoRecord, error) {
	raw, err := c.send(ctx, json.RawMessage(`{"INFO":0}`))
	if err != nil {
		return nil, err
	}
	var resp infoResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if resp.Devices == nil {
		return nil, fmt.Errorf("%w: missing devices", ErrInvalidResponse)
	}
	records := make([]infoRecord, 0, len(resp.Devices))
	for _, d := range resp.Devices {
		var rec record
		err := json.Unmarshal(d, &rec)
		if err == nil {
			records = append(records, infoRecord{rec: rec, raw: d})
			continue
		}
		if !errors.Is(err, ErrInvalidTemperature) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
		// Decoding stops at the bad field; read the rest without it.
		var partial struct {
			record
			Temperature json.RawMessage `json:"CURRENT_TEMPERATURE"`
		}
		if perr := json.Unmarshal(d, &partial); perr != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, perr)
		}
		records = append(records, infoRecord{rec: partial.record, raw: d, invalid: err})
	}
	return records, nil
}

func (c *Client) command(ctx context.Context, name string, arg any) (any, error) {
	request, err := json.Marshal(map[string]any{name: arg})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	raw, err := c.send(ctx, request)
	if err != nil {
		return nil, err
	}
	return decodeAny(raw)
}

// send performs one request with retries on transport failure.
func (c *Client) send(ctx context.Context, request []byte) ([]byte, error) {
	return retry.DoWithData(
		func() ([]byte, error) {
			return c.exchange(ctx, request)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrConnectionFailed)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("hub request failed, retrying", "attempt", n+1, "address", c.address, "error", err)
		}),
	)
}

// exchange opens one connection, writes the request and reads one reply.
func (c *Client) exchange(ctx context.Context, request []byte) ([]byte, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", c.address)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, c.address, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: set deadline: %w", ErrConnectionFailed, err)
	}

	c.logger.Debug("hub request", "address", c.address, "request", string(request))

	frame := make([]byte, 0, len(request)+1)
	frame = append(frame, request...)
	frame = append(frame, terminator)
	if _, err := conn.Write(frame); err != nil {
		return nil, fmt.Errorf("%w: write: %w", ErrConnectionFailed, err)
	}

	reader := bufio.NewReader(io.LimitReader(conn, int64(c.maxReply)))
	reply, err := reader.ReadBytes(terminator)
	if err != nil {
		// The limit looks like EOF to the reader; resending will not shrink the reply.
		if errors.Is(err, io.EOF) && len(reply) >= c.maxReply {
			return nil, fmt.Errorf("%w: reply exceeds %d bytes", ErrInvalidResponse, c.maxReply)
		}
		return nil, fmt.Errorf("%w: read: %w", ErrConnectionFailed, err)
	}
	return reply[:len(reply)-1], nil
}

func decodeAny(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return v, nil
}

// numberOrString sends numeric CLI arguments as JSON numbers.
func numberOrString(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
