package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/nerrad567/neobridge/internal/hub"
	"github.com/nerrad567/neobridge/internal/snapshot"
)

// Exit codes returned by Run.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Hub is the subset of the hub client the dispatcher drives.
type Hub interface {
	Call(ctx context.Context, request json.RawMessage) (any, error)
	Update(ctx context.Context) (map[string]json.RawMessage, error)
	Devices(ctx context.Context) (map[string]hub.Device, error)
	Plugs(ctx context.Context) (map[string]hub.Plug, error)
	SetDiff(ctx context.Context, key, value string) (any, error)
	SwitchOn(ctx context.Context, plug string) (any, error)
	SwitchOff(ctx context.Context, plug string) (any, error)
	ZoneTitle(ctx context.Context, zone, title string) (any, error)
	RemoveZone(ctx context.Context, zone string) (any, error)
	FrostOn(ctx context.Context, zone string) (any, error)
	FrostOff(ctx context.Context, zone string) (any, error)
	SetProgramMode(ctx context.Context, mode string) (any, error)
}

// Logger interface for optional logging.
type Logger interface {
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Policy selects how a mutation's reply is turned into success or failure.
type Policy int

const (
	// Explicit classifies replies with hub.Accepted: an error object, null or false fails.
	Explicit Policy = iota

	// Legacy applies Truthy: empty replies fail even when the hub accepted them.
	Legacy
)

// Command is a token plus the positional arguments that follow it.
type Command struct {
	Name string
	Args []string
}

// Result is the normalised outcome of one command.
type Result struct {
	Code    int
	Payload any
	Err     error
}

func success(payload any) Result {
	return Result{Code: ExitOK, Payload: payload}
}

func failure(err error) Result {
	return Result{Code: ExitFailure, Err: err}
}

// Options configures a Dispatcher.
type Options struct {
	Hub    Hub
	Policy Policy
	Out    io.Writer
	Logger Logger
}

// Dispatcher maps a command token onto exactly one hub operation.
// It never retries; retrying transport failures is the hub client's job.
type Dispatcher struct {
	hub    Hub
	policy Policy
	out    io.Writer
	logger Logger
}

// New creates a Dispatcher. Output defaults to stdout.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		hub:    opts.Hub,
		policy: opts.Policy,
		out:    opts.Out,
		logger: opts.Logger,
	}
	if d.out == nil {
		d.out = os.Stdout
	}
	if d.logger == nil {
		d.logger = noopLogger{}
	}
	return d
}

type handler struct {
	args int
	run  func(d *Dispatcher, ctx context.Context, args []string) Result
}

var handlers = map[string]handler{
	"call":             {1, (*Dispatcher).call},
	"stat":             {1, (*Dispatcher).stat},
	"set_diff":         {2, mutation(func(ctx context.Context, h Hub, a []string) (any, error) { return h.SetDiff(ctx, a[0], a[1]) })},
	"switch_on":        {1, mutation(func(ctx context.Context, h Hub, a []string) (any, error) { return h.SwitchOn(ctx, a[0]) })},
	"switch_off":       {1, mutation(func(ctx context.Context, h Hub, a []string) (any, error) { return h.SwitchOff(ctx, a[0]) })},
	"rename_zone":      {2, mutation(func(ctx context.Context, h Hub, a []string) (any, error) { return h.ZoneTitle(ctx, a[0], a[1]) })},
	"remove_zone":      {1, mutation(func(ctx context.Context, h Hub, a []string) (any, error) { return h.RemoveZone(ctx, a[0]) })},
	"frost_on":         {1, mutation(func(ctx context.Context, h Hub, a []string) (any, error) { return h.FrostOn(ctx, a[0]) })},
	"frost_off":        {1, mutation(func(ctx context.Context, h Hub, a []string) (any, error) { return h.FrostOff(ctx, a[0]) })},
	"set_program_mode": {1, mutation(func(ctx context.Context, h Hub, a []string) (any, error) { return h.SetProgramMode(ctx, a[0]) })},
	"list":             {0, (*Dispatcher).list},
	"list-stats":       {0, (*Dispatcher).listStats},
	"stat-names":       {0, (*Dispatcher).statNames},
	"list-plugs":       {0, (*Dispatcher).listPlugs},
}

// Names returns every recognised command token, sorted.
func Names() []string {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch resolves and executes one command.
// Unknown tokens and missing arguments fail without contacting the hub.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) Result {
	h, ok := handlers[cmd.Name]
	if !ok {
		return failure(fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name))
	}
	if len(cmd.Args) < h.args {
		return failure(fmt.Errorf("%w: %s needs %d, got %d", ErrMissingArgument, cmd.Name, h.args, len(cmd.Args)))
	}
	return h.run(d, ctx, cmd.Args)
}

// Run dispatches a command, prints its outcome and returns the exit code.
// The device map from "list" is printed in the heating/state payload format.
func (d *Dispatcher) Run(ctx context.Context, name string, args []string) int {
	res := d.Dispatch(ctx, Command{Name: name, Args: args})
	if res.Err != nil {
		d.logger.Error("command failed", "command", name, "error", res.Err)
		return res.Code
	}

	if devices, ok := res.Payload.(map[string]hub.Device); ok && name == "list" {
		payload, err := snapshot.Marshal(snapshot.Build(devices))
		if err != nil {
			d.logger.Error("command failed", "command", name, "error", err)
			return ExitFailure
		}
		fmt.Fprintln(d.out, string(payload))
	}

	d.logger.Info("command complete", "command", name, "code", res.Code)
	return res.Code
}

// mutation wraps a hub operation whose reply is judged by the policy.
func mutation(op func(ctx context.Context, h Hub, args []string) (any, error)) func(*Dispatcher, context.Context, []string) Result {
	return func(d *Dispatcher, ctx context.Context, args []string) Result {
		resp, err := op(ctx, d.hub, args)
		if err != nil {
			return failure(err)
		}
		return d.ok(resp)
	}
}

// ok normalises a mutation reply. Failures print the reply's representation.
func (d *Dispatcher) ok(resp any) Result {
	var accepted bool
	switch d.policy {
	case Legacy:
		accepted = Truthy(resp)
	default:
		accepted = hub.Accepted(resp)
	}
	if accepted {
		return success(resp)
	}
	fmt.Fprintln(d.out, repr(resp))
	return Result{Code: ExitFailure, Payload: resp, Err: fmt.Errorf("%w: %s", ErrRejected, repr(resp))}
}

func (d *Dispatcher) call(ctx context.Context, args []string) Result {
	resp, err := d.hub.Call(ctx, json.RawMessage(args[0]))
	if err != nil {
		return failure(err)
	}
	if err := d.printJSON(resp); err != nil {
		return failure(err)
	}
	return success(resp)
}

func (d *Dispatcher) stat(ctx context.Context, args []string) Result {
	update, err := d.hub.Update(ctx)
	if err != nil {
		return failure(err)
	}
	raw, ok := update[args[0]]
	if !ok {
		return failure(fmt.Errorf("%w: %q", hub.ErrUnknownEntry, args[0]))
	}
	var entry any
	if err := json.Unmarshal(raw, &entry); err != nil {
		return failure(fmt.Errorf("%w: %w", hub.ErrInvalidResponse, err))
	}
	if err := d.printJSON(entry); err != nil {
		return failure(err)
	}
	return success(entry)
}

func (d *Dispatcher) list(ctx context.Context, _ []string) Result {
	devices, err := d.hub.Devices(ctx)
	if err != nil {
		return failure(err)
	}
	return success(devices)
}

func (d *Dispatcher) listStats(ctx context.Context, _ []string) Result {
	devices, err := d.hub.Devices(ctx)
	if err != nil {
		return failure(err)
	}
	for _, name := range sortedKeys(devices) {
		fmt.Fprintln(d.out, devices[name])
	}
	return success(nil)
}

func (d *Dispatcher) statNames(ctx context.Context, _ []string) Result {
	devices, err := d.hub.Devices(ctx)
	if err != nil {
		return failure(err)
	}
	for _, name := range sortedKeys(devices) {
		fmt.Fprintln(d.out, name)
	}
	return success(nil)
}

func (d *Dispatcher) listPlugs(ctx context.Context, _ []string) Result {
	plugs, err := d.hub.Plugs(ctx)
	if err != nil {
		return failure(err)
	}
	for _, name := range sortedKeys(plugs) {
		fmt.Fprintln(d.out, plugs[name])
	}
	return success(nil)
}

// printJSON writes v as indented JSON; encoding/json sorts map keys.
func (d *Dispatcher) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("command: encode response: %w", err)
	}
	_, err = fmt.Fprintln(d.out, string(data))
	return err
}

func repr(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
