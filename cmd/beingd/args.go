package main

// Args is the CLI struct go-arg parses into, following cli/cli.go's Args
// shape: plain fields with `arg` struct tags, a private version/description
// handle copied in at construction, and the Version/Description methods the
// library looks for by name.
type Args struct {
	Config string `arg:"--config,required" help:"path to the YAML config file (interval, motors, block wiring)"`
	Addr   string `arg:"--addr" help:"address to serve telemetry websocket and /metrics on"`
	DryRun bool   `arg:"--dry-run" help:"run against a simulated CAN backend instead of real hardware"`
	Debug  bool   `arg:"--debug" help:"enable verbose per-component logging"`

	version     string
	description string
}

// Version implements the interface go-arg looks for to answer --version.
func (a *Args) Version() string {
	return a.version
}

// Description implements the interface go-arg looks for to print a header
// above the usage message.
func (a *Args) Description() string {
	return a.description
}
