// Command beingd runs one being: it loads a YAML config, builds the motor
// controllers and block graph it describes, and drives them at a fixed
// interval until told to stop. Grounded on lib/run.go's startup sequence
// (build the runtime, install a signal handler, run until signalled) and
// cli/cli.go's go-arg based flag parsing.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/alexflint/go-arg"

	"github.com/being-run/being/being"
	"github.com/being-run/being/block"
	"github.com/being-run/being/canopen"
	"github.com/being-run/being/clock"
	"github.com/being-run/being/config"
	"github.com/being-run/being/scheduler"
	"github.com/being-run/being/telemetry"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "beingd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := &Args{}
	args.version = version
	args.description = "being: a realtime motion-block runtime for CiA-402 CANopen drives"

	parserConfig := arg.Config{Program: "beingd"}
	parser, err := arg.NewParser(parserConfig, args)
	if err != nil {
		return fmt.Errorf("beingd: cli config error: %w", err)
	}
	if err := parser.Parse(os.Args[1:]); err != nil {
		if err == arg.ErrHelp {
			parser.WriteHelp(os.Stdout)
			return nil
		}
		if err == arg.ErrVersion {
			fmt.Printf("%s\n", version)
			return nil
		}
		return err
	}

	logf := makeLogf("beingd", args.Debug)

	cfg, err := config.ParseFile(args.Config)
	if err != nil {
		return fmt.Errorf("beingd: load config: %w", err)
	}

	var backend canopen.CanBackend
	if args.DryRun {
		backend = newSimBackend()
	} else {
		// The real CAN transport driver is out of scope for this module;
		// a production deployment links one in here. Until one is linked,
		// --dry-run is the only supported mode.
		return fmt.Errorf("beingd: no CAN transport driver is linked into this binary; pass --dry-run to run against a simulated one")
	}

	broker := telemetry.NewBroker(4, 32, makeLogf("telemetry", args.Debug))
	defer broker.Close()

	motors, err := config.BuildMotors(cfg, backend, broker.HandleMotorEvent, makeLogf("canopen", args.Debug))
	if err != nil {
		return fmt.Errorf("beingd: build motors: %w", err)
	}

	clk := clock.New(cfg.Interval)
	clock.SetGlobal(clk)

	byID, err := config.BuildBlocks(cfg, clk, motors)
	if err != nil {
		return fmt.Errorf("beingd: build blocks: %w", err)
	}
	if err := config.Wire(cfg, byID); err != nil {
		return fmt.Errorf("beingd: wire blocks: %w", err)
	}

	seed := make([]block.Block, 0, len(byID))
	for _, b := range byID {
		seed = append(seed, b)
	}

	be, err := being.New(clk, seed, makeLogf("being", args.Debug))
	if err != nil {
		return fmt.Errorf("beingd: build graph: %w", err)
	}
	be.RegisterBackend(backend)
	defer be.Shutdown()

	if err := be.EnableMotors(); err != nil {
		logf("beingd: EnableMotors: %v", err)
	}
	if err := be.HomeMotors(); err != nil {
		logf("beingd: HomeMotors: %v", err)
	}

	sched := scheduler.New(cfg.Interval, cfg.WebInterval, be, backend, broker, makeLogf("scheduler", args.Debug))
	cancel := scheduler.ListenForSignals(sched)
	defer cancel()

	addr := args.Addr
	if addr == "" {
		addr = ":8080"
	}
	mux := http.NewServeMux()
	mux.Handle("/telemetry", broker)
	mux.Handle("/metrics", broker.MetricsHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logf("beingd: telemetry http server: %v", err)
		}
	}()
	defer httpServer.Close()

	logf("beingd: running (config=%s addr=%s dry_run=%v)", args.Config, addr, args.DryRun)
	if err := sched.Run(); err != nil {
		// scheduler.Run only returns on an unrecoverable single_cycle
		// failure; being is a single-process realtime loop, so there is
		// no graceful degraded mode to fall back to.
		log.Panicf("beingd: %v", err)
	}
	return nil
}

// makeLogf returns a log.Printf-based logger prefixed with component. It's
// a no-op for non-debug components other than the startup/shutdown lines
// explicitly logged above.
func makeLogf(component string, debug bool) func(string, ...interface{}) {
	prefix := "[" + component + "] "
	return func(format string, v ...interface{}) {
		if !debug && component != "beingd" {
			return
		}
		log.Printf(prefix+format, v...)
	}
}
