// command scopelinkd is the host-side runtime daemon for the scope
// debug link: it owns the device manager, the scheduling engine, and
// the settings/saved-ports stores, and drives them against real
// serial ports.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/tomrford/scopelink/devicemgr"
	"github.com/tomrford/scopelink/engine"
	"github.com/tomrford/scopelink/savedports"
	"github.com/tomrford/scopelink/settings"
	"github.com/tomrford/scopelink/store"
	"github.com/tomrford/scopelink/transport"
	"github.com/tomrford/scopelink/transport/serialhandle"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "scopelinkd: %v\n", err)
		os.Exit(2)
	}
}

func run() error {
	log.SetFlags(log.Flags() &^ (log.Ldate | log.Ltime))

	var (
		settingsFile     = pflag.String("settings-file", "scopelink-settings.yaml", "Path to the YAML settings file.")
		savedPortsFile   = pflag.String("saved-ports-file", "scopelink-saved-ports.cbor", "Path to the saved-ports store.")
		baud             = pflag.IntP("baud", "b", 0, "Override the default serial baud rate.")
		requestTimeoutMs = pflag.Int("request-timeout-ms", 1000, "Per-request transport deadline, in milliseconds.")
		logLevel         = pflag.String("log-level", "info", "Log verbosity: quiet, info, or debug.")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scopelinkd [options] [port...]\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Each positional argument is a serial path to connect to at startup.\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	store := settings.Open(*settingsFile)
	cfg := store.Get()
	if store.Recovered() {
		log.Printf("scopelinkd: %s was malformed, recovered to defaults", *settingsFile)
	}
	if *baud > 0 {
		cfg.DefaultSerialCfg.Baud = *baud
	}
	if *logLevel == "debug" {
		log.Printf("scopelinkd: settings loaded: %+v", cfg)
	}

	ports := savedports.Open(*savedPortsFile)

	mgr := devicemgr.New(serialhandle.Open, time.Duration(*requestTimeoutMs)*time.Millisecond)
	eng := engine.New(mgr, engine.Config{
		CrcRetryAttempts: cfg.CrcRetryAttempts,
		FrameTimeoutMs:   cfg.FrameTimeoutMs,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go logEvents(eng, *logLevel)

	eng.StartPollers(ctx,
		hzToInterval(cfg.StatePollingHz),
		hzToInterval(cfg.FramePollingHz),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Run(ctx)
	}()
	log.Println("scopelinkd: running")

	for _, path := range pflag.Args() {
		serialCfg := defaultSerialConfig(cfg)
		if err := connectAtStartup(eng, path, serialCfg); err != nil {
			log.Printf("scopelinkd: %s: %v", path, err)
			continue
		}
	}
	for _, saved := range ports.List() {
		serialCfg := defaultSerialConfig(cfg)
		if saved.LastConfig != nil {
			serialCfg = *saved.LastConfig
		}
		if err := connectAtStartup(eng, saved.Path, serialCfg); err != nil {
			log.Printf("scopelinkd: %s: %v", saved.Path, err)
		}
	}

	<-done
	return nil
}

func connectAtStartup(eng *engine.Engine, path string, cfg transport.SerialConfig) error {
	cmd, result := engine.NewConnectCmd(path, cfg)
	if err := eng.Submit(cmd); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("connect timed out")
	}
}

func defaultSerialConfig(s settings.Settings) transport.SerialConfig {
	return transport.SerialConfig{
		Baud:        s.DefaultSerialCfg.Baud,
		DataBits:    s.DefaultSerialCfg.DataBits,
		Parity:      s.DefaultSerialCfg.Parity,
		StopBits:    s.DefaultSerialCfg.StopBits,
		ReadTimeout: time.Duration(s.DefaultSerialCfg.ReadTimeoutMs) * time.Millisecond,
	}
}

func hzToInterval(hz float64) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / hz)
}

// logEvents drains the engine's event stream to the log so the daemon
// is observable without a UI attached; quiet suppresses everything
// but disconnects and errors.
func logEvents(eng *engine.Engine, logLevel string) {
	for ev := range eng.Events() {
		switch logLevel {
		case "quiet":
			switch ev.(type) {
			case store.DeviceDisconnected, store.DeviceErrorEvent:
				log.Printf("scopelinkd: event: %+v", ev)
			}
		case "debug":
			log.Printf("scopelinkd: event: %+v", ev)
		default:
			log.Printf("scopelinkd: event: %T", ev)
		}
	}
}
