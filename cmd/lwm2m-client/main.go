// Command lwm2m-client is an LwM2M client device with a simulated
// temperature sensor.
//
// The client exposes the Server (1), Device (3) and Temperature (3303)
// objects, registers with a management server over CoAP, keeps the
// registration alive with periodic updates and answers reads and
// discovery requests.
//
// Usage:
//
//	lwm2m-client [flags]
//
// Flags:
//
//	-config string         Configuration file path (YAML)
//	-server string         Management server host:port
//	-endpoint string       Endpoint name (default urn:uuid:<random>)
//	-lifetime int          Registration lifetime in seconds
//	-send-interval dur     Period of SenML SEND (0 disables)
//	-log-level string      Log level: debug, info, warn, error
//	-protocol-log string   Write a CBOR protocol trace to this file
//	-trace                 Also print protocol events to the log
//	-interactive           Start the interactive console
//
// Examples:
//
//	# Register with a local Leshan server
//	lwm2m-client -server localhost:5683 -endpoint dev1
//
//	# Use a config file and record a trace
//	lwm2m-client -config client.yaml -protocol-log client.cbor
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikegpl/lwm2m-go/cmd/lwm2m-client/interactive"
	"github.com/mikegpl/lwm2m-go/pkg/config"
	"github.com/mikegpl/lwm2m-go/pkg/log"
	"github.com/mikegpl/lwm2m-go/pkg/sensor"
	"github.com/mikegpl/lwm2m-go/pkg/service"
)

// Flags holds the command-line overrides.
type Flags struct {
	ConfigFile   string
	Server       string
	Endpoint     string
	Lifetime     int
	SendInterval time.Duration
	LogLevel     string
	ProtocolLog  string
	Trace        bool
	Interactive  bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.Server, "server", "", "Management server host:port")
	flag.StringVar(&flags.Endpoint, "endpoint", "", "Endpoint name (default urn:uuid:<random>)")
	flag.IntVar(&flags.Lifetime, "lifetime", 0, "Registration lifetime in seconds")
	flag.DurationVar(&flags.SendInterval, "send-interval", 0, "Period of SenML SEND (0 disables)")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "Write a CBOR protocol trace to this file")
	flag.BoolVar(&flags.Trace, "trace", false, "Also print protocol events to the log")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Start the interactive console")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	var console *interactive.Console
	var logOut io.Writer = os.Stderr
	if flags.Interactive {
		console, err = interactive.New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start console: %v\n", err)
			os.Exit(1)
		}
		logOut = console.Stderr()
	}

	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	protocolLogger, closeTrace, err := setupProtocolLogging(cfg, logger)
	if err != nil {
		logger.Error("failed to open protocol log", "path", cfg.Log.ProtocolFile, "error", err)
		os.Exit(1)
	}
	defer closeTrace()

	deviceCfg := service.DeviceConfigFrom(cfg)
	deviceCfg.Logger = logger
	deviceCfg.ProtocolLogger = protocolLogger

	source := sensor.NewRandomWalk(sensor.WalkConfig{
		Min:  cfg.Sensor.Min,
		Max:  cfg.Sensor.Max,
		Step: cfg.Sensor.Step,
	})
	svc, err := service.NewDeviceService(deviceCfg, source)
	if err != nil {
		logger.Error("failed to create device service", "error", err)
		os.Exit(1)
	}
	if console != nil {
		console.Bind(svc)
	} else {
		svc.OnEvent(func(e service.Event) { logEvent(logger, e) })
	}

	logger.Info("LwM2M client",
		"endpoint", cfg.Endpoint,
		"server", cfg.Server.Address,
		"lifetime", cfg.Registration.Lifetime,
		"binding", cfg.Registration.Binding)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		logger.Error("failed to start service", "error", err)
		os.Exit(1)
	}

	if console != nil {
		go console.Run(ctx, cancel)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if err := svc.Stop(); err != nil {
		logger.Warn("error stopping service", "error", err)
	}
}

// loadConfig reads the config file (if any) and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if flags.ConfigFile != "" {
		loaded, err := config.Load(flags.ConfigFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["server"] {
		cfg.Server.Address = flags.Server
	}
	if set["endpoint"] {
		cfg.Endpoint = flags.Endpoint
	}
	if set["lifetime"] {
		cfg.Registration.Lifetime = flags.Lifetime
	}
	if set["send-interval"] {
		cfg.Send.Interval = flags.SendInterval
	}
	if set["log-level"] {
		cfg.Log.Level = flags.LogLevel
	}
	if set["protocol-log"] {
		cfg.Log.ProtocolFile = flags.ProtocolLog
	}

	cfg = cfg.WithDefaults()
	return cfg, cfg.Validate()
}

// setupProtocolLogging builds the protocol logger from the trace file and
// the -trace flag. The returned func closes the trace file.
func setupProtocolLogging(cfg config.Config, logger *slog.Logger) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeFn := func() {}

	if cfg.Log.ProtocolFile != "" {
		fl, err := log.NewFileLogger(cfg.Log.ProtocolFile)
		if err != nil {
			return nil, closeFn, err
		}
		loggers = append(loggers, fl)
		closeFn = func() { _ = fl.Close() }
		logger.Info("protocol trace enabled", "path", cfg.Log.ProtocolFile)
	}
	if flags.Trace {
		loggers = append(loggers, log.NewSlogAdapter(logger).WithLevel(slog.LevelInfo))
	}

	switch len(loggers) {
	case 0:
		return nil, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return log.NewMultiLogger(loggers...), closeFn, nil
	}
}

func logEvent(logger *slog.Logger, e service.Event) {
	switch e.Type {
	case service.EventRegistered:
		logger.Info("registered", "location", e.Location)
	case service.EventUpdated:
		logger.Debug("registration updated", "location", e.Location)
	case service.EventRegistrationFailed:
		logger.Warn("registration attempt failed", "attempt", e.Attempt, "retry_in", e.RetryIn, "error", e.Error)
	case service.EventRegistrationLost:
		logger.Warn("registration lost")
	case service.EventDeregistered:
		logger.Info("deregistered")
	case service.EventSent:
		logger.Debug("sent", "records", e.Records)
	case service.EventSendFailed:
		logger.Warn("send failed", "error", e.Error)
	}
}
