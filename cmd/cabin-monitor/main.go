// Command cabin-monitor watches a vehicle cabin's air quality and occupants,
// publishes telemetry, and texts the owner when a person or animal is left
// inside in unsafe conditions.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sweeney/cabin-monitor/internal/config"
	"github.com/sweeney/cabin-monitor/internal/logger"
	"github.com/sweeney/cabin-monitor/internal/monitor"
	"github.com/sweeney/cabin-monitor/internal/sensor"
	"github.com/sweeney/cabin-monitor/internal/status"
	"github.com/sweeney/cabin-monitor/internal/web"
)

var version = "dev"

// cliOptions are flags that are not part of the daemon configuration.
type cliOptions struct {
	printReading bool
	wsBroker     string
}

func main() {
	cfg := config.Default()
	var opts cliOptions

	cmd := &cobra.Command{
		Use:   "cabin-monitor",
		Short: "Vehicle cabin CO2 and temperature monitor",
		Long: `cabin-monitor reads CO2, temperature and humidity from an SCD30,
counts people and animals reported by an object-detection feed, publishes
telemetry to InfluxDB, MQTT and Redis, and sends an SMS when someone is in
the vehicle while conditions are unsafe.

Credentials are read from the environment:
  CABIN_TWILIO_ACCOUNT_SID, CABIN_TWILIO_AUTH_TOKEN, CABIN_TWILIO_FROM, CABIN_TWILIO_TO
  CABIN_MQTT_USERNAME, CABIN_MQTT_PASSWORD, CABIN_INFLUX_USERNAME, CABIN_INFLUX_PASSWORD
  CABIN_REDIS_PASSWORD`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.LoadFromEnv(config.EnvPrefix); err != nil {
				return fmt.Errorf("environment: %w", err)
			}
			cfg.MQTT.WSBroker = resolveWSBroker(opts.wsBroker, cfg.MQTT.Broker)

			if opts.printReading {
				return printReading(cmd.Context(), cfg, cmd.OutOrStdout())
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}
	bindFlags(cmd, &cfg, &opts)

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

func bindFlags(cmd *cobra.Command, cfg *config.Config, opts *cliOptions) {
	f := cmd.Flags()

	f.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Loop interval")
	f.DurationVar(&cfg.IOTimeout, "io-timeout", cfg.IOTimeout, "Timeout for each sensor, detector, sink and notifier call")
	f.IntVar(&cfg.WindowSize, "window", cfg.WindowSize, "Sliding window size in samples")
	f.Float64Var(&cfg.Thresholds.CO2Max, "co2-max", cfg.Thresholds.CO2Max, "CO2 alert threshold (ppm)")
	f.Float64Var(&cfg.Thresholds.TempMax, "temp-max", cfg.Thresholds.TempMax, "Temperature alert threshold (°C)")
	f.DurationVar(&cfg.Thresholds.MinInterval, "min-alert-interval", cfg.Thresholds.MinInterval, "Minimum time between alerts")
	f.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "Heartbeat interval (0 to disable)")
	f.IntVar(&cfg.BootstrapAttempts, "bootstrap-attempts", cfg.BootstrapAttempts, "Sensor reads to try for the initial reading")
	f.DurationVar(&cfg.BootstrapWait, "bootstrap-wait", cfg.BootstrapWait, "Wait between initial reading attempts")
	f.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP status address (empty to disable)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json or console")
	f.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Log alerts instead of sending SMS")

	f.StringVar(&cfg.Sensor.I2CDevice, "i2c", cfg.Sensor.I2CDevice, "I2C bus device of the SCD30")
	f.StringVar(&cfg.Sensor.ReadyChip, "ready-chip", cfg.Sensor.ReadyChip, "GPIO chip of the SCD30 RDY pin")
	f.IntVar(&cfg.Sensor.ReadyLine, "ready-line", cfg.Sensor.ReadyLine, "GPIO line of the SCD30 RDY pin (-1 polls over I2C)")
	f.DurationVar(&cfg.Sensor.MeasureInterval, "measure-interval", cfg.Sensor.MeasureInterval, "SCD30 measurement interval (2s to 30m)")
	f.Uint16Var(&cfg.Sensor.AmbientPressure, "pressure", cfg.Sensor.AmbientPressure, "Ambient pressure in mbar for compensation (0 to disable)")

	f.StringVar(&cfg.Vision.Source, "detections", cfg.Vision.Source, "Detection source: mqtt, http or none")
	f.StringVar(&cfg.Vision.Topic, "detections-topic", cfg.Vision.Topic, "MQTT topic carrying detection frames")
	f.StringVar(&cfg.Vision.URL, "detections-url", cfg.Vision.URL, "Base URL of the detection HTTP API")
	f.StringVar(&cfg.Vision.Path, "detections-path", cfg.Vision.Path, "Path of the latest-detections endpoint")
	f.Float64Var(&cfg.Vision.MinConfidence, "min-confidence", cfg.Vision.MinConfidence, "Ignore detections below this confidence")
	f.DurationVar(&cfg.Vision.MaxAge, "max-frame-age", cfg.Vision.MaxAge, "Treat older detection frames as stale (0 to disable)")
	f.StringSliceVar(&cfg.Vision.PersonLabels, "person-labels", cfg.Vision.PersonLabels, "Class names counted as people")
	f.StringSliceVar(&cfg.Vision.AnimalLabels, "animal-labels", cfg.Vision.AnimalLabels, "Class names counted as animals")

	f.StringVar(&cfg.MQTT.Broker, "broker", cfg.MQTT.Broker, "MQTT broker address (empty to disable)")
	f.StringVar(&cfg.MQTT.ClientID, "mqtt-client-id", cfg.MQTT.ClientID, "MQTT client ID (generated when empty)")
	f.IntVar(&cfg.MQTT.BufferSize, "mqtt-buffer", cfg.MQTT.BufferSize, "Messages buffered while the broker is unreachable")
	f.StringVar(&opts.wsBroker, "ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)

	f.StringVar(&cfg.Influx.URL, "influx-url", cfg.Influx.URL, "InfluxDB URL (empty to disable)")
	f.StringVar(&cfg.Influx.Database, "influx-db", cfg.Influx.Database, "InfluxDB database")
	f.StringVar(&cfg.Redis.Addr, "redis-addr", cfg.Redis.Addr, "Redis address for the telemetry stream (empty to disable)")
	f.IntVar(&cfg.Redis.DB, "redis-db", cfg.Redis.DB, "Redis database")
	f.StringVar(&cfg.Redis.Stream, "redis-stream", cfg.Redis.Stream, "Redis stream key")
	f.Int64Var(&cfg.Redis.MaxLen, "redis-maxlen", cfg.Redis.MaxLen, "Redis stream length cap (0 for unbounded)")

	f.StringVar(&cfg.Twilio.From, "sms-from", cfg.Twilio.From, "SMS sender number")
	f.StringVar(&cfg.Twilio.To, "sms-to", cfg.Twilio.To, "SMS recipient number")

	f.BoolVar(&opts.printReading, "print-reading", false, "Print one sensor reading and exit")
}

func run(ctx context.Context, cfg config.Config) error {
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "cabin-monitor")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	svc, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	// Initial reading pre-fills the filters
	initial, err := monitor.Bootstrap(ctx, svc.sensor, cfg.BootstrapAttempts, cfg.BootstrapWait)
	if err != nil {
		return err
	}
	log.Info("initial reading",
		zap.Float64("co2", initial.CO2),
		zap.Float64("temperature", initial.Temperature),
		zap.Float64("humidity", initial.Humidity))

	start := time.Now()
	tracker := status.NewTracker(start, statusConfig(cfg))
	if info := readNetworkInfo(); info != nil {
		tracker.SetNetwork(info)
	}
	svc.deps.Tracker = tracker

	loop, err := monitor.New(svc.deps, monitor.Options{
		Initial:      initial,
		Start:        start,
		WindowSize:   cfg.WindowSize,
		Thresholds:   cfg.Thresholds,
		PersonLabels: cfg.Vision.PersonLabels,
		AnimalLabels: cfg.Vision.AnimalLabels,
		IOTimeout:    cfg.IOTimeout,
		Heartbeat:    cfg.Heartbeat,
	})
	if err != nil {
		return err
	}
	loop.Startup(start)

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", zap.String("addr", cfg.HTTPAddr))
	}

	log.Info("started",
		zap.Duration("interval", cfg.Interval),
		zap.Int("window", cfg.WindowSize),
		zap.Float64("co2_max", cfg.Thresholds.CO2Max),
		zap.Float64("temp_max", cfg.Thresholds.TempMax),
		zap.Strings("sinks", cfg.Sinks()),
		zap.String("notifier", cfg.Notifier()),
		zap.String("detections", cfg.Vision.Source))

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runLoop(ctx, loop, ticker.C, sigCh, time.Now, log)
}

// runLoop runs the monitor until a signal arrives or ctx is done, then
// publishes SHUTDOWN with the signal name.
func runLoop(ctx context.Context, loop *monitor.Loop, tick <-chan time.Time, sig <-chan os.Signal, now func() time.Time, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx, tick, now)
	}()

	reason := "CANCELLED"
	select {
	case s := <-sig:
		reason = signalName(s)
		log.Info("received signal, shutting down", zap.String("signal", reason))
	case <-ctx.Done():
		log.Info("context done, shutting down")
	}

	cancel()
	err := <-done
	loop.Shutdown(now(), reason)
	return err
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// printReading reads the sensor once and prints the measurement.
func printReading(ctx context.Context, cfg config.Config, w io.Writer) error {
	s, err := openSensor(cfg.Sensor)
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := monitor.Bootstrap(ctx, s, cfg.BootstrapAttempts, cfg.BootstrapWait)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, formatReading(r))
	return err
}

func formatReading(r sensor.Reading) string {
	return fmt.Sprintf("CO2: %.0f ppm, Temperature: %.1f °C, Humidity: %.1f %%RH", r.CO2, r.Temperature, r.Humidity)
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		IntervalMs:    cfg.Interval.Milliseconds(),
		WindowSize:    cfg.WindowSize,
		CO2Max:        cfg.Thresholds.CO2Max,
		TempMax:       cfg.Thresholds.TempMax,
		MinIntervalMs: cfg.Thresholds.MinInterval.Milliseconds(),
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		Broker:        cfg.MQTT.Broker,
		HTTPPort:      cfg.HTTPAddr,
		WSBroker:      cfg.MQTT.WSBroker,
		Sinks:         cfg.Sinks(),
		Notifier:      cfg.Notifier(),
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	if broker == "" {
		return ""
	}
	u, err := url.Parse(broker)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
