package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/sweeney/cabin-monitor/internal/config"
	"github.com/sweeney/cabin-monitor/internal/monitor"
	"github.com/sweeney/cabin-monitor/internal/mqtt"
	"github.com/sweeney/cabin-monitor/internal/notify"
	"github.com/sweeney/cabin-monitor/internal/sensor"
	"github.com/sweeney/cabin-monitor/internal/telemetry"
	"github.com/sweeney/cabin-monitor/internal/vision"
)

// app holds the opened hardware and network collaborators.
type app struct {
	deps    monitor.Deps
	sensor  sensor.Reader
	closers []io.Closer
	log     *zap.Logger
}

// Close releases everything in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
}

func build(ctx context.Context, cfg config.Config, log *zap.Logger) (_ *app, err error) {
	a := &app{log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	s, err := openSensor(cfg.Sensor)
	if err != nil {
		return nil, err
	}
	a.sensor = s
	a.closers = append(a.closers, s)

	var client *mqtt.RealClient
	if cfg.MQTT.Broker != "" {
		client, err = mqtt.NewRealClient(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			Username:   cfg.MQTT.Username,
			Password:   cfg.MQTT.Password,
			BufferSize: cfg.MQTT.BufferSize,
			Logger:     log,
		})
		if err != nil {
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		a.closers = append(a.closers, client)
		log.Info("mqtt connected", zap.String("broker", cfg.MQTT.Broker))
	}

	detector, err := openDetector(cfg, client, log)
	if err != nil {
		return nil, err
	}

	var sinks telemetry.Fanout
	if cfg.Influx.URL != "" {
		sinks = append(sinks, telemetry.NewInfluxSink(telemetry.InfluxOptions{
			URL:      cfg.Influx.URL,
			Database: cfg.Influx.Database,
			Username: cfg.Influx.Username,
			Password: cfg.Influx.Password,
			Timeout:  cfg.IOTimeout,
		}))
	}
	if client != nil {
		sinks = append(sinks, client)
	}
	if cfg.Redis.Addr != "" {
		rs, err := telemetry.NewRedisSink(ctx, telemetry.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Stream:   cfg.Redis.Stream,
			MaxLen:   cfg.Redis.MaxLen,
		})
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, rs)
		sinks = append(sinks, rs)
	}

	notifier, err := openNotifier(cfg, log)
	if err != nil {
		return nil, err
	}

	a.deps = monitor.Deps{
		Sensor:   s,
		Detector: detector,
		Sink:     sinks,
		Notifier: notifier,
		Logger:   log,
	}
	if client != nil {
		a.deps.Events = client
		a.deps.Connection = client
	}
	return a, nil
}

// openSensor opens the SCD30 on the configured I2C bus, using the RDY pin
// when a GPIO line is configured.
func openSensor(cfg config.SensorConfig) (*sensor.SCD30, error) {
	bus, err := sensor.OpenI2C(cfg.I2CDevice, sensor.Address)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}

	var ready sensor.ReadyLine
	if cfg.ReadyLine >= 0 {
		pin, err := sensor.OpenReadyPin(cfg.ReadyChip, cfg.ReadyLine)
		if err != nil {
			bus.Close()
			return nil, fmt.Errorf("open ready pin: %w", err)
		}
		ready = pin
	}

	s, err := sensor.NewSCD30(bus, ready, sensor.SCD30Options{
		Interval:        cfg.MeasureInterval,
		AmbientPressure: cfg.AmbientPressure,
	})
	if err != nil {
		if ready != nil {
			ready.Close()
		}
		bus.Close()
		return nil, fmt.Errorf("init scd30: %w", err)
	}
	return s, nil
}

func openDetector(cfg config.Config, client *mqtt.RealClient, log *zap.Logger) (monitor.Detector, error) {
	opts := vision.FeedOptions{
		MinConfidence: cfg.Vision.MinConfidence,
		MaxAge:        cfg.Vision.MaxAge,
	}
	switch cfg.Vision.Source {
	case config.SourceMQTT:
		if client == nil {
			return nil, errors.New("detections from mqtt require a broker")
		}
		feed, err := vision.NewMQTTFeed(client, cfg.Vision.Topic, opts, log.Named("vision"))
		if err != nil {
			return nil, err
		}
		return feed, nil
	case config.SourceHTTP:
		return vision.NewHTTPFeed(cfg.Vision.URL, cfg.Vision.Path, cfg.IOTimeout, opts), nil
	case config.SourceNone:
		log.Warn("no detection source, the cabin will always be treated as empty")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown detection source %q", cfg.Vision.Source)
	}
}

func openNotifier(cfg config.Config, log *zap.Logger) (notify.Notifier, error) {
	if cfg.DryRun {
		return notify.NewLogNotifier(log), nil
	}
	t, err := notify.NewTwilio(notify.TwilioOptions{
		BaseURL:    cfg.Twilio.BaseURL,
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		From:       cfg.Twilio.From,
		To:         cfg.Twilio.To,
		Timeout:    cfg.IOTimeout,
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
