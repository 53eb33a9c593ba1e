package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"tiltd/internal/config"
	"tiltd/internal/levelled"
	"tiltd/internal/mqttpub"
	"tiltd/internal/sensors/mpu9250"
	"tiltd/internal/seriallink"
	"tiltd/internal/sim"
	"tiltd/internal/tilt"
	"tiltd/internal/udp"
	"tiltd/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.Parse()

	logBuf := web.NewLogBuffer(0)
	log.SetOutput(io.MultiWriter(os.Stderr, logBuf))

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	host, attach, closeHost, err := openHost(cfg.Source)
	if err != nil {
		log.Fatalf("source init failed: %v", err)
	}
	defer closeHost()

	engine, err := newEngine(host, cfg.Tilt)
	if err != nil {
		log.Fatalf("engine init failed: %v", err)
	}
	attach(engine)

	status := web.NewStatus()
	status.SetStatic(cfg.Source.Kind, fmt.Sprintf("%d°", cfg.Tilt.ScreenRotation))
	status.SetMode(cfg.Tilt.Mode)
	broadcaster := web.NewTiltBroadcaster()

	engine.AddListener(func(yaw, pitch, roll float64) {
		o := web.OrientationSnapshot{Valid: true, YawDeg: yaw, PitchDeg: pitch, RollDeg: roll}
		status.SetOrientation(time.Now().UTC(), o)
		status.SetTier(engine.Tier().String())
		broadcaster.Publish(o)
	})

	if cfg.UDP.Enable {
		sender, err := udp.NewBroadcaster(cfg.UDP.Dest)
		if err != nil {
			log.Fatalf("udp init failed: %v", err)
		}
		defer sender.Close()
		engine.AddListener(func(yaw, pitch, roll float64) {
			if err := sender.SendTilt(yaw, pitch, roll); err != nil {
				log.WithError(err).Debug("udp send failed")
			}
		})
		log.Infof("udp dest=%s", cfg.UDP.Dest)
	}

	if cfg.MQTT.Enable {
		pub, err := mqttpub.NewPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err != nil {
			log.Fatalf("mqtt init failed: %v", err)
		}
		defer pub.Close()
		engine.AddListener(pub.PublishTilt)
	}

	if cfg.Level.Enable {
		ind, err := levelled.Open(cfg.Level.Pin, cfg.Level.ThresholdDeg)
		if err != nil {
			log.Fatalf("level led init failed: %v", err)
		}
		defer ind.Close()
		engine.AddListener(func(_, pitch, roll float64) {
			ind.Update(pitch, roll)
		})
		log.Infof("level led pin=%d threshold=%.1f°", cfg.Level.Pin, cfg.Level.ThresholdDeg)
	}

	if err := engine.StartTracking(); err != nil {
		log.Fatalf("start tracking failed: %v", err)
	}
	status.SetTracking(true)
	defer func() {
		_ = engine.StopTracking()
	}()

	log.Infof("tiltd starting source=%s mode=%s listen=%s", cfg.Source.Kind, cfg.Tilt.Mode, cfg.Listen)

	if err := web.Serve(ctx, cfg.Listen, status, broadcaster, logBuf, &engineController{engine: engine}); err != nil {
		log.Fatalf("web server failed: %v", err)
	}

	log.Infof("tiltd stopping")
}

func newEngine(host tilt.Host, tc config.TiltConfig) (*tilt.Engine, error) {
	rotation, err := tilt.ParseScreenRotation(tc.ScreenRotation)
	if err != nil {
		return nil, err
	}
	mode, err := tilt.ParseMode(tc.Mode)
	if err != nil {
		return nil, err
	}

	opts := tilt.Options{
		ScreenRotation: rotation,
		Mode:           mode,
		LowFactor:      tc.Filter.LowFactor,
		HighFactor:     tc.Filter.HighFactor,
		SamplingPeriod: tc.SamplingPeriod,
	}
	if tc.Filter.Type == "moving_average" {
		window := tc.Filter.Window
		opts.NewFilter = func(factor, initial float64) tilt.Filter {
			return tilt.NewMovingAverageFilter(window, factor, initial)
		}
	}
	return tilt.New(host, opts)
}

// openHost builds the configured sensor host. The host packages each declare
// their own sink interface so they do not import the engine; the returned
// attach closure wires the engine in once it exists.
func openHost(sc config.SourceConfig) (tilt.Host, func(e *tilt.Engine), func(), error) {
	switch sc.Kind {
	case "sim":
		script, err := sim.LoadScenarioScript(sc.Sim.Scenario)
		if err != nil {
			return nil, nil, nil, err
		}
		h, err := sim.NewHost(script, sc.Sim.Loop)
		if err != nil {
			return nil, nil, nil, err
		}
		return h, func(e *tilt.Engine) { h.Attach(e) }, h.Close, nil
	case "serial":
		h, err := seriallink.Open(sc.Serial.Port, sc.Serial.Baud)
		if err != nil {
			return nil, nil, nil, err
		}
		return h, func(e *tilt.Engine) { h.Attach(e) }, func() { _ = h.Close() }, nil
	case "i2c":
		h, err := mpu9250.Open(sc.I2C.Bus, uint16(sc.I2C.Addr))
		if err != nil {
			return nil, nil, nil, err
		}
		return h, func(e *tilt.Engine) { h.Attach(e) }, func() { _ = h.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown source kind %q", sc.Kind)
	}
}

// engineController exposes the engine's runtime controls to the web API.
type engineController struct {
	engine *tilt.Engine
}

func (c *engineController) ResetOrigin(immediate bool) error {
	return c.engine.ResetOrigin(immediate)
}

func (c *engineController) SetMode(mode string) error {
	m, err := tilt.ParseMode(mode)
	if err != nil {
		return err
	}
	return c.engine.SetMode(m)
}
