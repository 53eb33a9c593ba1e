package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen string       `yaml:"listen"`
	Tilt   TiltConfig   `yaml:"tilt"`
	Source SourceConfig `yaml:"source"`
	UDP    UDPConfig    `yaml:"udp"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Level  LevelConfig  `yaml:"level"`
}

type TiltConfig struct {
	ScreenRotation int           `yaml:"screen_rotation"`
	Mode           string        `yaml:"mode"`
	SamplingPeriod time.Duration `yaml:"sampling_period"`
	Filter         FilterConfig  `yaml:"filter"`
}

type FilterConfig struct {
	Type       string  `yaml:"type"`
	LowFactor  float64 `yaml:"low_factor"`
	HighFactor float64 `yaml:"high_factor"`
	Window     int     `yaml:"window"`
}

type SourceConfig struct {
	Kind   string       `yaml:"kind"`
	Sim    SimConfig    `yaml:"sim"`
	Serial SerialConfig `yaml:"serial"`
	I2C    I2CConfig    `yaml:"i2c"`
}

type SimConfig struct {
	Scenario string `yaml:"scenario"`
	Loop     bool   `yaml:"loop"`
}

type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type I2CConfig struct {
	Bus  string `yaml:"bus"`
	Addr uint8  `yaml:"addr"`
}

type UDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type MQTTConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

type LevelConfig struct {
	Enable       bool    `yaml:"enable"`
	Pin          int     `yaml:"pin"`
	ThresholdDeg float64 `yaml:"threshold_deg"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}

	switch cfg.Tilt.ScreenRotation {
	case 0, 90, 180, 270:
	default:
		return Config{}, fmt.Errorf("tilt.screen_rotation must be 0, 90, 180 or 270")
	}
	if cfg.Tilt.Mode == "" {
		cfg.Tilt.Mode = "absolute"
	}
	if cfg.Tilt.Mode != "absolute" && cfg.Tilt.Mode != "relative" {
		return Config{}, fmt.Errorf("tilt.mode must be absolute or relative")
	}
	if cfg.Tilt.SamplingPeriod <= 0 {
		cfg.Tilt.SamplingPeriod = 20 * time.Millisecond
	}

	if cfg.Tilt.Filter.Type == "" {
		cfg.Tilt.Filter.Type = "exponential"
	}
	if cfg.Tilt.Filter.Type != "exponential" && cfg.Tilt.Filter.Type != "moving_average" {
		return Config{}, fmt.Errorf("tilt.filter.type must be exponential or moving_average")
	}
	if cfg.Tilt.Filter.LowFactor == 0 {
		cfg.Tilt.Filter.LowFactor = 0.05
	}
	if cfg.Tilt.Filter.HighFactor == 0 {
		cfg.Tilt.Filter.HighFactor = 0.8
	}
	if cfg.Tilt.Filter.LowFactor < 0 || cfg.Tilt.Filter.LowFactor > 1 {
		return Config{}, fmt.Errorf("tilt.filter.low_factor must be in (0, 1]")
	}
	if cfg.Tilt.Filter.HighFactor < 0 || cfg.Tilt.Filter.HighFactor > 1 {
		return Config{}, fmt.Errorf("tilt.filter.high_factor must be in (0, 1]")
	}
	if cfg.Tilt.Filter.Window <= 0 {
		cfg.Tilt.Filter.Window = 10
	}

	switch cfg.Source.Kind {
	case "sim":
		if cfg.Source.Sim.Scenario == "" {
			return Config{}, fmt.Errorf("source.sim.scenario is required when source.kind is sim")
		}
	case "serial":
		if cfg.Source.Serial.Port == "" {
			return Config{}, fmt.Errorf("source.serial.port is required when source.kind is serial")
		}
		if cfg.Source.Serial.Baud <= 0 {
			cfg.Source.Serial.Baud = 115200
		}
	case "i2c":
		if cfg.Source.I2C.Bus == "" {
			cfg.Source.I2C.Bus = "/dev/i2c-1"
		}
		if cfg.Source.I2C.Addr == 0 {
			cfg.Source.I2C.Addr = 0x68
		}
	case "":
		return Config{}, fmt.Errorf("source.kind is required")
	default:
		return Config{}, fmt.Errorf("source.kind must be sim, serial or i2c")
	}

	if cfg.UDP.Enable && cfg.UDP.Dest == "" {
		return Config{}, fmt.Errorf("udp.dest is required when udp.enable is true")
	}

	if cfg.MQTT.Enable {
		if cfg.MQTT.Broker == "" {
			return Config{}, fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "tiltd"
		}
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = "tilt/orientation"
		}
	}

	if cfg.Level.Enable {
		if cfg.Level.Pin <= 0 {
			return Config{}, fmt.Errorf("level.pin is required when level.enable is true")
		}
		if cfg.Level.ThresholdDeg <= 0 {
			cfg.Level.ThresholdDeg = 2.0
		}
	}

	return cfg, nil
}
