// Package config loads mudra settings from mudra.yaml and MUDRA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/mqtt"
)

// EnvPrefix is prepended to environment overrides, e.g. MUDRA_SERVER_ADDR.
const EnvPrefix = "MUDRA"

// Settings is the complete application configuration.
type Settings struct {
	Gesture  gesture.Config  `mapstructure:"gesture" yaml:"gesture"`
	Server   Server          `mapstructure:"server" yaml:"server"`
	Store    Store           `mapstructure:"store" yaml:"store"`
	Camera   capture.Config  `mapstructure:"camera" yaml:"camera"`
	Detector detector.Config `mapstructure:"detector" yaml:"detector"`
	MQTT     mqtt.Config     `mapstructure:"mqtt" yaml:"mqtt"`
	Logging  logging.Config  `mapstructure:"logging" yaml:"logging"`
	Tray     Tray            `mapstructure:"tray" yaml:"tray"`
}

// Server configures the HTTP API.
type Server struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	StaticDir string `mapstructure:"static_dir" yaml:"static_dir"`

	// SessionTTL evicts API sessions that received no frames for this long.
	SessionTTL   time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// Store configures the SQLite database.
type Store struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Tray configures the desktop indicator.
type Tray struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DataDir returns ~/.mudra, or the working directory when no home is set.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".mudra")
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Gesture: gesture.DefaultConfig(),
		Server: Server{
			Addr:         ":8080",
			SessionTTL:   10 * time.Minute,
			MaxBodyBytes: 1 << 20,
		},
		Store:    Store{Path: filepath.Join(DataDir(), "mudra.db")},
		Camera:   capture.DefaultConfig(),
		Detector: detector.DefaultConfig(),
		MQTT:     mqtt.DefaultConfig(),
		Logging:  logging.DefaultConfig(),
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("gesture.window_size", d.Gesture.WindowSize)
	v.SetDefault("gesture.majority_threshold", d.Gesture.MajorityThreshold)
	v.SetDefault("gesture.thumb_threshold", d.Gesture.ThumbThreshold)
	v.SetDefault("gesture.hand_proximity", d.Gesture.HandProximity)
	v.SetDefault("gesture.thumb_vertical_margin", d.Gesture.ThumbVerticalMargin)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("server.session_ttl", d.Server.SessionTTL)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)

	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("camera.device", d.Camera.Device)
	v.SetDefault("camera.width", d.Camera.Width)
	v.SetDefault("camera.height", d.Camera.Height)
	v.SetDefault("camera.idle_fps", d.Camera.IdleFPS)
	v.SetDefault("camera.active_fps", d.Camera.ActiveFPS)
	v.SetDefault("camera.motion_threshold", d.Camera.MotionThreshold)
	v.SetDefault("camera.idle_timeout", d.Camera.IdleTimeout)

	v.SetDefault("detector.max_hands", d.Detector.MaxHands)
	v.SetDefault("detector.min_confidence", d.Detector.MinConfidence)
	v.SetDefault("detector.min_tracking_confidence", d.Detector.MinTrackingConf)
	v.SetDefault("detector.script_path", d.Detector.ScriptPath)
	v.SetDefault("detector.python_path", d.Detector.PythonPath)

	v.SetDefault("mqtt.broker", d.MQTT.Broker)
	v.SetDefault("mqtt.client_id", d.MQTT.ClientID)
	v.SetDefault("mqtt.username", d.MQTT.Username)
	v.SetDefault("mqtt.password", d.MQTT.Password)
	v.SetDefault("mqtt.topic", d.MQTT.Topic)
	v.SetDefault("mqtt.qos", d.MQTT.QoS)
	v.SetDefault("mqtt.retain", d.MQTT.Retain)
	v.SetDefault("mqtt.publish_timeout", d.MQTT.PublishTimeout)
	v.SetDefault("mqtt.queue_size", d.MQTT.QueueSize)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("tray.enabled", d.Tray.Enabled)
}

// Load reads settings. When file is empty, mudra.yaml is looked up in the
// working directory and in DataDir; a missing file is not an error.
func Load(file string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("mudra")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DataDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

// Validate checks every section.
func (s *Settings) Validate() error {
	var errs []error
	if err := s.Gesture.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Camera.Validate(); err != nil {
		errs = append(errs, err)
	}
	if s.Server.Addr == "" {
		errs = append(errs, errors.New("server addr must be set"))
	}
	if s.Server.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("server session_ttl must be positive, got %s", s.Server.SessionTTL))
	}
	if s.Detector.MaxHands < 1 || s.Detector.MaxHands > gesture.MaxHands {
		errs = append(errs, fmt.Errorf("detector max_hands must be 1 or 2, got %d", s.Detector.MaxHands))
	}
	if s.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt qos must be 0, 1 or 2, got %d", s.MQTT.QoS))
	}
	if _, err := logging.NewHandler(nil, s.Logging); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Encode renders s as YAML.
func Encode(s *Settings) ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}

// DefaultYAML renders the built-in settings as YAML.
func DefaultYAML() ([]byte, error) {
	return Encode(Default())
}
