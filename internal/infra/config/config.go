// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Audio        AudioConfig             `yaml:"audio"`
	Mixer        MixerConfig             `yaml:"mixer"`
	Automation   AutomationConfig        `yaml:"automation"`
	Advisor      AdvisorConfig           `yaml:"advisor"`
	Effects      map[string]EffectConfig `yaml:"effects"`
	Notification NotificationConfig      `yaml:"notification"`
	Messages     MessagesConfig          `yaml:"messages"`
	Log          LogConfig               `yaml:"log"`
}

// AudioConfig represents the audio pipeline configuration.
type AudioConfig struct {
	SampleRate      int    `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BlockSize       int    `yaml:"block_size" default:"1024" validate:"gte=16,lte=16384"`
	ResampleQuality int    `yaml:"resample_quality" default:"4" validate:"gte=1,lte=6"`
	Output          string `yaml:"output" default:"speaker" validate:"oneof=speaker none"`
}

// MixerConfig represents mixer configuration.
type MixerConfig struct {
	MasterVolume float64 `yaml:"master_volume" default:"0.8" validate:"gte=0,lte=1"`
}

// AutomationConfig represents automation timing configuration.
type AutomationConfig struct {
	TransitionType    string   `yaml:"transition_type" default:"standard" validate:"oneof=quick standard long"`
	LoadLeadSec       int      `yaml:"load_lead_sec" default:"60" validate:"gte=1,lte=600"`
	StartLeadSec      int      `yaml:"start_lead_sec" default:"30" validate:"gte=1,lte=600"`
	MonitorIntervalMs int      `yaml:"monitor_interval_ms" default:"5000" validate:"gte=10,lte=60000"`
	ReadyIntervalMs   int      `yaml:"ready_interval_ms" default:"1000" validate:"gte=10,lte=60000"`
	PausedIntervalMs  int      `yaml:"paused_interval_ms" default:"500" validate:"gte=10,lte=60000"`
	LoadSettleMs      int      `yaml:"load_settle_ms" default:"1000" validate:"gte=0,lte=10000"`
	FadeSteps         int      `yaml:"fade_steps" default:"10" validate:"gte=1,lte=100"`
	EQCut             *float64 `yaml:"eq_cut_gain" default:"0.2" validate:"gte=0,lte=1"`
}

// AdvisorConfig represents advisor thresholds not shared with automation.
type AdvisorConfig struct {
	PrepareSec int `yaml:"prepare_sec" default:"90" validate:"gte=1,lte=600"`
}

// EffectConfig represents an effect stage's configuration.
type EffectConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// NotificationConfig represents notification hub configuration.
type NotificationConfig struct {
	SendTimeoutMs int `yaml:"send_timeout_ms" default:"500" validate:"gte=1,lte=10000"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	Success          string `yaml:"success" default:"OK"`
	DefaultError     string `yaml:"default_error" default:"Operation failed"`
	TrackNotFound    string `yaml:"track_not_found" default:"Track not found in queue"`
	LoadFailed       string `yaml:"load_failed" default:"Could not load audio"`
	DeckNotLoaded    string `yaml:"deck_not_loaded" default:"Deck has no track loaded"`
	InvalidDeck      string `yaml:"invalid_deck" default:"Unknown deck"`
	InvalidArgument  string `yaml:"invalid_argument" default:"Invalid argument"`
	InsufficientData string `yaml:"insufficient_data" default:"Track is missing bpm or duration"`
	PlanUnavailable  string `yaml:"plan_unavailable" default:"Need at least 2 tracks for a set"`
	AlreadyRunning   string `yaml:"already_running" default:"Automation is already running"`
	NotRunning       string `yaml:"not_running" default:"Automation is not running"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	File   string `yaml:"file"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Default returns a fully defaulted configuration without reading a file.
func Default() *Config {
	var cfg Config
	_ = cfg.overrideFromEnv()
	if err := cfg.setDefaults(); err != nil {
		panic(err)
	}
	return &cfg
}

func (c *Config) setDefaults() error {
	if err := defaults.Set(c); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if c.Effects == nil {
		c.Effects = map[string]EffectConfig{"eq": {Enabled: true}}
	}
	return nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	if v := os.Getenv("AUTODECK_SAMPLE_RATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid AUTODECK_SAMPLE_RATE %q", v)
		}
		c.Audio.SampleRate = n
	}
	if v := os.Getenv("AUTODECK_AUDIO_OUTPUT"); v != "" {
		c.Audio.Output = v
	}
	if v := os.Getenv("AUTODECK_MASTER_VOLUME"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid AUTODECK_MASTER_VOLUME %q", v)
		}
		c.Mixer.MasterVolume = f
	}
	if v := os.Getenv("AUTODECK_TRANSITION_TYPE"); v != "" {
		c.Automation.TransitionType = v
	}
	if v := os.Getenv("AUTODECK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Automation.StartLeadSec >= c.Automation.LoadLeadSec {
		return errors.Newf("start_lead_sec (%d) must be less than load_lead_sec (%d)",
			c.Automation.StartLeadSec, c.Automation.LoadLeadSec)
	}
	return nil
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "success":
		return c.Messages.Success
	case "track_not_found":
		return c.Messages.TrackNotFound
	case "load_failed":
		return c.Messages.LoadFailed
	case "deck_not_loaded":
		return c.Messages.DeckNotLoaded
	case "invalid_deck":
		return c.Messages.InvalidDeck
	case "invalid_argument":
		return c.Messages.InvalidArgument
	case "insufficient_data":
		return c.Messages.InsufficientData
	case "plan_unavailable":
		return c.Messages.PlanUnavailable
	case "already_running":
		return c.Messages.AlreadyRunning
	case "not_running":
		return c.Messages.NotRunning
	default:
		return c.Messages.DefaultError
	}
}

// IsEffectEnabled checks if an effect stage is enabled.
func (c *Config) IsEffectEnabled(name string) bool {
	if e, ok := c.Effects[name]; ok {
		return e.Enabled
	}
	return false
}

// LoadLead returns the automation load lead.
func (a AutomationConfig) LoadLead() time.Duration {
	return time.Duration(a.LoadLeadSec) * time.Second
}

// StartLead returns the automation start lead.
func (a AutomationConfig) StartLead() time.Duration {
	return time.Duration(a.StartLeadSec) * time.Second
}

// MonitorInterval returns the monitor poll interval.
func (a AutomationConfig) MonitorInterval() time.Duration {
	return time.Duration(a.MonitorIntervalMs) * time.Millisecond
}

// ReadyInterval returns the ready poll interval.
func (a AutomationConfig) ReadyInterval() time.Duration {
	return time.Duration(a.ReadyIntervalMs) * time.Millisecond
}

// PausedInterval returns the paused poll interval.
func (a AutomationConfig) PausedInterval() time.Duration {
	return time.Duration(a.PausedIntervalMs) * time.Millisecond
}

// LoadSettle returns the wait after loading the first track.
func (a AutomationConfig) LoadSettle() time.Duration {
	return time.Duration(a.LoadSettleMs) * time.Millisecond
}

// EQCutGain returns the gain applied to a cut band. An explicit 0 is kept.
func (a AutomationConfig) EQCutGain() float64 {
	if a.EQCut == nil {
		return 0.2
	}
	return *a.EQCut
}

// SendTimeout returns the per-subscriber send timeout.
func (n NotificationConfig) SendTimeout() time.Duration {
	return time.Duration(n.SendTimeoutMs) * time.Millisecond
}
