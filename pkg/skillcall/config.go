package skillcall

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/harunnryd/skillcall/pkg/call"
	"github.com/harunnryd/skillcall/pkg/configutil"
	"github.com/harunnryd/skillcall/pkg/journal"
)

type Config struct {
	Backend       BackendConfig       `mapstructure:"backend"`
	Call          CallConfig          `mapstructure:"call"`
	Vendors       VendorsConfig       `mapstructure:"vendors"`
	Journal       JournalConfig       `mapstructure:"journal"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
	Twin          TwinConfig          `mapstructure:"twin"`
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
}

type BackendConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIPrefix string `mapstructure:"api_prefix"`
	Token     string `mapstructure:"token"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
	Retries   int    `mapstructure:"retries"`
}

type CallConfig struct {
	RingDelayMS       int `mapstructure:"ring_delay_ms"`
	IVRTickMS         int `mapstructure:"ivr_tick_ms"`
	TTSSafetyMS       int `mapstructure:"tts_safety_ms"`
	SaveRedirectMS    int `mapstructure:"save_redirect_ms"`
	BreakerThreshold  int `mapstructure:"breaker_threshold"`
	BreakerCooldownMS int `mapstructure:"breaker_cooldown_ms"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	TTS     VendorConfig `mapstructure:"tts"`
	Player  VendorConfig `mapstructure:"player"`
	Capture VendorConfig `mapstructure:"capture"`
	Ringer  VendorConfig `mapstructure:"ringer"`
}

type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type ObservabilityConfig struct {
	ArtifactsDir  string `mapstructure:"artifacts_dir"`
	RetentionDays int    `mapstructure:"retention_days"`
	EventBuffer   int    `mapstructure:"event_buffer"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

// TwinConfig configures the local stand-in backend served by skillsync-twin.
type TwinConfig struct {
	Addr          string `mapstructure:"addr"`
	JWTSecret     string `mapstructure:"jwt_secret"`
	LatencyMS     int    `mapstructure:"latency_ms"`
	VoiceDisabled bool   `mapstructure:"voice_disabled"`
}

// Timing maps the call section onto controller timers.
func (c CallConfig) Timing() call.Timing {
	return call.Timing{
		IVRTick:       configutil.Millis(c.IVRTickMS, 180*time.Millisecond),
		SafetyTimeout: configutil.Millis(c.TTSSafetyMS, 8*time.Second),
		SaveRedirect:  configutil.Millis(c.SaveRedirectMS, 1500*time.Millisecond),
	}
}

func (c CallConfig) RingDelay() time.Duration {
	return configutil.Millis(c.RingDelayMS, 3*time.Second)
}

// LoadConfig reads path (optional) and SKILLCALL_* environment overrides on
// top of the defaults. Strings may reference environment variables.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SKILLCALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.api_prefix", "/api")
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.timeout_ms", 30000)
	v.SetDefault("backend.retries", 2)
	v.SetDefault("call.ring_delay_ms", 3000)
	v.SetDefault("call.ivr_tick_ms", 180)
	v.SetDefault("call.tts_safety_ms", 8000)
	v.SetDefault("call.save_redirect_ms", 1500)
	v.SetDefault("call.breaker_threshold", 3)
	v.SetDefault("call.breaker_cooldown_ms", 30000)
	v.SetDefault("vendors.tts.provider", "backend")
	v.SetDefault("vendors.player.provider", "exec")
	v.SetDefault("vendors.capture.provider", "upload")
	v.SetDefault("vendors.ringer.provider", "delay")
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "")
	v.SetDefault("observability.artifacts_dir", "")
	v.SetDefault("observability.retention_days", 0)
	v.SetDefault("observability.event_buffer", 256)
	v.SetDefault("privacy.redact_pii", true)
	v.SetDefault("twin.addr", ":8000")
	v.SetDefault("twin.jwt_secret", "")
	v.SetDefault("twin.latency_ms", 0)
	v.SetDefault("twin.voice_disabled", false)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		cfg.Journal.Path = journal.DefaultPath()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := configutil.RequireString(c.Backend.BaseURL, "backend.base_url"); err != nil {
		return err
	}
	if c.Backend.Retries < 0 {
		return fmt.Errorf("backend.retries must not be negative")
	}
	for path, vc := range map[string]VendorConfig{
		"vendors.tts":     c.Vendors.TTS,
		"vendors.player":  c.Vendors.Player,
		"vendors.capture": c.Vendors.Capture,
		"vendors.ringer":  c.Vendors.Ringer,
	} {
		if err := configutil.RequireString(vc.Provider, path+".provider"); err != nil {
			return err
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.Observability.RetentionDays < 0 {
		return fmt.Errorf("observability.retention_days must not be negative")
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.TTS.Settings = expandSettings(cfg.Vendors.TTS.Settings)
	cfg.Vendors.Player.Settings = expandSettings(cfg.Vendors.Player.Settings)
	cfg.Vendors.Capture.Settings = expandSettings(cfg.Vendors.Capture.Settings)
	cfg.Vendors.Ringer.Settings = expandSettings(cfg.Vendors.Ringer.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	}
}
