package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keys. Each one can also be set through SDWAN_<KEY> in the environment.
const (
	KeyBaseURL        = "base_url"
	KeyUsername       = "username"
	KeyPassword       = "password"
	KeyInsecure       = "insecure"
	KeyRequestTimeout = "request_timeout"
	KeyOutput         = "output"
	KeyMarkdown       = "markdown"
	KeyGeocodeURL     = "geocode_url"
	KeyGeocodeTimeout = "geocode_timeout"
	KeyGeocodeDelay   = "geocode_delay"
	KeyUserAgent      = "user_agent"
	KeyLogLevel       = "log_level"
	KeyDebug          = "debug"
	KeyMetricsPort    = "metrics_port"
)

const (
	EnvPrefix = "SDWAN"
	fileName  = ".sdwan-sites"
)

// ErrMissingSetting is returned by Load when a required key has no value.
var ErrMissingSetting = errors.New("missing required setting")

// Settings is the resolved run configuration.
type Settings struct {
	BaseURL        string        `mapstructure:"base_url"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	Insecure       bool          `mapstructure:"insecure"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Output         string        `mapstructure:"output"`
	Markdown       string        `mapstructure:"markdown"`
	GeocodeURL     string        `mapstructure:"geocode_url"`
	GeocodeTimeout time.Duration `mapstructure:"geocode_timeout"`
	GeocodeDelay   time.Duration `mapstructure:"geocode_delay"`
	UserAgent      string        `mapstructure:"user_agent"`
	LogLevel       string        `mapstructure:"log_level"`
	Debug          bool          `mapstructure:"debug"`
	MetricsPort    string        `mapstructure:"metrics_port"`
}

// SetDefaults registers the non-secret defaults. Credentials never get one.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyInsecure, true)
	v.SetDefault(KeyRequestTimeout, 30*time.Second)
	v.SetDefault(KeyOutput, "sdwan_sites_geocoded.json")
	v.SetDefault(KeyGeocodeURL, "https://nominatim.openstreetmap.org/reverse")
	v.SetDefault(KeyGeocodeTimeout, 10*time.Second)
	v.SetDefault(KeyGeocodeDelay, time.Second)
	v.SetDefault(KeyUserAgent, "SD-WAN-Location-Mapper/1.0")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMetricsPort, "9101")
}

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	initViper(viper.GetViper(), cfgFile)
}

func initViper(v *viper.Viper, cfgFile string) {
	SetDefaults(v)

	if cfgFile != "" {
		// Use config file from the flag.
		v.SetConfigFile(cfgFile)
	} else {
		// Search config in home directory with name ".sdwan-sites" (without extension).
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(fileName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv() // read in environment variables that match

	// Unmarshal only sees keys viper already knows about, so register the env
	// binding of keys that have no default (the credentials in particular).
	for _, key := range []string{KeyBaseURL, KeyUsername, KeyPassword, KeyMarkdown} {
		_ = v.BindEnv(key)
	}

	// A missing config file is fine, flags and env can carry everything.
	_ = v.ReadInConfig()
}

// Load resolves the settings from the global viper instance.
func Load() (Settings, error) {
	return load(viper.GetViper())
}

func load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("parse config: %w", err)
	}

	s.BaseURL = strings.TrimRight(s.BaseURL, "/")

	var missing []string
	if s.BaseURL == "" {
		missing = append(missing, KeyBaseURL)
	}
	if s.Username == "" {
		missing = append(missing, KeyUsername)
	}
	if s.Password == "" {
		missing = append(missing, KeyPassword)
	}
	if len(missing) > 0 {
		return s, fmt.Errorf("%w: %s (set flags, config file or %s_* env vars)",
			ErrMissingSetting, strings.Join(missing, ", "), EnvPrefix)
	}

	return s, nil
}

// SaveProfile persists the controller URL and username. The password is never written.
func SaveProfile(baseURL, username string) error {
	return saveProfile(viper.GetViper(), baseURL, username)
}

func saveProfile(v *viper.Viper, baseURL, username string) error {
	target := v.ConfigFileUsed()
	if target == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		target = filepath.Join(home, fileName+".yaml")
	}

	out := viper.New()
	out.SetConfigType("yaml")
	out.SetConfigFile(target)

	// Keep whatever else the file already holds.
	if _, err := os.Stat(target); err == nil {
		if err := out.ReadInConfig(); err != nil {
			return fmt.Errorf("read %s: %w", target, err)
		}
	}

	out.Set(KeyBaseURL, strings.TrimRight(baseURL, "/"))
	out.Set(KeyUsername, username)

	return out.WriteConfigAs(target)
}
