package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lbryio/thumbnailer/thumb"

	"github.com/spf13/viper"
)

const (
	configName = "thumbnailer"
	envPrefix  = "THUMBNAILER"
)

type Config struct {
	CacheDir    string `mapstructure:"cache_dir"`
	MediaRoot   string `mapstructure:"media_root"`
	Size        string
	Timestamp   string
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path"`
	Quality     int
	Debug       bool
	HTTP        HTTP
	Pregenerate Pregenerate
}

type HTTP struct {
	Bind string
}

type Pregenerate struct {
	Concurrency int
}

func ProjectRoot() (string, error) {
	ex, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(ex), nil
}

// Read loads thumbnailer.{yml,json,toml,...} from the executable directory or
// the working directory. A missing file leaves defaults and environment in effect.
func Read() (*Config, error) {
	v := newViper()
	v.SetConfigName(configName)
	if pp, err := ProjectRoot(); err == nil {
		v.AddConfigPath(pp)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("fatal error reading config file: %w", err)
		}
	}
	return unmarshal(v)
}

// ReadFile loads config from path, which has to exist.
func ReadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("fatal error reading config file: %w", err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	defaults := thumb.DefaultOptions()
	v.SetDefault("cache_dir", defaults.CacheRoot)
	v.SetDefault("media_root", "")
	v.SetDefault("size", defaults.Size.Name)
	v.SetDefault("timestamp", defaults.Timestamp)
	v.SetDefault("ffmpeg_path", "")
	v.SetDefault("ffprobe_path", "")
	v.SetDefault("quality", 3)
	v.SetDefault("debug", false)
	v.SetDefault("http.bind", ":8080")
	v.SetDefault("pregenerate.concurrency", 0)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return cfg, nil
}

// ThumbOptions converts config values into default thumbnail options.
func (c *Config) ThumbOptions() (thumb.Options, error) {
	opts := thumb.Options{
		CacheRoot: c.CacheDir,
		Timestamp: c.Timestamp,
	}
	if c.Size != "" {
		size, err := thumb.SizeByName(c.Size)
		if err != nil {
			return opts, err
		}
		opts.Size = size
	}
	return opts, nil
}
