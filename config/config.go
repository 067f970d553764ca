package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"github.com/streambinder/hymnal/entity"
)

const name = "hymnal"

// Config holds all application configuration
type Config struct {
	Sources  SourcesConfig  `mapstructure:"sources"`
	Download DownloadConfig `mapstructure:"download"`
	Network  NetworkConfig  `mapstructure:"network"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Index    IndexConfig    `mapstructure:"index"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SourcesConfig selects the remote sites to query and how keywords are built
type SourcesConfig struct {
	Enabled []string `mapstructure:"enabled"`
	Prefix  string   `mapstructure:"prefix"` // e.g. "새찬송가"
	Unit    string   `mapstructure:"unit"`   // e.g. "장"
	Matcher string   `mapstructure:"matcher"`

	GetwaterURL string `mapstructure:"getwater_url"`
	CwyURL      string `mapstructure:"cwy_url"`
}

type DownloadConfig struct {
	Directory string `mapstructure:"directory"`
	Capacity  int    `mapstructure:"capacity"`
}

// NetworkConfig bounds every remote call
type NetworkConfig struct {
	UserAgent     string        `mapstructure:"user_agent"`
	SearchTimeout time.Duration `mapstructure:"search_timeout"`
	PageTimeout   time.Duration `mapstructure:"page_timeout"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	StreamTimeout time.Duration `mapstructure:"stream_timeout"`
}

// AgentConfig holds the defaults of the service agent
type AgentConfig struct {
	Service string `mapstructure:"service"` // "수요" or "금요"
	Auto    bool   `mapstructure:"auto"`
}

type IndexConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"`
}

type LoggingConfig struct {
	File  string `mapstructure:"file"` // "-" for stderr
	Level string `mapstructure:"level"`
}

const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Sources: SourcesConfig{
			Enabled:     []string{string(entity.SourceGetwater), string(entity.SourceCwy)},
			Prefix:      "새찬송가",
			Unit:        "장",
			Matcher:     "longest-run",
			GetwaterURL: "https://getwater.tistory.com",
			CwyURL:      "https://cwy0675.tistory.com",
		},
		Download: DownloadConfig{
			Directory: filepath.Join(xdg.UserDirs.Documents, name),
			Capacity:  7,
		},
		Network: NetworkConfig{
			UserAgent:     UserAgent,
			SearchTimeout: 30 * time.Second,
			PageTimeout:   30 * time.Second,
			ProbeTimeout:  5 * time.Second,
			StreamTimeout: 60 * time.Second,
		},
		Agent: AgentConfig{
			Service: "수요",
			Auto:    true,
		},
		Index: IndexConfig{
			Enabled: true,
			File:    filepath.Join(xdg.DataHome, name, "index.db"),
		},
		Logging: LoggingConfig{
			File:  filepath.Join(xdg.DataHome, name, name+".log"),
			Level: "INFO",
		},
	}
}

// Path returns the directory configuration is read from and saved to
func Path() string {
	return filepath.Join(xdg.ConfigHome, name)
}

func newViper(paths ...string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}
	v.SetEnvPrefix(strings.ToUpper(name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load loads configuration from file and environment,
// paths default to the xdg config directory and the working one
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = []string{Path(), "."}
	}

	cfg := DefaultConfig()
	v := newViper(paths...)
	bind(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to dir/config.yaml, dir defaults to Path()
func Save(cfg *Config, dir ...string) (string, error) {
	path := Path()
	if len(dir) > 0 {
		path = dir[0]
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	bind(v, cfg)
	file := filepath.Join(path, "config.yaml")
	if err := v.WriteConfigAs(file); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return file, nil
}

// bind registers every key with its value so that
// env overrides apply and written files use snake_case names
func bind(v *viper.Viper, cfg *Config) {
	v.SetDefault("sources.enabled", cfg.Sources.Enabled)
	v.SetDefault("sources.prefix", cfg.Sources.Prefix)
	v.SetDefault("sources.unit", cfg.Sources.Unit)
	v.SetDefault("sources.matcher", cfg.Sources.Matcher)
	v.SetDefault("sources.getwater_url", cfg.Sources.GetwaterURL)
	v.SetDefault("sources.cwy_url", cfg.Sources.CwyURL)

	v.SetDefault("download.directory", cfg.Download.Directory)
	v.SetDefault("download.capacity", cfg.Download.Capacity)

	v.SetDefault("network.user_agent", cfg.Network.UserAgent)
	v.SetDefault("network.search_timeout", cfg.Network.SearchTimeout)
	v.SetDefault("network.page_timeout", cfg.Network.PageTimeout)
	v.SetDefault("network.probe_timeout", cfg.Network.ProbeTimeout)
	v.SetDefault("network.stream_timeout", cfg.Network.StreamTimeout)

	v.SetDefault("agent.service", cfg.Agent.Service)
	v.SetDefault("agent.auto", cfg.Agent.Auto)

	v.SetDefault("index.enabled", cfg.Index.Enabled)
	v.SetDefault("index.file", cfg.Index.File)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// Validate reports configuration that makes any search pointless
func (cfg *Config) Validate() error {
	if len(cfg.Sources.Enabled) == 0 {
		return entity.ErrNoSources
	}
	return nil
}
