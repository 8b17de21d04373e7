package config

import (
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// DefaultUserAgent is the default User-Agent string sent with all HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:147.0) Gecko/20100101 Firefox/147.0"

type Config struct {
	// Repository identifies the mirror repository as "owner/name". It is used
	// to build the public raw URLs that rewritten feeds point at. Bound to the
	// GITHUB_REPOSITORY environment variable.
	Repository string `mapstructure:"repository"`

	// Branch is the branch name embedded in raw URLs.
	Branch string `mapstructure:"branch"`

	SourcesFile  string `mapstructure:"sources_file"`
	DataDir      string `mapstructure:"data_dir"`
	IconsDir     string `mapstructure:"icons_dir"`
	IconsMapFile string `mapstructure:"icons_map_file"`
	ReadmeFile   string `mapstructure:"readme_file"`

	ProxyConnectionString string `mapstructure:"proxy_connection_string"`
	UserAgent             string `mapstructure:"user_agent"`

	LogLevel string `mapstructure:"log_level"`
	// LogFile enables a rotated log file next to console output when set.
	LogFile string `mapstructure:"log_file"`

	Fetch struct {
		Workers     int    `mapstructure:"workers"`
		Timeout     string `mapstructure:"timeout"`      // Go duration string like "60s", "2m", etc.
		IconTimeout string `mapstructure:"icon_timeout"` // Go duration string like "20s", etc.
	} `mapstructure:"fetch"`

	Cache struct {
		Provider string `mapstructure:"provider"` // "memory", "disk" or "redis"
		Path     string `mapstructure:"path"`     // directory used by the disk provider
		Size     int    `mapstructure:"size"`     // Maximum number of entries in the cache
		TTL      string `mapstructure:"ttl"`      // Go duration string like "720h", etc.
		Redis    struct {
			Address  string `mapstructure:"address"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"cache"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`

	Git struct {
		Enabled bool   `mapstructure:"enabled"`
		Push    bool   `mapstructure:"push"`
		Remote  string `mapstructure:"remote"`
	} `mapstructure:"git"`
}

// SplitRepository returns the owner and name halves of Repository.
// ok is false when the value is empty or not of the "owner/name" form.
func (c *Config) SplitRepository() (owner, name string, ok bool) {
	owner, name, found := strings.Cut(c.Repository, "/")
	if !found || owner == "" || name == "" {
		return "", "", false
	}
	return owner, name, true
}

var (
	globalConfig *Config
	logger       zerolog.Logger
)

func init() {
	// Initialize zerolog with console writer for human-readable output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stdout,
		NoColor: false,
	}).With().Timestamp().Logger()

	config, err := LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	// Parse and set log level from config
	level := zerolog.InfoLevel // default
	if config.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", config.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}

	// Set the global log level
	zerolog.SetGlobalLevel(level)

	// Rotate into a log file alongside console output when configured.
	if config.LogFile != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   config.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
		}
		logger = zerolog.New(zerolog.MultiLevelWriter(
			zerolog.ConsoleWriter{Out: os.Stdout, NoColor: false},
			fileWriter,
		)).With().Timestamp().Logger()
	}

	// Update logger with the configured level
	logger = logger.Level(level)

	logger.Info().Str("level", level.String()).Msg("Logging configured")
	globalConfig = config
	logger.Info().Msg("Configuration loaded successfully")
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variable support
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Add specific environment variables used by CI runners
	_ = viper.BindEnv("log_level", "LOG_LEVEL")
	_ = viper.BindEnv("repository", "GITHUB_REPOSITORY")

	// Set defaults
	viper.SetDefault("branch", "main")
	viper.SetDefault("sources_file", "sources.json")
	viper.SetDefault("data_dir", "data")
	viper.SetDefault("icons_dir", "icons")
	viper.SetDefault("icons_map_file", "icons_map.json")
	viper.SetDefault("readme_file", "README.md")
	viper.SetDefault("fetch.workers", 25)
	viper.SetDefault("fetch.timeout", "60s")
	viper.SetDefault("fetch.icon_timeout", "20s")
	viper.SetDefault("cache.provider", "disk")
	viper.SetDefault("cache.path", ".cache")
	viper.SetDefault("cache.size", 16)
	viper.SetDefault("cache.ttl", "720h")
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)
	viper.SetDefault("git.enabled", true)
	viper.SetDefault("git.push", true)
	viper.SetDefault("git.remote", "origin")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	return &config, nil
}

func GetConfig() *Config {
	return globalConfig
}

func GetUserAgent() string {
	if globalConfig != nil && globalConfig.UserAgent != "" {
		return globalConfig.UserAgent
	}

	return DefaultUserAgent
}

func GetLogger() zerolog.Logger {
	return logger
}
