package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wfunc/traitorserver/models"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Rooms    RoomsConfig    `mapstructure:"rooms"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress       string        `mapstructure:"http_address"`
	RPCAddress        string        `mapstructure:"rpc_address"`
	DebugEndpoints    bool          `mapstructure:"debug_endpoints"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"` // empty allows any origin
	MetricsNamespace  string        `mapstructure:"metrics_namespace"`
	MessagesPerSecond float64       `mapstructure:"messages_per_second"`
	MessageBurst      int           `mapstructure:"message_burst"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	Heartbeat         time.Duration `mapstructure:"heartbeat"`
}

// GameConfig holds the defaults every new room starts from.
type GameConfig struct {
	MinPlayers         int           `mapstructure:"min_players"`
	MaxPlayers         int           `mapstructure:"max_players"`
	NightDuration      time.Duration `mapstructure:"night_duration"`
	DiscussionDuration time.Duration `mapstructure:"discussion_duration"`
	TrialDuration      time.Duration `mapstructure:"trial_duration"`
	VerdictDuration    time.Duration `mapstructure:"verdict_duration"`
}

// Rules returns the per-room settings, with minPlayers overriding the
// default when positive. The minimum never exceeds MaxPlayers when a cap is
// set, so every room can be started.
func (g GameConfig) Rules(minPlayers int) models.GameConfig {
	rules := models.GameConfig{
		MinPlayers:         g.MinPlayers,
		MaxPlayers:         g.MaxPlayers,
		NightDuration:      g.NightDuration,
		DiscussionDuration: g.DiscussionDuration,
		TrialDuration:      g.TrialDuration,
		VerdictDuration:    g.VerdictDuration,
	}
	if minPlayers > 0 {
		rules.MinPlayers = minPlayers
	}
	if rules.MaxPlayers > 0 && rules.MinPlayers > rules.MaxPlayers {
		rules.MinPlayers = rules.MaxPlayers
	}
	return rules
}

type RoomsConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type DatabaseConfig struct {
	// Driver is one of memory, gorm or postgres.
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the libpq connection string shared by both SQL drivers.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":9090")
	v.SetDefault("server.debug_endpoints", false)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.metrics_namespace", "traitors")
	v.SetDefault("server.messages_per_second", 10)
	v.SetDefault("server.message_burst", 20)
	v.SetDefault("server.write_timeout", 5*time.Second)
	v.SetDefault("server.heartbeat", 30*time.Second)

	v.SetDefault("game.min_players", 5)
	v.SetDefault("game.max_players", 16)
	v.SetDefault("game.night_duration", 60*time.Second)
	v.SetDefault("game.discussion_duration", 120*time.Second)
	v.SetDefault("game.trial_duration", 30*time.Second)
	v.SetDefault("game.verdict_duration", 20*time.Second)

	v.SetDefault("rooms.idle_ttl", 30*time.Minute)
	v.SetDefault("rooms.sweep_interval", time.Minute)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "traitors")
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// LoadConfig reads config.yaml from path, then environment variables such as
// TRAITORS_SERVER_HTTP_ADDRESS. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TRAITORS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Game.MinPlayers < 3 {
		return fmt.Errorf("game.min_players must be at least 3, got %d", c.Game.MinPlayers)
	}
	if c.Game.MaxPlayers > 0 && c.Game.MaxPlayers < c.Game.MinPlayers {
		return fmt.Errorf("game.max_players (%d) is below game.min_players (%d)", c.Game.MaxPlayers, c.Game.MinPlayers)
	}
	switch c.Database.Driver {
	case "memory", "gorm", "postgres":
	default:
		return fmt.Errorf("database.driver must be memory, gorm or postgres, got %q", c.Database.Driver)
	}
	return nil
}
