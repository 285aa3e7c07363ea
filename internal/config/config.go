package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/tatianab/gtfoklahoma/internal/stats"
)

// Config holds the application configuration.
type Config struct {
	GeminiAPIKey    string        `env:"GEMINI_API_KEY"`
	GeminiModel     string        `env:"GTFO_GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	ContentDir      string        `env:"GTFO_CONTENT_DIR"` // empty uses the built-in journey
	SaveDir         string        `env:"GTFO_SAVE_DIR" envDefault:".saves"`
	JournalDir      string        `env:"GTFO_JOURNAL_DIR" envDefault:".saves/journal"`
	DBPath          string        `env:"GTFO_DB_PATH" envDefault:".saves/journal.db"`
	TickDelay       time.Duration `env:"GTFO_TICK_DELAY"`
	DecisionTimeout time.Duration `env:"GTFO_DECISION_TIMEOUT" envDefault:"0s"` // 0 waits forever
	Seed            uint64        `env:"GTFO_SEED" envDefault:"0"`             // 0 picks a random seed
	LogLevel        string        `env:"GTFO_LOG_LEVEL" envDefault:"info"`
	LogFile         string        `env:"GTFO_LOG_FILE" envDefault:"logs/game.log"`
	ListenAddr      string        `env:"GTFO_LISTEN_ADDR" envDefault:":8080"`
}

// LoadConfig loads the configuration from environment variables. The
// tick delay defaults to the game's real-time pace.
func LoadConfig() (*Config, error) {
	cfg := Config{TickDelay: time.Second / stats.TicksPerRealSecond}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// RegisterFlags binds flags to cfg, using its current values as defaults,
// so flags override the environment.
func (cfg *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&cfg.ContentDir, "content", cfg.ContentDir, "directory with actions/events/issues/items/endings documents")
	fs.StringVar(&cfg.SaveDir, "saves", cfg.SaveDir, "directory for saved sessions")
	fs.StringVar(&cfg.JournalDir, "journal", cfg.JournalDir, "directory for session journals (empty disables)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite journal index (empty disables)")
	fs.DurationVar(&cfg.TickDelay, "tick", cfg.TickDelay, "real time per tick")
	fs.DurationVar(&cfg.DecisionTimeout, "timeout", cfg.DecisionTimeout, "how long to wait for a decision (0 waits forever)")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed (0 picks one)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file (empty logs to stderr)")
}

// Parse loads the environment and then applies flags from args.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	return cfg, nil
}
