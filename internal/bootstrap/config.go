package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Katago   KatagoConfig   `mapstructure:"katago"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Save     SaveConfig     `mapstructure:"save"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

type KatagoConfig struct {
	Engine  string        `mapstructure:"engine"`
	Model   string        `mapstructure:"model"`
	Config  string        `mapstructure:"config"`
	Timeout time.Duration `mapstructure:"timeout"`
}

const (
	ReportSideToMove = "SIDETOMOVE"
	ReportBlack      = "BLACK"
	ReportWhite      = "WHITE"

	AuthorityConfig = "config"
	AuthorityRecord = "record"
)

type AnalysisConfig struct {
	MaxVisits          uint32  `mapstructure:"max_visits"`
	Rules              string  `mapstructure:"rules"`
	Komi               float32 `mapstructure:"komi"`
	BoardSize          int     `mapstructure:"board_size"`
	IncludePolicy      bool    `mapstructure:"include_policy"`
	IncludeOwnership   bool    `mapstructure:"include_ownership"`
	IncludePV          bool    `mapstructure:"include_pv"`
	TolerateIncomplete bool    `mapstructure:"tolerate_incomplete"`
	// ReportAs must match reportAnalysisWinratesAs in the KataGo config.
	ReportAs      string `mapstructure:"report_as"`
	Authoritative string `mapstructure:"authoritative"`
}

type SaveConfig struct {
	AIBranches   bool `mapstructure:"ai_branches"`
	AIWinrate    bool `mapstructure:"ai_winrate"`
	AIVisits     bool `mapstructure:"ai_visits"`
	HumanWinrate bool `mapstructure:"human_winrate"`
	AsNewFile    bool `mapstructure:"as_new_file"`
}

type BatchConfig struct {
	Cooldown int `mapstructure:"cooldown"` // seconds between games
}

func (b BatchConfig) CooldownDuration() time.Duration {
	return time.Duration(b.Cooldown) * time.Second
}

type ServerConfig struct {
	Port        string `mapstructure:"port"`
	GrpcPort    string `mapstructure:"grpc_port"`
	IsLocalCors bool   `mapstructure:"local_cors"`
}

type StoreConfig struct {
	Driver     string `mapstructure:"driver"` // sqlite | mongo | none
	SqlitePath string `mapstructure:"sqlite_path"`
	MongoUri   string `mapstructure:"mongo_uri"`
	MongoDB    string `mapstructure:"mongo_db"`
}

type CacheConfig struct {
	RedisUrl string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("katago.engine", "katago")
	v.SetDefault("katago.model", "")
	v.SetDefault("katago.config", "analysis.cfg")
	v.SetDefault("katago.timeout", "2m")

	v.SetDefault("analysis.max_visits", 500)
	v.SetDefault("analysis.rules", "chinese")
	v.SetDefault("analysis.komi", 7.5)
	v.SetDefault("analysis.board_size", 19)
	v.SetDefault("analysis.include_policy", false)
	v.SetDefault("analysis.include_ownership", false)
	v.SetDefault("analysis.include_pv", true)
	v.SetDefault("analysis.tolerate_incomplete", false)
	v.SetDefault("analysis.report_as", ReportBlack)
	v.SetDefault("analysis.authoritative", AuthorityConfig)

	v.SetDefault("save.ai_branches", true)
	v.SetDefault("save.ai_winrate", true)
	v.SetDefault("save.ai_visits", false)
	v.SetDefault("save.human_winrate", true)
	v.SetDefault("save.as_new_file", true)

	v.SetDefault("batch.cooldown", 0)

	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.grpc_port", ":8082")
	v.SetDefault("server.local_cors", false)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "kata_review.db")
	v.SetDefault("store.mongo_uri", "")
	v.SetDefault("store.mongo_db", "kata_review")

	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "168h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Setup reads the config file at cfgPath (any format viper knows, usually
// TOML) and applies KATA_REVIEW_* environment overrides. An empty path
// means defaults plus environment only.
func Setup(cfgPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("KATA_REVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Analysis.MaxVisits == 0 {
		return fmt.Errorf("analysis.max_visits must be positive")
	}
	if c.Analysis.BoardSize < 2 || c.Analysis.BoardSize > 25 {
		return fmt.Errorf("analysis.board_size %d is not in 2..25", c.Analysis.BoardSize)
	}

	c.Analysis.ReportAs = strings.ToUpper(c.Analysis.ReportAs)
	switch c.Analysis.ReportAs {
	case ReportSideToMove, ReportBlack, ReportWhite:
	default:
		return fmt.Errorf("analysis.report_as %q is not one of SIDETOMOVE, BLACK, WHITE", c.Analysis.ReportAs)
	}

	c.Analysis.Authoritative = strings.ToLower(c.Analysis.Authoritative)
	switch c.Analysis.Authoritative {
	case AuthorityConfig, AuthorityRecord:
	default:
		return fmt.Errorf("analysis.authoritative %q is not one of config, record", c.Analysis.Authoritative)
	}

	switch c.Store.Driver {
	case "sqlite", "mongo", "none":
	default:
		return fmt.Errorf("store.driver %q is not one of sqlite, mongo, none", c.Store.Driver)
	}

	if c.Katago.Timeout < 0 {
		return fmt.Errorf("katago.timeout must not be negative")
	}
	return nil
}
