package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type ICEServerConfig struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode        string            `mapstructure:"mode"`
	Port        int               `mapstructure:"port"`
	StaticPath  string            `mapstructure:"static_path"`
	ReadLimit   int64             `mapstructure:"read_limit"`
	PingPeriod  time.Duration     `mapstructure:"ping_period"`
	Secret      string            `mapstructure:"secret"`
	SessionTTL  time.Duration     `mapstructure:"session_ttl"`
	HistoryPath string            `mapstructure:"history_path"`
	ICEServers  []ICEServerConfig `mapstructure:"ice_servers"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("session_ttl", "1h")
	v.SetDefault("history_path", "./data/history.db")
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if _, err := cfg.ParseICEServers(); err != nil {
		return nil, err
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | TTL: %s\n", cfg.Mode, cfg.Port, cfg.SessionTTL)
	return &cfg, nil
}
