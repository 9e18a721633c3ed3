package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/lanetsoft/agent-hub/internal/agents"
	"github.com/lanetsoft/agent-hub/internal/api/http"
	"github.com/lanetsoft/agent-hub/internal/db"
)

type Config struct {
	Log      LogConfig
	Http     http.Config
	Database db.Config
	Auth     AuthConfig
	Agent    AgentConfig
}

type AuthConfig struct {
	JwtSecret      string `mapstructure:"jwt_secret"`
	SessionMinutes int    `mapstructure:"session_minutes"`
}

type AgentConfig struct {
	CredentialSecret string              `mapstructure:"credential_secret"`
	Runtime          agents.RuntimeConfig `mapstructure:"runtime"`
}

func InitConfig() Config {
	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/agent-hub-server")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	_ = viper.BindEnv("agent.credential_secret", "AGENT_CREDENTIAL_SECRET")

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(err)
	}

	initLogger(config.Log.Level)

	// Pretty print config as JSON (only at DEBUG level)
	if strings.EqualFold(config.Log.Level, "debug") {
		configJSON, err := json.MarshalIndent(redacted(config), "", "  ")
		if err == nil {
			fmt.Println("Config loaded:")
			fmt.Println(string(configJSON))
		}
	}

	return config
}

// redacted masks secrets before the config is printed.
func redacted(c Config) Config {
	if c.Auth.JwtSecret != "" {
		c.Auth.JwtSecret = "***"
	}
	if c.Agent.CredentialSecret != "" {
		c.Agent.CredentialSecret = "***"
	}
	if c.Database.Url != "" {
		c.Database.Url = "***"
	}
	return c
}
