package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the configuration for connecting to a PostgreSQL database.
type PostgresConfig struct {
	// URL, when set, is used verbatim and wins over the discrete fields.
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN builds the connection string. In prod the host and credentials come from
// the SSM parameter store.
func (cfg *PostgresConfig) DSN(env string) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return cfg.dsnFor(env, cfg.DBName)
}

// ServerDSN points at the maintenance database so the target one can be created.
func (cfg *PostgresConfig) ServerDSN(env string) string {
	return cfg.dsnFor(env, "postgres")
}

func (cfg *PostgresConfig) dsnFor(env, dbName string) string {
	host, user, password := cfg.Host, cfg.User, cfg.Password
	if env == "prod" {
		host = getParameterStoreValue("PRICEBACKFILL_DB_HOST", true)
		user = getParameterStoreValue("PRICEBACKFILL_DB_USER", true)
		password = getParameterStoreValue("PRICEBACKFILL_DB_PASSWORD", true)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, dbName, cfg.SSLMode,
	)
	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}
	return dsn
}

// ResolveAPIKey returns the configured key, or reads it from SSM in prod when
// api_key_parameter is set.
func (cfg *EtherscanConfig) ResolveAPIKey(env string) (string, error) {
	if env != "prod" || cfg.APIKeyParameter == "" {
		if cfg.APIKey == "" {
			return "", errors.New("etherscan api key is empty")
		}
		return cfg.APIKey, nil
	}
	key := getParameterStoreValue(cfg.APIKeyParameter, true)
	if key == "" {
		return "", fmt.Errorf("ssm parameter %s is empty or unreadable", cfg.APIKeyParameter)
	}
	return key, nil
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	})
	if err != nil || result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
