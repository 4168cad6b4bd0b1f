/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads the roster CLI configuration from a YAML file,
// an optional .env file and ROSTER_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tomoncle/roster/database"
)

const envPrefix = "ROSTER"

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Migrate  MigrateConfig  `mapstructure:"migrate"`
	Init     InitConfig     `mapstructure:"init"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Type           string        `mapstructure:"type"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"dbname"`
	SSLMode        string        `mapstructure:"sslmode"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	LockTimeout    time.Duration `mapstructure:"lock_timeout"`
	SlowQueryTime  time.Duration `mapstructure:"slow_query_time"`
	EnableQueryLog bool          `mapstructure:"enable_query_log"`
}

type MigrateConfig struct {
	OnStartup       bool   `mapstructure:"on_startup"`
	ForeignKeys     bool   `mapstructure:"foreign_keys"`
	ForeignKeyFile  string `mapstructure:"foreign_key_file"`
	DefaultOnDelete string `mapstructure:"default_on_delete"`
}

type InitConfig struct {
	OnMigration bool   `mapstructure:"on_migration"`
	Filepath    string `mapstructure:"filepath"`
	Environment string `mapstructure:"environment"`
}

// Load reads path when it is set, then applies envFile and the environment.
// Variables already set in the process win over envFile.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.type", database.TypeSQLite)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "roster.db")
	v.SetDefault("database.sslmode", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.lock_timeout", database.DefaultLockTimeout)
	v.SetDefault("database.slow_query_time", 2*time.Second)
	v.SetDefault("database.enable_query_log", false)

	v.SetDefault("migrate.on_startup", true)
	v.SetDefault("migrate.foreign_keys", false)
	v.SetDefault("migrate.foreign_key_file", "")
	v.SetDefault("migrate.default_on_delete", "restrict")

	v.SetDefault("init.on_migration", false)
	v.SetDefault("init.filepath", "configs/sql")
	v.SetDefault("init.environment", "development")
}

// ConfigLoader maps the CLI configuration onto the database layer.
func (c *Config) ConfigLoader() *database.Config {
	conn := database.DefaultConnectionConfig()
	conn.Type = c.Database.Type
	conn.Host = c.Database.Host
	conn.Port = c.Database.Port
	conn.Username = c.Database.Username
	conn.Password = c.Database.Password
	conn.DBName = c.Database.DBName
	conn.SSLMode = c.Database.SSLMode
	conn.MaxOpenConns = c.Database.MaxOpenConns
	conn.MaxIdleConns = c.Database.MaxIdleConns
	conn.LockTimeout = c.Database.LockTimeout
	conn.SlowQueryTime = c.Database.SlowQueryTime
	conn.EnableQueryLog = c.Database.EnableQueryLog
	// the CLI is short-lived
	conn.HealthCheckInterval = 0
	conn.EnableReconnect = false

	return &database.Config{
		ConnectionConfig: *conn,
		DataMigrateConfig: database.DataMigrateConfig{
			EnableMigrateOnStartup: c.Migrate.OnStartup,
			EnableForeignKey:       c.Migrate.ForeignKeys,
			ForeignKeyFile:         c.Migrate.ForeignKeyFile,
			DefaultOnDelete:        c.Migrate.DefaultOnDelete,
		},
		DataInitConfig: database.DataInitConfig{
			AutoInitOnMigration: c.Init.OnMigration,
			Filepath:            c.Init.Filepath,
			Environment:         c.Init.Environment,
		},
	}
}
