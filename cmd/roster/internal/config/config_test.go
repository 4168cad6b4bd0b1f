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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/roster/database"
)

const sampleYAML = `
log:
  level: debug
database:
  type: postgres
  host: db.local
  port: 5432
  username: roster
  dbname: roster
  lock_timeout: 750ms
migrate:
  foreign_keys: true
  default_on_delete: cascade
init:
  environment: test
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, database.TypeSQLite, cfg.Database.Type)
	assert.Equal(t, database.DefaultLockTimeout, cfg.Database.LockTimeout)
	assert.True(t, cfg.Migrate.OnStartup)
	assert.Equal(t, "development", cfg.Init.Environment)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ROSTER_DATABASE_PASSWORD=from-env-file\n"), 0o600))
	t.Setenv("ROSTER_DATABASE_HOST", "override.local")
	t.Cleanup(func() { _ = os.Unsetenv("ROSTER_DATABASE_PASSWORD") })

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "override.local", cfg.Database.Host)
	assert.Equal(t, "from-env-file", cfg.Database.Password)
	assert.Equal(t, 750*time.Millisecond, cfg.Database.LockTimeout)

	dbCfg := cfg.ConfigLoader()
	assert.Equal(t, "postgres", dbCfg.ConnectionConfig.Type)
	assert.Equal(t, 5432, dbCfg.ConnectionConfig.Port)
	assert.Equal(t, 750*time.Millisecond, dbCfg.ConnectionConfig.GetLockTimeout())
	assert.Zero(t, dbCfg.ConnectionConfig.HealthCheckInterval)
	assert.True(t, dbCfg.DataMigrateConfig.EnableForeignKey)
	assert.Equal(t, "cascade", dbCfg.DataMigrateConfig.DefaultOnDelete)
	assert.Equal(t, "test", dbCfg.DataInitConfig.Environment)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
