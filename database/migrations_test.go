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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type gadget struct {
	bun.BaseModel `bun:"table:gadget"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Label string `bun:"label"`
}

func init() {
	RegisteredModel(NewModelAdapter((*gadget)(nil), 1))
}

func openSQLite(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func writeSQL(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRunMigrations(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	mm := NewMigrationManager(db, GetLogger(), nil)

	require.NoError(t, mm.RunMigrations(ctx))
	require.NoError(t, mm.RunMigrations(ctx))

	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "001", applied[0].Version)
	assert.Equal(t, "create_base_tables", applied[0].Name)

	_, err = db.NewInsert().Model(&gadget{Label: "x"}).Exec(ctx)
	assert.NoError(t, err)
}

func TestRunMigrationsWithSeed(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeSQL(t, filepath.Join(root, "common", "001_gadget.sql"), "INSERT INTO gadget (label) VALUES ('common');\n")
	writeSQL(t, filepath.Join(root, "environments", "test", "001_gadget.sql"),
		"-- rendered per environment\nINSERT INTO gadget (label)\nVALUES ('{{.ENVIRONMENT}}');\n")

	db := openSQLite(t)
	mm := NewMigrationManager(db, GetLogger(), &Config{
		DataInitConfig: DataInitConfig{AutoInitOnMigration: true, Filepath: root, Environment: "test"},
	})
	require.NoError(t, mm.RunMigrations(ctx))

	var labels []string
	require.NoError(t, db.NewSelect().Model((*gadget)(nil)).Column("label").Order("id ASC").Scan(ctx, &labels))
	assert.Equal(t, []string{"common", "test"}, labels)

	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "003", applied[1].Version)

	// seeding is tracked, a second run does not insert again
	require.NoError(t, mm.RunMigrations(ctx))
	count, err := db.NewSelect().Model((*gadget)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestInitDataStopsAtFailingFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeSQL(t, filepath.Join(root, "environments", "development", "001_ok.sql"), "INSERT INTO gadget (label) VALUES ('ok');\n")
	writeSQL(t, filepath.Join(root, "environments", "development", "002_bad.sql"),
		"INSERT INTO gadget (label) VALUES ('partial');\nINSERT INTO missing_table (x) VALUES (1);\n")

	db := openSQLite(t)
	mm := NewMigrationManager(db, GetLogger(), &Config{DataInitConfig: DataInitConfig{Filepath: root}})
	require.NoError(t, mm.RunMigrations(ctx))

	err := mm.InitData(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_bad.sql")

	var labels []string
	require.NoError(t, db.NewSelect().Model((*gadget)(nil)).Column("label").Scan(ctx, &labels))
	assert.Equal(t, []string{"ok"}, labels)
}

func TestMigrationManagerWithoutDB(t *testing.T) {
	mm := NewMigrationManager(nil, nil, nil)
	assert.Error(t, mm.RunMigrations(context.Background()))
	assert.Error(t, mm.InitData(context.Background()))
}

func TestModelRegistryOrder(t *testing.T) {
	r := newModelRegistry()
	r.Register(NewModelAdapter("member", 20))
	r.Register(NewModelAdapter("team", 10))
	r.Register(NewModelAdapter("item", 20))
	r.RegisterForeignKey(ForeignKeyConstraint{Table: "member"})

	var names []interface{}
	for _, m := range r.Models() {
		names = append(names, m.Instance())
	}
	assert.Equal(t, []interface{}{"team", "member", "item"}, names)
	assert.Len(t, r.ForeignKeys(), 1)
}
