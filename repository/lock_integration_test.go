//go:build integration

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

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/entity"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func setupPostgres(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:17.7"),
		postgres.WithDatabase("roster"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	sqldb, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	require.NoError(t, sqldb.Ping())

	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		require.NoError(t, container.Terminate(ctx))
	})
	require.NoError(t, database.NewMigrationManager(db, database.GetLogger(), nil).RunMigrations(ctx))
	return db
}

func TestPessimisticLockTimesOut(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	holder, err := NewMemberRepository(NewSession(db))
	require.NoError(t, err)
	_, err = holder.Save(ctx, entity.NewMemberWithAge("member1", 10))
	require.NoError(t, err)

	waiter, err := NewMemberRepository(NewSession(db, WithLockTimeout(200*time.Millisecond)))
	require.NoError(t, err)

	err = holder.Session().Transactional(ctx, func(ctx context.Context) error {
		locked, err := holder.FindLockByUserName(ctx, "member1")
		require.NoError(t, err)
		require.Len(t, locked, 1)

		start := time.Now()
		err = waiter.Session().Transactional(context.Background(), func(ctx context.Context) error {
			_, err := waiter.FindLockByUserName(ctx, "member1")
			return err
		})
		assert.ErrorIs(t, err, ErrLockTimeout)
		assert.Less(t, time.Since(start), 5*time.Second)
		return nil
	})
	require.NoError(t, err)

	// the lock is released on commit
	err = waiter.Session().Transactional(ctx, func(ctx context.Context) error {
		locked, err := waiter.FindLockByUserName(ctx, "member1")
		assert.Len(t, locked, 1)
		return err
	})
	require.NoError(t, err)
}
