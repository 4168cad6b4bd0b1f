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
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/entity"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/schema"
)

func newMockDB(t *testing.T, d schema.Dialect) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, d)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestLockTimeoutOnPostgres(t *testing.T) {
	db, mock := newMockDB(t, pgdialect.New())
	members, err := NewMemberRepository(NewSession(db, WithLockTimeout(250*time.Millisecond)))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '250ms'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FOR UPDATE").
		WillReturnError(&pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})
	mock.ExpectRollback()

	err = members.Session().Transactional(context.Background(), func(ctx context.Context) error {
		_, err := members.FindLockByUserName(ctx, "member1")
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockTimeout)

	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, database.LockTimeoutErr, pe.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverErrorClassificationOnMySQL(t *testing.T) {
	db, mock := newMockDB(t, mysqldialect.New())
	members, err := NewMemberRepository(NewSession(db))
	require.NoError(t, err)

	mock.ExpectQuery("SELECT \\* FROM member").
		WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table 'roster.member' doesn't exist"})

	_, err = members.FindByNativeQuery(context.Background(), "member1")
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, database.NoTableErr, pe.Kind)
	assert.False(t, errors.Is(err, ErrLockTimeout))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOfMissingRowIsNotFound(t *testing.T) {
	db, mock := newMockDB(t, pgdialect.New())
	teams, err := NewTeamRepository(NewSession(db))
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE "team"`).WillReturnResult(sqlmock.NewResult(0, 0))

	team := entity.NewTeam("teamA")
	team.ID = 42
	_, err = teams.Save(context.Background(), team)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWrapErr(t *testing.T) {
	assert.NoError(t, wrapErr("op", nil))

	inner := wrapErr("inner", errors.New("database is locked"))
	outer := wrapErr("outer", inner)
	assert.Same(t, inner, outer)
	assert.ErrorIs(t, outer, ErrLockTimeout)
	assert.Contains(t, outer.Error(), "inner")
}
