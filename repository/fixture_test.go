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
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/entity"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type fixture struct {
	db      *bun.DB
	counter *database.QueryCounter
	session *Session
	members *MemberRepository
	teams   *TeamRepository
}

// newFixture opens a private in-memory sqlite database with the registered tables.
func newFixture(t *testing.T, teamOpts ...TeamOption) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrationManager(db, database.GetLogger(), nil).RunMigrations(context.Background()))

	counter := database.NewQueryCounter()
	db.AddQueryHook(counter)

	session := NewSession(db)
	members, err := NewMemberRepository(session)
	require.NoError(t, err)
	teams, err := NewTeamRepository(session, teamOpts...)
	require.NoError(t, err)
	return &fixture{db: db, counter: counter, session: session, members: members, teams: teams}
}

// inTx runs fn in a transaction that is rolled back afterwards.
func (f *fixture) inTx(t *testing.T, fn func(ctx context.Context)) {
	t.Helper()
	errRollback := fmt.Errorf("rollback")
	err := f.session.Transactional(context.Background(), func(ctx context.Context) error {
		fn(ctx)
		return errRollback
	})
	require.ErrorIs(t, err, errRollback)
}

func (f *fixture) saveTeam(t *testing.T, ctx context.Context, name string) *entity.Team {
	t.Helper()
	team, err := f.teams.Save(ctx, entity.NewTeam(name))
	require.NoError(t, err)
	return team
}

func (f *fixture) saveMember(t *testing.T, ctx context.Context, name string, age int, team *entity.Team) *entity.Member {
	t.Helper()
	m, err := f.members.Save(ctx, entity.NewMemberWithTeam(name, age, team))
	require.NoError(t, err)
	return m
}

func userNames(ms []*entity.Member) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.UserName
	}
	return out
}
