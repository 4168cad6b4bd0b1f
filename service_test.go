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

package roster

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/repository"
	"github.com/tomoncle/roster/types"
)

func newRoster(t *testing.T) *Roster {
	t.Helper()
	cfg := &database.Config{
		ConnectionConfig: database.ConnectionConfig{
			Type:        database.TypeSQLite,
			DBName:      filepath.Join(t.TempDir(), "roster.db"),
			LockTimeout: 500 * time.Millisecond,
		},
		DataMigrateConfig: database.DataMigrateConfig{
			EnableMigrateOnStartup: true,
			DefaultOnDelete:        "cascade",
		},
	}
	r, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestInit(t *testing.T) {
	r := newRoster(t)
	assert.Same(t, database.GetDB(), r.DB())
	assert.Equal(t, 500*time.Millisecond, r.Session().LockTimeout())
	assert.Equal(t, types.Cascade, r.Teams.DeletePolicy())
}

func TestInitRejectsBrokenDeclaredQueryWithoutMigration(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "roster.db")
	config := func(migrate bool) *database.Config {
		return &database.Config{
			ConnectionConfig:  database.ConnectionConfig{Type: database.TypeSQLite, DBName: path},
			DataMigrateConfig: database.DataMigrateConfig{EnableMigrateOnStartup: migrate},
		}
	}

	r, err := Init(ctx, config(true))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	// schema exists, startup without migrations still checks declared queries
	r, err = Init(ctx, config(false))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	const broken = "Member.findBroken"
	require.NoError(t, repository.NamedQueries().Register(repository.NamedQuery{Name: broken, Query: "SELEC m.* FROM membr m"}))
	t.Cleanup(func() { repository.NamedQueries().Unregister(broken) })

	_, err = Init(ctx, config(false))
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrInvalidQuery)
	assert.Contains(t, err.Error(), broken)
	assert.Nil(t, database.GetDB())
}

func TestRosterTransactional(t *testing.T) {
	r := newRoster(t)
	ctx := context.Background()

	err := r.Transactional(ctx, func(ctx context.Context) error {
		team, err := r.Teams.Save(ctx, entity.NewTeam("teamA"))
		if err != nil {
			return err
		}
		if _, err := r.Members.Save(ctx, entity.NewMemberWithTeam("member1", 10, team)); err != nil {
			return err
		}
		_, err = r.Items.Save(ctx, entity.NewItem("A"))
		return err
	})
	require.NoError(t, err)

	members, err := r.MemberQueries.FindAllMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.NotNil(t, members[0].TeamID)

	err = r.Transactional(ctx, func(ctx context.Context) error {
		return r.Teams.DeleteByID(ctx, *members[0].TeamID)
	})
	require.NoError(t, err)
	n, err := r.Members.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGenericService(t *testing.T) {
	r := newRoster(t)
	ctx := context.Background()
	teams := r.TeamService()
	members := r.MemberService()

	saved, err := teams.Save(ctx, entity.NewTeam("teamA"), entity.NewTeam("teamB"))
	require.NoError(t, err)
	require.Len(t, saved, 2)

	_, err = members.Save(ctx,
		entity.NewMemberWithTeam("member1", 10, saved[0]),
		entity.NewMemberWithTeam("member2", 20, saved[1]),
		entity.NewMemberWithTeam("member3", 30, saved[1]),
	)
	require.NoError(t, err)

	all, err := teams.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := teams.Get(ctx, saved[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "teamB", got.Name)

	page, err := members.Page(ctx, types.NewPageRequest(0, 2, types.NewQueryFilter("m.age > ?", 10), types.SortBy(types.Desc, "age")))
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalElements)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "member3", page.Content[0].UserName)

	listed, err := members.List(ctx, types.NewQueryFilter("m.user_name = ?", "member1"))
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	queried, err := members.Query(ctx, "m.age >= ?", 20)
	require.NoError(t, err)
	assert.Len(t, queried, 2)

	var names []string
	require.NoError(t, members.SelectBuilder(ctx).Column("user_name").Order("user_name").Scan(ctx, &names))
	assert.Equal(t, []string{"member1", "member2", "member3"}, names)

	require.NoError(t, teams.Delete(ctx, saved[0].ID))
	_, err = teams.Get(ctx, saved[0].ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
