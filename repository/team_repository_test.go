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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/types"
)

func TestTeamDeleteRestrictedByDefault(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, types.Restrict, f.teams.DeletePolicy())
	f.inTx(t, func(ctx context.Context) {
		team := f.saveTeam(t, ctx, "teamA")
		f.saveMember(t, ctx, "member1", 10, team)

		err := f.teams.Delete(ctx, team)
		assert.ErrorIs(t, err, ErrTeamHasMembers)

		ok, err := f.teams.ExistsByID(ctx, team.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestTeamDeleteCascade(t *testing.T) {
	f := newFixture(t, WithDeletePolicy(types.Cascade))
	f.inTx(t, func(ctx context.Context) {
		team := f.saveTeam(t, ctx, "teamA")
		m1 := f.saveMember(t, ctx, "member1", 10, team)
		f.saveMember(t, ctx, "member2", 10, nil)

		require.NoError(t, f.teams.DeleteByID(ctx, team.ID))

		_, err := f.members.FindByID(ctx, m1.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		n, err := f.members.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Nil(t, m1.Team)
		assert.Empty(t, team.Members)
	})
}

func TestTeamDeleteSetNull(t *testing.T) {
	f := newFixture(t)
	f.inTx(t, func(ctx context.Context) {
		team := f.saveTeam(t, ctx, "teamA")
		m1 := f.saveMember(t, ctx, "member1", 10, team)

		require.NoError(t, f.teams.DeleteWithPolicy(ctx, team, types.SetNull))

		found, err := f.members.FindByID(ctx, m1.ID)
		require.NoError(t, err)
		assert.Nil(t, found.TeamID)
		assert.Nil(t, m1.TeamID)

		teams, err := f.teams.FindByName(ctx, "teamA")
		require.NoError(t, err)
		assert.Empty(t, teams)
	})
}

func TestTeamLoadMembers(t *testing.T) {
	f := newFixture(t)
	f.inTx(t, func(ctx context.Context) {
		teamA := f.saveTeam(t, ctx, "teamA")
		f.saveMember(t, ctx, "member1", 10, teamA)
		f.saveMember(t, ctx, "member2", 20, teamA)
		f.session.Current(ctx).Clear()

		team, err := f.teams.FindByID(ctx, teamA.ID)
		require.NoError(t, err)
		members, err := f.teams.LoadMembers(ctx, team)
		require.NoError(t, err)
		assert.Equal(t, []string{"member1", "member2"}, userNames(members))
		assert.Same(t, team, members[0].Team)
		assert.True(t, team.HasMember(members[1]))

		_, err = f.teams.LoadMembers(ctx, entity.NewTeam("transient"))
		assert.ErrorIs(t, err, ErrTransientEntity)
	})
}

func TestItemAssignedID(t *testing.T) {
	f := newFixture(t)
	items, err := NewItemRepository(f.session)
	require.NoError(t, err)

	f.inTx(t, func(ctx context.Context) {
		item := entity.NewItem("A")
		assert.True(t, item.IsNew())

		saved, err := items.Save(entity.WithAuditor(ctx, "alice"), item)
		require.NoError(t, err)
		assert.False(t, saved.IsNew())
		assert.Equal(t, "alice", saved.CreatedBy)

		saved.Name = "renamed"
		_, err = items.Save(ctx, saved)
		require.NoError(t, err)

		n, err := items.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		f.session.Current(ctx).Clear()
		found, err := items.FindByID(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, "renamed", found.Name)
		assert.Equal(t, "alice", found.CreatedBy)

		_, err = items.Save(ctx, entity.NewItem(""))
		assert.ErrorIs(t, err, ErrInvalidEntity)

		require.NoError(t, items.DeleteByID(ctx, "A"))
		ok, err := items.ExistsByID(ctx, "A")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
