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

package entity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestChangeTeamKeepsBothSidesInSync(t *testing.T) {
	teamA := &Team{ID: 1, Name: "teamA"}
	teamB := &Team{ID: 2, Name: "teamB"}

	m := NewMemberWithTeam("member1", 10, teamA)
	require.NotNil(t, m.TeamID)
	assert.Equal(t, int64(1), *m.TeamID)
	assert.True(t, teamA.HasMember(m))

	m.ChangeTeam(teamB)
	assert.False(t, teamA.HasMember(m))
	assert.True(t, teamB.HasMember(m))
	assert.Equal(t, int64(2), *m.TeamID)

	// joining the same team twice does not duplicate the member
	m.ChangeTeam(teamB)
	assert.Len(t, teamB.Members, 1)

	m.ChangeTeam(nil)
	assert.Nil(t, m.Team)
	assert.Nil(t, m.TeamID)
	assert.False(t, teamB.HasMember(m))
}

func TestPrepareSave(t *testing.T) {
	team := NewTeam("teamA")
	m := NewMemberWithTeam("member1", 10, team)
	assert.Nil(t, m.TeamID)

	err := m.PrepareSave()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransientEntity))

	team.ID = 7
	require.NoError(t, m.PrepareSave())
	require.NotNil(t, m.TeamID)
	assert.Equal(t, int64(7), *m.TeamID)

	require.NoError(t, NewMember("solo").PrepareSave())
}

func TestItemIsNew(t *testing.T) {
	item := NewItem("A")
	assert.True(t, item.IsNew())
	item.CreatedDate = time.Now()
	assert.False(t, item.IsNew())
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(NewMemberWithAge("member1", 0)))

	err := Validate(NewMemberWithAge("member1", -1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidEntity))

	err = Validate(NewItem(""))
	assert.True(t, errors.Is(err, ErrInvalidEntity))
}

func TestAuditFields(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 6789, time.UTC)
	restore := SetClock(func() time.Time { return created })
	defer restore()

	ctx := WithAuditor(context.Background(), "alice")
	m := NewMember("member1")
	require.NoError(t, m.BeforeAppendModel(ctx, (*bun.InsertQuery)(nil)))

	assert.Equal(t, created.Truncate(time.Microsecond), m.CreatedDate)
	assert.Equal(t, m.CreatedDate, m.LastModifiedDate)
	assert.Equal(t, "alice", m.CreatedBy)
	assert.Equal(t, "alice", m.LastModifiedBy)

	updated := created.Add(time.Hour)
	SetClock(func() time.Time { return updated })
	ctx = WithAuditor(context.Background(), "bob")
	require.NoError(t, m.BeforeAppendModel(ctx, (*bun.UpdateQuery)(nil)))

	assert.Equal(t, created.Truncate(time.Microsecond), m.CreatedDate)
	assert.Equal(t, "alice", m.CreatedBy)
	assert.Equal(t, updated.Truncate(time.Microsecond), m.LastModifiedDate)
	assert.Equal(t, "bob", m.LastModifiedBy)
}

func TestCurrentAuditorFallsBackToProvider(t *testing.T) {
	prev := SetAuditorAware(AuditorFunc(func(context.Context) (string, bool) { return "system", true }))
	defer SetAuditorAware(prev)

	assert.Equal(t, "system", CurrentAuditor(context.Background()))
	assert.Equal(t, "carol", CurrentAuditor(WithAuditor(context.Background(), "carol")))
}
