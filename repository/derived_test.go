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
	"github.com/tomoncle/roster/types"
)

func TestParseDerivedQuery(t *testing.T) {
	f := newFixture(t)
	meta := f.members.Metadata()

	dq, err := ParseDerivedQuery(meta, "findByUserNameAndAgeGreaterThan")
	require.NoError(t, err)
	assert.Equal(t, ActionFind, dq.Action)
	require.Len(t, dq.Ors, 1)
	require.Len(t, dq.Ors[0], 2)
	assert.Equal(t, "UserName", dq.Ors[0][0].Property)
	assert.Equal(t, KindEqual, dq.Ors[0][0].Kind)
	assert.Equal(t, "Age", dq.Ors[0][1].Property)
	assert.Equal(t, KindGreaterThan, dq.Ors[0][1].Kind)
	assert.Equal(t, 2, dq.NumArgs())

	dq, err = ParseDerivedQuery(meta, "findTop3HelloBy")
	require.NoError(t, err)
	assert.Equal(t, 3, dq.MaxResults)
	assert.Empty(t, dq.Ors)

	dq, err = ParseDerivedQuery(meta, "findFirstByUserName")
	require.NoError(t, err)
	assert.Equal(t, 1, dq.MaxResults)

	dq, err = ParseDerivedQuery(meta, "findDistinctByUserNameOrAgeBetweenOrderByAgeDescUserName")
	require.NoError(t, err)
	assert.True(t, dq.Distinct)
	require.Len(t, dq.Ors, 2)
	assert.Equal(t, KindBetween, dq.Ors[1][0].Kind)
	assert.Equal(t, 3, dq.NumArgs())
	assert.Equal(t, []types.Order{
		{Property: "age", Direction: types.Desc},
		{Property: "userName", Direction: types.Asc},
	}, dq.Sort.Orders)

	dq, err = ParseDerivedQuery(meta, "countByTeamNameAndUserNameStartingWithAllIgnoreCase")
	require.NoError(t, err)
	assert.Equal(t, ActionCount, dq.Action)
	assert.Equal(t, "TeamName", dq.Ors[0][0].Property)
	assert.True(t, dq.Ors[0][0].IgnoreCase)
	assert.Equal(t, KindStartingWith, dq.Ors[0][1].Kind)

	dq, err = ParseDerivedQuery(meta, "existsByTeamIdIsNull")
	require.NoError(t, err)
	assert.Equal(t, ActionExists, dq.Action)
	assert.Equal(t, KindIsNull, dq.Ors[0][0].Kind)
	assert.Equal(t, 0, dq.NumArgs())
}

func TestParseDerivedQueryErrors(t *testing.T) {
	f := newFixture(t)
	meta := f.members.Metadata()

	for _, method := range []string{
		"findByNickname",
		"findByUserNameAndNickname",
		"findByUserNameOrderByNicknameDesc",
		"updateByUserName",
	} {
		_, err := ParseDerivedQuery(meta, method)
		assert.ErrorIs(t, err, ErrInvalidDerivedQuery, method)
	}

	dq, err := ParseDerivedQuery(meta, "findByUserName")
	require.NoError(t, err)
	_, err = DerivedSpec[struct{}](dq)
	assert.ErrorIs(t, err, ErrInvalidDerivedQuery)
}

func TestDerivedQueriesRun(t *testing.T) {
	f := newFixture(t)
	f.inTx(t, func(ctx context.Context) {
		teamA := f.saveTeam(t, ctx, "TeamA")
		f.saveMember(t, ctx, "Alice", 10, teamA)
		f.saveMember(t, ctx, "alex", 20, nil)
		f.saveMember(t, ctx, "bob", 30, teamA)

		n, err := f.members.CountBy(ctx, "countByUserNameStartingWithIgnoreCase", "AL")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		ok, err := f.members.ExistsBy(ctx, "existsByTeamNameAndAgeGreaterThan", "TeamA", 25)
		require.NoError(t, err)
		assert.True(t, ok)

		ms, err := f.members.FindBy(ctx, "findByAgeBetweenOrderByAgeDesc", 10, 20)
		require.NoError(t, err)
		assert.Equal(t, []string{"alex", "Alice"}, userNames(ms))

		ms, err = f.members.FindBy(ctx, "findByAgeIn", []int{10, 30})
		require.NoError(t, err)
		assert.Len(t, ms, 2)

		deleted, err := f.members.DeleteBy(ctx, "deleteByTeamIdIsNull")
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)
	})
}

func TestDerivedLikeKeywordsEscapeWildcards(t *testing.T) {
	f := newFixture(t)
	f.inTx(t, func(ctx context.Context) {
		for _, name := range []string{"a_1", "ab1", "100%x", "1000", "x!y", "xzy"} {
			f.saveMember(t, ctx, name, 0, nil)
		}
		cases := []struct {
			method string
			arg    string
			want   []string
		}{
			{"findByUserNameStartingWithOrderByUserName", "a_", []string{"a_1"}},
			{"findByUserNameContainingOrderByUserName", "0%", []string{"100%x"}},
			{"findByUserNameEndingWithOrderByUserName", "%x", []string{"100%x"}},
			{"findByUserNameContainingOrderByUserName", "!", []string{"x!y"}},
			{"findByUserNameNotContainingOrderByUserName", "_", []string{"100%x", "1000", "ab1", "x!y", "xzy"}},
		}
		for _, c := range cases {
			ms, err := f.members.FindBy(ctx, c.method, c.arg)
			require.NoError(t, err, c.method)
			assert.Equal(t, c.want, userNames(ms), "%s(%q)", c.method, c.arg)
		}
	})
}

func TestDerivedNilArgumentMeansNull(t *testing.T) {
	f := newFixture(t)
	f.inTx(t, func(ctx context.Context) {
		teamA := f.saveTeam(t, ctx, "teamA")
		f.saveMember(t, ctx, "member1", 10, teamA)
		f.saveMember(t, ctx, "member2", 20, nil)

		ms, err := f.members.FindBy(ctx, "findByTeamId", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"member2"}, userNames(ms))

		var noTeam *int64
		ms, err = f.members.FindBy(ctx, "findByTeamIdNot", noTeam)
		require.NoError(t, err)
		assert.Equal(t, []string{"member1"}, userNames(ms))

		ms, err = f.members.FindBy(ctx, "findByTeamId", teamA.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"member1"}, userNames(ms))
	})
}

func TestDerivedInIgnoreCase(t *testing.T) {
	f := newFixture(t)
	f.inTx(t, func(ctx context.Context) {
		f.saveMember(t, ctx, "Alice", 10, nil)
		f.saveMember(t, ctx, "bob", 20, nil)
		f.saveMember(t, ctx, "carol", 30, nil)

		ms, err := f.members.FindBy(ctx, "findByUserNameInIgnoreCaseOrderByAge", []string{"ALICE", "Bob"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice", "bob"}, userNames(ms))

		ms, err = f.members.FindBy(ctx, "findByUserNameNotInIgnoreCase", []string{"ALICE", "BOB"})
		require.NoError(t, err)
		assert.Equal(t, []string{"carol"}, userNames(ms))
	})
}
