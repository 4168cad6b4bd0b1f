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

package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tomoncle/roster/entity"
)

func TestNewMemberDto(t *testing.T) {
	assert.Nil(t, NewMemberDto(nil))

	m := entity.NewMemberWithAge("member1", 10)
	m.ID = 3
	assert.Equal(t, &MemberDto{ID: 3, UserName: "member1"}, NewMemberDto(m))

	m.ChangeTeam(&entity.Team{ID: 1, Name: "teamA"})
	d := NewMemberDto(m)
	assert.Equal(t, "teamA", d.TeamName)
	assert.Equal(t, "MemberDto(id=3, userName=member1, teamName=teamA)", d.String())
}
