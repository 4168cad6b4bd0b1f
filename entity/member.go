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
	"fmt"

	"github.com/uptrace/bun"
)

// Member belongs to at most one Team. TeamID is the owning foreign key;
// Team is the loaded association, kept in sync by ChangeTeam and PrepareSave.
type Member struct {
	bun.BaseModel `bun:"table:member,alias:m"`

	ID       int64  `bun:"member_id,pk,autoincrement" json:"id"`
	UserName string `bun:"user_name" json:"userName" validate:"max=255"`
	Age      int    `bun:"age,notnull" json:"age" validate:"gte=0"`
	TeamID   *int64 `bun:"team_id" json:"teamId,omitempty"`
	Team     *Team  `bun:"rel:belongs-to,join:team_id=team_id" json:"-"`

	BaseEntity
}

func NewMember(userName string) *Member {
	return &Member{UserName: userName}
}

func NewMemberWithAge(userName string, age int) *Member {
	return &Member{UserName: userName, Age: age}
}

// NewMemberWithTeam creates a member and joins team when it is not nil.
func NewMemberWithTeam(userName string, age int, team *Team) *Member {
	m := NewMemberWithAge(userName, age)
	if team != nil {
		m.ChangeTeam(team)
	}
	return m
}

// ChangeTeam moves the member to team, updating the owning side and both
// teams' member collections. A nil team detaches the member.
func (m *Member) ChangeTeam(team *Team) {
	if m.Team != nil && m.Team != team {
		m.Team.removeMember(m)
	}
	m.Team = team
	if team == nil {
		m.TeamID = nil
		return
	}
	m.syncTeamID()
	team.addMember(m)
}

func (m *Member) syncTeamID() {
	if m.Team == nil || m.Team.ID == 0 {
		m.TeamID = nil
		return
	}
	id := m.Team.ID
	m.TeamID = &id
}

// PrepareSave copies the team identity into TeamID; an unsaved team cannot be referenced.
func (m *Member) PrepareSave() error {
	if m.Team == nil {
		return nil
	}
	if m.Team.ID == 0 {
		return fmt.Errorf("member %q references team %q: %w", m.UserName, m.Team.Name, ErrTransientEntity)
	}
	m.syncTeamID()
	return nil
}

// SyncAssociations adds the member to the members of its loaded team.
func (m *Member) SyncAssociations() {
	if m.Team != nil {
		m.Team.addMember(m)
	}
}

func (m *Member) String() string {
	return fmt.Sprintf("Member(id=%d, userName=%s, age=%d)", m.ID, m.UserName, m.Age)
}
