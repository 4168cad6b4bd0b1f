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

// Team is the inverse side of Member.Team; Members is never written by saves.
type Team struct {
	bun.BaseModel `bun:"table:team,alias:t"`

	ID      int64     `bun:"team_id,pk,autoincrement" json:"id"`
	Name    string    `bun:"name" json:"name" validate:"max=255"`
	Members []*Member `bun:"rel:has-many,join:team_id=team_id" json:"-"`

	BaseEntity
}

func NewTeam(name string) *Team {
	return &Team{Name: name}
}

func (t *Team) addMember(m *Member) {
	for _, existing := range t.Members {
		if existing == m {
			return
		}
	}
	t.Members = append(t.Members, m)
}

func (t *Team) removeMember(m *Member) {
	for i, existing := range t.Members {
		if existing == m {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			return
		}
	}
}

// Attach records a loaded member on both sides without touching TeamID.
func (t *Team) Attach(m *Member) {
	if m.Team != nil && m.Team != t {
		m.Team.removeMember(m)
	}
	m.Team = t
	t.addMember(m)
}

// HasMember reports whether m is in the in-memory member collection.
func (t *Team) HasMember(m *Member) bool {
	for _, existing := range t.Members {
		if existing == m {
			return true
		}
	}
	return false
}

func (t *Team) String() string {
	return fmt.Sprintf("Team(id=%d, name=%s)", t.ID, t.Name)
}
