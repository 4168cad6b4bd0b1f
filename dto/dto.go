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

// Package dto holds read models returned by repository projections and
// declared queries. Field columns are the aliases the queries select.
package dto

import (
	"fmt"

	"github.com/tomoncle/roster/entity"
)

// MemberDto is filled from a member joined with its team.
type MemberDto struct {
	ID       int64  `bun:"id" json:"id"`
	UserName string `bun:"user_name" json:"userName"`
	TeamName string `bun:"team_name" json:"teamName"`
}

// NewMemberDto copies id and user name; TeamName stays empty unless the team is loaded.
func NewMemberDto(m *entity.Member) *MemberDto {
	if m == nil {
		return nil
	}
	d := &MemberDto{ID: m.ID, UserName: m.UserName}
	if m.Team != nil {
		d.TeamName = m.Team.Name
	}
	return d
}

func (d MemberDto) String() string {
	return fmt.Sprintf("MemberDto(id=%d, userName=%s, teamName=%s)", d.ID, d.UserName, d.TeamName)
}

// UserNameOnly is a partial view of Member.
type UserNameOnly struct {
	UserName string `bun:"user_name" json:"userName"`
}

// UserNameOnlyDto is the class-based variant of UserNameOnly.
type UserNameOnlyDto struct {
	UserName string `bun:"user_name" json:"userName"`
}

func NewUserNameOnlyDto(userName string) UserNameOnlyDto {
	return UserNameOnlyDto{UserName: userName}
}

// TeamInfo is the nested team part of NestedClosedProjection.
type TeamInfo struct {
	Name string `bun:"name" json:"name"`
}

// NestedClosedProjection reads the member's user name and its team's name.
// The team columns are selected as team_<column>.
type NestedClosedProjection struct {
	UserName string   `bun:"user_name" json:"userName"`
	Team     TeamInfo `bun:"embed:team_" json:"team"`
}

// MemberProjection is the row shape of the native member/team projection.
type MemberProjection struct {
	ID       int64  `bun:"id" json:"id"`
	UserName string `bun:"user_name" json:"userName"`
	TeamName string `bun:"team_name" json:"teamName"`
}
