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
	"github.com/tomoncle/roster/entity"
	"github.com/uptrace/bun"
)

type memberSpec struct{}

// MemberSpec groups reusable member specifications.
var MemberSpec memberSpec

// TeamName matches members of the named team. An empty name adds no condition.
func (memberSpec) TeamName(name string) Specification[entity.Member] {
	return func(root *Root, q *bun.SelectQuery, cb *CriteriaBuilder) *Predicate {
		if name == "" {
			return nil
		}
		team := root.Join(MemberTeam.Name, JoinInner)
		return cb.Equal(team.Get("name"), name)
	}
}

func (memberSpec) UserName(userName string) Specification[entity.Member] {
	return func(root *Root, q *bun.SelectQuery, cb *CriteriaBuilder) *Predicate {
		return cb.Equal(root.Get("userName"), userName)
	}
}
