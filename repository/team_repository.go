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
	"fmt"

	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/types"
	"github.com/uptrace/bun"
)

type TeamRepository struct {
	*Repository[entity.Team]
	members *Repository[entity.Member]
	policy  types.DeletePolicy
}

type TeamOption func(*TeamRepository)

// WithDeletePolicy sets what Delete does with the team's members.
func WithDeletePolicy(p types.DeletePolicy) TeamOption {
	return func(r *TeamRepository) {
		if p.IsValid() {
			r.policy = p
		}
	}
}

func NewTeamRepository(session *Session, opts ...TeamOption) (*TeamRepository, error) {
	base, err := NewRepository[entity.Team](session)
	if err != nil {
		return nil, err
	}
	if err := base.mustDerive("findByName"); err != nil {
		return nil, err
	}
	members, err := NewRepository[entity.Member](session, MemberTeam)
	if err != nil {
		return nil, err
	}
	r := &TeamRepository{Repository: base, members: members, policy: types.Restrict}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *TeamRepository) DeletePolicy() types.DeletePolicy { return r.policy }

func (r *TeamRepository) FindByName(ctx context.Context, name string) ([]*entity.Team, error) {
	return r.FindBy(ctx, "findByName", name)
}

func (r *TeamRepository) membersOf(teamID int64) Specification[entity.Member] {
	return func(root *Root, q *bun.SelectQuery, cb *CriteriaBuilder) *Predicate {
		return cb.Equal(root.Get("teamId"), teamID)
	}
}

// LoadMembers fills team.Members from the database.
func (r *TeamRepository) LoadMembers(ctx context.Context, team *entity.Team) ([]*entity.Member, error) {
	if team.ID == 0 {
		return nil, fmt.Errorf("team %q: %w", team.Name, ErrTransientEntity)
	}
	members, err := r.members.FindAllSpec(ctx, r.membersOf(team.ID), types.Order{Property: "id", Direction: types.Asc})
	if err != nil {
		return nil, err
	}
	team.Members = members
	for _, m := range members {
		team.Attach(m)
	}
	return members, nil
}

// Delete removes team according to the repository's delete policy.
func (r *TeamRepository) Delete(ctx context.Context, team *entity.Team) error {
	return r.DeleteWithPolicy(ctx, team, r.policy)
}

func (r *TeamRepository) DeleteByID(ctx context.Context, id int64) error {
	team, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return r.Delete(ctx, team)
}

// DeleteWithPolicy deletes team in one transaction. Restrict fails with
// ErrTeamHasMembers while members reference the team, Cascade deletes
// them, SetNull detaches them.
func (r *TeamRepository) DeleteWithPolicy(ctx context.Context, team *entity.Team, policy types.DeletePolicy) error {
	return r.session.Transactional(ctx, func(ctx context.Context) error {
		s := r.current(ctx)
		var ids []int64
		err := s.db.NewSelect().Model((*entity.Member)(nil)).
			Column("member_id").
			Where("team_id = ?", team.ID).
			Scan(ctx, &ids)
		if err != nil {
			return wrapErr("delete team", err)
		}
		if len(ids) > 0 {
			switch policy {
			case types.Cascade:
				_, err = s.db.NewDelete().Table(r.members.meta.TableName()).Where("team_id = ?", team.ID).Exec(ctx)
			case types.SetNull:
				_, err = s.db.NewUpdate().Table(r.members.meta.TableName()).Set("team_id = NULL").Where("team_id = ?", team.ID).Exec(ctx)
			default:
				return fmt.Errorf("team %d has %d members: %w", team.ID, len(ids), ErrTeamHasMembers)
			}
			if err != nil {
				return wrapErr("delete team", err)
			}
			for _, id := range ids {
				s.evict(r.members.meta.keyFor(id))
			}
			s.logger.Debug("team members released", "team", team.ID, "policy", policy.Name(), "members", len(ids))
		}
		detached := append([]*entity.Member(nil), team.Members...)
		for _, m := range detached {
			m.ChangeTeam(nil)
		}
		return r.Repository.Delete(ctx, team)
	})
}
