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
	"fmt"
	"sync"

	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/repository"
	"github.com/tomoncle/roster/types"
	"github.com/uptrace/bun"
)

// Service is the generic entry point over one entity type.
type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Query returns entities matching a raw where clause.
	Query(ctx context.Context, where string, args ...interface{}) ([]*T, error)

	// Page returns one page of entities with the total count.
	Page(ctx context.Context, page *types.PageRequest) (*types.Page[T], error)

	// Save inserts new entities and updates existing ones.
	Save(ctx context.Context, model ...*T) ([]*T, error)

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// Transactional runs fn in one transaction; services called with the
	// ctx passed to fn join it.
	Transactional(ctx context.Context, fn func(ctx context.Context) error) error

	// SelectBuilder returns a Bun select query for the entity, bound to the
	// transaction in ctx if any.
	SelectBuilder(ctx context.Context) *bun.SelectQuery
}

type baseServiceImpl[T any] struct {
	session *repository.Session
	assocs  []repository.Association
	once    sync.Once
	repo    *repository.Repository[T]
	err     error
}

// NewService returns a Service backed by the generic repository on session.
func NewService[T any](session *repository.Session, assocs ...repository.Association) Service[T] {
	return &baseServiceImpl[T]{session: session, assocs: assocs}
}

func (s *baseServiceImpl[T]) baseRepo() (*repository.Repository[T], error) {
	s.once.Do(func() { s.repo, s.err = repository.NewRepository[T](s.session, s.assocs...) })
	return s.repo, s.err
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindByID(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, filter)
}

func (s *baseServiceImpl[T]) Query(ctx context.Context, where string, args ...interface{}) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Query(ctx, where, args...)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Page[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindAllPage(ctx, page)
}

// Save writes every model in one transaction.
func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	var saved []*T
	err = s.session.Transactional(ctx, func(ctx context.Context) error {
		saved, err = repo.SaveAll(ctx, model...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.DeleteByID(ctx, id)
}

func (s *baseServiceImpl[T]) Transactional(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.session.Transactional(ctx, fn)
}

func (s *baseServiceImpl[T]) SelectBuilder(ctx context.Context) *bun.SelectQuery {
	return s.session.Current(ctx).DB().NewSelect().Model((*T)(nil))
}

// Roster wires the member, team and item repositories to one database.
type Roster struct {
	db      *bun.DB
	session *repository.Session

	Members       *repository.MemberRepository
	MemberQueries *repository.MemberQueryRepository
	Teams         *repository.TeamRepository
	Items         *repository.ItemRepository
}

// Init opens the global database from cfg, runs migrations when enabled,
// checks every declared query against the schema and builds the repositories.
// A declared query the database rejects fails Init whether or not
// migrations ran.
func Init(ctx context.Context, cfg *database.Config) (*Roster, error) {
	db, err := database.InitDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := repository.NamedQueries().Validate(ctx, db); err != nil {
		_ = database.CloseDB()
		return nil, fmt.Errorf("declared queries: %w", err)
	}
	policy, _ := types.ParseDeletePolicy(cfg.DataMigrateConfig.DefaultOnDelete)
	r, err := New(db, &cfg.ConnectionConfig, repository.WithDeletePolicy(policy))
	if err != nil {
		_ = database.CloseDB()
		return nil, err
	}
	return r, nil
}

// New builds the repositories on an open database.
func New(db *bun.DB, cfg *database.ConnectionConfig, teamOpts ...repository.TeamOption) (*Roster, error) {
	session := repository.NewSessionFromConfig(db, cfg)
	members, err := repository.NewMemberRepository(session)
	if err != nil {
		return nil, err
	}
	teams, err := repository.NewTeamRepository(session, teamOpts...)
	if err != nil {
		return nil, err
	}
	items, err := repository.NewItemRepository(session)
	if err != nil {
		return nil, err
	}
	queries, err := repository.NewMemberQueryRepository(session)
	if err != nil {
		return nil, err
	}
	return &Roster{
		db:            db,
		session:       session,
		Members:       members,
		MemberQueries: queries,
		Teams:         teams,
		Items:         items,
	}, nil
}

func (r *Roster) DB() *bun.DB { return r.db }

func (r *Roster) Session() *repository.Session { return r.session }

// Transactional runs fn in one unit of work shared by all repositories.
func (r *Roster) Transactional(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.session.Transactional(ctx, fn)
}

// MemberService returns the generic service for members with their team association.
func (r *Roster) MemberService() Service[entity.Member] {
	return NewService[entity.Member](r.session, repository.MemberTeam)
}

// TeamService returns the generic service for teams.
func (r *Roster) TeamService() Service[entity.Team] {
	return NewService[entity.Team](r.session)
}

// Close closes the global database opened by Init.
func (r *Roster) Close() error {
	if database.GetDB() == r.db {
		return database.CloseDB()
	}
	return r.db.Close()
}
