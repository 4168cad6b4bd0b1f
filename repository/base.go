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
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Repository is the bun-backed implementation of the CRUD, paging,
// specification and example contracts for one entity type.
type Repository[T any] struct {
	session *Session
	meta    *EntityMetadata
	graphs  *graphRegistry
	derived derivedCache
}

// NewRepository returns a repository for T bound to session.
func NewRepository[T any](session *Session, assocs ...Association) (*Repository[T], error) {
	meta, err := NewEntityMetadata(session.DB(), (*T)(nil), assocs...)
	if err != nil {
		return nil, err
	}
	return &Repository[T]{session: session, meta: meta, graphs: newGraphRegistry()}, nil
}

func (r *Repository[T]) Session() *Session { return r.session }

func (r *Repository[T]) Metadata() *EntityMetadata { return r.meta }

func (r *Repository[T]) Dialect() schema.Dialect { return r.session.DB().Dialect() }

func (r *Repository[T]) current(ctx context.Context) *Session { return r.session.Current(ctx) }

func (r *Repository[T]) db(ctx context.Context) bun.IDB { return r.current(ctx).db }

func (r *Repository[T]) NewSelect(ctx context.Context) *bun.SelectQuery {
	return r.db(ctx).NewSelect().Model((*T)(nil))
}

func (r *Repository[T]) NewInsert(ctx context.Context) *bun.InsertQuery { return r.db(ctx).NewInsert() }

func (r *Repository[T]) NewUpdate(ctx context.Context) *bun.UpdateQuery { return r.db(ctx).NewUpdate() }

func (r *Repository[T]) NewDelete(ctx context.Context) *bun.DeleteQuery { return r.db(ctx).NewDelete() }

// RegisterEntityGraph makes graph available to FindAllGraph by name.
func (r *Repository[T]) RegisterEntityGraph(graph EntityGraph) error {
	if _, err := r.meta.graphAssociations(graph.AttributePaths); err != nil {
		return err
	}
	r.graphs.register(graph)
	return nil
}

func (r *Repository[T]) isNew(e *T) bool {
	if p, ok := any(e).(entity.Persistable); ok {
		return p.IsNew()
	}
	return r.meta.hasZeroPK(e)
}

// Save inserts a new entity or updates an existing one and returns the
// managed instance.
func (r *Repository[T]) Save(ctx context.Context, e *T) (*T, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil entity", ErrInvalidEntity)
	}
	if p, ok := any(e).(entity.SavePreparer); ok {
		if err := p.PrepareSave(); err != nil {
			return nil, err
		}
	}
	if err := entity.Validate(e); err != nil {
		return nil, err
	}
	s := r.current(ctx)
	if r.isNew(e) {
		if _, err := s.db.NewInsert().Model(e).Exec(ctx); err != nil {
			return nil, wrapErr("insert "+r.meta.TableName(), err)
		}
	} else {
		res, err := s.db.NewUpdate().Model(e).WherePK().Exec(ctx)
		if err != nil {
			return nil, wrapErr("update "+r.meta.TableName(), err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, fmt.Errorf("update %s %v: %w", r.meta.TableName(), r.meta.pkValue(e).Interface(), ErrNotFound)
		}
	}
	return r.merge(s, e), nil
}

// merge registers e, or copies its state into the instance already managed.
func (r *Repository[T]) merge(s *Session, e *T) *T {
	managed := s.register(r.meta.keyOf(e), e).(*T)
	if managed != e {
		*managed = *e
	}
	return managed
}

func (r *Repository[T]) SaveAll(ctx context.Context, es ...*T) ([]*T, error) {
	out := make([]*T, 0, len(es))
	for _, e := range es {
		saved, err := r.Save(ctx, e)
		if err != nil {
			return out, err
		}
		out = append(out, saved)
	}
	return out, nil
}

// FindByID returns the managed instance when the identity is cached and
// queries otherwise.
func (r *Repository[T]) FindByID(ctx context.Context, id interface{}) (*T, error) {
	s := r.current(ctx)
	if cached, ok := s.lookup(r.meta.keyFor(id)); ok {
		return cached.(*T), nil
	}
	e := new(T)
	err := s.db.NewSelect().Model(e).Where("? = ?", r.meta.pkIdent(), id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %v: %w", r.meta.TableName(), id, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("find "+r.meta.TableName(), err)
	}
	return r.manage(s, []*T{e})[0], nil
}

func (r *Repository[T]) ExistsByID(ctx context.Context, id interface{}) (bool, error) {
	s := r.current(ctx)
	if _, ok := s.lookup(r.meta.keyFor(id)); ok {
		return true, nil
	}
	ok, err := s.db.NewSelect().Model((*T)(nil)).Where("? = ?", r.meta.pkIdent(), id).Exists(ctx)
	return ok, wrapErr("exists "+r.meta.TableName(), err)
}

func (r *Repository[T]) FindAll(ctx context.Context) ([]*T, error) {
	return r.find(ctx, nil, findOptions{})
}

func (r *Repository[T]) FindAllSorted(ctx context.Context, sort types.Sort) ([]*T, error) {
	return r.find(ctx, nil, findOptions{sort: sort})
}

// FindAllGraph loads the associations of the named entity graph eagerly.
func (r *Repository[T]) FindAllGraph(ctx context.Context, graph string, spec Specification[T]) ([]*T, error) {
	g, err := r.graphs.lookup(graph)
	if err != nil {
		return nil, err
	}
	return r.find(ctx, spec, findOptions{graph: g.AttributePaths})
}

// FindAllPage applies the request's filter, sort and window.
func (r *Repository[T]) FindAllPage(ctx context.Context, req *types.PageRequest) (*types.Page[T], error) {
	return r.FindAllSpecPage(ctx, nil, req)
}

func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	return r.CountSpec(ctx, nil)
}

func (r *Repository[T]) Delete(ctx context.Context, e *T) error {
	s := r.current(ctx)
	if _, err := s.db.NewDelete().Model(e).WherePK().Exec(ctx); err != nil {
		return wrapErr("delete "+r.meta.TableName(), err)
	}
	s.evict(r.meta.keyOf(e))
	return nil
}

func (r *Repository[T]) DeleteByID(ctx context.Context, id interface{}) error {
	s := r.current(ctx)
	_, err := s.db.NewDelete().Table(r.meta.TableName()).Where("? = ?", bun.Ident(r.meta.pk().Name), id).Exec(ctx)
	if err != nil {
		return wrapErr("delete "+r.meta.TableName(), err)
	}
	s.evict(r.meta.keyFor(id))
	return nil
}

// List returns entities matching a raw filter.
func (r *Repository[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return r.find(ctx, FilterSpec[T](filter), findOptions{})
}

// Query returns entities matching a raw where clause.
func (r *Repository[T]) Query(ctx context.Context, where string, args ...interface{}) ([]*T, error) {
	return r.find(ctx, FilterSpec[T](types.NewQueryFilter(where, args...)), findOptions{})
}

func (r *Repository[T]) FindAllSpec(ctx context.Context, spec Specification[T], sort ...types.Order) ([]*T, error) {
	return r.find(ctx, spec, findOptions{sort: types.Sort{Orders: sort}})
}

// FindOneSpec returns nil when nothing matches and ErrIncorrectResultSize
// when more than one row does.
func (r *Repository[T]) FindOneSpec(ctx context.Context, spec Specification[T]) (*T, error) {
	return single(r.find(ctx, spec, findOptions{limit: 2}))
}

func (r *Repository[T]) CountSpec(ctx context.Context, spec Specification[T]) (int64, error) {
	q, err := build(r.meta, r.NewSelect(ctx), spec, types.Unsorted())
	if err != nil {
		return 0, err
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, wrapErr("count "+r.meta.TableName(), err)
	}
	return int64(n), nil
}

func (r *Repository[T]) ExistsSpec(ctx context.Context, spec Specification[T]) (bool, error) {
	q, err := build(r.meta, r.NewSelect(ctx), spec, types.Unsorted())
	if err != nil {
		return false, err
	}
	ok, err := q.Exists(ctx)
	return ok, wrapErr("exists "+r.meta.TableName(), err)
}

// FindAllSpecPage counts the matches, then loads the requested window.
func (r *Repository[T]) FindAllSpecPage(ctx context.Context, spec Specification[T], req *types.PageRequest) (*types.Page[T], error) {
	if req == nil {
		req = types.NewDefaultPageRequest(0, types.DefaultPageSize)
	}
	spec = spec.And(FilterSpec[T](req.GetFilter()))
	total, err := r.CountSpec(ctx, spec)
	if err != nil {
		return nil, err
	}
	if total == 0 || int64(req.GetOffset()) >= total {
		return types.NewPage[T](nil, req, total), nil
	}
	content, err := r.find(ctx, spec, findOptions{sort: req.GetSort(), limit: req.GetPageSize(), offset: req.GetOffset()})
	if err != nil {
		return nil, err
	}
	return types.NewPage(content, req, total), nil
}

// FindAllSpecSlice loads one extra row to tell whether a next slice exists.
func (r *Repository[T]) FindAllSpecSlice(ctx context.Context, spec Specification[T], req *types.PageRequest) (*types.Slice[T], error) {
	if req == nil {
		req = types.NewDefaultPageRequest(0, types.DefaultPageSize)
	}
	spec = spec.And(FilterSpec[T](req.GetFilter()))
	content, err := r.find(ctx, spec, findOptions{sort: req.GetSort(), limit: req.GetPageSize() + 1, offset: req.GetOffset()})
	if err != nil {
		return nil, err
	}
	return types.NewSlice(content, req), nil
}

func (r *Repository[T]) FindAllByExample(ctx context.Context, ex Example[T], sort ...types.Order) ([]*T, error) {
	return r.find(ctx, ex.specification(r.meta), findOptions{sort: types.Sort{Orders: sort}})
}

func (r *Repository[T]) CountByExample(ctx context.Context, ex Example[T]) (int64, error) {
	return r.CountSpec(ctx, ex.specification(r.meta))
}

// IsManaged reports whether e is the instance cached for its identity.
func (r *Repository[T]) IsManaged(ctx context.Context, e *T) bool {
	cached, ok := r.current(ctx).lookup(r.meta.keyOf(e))
	return ok && cached == any(e)
}

// Detach removes e from the identity cache.
func (r *Repository[T]) Detach(ctx context.Context, e *T) {
	r.current(ctx).evict(r.meta.keyOf(e))
}

type findOptions struct {
	sort   types.Sort
	limit  int
	offset int
	graph  []string
	lock   bool
	detach bool
}

func (r *Repository[T]) find(ctx context.Context, spec Specification[T], o findOptions) ([]*T, error) {
	s := r.current(ctx)
	assocs, err := r.meta.graphAssociations(o.graph)
	if err != nil {
		return nil, err
	}
	var out []*T
	q, err := build(r.meta, s.db.NewSelect().Model(&out), spec, o.sort)
	if err != nil {
		return nil, err
	}
	for _, a := range assocs {
		q = q.Relation(a.Field)
	}
	if o.limit > 0 {
		q = q.Limit(o.limit)
	}
	if o.offset > 0 {
		q = q.Offset(o.offset)
	}
	if o.lock {
		if err := s.applyLockTimeout(ctx); err != nil {
			return nil, err
		}
		if supportsForUpdate(s.db) {
			q = q.For("UPDATE")
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, wrapErr("find "+r.meta.TableName(), err)
	}
	if out == nil {
		out = []*T{}
	}
	r.normalizeAssociations(out, assocs)
	if o.detach {
		syncAssociations(out)
		return out, nil
	}
	return r.manage(s, out), nil
}

// normalizeAssociations drops association instances left empty by an outer
// join that found no row.
func (r *Repository[T]) normalizeAssociations(es []*T, assocs []*association) {
	for _, a := range assocs {
		for _, e := range es {
			fv := reflect.ValueOf(e).Elem().FieldByName(a.Field)
			if fv.Kind() != reflect.Ptr || fv.IsNil() {
				continue
			}
			if _, ok := a.keyOf(fv); !ok {
				fv.Set(reflect.Zero(fv.Type()))
			}
		}
	}
}

// manage swaps every row and every loaded association for the instance
// already cached under the same identity and caches the new ones.
func (r *Repository[T]) manage(s *Session, es []*T) []*T {
	if s.cache == nil {
		syncAssociations(es)
		return es
	}
	for i, e := range es {
		managed := s.register(r.meta.keyOf(e), e).(*T)
		mv, ev := reflect.ValueOf(managed).Elem(), reflect.ValueOf(e).Elem()
		for _, a := range r.meta.assocs {
			loaded := ev.FieldByName(a.Field)
			if loaded.Kind() != reflect.Ptr || loaded.IsNil() {
				continue
			}
			key, ok := a.keyOf(loaded)
			if !ok {
				continue
			}
			// a managed row keeps its state but gains an association it had not loaded
			if target := mv.FieldByName(a.Field); target.IsNil() || managed == e {
				target.Set(reflect.ValueOf(s.register(key, loaded.Interface())))
			}
		}
		es[i] = managed
	}
	syncAssociations(es)
	return es
}

// AssociationSyncer is implemented by entities that mirror a loaded
// association onto its inverse collection.
type AssociationSyncer interface {
	SyncAssociations()
}

func syncAssociations[T any](es []*T) {
	for _, e := range es {
		if s, ok := any(e).(AssociationSyncer); ok {
			s.SyncAssociations()
		}
	}
}

// ScanManaged runs a hand-written select into entities and passes them
// through the identity cache of the current session.
func (r *Repository[T]) ScanManaged(ctx context.Context, op string, q *bun.SelectQuery) ([]*T, error) {
	out := []*T{}
	if err := q.Model(&out).Scan(ctx); err != nil {
		return nil, wrapErr(op, err)
	}
	if out == nil {
		out = []*T{}
	}
	return r.manage(r.current(ctx), out), nil
}

func single[T any](rows []*T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	}
	return nil, fmt.Errorf("%w: expected at most one result, got %d", ErrIncorrectResultSize, len(rows))
}
