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
	"strings"
	"sync"

	"github.com/tomoncle/roster/types"
	"github.com/uptrace/bun"
)

type derivedCache struct {
	mu      sync.Mutex
	queries map[string]*DerivedQuery
}

// Derived parses a query method name once per repository.
func (r *Repository[T]) Derived(method string) (*DerivedQuery, error) {
	r.derived.mu.Lock()
	defer r.derived.mu.Unlock()
	if dq, ok := r.derived.queries[method]; ok {
		return dq, nil
	}
	dq, err := ParseDerivedQuery(r.meta, method)
	if err != nil {
		return nil, err
	}
	if r.derived.queries == nil {
		r.derived.queries = make(map[string]*DerivedQuery)
	}
	r.derived.queries[method] = dq
	return dq, nil
}

func (r *Repository[T]) mustDerive(methods ...string) error {
	for _, m := range methods {
		if _, err := r.Derived(m); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository[T]) findDerived(ctx context.Context, method string, o findOptions, args ...interface{}) ([]*T, error) {
	dq, err := r.Derived(method)
	if err != nil {
		return nil, err
	}
	spec, err := DerivedSpec[T](dq, args...)
	if err != nil {
		return nil, err
	}
	o.sort = dq.Sort.And(o.sort)
	if dq.MaxResults > 0 && (o.limit == 0 || dq.MaxResults < o.limit) {
		o.limit = dq.MaxResults
	}
	return r.find(ctx, spec, o)
}

// FindBy runs a derived query such as "findByUserNameAndAgeGreaterThan".
func (r *Repository[T]) FindBy(ctx context.Context, method string, args ...interface{}) ([]*T, error) {
	return r.findDerived(ctx, method, findOptions{}, args...)
}

// FindOneBy runs a single-result derived query; no match returns nil.
func (r *Repository[T]) FindOneBy(ctx context.Context, method string, args ...interface{}) (*T, error) {
	return single(r.findDerived(ctx, method, findOptions{limit: 2}, args...))
}

func (r *Repository[T]) CountBy(ctx context.Context, method string, args ...interface{}) (int64, error) {
	spec, err := r.derivedSpec(method, args...)
	if err != nil {
		return 0, err
	}
	return r.CountSpec(ctx, spec)
}

func (r *Repository[T]) ExistsBy(ctx context.Context, method string, args ...interface{}) (bool, error) {
	spec, err := r.derivedSpec(method, args...)
	if err != nil {
		return false, err
	}
	return r.ExistsSpec(ctx, spec)
}

// DeleteBy deletes the matching entities one by one and returns how many were removed.
func (r *Repository[T]) DeleteBy(ctx context.Context, method string, args ...interface{}) (int, error) {
	rows, err := r.findDerived(ctx, method, findOptions{}, args...)
	if err != nil {
		return 0, err
	}
	for i, e := range rows {
		if err := r.Delete(ctx, e); err != nil {
			return i, err
		}
	}
	return len(rows), nil
}

func (r *Repository[T]) derivedSpec(method string, args ...interface{}) (Specification[T], error) {
	dq, err := r.Derived(method)
	if err != nil {
		return nil, err
	}
	return DerivedSpec[T](dq, args...)
}

// orderClause renders sort for declared and native SQL, which alias the
// entity table and its associations like the bun models do.
func (r *Repository[T]) orderClause(sort types.Sort) (string, []interface{}, error) {
	if !sort.IsSorted() {
		return "", nil, nil
	}
	parts := make([]string, 0, len(sort.Orders))
	args := make([]interface{}, 0, len(sort.Orders))
	for _, o := range sort.Orders {
		p, err := r.meta.resolve(o.Property)
		if err != nil {
			return "", nil, err
		}
		alias := r.meta.Alias()
		if p.assoc != nil {
			alias = p.assoc.alias()
		}
		parts = append(parts, "? "+o.Direction.Name())
		args = append(args, bun.Ident(alias+"."+p.column()))
	}
	return " ORDER BY " + strings.Join(parts, ", "), args, nil
}

func windowClause(req *types.PageRequest) (string, []interface{}) {
	return " LIMIT ? OFFSET ?", []interface{}{req.GetPageSize(), req.GetOffset()}
}

func (r *Repository[T]) lookupNamed(name string) (NamedQuery, error) {
	return NamedQueries().Lookup(name)
}

// FindNamed runs a registered query returning entity rows.
func (r *Repository[T]) FindNamed(ctx context.Context, name string, params map[string]interface{}) ([]*T, error) {
	nq, err := r.lookupNamed(name)
	if err != nil {
		return nil, err
	}
	text, args, err := Bind(nq.Query, params)
	if err != nil {
		return nil, err
	}
	return r.scanEntities(ctx, name, text, args...)
}

func (r *Repository[T]) scanEntities(ctx context.Context, op, text string, args ...interface{}) ([]*T, error) {
	s := r.current(ctx)
	out := make([]*T, 0)
	if err := s.db.NewRaw(text, args...).Scan(ctx, &out); err != nil {
		return nil, wrapErr(op, err)
	}
	return r.manage(s, out), nil
}

// ScanNamed runs a registered query into rows of P, e.g. DTOs or scalars.
func ScanNamed[T, P any](ctx context.Context, r *Repository[T], name string, params map[string]interface{}) ([]P, error) {
	nq, err := r.lookupNamed(name)
	if err != nil {
		return nil, err
	}
	text, args, err := Bind(nq.Query, params)
	if err != nil {
		return nil, err
	}
	out := make([]P, 0)
	if err := r.db(ctx).NewRaw(text, args...).Scan(ctx, &out); err != nil {
		return nil, wrapErr(name, err)
	}
	return out, nil
}

// ExecNamed runs a modifying registered query and returns the affected row
// count. The identity cache is cleared because managed instances no longer
// reflect the rows.
func (r *Repository[T]) ExecNamed(ctx context.Context, name string, params map[string]interface{}) (int64, error) {
	nq, err := r.lookupNamed(name)
	if err != nil {
		return 0, err
	}
	if !nq.Modifying {
		return 0, fmt.Errorf("%w: %s is not a modifying query", ErrInvalidQuery, name)
	}
	text, args, err := Bind(nq.Query, params)
	if err != nil {
		return 0, err
	}
	s := r.current(ctx)
	res, err := s.db.ExecContext(ctx, text, args...)
	if err != nil {
		return 0, wrapErr(name, err)
	}
	s.Clear()
	n, err := res.RowsAffected()
	return n, wrapErr(name, err)
}

// FindNamedPage runs a registered query and its count query for one page.
func (r *Repository[T]) FindNamedPage(ctx context.Context, name string, params map[string]interface{}, req *types.PageRequest) (*types.Page[T], error) {
	nq, err := r.lookupNamed(name)
	if err != nil {
		return nil, err
	}
	if nq.CountQuery == "" {
		return nil, fmt.Errorf("%w: %s has no count query", ErrInvalidQuery, name)
	}
	if req == nil {
		req = types.NewDefaultPageRequest(0, types.DefaultPageSize)
	}
	total, err := r.countSQL(ctx, name, nq.CountQuery, params)
	if err != nil {
		return nil, err
	}
	text, args, err := r.pagedSQL(nq.Query, params, req)
	if err != nil {
		return nil, err
	}
	content, err := r.scanEntities(ctx, name, text, args...)
	if err != nil {
		return nil, err
	}
	return types.NewPage(content, req, total), nil
}

func (r *Repository[T]) countSQL(ctx context.Context, op, text string, params map[string]interface{}) (int64, error) {
	bound, args, err := Bind(text, params)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := r.db(ctx).NewRaw(bound, args...).Scan(ctx, &total); err != nil {
		return 0, wrapErr(op+" count", err)
	}
	return total, nil
}

func (r *Repository[T]) pagedSQL(text string, params map[string]interface{}, req *types.PageRequest) (string, []interface{}, error) {
	if req == nil {
		req = types.NewDefaultPageRequest(0, types.DefaultPageSize)
	}
	bound, args, err := Bind(text, params)
	if err != nil {
		return "", nil, err
	}
	order, orderArgs, err := r.orderClause(req.GetSort())
	if err != nil {
		return "", nil, err
	}
	window, windowArgs := windowClause(req)
	args = append(append(args, orderArgs...), windowArgs...)
	return bound + order + window, args, nil
}

// FindNative passes query to the database verbatim with positional args.
func (r *Repository[T]) FindNative(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	return r.scanEntities(ctx, "native query", query, args...)
}

// FindNativePage runs a native query into rows of P with an explicit count
// query. Parameters use :name binding; sort and window are appended.
func FindNativePage[T, P any](ctx context.Context, r *Repository[T], query, countQuery string, params map[string]interface{}, req *types.PageRequest) (*types.Page[P], error) {
	if countQuery == "" {
		return nil, fmt.Errorf("%w: native paged query needs a count query", ErrInvalidQuery)
	}
	if req == nil {
		req = types.NewDefaultPageRequest(0, types.DefaultPageSize)
	}
	total, err := r.countSQL(ctx, "native query", countQuery, params)
	if err != nil {
		return nil, err
	}
	text, args, err := r.pagedSQL(query, params, req)
	if err != nil {
		return nil, err
	}
	out := make([]*P, 0)
	if err := r.db(ctx).NewRaw(text, args...).Scan(ctx, &out); err != nil {
		return nil, wrapErr("native query", err)
	}
	return types.NewPage(out, req, total), nil
}
