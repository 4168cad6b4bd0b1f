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
	"strings"

	"github.com/tomoncle/roster/types"
	"github.com/uptrace/bun"
)

// Path is a column expression usable in predicates and ordering.
type Path struct {
	expr string
	args []interface{}
}

func columnPath(alias, column string) *Path {
	return &Path{expr: "?", args: []interface{}{bun.Ident(alias + "." + column)}}
}

// Lower wraps the column in LOWER().
func (p *Path) Lower() *Path {
	return &Path{expr: "LOWER(" + p.expr + ")", args: p.args}
}

// Predicate is a SQL condition with bun placeholders.
type Predicate struct {
	expr string
	args []interface{}
}

// NewPredicate builds a predicate from a raw condition.
func NewPredicate(expr string, args ...interface{}) *Predicate {
	return &Predicate{expr: expr, args: args}
}

func (p *Predicate) String() string { return p.expr }

func (p *Predicate) Args() []interface{} { return p.args }

func (p *Predicate) applyTo(q *bun.SelectQuery) *bun.SelectQuery {
	if p == nil {
		return q
	}
	return q.Where(p.expr, p.args...)
}

// Join is an association joined into a query.
type Join struct {
	root  *Root
	assoc *association
	kind  JoinType
}

func (j *Join) Get(attr string) *Path {
	f := fieldByAttribute(j.assoc.table, attr)
	if f == nil {
		j.root.fail(j.root.meta.unknown(j.assoc.Name + "." + attr))
		return &Path{expr: "NULL"}
	}
	return columnPath(j.assoc.alias(), f.Name)
}

// Root gives specifications access to the queried entity's attributes.
// Joins are collected and added to the query once the predicate is built.
type Root struct {
	meta  *EntityMetadata
	joins []*Join
	err   error
}

func newRoot(meta *EntityMetadata) *Root {
	return &Root{meta: meta}
}

func (r *Root) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Err returns the first attribute resolution failure.
func (r *Root) Err() error { return r.err }

// Get resolves attr. Nested association attributes add a left join.
func (r *Root) Get(attr string) *Path {
	p, err := r.meta.resolve(attr)
	if err != nil {
		r.fail(err)
		return &Path{expr: "NULL"}
	}
	return r.path(p)
}

func (r *Root) path(p attrPath) *Path {
	if p.assoc == nil {
		return columnPath(r.meta.Alias(), p.column())
	}
	r.join(p.assoc, JoinLeft)
	return columnPath(p.assoc.alias(), p.column())
}

// Join adds an association join. Joining the same association again
// returns the existing join; an inner join replaces an earlier left join.
func (r *Root) Join(name string, kind JoinType) *Join {
	a := r.meta.association(name)
	if a == nil {
		r.fail(r.meta.unknown(name))
		return &Join{root: r, assoc: &association{Association: Association{Name: name}, table: r.meta.table}, kind: kind}
	}
	return r.join(a, kind)
}

func (r *Root) join(a *association, kind JoinType) *Join {
	for _, j := range r.joins {
		if j.assoc == a {
			if kind == JoinInner {
				j.kind = JoinInner
			}
			return j
		}
	}
	j := &Join{root: r, assoc: a, kind: kind}
	r.joins = append(r.joins, j)
	return j
}

func (r *Root) applyJoins(q *bun.SelectQuery) *bun.SelectQuery {
	for _, j := range r.joins {
		q = q.Join("? ? AS ?", bun.Safe(j.kind.keyword()), bun.Ident(j.assoc.table.Name), bun.Ident(j.assoc.alias())).
			JoinOn("? = ?",
				bun.Ident(j.assoc.alias()+"."+j.assoc.TargetColumn),
				bun.Ident(r.meta.Alias()+"."+j.assoc.LocalColumn))
	}
	return q
}

// applySort adds ORDER BY clauses; properties resolve like attributes.
func (r *Root) applySort(q *bun.SelectQuery, sort types.Sort) *bun.SelectQuery {
	for _, o := range sort.Orders {
		p, err := r.meta.resolve(o.Property)
		if err != nil {
			r.fail(err)
			continue
		}
		path := r.path(p)
		q = q.OrderExpr(path.expr+" "+o.Direction.Name(), path.args...)
	}
	return q
}

// CriteriaBuilder creates predicates. Nil predicates passed to And, Or and Not are dropped.
type CriteriaBuilder struct{}

func binary(x *Path, op string, v interface{}) *Predicate {
	return &Predicate{expr: x.expr + " " + op + " ?", args: append(append([]interface{}{}, x.args...), v)}
}

func (cb *CriteriaBuilder) Equal(x *Path, v interface{}) *Predicate { return binary(x, "=", v) }

func (cb *CriteriaBuilder) NotEqual(x *Path, v interface{}) *Predicate { return binary(x, "<>", v) }

func (cb *CriteriaBuilder) GreaterThan(x *Path, v interface{}) *Predicate { return binary(x, ">", v) }

func (cb *CriteriaBuilder) GreaterThanOrEqual(x *Path, v interface{}) *Predicate {
	return binary(x, ">=", v)
}

func (cb *CriteriaBuilder) LessThan(x *Path, v interface{}) *Predicate { return binary(x, "<", v) }

func (cb *CriteriaBuilder) LessThanOrEqual(x *Path, v interface{}) *Predicate {
	return binary(x, "<=", v)
}

func (cb *CriteriaBuilder) Between(x *Path, lo, hi interface{}) *Predicate {
	args := append(append([]interface{}{}, x.args...), lo, hi)
	return &Predicate{expr: x.expr + " BETWEEN ? AND ?", args: args}
}

func (cb *CriteriaBuilder) Like(x *Path, pattern string) *Predicate { return binary(x, "LIKE", pattern) }

func (cb *CriteriaBuilder) NotLike(x *Path, pattern string) *Predicate {
	return binary(x, "NOT LIKE", pattern)
}

// likeEscape is portable across sqlite, postgres and mysql string literals.
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// EscapeLike quotes the LIKE wildcards in s for use with StartsWith and friends.
func EscapeLike(s string) string { return likeEscaper.Replace(s) }

func likeLiteral(x *Path, op, pattern string) *Predicate {
	args := append(append([]interface{}{}, x.args...), pattern)
	return &Predicate{expr: x.expr + " " + op + " ? ESCAPE '" + likeEscape + "'", args: args}
}

// StartsWith matches values beginning with the literal prefix.
func (cb *CriteriaBuilder) StartsWith(x *Path, prefix string) *Predicate {
	return likeLiteral(x, "LIKE", EscapeLike(prefix)+"%")
}

func (cb *CriteriaBuilder) EndsWith(x *Path, suffix string) *Predicate {
	return likeLiteral(x, "LIKE", "%"+EscapeLike(suffix))
}

func (cb *CriteriaBuilder) Contains(x *Path, infix string) *Predicate {
	return likeLiteral(x, "LIKE", "%"+EscapeLike(infix)+"%")
}

func (cb *CriteriaBuilder) NotContains(x *Path, infix string) *Predicate {
	return likeLiteral(x, "NOT LIKE", "%"+EscapeLike(infix)+"%")
}

// In matches any of values, which must be a slice.
func (cb *CriteriaBuilder) In(x *Path, values interface{}) *Predicate {
	args := append(append([]interface{}{}, x.args...), bun.In(values))
	return &Predicate{expr: x.expr + " IN (?)", args: args}
}

func (cb *CriteriaBuilder) NotIn(x *Path, values interface{}) *Predicate {
	args := append(append([]interface{}{}, x.args...), bun.In(values))
	return &Predicate{expr: x.expr + " NOT IN (?)", args: args}
}

func (cb *CriteriaBuilder) IsNull(x *Path) *Predicate {
	return &Predicate{expr: x.expr + " IS NULL", args: x.args}
}

func (cb *CriteriaBuilder) IsNotNull(x *Path) *Predicate {
	return &Predicate{expr: x.expr + " IS NOT NULL", args: x.args}
}

func (cb *CriteriaBuilder) IsTrue(x *Path) *Predicate { return binary(x, "=", true) }

func (cb *CriteriaBuilder) IsFalse(x *Path) *Predicate { return binary(x, "=", false) }

func (cb *CriteriaBuilder) And(ps ...*Predicate) *Predicate { return combine(" AND ", ps) }

func (cb *CriteriaBuilder) Or(ps ...*Predicate) *Predicate { return combine(" OR ", ps) }

func (cb *CriteriaBuilder) Not(p *Predicate) *Predicate {
	if p == nil {
		return nil
	}
	return &Predicate{expr: "NOT (" + p.expr + ")", args: p.args}
}

func combine(sep string, ps []*Predicate) *Predicate {
	var kept []*Predicate
	for _, p := range ps {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	parts := make([]string, len(kept))
	var args []interface{}
	for i, p := range kept {
		parts[i] = "(" + p.expr + ")"
		args = append(args, p.args...)
	}
	return &Predicate{expr: strings.Join(parts, sep), args: args}
}

// Specification is a reusable predicate over T. A nil result means no filter.
type Specification[T any] func(root *Root, q *bun.SelectQuery, cb *CriteriaBuilder) *Predicate

// Where returns spec unchanged; it reads well at the start of a chain.
func Where[T any](spec Specification[T]) Specification[T] { return spec }

func (s Specification[T]) And(other Specification[T]) Specification[T] {
	return compose(s, other, (*CriteriaBuilder).And)
}

func (s Specification[T]) Or(other Specification[T]) Specification[T] {
	return compose(s, other, (*CriteriaBuilder).Or)
}

func compose[T any](left, right Specification[T], op func(*CriteriaBuilder, ...*Predicate) *Predicate) Specification[T] {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return func(root *Root, q *bun.SelectQuery, cb *CriteriaBuilder) *Predicate {
		l := left(root, q, cb)
		r := right(root, q, cb)
		return op(cb, l, r)
	}
}

func Not[T any](spec Specification[T]) Specification[T] {
	if spec == nil {
		return nil
	}
	return func(root *Root, q *bun.SelectQuery, cb *CriteriaBuilder) *Predicate {
		return cb.Not(spec(root, q, cb))
	}
}

// AllOf joins specs with AND, AnyOf with OR.
func AllOf[T any](specs ...Specification[T]) Specification[T] {
	var out Specification[T]
	for _, s := range specs {
		out = out.And(s)
	}
	return out
}

func AnyOf[T any](specs ...Specification[T]) Specification[T] {
	var out Specification[T]
	for _, s := range specs {
		out = out.Or(s)
	}
	return out
}

// FilterSpec adapts a raw QueryFilter.
func FilterSpec[T any](f *types.QueryFilter) Specification[T] {
	if f == nil || f.Schema == "" {
		return nil
	}
	return func(*Root, *bun.SelectQuery, *CriteriaBuilder) *Predicate {
		return NewPredicate(f.Schema, f.Args...)
	}
}

// build evaluates spec against a fresh root and applies the predicate, the
// extra clauses, the ordering and finally the collected joins to q.
func build[T any](meta *EntityMetadata, q *bun.SelectQuery, spec Specification[T], sort types.Sort, extra ...func(*Root, *bun.SelectQuery) *bun.SelectQuery) (*bun.SelectQuery, error) {
	root := newRoot(meta)
	if spec != nil {
		q = spec(root, q, &CriteriaBuilder{}).applyTo(q)
	}
	for _, fn := range extra {
		q = fn(root, q)
	}
	q = root.applySort(q, sort)
	if err := root.Err(); err != nil {
		return nil, err
	}
	return root.applyJoins(q), nil
}
