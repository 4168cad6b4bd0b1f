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
	"reflect"
	"strings"
	"unicode"

	"github.com/tomoncle/roster/types"
	"github.com/uptrace/bun"
)

type projectionColumn struct {
	alias string
	path  attrPath
}

// projectionColumns maps every column of projection type typ to a source
// column of meta. Nested structs tagged `bun:"embed:<assoc>_"` read the
// association's columns.
func projectionColumns(meta *EntityMetadata, typ reflect.Type) ([]projectionColumn, error) {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrProjectionMismatch, typ)
	}
	names := projectionNames(typ, "")
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s has no columns", ErrProjectionMismatch, typ)
	}
	cols := make([]projectionColumn, 0, len(names))
	for _, name := range names {
		p, err := meta.resolve(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s has no source column in %s", ErrProjectionMismatch, typ.Name(), name, meta.TableName())
		}
		cols = append(cols, projectionColumn{alias: name, path: p})
	}
	return cols, nil
}

func projectionNames(typ reflect.Type, prefix string) []string {
	var names []string
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("bun")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if embed, ok := strings.CutPrefix(name, "embed:"); ok {
			ft := f.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			names = append(names, projectionNames(ft, prefix+embed)...)
			continue
		}
		if name == "" {
			name = underscore(f.Name)
		}
		names = append(names, prefix+name)
	}
	return names
}

func underscore(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && !unicode.IsUpper(rune(s[i-1])) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (c projectionColumn) selectOn(root *Root, q *bun.SelectQuery) *bun.SelectQuery {
	x := root.path(c.path)
	return q.ColumnExpr(x.expr+" AS ?", append(append([]interface{}{}, x.args...), bun.Ident(c.alias))...)
}

// FindProjection selects the columns of P for the rows matching spec.
// The projection is checked against the entity before the query runs.
func FindProjection[T, P any](ctx context.Context, r *Repository[T], spec Specification[T], sort types.Sort) ([]P, error) {
	cols, err := projectionColumns(r.meta, reflect.TypeOf((*P)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	db := r.db(ctx)
	q, err := build(r.meta, db.NewSelect().Model((*T)(nil)), spec, sort, func(root *Root, q *bun.SelectQuery) *bun.SelectQuery {
		for _, c := range cols {
			q = c.selectOn(root, q)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	out := make([]P, 0)
	if err := q.Scan(ctx, &out); err != nil {
		return nil, wrapErr("find projection", err)
	}
	return out, nil
}
