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
	"sort"
	"strings"
	"sync"

	"github.com/uptrace/bun"
)

// NamedQuery is SQL text bound to a repository method. Parameters are
// written as :name; CountQuery is required for paged queries.
type NamedQuery struct {
	Name       string
	Query      string
	CountQuery string
	Modifying  bool
}

// QueryRegistry holds named and declared queries.
type QueryRegistry struct {
	mu      sync.RWMutex
	queries map[string]NamedQuery
}

var defaultQueries = NewQueryRegistry()

// NamedQueries returns the registry filled by the repositories of this package.
func NamedQueries() *QueryRegistry { return defaultQueries }

func NewQueryRegistry() *QueryRegistry {
	return &QueryRegistry{queries: make(map[string]NamedQuery)}
}

func (r *QueryRegistry) Register(q NamedQuery) error {
	if q.Name == "" || strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("%w: query name and text are required", ErrInvalidQuery)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.queries[q.Name]; ok {
		return fmt.Errorf("%w: %s registered twice", ErrInvalidQuery, q.Name)
	}
	r.queries[q.Name] = q
	return nil
}

// Unregister removes the query registered under name, if any.
func (r *QueryRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.queries, name)
}

func (r *QueryRegistry) MustRegister(qs ...NamedQuery) {
	for _, q := range qs {
		if err := r.Register(q); err != nil {
			panic(err)
		}
	}
}

func (r *QueryRegistry) Lookup(name string) (NamedQuery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queries[name]
	if !ok {
		return NamedQuery{}, fmt.Errorf("%w: %s is not registered", ErrInvalidQuery, name)
	}
	return q, nil
}

func (r *QueryRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.queries))
	for name := range r.queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate asks the database to plan every query with its parameters set
// to NULL. The first failure is returned.
func (r *QueryRegistry) Validate(ctx context.Context, db bun.IDB) error {
	for _, name := range r.Names() {
		q, _ := r.Lookup(name)
		for _, text := range []string{q.Query, q.CountQuery} {
			if text == "" {
				continue
			}
			explained, _, err := bindNamed(text, nil, true)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			rows, err := db.QueryContext(ctx, "EXPLAIN "+explained)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidQuery, name, err)
			}
			_ = rows.Close()
		}
	}
	return nil
}

// Bind rewrites :name parameters to bun placeholders. Slices are expanded
// for IN lists.
func Bind(text string, params map[string]interface{}) (string, []interface{}, error) {
	return bindNamed(text, params, false)
}

func bindNamed(text string, params map[string]interface{}, explain bool) (string, []interface{}, error) {
	var b strings.Builder
	var args []interface{}
	inQuote := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case inQuote || c != ':':
			b.WriteByte(c)
		case i+1 < len(text) && text[i+1] == ':':
			b.WriteString("::")
			i++
		case i+1 < len(text) && isParamStart(text[i+1]):
			j := i + 1
			for j < len(text) && isParamChar(text[j]) {
				j++
			}
			name := text[i+1 : j]
			i = j - 1
			if explain {
				b.WriteString("NULL")
				continue
			}
			v, ok := params[name]
			if !ok {
				return "", nil, fmt.Errorf("%w: missing parameter :%s", ErrInvalidQuery, name)
			}
			b.WriteByte('?')
			args = append(args, bindValue(v))
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), args, nil
}

func bindValue(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		return bun.In(v)
	}
	return v
}

func isParamStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isParamChar(c byte) bool {
	return isParamStart(c) || (c >= '0' && c <= '9')
}
