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
	"reflect"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// StringMatcher selects how string properties of a sample are compared.
type StringMatcher int

const (
	StringExact StringMatcher = iota
	StringStarting
	StringEnding
	StringContaining
)

// ExampleMatcher configures query by example. Zero-valued sample fields
// are not part of the query.
type ExampleMatcher struct {
	ignorePaths map[string]bool
	strings     StringMatcher
	ignoreCase  bool
	any         bool
}

// Matching requires every set property to match.
func Matching() ExampleMatcher {
	return ExampleMatcher{ignorePaths: map[string]bool{}}
}

// MatchingAny requires at least one set property to match.
func MatchingAny() ExampleMatcher {
	m := Matching()
	m.any = true
	return m
}

// WithIgnorePaths excludes properties, e.g. "age" or "team.name".
func (m ExampleMatcher) WithIgnorePaths(paths ...string) ExampleMatcher {
	ignored := make(map[string]bool, len(m.ignorePaths)+len(paths))
	for k := range m.ignorePaths {
		ignored[k] = true
	}
	for _, p := range paths {
		ignored[strings.ToLower(p)] = true
	}
	m.ignorePaths = ignored
	return m
}

func (m ExampleMatcher) WithStringMatcher(sm StringMatcher) ExampleMatcher {
	m.strings = sm
	return m
}

func (m ExampleMatcher) WithIgnoreCase() ExampleMatcher {
	m.ignoreCase = true
	return m
}

func (m ExampleMatcher) ignored(path ...string) bool {
	return m.ignorePaths[strings.ToLower(strings.Join(path, "."))]
}

// Example pairs a sample with its matcher.
type Example[T any] struct {
	Sample  *T
	Matcher ExampleMatcher
}

func ExampleOf[T any](sample *T, matcher ...ExampleMatcher) Example[T] {
	m := Matching()
	if len(matcher) > 0 {
		m = matcher[0]
	}
	return Example[T]{Sample: sample, Matcher: m}
}

// specification turns the sample into predicates. A set association sample
// inner joins the association and matches its set properties.
func (ex Example[T]) specification(meta *EntityMetadata) Specification[T] {
	if ex.Sample == nil {
		return nil
	}
	return func(root *Root, q *bun.SelectQuery, cb *CriteriaBuilder) *Predicate {
		v := reflect.ValueOf(ex.Sample).Elem()
		var preds []*Predicate
		for _, f := range meta.table.Fields {
			if ex.Matcher.ignored(f.GoName) {
				continue
			}
			if p := ex.fieldPredicate(cb, columnPath(meta.Alias(), f.Name), f, v); p != nil {
				preds = append(preds, p)
			}
		}
		for _, a := range meta.assocs {
			target := v.FieldByName(a.Field)
			if target.Kind() != reflect.Ptr || target.IsNil() {
				continue
			}
			var joined bool
			for _, f := range a.table.Fields {
				if ex.Matcher.ignored(a.Name, f.GoName) {
					continue
				}
				p := ex.fieldPredicate(cb, columnPath(a.alias(), f.Name), f, target.Elem())
				if p == nil {
					continue
				}
				if !joined {
					root.join(a, JoinInner)
					joined = true
				}
				preds = append(preds, p)
			}
		}
		if ex.Matcher.any {
			return cb.Or(preds...)
		}
		return cb.And(preds...)
	}
}

func (ex Example[T]) fieldPredicate(cb *CriteriaBuilder, x *Path, f *schema.Field, strct reflect.Value) *Predicate {
	fv := f.Value(strct)
	if !fv.IsValid() || fv.IsZero() {
		return nil
	}
	if fv.Kind() == reflect.Ptr {
		fv = fv.Elem()
	}
	s, ok := fv.Interface().(string)
	if !ok {
		return cb.Equal(x, fv.Interface())
	}
	if ex.Matcher.ignoreCase {
		x, s = x.Lower(), strings.ToLower(s)
	}
	switch ex.Matcher.strings {
	case StringStarting:
		return cb.StartsWith(x, s)
	case StringEnding:
		return cb.EndsWith(x, s)
	case StringContaining:
		return cb.Contains(x, s)
	}
	return cb.Equal(x, s)
}
