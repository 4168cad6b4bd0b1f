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
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/tomoncle/roster/types"
	"github.com/uptrace/bun"
)

type QueryAction int

const (
	ActionFind QueryAction = iota
	ActionCount
	ActionExists
	ActionDelete
)

type PartKind int

const (
	KindEqual PartKind = iota
	KindNotEqual
	KindGreaterThan
	KindGreaterThanEqual
	KindLessThan
	KindLessThanEqual
	KindBetween
	KindIn
	KindNotIn
	KindLike
	KindNotLike
	KindStartingWith
	KindEndingWith
	KindContaining
	KindNotContaining
	KindIsNull
	KindIsNotNull
	KindTrue
	KindFalse
)

var partKeywords = map[string]PartKind{
	"Is":               KindEqual,
	"Equals":           KindEqual,
	"Not":              KindNotEqual,
	"IsNot":            KindNotEqual,
	"GreaterThan":      KindGreaterThan,
	"IsGreaterThan":    KindGreaterThan,
	"GreaterThanEqual": KindGreaterThanEqual,
	"LessThan":         KindLessThan,
	"IsLessThan":       KindLessThan,
	"LessThanEqual":    KindLessThanEqual,
	"Before":           KindLessThan,
	"IsBefore":         KindLessThan,
	"After":            KindGreaterThan,
	"IsAfter":          KindGreaterThan,
	"Between":          KindBetween,
	"IsBetween":        KindBetween,
	"In":               KindIn,
	"IsIn":             KindIn,
	"NotIn":            KindNotIn,
	"IsNotIn":          KindNotIn,
	"Like":             KindLike,
	"IsLike":           KindLike,
	"NotLike":          KindNotLike,
	"IsNotLike":        KindNotLike,
	"StartingWith":     KindStartingWith,
	"StartsWith":       KindStartingWith,
	"IsStartingWith":   KindStartingWith,
	"EndingWith":       KindEndingWith,
	"EndsWith":         KindEndingWith,
	"IsEndingWith":     KindEndingWith,
	"Containing":       KindContaining,
	"Contains":         KindContaining,
	"IsContaining":     KindContaining,
	"NotContaining":    KindNotContaining,
	"IsNotContaining":  KindNotContaining,
	"IsNull":           KindIsNull,
	"Null":             KindIsNull,
	"IsNotNull":        KindIsNotNull,
	"NotNull":          KindIsNotNull,
	"True":             KindTrue,
	"IsTrue":           KindTrue,
	"False":            KindFalse,
	"IsFalse":          KindFalse,
}

// keywordsBySize lists keywords longest first so "NotNull" wins over "Null".
var keywordsBySize = func() []string {
	out := make([]string, 0, len(partKeywords))
	for k := range partKeywords {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

var (
	subjectPattern = regexp.MustCompile(`^(find|read|get|query|search|stream|count|exists|delete|remove)(.*)$`)
	limitPattern   = regexp.MustCompile(`(Top|First)(\d*)`)
)

func (k PartKind) numArgs() int {
	switch k {
	case KindBetween:
		return 2
	case KindIsNull, KindIsNotNull, KindTrue, KindFalse:
		return 0
	}
	return 1
}

// Part is one condition of a derived query.
type Part struct {
	Property   string
	Kind       PartKind
	IgnoreCase bool
	path       attrPath
}

// DerivedQuery is the parsed form of a query method name.
type DerivedQuery struct {
	Method     string
	Action     QueryAction
	Distinct   bool
	MaxResults int
	// Ors holds OR-ed groups of AND-ed parts.
	Ors  [][]Part
	Sort types.Sort
}

// ParseDerivedQuery parses a method name such as
// "findDistinctTop3ByUserNameAndAgeGreaterThanOrderByAgeDesc" against meta.
// Every property must resolve to a column of the entity or of one of its associations.
func ParseDerivedQuery(meta *EntityMetadata, method string) (*DerivedQuery, error) {
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidDerivedQuery, method, fmt.Sprintf(format, args...))
	}
	name := lowerFirst(method)
	m := subjectPattern.FindStringSubmatch(name)
	if m == nil {
		return nil, fail("unknown prefix")
	}
	dq := &DerivedQuery{Method: method}
	switch m[1] {
	case "count":
		dq.Action = ActionCount
	case "exists":
		dq.Action = ActionExists
	case "delete", "remove":
		dq.Action = ActionDelete
	}

	subject, predicate := m[2], ""
	if i := indexKeyword(m[2], "By"); i >= 0 {
		subject, predicate = m[2][:i], m[2][i+2:]
	}
	dq.Distinct = strings.Contains(subject, "Distinct")
	if lm := limitPattern.FindStringSubmatch(subject); lm != nil {
		dq.MaxResults = 1
		if lm[2] != "" {
			n, err := strconv.Atoi(lm[2])
			if err != nil || n <= 0 {
				return nil, fail("invalid limit %q", lm[2])
			}
			dq.MaxResults = n
		}
	}

	if i := strings.LastIndex(predicate, "OrderBy"); i >= 0 {
		orders, err := parseOrderBy(meta, predicate[i+len("OrderBy"):])
		if err != nil {
			return nil, fail("%v", err)
		}
		dq.Sort = orders
		predicate = predicate[:i]
	}

	allIgnoreCase := false
	for _, suffix := range []string{"AllIgnoreCase", "AllIgnoringCase"} {
		if strings.HasSuffix(predicate, suffix) {
			allIgnoreCase = true
			predicate = strings.TrimSuffix(predicate, suffix)
		}
	}
	if predicate == "" {
		return dq, nil
	}
	for _, or := range splitKeyword(predicate, "Or") {
		var group []Part
		for _, raw := range splitKeyword(or, "And") {
			p, err := parsePart(meta, raw)
			if err != nil {
				return nil, fail("%v", err)
			}
			p.IgnoreCase = p.IgnoreCase || allIgnoreCase
			group = append(group, p)
		}
		dq.Ors = append(dq.Ors, group)
	}
	return dq, nil
}

func parsePart(meta *EntityMetadata, raw string) (Part, error) {
	if raw == "" {
		return Part{}, fmt.Errorf("empty condition")
	}
	part := Part{Kind: KindEqual}
	for _, suffix := range []string{"IgnoreCase", "IgnoringCase"} {
		if strings.HasSuffix(raw, suffix) && len(raw) > len(suffix) {
			part.IgnoreCase = true
			raw = strings.TrimSuffix(raw, suffix)
			break
		}
	}
	for _, kw := range keywordsBySize {
		if !strings.HasSuffix(raw, kw) || len(raw) == len(kw) {
			continue
		}
		prop := raw[:len(raw)-len(kw)]
		if p, err := meta.resolve(prop); err == nil {
			part.Property, part.Kind, part.path = prop, partKeywords[kw], p
			return part, nil
		}
	}
	p, err := meta.resolve(raw)
	if err != nil {
		return Part{}, err
	}
	part.Property, part.path = raw, p
	return part, nil
}

func parseOrderBy(meta *EntityMetadata, s string) (types.Sort, error) {
	var out types.Sort
	for s != "" {
		i, n, dir := nextDirection(s)
		if i < 0 {
			i, n, dir = len(s), 0, types.Asc
		}
		prop := s[:i]
		if _, err := meta.resolve(prop); err != nil {
			return types.Sort{}, err
		}
		out.Orders = append(out.Orders, types.Order{Property: lowerFirst(prop), Direction: dir})
		s = s[i+n:]
	}
	return out, nil
}

// nextDirection finds the first "Asc" or "Desc" that ends a property name
// and returns its index and length.
func nextDirection(s string) (int, int, types.Direction) {
	for i := 1; i < len(s); i++ {
		if strings.HasPrefix(s[i:], "Desc") && boundaryAt(s, i+4) {
			return i, 4, types.Desc
		}
		if strings.HasPrefix(s[i:], "Asc") && boundaryAt(s, i+3) {
			return i, 3, types.Asc
		}
	}
	return -1, 0, types.Asc
}

// boundaryAt reports whether position i ends a camel-case word.
func boundaryAt(s string, i int) bool {
	return i == len(s) || unicode.IsUpper(rune(s[i]))
}

// indexKeyword returns the index of the first kw followed by a new
// camel-case word or the end of s.
func indexKeyword(s, kw string) int {
	for i := 0; i+len(kw) <= len(s); i++ {
		if strings.HasPrefix(s[i:], kw) && boundaryAt(s, i+len(kw)) {
			return i
		}
	}
	return -1
}

// splitKeyword splits s on kw when kw sits between a lower-case letter and an upper-case one.
func splitKeyword(s, kw string) []string {
	var parts []string
	start := 0
	for i := 1; i+len(kw) < len(s); i++ {
		if !strings.HasPrefix(s[i:], kw) {
			continue
		}
		if !unicode.IsUpper(rune(s[i+len(kw)])) || unicode.IsUpper(rune(s[i-1])) {
			continue
		}
		parts = append(parts, s[start:i])
		start = i + len(kw)
		i = start
	}
	return append(parts, s[start:])
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// NumArgs is the number of arguments the query binds.
func (dq *DerivedQuery) NumArgs() int {
	n := 0
	for _, group := range dq.Ors {
		for _, p := range group {
			n += p.Kind.numArgs()
		}
	}
	return n
}

// DerivedSpec binds args to the parsed conditions.
func DerivedSpec[T any](dq *DerivedQuery, args ...interface{}) (Specification[T], error) {
	if len(args) != dq.NumArgs() {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrInvalidDerivedQuery, dq.Method, dq.NumArgs(), len(args))
	}
	if len(dq.Ors) == 0 {
		return nil, nil
	}
	return func(root *Root, q *bun.SelectQuery, cb *CriteriaBuilder) *Predicate {
		if dq.Distinct {
			q.Distinct()
		}
		rest := args
		ors := make([]*Predicate, 0, len(dq.Ors))
		for _, group := range dq.Ors {
			ands := make([]*Predicate, 0, len(group))
			for _, p := range group {
				n := p.Kind.numArgs()
				ands = append(ands, p.predicate(root, cb, rest[:n]))
				rest = rest[n:]
			}
			ors = append(ors, cb.And(ands...))
		}
		return cb.Or(ors...)
	}, nil
}

func (p Part) predicate(root *Root, cb *CriteriaBuilder, args []interface{}) *Predicate {
	x := root.path(p.path)
	arg := func(i int) interface{} {
		if p.IgnoreCase {
			if s, ok := args[i].(string); ok {
				return strings.ToLower(s)
			}
		}
		return args[i]
	}
	if p.IgnoreCase {
		x = x.Lower()
	}
	switch p.Kind {
	case KindEqual:
		if isNilArg(args[0]) {
			return cb.IsNull(x)
		}
	case KindNotEqual:
		if isNilArg(args[0]) {
			return cb.IsNotNull(x)
		}
		return cb.NotEqual(x, arg(0))
	case KindGreaterThan:
		return cb.GreaterThan(x, arg(0))
	case KindGreaterThanEqual:
		return cb.GreaterThanOrEqual(x, arg(0))
	case KindLessThan:
		return cb.LessThan(x, arg(0))
	case KindLessThanEqual:
		return cb.LessThanOrEqual(x, arg(0))
	case KindBetween:
		return cb.Between(x, arg(0), arg(1))
	case KindIn:
		return cb.In(x, p.inValues(args[0]))
	case KindNotIn:
		return cb.NotIn(x, p.inValues(args[0]))
	case KindLike:
		return cb.Like(x, fmt.Sprint(arg(0)))
	case KindNotLike:
		return cb.NotLike(x, fmt.Sprint(arg(0)))
	case KindStartingWith:
		return cb.StartsWith(x, fmt.Sprint(arg(0)))
	case KindEndingWith:
		return cb.EndsWith(x, fmt.Sprint(arg(0)))
	case KindContaining:
		return cb.Contains(x, fmt.Sprint(arg(0)))
	case KindNotContaining:
		return cb.NotContains(x, fmt.Sprint(arg(0)))
	case KindIsNull:
		return cb.IsNull(x)
	case KindIsNotNull:
		return cb.IsNotNull(x)
	case KindTrue:
		return cb.IsTrue(x)
	case KindFalse:
		return cb.IsFalse(x)
	}
	return cb.Equal(x, arg(0))
}

// inValues lowers string elements when the column is compared case-insensitively.
func (p Part) inValues(v interface{}) interface{} {
	if !p.IgnoreCase {
		return v
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return v
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		e := rv.Index(i).Interface()
		if s, ok := e.(string); ok {
			e = strings.ToLower(s)
		}
		out[i] = e
	}
	return out
}

// isNilArg reports a nil interface or a nil pointer, both of which mean IS NULL.
func isNilArg(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
