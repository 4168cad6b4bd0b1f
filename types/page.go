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

package types

// DefaultPageSize is used when a PageRequest carries a size below one.
const DefaultPageSize = 10

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// Order sorts by a single entity attribute, e.g. {"userName", Desc}.
type Order struct {
	Property  string
	Direction Direction
}

// Sort is an ordered list of Orders; the zero value means unsorted.
type Sort struct {
	Orders []Order
}

// SortBy builds a Sort applying the same direction to every property.
func SortBy(direction Direction, properties ...string) Sort {
	orders := make([]Order, 0, len(properties))
	for _, p := range properties {
		orders = append(orders, Order{Property: p, Direction: direction})
	}
	return Sort{Orders: orders}
}

// Unsorted returns an empty Sort.
func Unsorted() Sort { return Sort{} }

// And appends the orders of other after the orders of s.
func (s Sort) And(other Sort) Sort {
	orders := make([]Order, 0, len(s.Orders)+len(other.Orders))
	orders = append(orders, s.Orders...)
	orders = append(orders, other.Orders...)
	return Sort{Orders: orders}
}

func (s Sort) IsSorted() bool { return len(s.Orders) > 0 }

// PageRequest describes a zero-based page window, optional filter, and sort.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	sort     Sort
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = DefaultPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 0 {
		p.page = 0
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return p.GetPage() * p.GetPageSize()
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetSort() Sort {
	return p.sort
}

// Next returns the request for the following page with the same size and sort.
func (p *PageRequest) Next() *PageRequest {
	return NewPageRequest(p.GetPage()+1, p.GetPageSize(), p.filter, p.sort)
}

// NewPageRequest constructs a PageRequest with filter and sort settings.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, sort Sort) *PageRequest {
	return &PageRequest{page, pageSize, filter, sort}
}

// PageOf constructs a PageRequest with a sort only.
func PageOf(page int, pageSize int, sort Sort) *PageRequest {
	return NewPageRequest(page, pageSize, nil, sort)
}

// NewPageRequestWithFilter constructs a PageRequest with a filter only.
func NewPageRequestWithFilter(page int, pageSize int, filter *QueryFilter) *PageRequest {
	return NewPageRequest(page, pageSize, filter, Unsorted())
}

// NewDefaultPageRequest constructs a PageRequest with no filter or sort.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, Unsorted())
}

// Page is a result window that knows the total number of matching rows.
type Page[T any] struct {
	Content       []*T
	Number        int
	Size          int
	TotalElements int64
}

// NewPage constructs a page; a nil content slice is replaced by an empty one.
func NewPage[T any](content []*T, req *PageRequest, total int64) *Page[T] {
	if content == nil {
		content = make([]*T, 0)
	}
	return &Page[T]{Content: content, Number: req.GetPage(), Size: req.GetPageSize(), TotalElements: total}
}

func (p *Page[T]) TotalPages() int {
	if p.Size < 1 {
		return 1
	}
	return int((p.TotalElements + int64(p.Size) - 1) / int64(p.Size))
}

func (p *Page[T]) NumberOfElements() int { return len(p.Content) }

func (p *Page[T]) IsFirst() bool { return p.Number == 0 }

func (p *Page[T]) IsLast() bool { return !p.HasNext() }

func (p *Page[T]) HasNext() bool { return p.Number+1 < p.TotalPages() }

func (p *Page[T]) HasPrevious() bool { return p.Number > 0 }

// MapPage converts the content of a page, keeping its metadata.
func MapPage[T any, R any](p *Page[T], fn func(*T) *R) *Page[R] {
	out := make([]*R, 0, len(p.Content))
	for _, item := range p.Content {
		out = append(out, fn(item))
	}
	return &Page[R]{Content: out, Number: p.Number, Size: p.Size, TotalElements: p.TotalElements}
}

// Slice is a result window that only knows whether a next window exists.
type Slice[T any] struct {
	Content []*T
	Number  int
	Size    int
	hasNext bool
}

// NewSlice trims a look-ahead result: content holding more than the page size
// means a next slice exists.
func NewSlice[T any](content []*T, req *PageRequest) *Slice[T] {
	size := req.GetPageSize()
	hasNext := len(content) > size
	if hasNext {
		content = content[:size]
	}
	if content == nil {
		content = make([]*T, 0)
	}
	return &Slice[T]{Content: content, Number: req.GetPage(), Size: size, hasNext: hasNext}
}

func (s *Slice[T]) HasNext() bool { return s.hasNext }

func (s *Slice[T]) IsFirst() bool { return s.Number == 0 }

func (s *Slice[T]) IsLast() bool { return !s.hasNext }

func (s *Slice[T]) NumberOfElements() int { return len(s.Content) }

// MapSlice converts the content of a slice, keeping its metadata.
func MapSlice[T any, R any](s *Slice[T], fn func(*T) *R) *Slice[R] {
	out := make([]*R, 0, len(s.Content))
	for _, item := range s.Content {
		out = append(out, fn(item))
	}
	return &Slice[R]{Content: out, Number: s.Number, Size: s.Size, hasNext: s.hasNext}
}
