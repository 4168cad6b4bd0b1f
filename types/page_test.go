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

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ints(n int) []*int {
	out := make([]*int, n)
	for i := range out {
		v := i
		out[i] = &v
	}
	return out
}

func TestPageRequestDefaults(t *testing.T) {
	req := NewDefaultPageRequest(-2, 0)
	assert.Equal(t, 0, req.GetPage())
	assert.Equal(t, DefaultPageSize, req.GetPageSize())
	assert.Equal(t, 0, req.GetOffset())

	req = PageOf(2, 3, SortBy(Desc, "userName"))
	assert.Equal(t, 6, req.GetOffset())
	assert.True(t, req.GetSort().IsSorted())
	assert.Equal(t, 3, req.Next().GetPage())
	assert.Equal(t, req.GetSort(), req.Next().GetSort())
}

func TestPageMetadata(t *testing.T) {
	// five rows, page size three, first page
	p := NewPage(ints(3), PageOf(0, 3, Unsorted()), 5)
	assert.Equal(t, 3, p.NumberOfElements())
	assert.Equal(t, 2, p.TotalPages())
	assert.True(t, p.IsFirst())
	assert.True(t, p.HasNext())
	assert.False(t, p.IsLast())
	assert.False(t, p.HasPrevious())

	last := NewPage(ints(2), PageOf(1, 3, Unsorted()), 5)
	assert.True(t, last.IsLast())
	assert.True(t, last.HasPrevious())

	empty := NewPage[int](nil, PageOf(0, 3, Unsorted()), 0)
	assert.NotNil(t, empty.Content)
	assert.Equal(t, 0, empty.TotalPages())
	assert.True(t, empty.IsLast())
}

func TestSliceLookAhead(t *testing.T) {
	s := NewSlice(ints(4), PageOf(0, 3, Unsorted()))
	assert.Equal(t, 3, s.NumberOfElements())
	assert.True(t, s.HasNext())

	s = NewSlice(ints(2), PageOf(1, 3, Unsorted()))
	assert.False(t, s.HasNext())
	assert.False(t, s.IsFirst())
}

func TestMapPageKeepsMetadata(t *testing.T) {
	p := NewPage(ints(3), PageOf(0, 3, Unsorted()), 5)
	mapped := MapPage(p, func(v *int) *string {
		s := strconv.Itoa(*v)
		return &s
	})
	assert.Equal(t, int64(5), mapped.TotalElements)
	assert.Equal(t, "2", *mapped.Content[2])

	s := MapSlice(NewSlice(ints(4), PageOf(0, 3, Unsorted())), func(v *int) *int {
		d := *v * 2
		return &d
	})
	assert.True(t, s.HasNext())
	assert.Equal(t, 4, *s.Content[2])
}

func TestEnums(t *testing.T) {
	assert.Equal(t, Desc, ParseDirection("DESC"))
	assert.Equal(t, Asc, ParseDirection("whatever"))
	assert.Equal(t, "ASC", Asc.String())

	p, ok := ParseDeletePolicy("set_null")
	assert.True(t, ok)
	assert.Equal(t, SetNull, p)
	assert.Equal(t, "SET NULL", p.Name())

	p, ok = ParseDeletePolicy("")
	assert.True(t, ok)
	assert.Equal(t, Restrict, p)

	_, ok = ParseDeletePolicy("explode")
	assert.False(t, ok)
	assert.False(t, DeletePolicy(7).IsValid())
	assert.Equal(t, IllegalValue, DeletePolicy(7).Number())
}
