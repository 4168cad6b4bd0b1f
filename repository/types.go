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

	"github.com/tomoncle/roster/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	Save(ctx context.Context, e *T) (*T, error)

	SaveAll(ctx context.Context, es ...*T) ([]*T, error)

	FindByID(ctx context.Context, id interface{}) (*T, error)

	ExistsByID(ctx context.Context, id interface{}) (bool, error)

	FindAll(ctx context.Context) ([]*T, error)

	Count(ctx context.Context) (int64, error)

	Delete(ctx context.Context, e *T) error

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Query(ctx context.Context, where string, args ...interface{}) ([]*T, error)
}

// PagingAndSortingRepository adds sorted and paged listing.
type PagingAndSortingRepository[T any] interface {
	FindAllSorted(ctx context.Context, sort types.Sort) ([]*T, error)
	FindAllPage(ctx context.Context, req *types.PageRequest) (*types.Page[T], error)
}

// SpecificationExecutor runs composed specifications.
type SpecificationExecutor[T any] interface {
	FindAllSpec(ctx context.Context, spec Specification[T], sort ...types.Order) ([]*T, error)
	FindAllSpecPage(ctx context.Context, spec Specification[T], req *types.PageRequest) (*types.Page[T], error)
	FindOneSpec(ctx context.Context, spec Specification[T]) (*T, error)
	CountSpec(ctx context.Context, spec Specification[T]) (int64, error)
}

// QueryByExampleExecutor runs sample based queries.
type QueryByExampleExecutor[T any] interface {
	FindAllByExample(ctx context.Context, ex Example[T], sort ...types.Order) ([]*T, error)
	CountByExample(ctx context.Context, ex Example[T]) (int64, error)
}

// EntityRepository combines the contracts and exposes bun query builders for
// advanced use cases.
type EntityRepository[T any] interface {
	CrudRepository[T]
	PagingAndSortingRepository[T]
	SpecificationExecutor[T]
	QueryByExampleExecutor[T]
	Session() *Session
	Dialect() schema.Dialect
	NewSelect(ctx context.Context) *bun.SelectQuery
	NewInsert(ctx context.Context) *bun.InsertQuery
	NewUpdate(ctx context.Context) *bun.UpdateQuery
	NewDelete(ctx context.Context) *bun.DeleteQuery
}

var _ EntityRepository[struct{}] = (*Repository[struct{}])(nil)
