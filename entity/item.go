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

package entity

import "github.com/uptrace/bun"

// Item has an assigned string id, so a set primary key does not mean the row exists.
type Item struct {
	bun.BaseModel `bun:"table:item,alias:i"`

	ID   string `bun:"item_id,pk" json:"id" validate:"required,max=64"`
	Name string `bun:"name" json:"name"`

	BaseEntity
}

var _ Persistable = (*Item)(nil)

func NewItem(id string) *Item {
	return &Item{ID: id}
}

// IsNew is true until the first insert stamps CreatedDate.
func (i *Item) IsNew() bool {
	return i.CreatedDate.IsZero()
}
