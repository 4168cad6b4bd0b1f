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

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/tomoncle/roster/database"
)

// ErrTransientEntity reports a reference to an entity that has not been saved yet.
var ErrTransientEntity = errors.New("entity references an unsaved entity")

// ErrInvalidEntity wraps validation failures.
var ErrInvalidEntity = errors.New("invalid entity")

// Persistable lets an entity with an assigned id decide whether it is new.
type Persistable interface {
	IsNew() bool
}

// SavePreparer is called before validation and write.
type SavePreparer interface {
	PrepareSave() error
}

func init() {
	database.RegisteredModel(database.NewModelAdapter((*Team)(nil), 10))
	database.RegisteredModel(database.NewModelAdapter((*Member)(nil), 20))
	database.RegisteredModel(database.NewModelAdapter((*Item)(nil), 30))
	// ON DELETE comes from the migrate config's default policy
	database.RegisteredForeignKey(database.ForeignKeyConstraint{
		Table:           "member",
		Column:          "team_id",
		ReferenceTable:  "team",
		ReferenceColumn: "team_id",
	})
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate checks the struct tags of e.
func Validate(e interface{}) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := validate.Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", ErrInvalidEntity, verrs.Error())
		}
		return fmt.Errorf("%w: %v", ErrInvalidEntity, err)
	}
	return nil
}
