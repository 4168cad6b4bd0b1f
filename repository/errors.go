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
	"errors"
	"fmt"

	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/entity"
)

var (
	ErrNotFound            = errors.New("entity not found")
	ErrIncorrectResultSize = errors.New("incorrect result size")
	ErrUnknownAttribute    = errors.New("unknown attribute")
	ErrProjectionMismatch  = errors.New("projection does not match the query result")
	ErrTransientEntity     = entity.ErrTransientEntity
	ErrInvalidEntity       = entity.ErrInvalidEntity
	ErrTeamHasMembers      = errors.New("team still has members")
	ErrTransactionRequired = errors.New("operation requires a transaction")
	ErrLockTimeout         = errors.New("lock wait timed out")
	ErrInvalidQuery        = errors.New("invalid query")
	ErrInvalidDerivedQuery = errors.New("invalid derived query")
)

// PersistenceError wraps a failure reported by the database driver.
type PersistenceError struct {
	Op   string
	Kind database.SQLError
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is matches ErrLockTimeout for lock wait failures.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrLockTimeout && e.Kind == database.LockTimeoutErr
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	_, kind := database.IsSqlError(err)
	return &PersistenceError{Op: op, Kind: kind, Err: err}
}
