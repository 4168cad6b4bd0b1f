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
	"math"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// supportsForUpdate reports whether the dialect has SELECT ... FOR UPDATE.
// SQLite serializes writers with a database lock instead.
func supportsForUpdate(db bun.IDB) bool {
	switch db.Dialect().Name() {
	case dialect.PG, dialect.MySQL:
		return true
	}
	return false
}

// applyLockTimeout bounds lock waits for the rest of the transaction.
func (s *Session) applyLockTimeout(ctx context.Context) error {
	if !s.InTransaction() {
		return ErrTransactionRequired
	}
	d := s.lockTimeout
	var stmt string
	switch s.db.Dialect().Name() {
	case dialect.PG:
		stmt = fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.Milliseconds())
	case dialect.MySQL:
		secs := int(math.Ceil(d.Seconds()))
		if secs < 1 {
			secs = 1
		}
		stmt = fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", secs)
	case dialect.SQLite:
		stmt = fmt.Sprintf("PRAGMA busy_timeout = %d", d.Milliseconds())
	default:
		return nil
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return wrapErr("set lock timeout", err)
	}
	s.logger.Debug("lock timeout set", "timeout", d.String(), "dialect", s.db.Dialect().Name())
	return nil
}
