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
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuditorAware supplies the principal recorded in CreatedBy/LastModifiedBy.
type AuditorAware interface {
	CurrentAuditor(ctx context.Context) (string, bool)
}

// AuditorFunc adapts a function to AuditorAware.
type AuditorFunc func(ctx context.Context) (string, bool)

func (f AuditorFunc) CurrentAuditor(ctx context.Context) (string, bool) { return f(ctx) }

type auditorKey struct{}

var (
	auditMu      sync.RWMutex
	auditorAware AuditorAware = AuditorFunc(func(context.Context) (string, bool) {
		return uuid.NewString(), true
	})
	clock = func() time.Time { return time.Now() }
)

// WithAuditor returns a context whose audited writes are attributed to name.
func WithAuditor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, auditorKey{}, name)
}

// SetAuditorAware replaces the auditor provider and returns the previous one.
func SetAuditorAware(a AuditorAware) AuditorAware {
	auditMu.Lock()
	defer auditMu.Unlock()
	prev := auditorAware
	auditorAware = a
	return prev
}

// SetClock replaces the audit clock and returns a function restoring the previous one.
func SetClock(now func() time.Time) (restore func()) {
	auditMu.Lock()
	prev := clock
	clock = now
	auditMu.Unlock()
	return func() {
		auditMu.Lock()
		clock = prev
		auditMu.Unlock()
	}
}

// CurrentAuditor resolves the principal: context override first, then the provider.
func CurrentAuditor(ctx context.Context) string {
	if name, ok := ctx.Value(auditorKey{}).(string); ok && name != "" {
		return name
	}
	auditMu.RLock()
	a := auditorAware
	auditMu.RUnlock()
	if a == nil {
		return ""
	}
	name, _ := a.CurrentAuditor(ctx)
	return name
}

// Now returns the audit clock reading in UTC, truncated to microseconds.
func Now() time.Time {
	auditMu.RLock()
	now := clock
	auditMu.RUnlock()
	return now().UTC().Truncate(time.Microsecond)
}

// BaseEntity carries audit columns. Embedding types get them filled before
// every insert and update.
type BaseEntity struct {
	CreatedDate      time.Time `bun:"created_date,nullzero" json:"createdDate"`
	CreatedBy        string    `bun:"created_by,nullzero" json:"createdBy"`
	LastModifiedDate time.Time `bun:"last_modified_date,nullzero" json:"lastModifiedDate"`
	LastModifiedBy   string    `bun:"last_modified_by,nullzero" json:"lastModifiedBy"`
}

var _ bun.BeforeAppendModelHook = (*BaseEntity)(nil)

// BeforeAppendModel sets created* once on insert and last modified* on
// every insert and update.
func (e *BaseEntity) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		e.touch(ctx, true)
	case *bun.UpdateQuery:
		e.touch(ctx, false)
	}
	return nil
}

func (e *BaseEntity) touch(ctx context.Context, created bool) {
	now := Now()
	who := CurrentAuditor(ctx)
	if created {
		if e.CreatedDate.IsZero() {
			e.CreatedDate = now
		}
		if e.CreatedBy == "" {
			e.CreatedBy = who
		}
	}
	e.LastModifiedDate = now
	e.LastModifiedBy = who
}
