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
	"reflect"
	"sync"
	"time"

	"github.com/tomoncle/roster/database"
	"github.com/uptrace/bun"
)

type sessionKey struct{}

type entityKey struct {
	typ reflect.Type
	id  string
}

func newEntityKey(typ reflect.Type, id interface{}) entityKey {
	return entityKey{typ: typ, id: fmt.Sprint(id)}
}

// persistenceContext maps identities to the single instance handed out
// within one transaction.
type persistenceContext struct {
	mu      sync.Mutex
	entries map[entityKey]interface{}
}

func newPersistenceContext() *persistenceContext {
	return &persistenceContext{entries: make(map[entityKey]interface{})}
}

func (pc *persistenceContext) get(key entityKey) (interface{}, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	e, ok := pc.entries[key]
	return e, ok
}

// putIfAbsent stores e unless the identity is already managed and returns the managed instance.
func (pc *persistenceContext) putIfAbsent(key entityKey, e interface{}) interface{} {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if existing, ok := pc.entries[key]; ok {
		return existing
	}
	pc.entries[key] = e
	return e
}

func (pc *persistenceContext) remove(key entityKey) {
	pc.mu.Lock()
	delete(pc.entries, key)
	pc.mu.Unlock()
}

func (pc *persistenceContext) removeType(typ reflect.Type) {
	pc.mu.Lock()
	for k := range pc.entries {
		if k.typ == typ {
			delete(pc.entries, k)
		}
	}
	pc.mu.Unlock()
}

func (pc *persistenceContext) clear() {
	pc.mu.Lock()
	pc.entries = make(map[entityKey]interface{})
	pc.mu.Unlock()
}

func (pc *persistenceContext) size() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.entries)
}

// Session is a unit of work over a bun.IDB. The root session runs every
// call on its own; Transactional binds a child session to a transaction
// and carries it in the context, so repositories built on the root session
// join the transaction. Only transactional sessions keep an identity cache.
type Session struct {
	db          bun.IDB
	root        *Session
	cache       *persistenceContext
	lockTimeout time.Duration
	logger      database.Logger
}

type SessionOption func(*Session)

func WithLockTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

func WithSessionLogger(l database.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSession(db bun.IDB, opts ...SessionOption) *Session {
	s := &Session{
		db:          db,
		lockTimeout: database.DefaultLockTimeout,
		logger:      database.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSessionFromConfig applies the lock timeout of cfg.
func NewSessionFromConfig(db bun.IDB, cfg *database.ConnectionConfig) *Session {
	return NewSession(db, WithLockTimeout(cfg.GetLockTimeout()))
}

func (s *Session) DB() bun.IDB { return s.db }

func (s *Session) InTransaction() bool { return s.root != nil }

func (s *Session) LockTimeout() time.Duration { return s.lockTimeout }

func (s *Session) Logger() database.Logger { return s.logger }

func (s *Session) base() *Session {
	if s.root != nil {
		return s.root
	}
	return s
}

// Current returns the transactional session bound to ctx for this
// session's database, or s itself.
func (s *Session) Current(ctx context.Context) *Session {
	if tx, ok := ctx.Value(sessionKey{}).(*Session); ok && tx.root == s.base() {
		return tx
	}
	return s
}

// Transactional runs fn in a transaction. Commit happens when fn returns
// nil, rollback otherwise. Nested calls join the running transaction.
func (s *Session) Transactional(ctx context.Context, fn func(ctx context.Context) error) error {
	if cur := s.Current(ctx); cur.InTransaction() {
		return fn(ctx)
	}
	root := s.base()
	return root.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		child := &Session{
			db:          tx,
			root:        root,
			cache:       newPersistenceContext(),
			lockTimeout: root.lockTimeout,
			logger:      root.logger,
		}
		return fn(context.WithValue(ctx, sessionKey{}, child))
	})
}

// Clear detaches every managed instance.
func (s *Session) Clear() {
	if s.cache != nil {
		s.cache.clear()
		s.logger.Debug("persistence context cleared")
	}
}

// ManagedCount returns the number of managed instances.
func (s *Session) ManagedCount() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.size()
}

func (s *Session) lookup(key entityKey) (interface{}, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.get(key)
}

func (s *Session) register(key entityKey, e interface{}) interface{} {
	if s.cache == nil {
		return e
	}
	return s.cache.putIfAbsent(key, e)
}

func (s *Session) evict(key entityKey) {
	if s.cache != nil {
		s.cache.remove(key)
	}
}

func (s *Session) evictType(typ reflect.Type) {
	if s.cache != nil {
		s.cache.removeType(typ)
	}
}
