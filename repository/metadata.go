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
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
)

func (j JoinType) keyword() string {
	if j == JoinLeft {
		return "LEFT JOIN"
	}
	return "INNER JOIN"
}

// Association describes a to-one reference from an entity to another table.
type Association struct {
	Name         string      // attribute name used in queries, e.g. "team"
	Field        string      // Go field holding the loaded value, e.g. "Team"
	Model        interface{} // typed nil pointer of the target, e.g. (*entity.Team)(nil)
	LocalColumn  string      // owner column, e.g. "team_id"
	TargetColumn string      // referenced column, e.g. "team_id"
}

type association struct {
	Association
	table *schema.Table
}

// alias is the join alias used for the association, the target table's own alias.
func (a *association) alias() string {
	if a.table.Alias != "" {
		return a.table.Alias
	}
	return a.Name
}

// EntityMetadata resolves attribute names of an entity and its associations to columns.
type EntityMetadata struct {
	table  *schema.Table
	assocs []*association
}

func NewEntityMetadata(db bun.IDB, model interface{}, assocs ...Association) (*EntityMetadata, error) {
	table, err := tableOf(db, model)
	if err != nil {
		return nil, err
	}
	if len(table.PKs) != 1 {
		return nil, fmt.Errorf("%s: exactly one primary key column is required", table.Name)
	}
	m := &EntityMetadata{table: table}
	for _, a := range assocs {
		target, err := tableOf(db, a.Model)
		if err != nil {
			return nil, err
		}
		if _, ok := table.Type.FieldByName(a.Field); !ok {
			return nil, fmt.Errorf("%w: %s has no field %s", ErrUnknownAttribute, table.Type.Name(), a.Field)
		}
		if fieldByColumn(table, a.LocalColumn) == nil || fieldByColumn(target, a.TargetColumn) == nil {
			return nil, fmt.Errorf("%w: association %s: join columns %s=%s", ErrUnknownAttribute, a.Name, a.LocalColumn, a.TargetColumn)
		}
		m.assocs = append(m.assocs, &association{Association: a, table: target})
	}
	return m, nil
}

func tableOf(db bun.IDB, model interface{}) (*schema.Table, error) {
	typ := reflect.TypeOf(model)
	for typ != nil && (typ.Kind() == reflect.Ptr || typ.Kind() == reflect.Slice) {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model %T is not a struct", model)
	}
	return db.Dialect().Tables().Get(typ), nil
}

func fieldByColumn(t *schema.Table, column string) *schema.Field {
	for _, f := range t.Fields {
		if f.Name == column {
			return f
		}
	}
	return nil
}

func fieldByAttribute(t *schema.Table, attr string) *schema.Field {
	for _, f := range t.Fields {
		if strings.EqualFold(f.GoName, attr) || strings.EqualFold(f.Name, attr) {
			return f
		}
	}
	return nil
}

func (m *EntityMetadata) TableName() string { return m.table.Name }

func (m *EntityMetadata) Alias() string { return m.table.Alias }

func (m *EntityMetadata) Type() reflect.Type { return m.table.Type }

func (m *EntityMetadata) association(name string) *association {
	for _, a := range m.assocs {
		if strings.EqualFold(a.Name, name) {
			return a
		}
	}
	return nil
}

// attrPath is a resolved attribute: a column of the root table or of an association.
type attrPath struct {
	assoc *association
	field *schema.Field
}

func (p attrPath) column() string { return p.field.Name }

// Resolve maps an attribute name to a column. Accepted forms are the Go field
// name in any case ("userName"), the column name ("user_name"), and nested
// association paths ("teamName", "team.name", "team_name").
func (m *EntityMetadata) resolve(attr string) (attrPath, error) {
	if head, rest, ok := strings.Cut(attr, "."); ok {
		if a := m.association(head); a != nil {
			if f := fieldByAttribute(a.table, rest); f != nil {
				return attrPath{assoc: a, field: f}, nil
			}
		}
		return attrPath{}, m.unknown(attr)
	}
	if f := fieldByAttribute(m.table, attr); f != nil {
		return attrPath{field: f}, nil
	}
	for _, a := range m.assocs {
		if len(attr) <= len(a.Name) || !strings.EqualFold(attr[:len(a.Name)], a.Name) {
			continue
		}
		rest := strings.TrimPrefix(attr[len(a.Name):], "_")
		if f := fieldByAttribute(a.table, rest); f != nil {
			return attrPath{assoc: a, field: f}, nil
		}
	}
	return attrPath{}, m.unknown(attr)
}

func (m *EntityMetadata) unknown(attr string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, m.table.Type.Name(), attr)
}

// HasAttribute reports whether attr resolves to a column.
func (m *EntityMetadata) HasAttribute(attr string) bool {
	_, err := m.resolve(attr)
	return err == nil
}

func (m *EntityMetadata) pk() *schema.Field { return m.table.PKs[0] }

// pkIdent is the qualified primary key column for selects.
func (m *EntityMetadata) pkIdent() bun.Ident {
	return bun.Ident(m.table.Alias + "." + m.pk().Name)
}

func (m *EntityMetadata) pkValue(e interface{}) reflect.Value {
	return m.pk().Value(reflect.Indirect(reflect.ValueOf(e)))
}

func (m *EntityMetadata) hasZeroPK(e interface{}) bool {
	return m.pkValue(e).IsZero()
}

func (m *EntityMetadata) keyOf(e interface{}) entityKey {
	return newEntityKey(m.table.Type, m.pkValue(e).Interface())
}

func (m *EntityMetadata) keyFor(id interface{}) entityKey {
	return newEntityKey(m.table.Type, id)
}

func (a *association) keyOf(target reflect.Value) (entityKey, bool) {
	pk := a.table.PKs[0].Value(reflect.Indirect(target))
	if pk.IsZero() {
		return entityKey{}, false
	}
	return newEntityKey(a.table.Type, pk.Interface()), true
}
