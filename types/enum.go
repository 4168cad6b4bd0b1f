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

import "strings"

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// Direction is the sort direction of an Order.
type Direction int

const (
	Asc Direction = iota
	Desc
)

var _ BaseEnum = Asc

func (d Direction) IsValid() bool { return d == Asc || d == Desc }

func (d Direction) Number() int {
	if !d.IsValid() {
		return IllegalValue
	}
	return int(d)
}

func (d Direction) Name() string {
	switch d {
	case Asc:
		return "ASC"
	case Desc:
		return "DESC"
	default:
		return IllegalName
	}
}

func (d Direction) String() string { return d.Name() }

func (d Direction) Desc() string {
	switch d {
	case Asc:
		return "ascending"
	case Desc:
		return "descending"
	default:
		return IllegalDesc
	}
}

// ParseDirection accepts "asc"/"desc" in any case; anything else is ascending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return Desc
	}
	return Asc
}

// DeletePolicy decides what happens to dependent rows when an owner row is deleted.
type DeletePolicy int

const (
	// Restrict refuses the delete while dependents exist.
	Restrict DeletePolicy = iota
	// Cascade deletes the dependents together with the owner.
	Cascade
	// SetNull detaches the dependents by nulling their foreign key.
	SetNull
)

var _ BaseEnum = Restrict

func (p DeletePolicy) IsValid() bool { return p >= Restrict && p <= SetNull }

func (p DeletePolicy) Number() int {
	if !p.IsValid() {
		return IllegalValue
	}
	return int(p)
}

// Name returns the SQL referential action matching the policy.
func (p DeletePolicy) Name() string {
	switch p {
	case Restrict:
		return "RESTRICT"
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	default:
		return IllegalName
	}
}

func (p DeletePolicy) String() string { return p.Name() }

func (p DeletePolicy) Desc() string {
	switch p {
	case Restrict:
		return "refuse while dependents exist"
	case Cascade:
		return "delete dependents"
	case SetNull:
		return "detach dependents"
	default:
		return IllegalDesc
	}
}

// ParseDeletePolicy maps "restrict", "cascade", "set null"/"set_null" to a policy.
func ParseDeletePolicy(s string) (DeletePolicy, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", " ")) {
	case "", "restrict":
		return Restrict, true
	case "cascade":
		return Cascade, true
	case "set null", "setnull":
		return SetNull, true
	default:
		return DeletePolicy(IllegalValue), false
	}
}
