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
	"sync"
)

// EntityGraph lists the associations loaded together with the entity in a
// single query.
type EntityGraph struct {
	Name           string
	AttributePaths []string
}

type graphRegistry struct {
	mu     sync.RWMutex
	graphs map[string]EntityGraph
}

func newGraphRegistry() *graphRegistry {
	return &graphRegistry{graphs: make(map[string]EntityGraph)}
}

func (g *graphRegistry) register(graph EntityGraph) {
	g.mu.Lock()
	g.graphs[graph.Name] = graph
	g.mu.Unlock()
}

func (g *graphRegistry) lookup(name string) (EntityGraph, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	graph, ok := g.graphs[name]
	if !ok {
		return EntityGraph{}, fmt.Errorf("%w: entity graph %s", ErrUnknownAttribute, name)
	}
	return graph, nil
}

// graphAssociations resolves attribute paths to associations.
func (m *EntityMetadata) graphAssociations(paths []string) ([]*association, error) {
	out := make([]*association, 0, len(paths))
	for _, p := range paths {
		a := m.association(p)
		if a == nil {
			return nil, m.unknown(p)
		}
		out = append(out, a)
	}
	return out, nil
}
