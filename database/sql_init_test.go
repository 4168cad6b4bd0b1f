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

package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSQLStatements(t *testing.T) {
	content := `
-- teams
INSERT INTO team (name)
VALUES ('teamA');

INSERT INTO team (name) VALUES ('teamB');
UPDATE team SET name = 'x'
`
	got := splitSQLStatements(content)
	assert.Equal(t, []string{
		"INSERT INTO team (name) VALUES ('teamA');",
		"INSERT INTO team (name) VALUES ('teamB');",
		"UPDATE team SET name = 'x'",
	}, got)
	assert.Empty(t, splitSQLStatements("-- only a comment\n\n"))
}

func TestParseFileOrder(t *testing.T) {
	assert.Equal(t, 1, parseFileOrder("001_teams.sql"))
	assert.Equal(t, 42, parseFileOrder("42_members.sql"))
	assert.Equal(t, 999, parseFileOrder("members.sql"))
	assert.Equal(t, 999, parseFileOrder("v1_members.sql"))
}

func TestGetSQLFiles(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{
		filepath.Join("common", "002_b.sql"),
		filepath.Join("common", "001_a.sql"),
		filepath.Join("common", "README.md"),
		filepath.Join("environments", "test", "001_members.sql"),
		filepath.Join("environments", "test", "extra.sql"),
		filepath.Join("environments", "development", "001_other.sql"),
	} {
		path := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("SELECT 1;"), 0644))
	}

	s := NewSQLInitManager(nil, "test")
	s.SetSQLRootPath(root)
	files, err := s.GetSQLFiles()
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Environment+"/"+f.Name)
	}
	assert.Equal(t, []string{"common/001_a.sql", "common/002_b.sql", "test/001_members.sql", "test/extra.sql"}, names)

	s.SetSQLRootPath(filepath.Join(root, "absent"))
	files, err = s.GetSQLFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestReplaceEnvVariables(t *testing.T) {
	t.Setenv("ROSTER_SEED_TEAM", "teamZ")
	s := NewSQLInitManager(nil, "staging")
	got, err := s.replaceEnvVariables("INSERT INTO team (name) VALUES ('{{.ROSTER_SEED_TEAM}}-{{.ENVIRONMENT}}');")
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO team (name) VALUES ('teamZ-staging');", got)

	_, err = s.replaceEnvVariables("{{.broken")
	assert.Error(t, err)
}
