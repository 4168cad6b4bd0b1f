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

package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/roster/types"
)

func newRootCmd(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	root := &cobra.Command{Use: "roster", SilenceUsage: true, SilenceErrors: true}
	require.NoError(t, Init(root))
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	return root, out
}

func writeSeed(t *testing.T, dir, rel, sql string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(sql), 0o600))
}

func TestMigrateSeedAndList(t *testing.T) {
	dir := t.TempDir()
	writeSeed(t, dir, "sql/common/001_teams.sql", "INSERT INTO team (team_id, name) VALUES (1, 'teamA'), (2, 'teamB');")
	writeSeed(t, dir, "sql/environments/test/001_members.sql",
		"INSERT INTO member (user_name, age, team_id) VALUES ('member1', 10, 1), ('member2', 20, 2), ('member3', 30, 1);")
	t.Setenv("ROSTER_DATABASE_DBNAME", filepath.Join(dir, "roster.db"))
	t.Setenv("ROSTER_INIT_FILEPATH", filepath.Join(dir, "sql"))
	envFile := filepath.Join(dir, "missing.env")

	root, out := newRootCmd(t)
	root.SetArgs([]string{"migrate", "--env-file", envFile})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "001")

	root, _ = newRootCmd(t)
	root.SetArgs([]string{"seed", "--env", "test", "--env-file", envFile})
	require.NoError(t, root.Execute())

	root, out = newRootCmd(t)
	root.SetArgs([]string{"members", "--size", "2", "--sort", "age,desc", "--env-file", envFile})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "member3")
	assert.Contains(t, out.String(), "member2")
	assert.NotContains(t, out.String(), "member1")
	assert.Contains(t, out.String(), "total 3")

	root, out = newRootCmd(t)
	root.SetArgs([]string{"members", "--team", "teamB", "--env-file", envFile})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "member2")
	assert.NotContains(t, out.String(), "member3")
	assert.Contains(t, out.String(), "teamB")
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, []types.Order{
		{Property: "userName", Direction: types.Desc},
		{Property: "age", Direction: types.Asc},
	}, ParseSort("userName,desc; age").Orders)
	assert.False(t, ParseSort(" ; ").IsSorted())
}
