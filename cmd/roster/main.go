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

// Command roster manages the member/team database: migrations, seed data
// and paged member listings.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/tomoncle/roster/cmd/roster/internal/commands"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:           "roster",
		Short:         "Member and team database tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `roster creates the member, team and item tables, seeds them from SQL
files and lists members page by page.

Configuration comes from --config (YAML), then --env-file, then ROSTER_*
variables such as ROSTER_DATABASE_TYPE or ROSTER_DATABASE_LOCK_TIMEOUT.
DB_* variables override the connection last.`,
	}

	if err := commands.Init(rootCmd); err != nil {
		return fmt.Errorf("failed to initialize commands: %w", err)
	}
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}
	return nil
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stderr)
}
