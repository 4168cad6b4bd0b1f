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
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tomoncle/roster"
	"github.com/tomoncle/roster/cmd/roster/internal/config"
	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/dto"
	"github.com/tomoncle/roster/repository"
	"github.com/tomoncle/roster/types"
	"github.com/tomoncle/roster/utils"
)

// CommandHandler loads the configuration once per invocation and runs the
// database commands against it.
type CommandHandler struct {
	configPath string
	envFile    string
	cfg        *config.Config
	logger     database.Logger
}

func NewCommandHandler() *CommandHandler {
	return &CommandHandler{}
}

// Init registers the persistent flags and every sub-command on rootCmd.
func Init(rootCmd *cobra.Command) error {
	h := NewCommandHandler()
	rootCmd.PersistentFlags().StringVarP(&h.configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&h.envFile, "env-file", ".env", "dotenv file applied before the environment")
	rootCmd.PersistentPreRunE = h.load

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the member, team and item tables and check the declared queries",
		RunE:  h.Migrate,
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Execute the SQL seed files of an environment",
		RunE:  h.Seed,
	}
	seedCmd.Flags().String("env", "", "seed environment; defaults to init.environment")

	membersCmd := &cobra.Command{
		Use:   "members",
		Short: "List members one page at a time",
		RunE:  h.Members,
	}
	membersCmd.Flags().Int("page", 0, "zero-based page number")
	membersCmd.Flags().Int("size", types.DefaultPageSize, "page size")
	membersCmd.Flags().String("sort", "id", "sort as property[,asc|desc]; repeat with ';'")
	membersCmd.Flags().String("team", "", "only members of this team")

	rootCmd.AddCommand(migrateCmd, seedCmd, membersCmd)
	return nil
}

func (h *CommandHandler) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(h.configPath, h.envFile)
	if err != nil {
		return err
	}
	utils.ConfigureConsoleLogFormat(cfg.Log.Format)
	utils.ConfigureLogLevel(cfg.Log.Level)
	utils.ConfigureOutput(cmd.ErrOrStderr())
	h.cfg = cfg
	h.logger = database.GetLogger()
	return nil
}

// Migrate runs the migrations regardless of migrate.on_startup.
func (h *CommandHandler) Migrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	dbCfg := h.cfg.ConfigLoader()
	dbCfg.DataMigrateConfig.EnableMigrateOnStartup = true
	r, err := roster.Init(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	applied, err := database.NewMigrationManager(r.DB(), h.logger, dbCfg).GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	for _, m := range applied {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.Version, m.Name)
	}
	h.logger.Info("declared queries checked", "count", len(repository.NamedQueries().Names()))
	return nil
}

func (h *CommandHandler) Seed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env, err := cmd.Flags().GetString("env")
	if err != nil {
		return err
	}
	dbCfg := h.cfg.ConfigLoader()
	r, err := roster.Init(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	mm := database.NewMigrationManager(r.DB(), h.logger, dbCfg)
	if env != "" {
		mm.SetEnvironment(env)
	}
	return mm.InitData(ctx)
}

func (h *CommandHandler) Members(cmd *cobra.Command, _ []string) error {
	page, err := cmd.Flags().GetInt("page")
	if err != nil {
		return err
	}
	size, err := cmd.Flags().GetInt("size")
	if err != nil {
		return err
	}
	sortFlag, err := cmd.Flags().GetString("sort")
	if err != nil {
		return err
	}
	team, err := cmd.Flags().GetString("team")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	r, err := roster.Init(ctx, h.cfg.ConfigLoader())
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	result, err := listMembers(ctx, r, team, types.PageOf(page, size, ParseSort(sortFlag)))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER NAME\tTEAM")
	for _, m := range result.Content {
		fmt.Fprintf(w, "%d\t%s\t%s\n", m.ID, m.UserName, m.TeamName)
	}
	fmt.Fprintf(w, "page %d/%d\ttotal %d\t\n", result.Number+1, result.TotalPages(), result.TotalElements)
	return w.Flush()
}

func listMembers(ctx context.Context, r *roster.Roster, team string, req *types.PageRequest) (*types.Page[dto.MemberDto], error) {
	var result *types.Page[dto.MemberDto]
	err := r.Transactional(ctx, func(ctx context.Context) error {
		page, err := r.Members.FindAllSpecPage(ctx, repository.MemberSpec.TeamName(team), req)
		if err != nil {
			return err
		}
		for _, m := range page.Content {
			if _, err := r.Members.Team(ctx, m); err != nil {
				return err
			}
		}
		result = types.MapPage(page, dto.NewMemberDto)
		return nil
	})
	return result, err
}

// ParseSort reads "userName,desc;age" into a Sort. Blank parts are skipped.
func ParseSort(s string) types.Sort {
	var sort types.Sort
	for _, part := range strings.Split(s, ";") {
		prop, dir, _ := strings.Cut(strings.TrimSpace(part), ",")
		if prop == "" {
			continue
		}
		sort = sort.And(types.SortBy(types.ParseDirection(dir), prop))
	}
	return sort
}
