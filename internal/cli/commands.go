package cli

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/breml/msglint/internal/config"
	"github.com/breml/msglint/internal/hooks/prepush"
	"github.com/breml/msglint/internal/lint"
)

// rangeOptions holds the flags of the commands linting commit ranges.
type rangeOptions struct {
	repo    string
	baseRef string
	headRef string
}

func addRangeSettingsFlags(fs *pflag.FlagSet, repo *string) {
	fs.StringVar(repo, "repo", ".", "Path inside the git repository")
	fs.String("main-ref", config.DefaultMainRef, "Ref new branches are compared against")
	fs.Bool("fail-fast", false, "Report only the first failing commit")
	fs.Int("concurrency", 0, "Number of commits linted in parallel (default: number of CPUs)")
}

func newRangeCommand(opts *globalOptions) *cobra.Command {
	rangeOpts := &rangeOptions{}

	cmd := &cobra.Command{
		Use:   "range",
		Short: "Lint all commits in a range",
		Long: `Lint the messages of all commits reachable from --head-ref but not from
--base-ref. If --base-ref is omitted, the configured main ref is used.`,
		Example: `  # Lint the commits of the current branch
  msglint range --head-ref HEAD

  # Lint the commits since a tag
  msglint range --base-ref v1.0.0 --head-ref HEAD`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, err := newRunner(cmd, opts, rangeOpts.repo)
			if err != nil {
				return err
			}

			err = runner.RunRange(cmd.Context(), rangeOpts.baseRef, rangeOpts.headRef)
			return reportViolations(cmd, opts, err)
		},
	}

	cmd.Flags().StringVar(&rangeOpts.baseRef, "base-ref", "", "Base ref or SHA (exclusive)")
	cmd.Flags().StringVar(&rangeOpts.headRef, "head-ref", "", "Head ref or SHA (inclusive)")
	addRangeSettingsFlags(cmd.Flags(), &rangeOpts.repo)

	return cmd
}

func newPrePushCommand(opts *globalOptions) *cobra.Command {
	rangeOpts := &rangeOptions{}

	cmd := &cobra.Command{
		Use:   "pre-push",
		Short: "Lint pushed commits, as git pre-push hook",
		Long: `Read the refs being pushed from stdin, in the format git passes to the
pre-push hook, and lint the messages of all commits that are new to the remote.
Commits of new branches are compared against the configured main ref.`,
		Example: `  # .git/hooks/pre-push
  exec msglint pre-push`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, err := newRunner(cmd, opts, rangeOpts.repo)
			if err != nil {
				return err
			}

			err = runner.RunPrePush(cmd.Context(), cmd.InOrStdin())
			return reportViolations(cmd, opts, err)
		},
	}

	addRangeSettingsFlags(cmd.Flags(), &rangeOpts.repo)

	return cmd
}

func newRunner(cmd *cobra.Command, opts *globalOptions, repoPath string) (*prepush.Runner, error) {
	repo, err := prepush.OpenRepository(repoPath)
	if err != nil {
		return nil, err
	}

	cfg, err := opts.loadConfig(cmd, repositoryRoot(repoPath))
	if err != nil {
		return nil, err
	}

	linter, err := lint.New(cfg)
	if err != nil {
		return nil, err
	}

	return prepush.New(cfg.Settings, linter, repo)
}

// reportViolations prints the problems of a violation error and turns it
// into ErrProblemsFound. Other errors are returned unchanged.
func reportViolations(cmd *cobra.Command, opts *globalOptions, err error) error {
	var verr *prepush.ViolationError
	if !errors.As(err, &verr) {
		return err
	}

	newPrinter(cmd.OutOrStdout(), opts.noColor).violations(verr)

	return ErrProblemsFound
}

func newRulesCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the active lint rules",
		Long: `List the rules that run on every message, in order. Disabled built-in
rules are not listed, configured pattern rules follow the built-in ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd, repositoryRoot("."))
			if err != nil {
				return err
			}

			linter, err := lint.New(cfg)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Description"})

			for _, rule := range linter.Rules() {
				t.AppendRow(table.Row{rule.Name(), rule.Description()})
			}

			t.Render()

			return nil
		},
	}
}

func newConfigCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after applying defaults, the config file,
MSGLINT_* environment variables and flags, as YAML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd, repositoryRoot("."))
			if err != nil {
				return err
			}

			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}

			if cfg.Path != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", cfg.Path)
			}

			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the msglint version.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "msglint %s\n", Version)
		},
	}
}
