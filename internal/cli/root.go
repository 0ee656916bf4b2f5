// Package cli provides the command-line interface for msglint.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/spf13/cobra"

	"github.com/breml/msglint/internal/config"
	"github.com/breml/msglint/internal/hooks/commitmsg"
	"github.com/breml/msglint/internal/lint"
)

// Version information (set at build time).
var Version = "dev"

// ErrProblemsFound is returned when at least one linted message has
// problems. The problems have been printed already.
var ErrProblemsFound = errors.New("problems found")

// globalOptions holds the flags shared by all commands.
type globalOptions struct {
	configFile string
	verbose    bool
	noColor    bool
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	msgOpts := commitmsg.Options{}

	rootCmd := &cobra.Command{
		Use:   "msglint",
		Short: "Lint commit messages",
		Long: `msglint checks commit messages against the Conventional Commits format.

The message is read from --message, from --file or from stdin, in this order.
Use it as commit-msg hook with: msglint --file "$1"`,
		Example: `  # Lint a message
  msglint -m "feat(parser): handle footers"

  # Lint the message of the last commit
  git log -1 --format=%B | msglint`,
		Version: Version,
		Args:    cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmd.ErrOrStderr(), opts.verbose)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			msgOpts.MessageSet = cmd.Flags().Changed("message")
			return runLint(cmd, opts, msgOpts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: "+config.DefaultConfigFile+" in the repository root)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().Int("max-header-length", config.DefaultMaxHeaderLength, "Maximum header length, 0 disables the check")
	rootCmd.PersistentFlags().StringSlice("types", nil, "Allowed commit types (default: "+strings.Join(config.DefaultTypes, ",")+")")
	rootCmd.PersistentFlags().StringSlice("disable", nil, "Built-in rules to disable")

	rootCmd.Flags().StringVarP(&msgOpts.Message, "message", "m", "", "Commit message to lint")
	rootCmd.Flags().StringVarP(&msgOpts.File, "file", "f", "", "File containing the commit message")
	rootCmd.Flags().BoolVar(&msgOpts.StripComments, "strip-comments", false, "Strip git comment lines before linting (default for COMMIT_EDITMSG)")

	rootCmd.MarkFlagsMutuallyExclusive("message", "file")

	// Add subcommands
	rootCmd.AddCommand(newRangeCommand(opts))
	rootCmd.AddCommand(newPrePushCommand(opts))
	rootCmd.AddCommand(newRulesCommand(opts))
	rootCmd.AddCommand(newConfigCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd := NewRootCmd()

	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	if !errors.Is(err, ErrProblemsFound) {
		printError(rootCmd.ErrOrStderr(), err)
	}

	return 1
}

func runLint(cmd *cobra.Command, opts *globalOptions, msgOpts commitmsg.Options) error {
	cfg, err := opts.loadConfig(cmd, repositoryRoot("."))
	if err != nil {
		return err
	}

	linter, err := lint.New(cfg)
	if err != nil {
		return err
	}

	result, err := commitmsg.Run(linter, msgOpts, cmd.InOrStdin())
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout(), opts.noColor)
	p.problems(result.Problems)
	p.summary(len(result.Problems))

	if !result.OK() {
		return ErrProblemsFound
	}

	return nil
}

// loadConfig loads the configuration for cmd. Flags that were set
// explicitly override the config file.
func (o *globalOptions) loadConfig(cmd *cobra.Command, repoPath string) (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		RepoPath: repoPath,
		File:     o.configFile,
		Flags:    cmd.Flags(),
		Env:      true,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Path != "" {
		slog.Debug("using config file", "path", cfg.Path)
	}

	return cfg, nil
}

// repositoryRoot returns the worktree root of the repository containing dir,
// or dir itself outside of a repository.
func repositoryRoot(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return dir
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return dir
	}

	return worktree.Filesystem.Root()
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func printError(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "%s %v\n", errorStyle(w).Render("error:"), err)
}
