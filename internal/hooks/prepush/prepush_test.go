package prepush_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breml/msglint/internal/config"
	"github.com/breml/msglint/internal/hooks/prepush"
	"github.com/breml/msglint/internal/lint"
)

type commit struct {
	message string
	author  string
	files   map[string]string
}

// Helper function to create a test repository with commits. The main branch
// points to a base commit below all created commits.
func createTestRepo(t *testing.T, commits []commit) (*git.Repository, plumbing.Hash, []plumbing.Hash) {
	t.Helper()

	tmpDir := t.TempDir()

	repo, err := git.PlainInit(tmpDir, false)
	require.NoError(t, err)

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	// Create an initial base commit for main branch to point to
	err = os.WriteFile(filepath.Join(tmpDir, ".gitkeep"), []byte(""), 0o644)
	require.NoError(t, err)

	_, err = worktree.Add(".gitkeep")
	require.NoError(t, err)

	start := time.Now().Add(-time.Hour)

	baseHash, err := worktree.Commit("chore: initial repository setup", &git.CommitOptions{
		Author: signature("Test User", start),
	})
	require.NoError(t, err)

	hashes := make([]plumbing.Hash, 0, len(commits))

	for commitIdx, c := range commits {
		files := c.files
		if files == nil {
			files = map[string]string{fmt.Sprintf("file%d.txt", commitIdx): "content"}
		}

		for filename, content := range files {
			writeErr := os.WriteFile(filepath.Join(tmpDir, filename), []byte(content), 0o644)
			require.NoError(t, writeErr)

			_, addErr := worktree.Add(filename)
			require.NoError(t, addErr)
		}

		author := c.author
		if author == "" {
			author = "Test User"
		}

		hash, commitErr := worktree.Commit(c.message, &git.CommitOptions{
			Author: signature(author, start.Add(time.Duration(commitIdx+1)*time.Minute)),
		})
		require.NoError(t, commitErr)

		hashes = append(hashes, hash)
	}

	err = repo.Storer.SetReference(plumbing.NewHashReference("refs/heads/main", baseHash))
	require.NoError(t, err)

	return repo, baseHash, hashes
}

func signature(name string, when time.Time) *object.Signature {
	return &object.Signature{
		Name:  name,
		Email: strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		When:  when,
	}
}

// defaultConfig loads the configuration used when no config file exists.
func defaultConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load(config.Options{})
	require.NoError(t, err)

	return cfg
}

func newRunner(t *testing.T, repo *git.Repository, settings func(*config.Settings)) *prepush.Runner {
	t.Helper()

	cfg := defaultConfig(t)
	if settings != nil {
		settings(&cfg.Settings)
	}

	linter, err := lint.New(cfg)
	require.NoError(t, err)

	runner, err := prepush.New(cfg.Settings, linter, repo)
	require.NoError(t, err)

	return runner
}

const gitZeroHash = "0000000000000000000000000000000000000000"

func TestRunPrePush(t *testing.T) {
	tests := []struct {
		name         string
		commits      []commit
		input        func(base plumbing.Hash, hashes []plumbing.Hash) string
		wantProblems int
	}{
		{
			name:  "empty input",
			input: func(_ plumbing.Hash, _ []plumbing.Hash) string { return "" },
		},
		{
			name:  "blank lines",
			input: func(_ plumbing.Hash, _ []plumbing.Hash) string { return "\n\n\n" },
		},
		{
			name:  "too few fields",
			input: func(_ plumbing.Hash, _ []plumbing.Hash) string { return "refs/heads/main abc123\n" },
		},
		{
			name: "delete operation",
			input: func(_ plumbing.Hash, _ []plumbing.Hash) string {
				return fmt.Sprintf("refs/heads/main %s refs/heads/main abc123def456\n", gitZeroHash)
			},
		},
		{
			name: "new branch with clean commits",
			commits: []commit{
				{message: "feat: add parser"},
				{message: "fix(parser): handle empty footers\n\nRefs: #3\n"},
			},
			input: func(_ plumbing.Hash, hashes []plumbing.Hash) string {
				return fmt.Sprintf("refs/heads/feature %s refs/heads/feature %s\n", hashes[1], gitZeroHash)
			},
		},
		{
			name: "new branch with bad commit",
			commits: []commit{
				{message: "feat: add parser"},
				{message: "WIP debugging issue"},
			},
			input: func(_ plumbing.Hash, hashes []plumbing.Hash) string {
				return fmt.Sprintf("refs/heads/feature %s refs/heads/feature %s\n", hashes[1], gitZeroHash)
			},
			wantProblems: 1,
		},
		{
			name: "branch update only checks new commits",
			commits: []commit{
				{message: "WIP old stuff"},
				{message: "feat: add parser"},
			},
			input: func(_ plumbing.Hash, hashes []plumbing.Hash) string {
				return fmt.Sprintf("refs/heads/main %s refs/heads/main %s\n", hashes[1], hashes[0])
			},
		},
		{
			name: "branch update with bad commit",
			commits: []commit{
				{message: "feat: add parser"},
				{message: "feat: Add thing."},
			},
			input: func(base plumbing.Hash, hashes []plumbing.Hash) string {
				return fmt.Sprintf("refs/heads/main %s refs/heads/main %s\n", hashes[1], base)
			},
			wantProblems: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, base, hashes := createTestRepo(t, tt.commits)
			runner := newRunner(t, repo, nil)

			err := runner.RunPrePush(context.Background(), strings.NewReader(tt.input(base, hashes)))
			if tt.wantProblems == 0 {
				require.NoError(t, err)
				return
			}

			var violation *prepush.ViolationError
			require.ErrorAs(t, err, &violation)
			assert.Equal(t, tt.wantProblems, violation.Problems())
		})
	}
}

func TestRunPrePush_NewBranchWithoutMainRef(t *testing.T) {
	tests := []struct {
		name         string
		commits      []commit
		wantProblems int
	}{
		{
			name: "clean history",
			commits: []commit{
				{message: "feat: add parser"},
				{message: "fix: handle empty footers"},
			},
		},
		{
			name: "bad commit in history",
			commits: []commit{
				{message: "WIP"},
				{message: "feat: add parser"},
			},
			wantProblems: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _, hashes := createTestRepo(t, tt.commits)
			runner := newRunner(t, repo, func(s *config.Settings) {
				s.MainRef = "trunk"
			})

			input := fmt.Sprintf("refs/heads/feature %s refs/heads/feature %s\n", hashes[len(hashes)-1], gitZeroHash)

			err := runner.RunPrePush(context.Background(), strings.NewReader(input))
			if tt.wantProblems == 0 {
				require.NoError(t, err)
				return
			}

			var violation *prepush.ViolationError
			require.ErrorAs(t, err, &violation)
			assert.Equal(t, tt.wantProblems, violation.Problems())
			assert.Equal(t, "refs/heads/feature", violation.Ref)
		})
	}
}

func TestRunRange(t *testing.T) {
	repo, _, hashes := createTestRepo(t, []commit{
		{message: "feat: add parser"},
		{message: "WIP"},
		{message: "fix: Broken."},
	})

	t.Run("all failing commits reported in order", func(t *testing.T) {
		runner := newRunner(t, repo, nil)

		err := runner.RunRange(context.Background(), "main", hashes[2].String())

		var violation *prepush.ViolationError
		require.ErrorAs(t, err, &violation)
		require.Len(t, violation.Reports, 2)
		assert.Equal(t, hashes[2], violation.Reports[0].Commit.Hash)
		assert.Equal(t, hashes[1], violation.Reports[1].Commit.Hash)
		assert.Equal(t, "main.."+hashes[2].String(), violation.Ref)
		assert.Contains(t, violation.Error(), "Commit message: WIP")
		assert.Contains(t, violation.Error(), "  1. Commit message type is missing. (example: `feat: ...`)")
	})

	t.Run("fail fast stops after first failing commit", func(t *testing.T) {
		runner := newRunner(t, repo, func(s *config.Settings) {
			s.FailFast = true
			s.Concurrency = 1
		})

		err := runner.RunRange(context.Background(), "main", hashes[2].String())

		var violation *prepush.ViolationError
		require.ErrorAs(t, err, &violation)
		assert.Len(t, violation.Reports, 1)
	})

	t.Run("clean range", func(t *testing.T) {
		runner := newRunner(t, repo, nil)

		err := runner.RunRange(context.Background(), "main", hashes[0].String())
		require.NoError(t, err)
	})

	t.Run("base defaults to main ref", func(t *testing.T) {
		runner := newRunner(t, repo, nil)

		err := runner.RunRange(context.Background(), "", hashes[0].String())
		require.NoError(t, err)
	})

	t.Run("unknown main ref gives hint", func(t *testing.T) {
		runner := newRunner(t, repo, func(s *config.Settings) {
			s.MainRef = "trunk"
		})

		err := runner.RunRange(context.Background(), "", hashes[0].String())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hint: use --base-ref")
	})

	t.Run("canceled context", func(t *testing.T) {
		runner := newRunner(t, repo, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := runner.RunRange(ctx, "main", hashes[2].String())
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestRunRange_SkipAuthors(t *testing.T) {
	repo, _, hashes := createTestRepo(t, []commit{
		{message: "Bump deps", author: "dependabot"},
		{message: "feat: add parser"},
	})

	runner := newRunner(t, repo, func(s *config.Settings) {
		s.SkipAuthors = []string{`^dependabot`}
	})

	err := runner.RunRange(context.Background(), "main", hashes[1].String())
	require.NoError(t, err)

	assert.True(t, runner.ShouldSkipAuthorForTesting("dependabot", "x@example.com"))
	assert.True(t, runner.ShouldSkipAuthorForTesting("someone", "dependabot@example.com"))
	assert.False(t, runner.ShouldSkipAuthorForTesting("Test User", "test.user@example.com"))
}

func TestRunRange_MergeCommits(t *testing.T) {
	repo, base, hashes := createTestRepo(t, []commit{
		{message: "feat: add parser"},
	})

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	mergeHash, err := worktree.Commit("Merge branch 'feature'", &git.CommitOptions{
		Author:            signature("Test User", time.Now()),
		Parents:           []plumbing.Hash{hashes[0], base},
		AllowEmptyCommits: true,
	})
	require.NoError(t, err)

	t.Run("skipped by default", func(t *testing.T) {
		runner := newRunner(t, repo, nil)

		err := runner.RunRange(context.Background(), "main", mergeHash.String())
		require.NoError(t, err)
	})

	t.Run("linted when enabled", func(t *testing.T) {
		runner := newRunner(t, repo, func(s *config.Settings) {
			s.SkipMergeCommits = false
		})

		err := runner.RunRange(context.Background(), "main", mergeHash.String())

		var violation *prepush.ViolationError
		require.ErrorAs(t, err, &violation)
		require.Len(t, violation.Reports, 1)
		assert.Equal(t, mergeHash, violation.Reports[0].Commit.Hash)
	})
}

func TestResolveRange(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		head     string
		wantBase string
		wantHead string
		wantErr  string
	}{
		{name: "both refs", base: "v1.0.0", head: "HEAD", wantBase: "v1.0.0", wantHead: "HEAD"},
		{name: "head only", head: "HEAD", wantBase: "main", wantHead: "HEAD"},
		{name: "base only", base: "main", wantErr: "--head-ref is required when using --base-ref"},
		{name: "none", wantErr: "--head-ref is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, head, err := prepush.ResolveRange(tt.base, tt.head, "main")
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.wantHead, head)
		})
	}
}

func TestResolveRefOrSHA(t *testing.T) {
	repo, base, hashes := createTestRepo(t, []commit{
		{message: "feat: add parser"},
	})

	runner := newRunner(t, repo, nil)

	tests := []struct {
		name    string
		ref     string
		want    plumbing.Hash
		wantErr bool
	}{
		{name: "branch", ref: "main", want: base},
		{name: "HEAD", ref: "HEAD", want: hashes[0]},
		{name: "full sha", ref: hashes[0].String(), want: hashes[0]},
		{name: "unknown", ref: "does-not-exist", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runner.ResolveRefOrSHAForTesting(tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to resolve 'does-not-exist' as ref or SHA")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Hash)
		})
	}
}

func TestNew_InvalidSkipAuthor(t *testing.T) {
	_, err := prepush.New(config.Settings{SkipAuthors: []string{"("}}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skip_authors[0]")
}
