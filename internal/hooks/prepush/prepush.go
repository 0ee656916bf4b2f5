// Package prepush lints the messages of all commits in a git range, either
// from the refs git passes to the pre-push hook or from explicit refs.
package prepush

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"runtime"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/sync/errgroup"

	"github.com/breml/msglint/internal/config"
	"github.com/breml/msglint/internal/lint"
)

const (
	minRefFields = 4

	gitZeroHash = "0000000000000000000000000000000000000000"
)

// Runner lints commit ranges of a repository.
type Runner struct {
	settings    config.Settings
	linter      *lint.Linter
	repo        *git.Repository
	skipAuthors []*regexp.Regexp
}

// OpenRepository opens the git repository containing path.
func OpenRepository(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	return repo, nil
}

// New creates a runner. The settings must have been validated by config.Load.
func New(settings config.Settings, linter *lint.Linter, repo *git.Repository) (*Runner, error) {
	if settings.MainRef == "" {
		settings.MainRef = config.DefaultMainRef
	}

	skipAuthors := make([]*regexp.Regexp, 0, len(settings.SkipAuthors))
	for i, pattern := range settings.SkipAuthors {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("skip_authors[%d]: invalid regex pattern %q: %w", i, pattern, err)
		}

		skipAuthors = append(skipAuthors, re)
	}

	return &Runner{
		settings:    settings,
		linter:      linter,
		repo:        repo,
		skipAuthors: skipAuthors,
	}, nil
}

// ResolveRange applies the defaults for explicit range refs. If only head
// is given, base defaults to mainRef.
func ResolveRange(baseRef string, headRef string, mainRef string) (string, string, error) {
	if baseRef != "" && headRef == "" {
		return "", "", errors.New("--head-ref is required when using --base-ref")
	}

	if headRef == "" {
		return "", "", errors.New("--head-ref is required")
	}

	if baseRef == "" {
		baseRef = mainRef
	}

	return baseRef, headRef, nil
}

// RunRange lints all commits reachable from headRef but not from baseRef.
func (r *Runner) RunRange(ctx context.Context, baseRef string, headRef string) error {
	baseRef, headRef, err := ResolveRange(baseRef, headRef, r.settings.MainRef)
	if err != nil {
		return err
	}

	// Resolve base and head to commits
	baseCommit, err := r.resolveRefOrSHA(baseRef)
	if err != nil {
		if baseRef == r.settings.MainRef {
			return fmt.Errorf("%w (hint: use --base-ref to specify a different base)", err)
		}

		return err
	}

	headCommit, err := r.resolveRefOrSHA(headRef)
	if err != nil {
		return err
	}

	commits, err := r.getCommitsInRange(baseCommit.Hash.String(), headCommit.Hash.String())
	if err != nil {
		return fmt.Errorf("failed to get commits: %w", err)
	}

	refName := fmt.Sprintf("%s..%s", baseRef, headRef)
	slog.Debug("linting commit range", "range", refName, "commits", len(commits))

	return r.lintCommits(ctx, commits, refName)
}

// RunPrePush reads git pre-push hook input from stdin and lints the pushed
// commits.
func (r *Runner) RunPrePush(ctx context.Context, stdin io.Reader) error {
	scanner := bufio.NewScanner(stdin)

	for scanner.Scan() {
		err := ctx.Err()
		if err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < minRefFields {
			slog.Debug("skipping malformed pre-push line", "line", line)
			continue
		}

		localRef := fields[0]
		localOID := fields[1]
		remoteOID := fields[3]

		// Handle delete
		if localOID == gitZeroHash {
			slog.Debug("skipping deleted ref", "ref", localRef)
			continue
		}

		commits, err := r.commitsToPush(localOID, remoteOID)
		if err != nil {
			return fmt.Errorf("failed to get commits: %w", err)
		}

		lintErr := r.lintCommits(ctx, commits, localRef)
		if lintErr != nil {
			return lintErr
		}
	}

	err := scanner.Err()
	if err != nil {
		return fmt.Errorf("error reading stdin: %w", err)
	}

	return nil
}

// commitsToPush returns the commits new to the remote. Commits of a new
// branch are compared against the main ref. If the main ref does not exist,
// the whole history of the branch is returned.
func (r *Runner) commitsToPush(localOID string, remoteOID string) ([]*object.Commit, error) {
	if remoteOID != gitZeroHash {
		return r.getCommitsInRange(remoteOID, localOID)
	}

	// New branch, examine all commits since main branch
	mainRef, err := r.resolveRefOrSHA(r.settings.MainRef)
	if err != nil {
		slog.Warn("main ref not found, linting the whole branch history", "main_ref", r.settings.MainRef)
		return r.getCommitsUpTo(localOID)
	}

	return r.getCommitsInRange(mainRef.Hash.String(), localOID)
}

// lintCommits lints the commit messages concurrently, every commit with its
// own problem sink. Reports keep the order of commits.
func (r *Runner) lintCommits(ctx context.Context, commits []*object.Commit, ref string) error {
	selected := make([]*object.Commit, 0, len(commits))
	for _, commit := range commits {
		if r.settings.SkipMergeCommits && len(commit.ParentHashes) > 1 {
			slog.Debug("skipping merge commit", "commit", shortHash(commit))
			continue
		}

		if r.shouldSkipAuthor(commit.Author.Name, commit.Author.Email) {
			slog.Debug("skipping commit by author", "commit", shortHash(commit), "author", commit.Author.Name)
			continue
		}

		selected = append(selected, commit)
	}

	limit := r.settings.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	reports := make([]CommitReport, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, commit := range selected {
		g.Go(func() error {
			err := gctx.Err()
			if err != nil {
				return err
			}

			reports[i] = CommitReport{
				Commit: commit,
				Result: r.linter.Lint(commit.Message),
			}

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return err
	}

	var failed []CommitReport
	for _, report := range reports {
		if report.Result.OK() {
			continue
		}

		failed = append(failed, report)
		if r.settings.FailFast {
			break
		}
	}

	if len(failed) == 0 {
		return nil
	}

	return &ViolationError{Ref: ref, Reports: failed}
}

// shouldSkipAuthor checks if a commit author matches one of the skip patterns.
func (r *Runner) shouldSkipAuthor(name string, email string) bool {
	for _, re := range r.skipAuthors {
		if re.MatchString(name) || re.MatchString(email) {
			return true
		}
	}

	return false
}

// resolveRefOrSHA resolves a ref name or SHA to a commit object.
// Tries as ref first (branches, tags, HEAD), then as SHA.
func (r *Runner) resolveRefOrSHA(refOrSHA string) (*object.Commit, error) {
	// Try as ref name first (handles branches, remotes, tags, HEAD, HEAD^, etc.)
	hash, err := r.repo.ResolveRevision(plumbing.Revision(refOrSHA))
	if err == nil {
		commit, err := r.repo.CommitObject(*hash)
		if err == nil {
			return commit, nil
		}
	}

	// Try as direct SHA
	commit, err := r.repo.CommitObject(plumbing.NewHash(refOrSHA))
	if err == nil {
		return commit, nil
	}

	return nil, fmt.Errorf("failed to resolve '%s' as ref or SHA", refOrSHA)
}

// getCommitsInRange returns all commits between oldCommit and newCommit (exclusive of oldCommit).
func (r *Runner) getCommitsInRange(oldCommit string, newCommit string) ([]*object.Commit, error) {
	newCommitObj, err := r.repo.CommitObject(plumbing.NewHash(newCommit))
	if err != nil {
		return nil, fmt.Errorf("failed to get new commit %s: %w", newCommit, err)
	}

	oldCommitObj, err := r.repo.CommitObject(plumbing.NewHash(oldCommit))
	if err != nil {
		return nil, fmt.Errorf("failed to get old commit %s: %w", oldCommit, err)
	}

	// Create a set of old commits to exclude
	oldCommits := make(map[plumbing.Hash]bool)
	oldIter := object.NewCommitIterCTime(oldCommitObj, nil, nil)
	err = oldIter.ForEach(func(c *object.Commit) error {
		oldCommits[c.Hash] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate old commits: %w", err)
	}

	// Get commits from new that are not in old
	var commits []*object.Commit
	newIter := object.NewCommitIterCTime(newCommitObj, nil, nil)
	err = newIter.ForEach(func(c *object.Commit) error {
		if !oldCommits[c.Hash] {
			commits = append(commits, c)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate new commits: %w", err)
	}

	return commits, nil
}

// getCommitsUpTo returns all commits up to and including the specified commit.
func (r *Runner) getCommitsUpTo(commitHash string) ([]*object.Commit, error) {
	commitObj, err := r.repo.CommitObject(plumbing.NewHash(commitHash))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", commitHash, err)
	}

	var commits []*object.Commit
	iter := object.NewCommitIterCTime(commitObj, nil, nil)
	err = iter.ForEach(func(c *object.Commit) error {
		commits = append(commits, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}

	return commits, nil
}
