// Package worktree adapts the repository's git facade into isolated
// filesystem/branch pairs for parallel loops: one worktree per loop id,
// branched off HEAD as "ralph/<loop_id>", seeded with the repo root's
// in-flight (uncommitted) state so the loop sees the same files a human
// would.
package worktree

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/format/gitignore"
	"github.com/go-git/go-git/v6/plumbing/object"

	internalgit "github.com/ralph-loop/ralph/internal/git"
)

// BranchPrefix namespaces every branch this package creates, so that
// ListRalphWorktrees can tell a ralph-managed worktree apart from one a
// human created by hand.
const BranchPrefix = "ralph/"

// DirName is where worktrees live, relative to the repo root.
const DirName = ".worktrees"

var (
	// ErrAlreadyExists is returned when the worktree directory for a
	// loop id is already populated.
	ErrAlreadyExists = errors.New("worktree already exists")
	// ErrBranchExists is returned when the ralph/<loop_id> branch is
	// already taken by something else.
	ErrBranchExists = errors.New("branch already exists")
)

// Worktree describes a ralph-managed linked worktree.
type Worktree struct {
	LoopID string
	Branch string
	Path   string
	Head   string
}

// Manager creates and tears down linked worktrees for a single
// repository root.
type Manager struct {
	git      *internalgit.GitManager
	repoRoot string
}

// Open opens the git repository containing repoRoot and returns a
// Manager for it. Returns internalgit.ErrNotRepository if repoRoot is
// not inside a git repository.
func Open(repoRoot string) (*Manager, error) {
	gm, err := internalgit.NewGitManager(repoRoot)
	if err != nil {
		return nil, err
	}
	return &Manager{git: gm, repoRoot: gm.RepoRoot()}, nil
}

// RepoRoot returns the root of the repository this manager operates on.
func (m *Manager) RepoRoot() string {
	return m.repoRoot
}

func (m *Manager) dirs() *dirProvider {
	return &dirProvider{root: filepath.Join(m.repoRoot, DirName)}
}

// CreateWorktree creates "<repo_root>/.worktrees/<loop_id>" on a new
// branch "ralph/<loop_id>" from HEAD, syncs the repo root's untracked
// and modified files into it, and commits that sync so the worktree
// starts from a clean tree.
func (m *Manager) CreateWorktree(loopID string) (*Worktree, error) {
	branch := BranchPrefix + loopID

	exists, err := m.git.BranchExists(branch)
	if err != nil {
		return nil, fmt.Errorf("checking branch %s: %w", branch, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrBranchExists, branch)
	}

	dirs := m.dirs()
	if existing, err := dirs.GetWorktreeDir(branch); err == nil {
		if entries, rdErr := os.ReadDir(existing); rdErr == nil && len(entries) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, existing)
		}
	}

	path, err := m.git.SetupWorktree(dirs, branch, "")
	if err != nil {
		return nil, fmt.Errorf("creating worktree: %w", err)
	}

	if err := syncWorkingTree(m.repoRoot, path); err != nil {
		return nil, fmt.Errorf("syncing working tree into worktree: %w", err)
	}

	if err := EnsureGitignore(m.repoRoot, DirName+"/"); err != nil {
		return nil, fmt.Errorf("updating .gitignore: %w", err)
	}

	head, err := commitSync(path, loopID)
	if err != nil {
		return nil, fmt.Errorf("committing synced worktree: %w", err)
	}

	return &Worktree{LoopID: loopID, Branch: branch, Path: path, Head: head.String()}, nil
}

// RemoveWorktree force-removes the worktree directory, its git
// metadata, and the ralph/<loop_id> branch.
func (m *Manager) RemoveWorktree(loopID string) error {
	branch := BranchPrefix + loopID
	if err := m.git.RemoveWorktree(m.dirs(), branch); err != nil {
		return fmt.Errorf("removing worktree: %w", err)
	}
	ref := plumbing.NewBranchReferenceName(branch)
	if err := m.git.Repository().Storer.RemoveReference(ref); err != nil && !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("deleting branch %s: %w", branch, err)
	}
	return nil
}

// ListWorktrees returns every linked worktree under .worktrees/,
// ralph-managed or not.
func (m *Manager) ListWorktrees() ([]Worktree, error) {
	entries, err := readDirEntries(filepath.Join(m.repoRoot, DirName))
	if err != nil {
		return nil, err
	}
	infos, err := m.git.ListWorktrees(entries)
	if err != nil {
		return nil, fmt.Errorf("listing worktrees: %w", err)
	}

	out := make([]Worktree, 0, len(infos))
	for _, info := range infos {
		if info.Error != nil {
			continue
		}
		out = append(out, Worktree{
			LoopID: strings.TrimPrefix(info.Branch, BranchPrefix),
			Branch: info.Branch,
			Path:   info.Path,
			Head:   info.Head.String(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// ListRalphWorktrees returns only the worktrees on a ralph/* branch.
func (m *Manager) ListRalphWorktrees() ([]Worktree, error) {
	all, err := m.ListWorktrees()
	if err != nil {
		return nil, err
	}
	out := make([]Worktree, 0, len(all))
	for _, w := range all {
		if strings.HasPrefix(w.Branch, BranchPrefix) {
			out = append(out, w)
		}
	}
	return out, nil
}

// EnsureGitignore appends pattern to <repo_root>/.gitignore if it isn't
// already present as its own line. Idempotent.
func EnsureGitignore(repoRoot, pattern string) error {
	path := filepath.Join(repoRoot, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == pattern {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	_, err = f.WriteString(pattern + "\n")
	return err
}

// dirProvider implements internalgit.WorktreeDirProvider for a fixed
// ".worktrees/<slug>" layout, where slug replaces the branch name's
// slashes with dashes for filesystem safety.
type dirProvider struct {
	root string
}

func slug(name string) string {
	return strings.ReplaceAll(name, "/", "-")
}

func (d *dirProvider) GetOrCreateWorktreeDir(name string) (string, error) {
	path := filepath.Join(d.root, slug(name))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

func (d *dirProvider) GetWorktreeDir(name string) (string, error) {
	path := filepath.Join(d.root, slug(name))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("worktree directory for %q: %w", name, err)
	}
	return path, nil
}

func (d *dirProvider) DeleteWorktreeDir(name string) error {
	return os.RemoveAll(filepath.Join(d.root, slug(name)))
}

func readDirEntries(root string) ([]internalgit.WorktreeDirEntry, error) {
	des, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	entries := make([]internalgit.WorktreeDirEntry, 0, len(des))
	for _, de := range des {
		if !de.IsDir() {
			continue
		}
		entries = append(entries, internalgit.WorktreeDirEntry{
			Name: de.Name(),
			Slug: de.Name(),
			Path: filepath.Join(root, de.Name()),
		})
	}
	return entries, nil
}

// syncWorkingTree copies the repo root's tree into the worktree,
// skipping .git, the worktrees directory itself, and anything matched
// by .gitignore. Symlinks are recreated as symlinks; everything else is
// copied byte-exact, preserving its file mode.
func syncWorkingTree(srcRoot, dstRoot string) error {
	patterns, err := gitignore.ReadPatterns(osfs.New(srcRoot), nil)
	if err != nil {
		return fmt.Errorf("reading gitignore patterns: %w", err)
	}
	matcher := gitignore.NewMatcher(patterns)

	return filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(srcRoot, path)
		if relErr != nil || rel == "." {
			return nil
		}

		parts := strings.Split(rel, string(filepath.Separator))
		if parts[0] == ".git" || parts[0] == DirName {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.Match(parts, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		dst := filepath.Join(dstRoot, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		return copyEntry(path, dst, d)
	})
}

func copyEntry(src, dst string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return fmt.Errorf("reading symlink %s: %w", src, err)
		}
		_ = os.Remove(dst)
		return os.Symlink(target, dst)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// commitSync stages everything synced into the worktree and commits it
// under a dedicated ralph-loop identity, so the branch's history starts
// from a state that matches what the loop will actually see. Returns the
// resulting commit hash, or HEAD's hash if nothing needed committing.
func commitSync(path, loopID string) (plumbing.Hash, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	cfg, err := repo.Config()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	cfg.User.Name = "ralph-loop"
	cfg.User.Email = "ralph-loop@localhost"
	if err := repo.SetConfig(cfg); err != nil {
		return plumbing.ZeroHash, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := wt.Add("."); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("staging synced files: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if status.IsClean() {
		head, err := repo.Head()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return head.Hash(), nil
	}

	sig := &object.Signature{Name: "ralph-loop", Email: "ralph-loop@localhost", When: time.Now()}
	hash, err := wt.Commit(fmt.Sprintf("ralph: sync working tree for %s", loopID), &gogit.CommitOptions{
		Author: sig,
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("committing synced files: %w", err)
	}
	return hash, nil
}
