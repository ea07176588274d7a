package mocks

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linecard/trainstack/internal/gitlib"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// MockRepository initializes a repository with one commit on branch under a temp dir.
// The handler bundle directory is created so the tree looks like a real checkout.
func MockRepository(t *testing.T, orgName, repoName, branchName string) gitlib.DotGit {
	t.Helper()

	root := filepath.Join(t.TempDir(), repoName)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lambda"), os.ModePerm))

	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:" + orgName + "/" + repoName + ".git"},
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "lambda", "upload.py"), []byte("def handler(event, context):\n    pass\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)

	_, err = wt.Add("lambda/upload.py")
	require.NoError(t, err)

	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "mock", Email: "mock@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	branch := plumbing.NewBranchReferenceName(branchName)
	require.NoError(t, repo.Storer.SetReference(plumbing.NewHashReference(branch, hash)))
	require.NoError(t, repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branch)))

	found, err := gitlib.FromDir(root)
	require.NoError(t, err)

	return found
}
