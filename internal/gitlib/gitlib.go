package gitlib

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var ErrNotRepository = errors.New("this does not appear to be a git repository")

type DotGit struct {
	Branch string
	Sha    string
	Root   string
	Origin *url.URL
	Dirty  bool
}

func FromCwd() (DotGit, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return DotGit{}, err
	}

	return FromDir(cwd)
}

// FromDir reads HEAD of the repository containing dir. A repository without an origin is
// still described; only Origin stays nil.
func FromDir(dir string) (found DotGit, err error) {
	root, repo, err := FindDotGit(dir)
	if err != nil {
		return DotGit{}, err
	}

	if found.Branch, err = Branch(repo); err != nil {
		return DotGit{}, err
	}

	if found.Sha, err = Sha(repo); err != nil {
		return DotGit{}, err
	}

	if found.Dirty, err = Dirty(repo); err != nil {
		return DotGit{}, err
	}

	if found.Origin, err = Origin(repo); err != nil && err != git.ErrRemoteNotFound {
		return DotGit{}, err
	}

	found.Root = root

	return found, nil
}

// Slug is the origin path without leading slash or .git suffix, e.g. org/repo.
func (d DotGit) Slug() string {
	if d.Origin == nil {
		return filepath.Base(d.Root)
	}
	return strings.TrimSuffix(strings.TrimPrefix(d.Origin.Path, "/"), ".git")
}

func FindDotGit(cwd string) (root string, repo *git.Repository, err error) {
	for {
		if _, err := os.Stat(filepath.Join(cwd, ".git")); err == nil {
			repo, err := git.PlainOpen(cwd)
			if err != nil {
				return "", nil, err
			}

			return cwd, repo, nil
		}

		parentDir := filepath.Dir(cwd)
		if parentDir == cwd {
			return cwd, nil, ErrNotRepository
		}
		cwd = parentDir
	}
}

func Head(repo *git.Repository) (plumbing.Reference, error) {
	head, err := repo.Head()
	if err != nil {
		return plumbing.Reference{}, err
	}

	return *head, nil
}

func Branch(repo *git.Repository) (string, error) {
	head, err := Head(repo)
	if err != nil {
		return "", err
	}

	return head.Name().Short(), nil
}

func Sha(repo *git.Repository) (string, error) {
	head, err := Head(repo)
	if err != nil {
		return "", err
	}

	return head.Hash().String(), nil
}

func Dirty(repo *git.Repository) (bool, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return false, err
	}

	status, err := wt.Status()
	if err != nil {
		return false, err
	}

	return !status.IsClean(), nil
}

func Origin(repo *git.Repository) (*url.URL, error) {
	remote, err := repo.Remote("origin")
	if err != nil {
		return nil, err
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return nil, fmt.Errorf("no remote origin found")
	}

	if len(urls) > 1 {
		return nil, fmt.Errorf("multiple remote origins found")
	}

	raw := urls[0]
	if strings.HasPrefix(raw, "git@") {
		raw = strings.Replace(raw, ":", "/", 1)
		raw = strings.Replace(raw, "git@", "https://", 1)
	}

	return url.Parse(raw)
}
