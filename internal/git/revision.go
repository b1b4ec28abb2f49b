package git

import (
	"context"
	stderrors "errors"

	"github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/margin/internal/build"
)

const (
	shortHashLen = 12
	dirtySuffix  = "-dirty"
)

// Revision returns the abbreviated HEAD commit of the repository containing
// dir. A worktree with uncommitted changes gets a "-dirty" suffix.
func Revision(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", ClassifyGitError(err, "open", dir)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", ClassifyGitError(err, "head", dir)
	}
	rev := ref.Hash().String()
	if len(rev) > shortHashLen {
		rev = rev[:shortHashLen]
	}

	wt, err := repo.Worktree()
	if err != nil {
		return rev, nil
	}
	status, err := wt.Status()
	if err != nil {
		return "", ClassifyGitError(err, "status", dir)
	}
	if !status.IsClean() {
		rev += dirtySuffix
	}
	return rev, nil
}

// RevisionFunc resolves the revision of dir on every call. A directory outside
// any repository yields an empty revision.
func RevisionFunc(dir string) build.RevisionFunc {
	return func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rev, err := Revision(dir)
		if stderrors.Is(err, git.ErrRepositoryNotExists) {
			return "", nil
		}
		return rev, err
	}
}
