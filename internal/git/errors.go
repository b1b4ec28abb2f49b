package git

import (
	stderrors "errors"

	"github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/margin/internal/foundation/errors"
)

// GitError simplifies creating a git-scoped ClassifiedError.
func GitError(message string) *errors.ErrorBuilder {
	return errors.NewError(errors.CategoryGit, message)
}

// ClassifyGitError translates go-git errors into ClassifiedErrors.
func ClassifyGitError(err error, op, path string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsClassified(err); ok {
		return err
	}
	builder := errors.WrapError(err, errors.CategoryGit, "git operation failed").
		WithContext("op", op).
		WithContext("path", path)
	if stderrors.Is(err, git.ErrRepositoryNotExists) {
		builder = errors.WrapError(err, errors.CategoryNotFound, "not a git repository").
			WithContext("op", op).
			WithContext("path", path)
	}
	return builder.Build()
}
