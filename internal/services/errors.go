package services

import (
	"errors"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories"
)

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

// translateRepoError maps repository failures onto a service's own sentinel errors.
func translateRepoError(err, notFound, conflict, unavailable error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound() && notFound != nil:
			return notFound
		case repoErr.IsConflict() && conflict != nil:
			return conflict
		}
	}
	return errors.Join(unavailable, err)
}
