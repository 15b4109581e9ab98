package inmem

import (
	"fmt"

	"github.com/dekarrin/xmilesim/server/dao"
)

type store struct {
	users  *InMemoryUsersRepository
	models *InMemoryModelsRepository
}

func NewDatastore() dao.Store {
	return &store{
		users:  NewUsersRepository(),
		models: NewModelsRepository(),
	}
}

func (s *store) Users() dao.UserRepository {
	return s.users
}

func (s *store) Models() dao.ModelRepository {
	return s.models
}

func (s *store) Close() error {
	var err error

	if closeErr := s.users.Close(); closeErr != nil {
		err = closeErr
	}
	if closeErr := s.models.Close(); closeErr != nil {
		if err != nil {
			err = fmt.Errorf("%s\nadditionally, %w", err, closeErr)
		} else {
			err = closeErr
		}
	}

	return err
}
