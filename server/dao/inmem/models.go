package inmem

import (
	"context"
	"fmt"
	"time"

	"github.com/dekarrin/xmilesim/internal/util"
	"github.com/dekarrin/xmilesim/server/dao"
	"github.com/google/uuid"
)

func NewModelsRepository() *InMemoryModelsRepository {
	return &InMemoryModelsRepository{
		models:         make(map[uuid.UUID]dao.Model),
		byOwnerIDIndex: make(map[uuid.UUID][]uuid.UUID),
	}
}

type InMemoryModelsRepository struct {
	models         map[uuid.UUID]dao.Model
	byOwnerIDIndex map[uuid.UUID][]uuid.UUID
}

func (imr *InMemoryModelsRepository) Close() error {
	return nil
}

func (imr *InMemoryModelsRepository) Create(ctx context.Context, m dao.Model) (dao.Model, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return dao.Model{}, fmt.Errorf("could not generate ID: %w", err)
	}

	m.ID = newUUID
	m.Created = time.Now()
	m.Modified = m.Created

	imr.models[m.ID] = m

	byOwner := imr.byOwnerIDIndex[m.OwnerID]
	byOwner = append(byOwner, m.ID)
	imr.byOwnerIDIndex[m.OwnerID] = byOwner

	return m, nil
}

func (imr *InMemoryModelsRepository) GetAll(ctx context.Context) ([]dao.Model, error) {
	all := make([]dao.Model, len(imr.models))

	i := 0
	for k := range imr.models {
		all[i] = imr.models[k]
		i++
	}

	all = util.SortBy(all, func(l, r dao.Model) bool {
		return l.ID.String() < r.ID.String()
	})

	return all, nil
}

func (imr *InMemoryModelsRepository) GetAllByOwner(ctx context.Context, ownerID uuid.UUID) ([]dao.Model, error) {
	byOwner := imr.byOwnerIDIndex[ownerID]
	if len(byOwner) < 1 {
		return nil, dao.ErrNotFound
	}

	all := make([]dao.Model, len(byOwner))
	for i := range byOwner {
		all[i] = imr.models[byOwner[i]]
	}

	all = util.SortBy(all, func(l, r dao.Model) bool {
		return l.ID.String() < r.ID.String()
	})

	return all, nil
}

func (imr *InMemoryModelsRepository) GetByID(ctx context.Context, id uuid.UUID) (dao.Model, error) {
	m, ok := imr.models[id]
	if !ok {
		return dao.Model{}, dao.ErrNotFound
	}
	return m, nil
}

func (imr *InMemoryModelsRepository) Update(ctx context.Context, id uuid.UUID, m dao.Model) (dao.Model, error) {
	existing, ok := imr.models[id]
	if !ok {
		return dao.Model{}, dao.ErrNotFound
	}

	if m.ID != id {
		if _, ok := imr.models[m.ID]; ok {
			return dao.Model{}, dao.ErrConstraintViolation
		}
	}

	m.Modified = time.Now()
	imr.models[m.ID] = m
	if m.ID != id {
		delete(imr.models, id)
	}

	if m.OwnerID != existing.OwnerID {
		byOldOwner := imr.byOwnerIDIndex[existing.OwnerID]
		updated := util.SliceRemove(existing.ID, byOldOwner)
		imr.byOwnerIDIndex[existing.OwnerID] = updated
		if len(updated) < 1 {
			delete(imr.byOwnerIDIndex, existing.OwnerID)
		}

		byNewOwner := imr.byOwnerIDIndex[m.OwnerID]
		byNewOwner = append(byNewOwner, m.ID)
		imr.byOwnerIDIndex[m.OwnerID] = byNewOwner
	} else if m.ID != id {
		byOwner := imr.byOwnerIDIndex[existing.OwnerID]
		pos := util.SliceIndexOf(id, byOwner)
		if pos < 0 {
			return dao.Model{}, fmt.Errorf("DB ASSERTION FAILURE: missing index entry for owner %s to model %s", existing.OwnerID, existing.ID)
		}
		byOwner[pos] = m.ID
		imr.byOwnerIDIndex[existing.OwnerID] = byOwner
	}

	return m, nil
}

func (imr *InMemoryModelsRepository) Delete(ctx context.Context, id uuid.UUID) (dao.Model, error) {
	m, ok := imr.models[id]
	if !ok {
		return dao.Model{}, dao.ErrNotFound
	}

	byOwner := imr.byOwnerIDIndex[m.OwnerID]
	updated := util.SliceRemove(m.ID, byOwner)
	imr.byOwnerIDIndex[m.OwnerID] = updated
	if len(updated) < 1 {
		delete(imr.byOwnerIDIndex, m.OwnerID)
	}

	delete(imr.models, m.ID)

	return m, nil
}
