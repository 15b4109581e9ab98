package tunas

import (
	"bytes"
	"context"
	"errors"

	"github.com/dekarrin/xmilesim/internal/sim"
	"github.com/dekarrin/xmilesim/internal/xmile"
	"github.com/dekarrin/xmilesim/server/dao"
	"github.com/dekarrin/xmilesim/server/serr"
	"github.com/google/uuid"
)

// GetAllModels returns all stored models. Only an admin-level caller should
// reach this; enforcing that is the API layer's job.
func (svc Service) GetAllModels(ctx context.Context) ([]dao.Model, error) {
	models, err := svc.DB.Models().GetAll(ctx)
	if err != nil {
		return nil, serr.WrapDB("", err)
	}
	return models, nil
}

// GetAllModelsByOwner returns all models owned by the given user.
func (svc Service) GetAllModelsByOwner(ctx context.Context, ownerID uuid.UUID) ([]dao.Model, error) {
	models, err := svc.DB.Models().GetAllByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, nil
		}
		return nil, serr.WrapDB("", err)
	}
	return models, nil
}

// GetModel returns the model with the given ID.
func (svc Service) GetModel(ctx context.Context, id string) (dao.Model, error) {
	uuidID, err := uuid.Parse(id)
	if err != nil {
		return dao.Model{}, serr.New("ID is not valid", serr.ErrBadArgument)
	}

	m, err := svc.DB.Models().GetByID(ctx, uuidID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return dao.Model{}, serr.ErrNotFound
		}
		return dao.Model{}, serr.WrapDB("could not get model", err)
	}
	return m, nil
}

// CreateModel validates source as a parseable XMILE document and stores it
// under the given owner. Returns the newly-created model.
func (svc Service) CreateModel(ctx context.Context, ownerID uuid.UUID, name, description string, source []byte) (dao.Model, error) {
	if name == "" {
		return dao.Model{}, serr.New("name cannot be blank", serr.ErrBadArgument)
	}
	if len(source) < 1 {
		return dao.Model{}, serr.New("source cannot be empty", serr.ErrBadArgument)
	}

	if _, err := xmile.Parse(bytes.NewReader(source)); err != nil {
		return dao.Model{}, serr.New("source is not a valid XMILE document: "+err.Error(), serr.ErrBadArgument)
	}

	newModel := dao.Model{
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Source:      source,
	}

	m, err := svc.DB.Models().Create(ctx, newModel)
	if err != nil {
		if errors.Is(err, dao.ErrConstraintViolation) {
			return dao.Model{}, serr.ErrAlreadyExists
		}
		return dao.Model{}, serr.WrapDB("could not create model", err)
	}
	return m, nil
}

// UpdateModel overwrites the name, description, and/or source of the model
// with the given ID, returning the model as updated. If newSource is
// non-nil, it is validated as a parseable XMILE document before being
// stored.
func (svc Service) UpdateModel(ctx context.Context, id, name, description string, newSource []byte) (dao.Model, error) {
	uuidID, err := uuid.Parse(id)
	if err != nil {
		return dao.Model{}, serr.New("ID is not valid", serr.ErrBadArgument)
	}

	existing, err := svc.DB.Models().GetByID(ctx, uuidID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return dao.Model{}, serr.ErrNotFound
		}
		return dao.Model{}, serr.WrapDB("could not get model", err)
	}

	if name != "" {
		existing.Name = name
	}
	existing.Description = description
	if newSource != nil {
		if _, err := xmile.Parse(bytes.NewReader(newSource)); err != nil {
			return dao.Model{}, serr.New("source is not a valid XMILE document: "+err.Error(), serr.ErrBadArgument)
		}
		existing.Source = newSource
	}

	updated, err := svc.DB.Models().Update(ctx, uuidID, existing)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return dao.Model{}, serr.ErrNotFound
		}
		return dao.Model{}, serr.WrapDB("could not update model", err)
	}
	return updated, nil
}

// DeleteModel removes the model with the given ID and returns it as it was
// just before deletion.
func (svc Service) DeleteModel(ctx context.Context, id string) (dao.Model, error) {
	uuidID, err := uuid.Parse(id)
	if err != nil {
		return dao.Model{}, serr.New("ID is not valid", serr.ErrBadArgument)
	}

	m, err := svc.DB.Models().Delete(ctx, uuidID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return dao.Model{}, serr.ErrNotFound
		}
		return dao.Model{}, serr.WrapDB("could not delete model", err)
	}
	return m, nil
}

// RunResult is the outcome of an on-demand simulation run: the save-step
// time values and, for every variable, its value at each saved step. Nothing
// about a run is persisted; this is the only copy of the data that will ever
// exist.
type RunResult struct {
	Time   []float64
	Series map[string][]float64
}

// RunModel loads the stored model's XMILE source, compiles the named
// top-level model (or the document's only model, if topModel is empty),
// applies overrides, runs it to the end of its simulation spec, and returns
// the resulting time series. The run is entirely in-memory and has no effect
// on the stored model.
func (svc Service) RunModel(ctx context.Context, id, topModel string, overrides map[string]float64) (RunResult, error) {
	m, err := svc.GetModel(ctx, id)
	if err != nil {
		return RunResult{}, err
	}

	project, err := xmile.Parse(bytes.NewReader(m.Source))
	if err != nil {
		return RunResult{}, serr.New("stored model source is not valid XMILE: "+err.Error(), serr.ErrDB)
	}

	if topModel == "" {
		if len(project.Files) < 1 || len(project.Files[0].Models) < 1 {
			return RunResult{}, serr.New("model document defines no models", serr.ErrBadArgument)
		}
		topModel = project.Files[0].Models[0].Name
	}

	s, err := sim.New(project, topModel)
	if err != nil {
		return RunResult{}, serr.New("could not compile model: "+err.Error(), serr.ErrBadArgument)
	}

	for name, val := range overrides {
		if err := s.SetValue(name, val); err != nil {
			return RunResult{}, serr.New("override "+name+": "+err.Error(), serr.ErrBadArgument)
		}
	}

	s.RunToEnd()

	names := s.VarNames()
	result := RunResult{Series: make(map[string][]float64, len(names))}
	for _, name := range names {
		series, err := s.GetSeries(name)
		if err != nil {
			return RunResult{}, serr.New("could not read series for "+name, err)
		}
		if name == "time" {
			result.Time = series
			continue
		}
		result.Series[name] = series
	}

	return result, nil
}
