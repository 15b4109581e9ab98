package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/dekarrin/xmilesim/server/dao"
	"github.com/dekarrin/xmilesim/server/middle"
	"github.com/dekarrin/xmilesim/server/result"
	"github.com/dekarrin/xmilesim/server/serr"
)

func modelToDocument(m dao.Model) ModelDocument {
	return ModelDocument{
		URI:         PathPrefix + "/models/" + m.ID.String(),
		ID:          m.ID.String(),
		OwnerID:     m.OwnerID.String(),
		Name:        m.Name,
		Description: m.Description,
		Source:      base64.StdEncoding.EncodeToString(m.Source),
		Created:     m.Created.Format(time.RFC3339),
		Modified:    m.Modified.Format(time.RFC3339),
	}
}

// modelSummary is the same as modelToDocument but omits Source, for list
// responses where the full document body would be wasteful to send.
func modelSummary(m dao.Model) ModelDocument {
	doc := modelToDocument(m)
	doc.Source = ""
	return doc
}

// HTTPGetAllModels returns a HandlerFunc that lists models. Admins see every
// stored model; other users see only their own.
func (api API) HTTPGetAllModels() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetAllModels)
}

func (api API) epGetAllModels(req *http.Request) result.Result {
	user := req.Context().Value(middle.AuthUser).(dao.User)

	var models []dao.Model
	var err error
	if user.Role == dao.Admin {
		models, err = api.Backend.GetAllModels(req.Context())
	} else {
		models, err = api.Backend.GetAllModelsByOwner(req.Context(), user.ID)
	}
	if err != nil {
		return result.InternalServerError(err.Error())
	}

	resp := make([]ModelDocument, len(models))
	for i := range models {
		resp[i] = modelSummary(models[i])
	}

	return result.OK(resp, "user '%s' got all models", user.Username)
}

// HTTPCreateModel returns a HandlerFunc that uploads a new XMILE model owned
// by the logged-in user.
func (api API) HTTPCreateModel() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epCreateModel)
}

func (api API) epCreateModel(req *http.Request) result.Result {
	user := req.Context().Value(middle.AuthUser).(dao.User)

	var createModel ModelDocument
	err := parseJSON(req, &createModel)
	if err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}
	if createModel.Name == "" {
		return result.BadRequest("name: property is empty or missing from request", "empty name")
	}
	source, err := base64.StdEncoding.DecodeString(createModel.Source)
	if err != nil {
		return result.BadRequest("source: must be base64-encoded XMILE document", "source: %s", err.Error())
	}

	newModel, err := api.Backend.CreateModel(req.Context(), user.ID, createModel.Name, createModel.Description, source)
	if err != nil {
		if errors.Is(err, serr.ErrBadArgument) {
			return result.BadRequest(err.Error(), err.Error())
		}
		return result.InternalServerError(err.Error())
	}

	return result.Created(modelToDocument(newModel), "user '%s' created model '%s' (%s)", user.Username, newModel.Name, newModel.ID.String())
}

// HTTPGetModel returns a HandlerFunc that fetches a single model's document,
// including its raw source. Only the owner or an admin may retrieve it.
func (api API) HTTPGetModel() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetModel)
}

func (api API) epGetModel(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := req.Context().Value(middle.AuthUser).(dao.User)

	m, err := api.Backend.GetModel(req.Context(), id.String())
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return result.NotFound()
		}
		return result.InternalServerError(err.Error())
	}

	if m.OwnerID != user.ID && user.Role != dao.Admin {
		return result.Forbidden("user '%s' (role %s) get model %s: forbidden", user.Username, user.Role, id.String())
	}

	return result.OK(modelToDocument(m), "user '%s' got model '%s'", user.Username, m.Name)
}

// HTTPUpdateModel returns a HandlerFunc that updates a model's metadata
// and/or source. Only the owner or an admin may update it.
func (api API) HTTPUpdateModel() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epUpdateModel)
}

func (api API) epUpdateModel(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := req.Context().Value(middle.AuthUser).(dao.User)

	existing, err := api.Backend.GetModel(req.Context(), id.String())
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return result.NotFound()
		}
		return result.InternalServerError(err.Error())
	}
	if existing.OwnerID != user.ID && user.Role != dao.Admin {
		return result.Forbidden("user '%s' (role %s) update model %s: forbidden", user.Username, user.Role, id.String())
	}

	var updateReq ModelUpdateRequest
	if err := parseJSON(req, &updateReq); err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}

	newName := existing.Name
	if updateReq.Name.Update {
		newName = updateReq.Name.Value
	}
	newDesc := existing.Description
	if updateReq.Description.Update {
		newDesc = updateReq.Description.Value
	}
	var newSource []byte
	if updateReq.Source.Update {
		decoded, err := base64.StdEncoding.DecodeString(updateReq.Source.Value)
		if err != nil {
			return result.BadRequest("source: must be base64-encoded XMILE document", "source: %s", err.Error())
		}
		newSource = decoded
	}

	updated, err := api.Backend.UpdateModel(req.Context(), id.String(), newName, newDesc, newSource)
	if err != nil {
		if errors.Is(err, serr.ErrBadArgument) {
			return result.BadRequest(err.Error(), err.Error())
		} else if errors.Is(err, serr.ErrNotFound) {
			return result.NotFound()
		}
		return result.InternalServerError(err.Error())
	}

	return result.Created(modelToDocument(updated), "user '%s' updated model '%s' (%s)", user.Username, updated.Name, updated.ID.String())
}

// HTTPDeleteModel returns a HandlerFunc that deletes a model. Only the owner
// or an admin may delete it.
func (api API) HTTPDeleteModel() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epDeleteModel)
}

func (api API) epDeleteModel(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := req.Context().Value(middle.AuthUser).(dao.User)

	existing, err := api.Backend.GetModel(req.Context(), id.String())
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return result.NotFound()
		}
		return result.InternalServerError(err.Error())
	}
	if existing.OwnerID != user.ID && user.Role != dao.Admin {
		return result.Forbidden("user '%s' (role %s) delete model %s: forbidden", user.Username, user.Role, id.String())
	}

	deleted, err := api.Backend.DeleteModel(req.Context(), id.String())
	if err != nil && !errors.Is(err, serr.ErrNotFound) {
		return result.InternalServerError("could not delete model: " + err.Error())
	}

	return result.NoContent("user '%s' successfully deleted model '%s'", user.Username, deleted.Name)
}

// HTTPRunModel returns a HandlerFunc that compiles and runs the stored
// model's XMILE source on demand and returns the produced time series. No
// part of the run is persisted.
func (api API) HTTPRunModel() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epRunModel)
}

func (api API) epRunModel(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := req.Context().Value(middle.AuthUser).(dao.User)

	existing, err := api.Backend.GetModel(req.Context(), id.String())
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return result.NotFound()
		}
		return result.InternalServerError(err.Error())
	}
	if existing.OwnerID != user.ID && user.Role != dao.Admin {
		return result.Forbidden("user '%s' (role %s) run model %s: forbidden", user.Username, user.Role, id.String())
	}

	var runReq RunRequest
	if req.ContentLength > 0 {
		if err := parseJSON(req, &runReq); err != nil {
			return result.BadRequest(err.Error(), err.Error())
		}
	}

	run, err := api.Backend.RunModel(req.Context(), id.String(), runReq.TopModel, runReq.Overrides)
	if err != nil {
		if errors.Is(err, serr.ErrBadArgument) {
			return result.BadRequest(err.Error(), err.Error())
		}
		return result.InternalServerError(err.Error())
	}

	return result.OK(RunResponse{Time: run.Time, Series: run.Series}, "user '%s' ran model '%s'", user.Username, existing.Name)
}
