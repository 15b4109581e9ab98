// Package server assembles the xmilesim HTTP API into a runnable server:
// wiring persistence, authentication middleware, and routing together behind
// a single entry point.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/dekarrin/xmilesim/server/api"
	"github.com/dekarrin/xmilesim/server/dao"
	"github.com/dekarrin/xmilesim/server/middle"
	"github.com/dekarrin/xmilesim/server/tunas"
	"github.com/go-chi/chi/v5"
)

// Server is a fully assembled xmilesim HTTP server, ready to accept
// connections via ServeForever.
type Server struct {
	db     dao.Store
	svc    tunas.Service
	router chi.Router
}

// New builds a Server from cfg. Unset fields in cfg are filled with defaults
// before validation.
func New(cfg Config) (*Server, error) {
	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := cfg.DB.Connect()
	if err != nil {
		return nil, fmt.Errorf("connect to DB: %w", err)
	}

	svc := tunas.Service{DB: store}

	s := &Server{
		db:  store,
		svc: svc,
	}
	s.router = s.buildRouter(cfg)

	return s, nil
}

func (s *Server) buildRouter(cfg Config) chi.Router {
	a := api.API{
		Backend:     s.svc,
		UnauthDelay: cfg.UnauthDelay(),
		Secret:      cfg.TokenSecret,
	}

	required := middle.RequireAuth(s.db.Users(), cfg.TokenSecret, cfg.UnauthDelay(), dao.User{})
	optional := middle.OptionalAuth(s.db.Users(), cfg.TokenSecret, cfg.UnauthDelay(), dao.User{})

	r := chi.NewRouter()
	r.Use(middle.DontPanic())

	r.Route(api.PathPrefix, func(r chi.Router) {
		r.With(optional).Get("/info", a.HTTPGetInfo())

		r.Post("/login", a.HTTPCreateLogin())
		r.With(required).Delete("/login/{id}", a.HTTPDeleteLogin())

		r.With(required).Get("/users", a.HTTPGetAllUsers())
		r.Post("/users", a.HTTPCreateUser())
		r.With(required).Get("/users/{id}", a.HTTPGetUser())
		r.With(required).Patch("/users/{id}", a.HTTPUpdateUser())
		r.With(required).Put("/users/{id}", a.HTTPReplaceUser())
		r.With(required).Delete("/users/{id}", a.HTTPDeleteUser())
		r.With(required).Post("/users/{id}/tokens", a.HTTPCreateToken())

		r.With(required).Get("/models", a.HTTPGetAllModels())
		r.With(required).Post("/models", a.HTTPCreateModel())
		r.With(required).Get("/models/{id}", a.HTTPGetModel())
		r.With(required).Patch("/models/{id}", a.HTTPUpdateModel())
		r.With(required).Delete("/models/{id}", a.HTTPDeleteModel())
		r.With(required).Post("/models/{id}/run", a.HTTPRunModel())
	})

	return r
}

// CreateUser creates a new user directly, bypassing the HTTP API. Used by
// server bootstrap code to seed an initial admin account.
func (s *Server) CreateUser(ctx context.Context, username, password, email string, role dao.Role) (dao.User, error) {
	return s.svc.CreateUser(ctx, username, password, email, role)
}

// ServeForever listens on addr:port and serves the API until the process is
// terminated or an unrecoverable error occurs.
func (s *Server) ServeForever(addr string, port int) error {
	address := fmt.Sprintf("%s:%d", addr, port)
	log.Printf("INFO  Listening on %s", address)
	return http.ListenAndServe(address, s.router)
}
