// Package dao provides data access objects for use in the xmilesim server.
package dao

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConstraintViolation = errors.New("a uniqueness constraint was violated")
	ErrNotFound            = errors.New("the requested resource was not found")
	ErrDecodingFailure     = errors.New("field could not be decoded from DB storage format to model format")
)

// Store holds all the repositories.
type Store interface {
	Users() UserRepository
	Models() ModelRepository
	Close() error
}

// ModelRepository persists uploaded XMILE model documents.
type ModelRepository interface {
	// Create stores a new Model. All attributes except for auto-generated
	// fields are taken from the provided Model.
	Create(ctx context.Context, m Model) (Model, error)
	GetByID(ctx context.Context, id uuid.UUID) (Model, error)
	GetAllByOwner(ctx context.Context, ownerID uuid.UUID) ([]Model, error)
	GetAll(ctx context.Context) ([]Model, error)
	Update(ctx context.Context, id uuid.UUID, m Model) (Model, error)
	Delete(ctx context.Context, id uuid.UUID) (Model, error)
	Close() error
}

// Model is a stored XMILE model document: its raw source plus ownership and
// descriptive metadata. It is never mutated by a simulation run; running a
// model is a read-only, on-demand operation performed against Source.
type Model struct {
	ID          uuid.UUID // PK, NOT NULL
	OwnerID     uuid.UUID // FK (Many-to-One User.ID), NOT NULL
	Name        string    // NOT NULL
	Description string
	Source      []byte // NOT NULL, raw XMILE XML document
	Created     time.Time
	Modified    time.Time
}

type UserRepository interface {

	// Create creates a new User. All attributes except for auto-generated
	// fields are taken from the provided User.
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetAll(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id uuid.UUID, user User) (User, error)
	Delete(ctx context.Context, id uuid.UUID) (User, error)

	// Close closes the connection.
	Close() error
}

type Role int

const (
	Guest Role = iota
	Unverified
	Normal

	Admin Role = 100
)

func (r Role) String() string {
	switch r {
	case Guest:
		return "guest"
	case Unverified:
		return "unverified"
	case Normal:
		return "normal"
	case Admin:
		return "admin"
	default:
		return fmt.Sprintf("Role(%d)", r)
	}
}

func ParseRole(s string) (Role, error) {
	check := strings.ToLower(s)
	switch check {
	case "guest":
		return Guest, nil
	case "unverified":
		return Unverified, nil
	case "normal":
		return Normal, nil
	case "admin":
		return Admin, nil
	default:
		return Guest, fmt.Errorf("must be one of 'guest', 'unverified', 'normal', or 'admin'")
	}
}

type User struct {
	ID             uuid.UUID     // PK, NOT NULL
	Username       string        // UNIQUE, NOT NULL
	Password       string        // NOT NULL
	Email          *mail.Address // NOT NULL
	Role           Role          // NOT NULL
	Created        time.Time     // NOT NULL
	Modified       time.Time
	LastLogoutTime time.Time // NOT NULL DEFAULT NOW()
	LastLoginTime  time.Time // NOT NULL
}
