package sim

import "github.com/dekarrin/xmilesim/internal/simerr"

// re-exported so callers of this package can errors.Is against them without
// importing simerr directly, while simerr remains the shared sentinel home
// for both this package and internal/xmile.
var (
	errCircular       = simerr.ErrCircular
	errUnresolvedName = simerr.ErrUnresolvedName
	errUnknownVarKind = simerr.ErrUnknownVarKind
	errUnknownModel   = simerr.ErrUnknownModel
	errBadEquation    = simerr.ErrBadEquation
	errNotFound       = simerr.ErrNotFound
)

// ErrCircular, ErrUnresolvedName, ErrUnknownVarKind, ErrUnknownModel,
// ErrBadEquation, and ErrNotFound are the sentinel errors this package's
// functions wrap. Test with errors.Is.
var (
	ErrCircular       = errCircular
	ErrUnresolvedName = errUnresolvedName
	ErrUnknownVarKind = errUnknownVarKind
	ErrUnknownModel   = errUnknownModel
	ErrBadEquation    = errBadEquation
	ErrNotFound       = errNotFound
)
