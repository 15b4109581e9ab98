// Package simerr holds common error objects used across the simulation core
// and its ingestion layer. Notably, it contains the Error type, which can be
// created with one or more 'cause' errors. Calling errors.Is() on this Error
// type with an argument consisting of any of the errors it has as a cause
// will return true.
//
// This package also holds several global error constants created via
// errors.New(), along with the numeric error codes carried over from the
// project this system's simulation core was modeled on.
package simerr

import "errors"

// Code is a numeric error code. Zero is success; negative values identify a
// specific failure class. These values and names are a fixed, external
// contract and must not be renumbered.
type Code int

const (
	NoError    Code = 0
	NoMem      Code = -1
	BadFile    Code = -2
	Unspecified Code = -3
	BadXML     Code = -4
	BadLex     Code = -5
	EOF        Code = -6
	Circular   Code = -7
)

func (c Code) String() string {
	switch c {
	case NoError:
		return "NO_ERROR"
	case NoMem:
		return "NOMEM"
	case BadFile:
		return "BAD_FILE"
	case Unspecified:
		return "UNSPECIFIED"
	case BadXML:
		return "BAD_XML"
	case BadLex:
		return "BAD_LEX"
	case EOF:
		return "EOF"
	case Circular:
		return "CIRCULAR"
	default:
		return "UNKNOWN_ERROR"
	}
}

var (
	ErrCircular       = errors.New("circular dependency between variables")
	ErrUnresolvedName = errors.New("name does not resolve to any known variable")
	ErrUnknownVarKind = errors.New("variable has an unrecognized kind")
	ErrUnknownModel   = errors.New("no model exists with that name")
	ErrBadEquation    = errors.New("equation could not be parsed")
	ErrBadXML         = errors.New("malformed XMILE document")
	ErrNotFound       = errors.New("the requested name was not found")
)

// CodeOf returns the Code that best describes err, or Unspecified if err is
// non-nil but does not match any known sentinel, or NoError if err is nil.
func CodeOf(err error) Code {
	if err == nil {
		return NoError
	}
	switch {
	case errors.Is(err, ErrCircular):
		return Circular
	case errors.Is(err, ErrBadXML):
		return BadXML
	case errors.Is(err, ErrBadEquation):
		return BadLex
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnresolvedName), errors.Is(err, ErrUnknownModel):
		return Unspecified
	default:
		return Unspecified
	}
}

// Error is a typed error returned by certain functions in the simulation core
// as their error value. It contains both a message explaining what happened
// as well as one or more error values it considers to be its causes. Error is
// compatible with the use of errors.Is() - calling errors.Is on some Error
// value err along with any value of error it holds as one of its causes will
// return true. This allows for easy examination and failure condition
// checking without needing to resort to manual typecasting.
//
// If Error has at least one cause defined, the result of calling Error.Error()
// will be its primary message with the result of calling Error() on its first
// cause appended to it.
//
// Error should not be used directly; call New to create one.
type Error struct {
	msg   string
	cause []error
}

// Error returns the message defined for the Error, concatenated with the
// result of calling Error() on its first cause if one is defined.
func (e Error) Error() string {
	if e.msg == "" && e.cause != nil {
		return e.cause[0].Error()
	}
	if e.cause != nil {
		return e.msg + ": " + e.cause[0].Error()
	}
	return e.msg
}

// Unwrap returns the causes of Error. The return value will be nil if no
// causes were defined for it.
func (e Error) Unwrap() []error {
	if len(e.cause) > 0 {
		return e.cause
	}
	return nil
}

// New creates a new Error with the given message, along with any errors it
// should wrap as its causes. Providing cause errors is not required, but will
// cause it to return true when it is checked against that error via a call to
// errors.Is.
func New(msg string, causes ...error) Error {
	err := Error{msg: msg}
	if len(causes) > 0 {
		err.cause = make([]error, len(causes))
		copy(err.cause, causes)
	}
	return err
}
