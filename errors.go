package oasbind

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
)

// Kind classifies a domain error into the closed taxonomy the response mapper
// understands. Anything outside this set degrades to a 500.
type Kind int

const (
	KindValidation Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindUnavailable
	KindNotImplemented
)

// kindInfo is the fixed (status, title, type-uri slug) triple per kind.
var kindInfo = map[Kind]struct {
	status int
	title  string
	slug   string
}{
	KindValidation:     {http.StatusBadRequest, "Validation", "validation_error"},
	KindUnauthorized:   {http.StatusUnauthorized, "Unauthorized", "unauthorized"},
	KindForbidden:      {http.StatusForbidden, "Forbidden", "forbidden"},
	KindNotFound:       {http.StatusNotFound, "NotFound", "not_found"},
	KindConflict:       {http.StatusConflict, "Conflict", "conflict"},
	KindRateLimited:    {http.StatusTooManyRequests, "RateLimit", "rate_limit"},
	KindUnavailable:    {http.StatusServiceUnavailable, "ServiceUnavailable", "service_unavailable"},
	KindNotImplemented: {http.StatusNotImplemented, "Not Implemented", "not_implemented"},
}

// Status returns the HTTP status the kind maps to.
func (k Kind) Status() int { return kindInfo[k].status }

// Title returns the problem-detail title the kind maps to.
func (k Kind) Title() string { return kindInfo[k].title }

func (k Kind) slug() string { return kindInfo[k].slug }

// Error is a domain error carrying a kind, a client-safe detail string, and
// optional extra fields flattened into the problem-detail body.
type Error struct {
	Kind   Kind
	Detail string
	Extra  map[string]any
}

// Error returns the detail message.
func (e *Error) Error() string { return e.Detail }

// StatusCode returns the HTTP status code for the error's kind.
func (e *Error) StatusCode() int { return e.Kind.Status() }

// With returns the error with an extra field set on it. Extra fields are
// flattened into the problem-detail body alongside the standard ones.
func (e *Error) With(key string, value any) *Error {
	if e.Extra == nil {
		e.Extra = make(map[string]any, 1)
	}
	e.Extra[key] = value
	return e
}

// NewError creates a domain error of the given kind.
func NewError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Errorf creates a formatted domain error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Validation reports invalid input data (400).
func Validation(detail string) *Error { return NewError(KindValidation, detail) }

// Unauthorized reports missing or invalid credentials (401).
func Unauthorized(detail string) *Error { return NewError(KindUnauthorized, detail) }

// Forbidden reports insufficient permissions (403).
func Forbidden(detail string) *Error { return NewError(KindForbidden, detail) }

// NotFound reports a missing resource (404).
func NotFound(detail string) *Error { return NewError(KindNotFound, detail) }

// Conflict reports a resource conflict such as a duplicate (409).
func Conflict(detail string) *Error { return NewError(KindConflict, detail) }

// RateLimited reports too many requests (429).
func RateLimited(detail string) *Error { return NewError(KindRateLimited, detail) }

// Unavailable reports an unavailable downstream dependency (503).
func Unavailable(detail string) *Error { return NewError(KindUnavailable, detail) }

// NotImplemented reports an operation without an implementation (501).
func NotImplemented(detail string) *Error { return NewError(KindNotImplemented, detail) }

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ProblemDetail is an RFC 9457 problem details body.
//
//nolint:errname // RFC 9457 standard name
type ProblemDetail struct {
	Type   string
	Title  string
	Status int
	Detail string

	// Extra fields are flattened into the encoded body. They never override
	// the four standard fields.
	Extra map[string]any
}

// Error returns the detail message (or title if detail is empty).
func (p *ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

// StatusCode returns the HTTP status code.
func (p *ProblemDetail) StatusCode() int { return p.Status }

// MarshalJSON flattens Extra alongside the standard fields.
func (p *ProblemDetail) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, 4+len(p.Extra))
	for k, v := range p.Extra {
		switch k {
		case "type", "title", "status", "detail":
			continue
		}
		body[k] = v
	}
	body["type"] = p.Type
	body["title"] = p.Title
	body["status"] = p.Status
	body["detail"] = p.Detail
	return jsonMarshal(body)
}

// genericDetail is the detail for unrecognized errors. The real cause is
// never leaked to the client.
const genericDetail = "An unexpected error occurred"

// Problem converts any error crossing the dispatch boundary into a problem
// detail. It is total: domain errors map by kind, everything else degrades to
// a 500 with a generic detail. An unknown failure never produces a 2xx or an
// uncategorized status.
func Problem(err error) *ProblemDetail {
	var e *Error
	if errors.As(err, &e) {
		return &ProblemDetail{
			Type:   "/errors/" + e.Kind.slug(),
			Title:  e.Kind.Title(),
			Status: e.Kind.Status(),
			Detail: e.Detail,
			Extra:  maps.Clone(e.Extra),
		}
	}
	return &ProblemDetail{
		Type:   "/errors/internal_server_error",
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
		Detail: genericDetail,
	}
}
