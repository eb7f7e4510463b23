package oasbind

import (
	"context"
	"net/http"
)

// Handler is the unit of business logic bound to an operationId. It receives
// the merged input and returns a payload, or a *Result to pin an explicit
// status code. Errors propagate to the problem-detail mapper untouched.
type Handler func(ctx context.Context, in Input) (any, error)

// Handlers maps operationIds to their implementations. The table is
// cross-validated against the parsed contract at assembly time: a declared
// operation without a handler, or a handler without a declared operation, is
// a load-time error.
type Handlers map[string]Handler

// Result pins an explicit status code on a handler payload. A handler that
// returns any other value gets its status inferred from the HTTP method.
type Result struct {
	Payload any
	Status  int
}

// dispatch invokes the handler in a single atomic attempt — no retries — and
// resolves the response status. Handlers returning a bare payload get the
// method convention: POST creates (201), DELETE empties (204), everything
// else is 200.
func dispatch(ctx context.Context, route Route, h Handler, in Input) (any, int, error) {
	out, err := h(ctx, in)
	if err != nil {
		return nil, 0, err
	}

	if res, ok := out.(*Result); ok {
		status := res.Status
		if status == 0 {
			status = inferStatus(route.Method)
		}
		return res.Payload, status, nil
	}
	return out, inferStatus(route.Method), nil
}

func inferStatus(method string) int {
	switch method {
	case http.MethodPost:
		return http.StatusCreated
	case http.MethodDelete:
		return http.StatusNoContent
	default:
		return http.StatusOK
	}
}
