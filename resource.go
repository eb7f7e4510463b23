package oasbind

import (
	"context"
	"fmt"
	"strings"
)

// Resource is a conventional CRUD backend. ResourceHandlers maps the five
// conventional operationIds — index, show, create, update, destroy — onto it,
// so a contract following that naming needs no per-operation handlers.
type Resource interface {
	Index(ctx context.Context, filters Input, auth AuthContext) (any, error)
	Show(ctx context.Context, id string, auth AuthContext) (any, error)
	Create(ctx context.Context, body Input, auth AuthContext) (any, error)
	Update(ctx context.Context, id string, body Input, auth AuthContext) (any, error)
	Destroy(ctx context.Context, id string, auth AuthContext) (any, error)
}

// ResourceHandlers builds a handler table delegating the conventional CRUD
// operationIds to a Resource. Merge the result with any extra handlers before
// passing it to New.
func ResourceHandlers(res Resource) Handlers {
	return Handlers{
		"index": func(ctx context.Context, in Input) (any, error) {
			auth, _ := in.Auth()
			return res.Index(ctx, resourceFilters(in), auth)
		},
		"show": func(ctx context.Context, in Input) (any, error) {
			id, err := resourceID(in)
			if err != nil {
				return nil, err
			}
			auth, _ := in.Auth()
			return res.Show(ctx, id, auth)
		},
		"create": func(ctx context.Context, in Input) (any, error) {
			auth, _ := in.Auth()
			return res.Create(ctx, resourceBody(in), auth)
		},
		"update": func(ctx context.Context, in Input) (any, error) {
			id, err := resourceID(in)
			if err != nil {
				return nil, err
			}
			auth, _ := in.Auth()
			return res.Update(ctx, id, resourceBody(in), auth)
		},
		"destroy": func(ctx context.Context, in Input) (any, error) {
			id, err := resourceID(in)
			if err != nil {
				return nil, err
			}
			auth, _ := in.Auth()
			return res.Destroy(ctx, id, auth)
		},
	}
}

// resourceID finds the resource identifier: the "id" key, else the first key
// ending in "id" (user_id, order_id, ...).
func resourceID(in Input) (string, error) {
	if v, ok := in["id"]; ok {
		return fmt.Sprint(v), nil
	}
	for k, v := range in {
		if k != authInputKey && strings.HasSuffix(k, "id") {
			return fmt.Sprint(v), nil
		}
	}
	return "", Validation("Resource ID is required")
}

// resourceFilters strips the reserved keys, leaving the query/path values a
// listing can filter on.
func resourceFilters(in Input) Input {
	filters := make(Input, len(in))
	for k, v := range in {
		if k == authInputKey || k == "body" {
			continue
		}
		filters[k] = v
	}
	return filters
}

// resourceBody strips the auth context, leaving the merged body fields.
func resourceBody(in Input) Input {
	body := make(Input, len(in))
	for k, v := range in {
		if k == authInputKey {
			continue
		}
		body[k] = v
	}
	return body
}
