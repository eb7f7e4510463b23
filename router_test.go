package oasbind_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oasbind/oasbind"
	"github.com/oasbind/oasbind/apitest"
)

const serviceContract = `
openapi: 3.0.3
info:
  title: user-service
  version: 1.0.0
paths:
  /users:
    get:
      operationId: list_users
      parameters:
        - name: role
          in: query
          required: true
          schema:
            type: string
      responses:
        "200":
          description: Users
    post:
      operationId: create_user
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                username:
                  type: string
                email:
                  type: string
      responses:
        "201":
          description: Created
          content:
            application/json:
              schema:
                type: object
                properties:
                  id:
                    type: integer
                  username:
                    type: string
  /users/{user_id}:
    get:
      operationId: get_user
      parameters:
        - name: user_id
          in: path
          required: true
          schema:
            type: integer
      responses:
        "200":
          description: User
          content:
            application/json:
              schema:
                type: object
                properties:
                  id:
                    type: integer
                  username:
                    type: string
    delete:
      operationId: delete_user
      parameters:
        - name: user_id
          in: path
          required: true
          schema:
            type: integer
      responses:
        "204":
          description: Deleted
`

func serviceHandlers(t *testing.T) (oasbind.Handlers, *int) {
	t.Helper()

	invocations := 0
	return oasbind.Handlers{
		"list_users": func(_ context.Context, in oasbind.Input) (any, error) {
			invocations++
			return []any{map[string]any{"id": 1, "role": in.String("role")}}, nil
		},
		"create_user": func(_ context.Context, in oasbind.Input) (any, error) {
			invocations++
			if in.String("email") == "bad" {
				return nil, oasbind.Validation("Invalid email format")
			}
			return map[string]any{
				"id":       2,
				"username": in.String("username"),
				"password": "plaintext-oops",
			}, nil
		},
		"get_user": func(_ context.Context, in oasbind.Input) (any, error) {
			invocations++
			id := in.Int("user_id")
			if id == 999 {
				return nil, oasbind.Errorf(oasbind.KindNotFound, "User %d not found", id)
			}
			if id == 666 {
				return nil, errors.New("cursed row: table=users host=db-1")
			}
			return map[string]any{"id": id, "username": "alice"}, nil
		},
		"delete_user": func(_ context.Context, _ oasbind.Input) (any, error) {
			invocations++
			return nil, nil
		},
	}, &invocations
}

func newTestService(t *testing.T, opts ...oasbind.Option) (*apitest.Client, *int) {
	t.Helper()

	doc, err := oasbind.ParseDocument([]byte(serviceContract))
	require.NoError(t, err)

	handlers, invocations := serviceHandlers(t)
	svc, err := oasbind.New(doc, handlers, opts...)
	require.NoError(t, err)

	return apitest.NewClient(t, svc), invocations
}

func TestService_health(t *testing.T) {
	t.Parallel()

	c, _ := newTestService(t)
	resp := apitest.Get[map[string]any](t, c, "/health")

	assert.Equal(t, http.StatusOK, resp.Status)
	require.NotNil(t, resp.Body)
	body := *resp.Body
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "user-service", body["service"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestService_successAndStatusInference(t *testing.T) {
	t.Parallel()

	c, _ := newTestService(t)

	get := apitest.Get[map[string]any](t, c, "/users/7")
	assert.Equal(t, http.StatusOK, get.Status)
	assert.Equal(t, "application/json", get.Headers.Get("Content-Type"))
	require.NotNil(t, get.Body)
	assert.Equal(t, float64(7), (*get.Body)["id"])

	post := apitest.Post[map[string]any](t, c, "/users", map[string]any{"username": "bob", "email": "b@x.io"})
	assert.Equal(t, http.StatusCreated, post.Status)
}

func TestService_deleteReturnsNoContent(t *testing.T) {
	t.Parallel()

	c, _ := newTestService(t)

	resp := apitest.Delete[struct{}](t, c, "/users/7")
	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.Nil(t, resp.Body)
}

func TestService_notFoundProblem(t *testing.T) {
	t.Parallel()

	c, _ := newTestService(t)
	resp := apitest.Get[map[string]any](t, c, "/users/999")

	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "application/problem+json", resp.Headers.Get("Content-Type"))
	require.NotNil(t, resp.Body)
	assert.Equal(t, map[string]any{
		"type":   "/errors/not_found",
		"title":  "NotFound",
		"status": float64(404),
		"detail": "User 999 not found",
	}, *resp.Body)
}

func TestService_validationProblem(t *testing.T) {
	t.Parallel()

	c, _ := newTestService(t)
	resp := apitest.Post[map[string]any](t, c, "/users", map[string]any{"username": "x", "email": "bad"})

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	require.NotNil(t, resp.Body)
	assert.Equal(t, "Validation", (*resp.Body)["title"])
	assert.Equal(t, "Invalid email format", (*resp.Body)["detail"])
}

func TestService_unknownErrorNeverLeaks(t *testing.T) {
	t.Parallel()

	c, _ := newTestService(t)
	resp := apitest.Get[map[string]any](t, c, "/users/666")

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	require.NotNil(t, resp.Body)
	assert.Equal(t, "Internal Server Error", (*resp.Body)["title"])
	assert.NotContains(t, (*resp.Body)["detail"], "db-1")
}

func TestService_missingRequiredParam(t *testing.T) {
	t.Parallel()

	c, invocations := newTestService(t)
	resp := apitest.Get[map[string]any](t, c, "/users")

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	require.NotNil(t, resp.Body)
	assert.Contains(t, (*resp.Body)["detail"], `"role"`)
	// The handler is never invoked on a binding failure.
	assert.Zero(t, *invocations)
}

func TestService_responseRedaction(t *testing.T) {
	t.Parallel()

	c, _ := newTestService(t)
	resp := apitest.Post[map[string]any](t, c, "/users", map[string]any{"username": "bob", "email": "b@x.io"})

	require.NotNil(t, resp.Body)
	assert.Equal(t, "[REDACTED]", (*resp.Body)["password"])
	assert.Equal(t, "bob", (*resp.Body)["username"])
}

func TestService_trailingSlashRedirect(t *testing.T) {
	t.Parallel()

	c, _ := newTestService(t)
	resp := apitest.Get[map[string]any](t, c, "/users/?role=admin")

	assert.Equal(t, http.StatusMovedPermanently, resp.Status)
	assert.Equal(t, "/users?role=admin", resp.Headers.Get("Location"))
}

func TestService_authGate(t *testing.T) {
	t.Parallel()

	auth := oasbind.NewAPIKeyAuth(oasbind.CredentialList("k1", "k2"))
	c, _ := newTestService(t, oasbind.WithAuth(auth))

	t.Run("valid key succeeds", func(t *testing.T) {
		c.Header.Set("X-API-Key", "k1")
		resp := apitest.Get[map[string]any](t, c, "/users/7")
		assert.Equal(t, http.StatusOK, resp.Status)
	})

	t.Run("missing key", func(t *testing.T) {
		c2, _ := newTestService(t, oasbind.WithAuth(auth))
		resp := apitest.Get[map[string]any](t, c2, "/users/7")
		assert.Equal(t, http.StatusUnauthorized, resp.Status)
		assert.Contains(t, (*resp.Body)["detail"], "required")
	})

	t.Run("invalid key", func(t *testing.T) {
		c3, _ := newTestService(t, oasbind.WithAuth(auth))
		c3.Header.Set("X-API-Key", "wrong")
		resp := apitest.Get[map[string]any](t, c3, "/users/7")
		assert.Equal(t, http.StatusUnauthorized, resp.Status)
		assert.Contains(t, (*resp.Body)["detail"], "Invalid")
	})
}

func TestService_authContextReachesHandler(t *testing.T) {
	t.Parallel()

	doc, err := oasbind.ParseDocument([]byte(`
paths:
  /whoami:
    get:
      operationId: whoami
      responses:
        "200":
          description: ok
`))
	require.NoError(t, err)

	svc, err := oasbind.New(doc, oasbind.Handlers{
		"whoami": func(_ context.Context, in oasbind.Input) (any, error) {
			ac, ok := in.Auth()
			require.True(t, ok)
			return map[string]any{"caller": ac["api_key"]}, nil
		},
	}, oasbind.WithAuth(oasbind.NewAPIKeyAuth(oasbind.SingleCredential("k1"))))
	require.NoError(t, err)

	c := apitest.NewClient(t, svc)
	c.Header.Set("X-API-Key", "k1")

	resp := apitest.Get[map[string]any](t, c, "/whoami")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "k1", (*resp.Body)["caller"])
}

func TestNew_handlerTableMismatch(t *testing.T) {
	t.Parallel()

	doc, err := oasbind.ParseDocument([]byte(serviceContract))
	require.NoError(t, err)

	t.Run("declared operation without handler", func(t *testing.T) {
		t.Parallel()

		handlers, _ := serviceHandlers(t)
		delete(handlers, "get_user")

		_, err := oasbind.New(doc, handlers)
		require.ErrorIs(t, err, oasbind.ErrSpecLoad)
		assert.ErrorContains(t, err, `"get_user"`)
	})

	t.Run("handler without declared operation", func(t *testing.T) {
		t.Parallel()

		handlers, _ := serviceHandlers(t)
		handlers["rogue_op"] = func(_ context.Context, _ oasbind.Input) (any, error) { return nil, nil }

		_, err := oasbind.New(doc, handlers)
		require.ErrorIs(t, err, oasbind.ErrSpecLoad)
		assert.ErrorContains(t, err, `"rogue_op"`)
	})
}

func TestService_pathPrefix(t *testing.T) {
	t.Parallel()

	doc, err := oasbind.ParseDocument([]byte(serviceContract))
	require.NoError(t, err)

	handlers, _ := serviceHandlers(t)
	svc, err := oasbind.New(doc, handlers, oasbind.WithPathPrefix("/v1"))
	require.NoError(t, err)

	c := apitest.NewClient(t, svc)

	resp := apitest.Get[map[string]any](t, c, "/v1/users/7")
	assert.Equal(t, http.StatusOK, resp.Status)

	// The health endpoint stays at the root.
	health := apitest.Get[map[string]any](t, c, "/health")
	assert.Equal(t, http.StatusOK, health.Status)
}

func TestService_explicitResultStatus(t *testing.T) {
	t.Parallel()

	doc, err := oasbind.ParseDocument([]byte(`
paths:
  /jobs:
    post:
      operationId: enqueue_job
      responses:
        "202":
          description: queued
`))
	require.NoError(t, err)

	svc, err := oasbind.New(doc, oasbind.Handlers{
		"enqueue_job": func(_ context.Context, _ oasbind.Input) (any, error) {
			return &oasbind.Result{Payload: map[string]any{"queued": true}, Status: http.StatusAccepted}, nil
		},
	})
	require.NoError(t, err)

	c := apitest.NewClient(t, svc)
	resp := apitest.Post[map[string]any](t, c, "/jobs", map[string]any{})
	assert.Equal(t, http.StatusAccepted, resp.Status)
	assert.Equal(t, true, (*resp.Body)["queued"])
}

func TestService_contractHealthTakesPrecedence(t *testing.T) {
	t.Parallel()

	doc, err := oasbind.ParseDocument([]byte(`
paths:
  /health:
    get:
      operationId: custom_health
      responses:
        "200":
          description: ok
`))
	require.NoError(t, err)

	svc, err := oasbind.New(doc, oasbind.Handlers{
		"custom_health": func(_ context.Context, _ oasbind.Input) (any, error) {
			return map[string]any{"status": "custom"}, nil
		},
	})
	require.NoError(t, err)

	c := apitest.NewClient(t, svc)
	resp := apitest.Get[map[string]any](t, c, "/health")
	assert.Equal(t, "custom", (*resp.Body)["status"])
}
