// Command sample demonstrates contract-first service assembly: an embedded
// OpenAPI-style contract plus a handler table become a running HTTP service.
//
// Run:
//
//	go run ./cmd/sample
//
// Optionally protect every route with an API key:
//
//	API_KEY=secret go run ./cmd/sample
//
// Then explore:
//
//	GET    http://localhost:8080/health            — health check
//	GET    http://localhost:8080/users             — list users
//	POST   http://localhost:8080/users             — create user
//	GET    http://localhost:8080/users/{id}        — get user
//	PUT    http://localhost:8080/users/{id}        — update user
//	DELETE http://localhost:8080/users/{id}        — delete user
//	GET    http://localhost:8080/stats             — service stats
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/oasbind/oasbind"
)

const contract = `
openapi: 3.0.3
info:
  title: Sample User Service
  version: 1.0.0
paths:
  /users:
    get:
      operationId: index
      summary: List users
      parameters:
        - name: role
          in: query
          schema:
            type: string
        - name: limit
          in: query
          schema:
            type: integer
            default: 50
      responses:
        "200":
          description: Users
          content:
            application/json:
              schema:
                type: object
                properties:
                  users:
                    type: array
                    items:
                      type: object
                  total:
                    type: integer
                required: [users, total]
    post:
      operationId: create
      summary: Create user
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              properties:
                name:
                  type: string
                email:
                  type: string
                role:
                  type: string
                  default: member
              required: [name, email]
      responses:
        "201":
          description: Created
          content:
            application/json:
              schema:
                type: object
                properties:
                  id:
                    type: string
                  name:
                    type: string
                  email:
                    type: string
                  role:
                    type: string
                  created_at:
                    type: string
                    format: date-time
  /users/{id}:
    parameters:
      - name: id
        in: path
        required: true
        schema:
          type: string
    get:
      operationId: show
      responses:
        "200":
          description: User
          content:
            application/json:
              schema:
                type: object
    put:
      operationId: update
      responses:
        "200":
          description: Updated user
          content:
            application/json:
              schema:
                type: object
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                name:
                  type: string
                email:
                  type: string
                role:
                  type: string
    delete:
      operationId: destroy
      responses:
        "204":
          description: Deleted
  /stats:
    get:
      operationId: get_stats
      responses:
        "200":
          description: Stats
          content:
            application/json:
              schema:
                type: object
                properties:
                  user_count:
                    type: integer
                  uptime_seconds:
                    type: integer
`

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))

	svc, err := newService()
	if err != nil {
		slog.Error("assembly failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("starting server", "addr", ":8080")

	if err := svc.ListenAndServe(ctx, ":8080"); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
	}

	slog.Info("server stopped")
}

func newService() (*oasbind.Service, error) {
	doc, err := oasbind.ParseDocument([]byte(contract))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	handlers := oasbind.ResourceHandlers(store)
	handlers["get_stats"] = func(_ context.Context, _ oasbind.Input) (any, error) {
		return map[string]any{
			"user_count":     store.count(),
			"uptime_seconds": int(time.Since(start).Seconds()),
		}, nil
	}

	opts := []oasbind.Option{oasbind.WithServiceName("sample")}
	if os.Getenv("API_KEY") != "" {
		opts = append(opts, oasbind.WithAuth(oasbind.NewAPIKeyAuth(oasbind.CredentialsFromEnv("API_KEY"))))
	}

	svc, err := oasbind.New(doc, handlers, opts...)
	if err != nil {
		return nil, err
	}

	svc.Use(oasbind.Recovery())
	svc.Use(oasbind.RequestID())
	svc.Use(oasbind.Logger(slog.Default()))
	svc.Use(oasbind.RateLimit(oasbind.RateLimitConfig{Rate: 50, Burst: 100}))

	return svc, nil
}

// ---------------------------------------------------------------------------
// In-memory store implementing oasbind.Resource
// ---------------------------------------------------------------------------

var store = &userStore{
	users: map[string]map[string]any{
		"1": {"id": "1", "name": "Alice", "email": "alice@example.com", "role": "admin", "created_at": time.Now()},
		"2": {"id": "2", "name": "Bob", "email": "bob@example.com", "role": "member", "created_at": time.Now()},
	},
	nextID: 3,
}

type userStore struct {
	mu     sync.RWMutex
	users  map[string]map[string]any
	nextID int
}

func (s *userStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *userStore) Index(_ context.Context, filters oasbind.Input, _ oasbind.AuthContext) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role := filters.String("role")
	limit := filters.Int("limit")

	users := make([]any, 0, len(s.users))
	for _, u := range s.users {
		if role != "" && u["role"] != role {
			continue
		}
		if limit > 0 && len(users) >= limit {
			break
		}
		users = append(users, u)
	}

	return map[string]any{"users": users, "total": len(users)}, nil
}

func (s *userStore) Show(_ context.Context, id string, _ oasbind.AuthContext) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, oasbind.Errorf(oasbind.KindNotFound, "User %s not found", id)
	}
	return u, nil
}

func (s *userStore) Create(_ context.Context, body oasbind.Input, _ oasbind.AuthContext) (any, error) {
	name := body.String("name")
	email := body.String("email")
	if name == "" || email == "" {
		return nil, oasbind.Validation("name and email are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u["email"] == email {
			return nil, oasbind.Conflict(fmt.Sprintf("User with email %s already exists", email)).
				With("existing_id", u["id"])
		}
	}

	role := body.String("role")
	if role == "" {
		role = "member"
	}

	id := strconv.Itoa(s.nextID)
	s.nextID++
	u := map[string]any{
		"id":         id,
		"name":       name,
		"email":      email,
		"role":       role,
		"created_at": time.Now(),
	}
	s.users[id] = u
	return u, nil
}

func (s *userStore) Update(_ context.Context, id string, body oasbind.Input, _ oasbind.AuthContext) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, oasbind.Errorf(oasbind.KindNotFound, "User %s not found", id)
	}
	for _, field := range []string{"name", "email", "role"} {
		if v := body.String(field); v != "" {
			u[field] = v
		}
	}
	return u, nil
}

func (s *userStore) Destroy(_ context.Context, id string, _ oasbind.AuthContext) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return nil, oasbind.Errorf(oasbind.KindNotFound, "User %s not found", id)
	}
	delete(s.users, id)
	return nil, nil
}
