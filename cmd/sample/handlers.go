package main

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bjaus/miniapi"
)

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

type userStore struct {
	mu     sync.RWMutex
	users  map[string]*User
	nextID int
}

func newUserStore() *userStore {
	now := time.Now()
	return &userStore{
		users: map[string]*User{
			"1": {ID: "1", Name: "Alice", Email: "alice@example.com", Role: "admin", CreatedAt: now},
			"2": {ID: "2", Name: "Bob", Email: "bob@example.com", Role: "member", CreatedAt: now},
		},
		nextID: 3,
	}
}

func (s *userStore) list(role string) []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b User) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (s *userStore) get(id string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

func (s *userStore) create(in UserInput) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{
		ID:        strconv.Itoa(s.nextID),
		Name:      in.Name,
		Email:     in.Email,
		Role:      in.Role,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.users[u.ID] = u
	cp := *u
	return &cp
}

func (s *userStore) update(id string, in UserPatch) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	if in.Name != "" {
		u.Name = in.Name
	}
	if in.Email != "" {
		u.Email = in.Email
	}
	if in.Role != "" {
		u.Role = in.Role
	}
	cp := *u
	return &cp, true
}

func (s *userStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	return true
}

// ---------------------------------------------------------------------------
// Domain and request types
// ---------------------------------------------------------------------------

// User is the core domain entity.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserInput is the validated body of a create request.
type UserInput struct {
	Name  string `json:"name" validate:"required,min=1,max=64"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin member"`
}

// Validate fills the default role.
func (u *UserInput) Validate() error {
	if u.Role == "" {
		u.Role = "member"
	}
	return nil
}

// UserPatch is the validated body of an update request.
type UserPatch struct {
	Name  string `json:"name" validate:"omitempty,max=64"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin member"`
}

type healthResp struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

type listUsersReq struct {
	Role   *string
	Limit  int `default:"50"`
	Offset int `default:"0"`
}

type listUsersResp struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
}

type createUserReq struct {
	User UserInput
}

type userByIDReq struct {
	ID string
}

type updateUserReq struct {
	ID    string
	Patch UserPatch
}

type chatMessage struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func registerRoutes(app *miniapi.App, store *userStore) {
	miniapi.Get(app, "/health", func(_ context.Context, _ *miniapi.Void) (healthResp, error) {
		return healthResp{Status: "ok", Time: time.Now()}, nil
	})

	v1 := app.Group("/v1")

	miniapi.Get(v1, "/users", func(_ context.Context, req *listUsersReq) (*listUsersResp, error) {
		role := ""
		if req.Role != nil {
			role = *req.Role
		}
		users := store.list(role)
		total := len(users)

		if req.Offset > len(users) {
			users = nil
		} else {
			users = users[req.Offset:]
		}
		if req.Limit > 0 && req.Limit < len(users) {
			users = users[:req.Limit]
		}
		return &listUsersResp{Users: users, Total: total}, nil
	})

	miniapi.Post(v1, "/users", func(_ context.Context, req *createUserReq) (*User, error) {
		return store.create(req.User), nil
	}, miniapi.WithStatus(http.StatusCreated))

	miniapi.Get(v1, "/users/:id", func(_ context.Context, req *userByIDReq) (*User, error) {
		user, ok := store.get(req.ID)
		if !ok {
			return nil, miniapi.Errorf(http.StatusNotFound, "user %s not found", req.ID)
		}
		return user, nil
	})

	miniapi.Put(v1, "/users/:id", func(_ context.Context, req *updateUserReq) (*User, error) {
		user, ok := store.update(req.ID, req.Patch)
		if !ok {
			return nil, miniapi.Errorf(http.StatusNotFound, "user %s not found", req.ID)
		}
		return user, nil
	})

	miniapi.Delete(v1, "/users/:id", func(_ context.Context, req *userByIDReq) (*miniapi.Response, error) {
		if !store.delete(req.ID) {
			return nil, miniapi.Errorf(http.StatusNotFound, "user %s not found", req.ID)
		}
		return &miniapi.Response{Status: http.StatusNoContent}, nil
	})

	miniapi.WebSocket(app, "/chat/:room", handleChat)
	miniapi.WebSocket(app, "/ping", func(context.Context) error { return nil })
}

// handleChat echoes every message back tagged with the room name.
func handleChat(ctx context.Context, conn *miniapi.WebSocketConnection) error {
	room := conn.PathParam("room")
	for {
		text, err := conn.ReceiveText(ctx)
		if errors.Is(err, miniapi.ErrDisconnected) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := conn.SendJSON(ctx, chatMessage{Room: room, Text: text}); err != nil {
			return err
		}
	}
}
