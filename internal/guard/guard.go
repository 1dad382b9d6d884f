// Package guard verifies that the operator holds an active session and
// reports its privilege role.
package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"hypda/entry/internal/websession"
)

type Tristate int8

const (
	Unknown Tristate = iota
	False
	True
)

func fromBool(v bool) Tristate {
	if v {
		return True
	}
	return False
}

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// State is unknown on both flags until the first check resolves.
type State struct {
	IsAuth      Tristate
	IsSuperuser Tristate
}

var (
	unauthenticated = State{IsAuth: False, IsSuperuser: False}
)

func (s State) Settled() bool {
	return s.IsAuth != Unknown
}

// Allows gates a view. Unknown means the check is still pending.
func (s State) Allows(requireSuperuser bool) Tristate {
	if !s.Settled() {
		return Unknown
	}
	if s.IsAuth != True {
		return False
	}
	if requireSuperuser {
		return fromBool(s.IsSuperuser == True)
	}
	return True
}

type Guard struct {
	session *websession.Session
}

func New(session *websession.Session) *Guard {
	return &Guard{session: session}
}

// Check queries /users/check once. Every failure maps to unauthenticated.
func (g *Guard) Check(ctx context.Context) State {
	state, err := g.check(ctx)
	if err != nil {
		log.Printf("guard: session check failed: %v", err)
		return unauthenticated
	}
	return state
}

func (g *Guard) check(ctx context.Context) (State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.session.URL("/users/check"), nil)
	if err != nil {
		return State{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := g.session.Client().Do(req)
	if err != nil {
		return State{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return State{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var body *struct {
		IsSuperuser *bool `json:"is_superuser"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return State{}, fmt.Errorf("decode body: %w", err)
	}
	if body == nil {
		return State{}, fmt.Errorf("decode body: null")
	}
	superuser := body.IsSuperuser != nil && *body.IsSuperuser
	return State{IsAuth: True, IsSuperuser: fromBool(superuser)}, nil
}
