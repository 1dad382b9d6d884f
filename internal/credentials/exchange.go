// Package credentials exchanges an operator's email and password for a
// session with the metadata service.
package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"hypda/entry/internal/kv"
	"hypda/entry/internal/websession"
)

const (
	SuperuserKey = "isSuperuser"

	fallbackMessage = "Login failed. Please check your credentials."
)

// AuthError carries the message shown to the operator.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

type Result struct {
	IsSuperuser bool
	// Next is a navigation hint only.
	Next string
}

type Exchange struct {
	session *websession.Session
	storage kv.Store
}

func New(session *websession.Session, storage kv.Store) *Exchange {
	return &Exchange{session: session, storage: storage}
}

// Login posts the credentials, then confirms the role with /users/check and
// caches the superuser flag as a UI hint.
func (e *Exchange) Login(ctx context.Context, email, password string) (Result, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return Result{}, &AuthError{Message: fallbackMessage}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.session.URL("/users/login"), bytes.NewReader(payload))
	if err != nil {
		return Result{}, &AuthError{Message: fallbackMessage}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.session.Client().Do(req)
	if err != nil {
		log.Printf("credentials: login request failed: %v", err)
		return Result{}, &AuthError{Message: fallbackMessage}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &AuthError{Status: resp.StatusCode, Message: serverMessage(resp)}
	}

	superuser, err := e.checkRole(ctx)
	if err != nil {
		log.Printf("credentials: role check after login failed: %v", err)
		return Result{}, &AuthError{Message: fallbackMessage}
	}

	if err := e.storage.Set(ctx, SuperuserKey, strconv.FormatBool(superuser)); err != nil {
		log.Printf("credentials: cache %s: %v", SuperuserKey, err)
	}
	if err := e.session.SaveCookies(ctx); err != nil {
		log.Printf("credentials: %v", err)
	}

	next := "/account"
	if superuser {
		next = "/superaccount"
	}
	return Result{IsSuperuser: superuser, Next: next}, nil
}

func (e *Exchange) checkRole(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.session.URL("/users/check"), nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	resp, err := e.session.Client().Do(req)
	if err != nil {
		return false, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var body struct {
		IsSuperuser bool `json:"is_superuser"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode body: %w", err)
	}
	return body.IsSuperuser, nil
}

func serverMessage(resp *http.Response) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Message == "" {
		return fallbackMessage
	}
	return body.Message
}

// CachedSuperuser reads the flag written by Login. ok is false when nothing
// usable is stored.
func CachedSuperuser(ctx context.Context, storage kv.Store) (value bool, ok bool) {
	raw, found, err := storage.Get(ctx, SuperuserKey)
	if err != nil || !found {
		return false, false
	}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return false, false
	}
	return value, true
}
