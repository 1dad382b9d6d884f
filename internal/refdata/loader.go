// Package refdata loads the reference vocabularies (environments and review
// levels) that constrain the general-information fields.
package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"hypda/entry/internal/websession"
)

type Resource string

const (
	ResourceEnvironments Resource = "/api/environments"
	ResourceReviews      Resource = "/api/reviews"
)

func (r Resource) noun() string {
	switch r {
	case ResourceEnvironments:
		return "environment"
	case ResourceReviews:
		return "review"
	default:
		return strings.TrimPrefix(string(r), "/api/")
	}
}

type EnvironmentRef struct {
	ID          int     `json:"env_id"`
	Name        string  `json:"env_name"`
	ParentID    int     `json:"env_id_parent"`
	Status      int     `json:"env_Status"`
	Description string  `json:"env_description"`
	UID         *string `json:"UID"`
	ParentUID   *string `json:"PARENTUID"`
	WikiLink    *string `json:"env_wiki_link"`
}

type ReviewRef struct {
	ID    int    `json:"id_Review"`
	Level string `json:"review_level"`
}

// Result is the settled outcome of one load cycle. Message holds the error
// text to display; when several failures occur the last one evaluated wins
// (environments are evaluated before reviews). Failures keeps all of them.
type Result struct {
	Environments []EnvironmentRef
	Reviews      []ReviewRef
	Err          error
	Message      string
	IsError      bool
	Failures     []error
}

func (r Result) EnvironmentNames() []string {
	names := make([]string, 0, len(r.Environments))
	for _, env := range r.Environments {
		names = append(names, env.Name)
	}
	return names
}

func (r Result) ReviewLevels() []string {
	levels := make([]string, 0, len(r.Reviews))
	for _, review := range r.Reviews {
		levels = append(levels, review.Level)
	}
	return levels
}

func (r *Result) fail(err error) {
	r.Err = err
	r.Message = err.Error()
	r.IsError = true
	r.Failures = append(r.Failures, err)
}

const maxErrorBody = 64 << 10

type Loader struct {
	session *websession.Session
}

func New(session *websession.Session) *Loader {
	return &Loader{session: session}
}

// Load fetches both vocabularies concurrently. The requests settle
// independently: a failure of one never discards the other's data.
func (l *Loader) Load(ctx context.Context) Result {
	var result Result

	token, ok := l.session.CSRFToken()
	if !ok {
		result.fail(&ConfigError{Message: MsgMissingCSRF})
		return result
	}

	var (
		wg        sync.WaitGroup
		envs      []EnvironmentRef
		envErr    error
		reviews   []ReviewRef
		reviewErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		envs, envErr = fetchList[EnvironmentRef](ctx, l.session, token, ResourceEnvironments)
	}()
	go func() {
		defer wg.Done()
		reviews, reviewErr = fetchList[ReviewRef](ctx, l.session, token, ResourceReviews)
	}()
	wg.Wait()

	switch {
	case envErr != nil:
		result.fail(envErr)
	case len(envs) == 0:
		result.fail(&EmptyDataError{Resource: ResourceEnvironments})
	default:
		result.Environments = envs
	}

	switch {
	case reviewErr != nil:
		result.fail(reviewErr)
	case len(reviews) == 0:
		result.fail(&EmptyDataError{Resource: ResourceReviews})
	default:
		result.Reviews = reviews
	}

	return result
}

func fetchList[T any](ctx context.Context, session *websession.Session, token string, resource Resource) ([]T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, session.URL(string(resource)), nil)
	if err != nil {
		return nil, &NetworkError{Resource: resource, Kind: KindOther, Err: err}
	}
	req.Header.Set(websession.CSRFHeader, token)
	req.Header.Set("Accept", "application/json")

	resp, err := session.Client().Do(req)
	if err != nil {
		return nil, &NetworkError{Resource: resource, Kind: KindNoResponse, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &NetworkError{
			Resource: resource,
			Kind:     KindStatus,
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(body)),
		}
	}

	var items []T
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, &NetworkError{Resource: resource, Kind: KindOther, Err: fmt.Errorf("decode %s: %w", resource, err)}
	}
	return items, nil
}
