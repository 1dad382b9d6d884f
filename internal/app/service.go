package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"hypda/entry/internal/auth"
	"hypda/entry/internal/authpw"
	"hypda/entry/internal/config"
	"hypda/entry/internal/rbac"
	"hypda/entry/internal/session"
	"hypda/entry/internal/store"
	"hypda/entry/internal/util"
)

type Session struct {
	Token     string
	CSRF      string
	UserID    string
	Email     string
	Role      string
	JTI       string
	ExpiresAt time.Time
}

func (s Session) IsSuperuser() bool {
	return rbac.Can(rbac.Normalize(s.Role), rbac.ActionAdmin)
}

type dataStore interface {
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	CreateUser(context.Context, store.User) error
	ListEnvironments(context.Context) ([]store.Environment, error)
	ListReviews(context.Context) ([]store.Review, error)
	InsertEnvironment(context.Context, store.Environment) (int, error)
	InsertReview(context.Context, string) (int, error)
	Ping(ctx context.Context) error
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  session.Store
	passwords *authpw.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions session.Store) *Service {
	return newService(cfg, dataStore, sessions)
}

func newService(cfg config.Config, dataStore dataStore, sessions session.Store) *Service {
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		sessions:  sessions,
		passwords: authpw.NewService(dataStore),
	}
}

var defaultEnvironments = []store.Environment{
	{Name: "Alluvial aquifer", Status: 1, Description: "Unconsolidated river and floodplain deposits."},
	{Name: "Karst", Status: 1, Description: "Carbonate rock with dissolution conduits."},
	{Name: "Fractured crystalline rock", Status: 1, Description: "Granite and gneiss with flow along fractures."},
	{Name: "Glacial till", Status: 1, Description: "Poorly sorted glacial sediments."},
}

var defaultReviewLevels = []string{"Not reviewed", "Internal review", "Peer reviewed"}

// Bootstrap seeds empty vocabularies and, when configured, a dev operator.
func (s *Service) Bootstrap(ctx context.Context) error {
	environments, err := s.store.ListEnvironments(ctx)
	if err != nil {
		return err
	}
	if len(environments) == 0 {
		for _, env := range defaultEnvironments {
			if _, err := s.store.InsertEnvironment(ctx, env); err != nil {
				return err
			}
		}
		log.Printf("bootstrap: seeded %d environments", len(defaultEnvironments))
	}

	reviews, err := s.store.ListReviews(ctx)
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		for _, level := range defaultReviewLevels {
			if _, err := s.store.InsertReview(ctx, level); err != nil {
				return err
			}
		}
		log.Printf("bootstrap: seeded %d review levels", len(defaultReviewLevels))
	}

	if strings.TrimSpace(s.cfg.SeedEmail) == "" || s.cfg.SeedPassword == "" {
		return nil
	}
	_, err = s.passwords.Register(ctx, authpw.RegisterRequest{
		Email:     s.cfg.SeedEmail,
		Password:  s.cfg.SeedPassword,
		Superuser: s.cfg.SeedSuperuser,
	})
	if errors.Is(err, authpw.ErrEmailRegistered) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed operator: %w", err)
	}
	log.Printf("bootstrap: seeded operator %s", s.cfg.SeedEmail)
	return nil
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.passwords.SignIn(ctx, authpw.SignInRequest{Email: email, Password: password})
	if errors.Is(err, authpw.ErrInvalidCredentials) {
		return Session{}, errInvalidCredentials()
	}
	if errors.Is(err, authpw.ErrMissingCredentials) {
		return Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Email and password are required", nil)
	}
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")
	csrf, err := auth.NewCSRFToken()
	if err != nil {
		return Session{}, err
	}

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Role:  user.Role,
		JTI:   jti,
		CSRF:  csrf,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	if err := s.sessions.SaveSession(ctx, jti, session.Record{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, expiresAt); err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		CSRF:      csrf,
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}

// SessionFromToken accepts a token only while its registry entry exists, so
// a logged-out token stops working before it expires.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	record, err := s.sessions.LookupSession(ctx, claims.JTI)
	if errors.Is(err, session.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		CSRF:      claims.CSRF,
		UserID:    claims.Sub,
		Email:     claims.Email,
		Role:      string(rbac.Normalize(record.Role)),
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, current Session) error {
	if current.JTI == "" {
		return nil
	}
	return s.sessions.RevokeSession(ctx, current.JTI)
}

type EnvironmentPayload struct {
	ID          int     `json:"env_id"`
	Name        string  `json:"env_name"`
	ParentID    int     `json:"env_id_parent"`
	Status      int     `json:"env_Status"`
	Description string  `json:"env_description"`
	UID         *string `json:"UID"`
	ParentUID   *string `json:"PARENTUID"`
	WikiLink    *string `json:"env_wiki_link"`
}

type ReviewPayload struct {
	ID    int    `json:"id_Review"`
	Level string `json:"review_level"`
}

func (s *Service) Environments(ctx context.Context, current Session) ([]EnvironmentPayload, error) {
	if !rbac.Can(rbac.Normalize(current.Role), rbac.ActionRead) {
		return nil, errForbidden()
	}
	items, err := s.store.ListEnvironments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]EnvironmentPayload, 0, len(items))
	for _, env := range items {
		out = append(out, EnvironmentPayload{
			ID:          env.ID,
			Name:        env.Name,
			ParentID:    env.ParentID,
			Status:      env.Status,
			Description: env.Description,
			UID:         env.UID,
			ParentUID:   env.ParentUID,
			WikiLink:    env.WikiLink,
		})
	}
	return out, nil
}

func (s *Service) Reviews(ctx context.Context, current Session) ([]ReviewPayload, error) {
	if !rbac.Can(rbac.Normalize(current.Role), rbac.ActionRead) {
		return nil, errForbidden()
	}
	items, err := s.store.ListReviews(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ReviewPayload, 0, len(items))
	for _, review := range items {
		out = append(out, ReviewPayload{ID: review.ID, Level: review.Level})
	}
	return out, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PingSessions(ctx context.Context) error {
	return s.sessions.Ping(ctx)
}

func (s *Service) SecureCookies() bool {
	return s.cfg.SecureCookies
}
