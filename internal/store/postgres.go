package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const query = `SELECT id, email, display_name, password_hash, role, created_at FROM users WHERE LOWER(email) = LOWER($1)`
	var user User
	err := s.db.QueryRowContext(ctx, query, strings.TrimSpace(email)).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const query = `SELECT id, email, display_name, password_hash, role, created_at FROM users WHERE id = $1`
	var user User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, strings.TrimSpace(user.Email), user.DisplayName, user.PasswordHash, user.Role)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// ListEnvironments returns the vocabulary in id order, which is the order the
// client offers as choices.
func (s *PostgresStore) ListEnvironments(ctx context.Context) ([]Environment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT env_id, env_name, env_id_parent, env_status, env_description, uid, parent_uid, wiki_link
		FROM environments
		ORDER BY env_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list environments: %w", err)
	}
	defer rows.Close()

	items := make([]Environment, 0)
	for rows.Next() {
		var (
			env       Environment
			uid       sql.NullString
			parentUID sql.NullString
			wikiLink  sql.NullString
		)
		if err := rows.Scan(&env.ID, &env.Name, &env.ParentID, &env.Status, &env.Description, &uid, &parentUID, &wikiLink); err != nil {
			return nil, fmt.Errorf("scan environment: %w", err)
		}
		env.UID = nullableString(uid)
		env.ParentUID = nullableString(parentUID)
		env.WikiLink = nullableString(wikiLink)
		items = append(items, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate environments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListReviews(ctx context.Context) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id_review, review_level FROM reviews ORDER BY id_review`)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	items := make([]Review, 0)
	for rows.Next() {
		var review Review
		if err := rows.Scan(&review.ID, &review.Level); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		items = append(items, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertEnvironment(ctx context.Context, env Environment) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO environments (env_name, env_id_parent, env_status, env_description, uid, parent_uid, wiki_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING env_id
	`, env.Name, env.ParentID, env.Status, env.Description, env.UID, env.ParentUID, env.WikiLink).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert environment: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) InsertReview(ctx context.Context, level string) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `INSERT INTO reviews (review_level) VALUES ($1) RETURNING id_review`, level).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert review: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullableString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}
