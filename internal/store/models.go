package store

import "time"

type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Environment is one row of the environment vocabulary. ParentID is 0 for
// top-level environments.
type Environment struct {
	ID          int
	Name        string
	ParentID    int
	Status      int
	Description string
	UID         *string
	ParentUID   *string
	WikiLink    *string
}

type Review struct {
	ID    int
	Level string
}
