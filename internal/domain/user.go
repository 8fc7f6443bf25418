package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleVerifier Role = "verifier"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
}
