package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole enumerates account roles.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleInstructor UserRole = "instructor"
)

// User is a staff account able to sign in to the admin UI.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// JWTClaims carries identity inside access tokens.
type JWTClaims struct {
	UserID   string   `json:"uid"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}

// UserInfo is the public projection of a user.
type UserInfo struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
}

// LoginResponse is returned from a successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expiresIn"`
	IssuedAt  time.Time `json:"issuedAt"`
	User      UserInfo  `json:"user"`
}
