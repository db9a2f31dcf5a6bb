package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccountRole represents the available roles for the RBAC system.
type AccountRole string

const (
	RoleStudent AccountRole = "student"
	RoleAdmin   AccountRole = "admin"
)

// Account represents an identity stored in the accounts table.
type Account struct {
	ID           string      `db:"id" json:"id"`
	Email        string      `db:"email" json:"email"`
	PasswordHash string      `db:"password_hash" json:"-"`
	FullName     string      `db:"full_name" json:"fullName"`
	Role         AccountRole `db:"role" json:"role"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`
}

// AccountFilter captures filtering criteria for listing accounts.
type AccountFilter struct {
	Role   *AccountRole
	Search string
}

// SignupRequest registers a new student account.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"required,max=120"`
}

// LoginRequest holds credentials for authenticating an account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AccountInfo describes the authenticated account in responses.
type AccountInfo struct {
	ID       string      `json:"id"`
	Email    string      `json:"email"`
	FullName string      `json:"fullName"`
	Role     AccountRole `json:"role"`
}

// LoginResponse returns the issued token and account info.
type LoginResponse struct {
	AccessToken string      `json:"accessToken"`
	ExpiresIn   int64       `json:"expiresIn"`
	Account     AccountInfo `json:"account"`
	IssuedAt    time.Time   `json:"issuedAt"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string      `json:"user_id"`
	Role     AccountRole `json:"role"`
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	jwt.RegisteredClaims
}

// Info projects the account into its public representation.
func (a Account) Info() AccountInfo {
	return AccountInfo{ID: a.ID, Email: a.Email, FullName: a.FullName, Role: a.Role}
}
