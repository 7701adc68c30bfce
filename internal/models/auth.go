package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates caller roles recognised by the API.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleDoctor  UserRole = "doctor"
	RoleStudent UserRole = "student"
)

// JWTClaims represents the JWT payload for access tokens. Token issuance
// lives with the identity provider; this API only verifies and reads them.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
