package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the claims carried by access tokens issued by the platform.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
