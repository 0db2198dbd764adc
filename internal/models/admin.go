package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminRole is the only role carried by dashboard sessions.
const AdminRole = "admin"

// AdminLoginRequest holds the shared dashboard password.
type AdminLoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// AdminSession is returned after a successful login.
type AdminSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminClaims is the JWT payload of an admin session.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
