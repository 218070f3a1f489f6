// Package auth registers users, checks passwords and issues the JWTs the
// middleware verifies.
package auth

import (
	"errors"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "auth")

const (
	RolePatient = "PATIENT"
	RoleAdmin   = "ADMIN"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingFields      = errors.New("missing required fields")
	ErrEmailExists        = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid token")
)

// User is the domain entity.
type User struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     string
}
