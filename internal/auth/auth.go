// Package auth signs users up and in against the user table.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dyike/FinSim/internal/storage"
	"github.com/dyike/FinSim/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrEmptyUsername      = errors.New("username is required")
)

const minPasswordLen = 6

// Users is the part of the store auth needs.
type Users interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
}

type Service struct {
	users Users
	cost  int
}

// New uses bcrypt.DefaultCost unless cost is positive.
func New(users Users, cost int) *Service {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{users: users, cost: cost}
}

func (s *Service) SignUp(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.User{}, ErrEmptyUsername
	}
	if len(password) < minPasswordLen {
		return models.User{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.users.CreateUser(ctx, models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
	})
}

// SignIn checks the password and, on success, marks session authenticated
// with the stored balance.
func (s *Service) SignIn(ctx context.Context, session *models.Session, username, password string) (models.User, error) {
	u, err := s.users.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrUserNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	if session != nil {
		session.SignIn(u, u.Balance)
	}
	return u, nil
}
