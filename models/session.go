package models

import (
	"time"

	"github.com/dyike/FinSim/consts"
)

// Session carries the signed-in user's state through every user-facing
// operation.
type Session struct {
	UserID               string
	Username             string
	Authenticated        bool
	Balance              float64
	LastPortfolioRefresh time.Time
}

func NewSession() *Session {
	return &Session{Balance: consts.StartingBalance}
}

// SignIn marks the session authenticated for user with the stored balance.
func (s *Session) SignIn(u User, balance float64) {
	s.UserID = u.ID
	s.Username = u.Username
	s.Authenticated = true
	s.Balance = balance
}

func (s *Session) SignOut() {
	*s = *NewSession()
}
