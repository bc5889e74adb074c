// Package sessions implements the Session Store and Session Manager:
// persistence, lifecycle transitions, and the sender/group index.
package sessions

import (
	"errors"

	"github.com/mira-ai/sentinel/pkg/models"
)

// ErrNotFound is returned by Store.Get and Manager.Resume when no
// session exists for the given id.
var ErrNotFound = errors.New("sessions: not found")

// ListOptions filters a Store.List call.
type ListOptions struct {
	Channel string
	Limit   int
	Offset  int
}

// Store persists and retrieves Session records by id.
type Store interface {
	Get(id string) (models.Session, error)
	Put(s models.Session) error
	Delete(id string) error
	List(opts ListOptions) ([]models.Session, error)
}
