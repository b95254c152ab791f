package sessionArchiveRepo

import (
	"context"

	"salescompagent/models"
)

// SessionArchiveRepository stores terminal sessions once the router is done
// with them.
type SessionArchiveRepository interface {
	Insert(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
}
