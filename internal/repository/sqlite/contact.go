package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/fitness-hub/internal/model"
	"github.com/sakif/fitness-hub/internal/repository"
)

var _ repository.ContactRepository = (*DB)(nil)

// CreateContact stores a contact form submission, assigning ID and CreatedAt.
func (db *DB) CreateContact(ctx context.Context, c *model.ContactSubmission) error {
	c.ID = xid.New().String()
	c.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO contact_queries (id, name, email, message, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, c.Message, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting contact query: %w", err)
	}
	return nil
}
