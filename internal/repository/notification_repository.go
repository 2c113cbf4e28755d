package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-seating/internal/model"
)

// NotificationRepo stores notifications addressed to student groups.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the given database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Insert writes a single notification row.
func (r *NotificationRepo) Insert(ctx context.Context, n *model.Notification) error {
	const q = `INSERT INTO notifications (id, event_id, type, title, message, department, year, gender, is_read, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		n.ID, n.EventID, n.Type, n.Title, n.Message,
		n.Department, n.Year, n.Gender, n.IsRead, n.CreatedAt,
	)
	return err
}
