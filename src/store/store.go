// Package store persists one NotificationRecord per notified build so that the
// next notification of the same project can be threaded under it.
package store

import (
	"context"
	"fmt"

	"buildmail-agent/src/contracts"
)

// Store defines the interface for persisting notification records.
type Store interface {
	// SaveRecord attaches rec to its build. A build keeps its first record;
	// saving another returns ErrExists.
	SaveRecord(ctx context.Context, rec *contracts.NotificationRecord) error

	// GetRecord reads the record attached to a build, or ErrNotFound.
	GetRecord(ctx context.Context, project string, number int) (*contracts.NotificationRecord, error)

	// ListRecords returns a project's records ordered by build number.
	ListRecords(ctx context.Context, project string) ([]contracts.NotificationRecord, error)

	// Close closes the store connection
	Close() error
}

// ErrNotFound is returned when a build has no record.
type ErrNotFound struct {
	Project string
	Number  int
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("no notification record for %s #%d", e.Project, e.Number)
}

// ErrExists is returned when a build already has a record.
type ErrExists struct {
	Project string
	Number  int
}

func (e ErrExists) Error() string {
	return fmt.Sprintf("notification record for %s #%d already exists", e.Project, e.Number)
}

func validate(rec *contracts.NotificationRecord) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	if rec.Project == "" {
		return fmt.Errorf("record has no project")
	}
	if rec.MessageID == "" {
		return fmt.Errorf("record for %s #%d has no message id", rec.Project, rec.Number)
	}
	return nil
}
