package store

import (
	"errors"

	"github.com/google/uuid"

	"github.com/mcclellann/creditos/pkg/models"
)

// ErrNotFound is returned when a credit lookup yields no match.
var ErrNotFound = errors.New("credit not found")

// Storage defines the operations the credit collection supports for one
// session. Read methods return copies; mutations go through Add, Update,
// ReplaceAll and RefreshAll so callers never share pointers with the store.
type Storage interface {
	// Add appends a credit. Duplicate client names are permitted.
	Add(c *models.Credit) error
	// Get returns the credit with the given id, or ErrNotFound.
	Get(id uuid.UUID) (*models.Credit, error)
	// FindFirstByClient returns the first credit, in insertion order, whose
	// client name matches exactly. Name-based lookup is a convenience only;
	// when names collide the first row wins.
	FindFirstByClient(name string) (*models.Credit, error)
	// Update applies mutate to a copy of the stored credit and commits it
	// only when mutate returns nil. The committed copy is returned.
	Update(id uuid.UUID, mutate func(*models.Credit) error) (*models.Credit, error)
	// ReplaceAll swaps the whole collection, as when a new file is loaded.
	ReplaceAll(credits []*models.Credit)
	// RefreshAll applies mutate to every stored credit, used to re-derive
	// statuses against the current date before a read.
	RefreshAll(mutate func(*models.Credit))

	All() []*models.Credit
	FilterByStatus(status models.Status) []*models.Credit
	// FilterByClientSubstring matches client names case-insensitively.
	FilterByClientSubstring(text string) []*models.Credit
}
