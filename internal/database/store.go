package database

import (
	"errors"

	"property-portal/internal/models"
)

// ErrNotFound is returned when no live (non-soft-deleted) row matches an id.
var ErrNotFound = errors.New("property not found")

// ListParams controls search and offset pagination for property listings.
type ListParams struct {
	Search            string
	Page              int
	PerPage           int
	SearchDescription bool
}

// ListResult is a page of the filtered, id-ordered property set.
type ListResult struct {
	Items   []models.Property
	Total   int64
	Page    int
	PerPage int
}

// Store is the persistence contract shared by the MySQL and Postgres backends.
type Store interface {
	InitSchema() error
	Create(p *models.Property) error
	FindByID(id uint64) (*models.Property, error)
	Update(p *models.Property, changes []models.PropertyChange) error
	SoftDelete(id uint64, actor *uint64) (*models.Property, error)
	List(params ListParams) (*ListResult, error)
	AllLive() ([]models.Property, error)
	Changes(propertyID uint64, limit int) ([]models.PropertyChange, error)
	DeleteLogs(limit int) ([]models.DeleteLog, error)
	CountByStatus() (map[models.PropertyStatus]int64, error)
	Close() error
}

// normalizePage clamps pagination inputs to sane values.
func normalizePage(params *ListParams) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = 10
	}
}
