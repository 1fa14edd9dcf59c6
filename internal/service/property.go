package service

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"property-portal/internal/database"
	"property-portal/internal/models"
)

// Indexer mirrors property writes into an external search index. A nil
// Indexer disables the mirroring; index failures never fail a mutation.
type Indexer interface {
	IndexProperty(p *models.Property) error
	RemoveProperty(id uint64) error
}

// Service implements the query and write operations over the record store.
type Service struct {
	store    database.Store
	indexer  Indexer
	validate *validator.Validate
}

func NewService(store database.Store, indexer Indexer) *Service {
	return &Service{
		store:    store,
		indexer:  indexer,
		validate: validator.New(),
	}
}

// Input names exactly the fields a create/update accepts. Price arrives as
// the raw request value so that "required" and "numeric" are checked here,
// not at the transport layer. StatusRequired is set by the web surface.
type Input struct {
	Title          string `validate:"required,max=255"`
	Description    string
	Price          string `validate:"required,numeric"`
	Location       string
	Status         *bool
	StatusRequired bool `validate:"-"`
}

// List returns one page of live properties matching the optional search term.
func (s *Service) List(params database.ListParams) (*database.ListResult, error) {
	return s.store.List(params)
}

// Get returns a live property or database.ErrNotFound.
func (s *Service) Get(id uint64) (*models.Property, error) {
	return s.store.FindByID(id)
}

// Create validates the input and persists a new property, stamping the
// acting identity when the surface supplies one. An absent status defaults
// to active.
func (s *Service) Create(in Input, actor *uint64) (*models.Property, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	property := &models.Property{
		Title:       in.Title,
		Description: in.Description,
		Price:       parsePrice(in.Price),
		Location:    in.Location,
		Status:      statusFromInput(in.Status),
		CreatedBy:   actor,
		UpdatedBy:   actor,
	}

	if err := s.store.Create(property); err != nil {
		return nil, err
	}

	s.syncIndex(property)
	return property, nil
}

// Update re-validates all fields and fully replaces them on the live row.
// Omitted optional fields are cleared, not preserved. Each changed field is
// recorded as a PropertyChange row.
func (s *Service) Update(id uint64, in Input, actor *uint64) (*models.Property, error) {
	property, err := s.store.FindByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	next := models.Property{
		Title:       in.Title,
		Description: in.Description,
		Price:       parsePrice(in.Price),
		Location:    in.Location,
		Status:      statusFromInput(in.Status),
	}
	changes := diffProperties(property, &next, actor)

	property.Title = next.Title
	property.Description = next.Description
	property.Price = next.Price
	property.Location = next.Location
	property.Status = next.Status
	if actor != nil {
		property.UpdatedBy = actor
	}

	if err := s.store.Update(property, changes); err != nil {
		return nil, err
	}

	s.syncIndex(property)
	return property, nil
}

// SoftDelete marks the property deleted and returns the final record
// including deleted_at. Deleting an already-deleted row reads as NotFound,
// since soft-deleted rows are excluded from lookups.
func (s *Service) SoftDelete(id uint64, actor *uint64) (*models.Property, error) {
	property, err := s.store.SoftDelete(id, actor)
	if err != nil {
		return nil, err
	}

	if s.indexer != nil {
		if err := s.indexer.RemoveProperty(id); err != nil {
			log.Printf("[Search] Warning: failed to remove property %d from index: %v", id, err)
		}
	}
	return property, nil
}

// Changes returns the recorded field-change history for a property.
func (s *Service) Changes(id uint64, limit int) ([]models.PropertyChange, error) {
	if _, err := s.store.FindByID(id); err != nil {
		return nil, err
	}
	return s.store.Changes(id, limit)
}

// DeleteLogs returns recent soft-delete audit entries.
func (s *Service) DeleteLogs(limit int) ([]models.DeleteLog, error) {
	return s.store.DeleteLogs(limit)
}

// Stats returns property counts per status.
func (s *Service) Stats() (map[models.PropertyStatus]int64, error) {
	return s.store.CountByStatus()
}

// Reindex pushes every live property into the search index.
func (s *Service) Reindex() (int, error) {
	if s.indexer == nil {
		return 0, fmt.Errorf("search index is not configured")
	}

	properties, err := s.store.AllLive()
	if err != nil {
		return 0, err
	}

	indexed := 0
	for i := range properties {
		if err := s.indexer.IndexProperty(&properties[i]); err != nil {
			log.Printf("[Search] Warning: failed to index property %d: %v", properties[i].ID, err)
			continue
		}
		indexed++
	}
	return indexed, nil
}

func (s *Service) syncIndex(p *models.Property) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexProperty(p); err != nil {
		log.Printf("[Search] Warning: failed to index property %d: %v", p.ID, err)
	}
}

// validateInput checks the field rules and collects every violation into a
// single ValidationError keyed by field name.
func (s *Service) validateInput(in Input) error {
	verr := &ValidationError{}

	if err := s.validate.Struct(in); err != nil {
		fieldErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		for _, fe := range fieldErrors {
			field := strings.ToLower(fe.Field())
			verr.add(field, messageFor(field, fe))
		}
	}

	if in.StatusRequired && in.Status == nil {
		verr.add("status", "The status field is required.")
	}

	if len(verr.Errors) > 0 {
		return verr
	}
	return nil
}

func messageFor(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("The %s field must be a number.", field)
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}

// parsePrice converts a validated numeric string to the stored 2-digit
// fractional precision.
func parsePrice(raw string) float64 {
	value, _ := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	return math.Round(value*100) / 100
}

func statusFromInput(status *bool) models.PropertyStatus {
	if status == nil {
		return models.PropertyStatusActive
	}
	return models.StatusFromBool(*status)
}

// diffProperties records one change row per field that differs.
func diffProperties(old, next *models.Property, actor *uint64) []models.PropertyChange {
	var changes []models.PropertyChange
	record := func(field, oldValue, newValue string) {
		if oldValue == newValue {
			return
		}
		changes = append(changes, models.PropertyChange{
			PropertyID: old.ID,
			Field:      field,
			OldValue:   oldValue,
			NewValue:   newValue,
			ChangedBy:  actor,
		})
	}

	record("title", old.Title, next.Title)
	record("description", old.Description, next.Description)
	record("price", formatPrice(old.Price), formatPrice(next.Price))
	record("location", old.Location, next.Location)
	record("status", string(old.Status), string(next.Status))
	return changes
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}
