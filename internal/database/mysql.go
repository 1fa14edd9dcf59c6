package database

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"property-portal/internal/models"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(host, port, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormStore{db: db}, nil
}

// NewGormStoreFromDB creates a GormStore from an existing gorm.DB instance
func NewGormStoreFromDB(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB returns the underlying gorm.DB instance
func (gs *GormStore) DB() *gorm.DB {
	return gs.db
}

func (gs *GormStore) Close() error {
	sqlDB, err := gs.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (gs *GormStore) InitSchema() error {
	return gs.db.AutoMigrate(
		&models.Property{},
		&models.PropertyChange{},
		&models.DeleteLog{},
	)
}

// Create persists a new property row
func (gs *GormStore) Create(p *models.Property) error {
	if p.Status == "" {
		p.Status = models.PropertyStatusActive
	}
	return gs.db.Create(p).Error
}

// FindByID retrieves a live property by ID. Soft-deleted rows are excluded
// by GORM's default scope, so a second delete attempt looks like a miss.
func (gs *GormStore) FindByID(id uint64) (*models.Property, error) {
	var property models.Property
	err := gs.db.First(&property, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &property, nil
}

// Update saves the full row and records the per-field change history
// in a single transaction.
func (gs *GormStore) Update(p *models.Property, changes []models.PropertyChange) error {
	return gs.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		if len(changes) > 0 {
			if err := tx.Create(&changes).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SoftDelete marks a property as deleted: status flips to 'deleted', then the
// row is soft-deleted (deleted_at stamped) and an audit row is written. The
// row is never physically removed.
func (gs *GormStore) SoftDelete(id uint64, actor *uint64) (*models.Property, error) {
	var property models.Property
	err := gs.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&property, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		property.Status = models.PropertyStatusDeleted
		if err := tx.Save(&property).Error; err != nil {
			return err
		}

		if err := tx.Delete(&property).Error; err != nil {
			return err
		}

		entry := models.DeleteLog{
			PropertyID: property.ID,
			Title:      property.Title,
			DeletedBy:  actor,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// List returns one page of live properties ordered by id ascending, with the
// total count of the filtered set. Out-of-range pages yield an empty page.
func (gs *GormStore) List(params ListParams) (*ListResult, error) {
	normalizePage(&params)

	var total int64
	if err := gs.searchQuery(params).Count(&total).Error; err != nil {
		return nil, err
	}

	items := make([]models.Property, 0, params.PerPage)
	offset := (params.Page - 1) * params.PerPage
	err := gs.searchQuery(params).
		Order("id ASC").
		Limit(params.PerPage).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Items:   items,
		Total:   total,
		Page:    params.Page,
		PerPage: params.PerPage,
	}, nil
}

// searchQuery builds the filtered base query: exact id match OR
// case-insensitive substring match across the searchable columns.
func (gs *GormStore) searchQuery(params ListParams) *gorm.DB {
	query := gs.db.Model(&models.Property{})

	search := strings.TrimSpace(params.Search)
	if search == "" {
		return query
	}

	like := "%" + search + "%"
	cond := gs.db.Where("title LIKE ?", like).
		Or("price LIKE ?", like).
		Or("location LIKE ?", like)
	if params.SearchDescription {
		cond = cond.Or("description LIKE ?", like)
	}
	if id, err := strconv.ParseUint(search, 10, 64); err == nil {
		cond = cond.Or("id = ?", id)
	}

	return query.Where(cond)
}

// AllLive retrieves all live properties (used by the search reindex)
func (gs *GormStore) AllLive() ([]models.Property, error) {
	var properties []models.Property
	err := gs.db.Order("id ASC").Find(&properties).Error
	return properties, err
}

// Changes returns the recorded field changes for a property, newest first
func (gs *GormStore) Changes(propertyID uint64, limit int) ([]models.PropertyChange, error) {
	var changes []models.PropertyChange
	err := gs.db.Where("property_id = ?", propertyID).
		Order("changed_at DESC").
		Limit(limit).
		Find(&changes).Error
	return changes, err
}

// DeleteLogs returns recent soft-delete audit entries, newest first
func (gs *GormStore) DeleteLogs(limit int) ([]models.DeleteLog, error) {
	var logs []models.DeleteLog
	err := gs.db.Order("recorded_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// CountByStatus returns property counts per status, soft-deleted rows included
func (gs *GormStore) CountByStatus() (map[models.PropertyStatus]int64, error) {
	counts := make(map[models.PropertyStatus]int64)
	for _, status := range []models.PropertyStatus{
		models.PropertyStatusActive,
		models.PropertyStatusInactive,
		models.PropertyStatusDeleted,
	} {
		var count int64
		err := gs.db.Unscoped().Model(&models.Property{}).
			Where("status = ?", status).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, nil
}
