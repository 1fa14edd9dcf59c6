package database

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"property-portal/internal/models"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}

	store := NewGormStoreFromDB(db)
	if err := store.InitSchema(); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return store
}

func seedProperty(t *testing.T, store *GormStore, title, location string, price float64) *models.Property {
	t.Helper()

	p := &models.Property{
		Title:    title,
		Location: location,
		Price:    price,
		Status:   models.PropertyStatusActive,
	}
	if err := store.Create(p); err != nil {
		t.Fatalf("failed to seed property %q: %v", title, err)
	}
	return p
}

func TestGormStoreCreateAndFind(t *testing.T) {
	store := newTestStore(t)

	t.Run("create defaults status to active", func(t *testing.T) {
		p := &models.Property{Title: "Lake House", Price: 450000.00}
		if err := store.Create(p); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if p.ID == 0 {
			t.Error("expected auto-assigned ID")
		}
		if p.Status != models.PropertyStatusActive {
			t.Errorf("expected status active, got %q", p.Status)
		}
	})

	t.Run("find returns the stored row", func(t *testing.T) {
		p := seedProperty(t, store, "Downtown Loft", "Austin", 325000.50)

		found, err := store.FindByID(p.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if found.Title != "Downtown Loft" || found.Location != "Austin" {
			t.Errorf("unexpected row: %+v", found)
		}
		if found.Price != 325000.50 {
			t.Errorf("expected price 325000.50, got %v", found.Price)
		}
	})

	t.Run("missing id returns ErrNotFound", func(t *testing.T) {
		if _, err := store.FindByID(99999); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestGormStoreUpdate(t *testing.T) {
	store := newTestStore(t)
	p := seedProperty(t, store, "Old Title", "Austin", 100000)

	p.Title = "New Title"
	p.Price = 120000
	changes := []models.PropertyChange{
		{PropertyID: p.ID, Field: "title", OldValue: "Old Title", NewValue: "New Title"},
		{PropertyID: p.ID, Field: "price", OldValue: "100000.00", NewValue: "120000.00"},
	}
	if err := store.Update(p, changes); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	found, err := store.FindByID(p.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.Title != "New Title" {
		t.Errorf("expected updated title, got %q", found.Title)
	}

	recorded, err := store.Changes(p.ID, 10)
	if err != nil {
		t.Fatalf("Changes failed: %v", err)
	}
	if len(recorded) != 2 {
		t.Fatalf("expected 2 change rows, got %d", len(recorded))
	}
	for _, change := range recorded {
		if change.PropertyID != p.ID {
			t.Errorf("change row bound to wrong property: %+v", change)
		}
	}
}

func TestGormStoreSoftDelete(t *testing.T) {
	store := newTestStore(t)
	actor := uint64(7)
	p := seedProperty(t, store, "Condemned Bungalow", "Reno", 50000)

	deleted, err := store.SoftDelete(p.ID, &actor)
	if err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if deleted.Status != models.PropertyStatusDeleted {
		t.Errorf("expected status deleted, got %q", deleted.Status)
	}
	if !deleted.DeletedAt.Valid {
		t.Error("expected deleted_at to be stamped")
	}

	t.Run("deleted row is no longer findable", func(t *testing.T) {
		if _, err := store.FindByID(p.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("second delete reports not found", func(t *testing.T) {
		if _, err := store.SoftDelete(p.ID, nil); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("audit entry recorded", func(t *testing.T) {
		logs, err := store.DeleteLogs(10)
		if err != nil {
			t.Fatalf("DeleteLogs failed: %v", err)
		}
		if len(logs) != 1 {
			t.Fatalf("expected 1 delete log, got %d", len(logs))
		}
		if logs[0].PropertyID != p.ID || logs[0].Title != "Condemned Bungalow" {
			t.Errorf("unexpected delete log: %+v", logs[0])
		}
		if logs[0].DeletedBy == nil || *logs[0].DeletedBy != actor {
			t.Errorf("expected deleted_by %d, got %v", actor, logs[0].DeletedBy)
		}
	})

	t.Run("status counts include the deleted row", func(t *testing.T) {
		counts, err := store.CountByStatus()
		if err != nil {
			t.Fatalf("CountByStatus failed: %v", err)
		}
		if counts[models.PropertyStatusDeleted] != 1 {
			t.Errorf("expected 1 deleted, got %d", counts[models.PropertyStatusDeleted])
		}
	})
}

func TestGormStoreList(t *testing.T) {
	store := newTestStore(t)

	seedProperty(t, store, "Lake House", "Austin", 450000)
	seedProperty(t, store, "Downtown Loft", "Austin", 325000)
	seedProperty(t, store, "Beach Villa", "Miami", 890000)
	seedProperty(t, store, "Mountain Cabin", "Denver", 275000)
	hidden := seedProperty(t, store, "Gone Home", "Austin", 100000)
	if _, err := store.SoftDelete(hidden.ID, nil); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	t.Run("pagination", func(t *testing.T) {
		result, err := store.List(ListParams{Page: 1, PerPage: 3})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Total != 4 {
			t.Errorf("expected total 4 live rows, got %d", result.Total)
		}
		if len(result.Items) != 3 {
			t.Errorf("expected 3 items on page 1, got %d", len(result.Items))
		}

		result, err = store.List(ListParams{Page: 2, PerPage: 3})
		if err != nil {
			t.Fatalf("List page 2 failed: %v", err)
		}
		if len(result.Items) != 1 {
			t.Errorf("expected 1 item on page 2, got %d", len(result.Items))
		}
	})

	t.Run("out-of-range page is empty", func(t *testing.T) {
		result, err := store.List(ListParams{Page: 10, PerPage: 3})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(result.Items) != 0 {
			t.Errorf("expected empty page, got %d items", len(result.Items))
		}
		if result.Total != 4 {
			t.Errorf("expected total 4, got %d", result.Total)
		}
	})

	t.Run("substring search on location", func(t *testing.T) {
		result, err := store.List(ListParams{Search: "Austin", Page: 1, PerPage: 10})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Total != 2 {
			t.Errorf("expected 2 Austin rows, got %d", result.Total)
		}
	})

	t.Run("exact id search", func(t *testing.T) {
		target := seedProperty(t, store, "Oddball", "Nowhere", 1)
		result, err := store.List(ListParams{Search: fmt.Sprintf("%d", target.ID), Page: 1, PerPage: 10})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		found := false
		for _, item := range result.Items {
			if item.ID == target.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("expected id %d in results", target.ID)
		}
	})

	t.Run("description only searched when requested", func(t *testing.T) {
		p := &models.Property{Title: "Plain", Description: "sunset views", Price: 1, Status: models.PropertyStatusActive}
		if err := store.Create(p); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		webResult, err := store.List(ListParams{Search: "sunset", Page: 1, PerPage: 10})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if webResult.Total != 0 {
			t.Errorf("expected no match without description search, got %d", webResult.Total)
		}

		apiResult, err := store.List(ListParams{Search: "sunset", Page: 1, PerPage: 10, SearchDescription: true})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if apiResult.Total != 1 {
			t.Errorf("expected 1 match with description search, got %d", apiResult.Total)
		}
	})

	t.Run("deleted rows excluded", func(t *testing.T) {
		result, err := store.List(ListParams{Search: "Gone Home", Page: 1, PerPage: 10})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Total != 0 {
			t.Errorf("expected soft-deleted row excluded, got %d", result.Total)
		}
	})
}
