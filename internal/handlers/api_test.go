package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"property-portal/internal/database"
	"property-portal/internal/ratelimit"
	"property-portal/internal/service"
)

func newTestService(t *testing.T) *service.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}

	store := database.NewGormStoreFromDB(db)
	if err := store.InitSchema(); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return service.NewService(store, nil)
}

func newAPIRouter(t *testing.T, svc *service.Service, limiter *ratelimit.WriteLimiter) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewAPIHandler(svc, nil, limiter, 3)
	handler.RegisterRoutes(r.Group("/api"))
	return r
}

func defaultLimiter() *ratelimit.WriteLimiter {
	return ratelimit.NewWriteLimiter(100, 1000, true)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func createViaAPI(t *testing.T, r *gin.Engine, payload map[string]interface{}) uint64 {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/properties/create", payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	return uint64(body["id"].(float64))
}

func TestAPITest(t *testing.T) {
	r := newAPIRouter(t, newTestService(t), defaultLimiter())

	w := doJSON(t, r, http.MethodGet, "/api/test", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["message"] != "API is working" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestAPICreateProperty(t *testing.T) {
	r := newAPIRouter(t, newTestService(t), defaultLimiter())

	t.Run("creates with numeric price and status", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/properties/create", map[string]interface{}{
			"title":    "Lake House",
			"price":    450000.00,
			"location": "Austin",
			"status":   true,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		body := decodeBody(t, w)
		if body["title"] != "Lake House" || body["status"] != "active" {
			t.Errorf("unexpected body: %v", body)
		}
	})

	t.Run("accepts string price and 0/1 status", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/properties/create", map[string]interface{}{
			"title":  "Loose Types",
			"price":  "199.99",
			"status": 0,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		if body := decodeBody(t, w); body["status"] != "inactive" {
			t.Errorf("expected inactive status, got %v", body["status"])
		}
	})

	t.Run("missing title yields 422 with field errors", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/properties/create", map[string]interface{}{
			"price": 100,
		})
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", w.Code)
		}
		body := decodeBody(t, w)
		if body["message"] != "The given data was invalid." {
			t.Errorf("unexpected message: %v", body["message"])
		}
		fieldErrors := body["errors"].(map[string]interface{})
		if _, ok := fieldErrors["title"]; !ok {
			t.Errorf("expected title error, got %v", fieldErrors)
		}
	})

	t.Run("unparsable status yields 422", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/properties/create", map[string]interface{}{
			"title":  "Bad Status",
			"price":  100,
			"status": "maybe",
		})
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", w.Code)
		}
	})

	t.Run("absent status defaults to active", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/properties/create", map[string]interface{}{
			"title": "Implicit",
			"price": 100,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", w.Code)
		}
		if body := decodeBody(t, w); body["status"] != "active" {
			t.Errorf("expected active, got %v", body["status"])
		}
	})
}

func TestAPIListProperties(t *testing.T) {
	r := newAPIRouter(t, newTestService(t), defaultLimiter())

	for i := 1; i <= 4; i++ {
		createViaAPI(t, r, map[string]interface{}{
			"title":    fmt.Sprintf("Property %d", i),
			"price":    100 * i,
			"location": "Austin",
		})
	}

	t.Run("pagination envelope", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/properties", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := decodeBody(t, w)
		if body["total"] != float64(4) {
			t.Errorf("expected total 4, got %v", body["total"])
		}
		if body["current_page"] != float64(1) || body["per_page"] != float64(3) {
			t.Errorf("unexpected envelope: %v", body)
		}
		if data := body["data"].([]interface{}); len(data) != 3 {
			t.Errorf("expected 3 items on page 1, got %d", len(data))
		}
	})

	t.Run("second page", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/properties?page=2", nil)
		body := decodeBody(t, w)
		if data := body["data"].([]interface{}); len(data) != 1 {
			t.Errorf("expected 1 item on page 2, got %d", len(data))
		}
	})

	t.Run("search filters the set", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/properties?search=Property+2", nil)
		body := decodeBody(t, w)
		if body["total"] != float64(1) {
			t.Errorf("expected 1 match, got %v", body["total"])
		}
	})
}

func TestAPIShowProperty(t *testing.T) {
	r := newAPIRouter(t, newTestService(t), defaultLimiter())
	id := createViaAPI(t, r, map[string]interface{}{"title": "Visible", "price": 100})

	t.Run("found", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/properties/%d", id), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/properties/99999", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
		if body := decodeBody(t, w); body["error"] != "Property not found" {
			t.Errorf("unexpected body: %v", body)
		}
	})

	t.Run("non-numeric id", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/properties/abc", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}

func TestAPIUpdateProperty(t *testing.T) {
	r := newAPIRouter(t, newTestService(t), defaultLimiter())
	id := createViaAPI(t, r, map[string]interface{}{
		"title":       "Before",
		"description": "old text",
		"price":       100,
	})

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/properties/update/%d", id), map[string]interface{}{
		"title": "After",
		"price": 200,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["title"] != "After" {
		t.Errorf("expected updated title, got %v", body["title"])
	}
	if body["description"] != "" {
		t.Errorf("expected omitted description cleared, got %v", body["description"])
	}

	t.Run("history records the changes", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/properties/%d/history", id), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := decodeBody(t, w)
		if body["count"].(float64) < 2 {
			t.Errorf("expected at least 2 change rows, got %v", body["count"])
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/properties/update/99999", map[string]interface{}{
			"title": "Ghost",
			"price": 1,
		})
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}

func TestAPIDeleteProperty(t *testing.T) {
	r := newAPIRouter(t, newTestService(t), defaultLimiter())
	id := createViaAPI(t, r, map[string]interface{}{"title": "Doomed", "price": 100})

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/properties/delete/%d", id), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["message"] != "Property deleted successfully" {
		t.Errorf("unexpected message: %v", body["message"])
	}
	if body["status"] != "deleted" {
		t.Errorf("expected deleted status, got %v", body["status"])
	}
	if body["deleted_at"] == nil {
		t.Error("expected deleted_at in response")
	}

	t.Run("deleted property reads as 404", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/properties/%d", id), nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("repeat delete reads as 404", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/properties/delete/%d", id), nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("delete log available via admin route", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/admin/delete-logs", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := decodeBody(t, w)
		if body["count"] != float64(1) {
			t.Errorf("expected 1 log entry, got %v", body["count"])
		}
	})
}

func TestAPIAdminStats(t *testing.T) {
	r := newAPIRouter(t, newTestService(t), defaultLimiter())

	createViaAPI(t, r, map[string]interface{}{"title": "Active One", "price": 100})
	createViaAPI(t, r, map[string]interface{}{"title": "Inactive One", "price": 100, "status": false})
	id := createViaAPI(t, r, map[string]interface{}{"title": "Deleted One", "price": 100})
	doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/properties/delete/%d", id), nil)

	w := doJSON(t, r, http.MethodGet, "/api/admin/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	counts := body["properties"].(map[string]interface{})
	if counts["active"] != float64(1) || counts["inactive"] != float64(1) || counts["deleted"] != float64(1) {
		t.Errorf("unexpected counts: %v", counts)
	}
	if counts["total"] != float64(3) {
		t.Errorf("expected total 3, got %v", counts["total"])
	}
}

func TestAPIRateLimit(t *testing.T) {
	limiter := ratelimit.NewWriteLimiter(1, 100, true)
	r := newAPIRouter(t, newTestService(t), limiter)

	first := doJSON(t, r, http.MethodPost, "/api/properties/create", map[string]interface{}{
		"title": "First", "price": 100,
	})
	if first.Code != http.StatusCreated {
		t.Fatalf("expected first write to pass, got %d", first.Code)
	}

	second := doJSON(t, r, http.MethodPost, "/api/properties/create", map[string]interface{}{
		"title": "Second", "price": 100,
	})
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}

	t.Run("reads are not limited", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/properties", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}

func TestAPISearchFallback(t *testing.T) {
	r := newAPIRouter(t, newTestService(t), defaultLimiter())
	createViaAPI(t, r, map[string]interface{}{"title": "Lake House", "price": 100, "location": "Austin"})
	createViaAPI(t, r, map[string]interface{}{"title": "Beach Villa", "price": 100, "location": "Miami"})

	w := doJSON(t, r, http.MethodGet, "/api/search?q=Austin", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var items []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(items) != 1 || items[0]["title"] != "Lake House" {
		t.Errorf("unexpected search result: %v", items)
	}
}

func TestAPIReindexUnavailable(t *testing.T) {
	r := newAPIRouter(t, newTestService(t), defaultLimiter())

	w := doJSON(t, r, http.MethodPost, "/api/search/reindex", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when no index configured, got %d", w.Code)
	}
}
