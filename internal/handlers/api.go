package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"property-portal/internal/database"
	"property-portal/internal/ratelimit"
	"property-portal/internal/search"
	"property-portal/internal/service"
)

// APIHandler serves the JSON surface
type APIHandler struct {
	svc     *service.Service
	search  *search.Client
	limiter *ratelimit.WriteLimiter
	perPage int
}

// NewAPIHandler creates a new API handler. searchClient may be nil when the
// replica index is disabled.
func NewAPIHandler(svc *service.Service, searchClient *search.Client, limiter *ratelimit.WriteLimiter, perPage int) *APIHandler {
	return &APIHandler{
		svc:     svc,
		search:  searchClient,
		limiter: limiter,
		perPage: perPage,
	}
}

// RegisterRoutes registers all JSON API routes
func (h *APIHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/test", h.test)
	api.GET("/health", h.health)

	api.GET("/properties", h.listProperties)
	api.GET("/properties/:id", h.showProperty)
	api.GET("/properties/:id/history", h.propertyHistory)
	api.POST("/properties/create", h.rateLimitMiddleware(), h.createProperty)
	api.POST("/properties/update/:id", h.rateLimitMiddleware(), h.updateProperty)
	api.POST("/properties/delete/:id", h.rateLimitMiddleware(), h.deleteProperty)

	api.GET("/search", h.searchProperties)
	api.POST("/search/reindex", h.reindex)
	api.GET("/ratelimit/stats", h.rateLimitStats)

	admin := api.Group("/admin")
	{
		admin.GET("/stats", h.adminStats)
		admin.GET("/delete-logs", h.deleteLogs)
	}
}

func (h *APIHandler) test(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "API is working"})
}

func (h *APIHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listProperties returns one page of properties with search, page size 3
func (h *APIHandler) listProperties(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	result, err := h.svc.List(database.ListParams{
		Search:            c.Query("search"),
		Page:              page,
		PerPage:           h.perPage,
		SearchDescription: true,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":         result.Items,
		"total":        result.Total,
		"current_page": result.Page,
		"per_page":     result.PerPage,
	})
}

func (h *APIHandler) showProperty(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}

	property, err := h.svc.Get(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, property)
}

// propertyPayload accepts loosely typed JSON input: price may arrive as a
// number or a string, status as a boolean, 0/1, or "true"/"1".
type propertyPayload struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       interface{} `json:"price"`
	Location    string      `json:"location"`
	Status      interface{} `json:"status"`
}

func (h *APIHandler) createProperty(c *gin.Context) {
	input, ok := h.bindInput(c)
	if !ok {
		return
	}

	property, err := h.svc.Create(input, nil)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, property)
}

func (h *APIHandler) updateProperty(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}

	input, ok := h.bindInput(c)
	if !ok {
		return
	}

	property, err := h.svc.Update(id, input, nil)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, property)
}

func (h *APIHandler) deleteProperty(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}

	property, err := h.svc.SoftDelete(id, nil)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Property deleted successfully",
		"status":     property.Status,
		"deleted_at": property.DeletedAt,
	})
}

// propertyHistory returns the recorded field changes for a property
func (h *APIHandler) propertyHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	changes, err := h.svc.Changes(id, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"property_id": id,
		"count":       len(changes),
		"changes":     changes,
	})
}

// searchProperties serves full-text search from the replica index, falling
// back to the relational store when the index is disabled
func (h *APIHandler) searchProperties(c *gin.Context) {
	query := c.Query("q")
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil {
		limit = 20
	}

	if h.search == nil {
		result, err := h.svc.List(database.ListParams{
			Search:            query,
			Page:              1,
			PerPage:           int(limit),
			SearchDescription: true,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result.Items)
		return
	}

	properties, err := h.search.Search(query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, properties)
}

// reindex re-indexes all live properties into the search replica
func (h *APIHandler) reindex(c *gin.Context) {
	log.Println("[Reindex] Starting full reindex of all properties")

	indexed, err := h.svc.Reindex()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	log.Printf("[Reindex] Reindex complete. Indexed: %d", indexed)
	c.JSON(http.StatusOK, gin.H{
		"message": "Reindex complete",
		"indexed": indexed,
	})
}

// rateLimitStats returns current write limiter statistics
func (h *APIHandler) rateLimitStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.limiter.GetStats())
}

// adminStats returns property counts by status
func (h *APIHandler) adminStats(c *gin.Context) {
	counts, err := h.svc.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var total int64
	for _, count := range counts {
		total += count
	}

	c.JSON(http.StatusOK, gin.H{
		"properties": gin.H{
			"active":   counts["active"],
			"inactive": counts["inactive"],
			"deleted":  counts["deleted"],
			"total":    total,
		},
	})
}

// deleteLogs returns recent soft-delete audit entries
func (h *APIHandler) deleteLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	logs, err := h.svc.DeleteLogs(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// bindInput decodes the request body into a service input. Responds and
// returns false on malformed payloads.
func (h *APIHandler) bindInput(c *gin.Context) (service.Input, bool) {
	var payload propertyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return service.Input{}, false
	}

	status, ok := parseStatus(payload.Status)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "The given data was invalid.",
			"errors":  gin.H{"status": []string{"The status field must be true or false."}},
		})
		return service.Input{}, false
	}

	return service.Input{
		Title:       payload.Title,
		Description: payload.Description,
		Price:       priceString(payload.Price),
		Location:    payload.Location,
		Status:      status,
	}, true
}

// writeError translates service errors into JSON responses
func (h *APIHandler) writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "The given data was invalid.",
			"errors":  verr.Errors,
		})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// rateLimitMiddleware enforces the write limiter on mutation routes
func (h *APIHandler) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests. Please try again later.",
				"stats":   h.limiter.GetStats(),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// priceString renders the raw price value for service-side validation
func priceString(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// parseStatus coerces the boolean-like status input. Returns ok=false for
// values that are present but not boolean-like.
func parseStatus(v interface{}) (*bool, bool) {
	switch value := v.(type) {
	case nil:
		return nil, true
	case bool:
		return &value, true
	case float64:
		b := value != 0
		return &b, true
	case string:
		if value == "" {
			return nil, true
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, false
		}
		return &b, true
	default:
		return nil, false
	}
}
