package handlers

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"property-portal/internal/database"
	"property-portal/internal/models"
	"property-portal/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded HTML templates for the web surface
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// WebHandler serves the server-rendered HTML surface
type WebHandler struct {
	svc     *service.Service
	perPage int
}

// NewWebHandler creates a new web handler
func NewWebHandler(svc *service.Service, perPage int) *WebHandler {
	return &WebHandler{
		svc:     svc,
		perPage: perPage,
	}
}

// RegisterRoutes registers all web routes
func (h *WebHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/properties")
	})

	r.GET("/properties", h.index)
	r.GET("/properties/create", h.createForm)
	r.POST("/properties/store", h.store)
	r.GET("/properties/edit/:id", h.editForm)
	r.POST("/properties/update/:id", h.update)
	r.DELETE("/properties/delete/:id", h.destroy)
}

// index renders the listing page with search and pagination, page size 10
func (h *WebHandler) index(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	searchTerm := c.Query("search")

	result, err := h.svc.List(database.ListParams{
		Search:  searchTerm,
		Page:    page,
		PerPage: h.perPage,
	})
	if err != nil {
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	totalPages := int((result.Total + int64(result.PerPage) - 1) / int64(result.PerPage))
	pages := make([]int, 0, totalPages)
	for p := 1; p <= totalPages; p++ {
		pages = append(pages, p)
	}

	session := sessions.Default(c)
	flashes := session.Flashes()
	_ = session.Save()

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Properties": result.Items,
		"Search":     searchTerm,
		"Page":       result.Page,
		"TotalPages": totalPages,
		"Pages":      pages,
		"Total":      result.Total,
		"Flashes":    flashes,
	})
}

// createForm renders the empty create form
func (h *WebHandler) createForm(c *gin.Context) {
	c.HTML(http.StatusOK, "create.html", gin.H{
		"Form":   map[string]string{},
		"Errors": map[string][]string{},
	})
}

// propertyForm holds the raw form values of the create/edit pages
type propertyForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	Price       string `form:"price"`
	Location    string `form:"location"`
	Status      string `form:"status"`
}

// store creates a property from the submitted form and redirects to the
// listing with a flash message; on validation failure it re-renders the
// form with inline errors and the previous input
func (h *WebHandler) store(c *gin.Context) {
	var form propertyForm
	if err := c.ShouldBind(&form); err != nil {
		c.String(http.StatusBadRequest, "Bad request")
		return
	}

	_, err := h.svc.Create(form.toInput(), actorFromSession(c))
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			c.HTML(http.StatusUnprocessableEntity, "create.html", gin.H{
				"Form":   form.values(),
				"Errors": verr.Errors,
			})
			return
		}
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	h.redirectWithFlash(c, "Property added successfully.")
}

// editForm renders the edit form pre-filled with the current row
func (h *WebHandler) editForm(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.String(http.StatusNotFound, "Property not found")
		return
	}

	property, err := h.svc.Get(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.String(http.StatusNotFound, "Property not found")
			return
		}
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	c.HTML(http.StatusOK, "edit.html", gin.H{
		"ID":     property.ID,
		"Form":   formFromProperty(property),
		"Errors": map[string][]string{},
	})
}

func (h *WebHandler) update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.String(http.StatusNotFound, "Property not found")
		return
	}

	var form propertyForm
	if err := c.ShouldBind(&form); err != nil {
		c.String(http.StatusBadRequest, "Bad request")
		return
	}

	_, err := h.svc.Update(id, form.toInput(), actorFromSession(c))
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			c.HTML(http.StatusUnprocessableEntity, "edit.html", gin.H{
				"ID":     id,
				"Form":   form.values(),
				"Errors": verr.Errors,
			})
		case errors.Is(err, database.ErrNotFound):
			c.String(http.StatusNotFound, "Property not found")
		default:
			c.String(http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.redirectWithFlash(c, "Property updated successfully.")
}

func (h *WebHandler) destroy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.String(http.StatusNotFound, "Property not found")
		return
	}

	_, err := h.svc.SoftDelete(id, actorFromSession(c))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.String(http.StatusNotFound, "Property not found")
			return
		}
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	h.redirectWithFlash(c, "Property deleted successfully.")
}

func (h *WebHandler) redirectWithFlash(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	_ = session.Save()
	c.Redirect(http.StatusFound, "/properties")
}

// toInput converts form values to a service input. Status is required on
// the web surface.
func (f propertyForm) toInput() service.Input {
	var status *bool
	if f.Status != "" {
		if b, err := strconv.ParseBool(f.Status); err == nil {
			status = &b
		}
	}

	return service.Input{
		Title:          f.Title,
		Description:    f.Description,
		Price:          f.Price,
		Location:       f.Location,
		Status:         status,
		StatusRequired: true,
	}
}

func (f propertyForm) values() map[string]string {
	return map[string]string{
		"Title":       f.Title,
		"Description": f.Description,
		"Price":       f.Price,
		"Location":    f.Location,
		"Status":      f.Status,
	}
}

func formFromProperty(p *models.Property) map[string]string {
	status := "0"
	if p.Status.Bool() {
		status = "1"
	}
	return map[string]string{
		"Title":       p.Title,
		"Description": p.Description,
		"Price":       fmt.Sprintf("%.2f", p.Price),
		"Location":    p.Location,
		"Status":      status,
	}
}

// actorFromSession reads the acting identity from the session when an
// upstream login layer has set one. The API surface never stamps an actor.
func actorFromSession(c *gin.Context) *uint64 {
	switch id := sessions.Default(c).Get("user_id").(type) {
	case uint64:
		return &id
	case int64:
		if id >= 0 {
			actor := uint64(id)
			return &actor
		}
	case int:
		if id >= 0 {
			actor := uint64(id)
			return &actor
		}
	}
	return nil
}
