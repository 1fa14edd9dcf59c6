package search

import (
	"strconv"

	"github.com/meilisearch/meilisearch-go"

	"property-portal/internal/models"
)

// Client wraps the Meilisearch replica index for properties. The relational
// store stays authoritative; this index only serves the /api/search endpoint.
type Client struct {
	client *meilisearch.Client
	index  string
}

func NewClient(host, apiKey string) *Client {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &Client{
		client: client,
		index:  "properties",
	}
}

// InitIndex initializes the Meilisearch index
func (c *Client) InitIndex() error {
	// Create index if it doesn't exist
	_, err := c.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        c.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	// Configure searchable attributes
	_, err = c.client.Index(c.index).UpdateSearchableAttributes(&[]string{
		"title",
		"description",
		"location",
	})
	if err != nil {
		return err
	}

	// Configure filterable attributes
	_, err = c.client.Index(c.index).UpdateFilterableAttributes(&[]string{
		"id",
		"status",
		"price",
	})
	if err != nil {
		return err
	}

	// Configure sortable attributes
	_, err = c.client.Index(c.index).UpdateSortableAttributes(&[]string{
		"price",
		"created_at",
	})
	return err
}

// IndexProperty indexes a single property
func (c *Client) IndexProperty(property *models.Property) error {
	_, err := c.client.Index(c.index).AddDocuments([]models.Property{*property})
	return err
}

// IndexProperties indexes multiple properties
func (c *Client) IndexProperties(properties []models.Property) error {
	if len(properties) == 0 {
		return nil
	}
	_, err := c.client.Index(c.index).AddDocuments(properties)
	return err
}

// RemoveProperty removes a property document from the index
func (c *Client) RemoveProperty(id uint64) error {
	_, err := c.client.Index(c.index).DeleteDocument(strconv.FormatUint(id, 10))
	return err
}

// Search performs a full-text search over the replica index
func (c *Client) Search(query string, limit int64) ([]models.Property, error) {
	if limit == 0 {
		limit = 20
	}

	searchRes, err := c.client.Index(c.index).Search(query, &meilisearch.SearchRequest{
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	properties := make([]models.Property, 0, len(searchRes.Hits))
	for _, hit := range searchRes.Hits {
		properties = append(properties, parsePropertyFromHit(hit))
	}
	return properties, nil
}

// parsePropertyFromHit converts a search hit to a Property
func parsePropertyFromHit(hit interface{}) models.Property {
	hitMap, ok := hit.(map[string]interface{})
	if !ok {
		return models.Property{}
	}

	property := models.Property{
		Title:       getString(hitMap, "title"),
		Description: getString(hitMap, "description"),
		Location:    getString(hitMap, "location"),
		Status:      models.PropertyStatus(getString(hitMap, "status")),
	}

	if id, ok := hitMap["id"].(float64); ok {
		property.ID = uint64(id)
	}
	if price, ok := hitMap["price"].(float64); ok {
		property.Price = price
	}

	return property
}

// getString safely extracts a string from map
func getString(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}
