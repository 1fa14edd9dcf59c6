package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"property-portal/internal/models"
)

type PostgresStore struct {
	conn *sql.DB
}

func NewPostgresStore(host, port, user, password, dbname, sslmode string) (*PostgresStore, error) {
	if sslmode == "" {
		sslmode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return &PostgresStore{conn: conn}, nil
}

func (ps *PostgresStore) Close() error {
	return ps.conn.Close()
}

// InitSchema creates the tables if they don't exist
func (ps *PostgresStore) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS properties (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT,
		price DECIMAL(12, 2) NOT NULL DEFAULT 0,
		location VARCHAR(255),
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_by BIGINT,
		updated_by BIGINT,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS property_changes (
		id BIGSERIAL PRIMARY KEY,
		property_id BIGINT NOT NULL,
		field VARCHAR(50) NOT NULL,
		old_value TEXT,
		new_value TEXT,
		changed_by BIGINT,
		changed_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS delete_logs (
		id BIGSERIAL PRIMARY KEY,
		property_id BIGINT NOT NULL,
		title VARCHAR(255),
		deleted_by BIGINT,
		recorded_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_properties_status ON properties(status);
	CREATE INDEX IF NOT EXISTS idx_properties_deleted_at ON properties(deleted_at);
	CREATE INDEX IF NOT EXISTS idx_property_changes_property_id ON property_changes(property_id);
	`
	_, err := ps.conn.Exec(query)
	return err
}

const propertyColumns = `id, title, description, price, location, status,
	created_by, updated_by, created_at, updated_at, deleted_at`

// Create persists a new property row
func (ps *PostgresStore) Create(p *models.Property) error {
	if p.Status == "" {
		p.Status = models.PropertyStatusActive
	}
	query := `
		INSERT INTO properties (title, description, price, location, status, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	return ps.conn.QueryRow(query,
		p.Title, p.Description, p.Price, p.Location, p.Status,
		nullableID(p.CreatedBy), nullableID(p.UpdatedBy),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// FindByID retrieves a live property by ID
func (ps *PostgresStore) FindByID(id uint64) (*models.Property, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM properties
		WHERE id = $1 AND deleted_at IS NULL
	`, propertyColumns)

	p, err := scanProperty(ps.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Update saves the full row and the per-field change history in one transaction
func (ps *PostgresStore) Update(p *models.Property, changes []models.PropertyChange) error {
	tx, err := ps.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE properties
		SET title = $1, description = $2, price = $3, location = $4,
			status = $5, updated_by = $6, updated_at = NOW()
		WHERE id = $7 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err = tx.QueryRow(query,
		p.Title, p.Description, p.Price, p.Location, p.Status,
		nullableID(p.UpdatedBy), p.ID,
	).Scan(&p.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	for _, change := range changes {
		_, err = tx.Exec(`
			INSERT INTO property_changes (property_id, field, old_value, new_value, changed_by)
			VALUES ($1, $2, $3, $4, $5)
		`, change.PropertyID, change.Field, change.OldValue, change.NewValue, nullableID(change.ChangedBy))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SoftDelete flips status to 'deleted', stamps deleted_at, and writes the
// audit row. A row that is already soft-deleted reads as ErrNotFound.
func (ps *PostgresStore) SoftDelete(id uint64, actor *uint64) (*models.Property, error) {
	tx, err := ps.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		UPDATE properties
		SET status = 'deleted', deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING %s
	`, propertyColumns)

	p, err := scanProperty(tx.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		INSERT INTO delete_logs (property_id, title, deleted_by)
		VALUES ($1, $2, $3)
	`, p.ID, p.Title, nullableID(actor))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns one page of live properties ordered by id ascending
func (ps *PostgresStore) List(params ListParams) (*ListResult, error) {
	normalizePage(&params)

	where, args := ps.searchClause(params)

	var total int64
	countQuery := "SELECT COUNT(*) FROM properties " + where
	if err := ps.conn.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	offset := (params.Page - 1) * params.PerPage
	listQuery := fmt.Sprintf(`
		SELECT %s FROM properties %s
		ORDER BY id ASC
		LIMIT $%d OFFSET $%d
	`, propertyColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.PerPage, offset)

	rows, err := ps.conn.Query(listQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.Property, 0, params.PerPage)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &ListResult{
		Items:   items,
		Total:   total,
		Page:    params.Page,
		PerPage: params.PerPage,
	}, nil
}

// searchClause builds the WHERE clause for List: live rows only, then exact
// id match OR case-insensitive substring match across the searchable columns.
func (ps *PostgresStore) searchClause(params ListParams) (string, []interface{}) {
	search := strings.TrimSpace(params.Search)
	if search == "" {
		return "WHERE deleted_at IS NULL", nil
	}

	like := "%" + search + "%"
	args := []interface{}{like}
	conds := []string{
		"title ILIKE $1",
		"price::text ILIKE $1",
		"location ILIKE $1",
	}
	if params.SearchDescription {
		conds = append(conds, "description ILIKE $1")
	}
	if id, err := strconv.ParseUint(search, 10, 64); err == nil {
		args = append(args, id)
		conds = append(conds, fmt.Sprintf("id = $%d", len(args)))
	}

	where := "WHERE deleted_at IS NULL AND (" + strings.Join(conds, " OR ") + ")"
	return where, args
}

// AllLive retrieves all live properties (used by the search reindex)
func (ps *PostgresStore) AllLive() ([]models.Property, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM properties
		WHERE deleted_at IS NULL
		ORDER BY id ASC
	`, propertyColumns)

	rows, err := ps.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, *p)
	}
	return properties, rows.Err()
}

// Changes returns the recorded field changes for a property, newest first
func (ps *PostgresStore) Changes(propertyID uint64, limit int) ([]models.PropertyChange, error) {
	rows, err := ps.conn.Query(`
		SELECT id, property_id, field, old_value, new_value, changed_by, changed_at
		FROM property_changes
		WHERE property_id = $1
		ORDER BY changed_at DESC
		LIMIT $2
	`, propertyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []models.PropertyChange
	for rows.Next() {
		var change models.PropertyChange
		var changedBy sql.NullInt64
		err := rows.Scan(&change.ID, &change.PropertyID, &change.Field,
			&change.OldValue, &change.NewValue, &changedBy, &change.ChangedAt)
		if err != nil {
			return nil, err
		}
		change.ChangedBy = fromNullable(changedBy)
		changes = append(changes, change)
	}
	return changes, rows.Err()
}

// DeleteLogs returns recent soft-delete audit entries, newest first
func (ps *PostgresStore) DeleteLogs(limit int) ([]models.DeleteLog, error) {
	rows, err := ps.conn.Query(`
		SELECT id, property_id, title, deleted_by, recorded_at
		FROM delete_logs
		ORDER BY recorded_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.DeleteLog
	for rows.Next() {
		var entry models.DeleteLog
		var deletedBy sql.NullInt64
		err := rows.Scan(&entry.ID, &entry.PropertyID, &entry.Title, &deletedBy, &entry.RecordedAt)
		if err != nil {
			return nil, err
		}
		entry.DeletedBy = fromNullable(deletedBy)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// CountByStatus returns property counts per status, soft-deleted rows included
func (ps *PostgresStore) CountByStatus() (map[models.PropertyStatus]int64, error) {
	rows, err := ps.conn.Query(`SELECT status, COUNT(*) FROM properties GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[models.PropertyStatus]int64{
		models.PropertyStatusActive:   0,
		models.PropertyStatusInactive: 0,
		models.PropertyStatusDeleted:  0,
	}
	for rows.Next() {
		var status models.PropertyStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// scanner matches both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProperty(row scanner) (*models.Property, error) {
	var p models.Property
	var description, location sql.NullString
	var createdBy, updatedBy sql.NullInt64
	err := row.Scan(
		&p.ID, &p.Title, &description, &p.Price, &location, &p.Status,
		&createdBy, &updatedBy, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	p.Location = location.String
	p.CreatedBy = fromNullable(createdBy)
	p.UpdatedBy = fromNullable(updatedBy)
	return &p, nil
}

func nullableID(id *uint64) interface{} {
	if id == nil {
		return nil
	}
	return int64(*id)
}

func fromNullable(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	id := uint64(v.Int64)
	return &id
}
