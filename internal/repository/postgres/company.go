package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
)

// CompanyRepository persists detection targets in PostgreSQL
type CompanyRepository struct {
	db *sqlx.DB
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *sqlx.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// companyRow represents the database row structure
type companyRow struct {
	ID                   uuid.UUID  `db:"id"`
	Name                 string     `db:"name"`
	URL                  string     `db:"url"`
	DetectionStatus      string     `db:"detection_status"`
	DetectionError       string     `db:"detection_error"`
	DetectedFormsCount   int        `db:"detected_forms_count"`
	DetectionCompletedAt *time.Time `db:"detection_completed_at"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

func (r *companyRow) toDomain() *domain.Company {
	return &domain.Company{
		ID:                   r.ID,
		Name:                 r.Name,
		URL:                  r.URL,
		DetectionStatus:      domain.DetectionStatus(r.DetectionStatus),
		DetectionError:       r.DetectionError,
		DetectedFormsCount:   r.DetectedFormsCount,
		DetectionCompletedAt: r.DetectionCompletedAt,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

// Create inserts a new company
func (r *CompanyRepository) Create(ctx context.Context, c *domain.Company) error {
	query := `
		INSERT INTO companies (
			id, name, url, detection_status, detection_error,
			detected_forms_count, detection_completed_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.Name,
		c.URL,
		string(c.DetectionStatus),
		c.DetectionError,
		c.DetectedFormsCount,
		c.DetectionCompletedAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.AlreadyExistsError("company", "url", c.URL)
		}
		return err
	}

	return nil
}

// GetByID retrieves a company by ID
func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	query := `
		SELECT id, name, url, detection_status, detection_error,
		       detected_forms_count, detection_completed_at, created_at, updated_at
		FROM companies
		WHERE id = $1
	`

	var row companyRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("company", id)
		}
		return nil, err
	}

	return row.toDomain(), nil
}

// GetByURL retrieves a company by its site URL
func (r *CompanyRepository) GetByURL(ctx context.Context, url string) (*domain.Company, error) {
	query := `
		SELECT id, name, url, detection_status, detection_error,
		       detected_forms_count, detection_completed_at, created_at, updated_at
		FROM companies
		WHERE url = $1
	`

	var row companyRow
	if err := r.db.GetContext(ctx, &row, query, url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("company", url)
		}
		return nil, err
	}

	return row.toDomain(), nil
}

// Update updates an existing company
func (r *CompanyRepository) Update(ctx context.Context, c *domain.Company) error {
	query := `
		UPDATE companies
		SET name = $2, url = $3, detection_status = $4, detection_error = $5,
		    detected_forms_count = $6, detection_completed_at = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.Name,
		c.URL,
		string(c.DetectionStatus),
		c.DetectionError,
		c.DetectedFormsCount,
		c.DetectionCompletedAt,
		time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.AlreadyExistsError("company", "url", c.URL)
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NotFoundError("company", c.ID)
	}

	return nil
}

// List retrieves companies ordered by creation time
func (r *CompanyRepository) List(ctx context.Context, limit, offset int) ([]*domain.Company, error) {
	query := `
		SELECT id, name, url, detection_status, detection_error,
		       detected_forms_count, detection_completed_at, created_at, updated_at
		FROM companies
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var rows []companyRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, err
	}

	companies := make([]*domain.Company, len(rows))
	for i, row := range rows {
		companies[i] = row.toDomain()
	}

	return companies, nil
}

// ListByStatus retrieves companies in a given detection state
func (r *CompanyRepository) ListByStatus(ctx context.Context, status domain.DetectionStatus) ([]*domain.Company, error) {
	query := `
		SELECT id, name, url, detection_status, detection_error,
		       detected_forms_count, detection_completed_at, created_at, updated_at
		FROM companies
		WHERE detection_status = $1
		ORDER BY created_at
	`

	var rows []companyRow
	if err := r.db.SelectContext(ctx, &rows, query, string(status)); err != nil {
		return nil, err
	}

	companies := make([]*domain.Company, len(rows))
	for i, row := range rows {
		companies[i] = row.toDomain()
	}

	return companies, nil
}

// Delete removes a company and, via cascading constraints, its forms and
// submissions
func (r *CompanyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NotFoundError("company", id)
	}

	return nil
}
