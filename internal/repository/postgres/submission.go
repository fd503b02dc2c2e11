package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
)

// SubmissionRepository persists submission attempt records
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// submissionRow represents the database row structure
type submissionRow struct {
	ID            uuid.UUID `db:"id"`
	CompanyID     uuid.UUID `db:"company_id"`
	FormID        uuid.UUID `db:"form_id"`
	TemplateID    uuid.UUID `db:"template_id"`
	Status        string    `db:"status"`
	SubmittedData []byte    `db:"submitted_data"`
	Response      string    `db:"response"`
	ErrorMessage  string    `db:"error_message"`
	ScreenshotURL string    `db:"screenshot_url"`
	SubmittedAt   time.Time `db:"submitted_at"`
}

func (r *submissionRow) toDomain() (*domain.Submission, error) {
	s := &domain.Submission{
		ID:            r.ID,
		CompanyID:     r.CompanyID,
		FormID:        r.FormID,
		TemplateID:    r.TemplateID,
		Status:        domain.SubmissionStatus(r.Status),
		Response:      r.Response,
		ErrorMessage:  r.ErrorMessage,
		ScreenshotURL: r.ScreenshotURL,
		SubmittedAt:   r.SubmittedAt,
	}

	if r.SubmittedData != nil {
		if err := json.Unmarshal(r.SubmittedData, &s.SubmittedData); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Save inserts a new submission record
func (r *SubmissionRepository) Save(ctx context.Context, s *domain.Submission) error {
	// Default to an empty object for the JSONB column
	data := s.SubmittedData
	if data == nil {
		data = map[string]string{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO submissions (
			id, company_id, form_id, template_id, status,
			submitted_data, response, error_message, screenshot_url, submitted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		s.ID,
		s.CompanyID,
		s.FormID,
		s.TemplateID,
		string(s.Status),
		dataJSON,
		s.Response,
		s.ErrorMessage,
		s.ScreenshotURL,
		s.SubmittedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.NotFoundError("form", s.FormID)
		}
		return err
	}

	return nil
}

// Update updates the outcome of an existing submission
func (r *SubmissionRepository) Update(ctx context.Context, s *domain.Submission) error {
	query := `
		UPDATE submissions
		SET status = $2, response = $3, error_message = $4, screenshot_url = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		s.ID,
		string(s.Status),
		s.Response,
		s.ErrorMessage,
		s.ScreenshotURL,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NotFoundError("submission", s.ID)
	}

	return nil
}

// GetByID retrieves a submission by ID
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	query := `
		SELECT id, company_id, form_id, template_id, status,
		       submitted_data, response, error_message, screenshot_url, submitted_at
		FROM submissions
		WHERE id = $1
	`

	var row submissionRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("submission", id)
		}
		return nil, err
	}

	return row.toDomain()
}

// ListByCompany retrieves submissions for a company, newest first
func (r *SubmissionRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.Submission, error) {
	query := `
		SELECT id, company_id, form_id, template_id, status,
		       submitted_data, response, error_message, screenshot_url, submitted_at
		FROM submissions
		WHERE company_id = $1
		ORDER BY submitted_at DESC
	`

	var rows []submissionRow
	if err := r.db.SelectContext(ctx, &rows, query, companyID); err != nil {
		return nil, err
	}

	submissions := make([]*domain.Submission, len(rows))
	for i, row := range rows {
		s, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		submissions[i] = s
	}

	return submissions, nil
}

// ListByStatus retrieves submissions in a given state
func (r *SubmissionRepository) ListByStatus(ctx context.Context, status domain.SubmissionStatus) ([]*domain.Submission, error) {
	query := `
		SELECT id, company_id, form_id, template_id, status,
		       submitted_data, response, error_message, screenshot_url, submitted_at
		FROM submissions
		WHERE status = $1
		ORDER BY submitted_at DESC
	`

	var rows []submissionRow
	if err := r.db.SelectContext(ctx, &rows, query, string(status)); err != nil {
		return nil, err
	}

	submissions := make([]*domain.Submission, len(rows))
	for i, row := range rows {
		s, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		submissions[i] = s
	}

	return submissions, nil
}
