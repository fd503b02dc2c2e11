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

// FormRepository persists detected forms and their field inventories
type FormRepository struct {
	db *sqlx.DB
}

// NewFormRepository creates a new form repository
func NewFormRepository(db *sqlx.DB) *FormRepository {
	return &FormRepository{db: db}
}

// formRow represents the database row structure
type formRow struct {
	ID             uuid.UUID `db:"id"`
	CompanyID      uuid.UUID `db:"company_id"`
	FormURL        string    `db:"form_url"`
	SubmitSelector string    `db:"submit_selector"`
	HasCaptcha     bool      `db:"has_captcha"`
	DetectedAt     time.Time `db:"detected_at"`
}

type formFieldRow struct {
	ID        uuid.UUID `db:"id"`
	FormID    uuid.UUID `db:"form_id"`
	Position  int       `db:"position"`
	Name      string    `db:"name"`
	FieldType string    `db:"field_type"`
	Selector  string    `db:"selector"`
	Label     string    `db:"label"`
	Required  bool      `db:"required"`
	Options   []byte    `db:"options"`
}

func (r *formFieldRow) toDomain() (domain.DetectedField, error) {
	field := domain.DetectedField{
		Name:     r.Name,
		Type:     domain.FieldType(r.FieldType),
		Selector: r.Selector,
		Label:    r.Label,
		Required: r.Required,
	}

	if r.Options != nil {
		if err := json.Unmarshal(r.Options, &field.Options); err != nil {
			return domain.DetectedField{}, err
		}
	}

	return field, nil
}

// Save inserts a form together with its fields. Field order is preserved
// through the position column; filling replays fields in this order.
func (r *FormRepository) Save(ctx context.Context, form *domain.DetectedForm) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	formQuery := `
		INSERT INTO forms (id, company_id, form_url, submit_selector, has_captcha, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = tx.ExecContext(ctx, formQuery,
		form.ID,
		form.CompanyID,
		form.FormURL,
		form.SubmitSelector,
		form.HasCaptcha,
		form.DetectedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.NotFoundError("company", form.CompanyID)
		}
		return err
	}

	fieldQuery := `
		INSERT INTO form_fields (id, form_id, position, name, field_type, selector, label, required, options)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	stmt, err := tx.PreparexContext(ctx, fieldQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, field := range form.Fields {
		// Default options to an empty array for the JSONB column
		options := field.Options
		if options == nil {
			options = []string{}
		}
		optionsJSON, err := json.Marshal(options)
		if err != nil {
			return err
		}

		_, err = stmt.ExecContext(ctx,
			uuid.New(),
			form.ID,
			i,
			field.Name,
			string(field.Type),
			field.Selector,
			field.Label,
			field.Required,
			optionsJSON,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a form with its fields in detection order
func (r *FormRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DetectedForm, error) {
	query := `
		SELECT id, company_id, form_url, submit_selector, has_captcha, detected_at
		FROM forms
		WHERE id = $1
	`

	var row formRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("form", id)
		}
		return nil, err
	}

	fields, err := r.loadFields(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	return &domain.DetectedForm{
		ID:             row.ID,
		CompanyID:      row.CompanyID,
		FormURL:        row.FormURL,
		Fields:         fields,
		SubmitSelector: row.SubmitSelector,
		HasCaptcha:     row.HasCaptcha,
		DetectedAt:     row.DetectedAt,
	}, nil
}

// ListByCompany retrieves all forms detected for a company
func (r *FormRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.DetectedForm, error) {
	query := `
		SELECT id, company_id, form_url, submit_selector, has_captcha, detected_at
		FROM forms
		WHERE company_id = $1
		ORDER BY detected_at
	`

	var rows []formRow
	if err := r.db.SelectContext(ctx, &rows, query, companyID); err != nil {
		return nil, err
	}

	forms := make([]*domain.DetectedForm, len(rows))
	for i, row := range rows {
		fields, err := r.loadFields(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		forms[i] = &domain.DetectedForm{
			ID:             row.ID,
			CompanyID:      row.CompanyID,
			FormURL:        row.FormURL,
			Fields:         fields,
			SubmitSelector: row.SubmitSelector,
			HasCaptcha:     row.HasCaptcha,
			DetectedAt:     row.DetectedAt,
		}
	}

	return forms, nil
}

// Delete removes a form and its fields
func (r *FormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM forms WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NotFoundError("form", id)
	}

	return nil
}

func (r *FormRepository) loadFields(ctx context.Context, formID uuid.UUID) ([]domain.DetectedField, error) {
	query := `
		SELECT id, form_id, position, name, field_type, selector, label, required, options
		FROM form_fields
		WHERE form_id = $1
		ORDER BY position
	`

	var rows []formFieldRow
	if err := r.db.SelectContext(ctx, &rows, query, formID); err != nil {
		return nil, err
	}

	fields := make([]domain.DetectedField, len(rows))
	for i, row := range rows {
		field, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		fields[i] = field
	}

	return fields, nil
}
