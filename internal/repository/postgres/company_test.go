package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/domain"
)

func TestCompanyRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	db := sqlx.NewDb(testDB.DB, "postgres")
	repo := NewCompanyRepository(db)
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		testDB.TruncateTables(t)

		company := domain.NewCompany("Acme Corp", "https://acme.example.com")
		err := repo.Create(ctx, company)
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, company.ID)
		require.NoError(t, err)
		assert.Equal(t, company.Name, got.Name)
		assert.Equal(t, company.URL, got.URL)
		assert.Equal(t, domain.DetectionStatusPending, got.DetectionStatus)
		assert.Nil(t, got.DetectionCompletedAt)
	})

	t.Run("Create duplicate URL", func(t *testing.T) {
		testDB.TruncateTables(t)

		first := domain.NewCompany("Acme Corp", "https://acme.example.com")
		require.NoError(t, repo.Create(ctx, first))

		second := domain.NewCompany("Acme Clone", "https://acme.example.com")
		err := repo.Create(ctx, second)
		require.Error(t, err)

		var domainErr *domain.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, domain.ErrCodeConflict, domainErr.Code)
	})

	t.Run("GetByURL", func(t *testing.T) {
		testDB.TruncateTables(t)

		company := domain.NewCompany("Acme Corp", "https://acme.example.com")
		require.NoError(t, repo.Create(ctx, company))

		got, err := repo.GetByURL(ctx, "https://acme.example.com")
		require.NoError(t, err)
		assert.Equal(t, company.ID, got.ID)
	})

	t.Run("GetByID not found", func(t *testing.T) {
		testDB.TruncateTables(t)

		_, err := repo.GetByID(ctx, uuid.New())
		require.Error(t, err)
		assert.True(t, domain.IsSentinelError(err, domain.ErrNotFoundVal))
	})

	t.Run("Update detection lifecycle", func(t *testing.T) {
		testDB.TruncateTables(t)

		company := domain.NewCompany("Acme Corp", "https://acme.example.com")
		require.NoError(t, repo.Create(ctx, company))

		company.StartDetection()
		require.NoError(t, repo.Update(ctx, company))

		got, err := repo.GetByID(ctx, company.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DetectionStatusInProgress, got.DetectionStatus)

		company.CompleteDetection(3)
		require.NoError(t, repo.Update(ctx, company))

		got, err = repo.GetByID(ctx, company.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DetectionStatusCompleted, got.DetectionStatus)
		assert.Equal(t, 3, got.DetectedFormsCount)
		require.NotNil(t, got.DetectionCompletedAt)
	})

	t.Run("Update failed detection keeps reason", func(t *testing.T) {
		testDB.TruncateTables(t)

		company := domain.NewCompany("Acme Corp", "https://acme.example.com")
		require.NoError(t, repo.Create(ctx, company))

		company.FailDetection("compliance blocked https://acme.example.com")
		require.NoError(t, repo.Update(ctx, company))

		got, err := repo.GetByID(ctx, company.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DetectionStatusError, got.DetectionStatus)
		assert.Contains(t, got.DetectionError, "compliance blocked")
	})

	t.Run("ListByStatus", func(t *testing.T) {
		testDB.TruncateTables(t)

		pending := domain.NewCompany("Pending Co", "https://pending.example.com")
		require.NoError(t, repo.Create(ctx, pending))

		done := domain.NewCompany("Done Co", "https://done.example.com")
		done.CompleteDetection(1)
		require.NoError(t, repo.Create(ctx, done))

		got, err := repo.ListByStatus(ctx, domain.DetectionStatusPending)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, pending.ID, got[0].ID)
	})

	t.Run("Delete", func(t *testing.T) {
		testDB.TruncateTables(t)

		company := domain.NewCompany("Acme Corp", "https://acme.example.com")
		require.NoError(t, repo.Create(ctx, company))

		require.NoError(t, repo.Delete(ctx, company.ID))

		_, err := repo.GetByID(ctx, company.ID)
		require.Error(t, err)
	})
}
