package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/project/url-shortener-be/internal/database"
	"github.com/project/url-shortener-be/internal/models"
)

type urlRecord struct {
	ID          int64      `db:"id"`
	ShortCode   string     `db:"short_code"`
	OriginalURL string     `db:"original_url"`
	ClickCount  int64      `db:"click_count"`
	IsActive    bool       `db:"is_active"`
	ExpiresAt   *time.Time `db:"expires_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	return &models.URL{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		ClickCount:  r.ClickCount,
		IsActive:    r.IsActive,
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// URLRepository persists shortened URLs in the urls table. The unique
// constraint on short_code is the authoritative uniqueness guard; callers
// may run existence checks first, but only as an early fail.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

func (r *URLRepository) Create(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, original_url, expires_at)
		VALUES ($1, $2, $3)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode, originalURL, expiresAt)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetByID(ctx context.Context, id int64) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByID"

	rec := new(urlRecord)
	query := `SELECT * FROM urls
		WHERE id = $1`

	err := r.db.GetContext(ctx, rec, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	query := `SELECT * FROM urls
		WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetActiveByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetActiveByShortCode"

	rec := new(urlRecord)
	query := `SELECT * FROM urls
		WHERE short_code = $1 AND is_active`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) ListActive(ctx context.Context) ([]models.URL, error) {
	const op = "database.postgres.URLRepository.ListActive"

	var recs []urlRecord
	query := `SELECT * FROM urls
		WHERE is_active
		ORDER BY id`

	err := r.db.SelectContext(ctx, &recs, query)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list url records: %w", op, err)
	}

	urls := make([]models.URL, 0, len(recs))
	for _, rec := range recs {
		urls = append(urls, *rec.ToURL())
	}

	return urls, nil
}

func (r *URLRepository) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	const op = "database.postgres.URLRepository.ExistsByShortCode"

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM urls WHERE short_code = $1)`

	err := r.db.GetContext(ctx, &exists, query, shortCode)
	if err != nil {
		return false, fmt.Errorf("%s: failed to check url record existence: %w", op, err)
	}

	return exists, nil
}

func (r *URLRepository) Update(ctx context.Context, id int64, shortCode, originalURL string, expiresAt *time.Time) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Update"

	rec := new(urlRecord)
	query := `UPDATE urls
		SET short_code = $1, original_url = $2, expires_at = $3, updated_at = now()
		WHERE id = $4
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode, originalURL, expiresAt, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to update url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) Delete(ctx context.Context, id int64) error {
	const op = "database.postgres.URLRepository.Delete"

	query := `DELETE FROM urls
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: failed to delete url record: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return nil
}

// IncrementClicks bumps click_count by one in a single statement.
// A missing short code is not an error.
func (r *URLRepository) IncrementClicks(ctx context.Context, shortCode string) error {
	const op = "database.postgres.URLRepository.IncrementClicks"

	query := `UPDATE urls
		SET click_count = click_count + 1, updated_at = now()
		WHERE short_code = $1`

	_, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to increment click count: %w", op, err)
	}

	return nil
}

// DeactivateExpired flips is_active to false for every record whose expiry
// timestamp is in the past, returning the number of deactivated records.
func (r *URLRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "database.postgres.URLRepository.DeactivateExpired"

	query := `UPDATE urls
		SET is_active = FALSE, updated_at = now()
		WHERE is_active AND expires_at IS NOT NULL AND expires_at < $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to deactivate expired url records: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	return rowsAffected, nil
}
