package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/project/url-shortener-be/internal/database"
	"github.com/project/url-shortener-be/internal/models"
	"github.com/project/url-shortener-be/internal/shortcode"
)

var (
	// ErrMaxRetriesExceeded is returned when the maximum number of retries for storing
	// an auto-generated short code is exceeded.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")
	// ErrURLExpired is returned when a URL exists but its expiry timestamp is in the past.
	ErrURLExpired = errors.New("url expired")
)

// URLRepository defines the interface for working with URLs at the business logic layer.
type URLRepository interface {
	// Create inserts a new shortened URL into the repository.
	// Returns database.ErrShortCodeExists when the short code is already taken.
	Create(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time) (*models.URL, error)

	// GetByID retrieves a URL by its identifier.
	GetByID(ctx context.Context, id int64) (*models.URL, error)

	// GetByShortCode retrieves a URL by its short code regardless of its active flag.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// GetActiveByShortCode retrieves a URL by its short code, restricted to active records.
	GetActiveByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// ListActive returns every record whose active flag is set, unfiltered by expiry.
	ListActive(ctx context.Context) ([]models.URL, error)

	// ExistsByShortCode reports whether any record, active or not, holds the short code.
	ExistsByShortCode(ctx context.Context, shortCode string) (bool, error)

	// Update rewrites the short code, original URL and expiry of the record with the given id.
	Update(ctx context.Context, id int64, shortCode, originalURL string, expiresAt *time.Time) (*models.URL, error)

	// Delete permanently removes a URL by its identifier, freeing the short code for reuse.
	Delete(ctx context.Context, id int64) error

	// IncrementClicks bumps the click count by one; a missing short code is a no-op.
	IncrementClicks(ctx context.Context, shortCode string) error

	// DeactivateExpired deactivates every record whose expiry is before now,
	// returning the number of affected records.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// URLService provides methods to manage URL shortening operations.
// The service uses a URLRepository interface to interact with the underlying database.
type URLService struct {
	repo   URLRepository
	gen    *shortcode.Generator
	logger *slog.Logger
}

// NewURLService creates a new instance of URLService with the provided repository,
// short code generator and logger.
func NewURLService(repo URLRepository, gen *shortcode.Generator, logger *slog.Logger) *URLService {
	if logger == nil {
		logger = slog.Default()
	}

	return &URLService{
		repo:   repo,
		gen:    gen,
		logger: logger,
	}
}

// CreateURL stores a new shortened URL under a caller-supplied short code.
// It fails with database.ErrShortCodeExists if the code is already taken.
func (s *URLService) CreateURL(ctx context.Context, originalURL, shortCode string, expiresAt *time.Time) (*models.URL, error) {
	const op = "service.URLService.CreateURL"

	exists, err := s.repo.ExistsByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to check short code existence: %w", op, err)
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
	}

	url, err := s.repo.Create(ctx, shortCode, originalURL, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create url: %w", op, err)
	}

	return url, nil
}

// ShortenURL generates a unique short code for the provided original URL and stores it.
// The uniqueness check and the insert are not atomic, so a concurrent creator can win
// the race; the unique constraint catches that, and the insert is retried with a fresh
// code up to a maximum number of attempts.
func (s *URLService) ShortenURL(ctx context.Context, originalURL string, expiresAt *time.Time) (*models.URL, error) {
	const op = "service.URLService.ShortenURL"
	const maxRetries = 5

	for i := 0; i < maxRetries; i++ {
		shortCode, err := s.gen.Unique(ctx, s.repo.ExistsByShortCode)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		url, err := s.repo.Create(ctx, shortCode, originalURL, expiresAt)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// ResolveShortCode retrieves the active URL associated with the provided short code.
// Inactive and unknown codes resolve to database.ErrURLNotFound; a record past its
// expiry resolves to ErrURLExpired even before the sweep has deactivated it.
func (s *URLService) ResolveShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.ResolveShortCode"

	url, err := s.repo.GetActiveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if url.Expired(time.Now()) {
		return nil, fmt.Errorf("%s: %w", op, ErrURLExpired)
	}

	return url, nil
}

// ResolveForRedirect resolves the short code and increments its click count.
// The increment is best-effort: a failure is logged but never fails the
// resolution, since the two writes are not transactionally coupled.
func (s *URLService) ResolveForRedirect(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.ResolveForRedirect"

	url, err := s.ResolveShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.IncrementClicks(ctx, shortCode); err != nil {
		s.logger.Warn(
			"failed to increment click count",
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
	}

	return url, nil
}

// ListActiveURLs returns all active URLs, including ones whose expiry has
// passed but which the sweep hasn't deactivated yet.
func (s *URLService) ListActiveURLs(ctx context.Context) ([]models.URL, error) {
	const op = "service.URLService.ListActiveURLs"

	urls, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list active urls: %w", op, err)
	}

	return urls, nil
}

// ModifyURL rewrites the original URL, short code and expiry of an existing record.
// A short code change is checked against all other records and fails with
// database.ErrShortCodeExists on collision.
func (s *URLService) ModifyURL(ctx context.Context, id int64, originalURL, shortCode string, expiresAt *time.Time) (*models.URL, error) {
	const op = "service.URLService.ModifyURL"

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	if shortCode != current.ShortCode {
		exists, err := s.repo.ExistsByShortCode(ctx, shortCode)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to check short code existence: %w", op, err)
		}
		if exists {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}
	}

	url, err := s.repo.Update(ctx, id, shortCode, originalURL, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to modify url: %w", op, err)
	}

	return url, nil
}

// DeleteURL permanently removes the URL with the provided id.
// The freed short code becomes available for reuse.
func (s *URLService) DeleteURL(ctx context.Context, id int64) error {
	const op = "service.URLService.DeleteURL"

	err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: failed to delete url: %w", op, err)
	}

	return nil
}

// IncrementClickCount bumps the click count for the provided short code by one.
// An unknown short code is a no-op, not an error.
func (s *URLService) IncrementClickCount(ctx context.Context, shortCode string) error {
	const op = "service.URLService.IncrementClickCount"

	err := s.repo.IncrementClicks(ctx, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to increment click count: %w", op, err)
	}

	return nil
}

// DeactivateExpiredURLs deactivates every URL whose expiry timestamp is before now.
// It returns the number of deactivated records.
func (s *URLService) DeactivateExpiredURLs(ctx context.Context, now time.Time) (int64, error) {
	const op = "service.URLService.DeactivateExpiredURLs"

	count, err := s.repo.DeactivateExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to deactivate expired urls: %w", op, err)
	}

	return count, nil
}

// GenerateShortCode returns a short code that doesn't collide with any stored record.
func (s *URLService) GenerateShortCode(ctx context.Context) (string, error) {
	const op = "service.URLService.GenerateShortCode"

	code, err := s.gen.Unique(ctx, s.repo.ExistsByShortCode)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}
