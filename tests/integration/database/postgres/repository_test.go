package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jmoiron/sqlx"
	"github.com/project/url-shortener-be/internal/config"
	"github.com/project/url-shortener-be/internal/database"
	"github.com/project/url-shortener-be/internal/database/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func setupPostgres(t testing.TB) config.Postgres {
	t.Helper()

	ctx := context.Background()

	pgUser := "test"
	pgPassword := "test"
	pgDB := "url_shortener"

	pgCont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDB,
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForExposedPort(),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgCont.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate postgres container: %v", err)
		}
	})

	pgHost, err := pgCont.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	pgPort, err := pgCont.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return config.Postgres{
		User:     pgUser,
		Password: pgPassword,
		Host:     pgHost,
		Port:     pgPort.Int(),
		DB:       pgDB,
		SSLMode:  "disable",
	}
}

func runMigrations(t testing.TB, cfg config.Postgres) {
	t.Helper()

	migrationPath := "file://../../../../migrations"

	m, err := migrate.New(migrationPath, cfg.DSN())
	if err != nil {
		t.Fatalf("Failed to initialize migrations: %v", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			t.Fatalf("Failed to rollback migrations: %v", err)
		}
	})
}

func setupURLRepository(t testing.TB) (*postgres.URLRepository, *sqlx.DB) {
	t.Helper()

	cfg := setupPostgres(t)
	runMigrations(t, cfg)

	db, err := sqlx.Connect("pgx", cfg.DSN())
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("Failed to close database: %v", err)
		}
	})

	return postgres.NewURLRepository(db), db
}

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

func insertURLRecord(t testing.TB, ctx context.Context, db *sqlx.DB, shortCode, originalURL string, isActive bool, expiresAt *time.Time) *urlRecord {
	t.Helper()

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, original_url, is_active, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING *`

	if err := db.GetContext(ctx, rec, query, shortCode, originalURL, isActive, expiresAt); err != nil {
		t.Fatalf("Failed to insert row: %v", err)
	}

	return rec
}

func getURLRecord(t testing.TB, ctx context.Context, db *sqlx.DB, shortCode string) *urlRecord {
	t.Helper()

	rec := new(urlRecord)
	query := `SELECT * FROM urls
		WHERE short_code = $1`

	if err := db.GetContext(ctx, rec, query, shortCode); err != nil {
		t.Fatalf("Failed to get url record: %v", err)
	}

	return rec
}

func TestURLRepository_Create(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	t.Run("short code exists", func(t *testing.T) {
		ctx := context.Background()
		repo, db := setupURLRepository(t)

		_ = insertURLRecord(t, ctx, db, "abc123", "https://example.com", true, nil)

		url, err := repo.Create(ctx, "abc123", "https://example2.com", nil)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrShortCodeExists)
		assert.Nil(t, url)
	})

	t.Run("success", func(t *testing.T) {
		ctx := context.Background()
		repo, db := setupURLRepository(t)

		url, err := repo.Create(ctx, "abc123", "https://example.com", nil)

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, "abc123", url.ShortCode)
		assert.Equal(t, "https://example.com", url.OriginalURL)
		assert.Zero(t, url.ClickCount)
		assert.True(t, url.IsActive)
		assert.Nil(t, url.ExpiresAt)

		rec := getURLRecord(t, ctx, db, "abc123")

		assert.Equal(t, "abc123", rec.ShortCode)
		assert.Equal(t, "https://example.com", rec.OriginalURL)
		assert.True(t, rec.IsActive)
	})
}

func TestURLRepository_GetActiveByShortCode(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	t.Run("url not found", func(t *testing.T) {
		ctx := context.Background()
		repo, _ := setupURLRepository(t)

		url, err := repo.GetActiveByShortCode(ctx, "abc123")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.Nil(t, url)
	})

	t.Run("inactive url is not found", func(t *testing.T) {
		ctx := context.Background()
		repo, db := setupURLRepository(t)

		_ = insertURLRecord(t, ctx, db, "abc123", "https://example.com", false, nil)

		url, err := repo.GetActiveByShortCode(ctx, "abc123")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.Nil(t, url)
	})

	t.Run("success", func(t *testing.T) {
		ctx := context.Background()
		repo, db := setupURLRepository(t)

		_ = insertURLRecord(t, ctx, db, "abc123", "https://example.com", true, nil)

		url, err := repo.GetActiveByShortCode(ctx, "abc123")

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, "abc123", url.ShortCode)
		assert.Equal(t, "https://example.com", url.OriginalURL)
	})
}

func TestURLRepository_ListActive(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	t.Run("empty result", func(t *testing.T) {
		ctx := context.Background()
		repo, _ := setupURLRepository(t)

		urls, err := repo.ListActive(ctx)

		assert.NoError(t, err)
		assert.Empty(t, urls)
	})

	t.Run("skips inactive urls", func(t *testing.T) {
		ctx := context.Background()
		repo, db := setupURLRepository(t)

		_ = insertURLRecord(t, ctx, db, "abc123", "https://example.com", true, nil)
		_ = insertURLRecord(t, ctx, db, "def456", "https://example2.com", false, nil)

		urls, err := repo.ListActive(ctx)

		assert.NoError(t, err)
		assert.Len(t, urls, 1)
		assert.Equal(t, "abc123", urls[0].ShortCode)
	})
}

func TestURLRepository_Update(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	t.Run("url not found", func(t *testing.T) {
		ctx := context.Background()
		repo, _ := setupURLRepository(t)

		url, err := repo.Update(ctx, 1, "abc123", "https://new-example.com", nil)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.Nil(t, url)
	})

	t.Run("short code exists", func(t *testing.T) {
		ctx := context.Background()
		repo, db := setupURLRepository(t)

		rec := insertURLRecord(t, ctx, db, "abc123", "https://example.com", true, nil)
		_ = insertURLRecord(t, ctx, db, "def456", "https://example2.com", true, nil)

		url, err := repo.Update(ctx, rec.ID, "def456", "https://example.com", nil)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrShortCodeExists)
		assert.Nil(t, url)
	})

	t.Run("success", func(t *testing.T) {
		ctx := context.Background()
		repo, db := setupURLRepository(t)

		rec := insertURLRecord(t, ctx, db, "abc123", "https://example.com", true, nil)

		url, err := repo.Update(ctx, rec.ID, "def456", "https://new-example.com", nil)

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, "def456", url.ShortCode)
		assert.Equal(t, "https://new-example.com", url.OriginalURL)

		got := getURLRecord(t, ctx, db, "def456")

		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, "https://new-example.com", got.OriginalURL)
	})
}

func TestURLRepository_Delete(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	t.Run("url not found", func(t *testing.T) {
		ctx := context.Background()
		repo, _ := setupURLRepository(t)

		err := repo.Delete(ctx, 1)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
	})

	t.Run("success", func(t *testing.T) {
		ctx := context.Background()
		repo, db := setupURLRepository(t)

		rec := insertURLRecord(t, ctx, db, "abc123", "https://example.com", true, nil)

		err := repo.Delete(ctx, rec.ID)

		assert.NoError(t, err)

		var count int
		err = db.GetContext(ctx, &count, `SELECT COUNT(*) FROM urls`)
		assert.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestURLRepository_IncrementClicks(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	t.Run("unknown short code is a no-op", func(t *testing.T) {
		ctx := context.Background()
		repo, _ := setupURLRepository(t)

		err := repo.IncrementClicks(ctx, "abc123")

		assert.NoError(t, err)
	})

	t.Run("success", func(t *testing.T) {
		ctx := context.Background()
		repo, db := setupURLRepository(t)

		_ = insertURLRecord(t, ctx, db, "abc123", "https://example.com", true, nil)

		err := repo.IncrementClicks(ctx, "abc123")

		assert.NoError(t, err)

		rec := getURLRecord(t, ctx, db, "abc123")

		assert.Equal(t, int64(1), rec.ClickCount)
	})
}

func TestURLRepository_DeactivateExpired(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	t.Run("nothing to deactivate", func(t *testing.T) {
		ctx := context.Background()
		repo, db := setupURLRepository(t)

		future := time.Now().Add(time.Hour)
		_ = insertURLRecord(t, ctx, db, "abc123", "https://example.com", true, &future)
		_ = insertURLRecord(t, ctx, db, "def456", "https://example2.com", true, nil)

		count, err := repo.DeactivateExpired(ctx, time.Now())

		assert.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("success", func(t *testing.T) {
		ctx := context.Background()
		repo, db := setupURLRepository(t)

		past := time.Now().Add(-time.Hour)
		future := time.Now().Add(time.Hour)
		_ = insertURLRecord(t, ctx, db, "abc123", "https://example.com", true, &past)
		_ = insertURLRecord(t, ctx, db, "def456", "https://example2.com", true, &future)

		count, err := repo.DeactivateExpired(ctx, time.Now())

		assert.NoError(t, err)
		assert.Equal(t, int64(1), count)

		rec := getURLRecord(t, ctx, db, "abc123")

		assert.False(t, rec.IsActive)
	})
}
