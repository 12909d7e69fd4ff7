package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/project/url-shortener-be/internal/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type URLService interface {
	CreateURL(ctx context.Context, originalURL, shortCode string, expiresAt *time.Time) (*models.URL, error)
	ShortenURL(ctx context.Context, originalURL string, expiresAt *time.Time) (*models.URL, error)
	ResolveShortCode(ctx context.Context, shortCode string) (*models.URL, error)
	ResolveForRedirect(ctx context.Context, shortCode string) (*models.URL, error)
	ListActiveURLs(ctx context.Context) ([]models.URL, error)
	ModifyURL(ctx context.Context, id int64, originalURL, shortCode string, expiresAt *time.Time) (*models.URL, error)
	DeleteURL(ctx context.Context, id int64) error
	GenerateShortCode(ctx context.Context) (string, error)
}

func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

func NewRouter(logger *httplog.Logger, urlSvc URLService, baseURL string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.AllowContentType("application/json"))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		validate := getValidate()

		r.Get("/ping", handlePing)

		r.Route("/urls", func(r chi.Router) {
			r.Post("/", handleCreateURL(urlSvc, validate, baseURL))
			r.Get("/", handleListURLs(urlSvc, baseURL))
			r.Post("/custom", handleCreateCustomURL(urlSvc, validate, baseURL))
			r.Get("/generate-code", handleGenerateShortCode(urlSvc))
			r.Get("/redirect/{shortCode}", handleRedirect(urlSvc))
			r.Get("/{shortCode}", handleResolveShortCode(urlSvc, baseURL))
			r.Put("/{id}", handleModifyURL(urlSvc, validate, baseURL))
			r.Delete("/{id}", handleDeleteURL(urlSvc))
		})
	})

	return r
}
