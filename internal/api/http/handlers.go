package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/project/url-shortener-be/internal/database"
	"github.com/project/url-shortener-be/internal/models"
	"github.com/project/url-shortener-be/internal/service"
	"github.com/project/url-shortener-be/internal/shortcode"
	"github.com/project/url-shortener-be/pkg/response"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

type urlRequest struct {
	OriginalURL string     `json:"original_url" validate:"required,url,max=2048"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type customURLRequest struct {
	OriginalURL string     `json:"original_url" validate:"required,url,max=2048"`
	ShortCode   string     `json:"short_code" validate:"required,alphanum,max=10"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type urlResponse struct {
	ID          int64      `json:"id"`
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"`
	OriginalURL string     `json:"original_url"`
	ClickCount  int64      `json:"click_count"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type shortCodeResponse struct {
	ShortCode string `json:"short_code"`
}

func toURLResponse(url *models.URL, baseURL string) urlResponse {
	return urlResponse{
		ID:          url.ID,
		ShortCode:   url.ShortCode,
		ShortURL:    strings.TrimSuffix(baseURL, "/") + "/" + url.ShortCode,
		OriginalURL: url.OriginalURL,
		ClickCount:  url.ClickCount,
		IsActive:    url.IsActive,
		ExpiresAt:   url.ExpiresAt,
		CreatedAt:   url.CreatedAt,
		UpdatedAt:   url.UpdatedAt,
	}
}

func handleCreateURL(svc URLService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleCreateURL"

	return func(w http.ResponseWriter, r *http.Request) {
		var req urlRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse())
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse())
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, err := svc.ShortenURL(r.Context(), req.OriginalURL, req.ExpiresAt)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse())
			return
		}

		urlsCreatedTotal.Inc()

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, toURLResponse(url, baseURL))
	}
}

func handleCreateCustomURL(svc URLService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleCreateCustomURL"

	return func(w http.ResponseWriter, r *http.Request) {
		var req customURLRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse())
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse())
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, err := svc.CreateURL(r.Context(), req.OriginalURL, req.ShortCode, req.ExpiresAt)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ConflictResponse("Short code is already in use."))
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse())
			return
		}

		urlsCreatedTotal.Inc()

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, toURLResponse(url, baseURL))
	}
}

func handleListURLs(svc URLService, baseURL string) http.HandlerFunc {
	const op = "api.http.handleListURLs"

	return func(w http.ResponseWriter, r *http.Request) {
		urls, err := svc.ListActiveURLs(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse())
			return
		}

		data := make([]urlResponse, 0, len(urls))
		for i := range urls {
			data = append(data, toURLResponse(&urls[i], baseURL))
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, data)
	}
}

func handleGenerateShortCode(svc URLService) http.HandlerFunc {
	const op = "api.http.handleGenerateShortCode"

	return func(w http.ResponseWriter, r *http.Request) {
		code, err := svc.GenerateShortCode(r.Context())
		if err != nil {
			if errors.Is(err, shortcode.ErrAttemptsExhausted) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.ConflictResponse("Could not generate a free short code."))
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse())
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, shortCodeResponse{ShortCode: code})
	}
}

func handleResolveShortCode(svc URLService, baseURL string) http.HandlerFunc {
	const op = "api.http.handleResolveShortCode"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.ResolveShortCode(r.Context(), shortCode)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrURLNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse())
			case errors.Is(err, service.ErrURLExpired):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ExpiredResponse())
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse())
			}
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, toURLResponse(url, baseURL))
	}
}

func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.ResolveForRedirect(r.Context(), shortCode)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrURLNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse())
			case errors.Is(err, service.ErrURLExpired):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ExpiredResponse())
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse())
			}
			return
		}

		redirectsTotal.Inc()

		http.Redirect(w, r, url.OriginalURL, http.StatusFound)
	}
}

func handleModifyURL(svc URLService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleModifyURL"

	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse())
			return
		}

		var req customURLRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse())
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse())
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, err := svc.ModifyURL(r.Context(), id, req.OriginalURL, req.ShortCode, req.ExpiresAt)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrURLNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse())
			case errors.Is(err, database.ErrShortCodeExists):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ConflictResponse("Short code is already in use."))
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse())
			}
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, toURLResponse(url, baseURL))
	}
}

func handleDeleteURL(svc URLService) http.HandlerFunc {
	const op = "api.http.handleDeleteURL"

	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse())
			return
		}

		if err := svc.DeleteURL(r.Context(), id); err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse())
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse())
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
