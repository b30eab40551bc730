package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/time/rate"

	"bookcatalog/internal/catalog"
	"bookcatalog/internal/response"
	"bookcatalog/internal/types"
)

const maxBodyBytes = 1 << 20

type Options struct {
	AppName string
	// RateLimitRPS is per client IP, zero disables rate limiting
	RateLimitRPS float64
}

// Router is the whole HTTP surface: welcome text at the root and the
// catalog API under /api.
func Router(svc *catalog.Service, rr *response.Responder, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recoverer(rr))

	if opts.RateLimitRPS > 0 {
		burst := int(opts.RateLimitRPS)
		if burst < 1 {
			burst = 1
		}
		r.Use(rateLimit(rate.Limit(opts.RateLimitRPS), burst, rr))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Welcome Book API!"))
	})

	r.Mount("/api", Handler(svc, rr, opts.AppName))

	return r
}

func Handler(svc *catalog.Service, rr *response.Responder, appName string) http.Handler {
	r := chi.NewRouter()

	r.Post("/books", func(w http.ResponseWriter, r *http.Request) {
		var nb types.NewBook
		if !decodeBody(w, r, rr, &nb) {
			return
		}

		book, err := svc.CreateBook(r.Context(), &nb)
		if err != nil {
			respondError(w, r, rr, err)
			return
		}

		rr.SendJson(w, r.Context(), http.StatusCreated, book)
	})

	r.Get("/books", func(w http.ResponseWriter, r *http.Request) {
		views, err := svc.ListBooks(r.Context())
		if err != nil {
			respondError(w, r, rr, err)
			return
		}

		rr.SendJson(w, r.Context(), http.StatusOK, views)
	})

	r.Get("/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.GetBook(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, r, rr, err)
			return
		}

		rr.SendJson(w, r.Context(), http.StatusOK, view)
	})

	r.Put("/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch types.BookPatch
		if !decodeBody(w, r, rr, &patch) {
			return
		}

		book, err := svc.UpdateBook(r.Context(), chi.URLParam(r, "id"), &patch)
		if err != nil {
			respondError(w, r, rr, err)
			return
		}

		rr.SendJson(w, r.Context(), http.StatusOK, book)
	})

	r.Delete("/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		book, err := svc.DeleteBook(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, r, rr, err)
			return
		}

		rr.SendJson(w, r.Context(), http.StatusOK, struct {
			Message     string      `json:"message"`
			DeletedBook *types.Book `json:"deletedBook"`
		}{
			Message:     "Book deleted successfully",
			DeletedBook: book,
		})
	})

	r.Get("/opds/books", func(w http.ResponseWriter, r *http.Request) {
		views, err := svc.ListBooks(r.Context())
		if err != nil {
			respondError(w, r, rr, err)
			return
		}

		bs, err := renderOPDS(booksFeed(appName, r.URL.Path, views, time.Now()))
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		w.Header().Set("Content-Type", opdsAcquisitionType+"; charset=utf-8")
		_, _ = w.Write(bs)
	})

	return r
}

func decodeBody(w http.ResponseWriter, r *http.Request, rr *response.Responder, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil {
		respondError(w, r, rr, &catalog.ValidationError{Err: fmt.Errorf("malformed JSON body: %w", err)})
		return false
	}

	return true
}

// respondError maps catalog errors onto status codes: validation 400,
// not found 404, everything else 500.
func respondError(w http.ResponseWriter, r *http.Request, rr *response.Responder, err error) {
	var ve *catalog.ValidationError

	switch {
	case errors.Is(err, catalog.ErrNotFound):
		rr.RespondAndLogCustom(w, r.Context(), err, slog.LevelInfo,
			http.StatusNotFound, response.KindNotFound, catalog.ErrNotFound.Error(), nil)
	case errors.As(err, &ve):
		rr.RespondAndLogCustom(w, r.Context(), err, slog.LevelInfo,
			http.StatusBadRequest, response.KindValidation, "Invalid request", validationDetail(ve))
	default:
		rr.RespondAndLogError(w, r.Context(), err)
	}
}

func validationDetail(ve *catalog.ValidationError) any {
	var fields validation.Errors
	if errors.As(ve.Err, &fields) {
		return fields
	}

	return ve.Error()
}
