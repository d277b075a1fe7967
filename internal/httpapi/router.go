package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gastos/internal/core"
	"gastos/internal/services"
)

const defaultListLimit = 50

type Router struct {
	schema          *services.SchemaService
	expenses        *services.ExpenseService
	aliases         *services.AliasService
	apiKey          string
	maxRequestBytes int64
}

func NewRouter(schema *services.SchemaService, expenses *services.ExpenseService, aliases *services.AliasService, apiKey string, maxRequestBytes int64) http.Handler {
	rt := &Router{
		schema:          schema,
		expenses:        expenses,
		aliases:         aliases,
		apiKey:          apiKey,
		maxRequestBytes: maxRequestBytes,
	}

	mux := chi.NewRouter()
	mux.Use(traceMiddleware)

	mux.Get("/healthz", handleHealth)
	mux.Get("/readyz", handleReady)

	mux.Group(func(pr chi.Router) {
		pr.Use(rt.requireAPIKey)

		pr.Get("/schema/expense", rt.handleGetSchema)
		pr.Post("/schema/expense/fields", rt.handleCreateField)
		pr.Patch("/schema/expense/fields/{key}", rt.handleUpdateField)
		pr.Delete("/schema/expense/fields/{key}", rt.handleDeleteField)

		pr.Post("/expenses", rt.handleCreateExpense)
		pr.Get("/expenses", rt.handleListExpenses)
		pr.Get("/expenses/{id}", rt.handleGetExpense)
		pr.Patch("/expenses/{id}", rt.handleUpdateExpense)

		pr.Post("/aliases", rt.handleCreateAlias)
		pr.Get("/aliases", rt.handleListAliases)
		pr.Delete("/aliases/{id}", rt.handleDeleteAlias)
	})

	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is an internal failure and is not echoed back.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *core.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, core.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, core.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a bounded request body into v.
func (rt *Router) decodeJSON(w http.ResponseWriter, req *http.Request, v any) error {
	if rt.maxRequestBytes > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, rt.maxRequestBytes)
	}
	return json.NewDecoder(req.Body).Decode(v)
}
