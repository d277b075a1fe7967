package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"gastos/internal/core"
	"gastos/internal/services"
)

type updateExpenseRequest struct {
	Status *string       `json:"status"`
	Data   core.Document `json:"data"`
}

func (rt *Router) handleCreateExpense(w http.ResponseWriter, req *http.Request) {
	var doc core.Document
	if err := rt.decodeJSON(w, req, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	// Transport-level shape check; everything else is schema-driven.
	var missing []string
	for _, k := range []string{"date", "amount", "currency"} {
		if doc[k] == nil {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "missing required fields: "+strings.Join(missing, ", "))
		return
	}
	if s, ok := doc["date"].(string); !ok {
		writeError(w, http.StatusBadRequest, "date must be a YYYY-MM-DD string")
		return
	} else if _, err := time.Parse("2006-01-02", s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date: "+s)
		return
	}
	if _, ok := doc["amount"].(float64); !ok {
		writeError(w, http.StatusBadRequest, "amount must be a number")
		return
	}

	result, err := rt.expenses.Create(req.Context(), doc)
	if err != nil {
		writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) handleGetExpense(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	expense, err := rt.expenses.Get(req.Context(), id)
	if err != nil {
		writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, flattenExpense(expense))
}

func (rt *Router) handleListExpenses(w http.ResponseWriter, req *http.Request) {
	filter, err := parseListFilter(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expenses, err := rt.expenses.List(req.Context(), filter)
	if err != nil {
		writeServiceError(w, req, err)
		return
	}

	items := make([]map[string]any, 0, len(expenses))
	for _, e := range expenses {
		items = append(items, flattenExpense(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":       items,
		"next_cursor": nil,
	})
}

func (rt *Router) handleUpdateExpense(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")

	var body updateExpenseRequest
	if err := rt.decodeJSON(w, req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	expense, err := rt.expenses.Update(req.Context(), id, body.Status, body.Data)
	if err != nil {
		writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, flattenExpense(expense))
}

// flattenExpense merges the envelope and the open document into one object,
// document keys winning on collision.
func flattenExpense(e core.Expense) map[string]any {
	out := map[string]any{
		"id":             e.ID,
		"created_at":     e.CreatedAt,
		"updated_at":     e.UpdatedAt,
		"schema_version": e.SchemaVersion,
	}
	for k, v := range e.Data {
		out[k] = v
	}
	return out
}

func parseListFilter(req *http.Request) (services.ListFilter, error) {
	q := req.URL.Query()
	filter := services.ListFilter{
		Vendor:   q.Get("vendor"),
		Client:   q.Get("client"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Query:    q.Get("q"),
		Limit:    defaultListLimit,
	}

	if v := q.Get("from"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return services.ListFilter{}, fmt.Errorf("invalid from: %s", v)
		}
		filter.From = &d
	}
	if v := q.Get("to"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return services.ListFilter{}, fmt.Errorf("invalid to: %s", v)
		}
		filter.To = &d
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return services.ListFilter{}, fmt.Errorf("invalid limit: %s", v)
		}
		filter.Limit = n
	}
	// cursor is accepted but pagination beyond the first page is not
	// implemented; listings always report a null next cursor.

	return filter, nil
}
