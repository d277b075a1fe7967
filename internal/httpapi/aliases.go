package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gastos/internal/core"
	"gastos/internal/services"
)

type createAliasRequest struct {
	Kind  core.AliasKind `json:"kind"`
	Alias string         `json:"alias"`
	Value string         `json:"value"`
}

func (rt *Router) handleCreateAlias(w http.ResponseWriter, req *http.Request) {
	var body createAliasRequest
	if err := rt.decodeJSON(w, req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !body.Kind.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid alias kind: "+string(body.Kind))
		return
	}
	if body.Alias == "" || body.Value == "" {
		writeError(w, http.StatusBadRequest, "alias and value are required")
		return
	}

	alias, err := rt.aliases.Create(req.Context(), body.Kind, body.Alias, body.Value)
	if err != nil {
		writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, alias)
}

func (rt *Router) handleListAliases(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	filter := services.AliasFilter{
		Kind:  q.Get("kind"),
		Alias: q.Get("alias"),
		Value: q.Get("value"),
		Limit: defaultListLimit,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit: "+v)
			return
		}
		filter.Limit = n
	}

	aliases, err := rt.aliases.List(req.Context(), filter)
	if err != nil {
		writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":       aliases,
		"next_cursor": nil,
	})
}

func (rt *Router) handleDeleteAlias(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	if err := rt.aliases.Delete(req.Context(), id); err != nil {
		writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}
