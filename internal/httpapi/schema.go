package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gastos/internal/core"
)

type createFieldRequest struct {
	Key         string         `json:"key"`
	Label       string         `json:"label"`
	Type        core.FieldType `json:"type"`
	Required    *bool          `json:"required"`
	Enabled     *bool          `json:"enabled"`
	Description string         `json:"description"`
	EnumValues  []string       `json:"enum_values"`
}

func (rt *Router) handleGetSchema(w http.ResponseWriter, req *http.Request) {
	schema, err := rt.schema.Schema(req.Context())
	if err != nil {
		writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (rt *Router) handleCreateField(w http.ResponseWriter, req *http.Request) {
	var body createFieldRequest
	if err := rt.decodeJSON(w, req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Key == "" || body.Label == "" {
		writeError(w, http.StatusBadRequest, "key and label are required")
		return
	}
	if !body.Type.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid field type: "+string(body.Type))
		return
	}

	def := core.FieldDefinition{
		Key:         body.Key,
		Label:       body.Label,
		Type:        body.Type,
		Enabled:     true,
		Description: body.Description,
		EnumValues:  body.EnumValues,
	}
	if body.Required != nil {
		def.Required = *body.Required
	}
	if body.Enabled != nil {
		def.Enabled = *body.Enabled
	}

	schema, err := rt.schema.CreateField(req.Context(), def)
	if err != nil {
		writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (rt *Router) handleUpdateField(w http.ResponseWriter, req *http.Request) {
	key := chi.URLParam(req, "key")

	var patch core.FieldPatch
	if err := rt.decodeJSON(w, req, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if patch.Type != nil && !patch.Type.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid field type: "+string(*patch.Type))
		return
	}

	schema, err := rt.schema.UpdateField(req.Context(), key, patch)
	if err != nil {
		writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (rt *Router) handleDeleteField(w http.ResponseWriter, req *http.Request) {
	key := chi.URLParam(req, "key")
	hard := req.URL.Query().Get("hard") == "true"

	schema, err := rt.schema.DeleteField(req.Context(), key, hard)
	if err != nil {
		writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}
