package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gastos/internal/core"
	"gastos/internal/storage"
)

// AliasFilter narrows an alias listing: exact kind, substring alias and
// value matches.
type AliasFilter struct {
	Kind  string
	Alias string
	Value string
	Limit int
}

// AliasService stores free-text-to-canonical-value mappings. The dictionary
// is write-and-read only: nothing in the expense path consults it.
type AliasService struct {
	storage *storage.SQLiteRepository
}

func NewAliasService(storage *storage.SQLiteRepository) *AliasService {
	return &AliasService{storage: storage}
}

// Create stores an alias with its text lowercased. The (kind, alias) pair
// is pre-checked for duplicates before the insert.
func (s *AliasService) Create(ctx context.Context, kind core.AliasKind, alias, value string) (core.Alias, error) {
	normalized := strings.ToLower(alias)

	exists, err := s.storage.AliasExists(ctx, kind, normalized)
	if err != nil {
		return core.Alias{}, err
	}
	if exists {
		return core.Alias{}, fmt.Errorf("alias %s/%s: %w", kind, normalized, core.ErrConflict)
	}

	a := core.Alias{
		ID:        newID("al"),
		Kind:      kind,
		Alias:     normalized,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.storage.InsertAlias(ctx, a); err != nil {
		return core.Alias{}, err
	}

	slog.InfoContext(ctx, "Alias created", "id", a.ID, "kind", a.Kind, "alias", a.Alias)
	return a, nil
}

// List fetches the newest aliases up to the clamped limit, then filters.
func (s *AliasService) List(ctx context.Context, filter AliasFilter) ([]core.Alias, error) {
	aliases, err := s.storage.ListAliases(ctx, ClampLimit(filter.Limit))
	if err != nil {
		return nil, err
	}

	matched := make([]core.Alias, 0, len(aliases))
	for _, a := range aliases {
		if filter.Kind != "" && string(a.Kind) != filter.Kind {
			continue
		}
		if filter.Alias != "" && !strings.Contains(a.Alias, strings.ToLower(filter.Alias)) {
			continue
		}
		if filter.Value != "" && !strings.Contains(strings.ToLower(a.Value), strings.ToLower(filter.Value)) {
			continue
		}
		matched = append(matched, a)
	}
	return matched, nil
}

// Delete removes an alias by id.
func (s *AliasService) Delete(ctx context.Context, id string) error {
	if err := s.storage.DeleteAlias(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Alias deleted", "id", id)
	return nil
}
