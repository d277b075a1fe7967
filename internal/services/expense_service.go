package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gastos/internal/core"
	"gastos/internal/storage"
)

const maxListLimit = 200

// EventPublisher notifies downstream consumers about expense writes.
// Publishing is best effort: a failed publish never fails the request.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, event, id, schemaVersion string) error
}

// CreateResult is the summary returned for a stored expense.
type CreateResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Stored bool   `json:"stored"`
}

// ListFilter narrows an expense listing. All populated members are ANDed.
type ListFilter struct {
	From     *time.Time
	To       *time.Time
	Vendor   string
	Client   string
	Category string
	Status   string
	Query    string
	Limit    int
}

// ExpenseService validates documents against the live schema and stamps
// every write with the version in effect at that moment.
type ExpenseService struct {
	storage *storage.SQLiteRepository
	schema  *SchemaService
	events  EventPublisher
}

func NewExpenseService(storage *storage.SQLiteRepository, schema *SchemaService, events EventPublisher) *ExpenseService {
	return &ExpenseService{
		storage: storage,
		schema:  schema,
		events:  events,
	}
}

// Create validates the document against the current enabled fields and
// persists it verbatim, stamped with the current schema version.
func (s *ExpenseService) Create(ctx context.Context, doc core.Document) (CreateResult, error) {
	fields, err := s.schema.EnabledFields(ctx)
	if err != nil {
		return CreateResult{}, fmt.Errorf("load schema fields: %w", err)
	}
	if err := core.ValidateDocument(doc, fields); err != nil {
		return CreateResult{}, err
	}

	version, err := s.schema.CurrentVersion(ctx)
	if err != nil {
		return CreateResult{}, fmt.Errorf("current schema version: %w", err)
	}

	now := time.Now().UTC()
	expense := core.Expense{
		ID:            newID("exp"),
		CreatedAt:     now,
		UpdatedAt:     now,
		SchemaVersion: version.Version,
		Data:          doc,
	}
	if err := s.storage.InsertExpense(ctx, expense); err != nil {
		return CreateResult{}, fmt.Errorf("save expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"id", expense.ID,
		"schema_version", expense.SchemaVersion)

	s.publish(ctx, "expense.created", expense.ID, expense.SchemaVersion)

	status := "confirmed"
	if v, ok := doc["status"].(string); ok && v != "" {
		status = v
	}
	return CreateResult{ID: expense.ID, Status: status, Stored: true}, nil
}

// Get returns a stored expense by id.
func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	return s.storage.GetExpense(ctx, id)
}

// List fetches the newest records up to the clamped limit, then applies
// the filters against the decoded documents. Pagination beyond the first
// page is not implemented; callers always get a null cursor back.
func (s *ExpenseService) List(ctx context.Context, filter ListFilter) ([]core.Expense, error) {
	expenses, err := s.storage.ListExpenses(ctx, ClampLimit(filter.Limit))
	if err != nil {
		return nil, err
	}

	matched := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if filter.matches(e.Data) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// Update merges a partial data patch into the stored document, applies the
// status override on top, re-validates the merged result and re-stamps the
// schema version. Null patch values never clear existing fields.
func (s *ExpenseService) Update(ctx context.Context, id string, status *string, patch core.Document) (core.Expense, error) {
	expense, err := s.storage.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}

	merged := core.MergePatch(expense.Data, patch)
	if status != nil {
		merged["status"] = *status
	}

	fields, err := s.schema.EnabledFields(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load schema fields: %w", err)
	}
	if err := core.ValidateDocument(merged, fields); err != nil {
		return core.Expense{}, err
	}

	version, err := s.schema.CurrentVersion(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("current schema version: %w", err)
	}

	expense.Data = merged
	expense.UpdatedAt = time.Now().UTC()
	expense.SchemaVersion = version.Version
	if err := s.storage.UpdateExpense(ctx, expense); err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense updated",
		"id", expense.ID,
		"schema_version", expense.SchemaVersion)

	s.publish(ctx, "expense.updated", expense.ID, expense.SchemaVersion)

	return expense, nil
}

func (s *ExpenseService) publish(ctx context.Context, event, id, schemaVersion string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenseEvent(ctx, event, id, schemaVersion); err != nil {
		// The write already succeeded; the event is advisory.
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"event", event, "id", id, "error", err)
	}
}

// ClampLimit bounds a page size to [1, 200]; zero and negative collapse to 1.
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func (f ListFilter) matches(doc core.Document) bool {
	if f.From != nil || f.To != nil {
		d, ok := documentDate(doc)
		if !ok {
			return false
		}
		if f.From != nil && d.Before(*f.From) {
			return false
		}
		if f.To != nil && d.After(*f.To) {
			return false
		}
	}

	if !matchesExact(doc, "vendor", f.Vendor) ||
		!matchesExact(doc, "client", f.Client) ||
		!matchesExact(doc, "category", f.Category) ||
		!matchesExact(doc, "status", f.Status) {
		return false
	}

	if f.Query != "" {
		blob, err := json.Marshal(doc)
		if err != nil {
			return false
		}
		if !strings.Contains(strings.ToLower(string(blob)), strings.ToLower(f.Query)) {
			return false
		}
	}

	return true
}

func matchesExact(doc core.Document, key, want string) bool {
	if want == "" {
		return true
	}
	have, _ := doc[key].(string)
	return strings.EqualFold(have, want)
}

func documentDate(doc core.Document) (time.Time, bool) {
	s, ok := doc["date"].(string)
	if !ok {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
