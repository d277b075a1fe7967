package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gastos/internal/core"
)

type fakePublisher struct {
	events []string
}

func (f *fakePublisher) PublishExpenseEvent(ctx context.Context, event, id, schemaVersion string) error {
	f.events = append(f.events, event+":"+id)
	return nil
}

func newTestExpenseService(t *testing.T) (*ExpenseService, *SchemaService, *fakePublisher) {
	t.Helper()
	repo := newTestStorage(t)
	schemaSvc := NewSchemaService(repo)
	if err := schemaSvc.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	pub := &fakePublisher{}
	return NewExpenseService(repo, schemaSvc, pub), schemaSvc, pub
}

func validExpense() core.Document {
	return core.Document{
		"date":     "2025-03-14",
		"amount":   1250.0,
		"currency": "ARS",
		"vendor":   "Cafe Martinez",
	}
}

func TestCreateExpense(t *testing.T) {
	svc, schemaSvc, pub := newTestExpenseService(t)
	ctx := context.Background()

	result, err := svc.Create(ctx, validExpense())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(result.ID, "exp_") || len(result.ID) != 20 {
		t.Fatalf("unexpected id shape: %s", result.ID)
	}
	if result.Status != "confirmed" || !result.Stored {
		t.Fatalf("expected confirmed/stored, got %+v", result)
	}
	if len(pub.events) != 1 || pub.events[0] != "expense.created:"+result.ID {
		t.Fatalf("expected created event, got %v", pub.events)
	}

	current, err := schemaSvc.CurrentVersion(ctx)
	if err != nil {
		t.Fatalf("current version: %v", err)
	}
	stored, err := svc.Get(ctx, result.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.SchemaVersion != current.Version {
		t.Fatalf("expected stamp %s, got %s", current.Version, stored.SchemaVersion)
	}
	if stored.Data["vendor"] != "Cafe Martinez" {
		t.Fatalf("document not stored verbatim: %+v", stored.Data)
	}
}

func TestCreateExpenseStatusPassthrough(t *testing.T) {
	svc, _, _ := newTestExpenseService(t)

	doc := validExpense()
	doc["status"] = "pending_confirmation"
	result, err := svc.Create(context.Background(), doc)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Status != "pending_confirmation" {
		t.Fatalf("expected submitted status back, got %s", result.Status)
	}
}

func TestCreateExpenseRejectsBadEnum(t *testing.T) {
	svc, _, pub := newTestExpenseService(t)

	doc := validExpense()
	doc["currency"] = "EUR"
	_, err := svc.Create(context.Background(), doc)
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Key != "currency" || len(ve.Allowed) != 2 {
		t.Fatalf("expected currency with allowed set, got %+v", ve)
	}
	if len(pub.events) != 0 {
		t.Fatalf("rejected create must not publish, got %v", pub.events)
	}
}

func TestCreateExpenseRejectsMissingRequired(t *testing.T) {
	svc, _, _ := newTestExpenseService(t)

	doc := validExpense()
	delete(doc, "amount")
	_, err := svc.Create(context.Background(), doc)
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Key != "amount" {
		t.Fatalf("expected missing amount, got %v", err)
	}
}

func TestDisabledRequiredFieldNotEnforced(t *testing.T) {
	svc, schemaSvc, _ := newTestExpenseService(t)
	ctx := context.Background()

	doc := validExpense()
	delete(doc, "currency")
	if _, err := svc.Create(ctx, doc); err == nil {
		t.Fatalf("expected failure while currency is required")
	}

	if _, err := schemaSvc.DeleteField(ctx, "currency", false); err != nil {
		t.Fatalf("disable currency: %v", err)
	}
	if _, err := svc.Create(ctx, doc); err != nil {
		t.Fatalf("disabled field must not be enforced: %v", err)
	}
}

func TestCreateAfterMutationCarriesNewVersion(t *testing.T) {
	svc, schemaSvc, _ := newTestExpenseService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, validExpense())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before, err := svc.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if _, err := schemaSvc.CreateField(ctx, core.FieldDefinition{
		Key: "project", Label: "Proyecto", Type: core.FieldString, Enabled: true,
	}); err != nil {
		t.Fatalf("create field: %v", err)
	}

	second, err := svc.Create(ctx, validExpense())
	if err != nil {
		t.Fatalf("create after mutation: %v", err)
	}
	after, err := svc.Get(ctx, second.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.SchemaVersion == before.SchemaVersion {
		t.Fatalf("expense after a mutation must carry the new version")
	}
}

func TestUpdateExpenseMergeSemantics(t *testing.T) {
	svc, schemaSvc, pub := newTestExpenseService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validExpense())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stampedAtCreate, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// Bump so the update must re-stamp.
	if _, err := schemaSvc.Bump(ctx); err != nil {
		t.Fatalf("bump: %v", err)
	}

	status := "rejected"
	updated, err := svc.Update(ctx, created.ID, &status, core.Document{
		"vendor": nil,       // must not clear
		"notes":  "revisar", // added
		"status": "confirmed", // loses to the override
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.Data["vendor"] != "Cafe Martinez" {
		t.Fatalf("null patch value cleared vendor: %v", updated.Data["vendor"])
	}
	if updated.Data["notes"] != "revisar" {
		t.Fatalf("patch value not applied: %v", updated.Data["notes"])
	}
	if updated.Data["status"] != "rejected" {
		t.Fatalf("status override must win over patch, got %v", updated.Data["status"])
	}
	if updated.SchemaVersion == stampedAtCreate.SchemaVersion {
		t.Fatalf("update must re-stamp the schema version")
	}
	if pub.events[len(pub.events)-1] != "expense.updated:"+created.ID {
		t.Fatalf("expected updated event, got %v", pub.events)
	}
}

func TestUpdateExpenseValidatesMergedResult(t *testing.T) {
	svc, _, _ := newTestExpenseService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validExpense())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Update(ctx, created.ID, nil, core.Document{"currency": "EUR"})
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Key != "currency" {
		t.Fatalf("expected enum rejection on merged doc, got %v", err)
	}

	if _, err := svc.Update(ctx, "exp_missing", nil, nil); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListExpensesFilters(t *testing.T) {
	svc, _, _ := newTestExpenseService(t)
	ctx := context.Background()

	docs := []core.Document{
		{"date": "2025-03-10", "amount": 10.0, "currency": "ARS", "vendor": "Acme", "status": "confirmed"},
		{"date": "2025-03-12", "amount": 20.0, "currency": "USD", "vendor": "Globex", "status": "rejected"},
		{"date": "2025-03-20", "amount": 30.0, "currency": "ARS", "vendor": "Acme", "category": "Oficina"},
	}
	for _, d := range docs {
		if _, err := svc.Create(ctx, d); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	vendorMatches, err := svc.List(ctx, ListFilter{Vendor: "acme", Limit: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(vendorMatches) != 2 {
		t.Fatalf("vendor filter should be case-insensitive exact, got %d", len(vendorMatches))
	}

	from := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	ranged, err := svc.List(ctx, ListFilter{From: &from, To: &to, Limit: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ranged) != 1 || ranged[0].Data["vendor"] != "Globex" {
		t.Fatalf("date range filter mismatch: %+v", ranged)
	}

	queried, err := svc.List(ctx, ListFilter{Query: "oficina", Limit: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(queried) != 1 || queried[0].Data["category"] != "Oficina" {
		t.Fatalf("substring filter mismatch: %+v", queried)
	}

	statusMatches, err := svc.List(ctx, ListFilter{Status: "REJECTED", Limit: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(statusMatches) != 1 {
		t.Fatalf("status filter mismatch: %+v", statusMatches)
	}
}

func TestClampLimit(t *testing.T) {
	cases := []struct{ in, want int }{
		{500, 200},
		{0, 1},
		{-3, 1},
		{1, 1},
		{200, 200},
		{50, 50},
	}
	for _, tc := range cases {
		if got := ClampLimit(tc.in); got != tc.want {
			t.Fatalf("ClampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestCreateWithoutPublisher(t *testing.T) {
	repo := newTestStorage(t)
	schemaSvc := NewSchemaService(repo)
	if err := schemaSvc.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewExpenseService(repo, schemaSvc, nil)

	if _, err := svc.Create(context.Background(), validExpense()); err != nil {
		t.Fatalf("create without publisher: %v", err)
	}
}
