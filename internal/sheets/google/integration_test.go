//go:build integration

package google

import (
	"context"
	"os"
	"testing"

	"exptracker/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_GoogleSheetsFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	cfg := Config{
		SpreadsheetID:      spreadsheetID,
		SheetName:          os.Getenv("GOOGLE_SHEET_NAME"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if cfg.ServiceAccountJSON == "" && cfg.ServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	before, err := client.GetExpenses(ctx)
	if err != nil {
		t.Fatalf("GetExpenses: %v", err)
	}
	t.Logf("Found %d expenses", len(before))

	created, err := client.AddExpense(ctx, core.Expense{
		Title: "Integration test", Amount: core.Money{Cents: 123}, Category: "Test", Date: core.NewDate(2024, 1, 1),
	})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	after, err := client.GetExpenses(ctx)
	if err != nil {
		t.Fatalf("GetExpenses after add: %v", err)
	}
	if len(after) != len(before)+1 || after[len(after)-1].ID != created.ID {
		t.Fatalf("expected appended expense %d at the end, got %d rows", created.ID, len(after))
	}
}
