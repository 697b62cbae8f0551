package google

import (
	"context"
	"strings"
	"testing"

	"tanklog/internal/core"
)

func TestNewFromEnvRequiresSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "{}")

	if _, err := NewFromEnv(context.Background()); err == nil {
		t.Fatal("expected error without GOOGLE_SPREADSHEET_ID")
	}
}

func TestNewFromEnvRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "service account") {
		t.Errorf("error = %v, want mention of service account credentials", err)
	}
}

func TestClientRejectsUninitializedService(t *testing.T) {
	c := &Client{spreadsheetID: "sheet-id", fillupsSheet: "Fillups"}
	ctx := context.Background()

	if _, err := c.Append(ctx, core.Fillup{ID: 1}); err == nil {
		t.Error("Append should fail without a sheets service")
	}
	if err := c.DeleteFillup(ctx, 1); err == nil {
		t.Error("DeleteFillup should fail without a sheets service")
	}
	if _, err := c.ListFillups(ctx); err == nil {
		t.Error("ListFillups should fail without a sheets service")
	}
}

func TestAppendRejectsMissingID(t *testing.T) {
	c := &Client{spreadsheetID: "sheet-id", fillupsSheet: "Fillups"}

	_, err := c.Append(context.Background(), core.Fillup{})
	if err == nil || !strings.Contains(err.Error(), "no ID") {
		t.Errorf("error = %v, want missing ID error", err)
	}
}
