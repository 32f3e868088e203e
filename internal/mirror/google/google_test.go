package google

import (
	"context"
	"testing"
)

func TestNewRejectsEmptySpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), "", "Entries"); err == nil {
		t.Fatal("expected error for empty spreadsheet id")
	}
	if _, err := New(context.Background(), "   ", "Entries"); err == nil {
		t.Fatal("expected error for blank spreadsheet id")
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := New(context.Background(), "sheet-id", ""); err == nil {
		t.Fatal("expected error when no service account credentials are set")
	}
}
