package service_test

import (
	"strings"
	"testing"

	"github.com/tvandenberg/thirteenf/internal/testutil"
)

// TestSettingsService_OpenFIGIKey tests secret storage and resolution.
//
// WHY: The lookup-service key is the one secret this system holds. It must
// round-trip through encryption, never rest in the clear, defer to the
// environment override, and degrade to unkeyed operation when absent.
func TestSettingsService_OpenFIGIKey(t *testing.T) {
	t.Run("round-trips through encrypted storage", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSettingsService(t, db)

		// Execute
		if err := svc.StoreOpenFIGIKey("figi-secret-123"); err != nil {
			t.Fatalf("StoreOpenFIGIKey() returned unexpected error: %v", err)
		}
		key, err := svc.OpenFIGIKey()

		// Assert
		if err != nil {
			t.Fatalf("OpenFIGIKey() returned unexpected error: %v", err)
		}
		if key != "figi-secret-123" {
			t.Errorf("Expected the stored key back, got %q", key)
		}

		var stored string
		if err := db.QueryRow(`SELECT value FROM settings WHERE key = 'openfigi_api_key'`).Scan(&stored); err != nil {
			t.Fatalf("Failed to read stored setting: %v", err)
		}
		if strings.Contains(stored, "figi-secret-123") {
			t.Error("Expected the key encrypted at rest, found it in the clear")
		}
	})

	t.Run("environment override wins over the stored key", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		stored := testutil.NewTestSettingsService(t, db)
		if err := stored.StoreOpenFIGIKey("stored-key"); err != nil {
			t.Fatalf("StoreOpenFIGIKey() returned unexpected error: %v", err)
		}

		svc := testutil.NewTestSettingsServiceWithEnvKey(t, db, "env-key")

		// Execute
		key, err := svc.OpenFIGIKey()

		// Assert
		if err != nil {
			t.Fatalf("OpenFIGIKey() returned unexpected error: %v", err)
		}
		if key != "env-key" {
			t.Errorf("Expected the environment key to win, got %q", key)
		}
	})

	t.Run("returns empty without error when no key is configured", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSettingsService(t, db)

		// Execute
		key, err := svc.OpenFIGIKey()

		// Assert
		if err != nil {
			t.Fatalf("OpenFIGIKey() returned unexpected error: %v", err)
		}
		if key != "" {
			t.Errorf("Expected unkeyed operation, got %q", key)
		}
	})

	t.Run("refuses to store without an encryption key", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSettingsServiceWithoutFernetKey(t, db)

		// Execute
		err := svc.StoreOpenFIGIKey("figi-secret-123")

		// Assert
		if err == nil {
			t.Fatal("Expected error when FERNET_KEY is missing, got nil")
		}

		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&count); err != nil {
			t.Fatalf("Failed to count settings: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected nothing stored, got %d rows", count)
		}
	})

	t.Run("refuses empty keys", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSettingsService(t, db)

		// Execute
		err := svc.StoreOpenFIGIKey("")

		// Assert
		if err == nil {
			t.Fatal("Expected error for an empty key, got nil")
		}
	})
}
