package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amberwayequine/crm-backend/pkg/migrate"
)

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}

func TestDealsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_deals_and_tasks.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no deals migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS deals",
		"FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE SET NULL",
		"CHECK (probability >= 0 AND probability <= 100)",
		"CHECK (status IN ('pending', 'in_progress', 'completed', 'snoozed'))",
		"DROP TABLE IF EXISTS deals",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPurchaseOrdersMigrationStampsUniqueNumber(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_purchase_orders_and_shipments.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no purchase orders migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	if !strings.Contains(string(data), "po_number text NOT NULL UNIQUE") {
		t.Errorf("po_number must carry a unique constraint")
	}
}
