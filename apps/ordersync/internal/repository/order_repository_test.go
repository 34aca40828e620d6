package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ordersync/apps/ordersync/internal/model"
)

// openTestDB connects to the database named by TEST_DB_URL and applies the
// migration. Tests are skipped when the variable is unset so the unit suite
// stays runnable without Postgres.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DB_URL")
	if url == "" {
		t.Skip("TEST_DB_URL not set, skipping Postgres integration test")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := InitMigration(db); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	return db
}

func testOrder(identifier string, status model.Status) model.Order {
	seller := "0xseller"
	tokenID := "7141"
	return model.Order{
		Identifier:          identifier,
		TokenID:             &tokenID,
		Price:               decimal.NewNullDecimal(decimal.RequireFromString("2.5")),
		NFTContract:         "0xnft",
		MarketplaceContract: "0xmarket",
		Seller:              &seller,
		RawPayload:          json.RawMessage(`{"order_hash":"` + identifier + `"}`),
		Status:              status,
		Source:              "opensea",
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db, zap.NewNop())
	ctx := context.Background()

	identifier := "test-" + uuid.New().String()
	order := testOrder(identifier, model.StatusActive)

	if err := repo.Upsert(ctx, order); err != nil {
		t.Fatalf("Failed to upsert order: %v", err)
	}
	if err := repo.Upsert(ctx, order); err != nil {
		t.Fatalf("Failed to upsert order again: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE identifier = $1`, identifier).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one row after double upsert, got %d", count)
	}

	got, err := repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("order not found after upsert")
	}
	if got.Status != model.StatusActive {
		t.Errorf("status = %s", got.Status)
	}
	if !got.Price.Valid || !got.Price.Decimal.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("price = %v", got.Price)
	}
}

func TestUpsertNeverDowngradesTerminalStatus(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db, zap.NewNop())
	ctx := context.Background()

	identifier := "test-" + uuid.New().String()
	buyer := "0xbuyer"
	block := uint64(99)

	fulfilled := testOrder(identifier, model.StatusFulfilled)
	fulfilled.Buyer = &buyer
	fulfilled.OnChainBlock = &block
	fulfilled.Source = "chain"
	if err := repo.Upsert(ctx, fulfilled); err != nil {
		t.Fatalf("Failed to upsert fulfilled order: %v", err)
	}

	// A late listing snapshot replays the order as active; the guarded update
	// arm must leave the stored row completely untouched.
	stale := testOrder(identifier, model.StatusActive)
	if err := repo.Upsert(ctx, stale); err != nil {
		t.Fatalf("Rejected downgrade must still report success: %v", err)
	}

	got, err := repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusFulfilled {
		t.Fatalf("status = %s, fulfilled must not revert to active", got.Status)
	}
	if got.Buyer == nil || *got.Buyer != buyer {
		t.Errorf("buyer = %v, must survive the rejected write", got.Buyer)
	}
	if got.OnChainBlock == nil || *got.OnChainBlock != block {
		t.Errorf("on-chain block = %v, must survive the rejected write", got.OnChainBlock)
	}
	if got.Source != "chain" {
		t.Errorf("source = %s, must survive the rejected write", got.Source)
	}
}

func TestUpsertAllowsTerminalRewrite(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db, zap.NewNop())
	ctx := context.Background()

	identifier := "test-" + uuid.New().String()
	if err := repo.Upsert(ctx, testOrder(identifier, model.StatusFulfilled)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Upsert(ctx, testOrder(identifier, model.StatusCancelled)); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusCancelled {
		t.Fatalf("status = %s, a rescan may rewrite one terminal state to the other", got.Status)
	}
}

func TestUpsertKeepsEnrichedColumnsOnActiveRefresh(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db, zap.NewNop())
	ctx := context.Background()

	identifier := "test-" + uuid.New().String()
	image := "https://img.example/7141.png"
	first := testOrder(identifier, model.StatusActive)
	first.Image = &image
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatal(err)
	}

	// A refresh without the image must not blank the stored one.
	if err := repo.Upsert(ctx, testOrder(identifier, model.StatusActive)); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		t.Fatal(err)
	}
	if got.Image == nil || *got.Image != image {
		t.Fatalf("image = %v, enriched columns must survive a sparse refresh", got.Image)
	}
}

func TestGetByIdentifierReturnsNilForMissingOrder(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db, zap.NewNop())

	got, err := repo.GetByIdentifier(context.Background(), "test-"+uuid.New().String())
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil for a missing order, got %+v", got)
	}
}
