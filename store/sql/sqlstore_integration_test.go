package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-banksync/core"
	banksyncmigrations "github.com/goliatone/go-banksync/migrations"
	sqlstore "github.com/goliatone/go-banksync/store/sql"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-banksync-tests"
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:banksync-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = banksyncmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != banksyncmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, banksyncmigrations.WithValidationTargets(banksyncmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func newStoreFactory(t *testing.T) (*sqlstore.RepositoryFactory, func()) {
	t.Helper()
	client, cleanup := newSQLiteClient(t)
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		cleanup()
		t.Fatalf("new repository factory: %v", err)
	}
	return factory, cleanup
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{"bank_tokens", "bank_accounts", "bank_transactions"} {
		var tableName string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &tableName); err != nil {
			t.Fatalf("query sqlite master for %s: %v", table, err)
		}
		if tableName != table {
			t.Fatalf("expected %s table, got %q", table, tableName)
		}
	}
}

func TestTokenStore_UpsertReplacesByUserID(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newStoreFactory(t)
	defer cleanup()

	store := factory.TokenStore()
	first := core.Token{
		UserID:       "user_1",
		ExpiryTime:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		TokenType:    "Bearer",
		AccessToken:  "access_1",
		RefreshToken: "refresh_1",
	}
	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("upsert token: %v", err)
	}

	rotated := first
	rotated.AccessToken = "access_2"
	rotated.RefreshToken = "refresh_2"
	rotated.ExpiryTime = first.ExpiryTime.Add(6 * time.Hour)
	if err := store.Upsert(ctx, rotated); err != nil {
		t.Fatalf("upsert rotated token: %v", err)
	}

	tokens, err := store.All(ctx)
	if err != nil {
		t.Fatalf("list tokens: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("expected a single row per user, got %d", len(tokens))
	}
	if tokens[0].AccessToken != "access_2" || tokens[0].RefreshToken != "refresh_2" {
		t.Fatalf("expected replaced credentials, got %+v", tokens[0])
	}
	if !tokens[0].ExpiryTime.Equal(rotated.ExpiryTime) {
		t.Fatalf("expected replaced expiry, got %v", tokens[0].ExpiryTime)
	}
}

func TestTokenStore_ExpiringBefore(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newStoreFactory(t)
	defer cleanup()

	store := factory.TokenStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	seed := func(userID string, expiry time.Time) {
		if err := store.Upsert(ctx, core.Token{
			UserID:      userID,
			AccessToken: "access_" + userID,
			ExpiryTime:  expiry,
		}); err != nil {
			t.Fatalf("seed token: %v", err)
		}
	}
	seed("due_now", base.Add(10*time.Minute))
	seed("due_soon", base.Add(45*time.Minute))
	seed("healthy", base.Add(5*time.Hour))

	expiring, err := store.ExpiringBefore(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("expiring before: %v", err)
	}
	if len(expiring) != 2 {
		t.Fatalf("expected 2 expiring tokens, got %d", len(expiring))
	}
	if expiring[0].UserID != "due_now" || expiring[1].UserID != "due_soon" {
		t.Fatalf("expected soonest-first ordering, got %v", expiring)
	}
}

func TestAccountStore_UpsertAndIDsForUser(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newStoreFactory(t)
	defer cleanup()

	store := factory.AccountStore()
	created := time.Date(2023, 1, 15, 8, 0, 0, 0, time.UTC)
	for _, account := range []core.Account{
		{ID: "acc_1", UserID: "user_1", Description: "Current", Created: created},
		{ID: "acc_2", UserID: "user_1", Description: "Joint", Created: created},
		{ID: "acc_3", UserID: "user_2", Description: "Other", Created: created},
	} {
		if err := store.Upsert(ctx, account); err != nil {
			t.Fatalf("upsert account: %v", err)
		}
	}

	// Re-upsert with a changed description must not duplicate the row.
	if err := store.Upsert(ctx, core.Account{
		ID: "acc_1", UserID: "user_1", Description: "Current renamed", Created: created,
	}); err != nil {
		t.Fatalf("re-upsert account: %v", err)
	}

	ids, err := store.IDsForUser(ctx, "user_1")
	if err != nil {
		t.Fatalf("ids for user: %v", err)
	}
	if len(ids) != 2 || ids[0] != "acc_1" || ids[1] != "acc_2" {
		t.Fatalf("unexpected account ids %v", ids)
	}

	accounts, err := factory.Accounts().ForUser(ctx, "user_1")
	if err != nil {
		t.Fatalf("accounts for user: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	for _, account := range accounts {
		if account.ID == "acc_1" && account.Description != "Current renamed" {
			t.Fatalf("expected updated description, got %q", account.Description)
		}
	}
}

func TestTransactionStore_IdempotentUpsertAndRead(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newStoreFactory(t)
	defer cleanup()

	store := factory.TransactionStore()
	created := time.Date(2024, 4, 30, 9, 15, 0, 0, time.UTC)
	merchant := "merch_1"
	transaction := core.Transaction{
		ID:        "tx_1",
		AccountID: "acc_1",
		Amount:    -350,
		Currency:  "GBP",
		Merchant:  &merchant,
		Created:   created,
	}
	if _, err := store.Upsert(ctx, transaction); err != nil {
		t.Fatalf("upsert transaction: %v", err)
	}

	// Settlement arriving by push updates the same row.
	settled := created.Add(24 * time.Hour)
	transaction.Settled = &settled
	if _, err := store.Upsert(ctx, transaction); err != nil {
		t.Fatalf("re-upsert transaction: %v", err)
	}

	if _, err := store.Upsert(ctx, core.Transaction{
		ID:        "tx_2",
		AccountID: "acc_1",
		Amount:    1000,
		Currency:  "GBP",
		Created:   created.Add(time.Hour),
	}); err != nil {
		t.Fatalf("upsert second transaction: %v", err)
	}
	if _, err := store.Upsert(ctx, core.Transaction{
		ID:        "tx_other",
		AccountID: "acc_other",
		Amount:    5,
		Currency:  "GBP",
		Created:   created,
	}); err != nil {
		t.Fatalf("upsert foreign transaction: %v", err)
	}

	transactions, err := store.ForAccounts(ctx, []string{"acc_1"})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(transactions) != 2 {
		t.Fatalf("expected 2 rows for acc_1, got %d", len(transactions))
	}
	if transactions[0].ID != "tx_2" {
		t.Fatalf("expected newest-first ordering, got %v", transactions)
	}
	for _, row := range transactions {
		if row.ID != "tx_1" {
			continue
		}
		if row.Settled == nil || !row.Settled.Equal(settled) {
			t.Fatalf("expected settled update applied, got %v", row.Settled)
		}
		if row.Merchant == nil || *row.Merchant != "merch_1" {
			t.Fatalf("expected merchant preserved, got %v", row.Merchant)
		}
	}

	empty, err := store.ForAccounts(ctx, nil)
	if err != nil {
		t.Fatalf("list with no accounts: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no rows for empty account set, got %d", len(empty))
	}
}

func TestRepositoryFactory_ServesCoreContracts(t *testing.T) {
	factory, cleanup := newStoreFactory(t)
	defer cleanup()

	var provider core.StoreProvider = factory
	if provider.TokenStore() == nil || provider.AccountStore() == nil || provider.TransactionStore() == nil {
		t.Fatalf("expected all stores built")
	}

	rebuilt, err := factory.BuildStores(nil)
	if err != nil {
		t.Fatalf("rebuild with cached db: %v", err)
	}
	if rebuilt != factory {
		t.Fatalf("expected factory to reuse built stores")
	}
}
