package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"payrelay/internal/database"
	"payrelay/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func TestCreateAndLookups(t *testing.T) {
	repo := NewPaymentRepository(openTestDB(t))

	p := &models.Payment{
		MollieID:       strPtr("tr_1"),
		IdempotencyKey: strPtr("key-1"),
		Amount:         10.00,
		Currency:       "EUR",
		Status:         "open",
	}
	if err := repo.Create(p); err != nil {
		t.Fatalf("create: %v", err)
	}

	byMollie, err := repo.GetByMollieID("tr_1")
	if err != nil {
		t.Fatalf("get by mollie_id: %v", err)
	}
	byKey, err := repo.GetByIdempotencyKey("key-1")
	if err != nil {
		t.Fatalf("get by idempotency_key: %v", err)
	}
	if byMollie.ID != p.ID || byKey.ID != p.ID {
		t.Fatalf("lookups disagree: %d / %d / %d", p.ID, byMollie.ID, byKey.ID)
	}
}

func TestLookupMissing(t *testing.T) {
	repo := NewPaymentRepository(openTestDB(t))

	if _, err := repo.GetByMollieID("tr_nope"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
	if _, err := repo.GetByIdempotencyKey("nope"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestDuplicateKeysRejected(t *testing.T) {
	repo := NewPaymentRepository(openTestDB(t))

	if err := repo.Create(&models.Payment{MollieID: strPtr("tr_1"), IdempotencyKey: strPtr("key-1"), Status: "open"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := repo.Create(&models.Payment{MollieID: strPtr("tr_1"), Status: "open"})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("duplicate mollie_id: err = %v, want ErrDuplicatedKey", err)
	}
	err = repo.Create(&models.Payment{IdempotencyKey: strPtr("key-1"), Status: "open"})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("duplicate idempotency_key: err = %v, want ErrDuplicatedKey", err)
	}
}

func TestNullKeysDoNotCollide(t *testing.T) {
	repo := NewPaymentRepository(openTestDB(t))

	// Records created from bare webhooks have no idempotency key; several of
	// them must coexist under the unique index.
	for i := 0; i < 3; i++ {
		p := &models.Payment{MollieID: strPtr(fmt.Sprintf("tr_%d", i)), Status: "open"}
		if err := repo.Create(p); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	n, err := repo.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}
}

func TestListNewestFirst(t *testing.T) {
	repo := NewPaymentRepository(openTestDB(t))

	first := &models.Payment{MollieID: strPtr("tr_old"), Status: "open"}
	if err := repo.Create(first); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := &models.Payment{MollieID: strPtr("tr_new"), Status: "open"}
	if err := repo.Create(second); err != nil {
		t.Fatalf("create: %v", err)
	}
	first.Status = "paid"
	if err := repo.Update(first); err != nil {
		t.Fatalf("update: %v", err)
	}

	list, err := repo.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if *list[0].MollieID != "tr_old" {
		t.Fatalf("most recently updated should come first, got %s", *list[0].MollieID)
	}

	list, err = repo.List(1)
	if err != nil {
		t.Fatalf("list limit: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("limit ignored, len = %d", len(list))
	}
}
