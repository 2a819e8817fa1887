package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dermalens-server-go/internal/platform/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := testDB.AutoMigrate(&AnalysisRecord{}, &AuditEvent{}); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return testDB
}

func TestAnalysisRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(newTestDB(t))

	record := &AnalysisRecord{
		ImageName: "cheek.jpg",
		Result:    datatypes.JSON([]byte(`{"diagnosis":"acne","confidence":80}`)),
		Notes:     "left cheek",
	}
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if record.ID == 0 {
		t.Fatal("expected generated id")
	}

	got, err := repo.FindByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.ImageName != "cheek.jpg" {
		t.Errorf("unexpected image name: %s", got.ImageName)
	}
	if got.ReferToDerm {
		t.Error("referToDerm should default to false")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("expected store-managed timestamps")
	}
}

func TestAnalysisRepository_FindMissing(t *testing.T) {
	repo := NewAnalysisRepository(newTestDB(t))

	_, err := repo.FindByID(context.Background(), 12345)
	if !errors.IsKind(err, errors.KindNotFound) {
		t.Fatalf("expected notfound error, got %v", err)
	}
}

func TestAnalysisRepository_ListNewestFirstCapped(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(newTestDB(t))

	for i := 0; i < MaxListSize+5; i++ {
		record := &AnalysisRecord{
			Result: datatypes.JSON([]byte(fmt.Sprintf(`{"seq":%d}`, i))),
		}
		if err := repo.Create(ctx, record); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	records, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(records) != MaxListSize {
		t.Fatalf("expected list capped at %d, got %d", MaxListSize, len(records))
	}
	if records[0].ID <= records[1].ID {
		t.Errorf("expected newest first, got ids %d then %d", records[0].ID, records[1].ID)
	}
}

func TestAnalysisRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(newTestDB(t))

	record := &AnalysisRecord{Result: datatypes.JSON([]byte(`{"x":1}`))}
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := repo.Delete(ctx, record.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(ctx, record.ID); !errors.IsKind(err, errors.KindNotFound) {
		t.Fatalf("expected notfound on second delete, got %v", err)
	}
}

func TestAuditRepository_Append(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepository(newTestDB(t))

	payload := map[string]any{"analysisId": 7, "imageName": "arm.png"}
	if err := repo.Append(ctx, "analysis:created", payload); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	events, err := repo.Recent(ctx, "analysis:created", 10)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].EventType != "analysis:created" {
		t.Errorf("unexpected event type: %s", events[0].EventType)
	}
}
