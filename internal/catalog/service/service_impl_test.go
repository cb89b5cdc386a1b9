package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
)

func setupCatalogService(t *testing.T) (catalogdomain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if err := db.AutoMigrate(&catalogdomain.Definition{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	def := catalogdomain.Definition{
		ID:     node.Generate(),
		Type:   catalogdomain.ServiceTextWriter,
		Name:   "AI Text Writer",
		Status: catalogdomain.ServiceStatusActive,
	}
	if err := db.Create(&def).Error; err != nil {
		t.Fatalf("seed definition: %v", err)
	}

	return NewService(ServiceParam{DB: db, Log: zap.NewNop()}), db
}

func loadDefinition(t *testing.T, db *gorm.DB) catalogdomain.Definition {
	t.Helper()
	var def catalogdomain.Definition
	if err := db.First(&def, "type = ?", catalogdomain.ServiceTextWriter).Error; err != nil {
		t.Fatalf("load definition: %v", err)
	}
	return def
}

func TestRecordAttemptAccumulatesStatistics(t *testing.T) {
	svc, db := setupCatalogService(t)
	ctx := context.Background()

	attempts := []catalogdomain.Attempt{
		{ServiceType: catalogdomain.ServiceTextWriter, Success: true, Usage: 100, DurationMs: 200},
		{ServiceType: catalogdomain.ServiceTextWriter, Success: true, Usage: 50, DurationMs: 400},
		{ServiceType: catalogdomain.ServiceTextWriter, Success: false, DurationMs: 600},
	}
	for i, attempt := range attempts {
		if err := svc.RecordAttempt(ctx, attempt); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}

	def := loadDefinition(t, db)
	if def.TotalRequests != 3 {
		t.Fatalf("expected 3 total requests, got %d", def.TotalRequests)
	}
	if def.SuccessfulRequests != 2 || def.FailedRequests != 1 {
		t.Fatalf("expected 2 successes and 1 failure, got %d/%d", def.SuccessfulRequests, def.FailedRequests)
	}
	if def.TotalUsage != 150 {
		t.Fatalf("failures must not add usage, got %d", def.TotalUsage)
	}
	if def.AverageResponseTimeMs != 400 {
		t.Fatalf("expected running average 400ms, got %f", def.AverageResponseTimeMs)
	}
}

func TestRecordAttemptUnknownService(t *testing.T) {
	svc, _ := setupCatalogService(t)

	err := svc.RecordAttempt(context.Background(), catalogdomain.Attempt{
		ServiceType: catalogdomain.ServiceType("ai_video_maker"),
		Success:     true,
	})
	if err != catalogdomain.ErrServiceNotFound {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}

	if err := svc.RecordAttempt(context.Background(), catalogdomain.Attempt{}); err != catalogdomain.ErrInvalidServiceType {
		t.Fatalf("expected ErrInvalidServiceType, got %v", err)
	}
}

func TestGetByTypeRefreshesAfterAttempt(t *testing.T) {
	svc, _ := setupCatalogService(t)
	ctx := context.Background()

	before, err := svc.GetByType(ctx, catalogdomain.ServiceTextWriter)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if before.TotalRequests != 0 {
		t.Fatalf("expected fresh definition, got %d requests", before.TotalRequests)
	}

	if err := svc.RecordAttempt(ctx, catalogdomain.Attempt{
		ServiceType: catalogdomain.ServiceTextWriter,
		Success:     true,
		Usage:       10,
		DurationMs:  100,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	// RecordAttempt invalidates the cached definition.
	after, err := svc.GetByType(ctx, catalogdomain.ServiceTextWriter)
	if err != nil {
		t.Fatalf("get after attempt: %v", err)
	}
	if after.TotalRequests != 1 {
		t.Fatalf("expected refreshed statistics, got %d requests", after.TotalRequests)
	}

	if _, err := svc.GetByType(ctx, catalogdomain.ServiceImageGenerator); err != catalogdomain.ErrServiceNotFound {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}
