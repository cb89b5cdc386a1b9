// Package seed bootstraps the schema, plan catalog and service registry.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
	plandomain "github.com/scribehq/scribe/internal/plan/domain"
	subscriptiondomain "github.com/scribehq/scribe/internal/subscription/domain"
	usagedomain "github.com/scribehq/scribe/internal/usage/domain"
)

// Migrate creates or updates the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	return db.AutoMigrate(
		&plandomain.Plan{},
		&catalogdomain.Definition{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.Trial{},
		&usagedomain.UsageRecord{},
	)
}

// EnsurePlans inserts the default plan catalog when no plans exist.
func EnsurePlans(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&plandomain.Plan{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		plans := defaultPlans(node, now)
		return tx.Create(&plans).Error
	})
}

// EnsureServices registers the metered services when missing.
func EnsureServices(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	now := time.Now().UTC()
	definitions := []catalogdomain.Definition{
		{
			ID:          node.Generate(),
			Type:        catalogdomain.ServiceTextWriter,
			Name:        "AI Text Writer",
			Description: "Generate high-quality text content for blogs, social media, emails, and more",
			Category:    "AI Content Generation",
			Status:      catalogdomain.ServiceStatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          node.Generate(),
			Type:        catalogdomain.ServiceImageGenerator,
			Name:        "AI Image Generator",
			Description: "Generate images from text prompts",
			Category:    "AI Content Generation",
			Status:      catalogdomain.ServiceStatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, def := range definitions {
			var existing catalogdomain.Definition
			err := tx.Where("type = ?", def.Type).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err := tx.Create(&def).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func defaultPlans(node *snowflake.Node, now time.Time) []plandomain.Plan {
	unlimited := int64(999999999)

	return []plandomain.Plan{
		{
			ID:          node.Generate(),
			Type:        plandomain.PlanFree,
			Name:        "Free Plan",
			Description: "Perfect for trying out our AI services with basic features",
			Features: datatypes.NewJSONType(plandomain.FeatureSet{
				TextWriter:     plandomain.FeatureLimit{Enabled: true, WordsPerDay: 500, RequestsPerDay: 10},
				ImageGenerator: plandomain.FeatureLimit{Enabled: true, ImagesPerDay: 3, RequestsPerDay: 3},
			}),
			Status:       plandomain.PlanStatusActive,
			DisplayOrder: 1,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:          node.Generate(),
			Type:        plandomain.PlanTrial,
			Name:        "Trial",
			Description: "Seven days of elevated limits to evaluate the platform",
			Trial: datatypes.NewJSONType(plandomain.TrialSettings{
				Enabled:      true,
				DurationDays: 7,
				Limits: plandomain.FeatureSet{
					TextWriter:     plandomain.FeatureLimit{Enabled: true, WordsPerDay: 1000, RequestsPerDay: 10},
					ImageGenerator: plandomain.FeatureLimit{Enabled: true, ImagesPerDay: 5, RequestsPerDay: 5},
				},
			}),
			Status:       plandomain.PlanStatusActive,
			DisplayOrder: 2,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:                node.Generate(),
			Type:              plandomain.PlanBasic,
			Name:              "Basic Plan",
			Description:       "Perfect for individuals and small teams getting started with AI",
			MonthlyPriceCents: 999,
			YearlyPriceCents:  9999,
			Features: datatypes.NewJSONType(plandomain.FeatureSet{
				TextWriter:     plandomain.FeatureLimit{Enabled: true, WordsPerDay: 10000, RequestsPerDay: 100},
				ImageGenerator: plandomain.FeatureLimit{Enabled: true, ImagesPerDay: 50, RequestsPerDay: 50},
			}),
			Status:       plandomain.PlanStatusActive,
			DisplayOrder: 3,
			Popular:      true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:                node.Generate(),
			Type:              plandomain.PlanPro,
			Name:              "Pro Plan",
			Description:       "Advanced features for growing businesses and power users",
			MonthlyPriceCents: 2999,
			YearlyPriceCents:  29999,
			Features: datatypes.NewJSONType(plandomain.FeatureSet{
				TextWriter:     plandomain.FeatureLimit{Enabled: true, WordsPerDay: 50000, RequestsPerDay: 500},
				ImageGenerator: plandomain.FeatureLimit{Enabled: true, ImagesPerDay: 150, RequestsPerDay: 150},
			}),
			Status:       plandomain.PlanStatusActive,
			DisplayOrder: 4,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:                node.Generate(),
			Type:              plandomain.PlanEnterprise,
			Name:              "Enterprise Plan",
			Description:       "Unlimited access with premium support",
			MonthlyPriceCents: 9999,
			YearlyPriceCents:  99999,
			Features: datatypes.NewJSONType(plandomain.FeatureSet{
				TextWriter:     plandomain.FeatureLimit{Enabled: true, WordsPerDay: unlimited, RequestsPerDay: unlimited},
				ImageGenerator: plandomain.FeatureLimit{Enabled: true, ImagesPerDay: unlimited, RequestsPerDay: unlimited},
			}),
			Status:       plandomain.PlanStatusActive,
			DisplayOrder: 5,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}
