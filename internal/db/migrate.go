package db

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/store177/shop-backend/internal/app/model"
	"github.com/store177/shop-backend/pkg/logger"
)

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Product{},
		&model.Variant{},
		&model.ProductImage{},
		&model.Order{},
		&model.OrderLine{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	return MigrateDB(DB)
}

// MigrateDB migrates the given connection. Used by the server and by tests.
func MigrateDB(conn *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed creates a demo product when the catalog is empty
func Seed() error {
	return seedDemoCatalog(DB)
}

func seedDemoCatalog(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&model.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Catalog already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	logger.Info("Seeding demo catalog...")

	product := model.Product{
		ID:        uuid.NewString(),
		Title:     "iPhone 15",
		Brand:     "Apple",
		Condition: model.ConditionNew,
		BasePrice: 79990,
		IsActive:  true,
		OptionGroups: []model.OptionGroup{{
			ID:        "mem",
			Name:      "Память",
			InputType: model.InputSelect,
			Required:  true,
			Values:    []model.OptionValue{{ID: "128GB", Label: "128GB"}, {ID: "256GB", Label: "256GB"}},
		}},
	}

	return conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			logger.Error("Failed to create demo product", err)
			return err
		}
		variants := []model.Variant{
			{ID: uuid.NewString(), ProductID: product.ID, Selections: model.Selections{"mem": model.One("128GB")},
				Signature: "mem:128GB", Pricing: model.Pricing{Mode: model.PricingFinal, Amount: 79990}, Stock: 3, IsActive: true, Position: 0},
			{ID: uuid.NewString(), ProductID: product.ID, Selections: model.Selections{"mem": model.One("256GB")},
				Signature: "mem:256GB", Pricing: model.Pricing{Mode: model.PricingDelta, Amount: 10000}, Stock: 1, IsActive: true, Position: 1},
		}
		if err := tx.Create(&variants).Error; err != nil {
			logger.Error("Failed to create demo variants", err)
			return err
		}
		logger.Info("Demo catalog seeded", map[string]interface{}{
			"product_id": product.ID,
			"variants":   len(variants),
		})
		return nil
	})
}
