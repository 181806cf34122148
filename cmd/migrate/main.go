package main

import (
	"context"
	"flag"
	"time"

	"atr-bknd/internal/config"
	"atr-bknd/internal/database"
	"atr-bknd/internal/logger"
	"atr-bknd/internal/models"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	seed := flag.Bool("seed", false, "insert a demo user, demo ROIs and a demo ATR model after migrating")
	flag.Parse()

	cfg := config.Load()
	logr := logger.New(cfg)

	db, err := database.New(cfg.DatabaseURL, cfg)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := createTables(ctx, db); err != nil {
		logr.Fatal("migration failed", zap.Error(err))
	}
	logr.Info("migration complete")

	if *seed {
		if err := seedDemoData(ctx, db); err != nil {
			logr.Fatal("seeding failed", zap.Error(err))
		}
		logr.Info("seed data inserted")
	}
}

func createTables(ctx context.Context, db *bun.DB) error {
	tables := []any{
		(*models.User)(nil),
		(*models.RefreshToken)(nil),
		(*models.ROI)(nil),
		(*models.ATRModel)(nil),
		(*models.AnalysisJob)(nil),
		(*models.AnalysisResult)(nil),
	}
	for _, t := range tables {
		if _, err := db.NewCreateTable().Model(t).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func seedDemoData(ctx context.Context, db *bun.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		Email:        "demo@atr.local",
		PasswordHash: string(hash),
		Name:         "Demo User",
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(user).
		On("CONFLICT (email) DO NOTHING").
		Exec(ctx); err != nil {
		return err
	}
	if user.ID == 0 {
		// Already seeded on a previous run; look the user up for FK wiring.
		if err := db.NewSelect().Model(user).Where("email = ?", user.Email).Scan(ctx); err != nil {
			return err
		}
	}

	propertyName := "Fazenda Santa Rita"
	property := &models.ROI{
		UserID:       user.ID,
		Name:         propertyName,
		ROIType:      models.ROITypeProperty,
		PropertyName: &propertyName,
		Geometry:     `{"type":"Polygon","coordinates":[[[-48.1,-21.2],[-48.0,-21.2],[-48.0,-21.1],[-48.1,-21.1],[-48.1,-21.2]]]}`,
		Metadata:     `{"area_total_ha": 420.5}`,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(property).Exec(ctx); err != nil {
		return err
	}

	plotName := "Talhao 01"
	plot := &models.ROI{
		UserID:       user.ID,
		Name:         plotName,
		ROIType:      models.ROITypePlot,
		ParentROIID:  &property.ID,
		PropertyName: &propertyName,
		PlotName:     &plotName,
		Geometry:     `{"type":"Polygon","coordinates":[[[-48.09,-21.19],[-48.05,-21.19],[-48.05,-21.15],[-48.09,-21.15],[-48.09,-21.19]]]}`,
		Metadata:     `{"area_ha": 35.2, "variety": "RB867515"}`,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(plot).Exec(ctx); err != nil {
		return err
	}

	description := "Linear ATR regressor trained on July acquisitions"
	model := &models.ATRModel{
		Name:           "ATR RB867515 July",
		Description:    &description,
		ReferenceMonth: "2025-07-01",
		Variety:        "RB867515",
		Active:         true,
		RegressorPath:  "artifacts/atr_rb867515_jul/regressor.json",
		StatsPath:      "artifacts/atr_rb867515_jul/stats.json",
		FeaturesPath:   "artifacts/atr_rb867515_jul/features.json",
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(model).Exec(ctx); err != nil {
		return err
	}

	return nil
}
