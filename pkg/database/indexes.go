package database

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// listIndexes back the filters and sorts list endpoints use most.
var listIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_bootcamps_careers_gin ON bootcamps USING GIN (careers jsonb_ops);",
	"CREATE INDEX IF NOT EXISTS idx_bootcamps_location ON bootcamps(latitude, longitude) WHERE latitude IS NOT NULL AND longitude IS NOT NULL;",
	"CREATE INDEX IF NOT EXISTS idx_bootcamps_average_cost ON bootcamps(average_cost);",
	"CREATE INDEX IF NOT EXISTS idx_bootcamps_created_at ON bootcamps(created_at DESC);",
	"CREATE INDEX IF NOT EXISTS idx_courses_bootcamp_tuition ON courses(bootcamp_id, tuition);",
	"CREATE INDEX IF NOT EXISTS idx_courses_created_at ON courses(created_at DESC);",
	"CREATE INDEX IF NOT EXISTS idx_reviews_bootcamp_rating ON reviews(bootcamp_id, rating);",
	"CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC);",
}

// EnsureIndexes creates the secondary indexes. Failures are logged and skipped
// so a missing extension never blocks start-up. It returns how many were applied.
func EnsureIndexes(ctx context.Context, db *gorm.DB, log *zap.Logger) int {
	applied := 0
	for _, stmt := range listIndexes {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			log.Warn("Failed to create index", zap.String("sql", stmt), zap.Error(err))
			continue
		}
		applied++
	}
	log.Info("Database indexes ensured", zap.Int("applied", applied), zap.Int("total", len(listIndexes)))
	return applied
}
