package testutil

import (
	"os"
	"testing"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/qs3c/listing_sub_server/internal/model"
)

func openTestDB(t *testing.T, dialector gorm.Dialector) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// SetupTestDB SQLite 内存库，每个测试独立
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := openTestDB(t, sqlite.Open(":memory:"))
	// 内存库按连接隔离，只能用一个连接
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("underlying db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db
}

// SetupTestDBWithMySQL 需要 TEST_DATABASE_DSN，未设置时跳过
func SetupTestDBWithMySQL(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db := openTestDB(t, mysql.Open(dsn))
	TruncateTables(t, db)
	return db
}

func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	if err != nil {
		t.Logf("close test db: %v", err)
	}
}

// TruncateTables 按依赖逆序清空全部业务表
func TruncateTables(t *testing.T, db *gorm.DB) {
	t.Helper()

	models := model.All()
	tx := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for i := len(models) - 1; i >= 0; i-- {
		if err := tx.Delete(models[i]).Error; err != nil {
			t.Logf("truncate %T: %v", models[i], err)
		}
	}
}
