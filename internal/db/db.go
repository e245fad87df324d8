package db

import (
	"context"
	"log"
	"time"

	"github.com/headlineagentur/webportal/internal/chat"
	"github.com/headlineagentur/webportal/internal/jobs"
	"github.com/headlineagentur/webportal/internal/leads"
	"github.com/headlineagentur/webportal/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return gdb
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.AdminUser{},
		&models.UserDocument{},
		&chat.Chat{},
		&chat.Message{},
		&chat.Attachment{},
		&leads.Lead{},
		&leads.LeadNote{},
		&jobs.JobPosting{},
		&jobs.Setting{},
	)
}

// Ping reports whether the durable store is reachable. Handlers behind the
// RequireDB middleware return 503 instead of accepting writes they cannot
// persist.
func Ping(ctx context.Context, gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, 800*time.Millisecond)
	defer cancel()
	return sqlDB.PingContext(cctx)
}
