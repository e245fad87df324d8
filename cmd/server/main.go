package main

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/headlineagentur/webportal/internal/auth"
	"github.com/headlineagentur/webportal/internal/config"
	"github.com/headlineagentur/webportal/internal/db"
	"github.com/headlineagentur/webportal/internal/httpapi"
	"github.com/headlineagentur/webportal/internal/jobs"
	"github.com/headlineagentur/webportal/internal/leads"
	"github.com/headlineagentur/webportal/internal/models"
	"github.com/headlineagentur/webportal/internal/store/rabbitmq"
	"github.com/headlineagentur/webportal/internal/store/redisstore"
	"github.com/headlineagentur/webportal/internal/upload"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := seedAdmin(ctx, gdb, cfg); err != nil {
		log.Fatalf("admin seed: %v", err)
	}
	if err := jobs.NewService(jobs.NewRepo(gdb)).SeedDefaults(ctx); err != nil {
		log.Fatalf("jobs seed: %v", err)
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rds.Ping(ctx); err != nil {
		log.Printf("redis not reachable at startup: %v", err)
	}

	var notifier leads.Notifier
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		// lead capture still works, notifications are just skipped
		log.Printf("rabbit not reachable, lead notifications disabled: %v", err)
	} else {
		defer pub.Close()
		notifier = pub
	}

	uploads, err := upload.NewSaver(cfg.UploadDir)
	if err != nil {
		log.Fatalf("upload dir: %v", err)
	}

	r := httpapi.NewRouter(gdb, cfg, rds, uploads, notifier)

	log.Printf("listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// seedAdmin inserts the bootstrap admin account when ADMIN_EMAIL and
// ADMIN_PASSWORD are set and no row with that email exists yet.
func seedAdmin(ctx context.Context, gdb *gorm.DB, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	emailAddr := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	var existing models.AdminUser
	err := gdb.WithContext(ctx).Where("email = ?", emailAddr).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	username := emailAddr
	if i := strings.IndexByte(username, '@'); i > 0 {
		username = username[:i]
	}

	admin := models.AdminUser{
		Email:        emailAddr,
		Username:     username,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
	}
	if err := gdb.WithContext(ctx).Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("seeded admin account email=%s", emailAddr)
	return nil
}
