package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/headlineagentur/webportal/internal/chat"
	"github.com/headlineagentur/webportal/internal/common"
	"github.com/headlineagentur/webportal/internal/config"
	"github.com/headlineagentur/webportal/internal/email"
	"github.com/headlineagentur/webportal/internal/jobs"
	"github.com/headlineagentur/webportal/internal/leads"
	"github.com/headlineagentur/webportal/internal/store/redisstore"
	"github.com/headlineagentur/webportal/internal/upload"
)

type Handler struct {
	DB          *gorm.DB
	Cfg         config.Config
	Redis       *redisstore.Store
	SMTPSetting email.SMTPConfig
	Uploads     *upload.Saver

	ChatSvc *chat.Service
	LeadSvc *leads.Service
	JobSvc  *jobs.Service
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, uploads *upload.Saver, notifier leads.Notifier) *Handler {
	return &Handler{
		DB:    db,
		Cfg:   cfg,
		Redis: rds,
		SMTPSetting: email.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		},
		Uploads: uploads,
		ChatSvc: chat.NewService(chat.NewRepo(db), uploads),
		LeadSvc: leads.NewService(leads.NewRepo(db), notifier),
		JobSvc:  jobs.NewService(jobs.NewRepo(db)),
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"status": "ok"})
}
