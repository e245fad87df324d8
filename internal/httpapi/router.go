package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/headlineagentur/webportal/internal/common"
	"github.com/headlineagentur/webportal/internal/config"
	"github.com/headlineagentur/webportal/internal/httpapi/handlers"
	"github.com/headlineagentur/webportal/internal/httpapi/middleware"
	"github.com/headlineagentur/webportal/internal/leads"
	"github.com/headlineagentur/webportal/internal/store/redisstore"
	"github.com/headlineagentur/webportal/internal/upload"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, uploads *upload.Saver, notifier leads.Notifier) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Chat-Token", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.EnsureCSRF())

	h := handlers.NewHandler(db, cfg, rds, uploads, notifier)

	// 20 requests per 15 minutes and client, separate budgets per concern
	authLimit := middleware.RateLimit(45*time.Second, 20)
	adminLoginLimit := middleware.RateLimit(45*time.Second, 20)
	submitLimit := middleware.RateLimit(45*time.Second, 20)

	r.GET("/ping", h.Ping)

	// public site API; form/chat mutations need the DB and the CSRF token
	api := r.Group("/api")
	api.Use(middleware.RequireDB(db))

	api.POST("/captcha", h.NewCaptcha)

	api.GET("/jobs", h.ListJobs)
	api.GET("/jobs/:slug", h.JobBySlug)

	public := api.Group("/")
	public.Use(middleware.ValidateCSRF())
	public.Use(submitLimit)
	public.POST("/leads/contact", h.SubmitContact)
	public.POST("/leads/application", h.SubmitApplication)
	public.POST("/leads/newsletter", h.SubmitNewsletter)

	// visitor chat widget
	api.GET("/chat/sessions/:chat_id/messages", h.VisitorMessages)
	api.GET("/chat/files/:file_id", h.DownloadChatFile)
	chatMut := api.Group("/chat")
	chatMut.Use(middleware.ValidateCSRF())
	chatMut.POST("/start", h.StartChat)
	chatMut.POST("/sessions/:chat_id/messages", h.PostVisitorMessage)

	// account area (JWT)
	account := r.Group("/account")
	account.Use(middleware.RequireDB(db))
	account.POST("/register", authLimit, h.Register)
	account.POST("/login", authLimit, h.Login)
	authed := account.Group("/")
	authed.Use(middleware.AuthRequired(cfg.JWTSecret))
	authed.GET("/me", h.Me)
	authed.POST("/me", h.UpdateProfile)
	authed.POST("/documents", h.UploadDocument)
	authed.GET("/documents/:id", h.DownloadDocument)

	// admin panel (admin JWT)
	r.POST("/admin/login", middleware.RequireDB(db), adminLoginLimit, h.AdminLogin)
	admin := r.Group("/admin")
	admin.Use(middleware.RequireDB(db))
	admin.Use(middleware.AdminRequired(cfg.JWTSecret))

	admin.GET("/chats", h.AdminListChats)
	admin.GET("/chats/:id", h.AdminChatDetail)
	admin.POST("/chats/:id/messages", h.AdminPostChatMessage)
	admin.POST("/chats/:id/status", h.AdminSetChatStatus)
	admin.DELETE("/chats", h.AdminDeleteChats)

	admin.GET("/leads", h.AdminListLeads)
	admin.GET("/leads/:id", h.AdminLeadDetail)
	admin.POST("/leads/:id/status", h.AdminSetLeadStatus)
	admin.POST("/leads/:id/notes", h.AdminAddLeadNote)
	admin.DELETE("/leads", h.AdminDeleteLeads)
	admin.GET("/leads-export.csv", h.AdminExportLeadsCSV)

	admin.GET("/users", h.AdminListUsers)
	admin.GET("/users/:id", h.AdminUserDetail)
	admin.DELETE("/users", h.AdminDeleteUsers)

	admin.GET("/job-facts", h.AdminJobFacts)
	admin.POST("/job-facts", h.AdminSaveJobFacts)
	admin.POST("/jobs", h.AdminUpsertJob)
	admin.DELETE("/jobs/:slug", h.AdminDeleteJob)

	return r
}
