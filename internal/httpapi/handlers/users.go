package handlers

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/headlineagentur/webportal/internal/auth"
	"github.com/headlineagentur/webportal/internal/common"
	"github.com/headlineagentur/webportal/internal/email"
	"github.com/headlineagentur/webportal/internal/httpapi/middleware"
	"github.com/headlineagentur/webportal/internal/models"
)

var docTypes = map[string]bool{
	"id_card":        true,
	"bank_statement": true,
	"payslip":        true,
	"other":          true,
}

type registerReq struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Mobile        string `json:"mobile"`
	Address       string `json:"address"`
	Zip           string `json:"zip"`
	City          string `json:"city"`
	Country       string `json:"country"`
	BirthDate     string `json:"birth_date"`
	CaptchaID     string `json:"captcha_id"`
	CaptchaAnswer string `json:"captcha_answer"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if err := h.checkCaptcha(c, req.CaptchaID, req.CaptchaAnswer); err != nil {
		failCaptcha(c, err)
		return
	}

	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if emailAddr == "" || first == "" || last == "" || len(req.Password) < 8 {
		common.Fail(c, http.StatusBadRequest, 10002, "required fields missing (password min 8 chars)")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20002, "failed to hash password")
		return
	}

	user := models.User{
		Email:        emailAddr,
		PasswordHash: hash,
		FirstName:    first,
		LastName:     last,
		Mobile:       strings.TrimSpace(req.Mobile),
		Address:      strings.TrimSpace(req.Address),
		Zip:          strings.TrimSpace(req.Zip),
		City:         strings.TrimSpace(req.City),
		Country:      strings.TrimSpace(req.Country),
	}
	if req.BirthDate != "" {
		if d, err := time.Parse("2006-01-02", req.BirthDate); err == nil {
			user.BirthDate = &d
		}
	}

	if err := h.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		common.Fail(c, http.StatusBadRequest, 10003, "failed to create account (maybe email already exists)")
		return
	}

	token, err := auth.SignJWT(user.ID, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	// welcome email, best-effort
	go func(to, name string) {
		subject := "Ihr Konto bei der Headline Agentur"
		body := "Guten Tag " + name + ",\n\n" +
			"Ihr Konto wurde erfolgreich angelegt.\n\n" +
			"Falls Sie diese Registrierung nicht veranlasst haben, kontaktieren Sie bitte umgehend unseren Support.\n\n" +
			"Mit freundlichen Grüßen\n" +
			"Headline Agentur\n"
		if err := email.SendText(h.SMTPSetting, to, subject, body); err != nil && !errors.Is(err, email.ErrNotConfigured) {
			log.Printf("[Register] welcome mail failed to=%s err=%v", to, err)
		}
	}(user.Email, user.FirstName)

	common.Created(c, gin.H{"user": user, "token": token})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	var user models.User
	err := h.DB.WithContext(c.Request.Context()).
		Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).
		First(&user).Error
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		common.Fail(c, http.StatusUnauthorized, 40103, "invalid credentials")
		return
	}

	token, err := auth.SignJWT(user.ID, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	common.OK(c, gin.H{"user": user, "token": token})
}

type profileReq struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Mobile      string `json:"mobile"`
	Address     string `json:"address"`
	Zip         string `json:"zip"`
	City        string `json:"city"`
	Country     string `json:"country"`
	BirthDate   string `json:"birth_date"`
	NewPassword string `json:"new_password"`
}

// UpdateProfile rewrites the logged-in user's contact data. The email must
// stay unique across accounts; a new password is optional and replaces the
// old one without further confirmation.
func (h *Handler) UpdateProfile(c *gin.Context) {
	uid := c.GetUint64(middleware.UserIDKey)

	var req profileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if emailAddr == "" || first == "" || last == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "required fields missing")
		return
	}

	var dup models.User
	err := h.DB.WithContext(c.Request.Context()).
		Where("email = ? AND id <> ?", emailAddr, uid).
		First(&dup).Error
	if err == nil {
		common.Fail(c, http.StatusBadRequest, 10006, "email already in use")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	updates := map[string]any{
		"email":      emailAddr,
		"first_name": first,
		"last_name":  last,
		"mobile":     strings.TrimSpace(req.Mobile),
		"address":    strings.TrimSpace(req.Address),
		"zip":        strings.TrimSpace(req.Zip),
		"city":       strings.TrimSpace(req.City),
		"country":    strings.TrimSpace(req.Country),
		"birth_date": nil,
	}
	if req.BirthDate != "" {
		if d, err := time.Parse("2006-01-02", req.BirthDate); err == nil {
			updates["birth_date"] = d
		}
	}
	if req.NewPassword != "" {
		if len(req.NewPassword) < 8 {
			common.Fail(c, http.StatusBadRequest, 10007, "new password must have at least 8 chars")
			return
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			common.Fail(c, http.StatusInternalServerError, 20002, "failed to hash password")
			return
		}
		updates["password_hash"] = hash
	}

	if err := h.DB.WithContext(c.Request.Context()).
		Model(&models.User{}).
		Where("id = ?", uid).
		Updates(updates).Error; err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, uid).Error; err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, gin.H{"user": user})
}

func (h *Handler) Me(c *gin.Context) {
	uid := c.GetUint64(middleware.UserIDKey)

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, uid).Error; err != nil {
		common.Fail(c, http.StatusNotFound, 40401, "user not found")
		return
	}

	var docs []models.UserDocument
	if err := h.DB.WithContext(c.Request.Context()).
		Where("user_id = ?", uid).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.OK(c, gin.H{"user": user, "documents": docs})
}

// UploadDocument stores one verification document for the logged-in user.
func (h *Handler) UploadDocument(c *gin.Context) {
	uid := c.GetUint64(middleware.UserIDKey)

	docType := c.PostForm("doc_type")
	if !docTypes[docType] {
		common.Fail(c, http.StatusBadRequest, 10005, "invalid doc_type")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10010, "file required")
		return
	}

	saved, err := h.Uploads.SaveAll([]*multipart.FileHeader{fh}, fmt.Sprintf("user-docs/%d", uid))
	if err != nil {
		failChat(c, err, "save document")
		return
	}

	doc := models.UserDocument{
		UserID:       uid,
		DocType:      docType,
		OriginalName: saved[0].OriginalName,
		MimeType:     saved[0].MimeType,
		SizeBytes:    saved[0].SizeBytes,
		StoragePath:  saved[0].StoragePath,
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&doc).Error; err != nil {
		h.Uploads.Remove(saved[0].StoragePath)
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.Created(c, gin.H{"document": doc})
}

// DownloadDocument serves a stored document to its owner or an admin.
func (h *Handler) DownloadDocument(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid document id")
		return
	}

	var doc models.UserDocument
	if err := h.DB.WithContext(c.Request.Context()).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40406, "document not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	uid := c.GetUint64(middleware.UserIDKey)
	if doc.UserID != uid && !h.isAdminBearer(c) {
		// hide existence
		common.Fail(c, http.StatusNotFound, 40406, "document not found")
		return
	}

	c.Header("Content-Disposition", inlineDisposition(doc.OriginalName))
	c.Header("Content-Type", doc.MimeType)
	c.File(h.Uploads.AbsPath(doc.StoragePath))
}
