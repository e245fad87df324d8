package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/headlineagentur/webportal/internal/auth"
	"github.com/headlineagentur/webportal/internal/common"
	"github.com/headlineagentur/webportal/internal/models"
)

func (h *Handler) AdminLogin(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	var admin models.AdminUser
	err := h.DB.WithContext(c.Request.Context()).
		Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).
		First(&admin).Error
	if err != nil || !auth.CheckPassword(admin.PasswordHash, req.Password) {
		common.Fail(c, http.StatusUnauthorized, 40103, "invalid credentials")
		return
	}

	token, err := auth.SignAdminJWT(admin.ID, admin.Username, h.Cfg.JWTSecret, 12*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	common.OK(c, gin.H{
		"admin": gin.H{"id": admin.ID, "email": admin.Email, "username": admin.Username},
		"token": token,
	})
}

func (h *Handler) AdminListUsers(c *gin.Context) {
	q := h.DB.WithContext(c.Request.Context()).Model(&models.User{})
	if s := strings.TrimSpace(c.Query("q")); s != "" {
		like := "%" + s + "%"
		q = q.Where("email LIKE ? OR first_name LIKE ? OR last_name LIKE ?", like, like, like)
	}

	var users []models.User
	if err := q.Order("created_at DESC").Find(&users).Error; err != nil {
		log.Printf("[AdminListUsers] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.OK(c, gin.H{"users": users})
}

// AdminUserDetail returns one account together with its uploaded documents,
// newest first.
func (h *Handler) AdminUserDetail(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid user id")
		return
	}

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	var docs []models.UserDocument
	if err := h.DB.WithContext(c.Request.Context()).
		Where("user_id = ?", id).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.OK(c, gin.H{"user": user, "documents": docs})
}

type deleteUsersReq struct {
	IDs []uint64 `json:"ids" binding:"required"`
}

// AdminDeleteUsers removes accounts together with their documents; the
// document blobs are unlinked best-effort after the transaction commits.
func (h *Handler) AdminDeleteUsers(c *gin.Context) {
	var req deleteUsersReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		common.Fail(c, http.StatusBadRequest, 10001, "ids required")
		return
	}

	var paths []string
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.UserDocument{}).
			Where("user_id IN ?", req.IDs).
			Pluck("storage_path", &paths).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id IN ?", req.IDs).Delete(&models.UserDocument{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", req.IDs).Delete(&models.User{}).Error
	})
	if err != nil {
		log.Printf("[AdminDeleteUsers] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	h.Uploads.Remove(paths...)
	common.OK(c, gin.H{"deleted": len(req.IDs)})
}
