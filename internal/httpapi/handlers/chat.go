package handlers

import (
	"errors"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/headlineagentur/webportal/internal/auth"
	"github.com/headlineagentur/webportal/internal/chat"
	"github.com/headlineagentur/webportal/internal/common"
	"github.com/headlineagentur/webportal/internal/upload"
)

const chatTokenHeader = "X-Chat-Token"

type startChatReq struct {
	SourcePage string `json:"source_page"`
}

func (h *Handler) StartChat(c *gin.Context) {
	var req startChatReq
	_ = c.ShouldBindJSON(&req) // allow empty body

	ch, token, err := h.ChatSvc.StartChat(c.Request.Context(), req.SourcePage)
	if err != nil {
		log.Printf("[StartChat] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to start chat")
		return
	}

	common.Created(c, gin.H{
		"chat_id":    ch.ID,
		"chat_token": token,
		"chat":       ch,
	})
}

func (h *Handler) VisitorMessages(c *gin.Context) {
	chatID := c.Param("chat_id")
	token := c.GetHeader(chatTokenHeader)

	msgs, err := h.ChatSvc.VisitorMessages(c.Request.Context(), chatID, token)
	if err != nil {
		failChat(c, err, "list messages")
		return
	}

	common.OK(c, gin.H{"chat_id": chatID, "messages": msgs})
}

func (h *Handler) PostVisitorMessage(c *gin.Context) {
	chatID := c.Param("chat_id")
	token := c.GetHeader(chatTokenHeader)

	body := c.PostForm("message")
	files := multipartFiles(c)

	msgs, err := h.ChatSvc.PostVisitorMessage(c.Request.Context(), chatID, token, body, files)
	if err != nil {
		failChat(c, err, "post message")
		return
	}

	common.Created(c, gin.H{"chat_id": chatID, "messages": msgs})
}

func (h *Handler) DownloadChatFile(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("file_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid file id")
		return
	}

	isAdmin := h.isAdminBearer(c)
	token := c.GetHeader(chatTokenHeader)

	a, err := h.ChatSvc.AttachmentForDownload(c.Request.Context(), id, isAdmin, token)
	if err != nil {
		failChat(c, err, "download file")
		return
	}

	c.Header("Content-Disposition", inlineDisposition(a.OriginalName))
	c.Header("Content-Type", a.MimeType)
	c.File(h.ChatSvc.AttachmentPath(a))
}

// inlineDisposition renders a Content-Disposition value that survives
// non-ASCII filenames (RFC 2231 parameter encoding).
func inlineDisposition(name string) string {
	if d := mime.FormatMediaType("inline", map[string]string{"filename": name}); d != "" {
		return d
	}
	return "inline"
}

func multipartFiles(c *gin.Context) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File["files"]
}

// isAdminBearer reports whether the request carries a valid admin JWT. The
// file download route is shared between the admin panel and the widget, so
// the admin check is opportunistic here rather than a hard gate.
func (h *Handler) isAdminBearer(c *gin.Context) bool {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return false
	}
	claims, err := auth.ParseJWT(strings.TrimSpace(parts[1]), h.Cfg.JWTSecret)
	if err != nil {
		return false
	}
	return claims.Role == auth.RoleAdmin
}

// failChat maps chat service errors onto the response envelope.
func failChat(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, chat.ErrUnauthorized):
		common.Fail(c, http.StatusUnauthorized, 40102, "invalid chat token")
	case errors.Is(err, gorm.ErrRecordNotFound):
		common.Fail(c, http.StatusNotFound, 40404, "chat not found")
	case errors.Is(err, chat.ErrMessageRequired):
		common.Fail(c, http.StatusBadRequest, 10010, "message or file required")
	case errors.Is(err, chat.ErrTextRequired):
		common.Fail(c, http.StatusBadRequest, 10011, "text reply required during onboarding")
	case errors.Is(err, chat.ErrInvalidStatus):
		common.Fail(c, http.StatusBadRequest, 10013, "invalid chat status")
	case errors.Is(err, upload.ErrTooManyFiles),
		errors.Is(err, upload.ErrFileTooLarge),
		errors.Is(err, upload.ErrTypeNotAllowed):
		common.Fail(c, http.StatusBadRequest, 10012, "upload rejected: "+err.Error())
	default:
		log.Printf("[chat] %s failed err=%v", op, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
	}
}
