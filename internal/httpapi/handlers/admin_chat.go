package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/headlineagentur/webportal/internal/chat"
	"github.com/headlineagentur/webportal/internal/common"
	"github.com/headlineagentur/webportal/internal/httpapi/middleware"
)

func (h *Handler) AdminListChats(c *gin.Context) {
	status := chat.Status(c.Query("status"))
	if status != "" && !chat.ValidStatus(status) {
		common.Fail(c, http.StatusBadRequest, 10013, "invalid chat status")
		return
	}

	rows, err := h.ChatSvc.ListChats(c.Request.Context(), status, c.Query("q"))
	if err != nil {
		log.Printf("[AdminListChats] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"chats": rows})
}

func (h *Handler) AdminChatDetail(c *gin.Context) {
	chatID := c.Param("id")

	ch, msgs, err := h.ChatSvc.AdminChat(c.Request.Context(), chatID)
	if err != nil {
		failChat(c, err, "admin detail")
		return
	}

	common.OK(c, gin.H{"chat": ch, "messages": msgs})
}

func (h *Handler) AdminPostChatMessage(c *gin.Context) {
	chatID := c.Param("id")

	label := c.GetString(middleware.AdminNameKey)
	if label == "" {
		label = "Support"
	}

	body := c.PostForm("message")
	files := multipartFiles(c)

	msgs, err := h.ChatSvc.PostAdminMessage(c.Request.Context(), chatID, label, body, files)
	if err != nil {
		failChat(c, err, "admin post")
		return
	}

	common.Created(c, gin.H{"chat_id": chatID, "messages": msgs})
}

type chatStatusReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) AdminSetChatStatus(c *gin.Context) {
	chatID := c.Param("id")

	var req chatStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if err := h.ChatSvc.SetStatus(c.Request.Context(), chatID, chat.Status(req.Status)); err != nil {
		failChat(c, err, "set status")
		return
	}

	common.OK(c, gin.H{"chat_id": chatID, "status": req.Status})
}

type deleteSelectedReq struct {
	IDs []string `json:"ids" binding:"required"`
}

func (h *Handler) AdminDeleteChats(c *gin.Context) {
	var req deleteSelectedReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		common.Fail(c, http.StatusBadRequest, 10001, "ids required")
		return
	}

	if err := h.ChatSvc.DeleteChats(c.Request.Context(), req.IDs); err != nil {
		failChat(c, err, "delete chats")
		return
	}

	common.OK(c, gin.H{"deleted": len(req.IDs)})
}
