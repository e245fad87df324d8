package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/headlineagentur/webportal/internal/common"
	"github.com/headlineagentur/webportal/internal/httpapi/middleware"
	"github.com/headlineagentur/webportal/internal/leads"
)

func (h *Handler) AdminListLeads(c *gin.Context) {
	rows, err := h.LeadSvc.List(c.Request.Context(), leads.Filter{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Source: c.Query("source"),
		Q:      c.Query("q"),
	})
	if err != nil {
		log.Printf("[AdminListLeads] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"leads": rows})
}

func (h *Handler) AdminLeadDetail(c *gin.Context) {
	l, notes, err := h.LeadSvc.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40405, "lead not found")
			return
		}
		log.Printf("[AdminLeadDetail] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"lead": l, "notes": notes})
}

type leadStatusReq struct {
	Status            string `json:"status" binding:"required"`
	VerificationLevel int    `json:"verification_level"`
}

func (h *Handler) AdminSetLeadStatus(c *gin.Context) {
	var req leadStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.VerificationLevel == 0 {
		req.VerificationLevel = 1
	}

	id := c.Param("id")
	err := h.LeadSvc.UpdateStatus(c.Request.Context(), id, req.Status, req.VerificationLevel)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40405, "lead not found")
			return
		}
		failLead(c, err, "set status")
		return
	}

	common.OK(c, gin.H{"lead_id": id, "status": req.Status})
}

type leadNoteReq struct {
	Note string `json:"note" binding:"required"`
}

func (h *Handler) AdminAddLeadNote(c *gin.Context) {
	var req leadNoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	createdBy := c.GetString(middleware.AdminNameKey)
	n, err := h.LeadSvc.AddNote(c.Request.Context(), c.Param("id"), req.Note, createdBy)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40405, "lead not found")
			return
		}
		failLead(c, err, "add note")
		return
	}

	common.Created(c, gin.H{"note": n})
}

func (h *Handler) AdminDeleteLeads(c *gin.Context) {
	var req deleteSelectedReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		common.Fail(c, http.StatusBadRequest, 10001, "ids required")
		return
	}

	if err := h.LeadSvc.Delete(c.Request.Context(), req.IDs); err != nil {
		failLead(c, err, "delete")
		return
	}

	common.OK(c, gin.H{"deleted": len(req.IDs)})
}

// AdminExportLeadsCSV streams the full lead table as a CSV download.
func (h *Handler) AdminExportLeadsCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="leads-export.csv"`)

	if err := h.LeadSvc.WriteCSV(c.Request.Context(), c.Writer); err != nil {
		// headers may already be out; log and drop the connection
		log.Printf("[AdminExportLeadsCSV] failed err=%v", err)
	}
}
