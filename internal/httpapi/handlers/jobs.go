package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/headlineagentur/webportal/internal/common"
	"github.com/headlineagentur/webportal/internal/jobs"
)

func (h *Handler) ListJobs(c *gin.Context) {
	postings, err := h.JobSvc.List(c.Request.Context())
	if err != nil {
		log.Printf("[ListJobs] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"jobs": postings})
}

func (h *Handler) JobBySlug(c *gin.Context) {
	j, err := h.JobSvc.BySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40407, "job not found")
			return
		}
		log.Printf("[JobBySlug] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"job": j})
}

func (h *Handler) AdminJobFacts(c *gin.Context) {
	f, err := h.JobSvc.JobFacts(c.Request.Context())
	if err != nil {
		log.Printf("[AdminJobFacts] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"facts": f})
}

func (h *Handler) AdminSaveJobFacts(c *gin.Context) {
	var req jobs.Facts
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	f, err := h.JobSvc.SaveJobFacts(c.Request.Context(), req)
	if err != nil {
		log.Printf("[AdminSaveJobFacts] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"facts": f})
}

type jobUpsertReq struct {
	Slug    string     `json:"slug"`
	Title   string     `json:"title"`
	Summary string     `json:"summary"`
	Tasks   []string   `json:"tasks"`
	Profile []string   `json:"profile"`
	Offer   []string   `json:"offer"`
	Facts   jobs.Facts `json:"facts"`
}

func (h *Handler) AdminUpsertJob(c *gin.Context) {
	var req jobUpsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	j, err := h.JobSvc.Upsert(c.Request.Context(), jobs.PostingInput{
		Slug:    req.Slug,
		Title:   req.Title,
		Summary: req.Summary,
		Tasks:   req.Tasks,
		Profile: req.Profile,
		Offer:   req.Offer,
		Facts:   req.Facts,
	}, c.Query("original_slug"))
	if err != nil {
		if errors.Is(err, jobs.ErrTitleRequired) {
			common.Fail(c, http.StatusBadRequest, 10017, "job title required")
			return
		}
		log.Printf("[AdminUpsertJob] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"job": j})
}

func (h *Handler) AdminDeleteJob(c *gin.Context) {
	if err := h.JobSvc.Delete(c.Request.Context(), c.Param("slug")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40407, "job not found")
			return
		}
		log.Printf("[AdminDeleteJob] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"deleted": true})
}
