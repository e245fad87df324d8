package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/headlineagentur/webportal/internal/common"
	"github.com/headlineagentur/webportal/internal/leads"
)

type contactReq struct {
	FullName   string            `json:"full_name"`
	Email      string            `json:"email"`
	Phone      string            `json:"phone"`
	Subject    string            `json:"subject"`
	Message    string            `json:"message"`
	SourcePage string            `json:"source_page"`
	Website    string            `json:"website"` // honeypot
	Payload    map[string]string `json:"payload"`
}

func (h *Handler) SubmitContact(c *gin.Context) {
	var req contactReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	l, err := h.LeadSvc.SubmitContact(c.Request.Context(), leads.ContactInput{
		FullName:   req.FullName,
		Email:      req.Email,
		Phone:      req.Phone,
		Subject:    req.Subject,
		Message:    req.Message,
		SourcePage: req.SourcePage,
		Website:    req.Website,
		Payload:    req.Payload,
	})
	if err != nil {
		failLead(c, err, "contact")
		return
	}
	if l == nil {
		// honeypot hit, indistinguishable success
		common.Created(c, gin.H{"received": true})
		return
	}

	common.Created(c, gin.H{"received": true, "lead_id": l.ID})
}

type applicationReq struct {
	FullName      string            `json:"full_name"`
	Email         string            `json:"email"`
	Mobile        string            `json:"mobile"`
	Address       string            `json:"address"`
	Zip           string            `json:"zip"`
	City          string            `json:"city"`
	Country       string            `json:"country"`
	BirthDate     string            `json:"birth_date"`
	SourcePage    string            `json:"source_page"`
	Website       string            `json:"website"` // honeypot
	CaptchaID     string            `json:"captcha_id"`
	CaptchaAnswer string            `json:"captcha_answer"`
	Payload       map[string]string `json:"payload"`
}

func (h *Handler) SubmitApplication(c *gin.Context) {
	var req applicationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if err := h.checkCaptcha(c, req.CaptchaID, req.CaptchaAnswer); err != nil {
		failCaptcha(c, err)
		return
	}

	l, err := h.LeadSvc.SubmitApplication(c.Request.Context(), leads.ApplicationInput{
		FullName:   req.FullName,
		Email:      req.Email,
		Mobile:     req.Mobile,
		Address:    req.Address,
		Zip:        req.Zip,
		City:       req.City,
		Country:    req.Country,
		BirthDate:  req.BirthDate,
		SourcePage: req.SourcePage,
		Website:    req.Website,
		Payload:    req.Payload,
	})
	if err != nil {
		failLead(c, err, "application")
		return
	}
	if l == nil {
		common.Created(c, gin.H{"received": true})
		return
	}

	common.Created(c, gin.H{"received": true, "lead_id": l.ID})
}

type newsletterReq struct {
	Email      string `json:"email"`
	SourcePage string `json:"source_page"`
}

func (h *Handler) SubmitNewsletter(c *gin.Context) {
	var req newsletterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	l, err := h.LeadSvc.SubmitNewsletter(c.Request.Context(), req.Email, req.SourcePage)
	if err != nil {
		failLead(c, err, "newsletter")
		return
	}

	common.Created(c, gin.H{"received": true, "lead_id": l.ID})
}

func failLead(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, leads.ErrMissingFields):
		common.Fail(c, http.StatusBadRequest, 10002, "required fields missing")
	case errors.Is(err, leads.ErrInvalidStatus):
		common.Fail(c, http.StatusBadRequest, 10014, "invalid lead status")
	case errors.Is(err, leads.ErrInvalidLevel):
		common.Fail(c, http.StatusBadRequest, 10015, "verification level out of range")
	case errors.Is(err, leads.ErrNoteTooShort):
		common.Fail(c, http.StatusBadRequest, 10016, "note too short")
	default:
		log.Printf("[leads] %s failed err=%v", op, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
	}
}
