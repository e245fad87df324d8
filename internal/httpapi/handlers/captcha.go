package handlers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/headlineagentur/webportal/internal/common"
)

const captchaTTL = 10 * time.Minute

var (
	errCaptchaExpired = errors.New("captcha expired or not found")
	errCaptchaWrong   = errors.New("invalid captcha answer")
)

func randInt(max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

// NewCaptcha issues a small arithmetic challenge. The answer lives in Redis
// under a random id, so the check works across instances.
func (h *Handler) NewCaptcha(c *gin.Context) {
	left, err1 := randInt(8)
	right, err2 := randInt(8)
	opPick, err3 := randInt(2)
	if err1 != nil || err2 != nil || err3 != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	left += 2
	right++

	op := "+"
	answer := left + right
	if opPick == 1 {
		op = "-"
		answer = left - right
	}

	id := uuid.NewString()
	if err := h.Redis.SetCaptcha(c.Request.Context(), id, strconv.FormatInt(answer, 10), captchaTTL); err != nil {
		log.Printf("[NewCaptcha] redis set failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 20001, "redis error")
		return
	}

	common.OK(c, gin.H{
		"captcha_id": id,
		"question":   fmt.Sprintf("%d %s %d = ?", left, op, right),
	})
}

// checkCaptcha validates and consumes a challenge. A challenge is single
// use regardless of the outcome.
func (h *Handler) checkCaptcha(c *gin.Context, id, answer string) error {
	if id == "" || strings.TrimSpace(answer) == "" {
		return errCaptchaWrong
	}
	expected, err := h.Redis.GetCaptcha(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errCaptchaExpired
		}
		return err
	}
	_ = h.Redis.DeleteCaptcha(c.Request.Context(), id)

	if strings.TrimSpace(answer) != expected {
		return errCaptchaWrong
	}
	return nil
}

// failCaptcha writes the envelope for a checkCaptcha error.
func failCaptcha(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errCaptchaExpired):
		common.Fail(c, http.StatusBadRequest, 10020, "captcha expired or not found")
	case errors.Is(err, errCaptchaWrong):
		common.Fail(c, http.StatusBadRequest, 10021, "invalid captcha")
	default:
		log.Printf("[captcha] check failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 20001, "redis error")
	}
}
