package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taotie8304/lu-gang-connect-project/internal/models"
	"github.com/taotie8304/lu-gang-connect-project/internal/repository"
)

type adminUserItem struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Avatar     string    `json:"avatar"`
	Status     string    `json:"status"`
	TeamName   string    `json:"teamName,omitempty"`
	MemberName string    `json:"memberName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	page := 1
	pageSize := 20
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 1 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("pageSize")); err == nil && v > 0 && v <= 100 {
		pageSize = v
	}
	search := c.Query("search")
	offset := (page - 1) * pageSize

	total, err := h.users.Count(c.Request.Context(), search)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	users, err := h.users.ListWithTeam(c.Request.Context(), search, pageSize, offset)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	list := make([]adminUserItem, 0, len(users))
	for _, u := range users {
		list = append(list, adminUserItem{
			ID:         u.ID,
			Username:   u.Username,
			Avatar:     u.Avatar,
			Status:     string(u.Status),
			TeamName:   u.TeamName,
			MemberName: u.MemberName,
			CreatedAt:  u.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"list":     list,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

type setStatusRequest struct {
	UserID string `json:"userId" binding:"required"`
	Status string `json:"status" binding:"required"`
}

// AdminSetUserStatus flips an account between active and forbidden. The
// local update always commits; the billing mirror follows on the sync
// stream with the worker's retry semantics.
func (h HandlerSet) AdminSetUserStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.UserStatus(req.Status)
	if status != models.UserStatusActive && status != models.UserStatusForbidden {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status value"})
		return
	}

	if _, err := h.authService.SetUserStatus(c.Request.Context(), req.UserID, status); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "user " + req.Status,
	})
}

func (h HandlerSet) AdminGetRegisterConfig(c *gin.Context) {
	cfg, err := h.configs.GetRegisterConfig(c.Request.Context())
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h HandlerSet) AdminSaveRegisterConfig(c *gin.Context) {
	var cfg models.RegisterConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if cfg.SMTP.Port != 0 && (cfg.SMTP.Port < 1 || cfg.SMTP.Port > 65535) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid smtp port"})
		return
	}

	if err := h.configs.SaveRegisterConfig(c.Request.Context(), cfg); err != nil {
		h.serviceError(c, err)
		return
	}

	h.log.Info().
		Bool("email_register_enabled", cfg.EmailRegisterEnabled).
		Str("smtp_host", cfg.SMTP.Host).
		Msg("register config updated")

	c.JSON(http.StatusOK, cfg)
}

type testEmailRequest struct {
	Email string            `json:"email" binding:"required"`
	SMTP  models.SMTPConfig `json:"smtp" binding:"required"`
}

func (h HandlerSet) AdminTestEmail(c *gin.Context) {
	var req testEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.mailer.SendTestMail(req.SMTP, req.Email); err != nil {
		h.log.Error().Err(err).Str("to", req.Email).Msg("test email failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "test email sent",
	})
}
