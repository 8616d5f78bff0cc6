package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taotie8304/lu-gang-connect-project/internal/authcode"
	"github.com/taotie8304/lu-gang-connect-project/internal/middleware"
	"github.com/taotie8304/lu-gang-connect-project/internal/models"
	"github.com/taotie8304/lu-gang-connect-project/internal/service"
)

type userResponse struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	Email      *string `json:"email,omitempty"`
	Avatar     string  `json:"avatar"`
	Status     string  `json:"status"`
	TeamID     string  `json:"teamId"`
	TeamName   string  `json:"teamName"`
	MemberID   string  `json:"memberId"`
	MemberName string  `json:"memberName"`
	Balance    int64   `json:"balance"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (h HandlerSet) sendAuthResponse(c *gin.Context, result service.AuthResult) {
	maxAge := int(h.cfg.Security.SessionTTL.Seconds())
	c.SetCookie(middleware.SessionCookie, result.Token, maxAge, "/", "", h.cfg.Environment == "production", true)

	c.JSON(http.StatusOK, authResponse{
		Token: result.Token,
		User: userResponse{
			ID:         result.User.ID,
			Username:   result.User.Username,
			Email:      result.User.Email,
			Avatar:     result.User.Avatar,
			Status:     string(result.User.Status),
			TeamID:     result.Team.TeamID,
			TeamName:   result.Team.TeamName,
			MemberID:   result.Team.MemberID,
			MemberName: result.Team.MemberName,
			Balance:    result.Team.Balance,
		},
	})
}

// serviceError maps the service sentinels onto HTTP statuses. Unknown
// errors surface as 500 without leaking detail.
func (h HandlerSet) serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidParams),
		errors.Is(err, service.ErrPasswordRule),
		errors.Is(err, service.ErrCodeInvalid),
		errors.Is(err, service.ErrCaptchaInvalid),
		errors.Is(err, service.ErrOldPasswordWrong),
		errors.Is(err, service.ErrPasswordUnchanged):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, authcode.ErrTooFrequent):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAccountPswError):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAccountForbidden),
		errors.Is(err, service.ErrRegisterDisabled),
		errors.Is(err, service.ErrRootImmutable):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAccountExists),
		errors.Is(err, service.ErrEmailExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	h.sendAuthResponse(c, result)
}

func (h HandlerSet) PreLogin(c *gin.Context) {
	username := c.Query("username")

	code, err := h.authService.PreLogin(c.Request.Context(), username)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": code})
}

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Code      string `json:"code" binding:"required"`
	Email     string `json:"email"`
	InviterID string `json:"inviterId"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		Code:      req.Code,
		Email:     req.Email,
		InviterID: req.InviterID,
		ClientIP:  c.ClientIP(),
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	h.sendAuthResponse(c, result)
}

// Captcha renders the SVG image challenge that gates code sending.
func (h HandlerSet) Captcha(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}

	svg, err := h.codes.IssueCaptcha(c.Request.Context(), username)
	if err != nil {
		h.log.Error().Err(err).Msg("captcha generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}

	c.Data(http.StatusOK, "image/svg+xml", []byte(svg))
}

type sendCodeRequest struct {
	Username string `json:"username" binding:"required"`
	Type     string `json:"type" binding:"required"`
	Captcha  string `json:"captcha" binding:"required"`
}

func (h HandlerSet) SendAuthCode(c *gin.Context) {
	var req sendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.authService.SendAuthCode(c.Request.Context(), service.SendCodeInput{
		Username: req.Username,
		Purpose:  authcode.Purpose(req.Type),
		Captcha:  req.Captcha,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type findPasswordRequest struct {
	Username string `json:"username" binding:"required"`
	Code     string `json:"code" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) FindPassword(c *gin.Context) {
	var req findPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.FindPassword(c.Request.Context(), service.FindPasswordInput{
		Username: req.Username,
		Code:     req.Code,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	h.sendAuthResponse(c, result)
}

type changePasswordRequest struct {
	OldPsw string `json:"oldPsw" binding:"required"`
	NewPsw string `json:"newPsw" binding:"required"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, ok := currentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), session, req.OldPsw, req.NewPsw); err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h HandlerSet) Logout(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), session.ID); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
	}

	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.cfg.Environment == "production", true)
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	session, _ := currentSession(c)

	detail, err := h.teams.GetMemberDetail(c.Request.Context(), session.TeamMemberID)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userResponse{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		Avatar:     user.Avatar,
		Status:     string(user.Status),
		TeamID:     detail.TeamID,
		TeamName:   detail.TeamName,
		MemberID:   detail.MemberID,
		MemberName: detail.MemberName,
		Balance:    detail.Balance,
	}})
}

func currentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get("current_user")
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}

func currentSession(c *gin.Context) (models.Session, bool) {
	val, exists := c.Get("current_session")
	if !exists {
		return models.Session{}, false
	}
	session, ok := val.(models.Session)
	return session, ok
}
