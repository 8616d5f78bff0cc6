package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/taotie8304/lu-gang-connect-project/internal/account"
	"github.com/taotie8304/lu-gang-connect-project/internal/authcode"
	"github.com/taotie8304/lu-gang-connect-project/internal/config"
	"github.com/taotie8304/lu-gang-connect-project/internal/ids"
	"github.com/taotie8304/lu-gang-connect-project/internal/models"
	"github.com/taotie8304/lu-gang-connect-project/internal/oneapi"
	"github.com/taotie8304/lu-gang-connect-project/internal/queue"
	"github.com/taotie8304/lu-gang-connect-project/internal/repository"
	"github.com/taotie8304/lu-gang-connect-project/internal/security"
)

var (
	// ErrAccountPswError covers both an unknown username and a wrong
	// password, so responses never reveal which usernames exist.
	ErrAccountPswError = errors.New("account or password error")

	ErrInvalidParams     = errors.New("invalid params")
	ErrAccountForbidden  = errors.New("account is forbidden")
	ErrPasswordRule      = errors.New("password must contain upper and lower case letters and digits")
	ErrCodeInvalid       = errors.New("verification code is wrong or expired")
	ErrCaptchaInvalid    = errors.New("image captcha is wrong or expired")
	ErrAccountExists     = errors.New("account already registered")
	ErrEmailExists       = errors.New("email already bound to another account")
	ErrOldPasswordWrong  = errors.New("old password is incorrect")
	ErrPasswordUnchanged = errors.New("new password equals the old one")
	ErrRegisterDisabled  = errors.New("email registration is disabled")
	ErrRootImmutable     = errors.New("root account status is immutable")
)

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByBoundEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	CreateWithTeam(ctx context.Context, user models.User, team models.Team, member models.TeamMember) error
	UpdateLastLogin(ctx context.Context, id string, memberID string) error
	UpdatePassword(ctx context.Context, id string, digest string) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
}

type TeamStore interface {
	GetMemberDetail(ctx context.Context, memberID string) (models.TeamMemberDetail, error)
	GetDetailByUserID(ctx context.Context, userID string) (models.TeamMemberDetail, error)
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	DeleteByID(ctx context.Context, id string) error
	DeleteAllExcept(ctx context.Context, userID string, keepID string) error
}

type CodeIssuer interface {
	Issue(ctx context.Context, subject string, purpose authcode.Purpose) (string, error)
	Verify(ctx context.Context, subject string, purpose authcode.Purpose, code string) bool
	IssueCaptcha(ctx context.Context, subject string) (string, error)
	VerifyCaptcha(ctx context.Context, subject string, answer string) bool
}

type SyncEnqueuer interface {
	Enqueue(ctx context.Context, task queue.Task) error
}

type ConfigStore interface {
	GetRegisterConfig(ctx context.Context) (models.RegisterConfig, error)
}

type Mailer interface {
	SendAuthCode(smtp models.SMTPConfig, to string, code string, purposeText string) error
}

type AuthService struct {
	users    UserStore
	teams    TeamStore
	sessions SessionStore
	codes    CodeIssuer
	configs  ConfigStore
	mailer   Mailer
	enqueuer SyncEnqueuer
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewAuthService(
	users UserStore,
	teams TeamStore,
	sessions SessionStore,
	codes CodeIssuer,
	configs ConfigStore,
	mailer Mailer,
	enqueuer SyncEnqueuer,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		teams:    teams,
		sessions: sessions,
		codes:    codes,
		configs:  configs,
		mailer:   mailer,
		enqueuer: enqueuer,
		cfg:      cfg,
		log:      log,
	}
}

type LoginInput struct {
	Username string
	Password string // already hashed once by the client
	ClientIP string
}

type AuthResult struct {
	Token string
	User  models.User
	Team  models.TeamMemberDetail
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	if input.Username == "" || input.Password == "" {
		return AuthResult{}, ErrInvalidParams
	}

	user, err := s.users.FindByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrAccountPswError
		}
		return AuthResult{}, err
	}

	if user.Status == models.UserStatusForbidden {
		return AuthResult{}, ErrAccountForbidden
	}

	if !security.VerifyPassword(input.Password, user.PasswordHash) {
		return AuthResult{}, ErrAccountPswError
	}

	detail, err := s.teams.GetDetailByUserID(ctx, user.ID)
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, detail.MemberID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("last login update failed")
	}

	token, err := s.mintSession(ctx, user, detail, input.ClientIP)
	if err != nil {
		return AuthResult{}, err
	}

	s.enqueueSync(queue.Task{
		Type:        queue.TaskSyncUser,
		Username:    user.Username,
		DisplayName: detail.MemberName,
	})

	return AuthResult{Token: token, User: user, Team: detail}, nil
}

// PreLogin issues the short-lived login precheck code. The code is echoed
// back to the caller, who submits it with the login form.
func (s *AuthService) PreLogin(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", ErrInvalidParams
	}
	return s.codes.Issue(ctx, username, authcode.PurposeLogin)
}

type RegisterInput struct {
	Username  string
	Password  string // plaintext; the rule check needs it
	Code      string
	Email     string // required for phone-shaped usernames
	InviterID string
	ClientIP  string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	if input.Username == "" || input.Password == "" || input.Code == "" {
		return AuthResult{}, ErrInvalidParams
	}
	if !account.CheckPasswordRule(input.Password, s.cfg.Security.PasswordMaxLen) {
		return AuthResult{}, ErrPasswordRule
	}

	// Codes deliver by email only, so a phone-shaped username must bind a
	// valid email address to receive its code.
	var verifySubject, displayName string
	var boundEmail *string
	switch {
	case account.IsPhone(input.Username):
		if input.Email == "" || !account.IsEmail(input.Email) {
			return AuthResult{}, ErrInvalidParams
		}
		verifySubject = input.Email
		displayName = account.DisplayName(input.Username)
		boundEmail = &input.Email
	case account.IsEmail(input.Username):
		verifySubject = input.Username
		displayName = account.DisplayName(input.Username)
	default:
		return AuthResult{}, ErrInvalidParams
	}

	if !s.codes.Verify(ctx, verifySubject, authcode.PurposeRegister, input.Code) {
		return AuthResult{}, ErrCodeInvalid
	}

	// A valid code never bypasses uniqueness.
	if _, err := s.users.FindByUsername(ctx, input.Username); err == nil {
		return AuthResult{}, ErrAccountExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}
	if boundEmail != nil {
		if _, err := s.users.FindByBoundEmail(ctx, *boundEmail); err == nil {
			return AuthResult{}, ErrEmailExists
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, err
		}
	}

	var inviterID *string
	if input.InviterID != "" {
		inviterID = &input.InviterID
	}

	user := models.User{
		ID:           ids.New(),
		Username:     input.Username,
		Email:        boundEmail,
		PasswordHash: security.HashPassword(security.HashPassword(input.Password)),
		Avatar:       "/icon/logo.png",
		Timezone:     "Asia/Shanghai",
		Status:       models.UserStatusActive,
		InviterID:    inviterID,
	}
	team := models.Team{
		ID:      ids.New(),
		Name:    displayName + "的团队",
		Avatar:  "/icon/logo.png",
		OwnerID: user.ID,
	}
	member := models.TeamMember{
		ID:     ids.New(),
		TeamID: team.ID,
		UserID: user.ID,
		Name:   displayName,
		Role:   models.TeamMemberRoleOwner,
	}

	if err := s.users.CreateWithTeam(ctx, user, team, member); err != nil {
		return AuthResult{}, err
	}

	detail := models.TeamMemberDetail{
		MemberID:   member.ID,
		MemberName: member.Name,
		TeamID:     team.ID,
		TeamName:   team.Name,
		TeamAvatar: team.Avatar,
		UserID:     user.ID,
	}
	user.LastLoginMemberID = &member.ID

	token, err := s.mintSession(ctx, user, detail, input.ClientIP)
	if err != nil {
		return AuthResult{}, err
	}

	// Billing account creation happens outside the transaction; the local
	// account is authoritative either way.
	s.enqueueSync(queue.Task{
		Type:        queue.TaskSyncUser,
		Username:    user.Username,
		DisplayName: displayName,
	})

	s.log.Info().Str("username", user.Username).Msg("user registered")
	return AuthResult{Token: token, User: user, Team: detail}, nil
}

type SendCodeInput struct {
	Username string
	Purpose  authcode.Purpose
	Captcha  string
}

// SendAuthCode issues a register or password-reset code and mails it. The
// request is gated by an image captcha to keep the mailer from being
// driven as a spam relay.
func (s *AuthService) SendAuthCode(ctx context.Context, input SendCodeInput) error {
	if input.Username == "" {
		return ErrInvalidParams
	}
	if input.Purpose != authcode.PurposeRegister && input.Purpose != authcode.PurposeReset {
		return ErrInvalidParams
	}
	if !s.codes.VerifyCaptcha(ctx, input.Username, input.Captcha) {
		return ErrCaptchaInvalid
	}

	// SMS delivery is not implemented; phone users bind an email instead.
	if account.IsPhone(input.Username) {
		return ErrInvalidParams
	}
	if !account.IsEmail(input.Username) {
		return ErrInvalidParams
	}

	regCfg, err := s.configs.GetRegisterConfig(ctx)
	if err != nil {
		return err
	}
	if input.Purpose == authcode.PurposeRegister && !regCfg.EmailRegisterEnabled {
		return ErrRegisterDisabled
	}

	code, err := s.codes.Issue(ctx, input.Username, input.Purpose)
	if err != nil {
		return err
	}

	purposeText := "注册"
	if input.Purpose == authcode.PurposeReset {
		purposeText = "找回密码"
	}

	smtp := regCfg.SMTP
	if smtp.Host == "" {
		smtp = models.SMTPConfig{
			Host:   s.cfg.SMTP.Host,
			Port:   s.cfg.SMTP.Port,
			Secure: s.cfg.SMTP.Secure,
			User:   s.cfg.SMTP.User,
			Pass:   s.cfg.SMTP.Pass,
			From:   s.cfg.SMTP.From,
		}
	}

	if err := s.mailer.SendAuthCode(smtp, input.Username, code, purposeText); err != nil {
		return err
	}

	s.log.Info().Str("username", input.Username).Str("purpose", string(input.Purpose)).Msg("auth code sent")
	return nil
}

type FindPasswordInput struct {
	Username string
	Code     string
	Password string // plaintext
	ClientIP string
}

// FindPassword resets a forgotten password after code verification and
// revokes every existing session before issuing a fresh one.
func (s *AuthService) FindPassword(ctx context.Context, input FindPasswordInput) (AuthResult, error) {
	if input.Username == "" || input.Code == "" || input.Password == "" {
		return AuthResult{}, ErrInvalidParams
	}
	if !account.CheckPasswordRule(input.Password, s.cfg.Security.PasswordMaxLen) {
		return AuthResult{}, ErrPasswordRule
	}

	if !s.codes.Verify(ctx, input.Username, authcode.PurposeReset, input.Code) {
		return AuthResult{}, ErrCodeInvalid
	}

	user, err := s.users.FindByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrAccountPswError
		}
		return AuthResult{}, err
	}
	if user.Status == models.UserStatusForbidden {
		return AuthResult{}, ErrAccountForbidden
	}

	digest := security.HashPassword(security.HashPassword(input.Password))
	if err := s.users.UpdatePassword(ctx, user.ID, digest); err != nil {
		return AuthResult{}, err
	}
	user.PasswordHash = digest

	if err := s.sessions.DeleteAllExcept(ctx, user.ID, ""); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("session revocation failed")
	}

	detail, err := s.teams.GetDetailByUserID(ctx, user.ID)
	if err != nil {
		return AuthResult{}, err
	}

	token, err := s.mintSession(ctx, user, detail, input.ClientIP)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: user, Team: detail}, nil
}

// ChangePassword verifies the old password, stores the new digest and
// forces re-login on every other device while keeping the current session.
// Both passwords arrive already hashed once by the client.
func (s *AuthService) ChangePassword(ctx context.Context, session models.Session, oldPsw string, newPsw string) error {
	if oldPsw == "" || newPsw == "" {
		return ErrInvalidParams
	}

	detail, err := s.teams.GetMemberDetail(ctx, session.TeamMemberID)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, detail.UserID)
	if err != nil {
		return err
	}

	if !security.VerifyPassword(oldPsw, user.PasswordHash) {
		return ErrOldPasswordWrong
	}
	if oldPsw == newPsw {
		return ErrPasswordUnchanged
	}

	if err := s.users.UpdatePassword(ctx, user.ID, security.HashPassword(newPsw)); err != nil {
		return err
	}

	if err := s.sessions.DeleteAllExcept(ctx, user.ID, session.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("session revocation failed")
	}

	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

// SetUserStatus flips an account between active and forbidden. Forbidding
// revokes every live session, and the billing mirror follows through the
// sync stream so a billing outage cannot lose the change. Root stays
// active no matter what.
func (s *AuthService) SetUserStatus(ctx context.Context, userID string, status models.UserStatus) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if user.IsRoot() {
		return models.User{}, ErrRootImmutable
	}

	if err := s.users.UpdateStatus(ctx, userID, status); err != nil {
		return models.User{}, err
	}
	user.Status = status

	if status == models.UserStatusForbidden {
		if err := s.sessions.DeleteAllExcept(ctx, userID, ""); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("session revocation failed")
		}
	}

	billingStatus := oneapi.StatusEnabled
	if status == models.UserStatusForbidden {
		billingStatus = oneapi.StatusDisabled
	}
	s.enqueueSync(queue.Task{
		Type:     queue.TaskSetStatus,
		Username: user.Username,
		Status:   billingStatus,
	})

	s.log.Info().Str("user_id", userID).Str("status", string(status)).Msg("user status updated")
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.DeleteByID(ctx, sessionID)
}

func (s *AuthService) mintSession(ctx context.Context, user models.User, detail models.TeamMemberDetail, clientIP string) (string, error) {
	session := models.Session{
		ID:           ids.New(),
		UserID:       user.ID,
		TeamID:       detail.TeamID,
		TeamMemberID: detail.MemberID,
		IsRoot:       user.IsRoot(),
		ClientIP:     clientIP,
		ExpiresAt:    time.Now().Add(s.cfg.Security.SessionTTL),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}

	return security.GenerateSessionToken(
		s.cfg.Security.JWTSecret,
		session.ID,
		user.ID,
		detail.TeamID,
		detail.MemberID,
		session.IsRoot,
		s.cfg.Security.SessionTTL,
	)
}

// enqueueSync hands a billing task to the stream without tying it to the
// request's context: a client disconnect must not cancel the mirror write.
func (s *AuthService) enqueueSync(task queue.Task) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.enqueuer.Enqueue(ctx, task); err != nil {
			s.log.Error().
				Err(err).
				Str("type", task.Type).
				Str("username", task.Username).
				Msg("billing sync enqueue failed")
		}
	}()
}
