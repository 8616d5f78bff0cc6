package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taotie8304/lu-gang-connect-project/internal/authcode"
	"github.com/taotie8304/lu-gang-connect-project/internal/config"
	"github.com/taotie8304/lu-gang-connect-project/internal/models"
	"github.com/taotie8304/lu-gang-connect-project/internal/queue"
	"github.com/taotie8304/lu-gang-connect-project/internal/repository"
	"github.com/taotie8304/lu-gang-connect-project/internal/security"
)

type fakeUsers struct {
	mu       sync.Mutex
	users    map[string]models.User // by id
	onCreate func(models.User, models.Team, models.TeamMember)
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]models.User{}}
}

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) FindByBoundEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email != nil && *u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, id string, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.LastLoginMemberID = &memberID
	f.users[id] = u
	return nil
}

func (f *fakeUsers) UpdateStatus(_ context.Context, id string, status models.UserStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Status = status
	f.users[id] = u
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id string, digest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = digest
	f.users[id] = u
	return nil
}

type fakeTeams struct {
	mu      sync.Mutex
	details map[string]models.TeamMemberDetail // by member id
}

func newFakeTeams() *fakeTeams {
	return &fakeTeams{details: map[string]models.TeamMemberDetail{}}
}

func (f *fakeTeams) GetMemberDetail(_ context.Context, memberID string) (models.TeamMemberDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.details[memberID]; ok {
		return d, nil
	}
	return models.TeamMemberDetail{}, repository.ErrTeamMemberNotFound
}

func (f *fakeTeams) GetDetailByUserID(_ context.Context, userID string) (models.TeamMemberDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.details {
		if d.UserID == userID {
			return d, nil
		}
	}
	return models.TeamMemberDetail{}, repository.ErrTeamMemberNotFound
}

// CreateWithTeam lives on fakeUsers to satisfy UserStore, but it fills the
// team fixture too, so both fakes share state through the harness.
type fixture struct {
	users    *fakeUsers
	teams    *fakeTeams
	sessions *fakeSessions
	codes    *fakeCodes
	configs  *fakeConfigs
	mailer   *fakeMailer
	enqueuer *fakeEnqueuer
	svc      *AuthService
}

func (f *fakeUsers) CreateWithTeam(_ context.Context, user models.User, team models.Team, member models.TeamMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	if f.onCreate != nil {
		f.onCreate(user, team, member)
	}
	return nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]models.Session{}}
}

func (f *fakeSessions) Create(_ context.Context, session models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessions) DeleteByID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessions) DeleteAllExcept(_ context.Context, userID string, keepID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == userID && id != keepID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func (f *fakeSessions) count(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type fakeCodes struct {
	mu       sync.Mutex
	codes    map[string]string // subject|purpose -> code
	captchas map[string]string
	issueErr error
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{codes: map[string]string{}, captchas: map[string]string{}}
}

func (f *fakeCodes) key(subject string, purpose authcode.Purpose) string {
	return subject + "|" + string(purpose)
}

func (f *fakeCodes) Issue(_ context.Context, subject string, purpose authcode.Purpose) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.issueErr != nil {
		return "", f.issueErr
	}
	f.codes[f.key(subject, purpose)] = "123456"
	return "123456", nil
}

func (f *fakeCodes) Verify(_ context.Context, subject string, purpose authcode.Purpose, code string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.codes[f.key(subject, purpose)]
	if !ok || stored != code {
		return false
	}
	delete(f.codes, f.key(subject, purpose))
	return true
}

func (f *fakeCodes) IssueCaptcha(_ context.Context, subject string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captchas[subject] = "AB12"
	return "<svg/>", nil
}

func (f *fakeCodes) VerifyCaptcha(_ context.Context, subject string, answer string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.captchas[subject]
	if !ok || stored != answer {
		return false
	}
	delete(f.captchas, subject)
	return true
}

type fakeConfigs struct {
	cfg models.RegisterConfig
}

func (f *fakeConfigs) GetRegisterConfig(_ context.Context) (models.RegisterConfig, error) {
	return f.cfg, nil
}

type sentMail struct {
	To      string
	Code    string
	Purpose string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) SendAuthCode(_ models.SMTPConfig, to string, code string, purposeText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: to, Code: code, Purpose: purposeText})
	return nil
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []queue.Task
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, task queue.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeEnqueuer) snapshot() []queue.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queue.Task(nil), f.tasks...)
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{
			JWTSecret:      "unit-test-secret",
			SessionTTL:     time.Hour,
			PasswordMaxLen: 20,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users:    newFakeUsers(),
		teams:    newFakeTeams(),
		sessions: newFakeSessions(),
		codes:    newFakeCodes(),
		configs:  &fakeConfigs{cfg: models.RegisterConfig{EmailRegisterEnabled: true}},
		mailer:   &fakeMailer{},
		enqueuer: &fakeEnqueuer{},
	}
	f.users.onCreate = func(user models.User, team models.Team, member models.TeamMember) {
		f.teams.details[member.ID] = models.TeamMemberDetail{
			MemberID:   member.ID,
			MemberName: member.Name,
			TeamID:     team.ID,
			TeamName:   team.Name,
			TeamAvatar: team.Avatar,
			UserID:     user.ID,
		}
	}
	f.svc = NewAuthService(f.users, f.teams, f.sessions, f.codes, f.configs, f.mailer, f.enqueuer, testConfig(), zerolog.Nop())
	return f
}

// seedUser installs an active account with the given plaintext password and
// a default team, returning the user and its member detail.
func (f *fixture) seedUser(username string, plaintext string) (models.User, models.TeamMemberDetail) {
	user := models.User{
		ID:           "user-" + username,
		Username:     username,
		PasswordHash: security.HashPassword(security.HashPassword(plaintext)),
		Status:       models.UserStatusActive,
	}
	f.users.mu.Lock()
	f.users.users[user.ID] = user
	f.users.mu.Unlock()

	detail := models.TeamMemberDetail{
		MemberID:   "member-" + username,
		MemberName: username,
		TeamID:     "team-" + username,
		TeamName:   username + "的团队",
		UserID:     user.ID,
	}
	f.teams.mu.Lock()
	f.teams.details[detail.MemberID] = detail
	f.teams.mu.Unlock()

	return user, detail
}

func waitForTasks(t *testing.T, enqueuer *fakeEnqueuer, n int) []queue.Task {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(enqueuer.snapshot()) >= n
	}, 2*time.Second, 10*time.Millisecond, "expected %d queued tasks", n)
	return enqueuer.snapshot()
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)
	user, detail := f.seedUser("test@example.com", "Abcdef12")
	ctx := context.Background()

	res, err := f.svc.Login(ctx, LoginInput{
		Username: "test@example.com",
		Password: security.HashPassword("Abcdef12"),
		ClientIP: "10.0.0.1",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
	assert.Equal(t, detail.MemberID, res.Team.MemberID)

	claims, err := security.ParseSessionToken(res.Token, "unit-test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, detail.TeamID, claims.TeamID)
	assert.False(t, claims.IsRoot)

	assert.Equal(t, 1, f.sessions.count(user.ID))

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginMemberID)
	assert.Equal(t, detail.MemberID, *stored.LastLoginMemberID)

	tasks := waitForTasks(t, f.enqueuer, 1)
	assert.Equal(t, queue.TaskSyncUser, tasks[0].Type)
	assert.Equal(t, "test@example.com", tasks[0].Username)
}

func TestLoginHidesAccountExistence(t *testing.T) {
	f := newFixture(t)
	f.seedUser("test@example.com", "Abcdef12")
	ctx := context.Background()

	_, errUnknown := f.svc.Login(ctx, LoginInput{
		Username: "nobody@example.com",
		Password: security.HashPassword("Abcdef12"),
	})
	_, errWrongPsw := f.svc.Login(ctx, LoginInput{
		Username: "test@example.com",
		Password: security.HashPassword("WrongPsw1"),
	})

	require.ErrorIs(t, errUnknown, ErrAccountPswError)
	require.ErrorIs(t, errWrongPsw, ErrAccountPswError)
	assert.Equal(t, errUnknown.Error(), errWrongPsw.Error())
}

func TestLoginForbiddenIsDistinct(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedUser("test@example.com", "Abcdef12")

	f.users.mu.Lock()
	u := f.users.users[user.ID]
	u.Status = models.UserStatusForbidden
	f.users.users[user.ID] = u
	f.users.mu.Unlock()

	_, err := f.svc.Login(context.Background(), LoginInput{
		Username: "test@example.com",
		Password: security.HashPassword("Abcdef12"),
	})
	assert.ErrorIs(t, err, ErrAccountForbidden)
}

func TestLoginMissingFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), LoginInput{Username: "test@example.com"})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = f.svc.Login(context.Background(), LoginInput{Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestRootLoginMintsRootSession(t *testing.T) {
	f := newFixture(t)
	f.seedUser("root", "Abcdef12")

	res, err := f.svc.Login(context.Background(), LoginInput{
		Username: "root",
		Password: security.HashPassword("Abcdef12"),
	})
	require.NoError(t, err)

	claims, err := security.ParseSessionToken(res.Token, "unit-test-secret")
	require.NoError(t, err)
	assert.True(t, claims.IsRoot)
}

func TestRegisterWithEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.codes.Issue(ctx, "new@example.com", authcode.PurposeRegister)
	require.NoError(t, err)

	res, err := f.svc.Register(ctx, RegisterInput{
		Username: "new@example.com",
		Password: "Abcdef12",
		Code:     code,
	})
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", res.User.Username)
	assert.Equal(t, "new", res.Team.MemberName)
	assert.Equal(t, "new的团队", res.Team.TeamName)
	assert.Equal(t,
		security.HashPassword(security.HashPassword("Abcdef12")),
		res.User.PasswordHash)

	// The fresh token is immediately usable.
	claims, err := security.ParseSessionToken(res.Token, "unit-test-secret")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	tasks := waitForTasks(t, f.enqueuer, 1)
	assert.Equal(t, queue.TaskSyncUser, tasks[0].Type)
	assert.Equal(t, "new@example.com", tasks[0].Username)
	assert.Equal(t, "new", tasks[0].DisplayName)

	// And login with the chosen password works.
	_, err = f.svc.Login(ctx, LoginInput{
		Username: "new@example.com",
		Password: security.HashPassword("Abcdef12"),
	})
	assert.NoError(t, err)
}

func TestRegisterWithPhoneBindsEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The code subject is the bound email, not the phone number.
	code, err := f.codes.Issue(ctx, "owner@example.com", authcode.PurposeRegister)
	require.NoError(t, err)

	res, err := f.svc.Register(ctx, RegisterInput{
		Username: "13800138000",
		Password: "Abcdef12",
		Code:     code,
		Email:    "owner@example.com",
	})
	require.NoError(t, err)

	require.NotNil(t, res.User.Email)
	assert.Equal(t, "owner@example.com", *res.User.Email)
	assert.Equal(t, "8000用户", res.Team.MemberName)
}

func TestRegisterPhoneWithoutEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "13800138000",
		Password: "Abcdef12",
		Code:     "123456",
	})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "new@example.com",
		Password: "abcdef12",
		Code:     "123456",
	})
	assert.ErrorIs(t, err, ErrPasswordRule)
}

func TestRegisterRejectsBadCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "new@example.com",
		Password: "Abcdef12",
		Code:     "999999",
	})
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.seedUser("test@example.com", "Abcdef12")
	ctx := context.Background()

	code, err := f.codes.Issue(ctx, "test@example.com", authcode.PurposeRegister)
	require.NoError(t, err)

	// A valid code never bypasses the uniqueness check.
	_, err = f.svc.Register(ctx, RegisterInput{
		Username: "test@example.com",
		Password: "Abcdef12",
		Code:     code,
	})
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestRegisterDuplicateBoundEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, _ := f.seedUser("other@example.com", "Abcdef12")
	email := "bound@example.com"
	f.users.mu.Lock()
	u := f.users.users[user.ID]
	u.Email = &email
	f.users.users[user.ID] = u
	f.users.mu.Unlock()

	code, err := f.codes.Issue(ctx, "bound@example.com", authcode.PurposeRegister)
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, RegisterInput{
		Username: "13800138000",
		Password: "Abcdef12",
		Code:     code,
		Email:    "bound@example.com",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestSendAuthCodeHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.codes.IssueCaptcha(ctx, "new@example.com")
	require.NoError(t, err)

	err = f.svc.SendAuthCode(ctx, SendCodeInput{
		Username: "new@example.com",
		Purpose:  authcode.PurposeRegister,
		Captcha:  "AB12",
	})
	require.NoError(t, err)

	f.mailer.mu.Lock()
	defer f.mailer.mu.Unlock()
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "new@example.com", f.mailer.sent[0].To)
	assert.Equal(t, "123456", f.mailer.sent[0].Code)
}

func TestSendAuthCodeRequiresCaptcha(t *testing.T) {
	f := newFixture(t)

	err := f.svc.SendAuthCode(context.Background(), SendCodeInput{
		Username: "new@example.com",
		Purpose:  authcode.PurposeRegister,
		Captcha:  "WRONG",
	})
	assert.ErrorIs(t, err, ErrCaptchaInvalid)
}

func TestSendAuthCodeRegisterDisabled(t *testing.T) {
	f := newFixture(t)
	f.configs.cfg.EmailRegisterEnabled = false
	ctx := context.Background()

	_, err := f.codes.IssueCaptcha(ctx, "new@example.com")
	require.NoError(t, err)

	err = f.svc.SendAuthCode(ctx, SendCodeInput{
		Username: "new@example.com",
		Purpose:  authcode.PurposeRegister,
		Captcha:  "AB12",
	})
	assert.ErrorIs(t, err, ErrRegisterDisabled)
}

func TestSendAuthCodeResetIgnoresRegisterSwitch(t *testing.T) {
	f := newFixture(t)
	f.configs.cfg.EmailRegisterEnabled = false
	ctx := context.Background()

	_, err := f.codes.IssueCaptcha(ctx, "test@example.com")
	require.NoError(t, err)

	err = f.svc.SendAuthCode(ctx, SendCodeInput{
		Username: "test@example.com",
		Purpose:  authcode.PurposeReset,
		Captcha:  "AB12",
	})
	assert.NoError(t, err)
}

func TestSendAuthCodeRejectsPhone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.codes.IssueCaptcha(ctx, "13800138000")
	require.NoError(t, err)

	err = f.svc.SendAuthCode(ctx, SendCodeInput{
		Username: "13800138000",
		Purpose:  authcode.PurposeRegister,
		Captcha:  "AB12",
	})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestFindPasswordResetsAndRevokesSessions(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedUser("test@example.com", "Abcdef12")
	ctx := context.Background()

	// Two live sessions from earlier logins.
	for i := 0; i < 2; i++ {
		_, err := f.svc.Login(ctx, LoginInput{
			Username: "test@example.com",
			Password: security.HashPassword("Abcdef12"),
		})
		require.NoError(t, err)
	}
	require.Equal(t, 2, f.sessions.count(user.ID))

	code, err := f.codes.Issue(ctx, "test@example.com", authcode.PurposeReset)
	require.NoError(t, err)

	res, err := f.svc.FindPassword(ctx, FindPasswordInput{
		Username: "test@example.com",
		Code:     code,
		Password: "NewPsw123",
	})
	require.NoError(t, err)

	// Only the freshly minted session survives.
	assert.Equal(t, 1, f.sessions.count(user.ID))

	_, err = f.svc.Login(ctx, LoginInput{
		Username: "test@example.com",
		Password: security.HashPassword("Abcdef12"),
	})
	assert.ErrorIs(t, err, ErrAccountPswError)

	_, err = f.svc.Login(ctx, LoginInput{
		Username: "test@example.com",
		Password: security.HashPassword("NewPsw123"),
	})
	assert.NoError(t, err)

	claims, err := security.ParseSessionToken(res.Token, "unit-test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestFindPasswordBadCode(t *testing.T) {
	f := newFixture(t)
	f.seedUser("test@example.com", "Abcdef12")

	_, err := f.svc.FindPassword(context.Background(), FindPasswordInput{
		Username: "test@example.com",
		Code:     "999999",
		Password: "NewPsw123",
	})
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	user, detail := f.seedUser("test@example.com", "Abcdef12")
	ctx := context.Background()

	// One session on another device plus the current one.
	_, err := f.svc.Login(ctx, LoginInput{
		Username: "test@example.com",
		Password: security.HashPassword("Abcdef12"),
	})
	require.NoError(t, err)

	current := models.Session{
		ID:           "current-session",
		UserID:       user.ID,
		TeamID:       detail.TeamID,
		TeamMemberID: detail.MemberID,
	}
	require.NoError(t, f.sessions.Create(ctx, current))
	require.Equal(t, 2, f.sessions.count(user.ID))

	oldHash := security.HashPassword("Abcdef12")
	newHash := security.HashPassword("NewPsw123")

	require.NoError(t, f.svc.ChangePassword(ctx, current, oldHash, newHash))

	// Every other session is gone; the current one stays.
	assert.Equal(t, 1, f.sessions.count(user.ID))
	f.sessions.mu.Lock()
	_, kept := f.sessions.sessions["current-session"]
	f.sessions.mu.Unlock()
	assert.True(t, kept)

	_, err = f.svc.Login(ctx, LoginInput{
		Username: "test@example.com",
		Password: newHash,
	})
	assert.NoError(t, err)
}

func TestChangePasswordWrongOld(t *testing.T) {
	f := newFixture(t)
	user, detail := f.seedUser("test@example.com", "Abcdef12")

	session := models.Session{ID: "s1", UserID: user.ID, TeamMemberID: detail.MemberID}
	err := f.svc.ChangePassword(context.Background(), session,
		security.HashPassword("WrongPsw1"),
		security.HashPassword("NewPsw123"))
	assert.ErrorIs(t, err, ErrOldPasswordWrong)
}

func TestChangePasswordUnchanged(t *testing.T) {
	f := newFixture(t)
	user, detail := f.seedUser("test@example.com", "Abcdef12")

	session := models.Session{ID: "s1", UserID: user.ID, TeamMemberID: detail.MemberID}
	hash := security.HashPassword("Abcdef12")
	err := f.svc.ChangePassword(context.Background(), session, hash, hash)
	assert.ErrorIs(t, err, ErrPasswordUnchanged)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedUser("test@example.com", "Abcdef12")
	ctx := context.Background()

	_, err := f.svc.Login(ctx, LoginInput{
		Username: "test@example.com",
		Password: security.HashPassword("Abcdef12"),
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.sessions.count(user.ID))

	f.sessions.mu.Lock()
	var sessionID string
	for id := range f.sessions.sessions {
		sessionID = id
	}
	f.sessions.mu.Unlock()

	require.NoError(t, f.svc.Logout(ctx, sessionID))
	assert.Equal(t, 0, f.sessions.count(user.ID))
}

func TestSetUserStatusForbidRevokesAndEnqueues(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedUser("test@example.com", "Abcdef12")
	ctx := context.Background()

	_, err := f.svc.Login(ctx, LoginInput{
		Username: "test@example.com",
		Password: security.HashPassword("Abcdef12"),
	})
	require.NoError(t, err)
	waitForTasks(t, f.enqueuer, 1)
	require.Equal(t, 1, f.sessions.count(user.ID))

	updated, err := f.svc.SetUserStatus(ctx, user.ID, models.UserStatusForbidden)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusForbidden, updated.Status)

	// Existing sessions die with the account.
	assert.Equal(t, 0, f.sessions.count(user.ID))

	// The billing mirror rides the stream, never an inline call.
	tasks := waitForTasks(t, f.enqueuer, 2)
	assert.Equal(t, queue.TaskSetStatus, tasks[1].Type)
	assert.Equal(t, "test@example.com", tasks[1].Username)
	assert.Equal(t, 2, tasks[1].Status)

	_, err = f.svc.Login(ctx, LoginInput{
		Username: "test@example.com",
		Password: security.HashPassword("Abcdef12"),
	})
	assert.ErrorIs(t, err, ErrAccountForbidden)
}

func TestSetUserStatusReactivate(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedUser("test@example.com", "Abcdef12")
	ctx := context.Background()

	_, err := f.svc.SetUserStatus(ctx, user.ID, models.UserStatusForbidden)
	require.NoError(t, err)
	waitForTasks(t, f.enqueuer, 1)

	updated, err := f.svc.SetUserStatus(ctx, user.ID, models.UserStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, updated.Status)

	tasks := waitForTasks(t, f.enqueuer, 2)
	assert.Equal(t, queue.TaskSetStatus, tasks[1].Type)
	assert.Equal(t, 1, tasks[1].Status)
}

func TestSetUserStatusRootImmutable(t *testing.T) {
	f := newFixture(t)
	root, _ := f.seedUser("root", "Abcdef12")

	_, err := f.svc.SetUserStatus(context.Background(), root.ID, models.UserStatusForbidden)
	assert.ErrorIs(t, err, ErrRootImmutable)

	stored, err := f.users.GetByID(context.Background(), root.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, stored.Status)
}

func TestSetUserStatusUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetUserStatus(context.Background(), "missing", models.UserStatusForbidden)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestPreLogin(t *testing.T) {
	f := newFixture(t)

	code, err := f.svc.PreLogin(context.Background(), "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)

	_, err = f.svc.PreLogin(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidParams)
}
