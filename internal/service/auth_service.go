package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"typingclash/internal/clock"
	"typingclash/internal/credentials"
	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/repository"
	"typingclash/internal/security"
	"typingclash/internal/validation"
)

var (
	ErrAccountNameTaken   = errors.New("account name already taken")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid account name or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrSignupClosed       = errors.New("signup is closed")
	ErrInappropriateName  = errors.New("name contains a blocked word")
	ErrUserNotFound       = errors.New("user not found")
)

const (
	inviteCodeAttempts  = 3
	accountNameAttempts = 10
)

// NameFilter finds blocked words in user-chosen names
type NameFilter interface {
	FindBadWord(text string) (string, bool, error)
}

// SignupInput is a self-service account request
type SignupInput struct {
	AccountName string      `json:"accountName" validate:"required,accountname"`
	Password    string      `json:"password" validate:"required,min=8,max=72"`
	Nickname    string      `json:"nickname" validate:"omitempty,max=32"`
	Email       string      `json:"email" validate:"omitempty,email"`
	Role        models.Role `json:"role" validate:"required,oneof=parent student"`
}

// AuthService handles accounts, sessions and access tokens
type AuthService struct {
	userRepo        *repository.UserRepository
	settingsRepo    *repository.SettingsRepository
	tokens          *security.TokenIssuer
	filter          NameFilter
	email           *EmailService
	clock           clock.Clock
	sessionDuration time.Duration
	signupClosed    bool
	log             *logger.Logger
}

// AuthConfig carries the auth service's tunables
type AuthConfig struct {
	SessionDuration time.Duration
	SignupClosed    bool
}

// NewAuthService creates a new auth service. filter and email may be nil.
func NewAuthService(userRepo *repository.UserRepository, settingsRepo *repository.SettingsRepository, tokens *security.TokenIssuer,
	filter NameFilter, email *EmailService, clk clock.Clock, cfg AuthConfig, log *logger.Logger) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		settingsRepo:    settingsRepo,
		tokens:          tokens,
		filter:          filter,
		email:           email,
		clock:           clk,
		sessionDuration: cfg.SessionDuration,
		signupClosed:    cfg.SignupClosed,
		log:             log,
	}
}

// Signup creates an account with its progress row and signs it in
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.Session, *models.User, error) {
	in.AccountName = strings.TrimSpace(in.AccountName)
	in.Nickname = strings.TrimSpace(in.Nickname)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, nil, err
	}
	if in.Role == models.RoleParent {
		if err := validation.ValidateEmail(in.Email); err != nil {
			return nil, nil, err
		}
	}
	if s.settingsRepo.IsSignupClosed(s.signupClosed) {
		return nil, nil, ErrSignupClosed
	}
	if err := s.checkNames(in.AccountName, in.Nickname); err != nil {
		return nil, nil, err
	}

	existing, err := s.userRepo.GetUserByAccountName(in.AccountName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check account name: %w", err)
	}
	if existing != nil {
		return nil, nil, ErrAccountNameTaken
	}
	if in.Email != "" {
		existing, err := s.userRepo.GetUserByEmail(in.Email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check email: %w", err)
		}
		if existing != nil {
			return nil, nil, ErrEmailTaken
		}
	}

	passwordHash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	nickname := in.Nickname
	if nickname == "" {
		nickname = in.AccountName
	}
	user := &models.User{
		Email:          in.Email,
		PasswordHash:   passwordHash,
		AccountName:    in.AccountName,
		Nickname:       nickname,
		Role:           in.Role,
		MembershipTier: models.TierFree,
		Level:          1,
		SoundEnabled:   true,
	}
	if err := s.createWithInviteCode(user); err != nil {
		return nil, nil, err
	}
	s.log.Info("account created", "user_id", user.ID, "role", user.Role)

	if user.IsParent() && s.email != nil {
		if err := s.email.SendWelcomeEmail(ctx, user.Email, user.Nickname); err != nil {
			s.log.Warn("failed to send welcome email", "user_id", user.ID, "error", err)
		}
	}

	session, err := s.createSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// createWithInviteCode inserts user, drawing a fresh invite code for
// students when the previous one collides.
func (s *AuthService) createWithInviteCode(user *models.User) error {
	today := clock.Date(s.clock.Now())
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		if user.Role == models.RoleStudent {
			code, err := credentials.GenerateInviteCode()
			if err != nil {
				return fmt.Errorf("failed to generate invite code: %w", err)
			}
			user.InviteCode = code
		}

		err := s.userRepo.CreateUser(user, today)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("failed to create user: %w", err)
		}

		// tell a taken account name apart from an invite code collision
		taken, lookupErr := s.userRepo.GetUserByAccountName(user.AccountName)
		if lookupErr != nil {
			return fmt.Errorf("failed to check account name: %w", lookupErr)
		}
		if taken != nil {
			return ErrAccountNameTaken
		}
		if user.Role != models.RoleStudent {
			return ErrEmailTaken
		}
	}
	return fmt.Errorf("failed to allocate a unique invite code after %d attempts", inviteCodeAttempts)
}

func (s *AuthService) checkNames(names ...string) error {
	if s.filter == nil {
		return nil
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		word, found, err := s.filter.FindBadWord(name)
		if err != nil {
			return fmt.Errorf("failed to check name: %w", err)
		}
		if found {
			s.log.Info("blocked name rejected", "word", word)
			return ErrInappropriateName
		}
	}
	return nil
}

// AccountNameAvailable reports whether name is valid and unused
func (s *AuthService) AccountNameAvailable(name string) (bool, error) {
	if err := validation.ValidateAccountName(name); err != nil {
		return false, err
	}
	existing, err := s.userRepo.GetUserByAccountName(name)
	if err != nil {
		return false, fmt.Errorf("failed to check account name: %w", err)
	}
	return existing == nil, nil
}

// SuggestAccountName returns an unused generated account name
func (s *AuthService) SuggestAccountName() (string, error) {
	for i := 0; i < accountNameAttempts; i++ {
		name, err := credentials.SuggestAccountName()
		if err != nil {
			return "", fmt.Errorf("failed to generate account name: %w", err)
		}
		ok, err := s.AccountNameAvailable(name)
		if err != nil {
			return "", err
		}
		if ok {
			return name, nil
		}
	}
	return "", errors.New("failed to find a free account name")
}

// Login authenticates by account name or email and creates a session
func (s *AuthService) Login(login, password string) (*models.Session, *models.User, error) {
	login = strings.TrimSpace(login)
	var (
		user *models.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.userRepo.GetUserByEmail(strings.ToLower(login))
	} else {
		user, err = s.userRepo.GetUserByAccountName(login)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.createSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) createSession(userID int64) (*models.Session, error) {
	expiresAt := s.clock.Now().Add(s.sessionDuration)
	session, err := s.userRepo.CreateSession(security.GenerateSessionID(), userID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(sessionID string) (*models.User, error) {
	session, err := s.userRepo.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if !s.clock.Now().Before(session.ExpiresAt) {
		_ = s.userRepo.DeleteSession(sessionID)
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// IssueToken creates a bearer token for API clients
func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	return s.tokens.Issue(user.ID, string(user.Role))
}

// ValidateToken verifies a bearer token and loads its user
func (s *AuthService) ValidateToken(token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetUserByID(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, security.ErrInvalidToken
	}
	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(sessionID string) error {
	if err := s.userRepo.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions() (int64, error) {
	n, err := s.userRepo.DeleteExpiredSessions(s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return n, nil
}

// OAuthLogin signs in a parent through an external identity provider,
// linking to an existing account by email or creating a new one.
func (s *AuthService) OAuthLogin(ctx context.Context, provider, subject, email, name string) (*models.Session, *models.User, error) {
	if provider == "" || subject == "" {
		return nil, nil, errors.New("missing oauth provider information")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetUserByOAuth(provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		existing, err := s.userRepo.GetUserByEmail(email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		switch {
		case existing != nil && existing.OAuthProvider != "" && existing.OAuthProvider != provider:
			return nil, nil, ErrEmailTaken
		case existing != nil:
			if err := s.userRepo.LinkOAuth(existing.ID, provider, subject); err != nil {
				return nil, nil, fmt.Errorf("failed to link oauth provider: %w", err)
			}
			user = existing
		default:
			user, err = s.createOAuthParent(ctx, provider, subject, email, name)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	session, err := s.createSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) createOAuthParent(ctx context.Context, provider, subject, email, name string) (*models.User, error) {
	if s.settingsRepo.IsSignupClosed(s.signupClosed) {
		return nil, ErrSignupClosed
	}
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	accountName, err := s.SuggestAccountName()
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:          email,
		AccountName:    accountName,
		Nickname:       name,
		Role:           models.RoleParent,
		MembershipTier: models.TierFree,
		Level:          1,
		SoundEnabled:   true,
		OAuthProvider:  provider,
		OAuthSubject:   subject,
	}
	if err := s.userRepo.CreateUser(user, clock.Date(s.clock.Now())); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create oauth user: %w", err)
	}
	s.log.Info("oauth account created", "user_id", user.ID, "provider", provider)

	if s.email != nil {
		if err := s.email.SendWelcomeEmail(ctx, user.Email, user.Nickname); err != nil {
			s.log.Warn("failed to send welcome email", "user_id", user.ID, "error", err)
		}
	}
	return user, nil
}
