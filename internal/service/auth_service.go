package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"copyforge/internal/models"
	"copyforge/internal/repository"
	"copyforge/internal/security"
	"copyforge/internal/validation"
)

const welcomeEmailTimeout = 30 * time.Second

// AuthService handles registration, login and the session lifecycle
type AuthService struct {
	userRepo        *repository.UserRepository
	emailService    *EmailService
	sessionDuration time.Duration
	now             func() time.Time
	log             logrus.FieldLogger
}

// NewAuthService creates a new auth service. emailService may be nil.
func NewAuthService(userRepo *repository.UserRepository, emailService *EmailService, sessionDuration time.Duration, log logrus.FieldLogger) *AuthService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthService{
		userRepo:        userRepo,
		emailService:    emailService,
		sessionDuration: sessionDuration,
		now:             time.Now,
		log:             log,
	}
}

// Register creates a new account and signs it in
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.Session, *models.User, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, nil, err
	}

	existingUser, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, nil, ErrDuplicateEmail
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, email, passwordHash)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent registration
		return nil, nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.sendWelcome(ctx, user.Email)

	return session, user, nil
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Session, *models.User, error) {
	// Input that cannot match any account fails like a wrong password
	email = validation.NormalizeEmail(email)
	if validation.ValidateEmail(email) != nil || password == "" {
		security.BurnPasswordCheck(password)
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		security.BurnPasswordCheck(password)
		return nil, nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	return session, user, nil
}

// CreateSession issues a fresh token for userID
func (s *AuthService) CreateSession(ctx context.Context, userID string) (*models.Session, error) {
	token, err := security.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session, err := s.userRepo.CreateSession(ctx, userID, token, s.now().Add(s.sessionDuration))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ResolveSession returns the user owning token, or nil when the token is
// empty, unknown or expired. Expired sessions are deleted on the way out.
// Errors are returned only for storage failures.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.userRepo.GetSessionByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	if session.IsExpiredAt(s.now()) {
		if err := s.userRepo.DeleteSessionsByToken(ctx, token); err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}
		return nil, nil
	}

	user, err := s.userRepo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// DeleteSession invalidates token. Unknown tokens are not an error.
func (s *AuthService) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.userRepo.DeleteSessionsByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

func (s *AuthService) sendWelcome(ctx context.Context, email string) {
	if s.emailService == nil || !s.emailService.IsEnabled() {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), welcomeEmailTimeout)
		defer cancel()
		if err := s.emailService.SendWelcomeEmail(ctx, email); err != nil {
			s.log.WithError(err).WithField("email", email).Warn("failed to send welcome email")
		}
	}()
}
