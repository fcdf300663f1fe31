package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/service/auth"
	"github.com/phrazzld/campus-api/internal/store"
)

// Session is an authenticated user with a fresh token pair.
type Session struct {
	User   *domain.User
	Tokens *auth.TokenPair
}

// UserList is the admin view of all accounts.
type UserList struct {
	Users  []*domain.User
	Counts store.RoleCounts
}

// NotificationSettings is a partial update of reminder preferences. Nil fields
// are left unchanged; ClearTelegram removes the chat id.
type NotificationSettings struct {
	TelegramChatID *int64
	ClearTelegram  bool
	EmailReminders *bool
}

// UserService manages accounts, sessions and roles.
type UserService interface {
	// Register creates a student account and signs it in.
	Register(ctx context.Context, email, password string) (*Session, error)

	// Login returns ErrInvalidCredentials for an unknown email or a wrong
	// password.
	Login(ctx context.Context, email, password string) (*Session, error)

	// Refresh trades a valid refresh token for a new pair.
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)

	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateNotifications(ctx context.Context, userID uuid.UUID, settings NotificationSettings) (*domain.User, error)

	// ListUsers returns every account with per-role counts.
	ListUsers(ctx context.Context) (*UserList, error)

	// ChangeRole accepts only teacher and student.
	ChangeRole(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.User, error)

	// CreateAdmin creates an admin account, or promotes and re-passwords an
	// existing one. created reports which happened.
	CreateAdmin(ctx context.Context, email, password string) (user *domain.User, created bool, err error)
}

// UserServiceImpl implements UserService.
type UserServiceImpl struct {
	users    store.UserStore
	reports  store.ReportStore
	tokens   auth.JWTService
	verifier auth.PasswordVerifier
	db       *sql.DB
	logger   *slog.Logger
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a UserService.
func NewUserService(
	users store.UserStore,
	reports store.ReportStore,
	tokens auth.JWTService,
	verifier auth.PasswordVerifier,
	db *sql.DB,
	logger *slog.Logger,
) *UserServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		users:    users,
		reports:  reports,
		tokens:   tokens,
		verifier: verifier,
		db:       db,
		logger:   logger.With(slog.String("component", "user_service")),
	}
}

// Register implements UserService.
func (s *UserServiceImpl) Register(ctx context.Context, email, password string) (*Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(email, password)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.users.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			log.Debug("registration with existing email")
			return nil, err
		}
		log.Error("failed to create user", slog.String("error", err.Error()))
		return nil, NewServiceError("user", "register", err)
	}

	pair, err := s.tokens.GenerateTokenPair(ctx, user.ID)
	if err != nil {
		return nil, NewServiceError("user", "register", err)
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return &Session{User: user, Tokens: pair}, nil
}

// Login implements UserService.
func (s *UserServiceImpl) Login(ctx context.Context, email, password string) (*Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, NewServiceError("user", "login", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			log.Debug("password mismatch", slog.String("user_id", user.ID.String()))
		} else {
			log.Error("stored password hash is unusable",
				slog.String("user_id", user.ID.String()),
				slog.String("error", err.Error()))
		}
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.GenerateTokenPair(ctx, user.ID)
	if err != nil {
		return nil, NewServiceError("user", "login", err)
	}
	return &Session{User: user, Tokens: pair}, nil
}

// Refresh implements UserService.
func (s *UserServiceImpl) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	// A deleted account must not keep refreshing.
	if _, err := s.users.GetByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, auth.ErrInvalidRefreshToken
		}
		return nil, NewServiceError("user", "refresh", err)
	}

	pair, err := s.tokens.GenerateTokenPair(ctx, claims.UserID)
	if err != nil {
		return nil, NewServiceError("user", "refresh", err)
	}
	return pair, nil
}

// GetUser implements UserService.
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, err
		}
		return nil, NewServiceError("user", "get", err)
	}
	return user, nil
}

// UpdateNotifications implements UserService.
func (s *UserServiceImpl) UpdateNotifications(
	ctx context.Context,
	userID uuid.UUID,
	settings NotificationSettings,
) (*domain.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch {
	case settings.ClearTelegram:
		user.TelegramChatID = nil
	case settings.TelegramChatID != nil:
		id := *settings.TelegramChatID
		user.TelegramChatID = &id
	}
	if settings.EmailReminders != nil {
		user.EmailReminders = *settings.EmailReminders
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, NewServiceError("user", "update_notifications", err)
	}
	return user, nil
}

// ListUsers implements UserService.
func (s *UserServiceImpl) ListUsers(ctx context.Context) (*UserList, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, NewServiceError("user", "list", err)
	}
	counts, err := s.reports.RoleCounts(ctx)
	if err != nil {
		return nil, NewServiceError("user", "list", err)
	}
	return &UserList{Users: users, Counts: *counts}, nil
}

// ChangeRole implements UserService.
func (s *UserServiceImpl) ChangeRole(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.User, error) {
	if role != domain.RoleTeacher && role != domain.RoleStudent {
		return nil, ErrRoleNotAssignable
	}

	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, err
		}
		return nil, NewServiceError("user", "change_role", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("user role changed",
		slog.String("user_id", userID.String()),
		slog.String("role", string(role)))
	return s.GetUser(ctx, userID)
}

// CreateAdmin implements UserService.
func (s *UserServiceImpl) CreateAdmin(
	ctx context.Context,
	email, password string,
) (*domain.User, bool, error) {
	candidate, err := domain.NewUser(email, password)
	if err != nil {
		return nil, false, err
	}
	candidate.Role = domain.RoleAdmin

	var (
		result  *domain.User
		created bool
	)
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		users := s.users.WithTx(tx)

		existing, err := users.GetByEmail(ctx, candidate.Email)
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			if err := users.Create(ctx, candidate); err != nil {
				return err
			}
			result, created = candidate, true
			return nil
		case err != nil:
			return err
		}

		existing.Role = domain.RoleAdmin
		existing.Password = password
		if err := users.Update(ctx, existing); err != nil {
			return err
		}
		result = existing
		return nil
	})
	if err != nil {
		return nil, false, NewServiceError("user", "create_admin", fmt.Errorf("admin %s: %w", candidate.Email, err))
	}

	s.logger.Info("admin account ready",
		slog.String("user_id", result.ID.String()),
		slog.Bool("created", created))
	return result, created, nil
}
