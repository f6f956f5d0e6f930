// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, storage, the task
// queue and domain logic. They are responsible for:
// - Input validation
// - Ownership scoping
// - Error translation (database errors -> domain errors)
// - Audit recording
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/25S2-PRT681-Group-D/server/internal/auth"
	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/email"
	"github.com/25S2-PRT681-Group-D/server/internal/metrics"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for password hashes. Changing it only
// affects newly stored hashes.
const BcryptCost = 12

// dummyHash is compared against when the email is unknown so that a failed
// login costs the same either way.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// =============================================================================
// Interface Definition
// =============================================================================

// UserService manages accounts and identity tokens.
type UserService interface {
	// Register creates an account and returns a token for it.
	// Returns domain.ECONFLICT if the email is taken and a validation error
	// for bad input.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.AuthResult, error)

	// Login checks credentials. Unknown email or wrong password yields
	// nil, nil; the handler answers 401.
	Login(ctx context.Context, params domain.LoginParams) (*domain.AuthResult, error)

	// VerifyToken parses and validates a bearer token.
	VerifyToken(token string) (*domain.Identity, error)

	// GetByID returns the user, or nil if absent.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// List returns every user ordered by id.
	List(ctx context.Context) ([]domain.User, error)

	// Update applies a partial update. Returns nil, nil if the user is absent.
	Update(ctx context.Context, id int64, params domain.UpdateUserParams) (*domain.User, error)

	// Delete removes the user and, by cascade, their inspections.
	// Returns false if the user is absent.
	Delete(ctx context.Context, id int64) (bool, error)
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	queries *repository.Queries
	tokens  *auth.TokenIssuer
	tasks   TaskService
	audit   AuditService
	logger  *slog.Logger
}

// NewUserService creates a UserService. tasks may be nil, in which case no
// welcome email is queued.
func NewUserService(
	queries *repository.Queries,
	tokens *auth.TokenIssuer,
	tasks TaskService,
	audit AuditService,
	logger *slog.Logger,
) UserService {
	return &userService{
		queries: queries,
		tokens:  tokens,
		tasks:   tasks,
		audit:   audit,
		logger:  logger,
	}
}

// =============================================================================
// Register / Login
// =============================================================================

func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.AuthResult, error) {
	const op = "user.register"

	params.Normalize()
	if err := params.Validate(op); err != nil {
		return nil, err
	}

	exists, err := s.queries.UserEmailExists(ctx, params.Email)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to check email availability")
	}
	if exists {
		// Hash anyway so that a taken email is not observable by timing.
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
		return nil, domain.Conflict(op, "Email is already registered")
	}

	hash, err := hashPassword(params.Password)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to hash password")
	}

	row, err := s.queries.CreateUser(ctx, repository.CreateUserParams{
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Role:         string(params.Role),
		Email:        params.Email,
		PasswordHash: hash,
	})
	if err != nil {
		// Lost a race with a concurrent registration.
		if isUniqueViolation(err) {
			return nil, domain.Conflict(op, "Email is already registered")
		}
		return nil, domain.Internal(err, op, "failed to create user")
	}

	user := userToDomain(row)
	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)

	s.audit.Record(ctx, domain.AuditEntry{
		UserID:     user.ID,
		Action:     domain.AuditActionCreate,
		EntityType: domain.AuditEntityUser,
		EntityID:   strconv.FormatInt(user.ID, 10),
		NewValues:  user,
	})
	s.queueWelcomeEmail(ctx, user)

	return s.authResult(op, user)
}

func (s *userService) queueWelcomeEmail(ctx context.Context, user *domain.User) {
	if s.tasks == nil {
		return
	}
	msg, err := email.WelcomeMessage(user.Email, user.FirstName, string(user.Role))
	if err != nil {
		s.logger.Error("failed to render welcome email", "user_id", user.ID, "error", err)
		return
	}
	if _, err := s.tasks.Enqueue(ctx, domain.EmailTask{
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.HTMLBody,
		IsHTML:  true,
	}); err != nil {
		s.logger.Error("failed to queue welcome email", "user_id", user.ID, "error", err)
	}
}

func (s *userService) Login(ctx context.Context, params domain.LoginParams) (*domain.AuthResult, error) {
	const op = "user.login"

	v := domain.NewValidator(op)
	v.Check(strings.TrimSpace(params.Email) != "", "email", "Email is required")
	v.Check(params.Password != "", "password", "Password is required")
	if err := v.Err(); err != nil {
		return nil, err
	}

	row, err := s.queries.GetUserByEmail(ctx, domain.NormalizeEmail(params.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(params.Password))
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			return nil, nil
		}
		return nil, domain.Internal(err, op, "failed to retrieve user")
	}

	if !checkPassword(row.PasswordHash, params.Password) {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		s.logger.Info("login failed", "user_id", row.ID)
		return nil, nil
	}

	user := userToDomain(row)
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.logger.Info("user logged in", "user_id", user.ID)

	s.audit.Record(ctx, domain.AuditEntry{
		UserID:     user.ID,
		Action:     domain.AuditActionLogin,
		EntityType: domain.AuditEntityUser,
		EntityID:   strconv.FormatInt(user.ID, 10),
	})

	return s.authResult(op, user)
}

func (s *userService) authResult(op string, user *domain.User) (*domain.AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to issue token")
	}
	return &domain.AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

func (s *userService) VerifyToken(token string) (*domain.Identity, error) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domain.Wrap(err, domain.EUNAUTHORIZED, "user.verify_token", "Invalid or expired token")
	}
	return identity, nil
}

// =============================================================================
// Queries and Maintenance
// =============================================================================

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, "user.get", "failed to get user")
	}
	return userToDomain(row), nil
}

func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	rows, err := s.queries.ListUsers(ctx)
	if err != nil {
		return nil, domain.Internal(err, "user.list", "failed to list users")
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, *userToDomain(row))
	}
	return users, nil
}

func (s *userService) Update(ctx context.Context, id int64, params domain.UpdateUserParams) (*domain.User, error) {
	const op = "user.update"

	if err := validateUserUpdate(op, params); err != nil {
		return nil, err
	}

	current, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, op, "failed to get user")
	}
	before := userToDomain(current)

	update := repository.UpdateUserParams{
		ID:           current.ID,
		FirstName:    current.FirstName,
		LastName:     current.LastName,
		Role:         current.Role,
		Email:        current.Email,
		PasswordHash: current.PasswordHash,
	}
	if name, ok := domain.Provided(params.FirstName); ok {
		update.FirstName = name
	}
	if name, ok := domain.Provided(params.LastName); ok {
		update.LastName = name
	}
	if role, ok := domain.Provided(params.Role); ok {
		update.Role = string(role)
	}
	if email, ok := domain.Provided(params.Email); ok {
		newEmail := domain.NormalizeEmail(email)
		if newEmail != current.Email {
			exists, err := s.queries.UserEmailExists(ctx, newEmail)
			if err != nil {
				return nil, domain.Internal(err, op, "failed to check email availability")
			}
			if exists {
				return nil, domain.Conflict(op, "Email is already registered")
			}
		}
		update.Email = newEmail
	}
	if params.Password.HasValue() && params.Password.Value != "" {
		hash, err := hashPassword(params.Password.Value)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to hash password")
		}
		update.PasswordHash = hash
	}

	row, err := s.queries.UpdateUser(ctx, update)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if isUniqueViolation(err) {
			return nil, domain.Conflict(op, "Email is already registered")
		}
		return nil, domain.Internal(err, op, "failed to update user")
	}

	user := userToDomain(row)
	s.audit.Record(ctx, domain.AuditEntry{
		UserID:     user.ID,
		Action:     domain.AuditActionUpdate,
		EntityType: domain.AuditEntityUser,
		EntityID:   strconv.FormatInt(user.ID, 10),
		OldValues:  before,
		NewValues:  user,
	})
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id int64) (bool, error) {
	const op = "user.delete"

	n, err := s.queries.DeleteUser(ctx, id)
	if err != nil {
		return false, domain.Internal(err, op, "failed to delete user")
	}
	if n == 0 {
		return false, nil
	}

	s.logger.Info("user deleted", "user_id", id)
	s.audit.Record(ctx, domain.AuditEntry{
		Action:     domain.AuditActionDelete,
		EntityType: domain.AuditEntityUser,
		EntityID:   strconv.FormatInt(id, 10),
	})
	return true, nil
}

// =============================================================================
// Helpers
// =============================================================================

// validateUserUpdate checks only the fields that will be written. Absent,
// null and blank fields leave the stored value unchanged.
func validateUserUpdate(op string, p domain.UpdateUserParams) error {
	v := domain.NewValidator(op)
	if name, ok := domain.Provided(p.FirstName); ok {
		v.Check(len(name) <= domain.MaxNameLength, "firstName", "First name must be at most 100 characters")
	}
	if name, ok := domain.Provided(p.LastName); ok {
		v.Check(len(name) <= domain.MaxNameLength, "lastName", "Last name must be at most 100 characters")
	}
	if role, ok := domain.Provided(p.Role); ok {
		v.Check(role.IsValid(), "role", "Role must be one of farmer, admin, researcher or student")
	}
	if email, ok := domain.Provided(p.Email); ok {
		v.Check(domain.IsValidEmail(domain.NormalizeEmail(email)), "email", "Email address is not valid")
	}
	if p.Password.HasValue() && p.Password.Value != "" {
		if msg := domain.PasswordProblem(p.Password.Value); msg != "" {
			v.Check(false, "password", msg)
		}
	}
	return v.Err()
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
