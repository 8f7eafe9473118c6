package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	identitydomain "b2b-tenancy/internal/identity/domain"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/security"
	"b2b-tenancy/internal/store"
	userdomain "b2b-tenancy/internal/user/domain"
)

// Sentinel errors for auth service; handler maps them to gRPC codes.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// AuthResult holds the outcome of Register (user_id only), Login, or Refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
}

// AuthService implements password register, login, refresh and password change.
// Tokens name the user only; the organization is chosen per request.
type AuthService struct {
	store  store.Store
	hasher *security.Hasher
	tokens *security.TokenProvider
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(st store.Store, hasher *security.Hasher, tokens *security.TokenProvider, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{store: st, hasher: hasher, tokens: tokens, logger: logger, now: time.Now}
}

// Register creates a user and local identity with the given email and password.
// Returns AuthResult with UserID only; the caller logs in to get tokens.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = userdomain.NormalizeEmail(email)
	if err := userdomain.ValidateEmail(email); err != nil {
		return nil, errs.New(errs.ErrInvalidArgument, err.Error())
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) || errors.Is(err, security.ErrPasswordTooLong) {
			return nil, errs.New(errs.ErrInvalidArgument, err.Error())
		}
		return nil, err
	}
	now := s.now().UTC()
	user := &userdomain.User{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		Status:    userdomain.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.Validate(); err != nil {
		return nil, errs.New(errs.ErrInvalidArgument, err.Error())
	}
	identity := &identitydomain.Identity{
		ID:           uuid.Must(uuid.NewV7()).String(),
		UserID:       user.ID,
		Provider:     identitydomain.IdentityProviderLocal,
		ProviderID:   email,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		existing, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.New(errs.ErrConflict, "email already registered")
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Identities().Create(ctx, identity)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return &AuthResult{UserID: user.ID}, nil
}

// Login authenticates with email and password and returns a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = userdomain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive() {
		return nil, ErrInvalidCredentials
	}
	if err := s.checkPassword(ctx, user.ID, password); err != nil {
		return nil, err
	}
	return s.issue(user.ID)
}

// Refresh validates the refresh token and returns a new pair. Deactivated
// users cannot refresh.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	userID, _, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive() {
		return nil, ErrInvalidRefreshToken
	}
	return s.issue(userID)
}

// ChangePassword replaces userID's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if err := security.CheckPassword(next); err != nil {
		return errs.New(errs.ErrInvalidArgument, err.Error())
	}
	if err := s.checkPassword(ctx, userID, current); err != nil {
		return err
	}
	hashed, err := s.hasher.Hash(next)
	if err != nil {
		return errs.New(errs.ErrInvalidArgument, err.Error())
	}
	ident, err := s.store.Identities().GetByUserAndProvider(ctx, userID, identitydomain.IdentityProviderLocal)
	if err != nil {
		return err
	}
	if err := s.store.Identities().UpdatePasswordHash(ctx, ident.ID, hashed); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.String("user_id", userID))
	return nil
}

func (s *AuthService) checkPassword(ctx context.Context, userID, password string) error {
	ident, err := s.store.Identities().GetByUserAndProvider(ctx, userID, identitydomain.IdentityProviderLocal)
	if err != nil {
		return err
	}
	if ident == nil || ident.PasswordHash == "" || !s.hasher.Matches(ident.PasswordHash, password) {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *AuthService) issue(userID string) (*AuthResult, error) {
	refresh, _, _, err := s.tokens.IssueRefresh(userID)
	if err != nil {
		return nil, err
	}
	access, accessExp, err := s.tokens.IssueAccess(userID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp,
		UserID:       userID,
	}, nil
}
