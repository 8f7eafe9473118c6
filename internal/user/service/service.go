// Package service serves a user's own account: profile reads and updates and
// soft deactivation.
package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/store"
	"b2b-tenancy/internal/user/domain"
)

type Service struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logger: logger, now: time.Now}
}

// Get returns the user by id.
func (s *Service) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.New(errs.ErrNotFound, "user not found")
	}
	return u, nil
}

// ProfileUpdate is a partial profile update; nil fields are left unchanged.
type ProfileUpdate struct {
	Name      *string
	AvatarURL *string
	Bio       *string
	Phone     *string
	Timezone  *string
	Locale    *string
}

// UpdateProfile applies upd to userID's profile. Locale must be a BCP 47 tag
// and Timezone an IANA zone name.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*domain.User, error) {
	if upd.Locale != nil {
		tag, err := language.Parse(*upd.Locale)
		if err != nil {
			return nil, errs.Newf(errs.ErrInvalidArgument, "locale %q is invalid", *upd.Locale)
		}
		canonical := tag.String()
		upd.Locale = &canonical
	}
	if upd.Timezone != nil {
		if _, err := time.LoadLocation(*upd.Timezone); err != nil || *upd.Timezone == "" {
			return nil, errs.Newf(errs.ErrInvalidArgument, "timezone %q is invalid", *upd.Timezone)
		}
	}
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		u.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.Phone != nil {
		u.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Timezone != nil {
		u.Timezone = *upd.Timezone
	}
	if upd.Locale != nil {
		u.Locale = *upd.Locale
	}
	u.UpdatedAt = s.now().UTC()
	if err := s.store.Users().Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Deactivate soft-deletes the account. An owner must transfer ownership
// first so no organization is left with an owner who cannot sign in.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		u, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return errs.New(errs.ErrNotFound, "user not found")
		}
		if !u.IsActive() {
			return nil
		}
		ms, err := tx.Memberships().ListMembershipsByUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, m := range ms {
			if m.IsActiveOwner() {
				return errs.Newf(errs.ErrInvariantViolation, "user owns organization %s; transfer ownership first", m.OrgID)
			}
		}
		u.Status = domain.UserStatusDeactivated
		u.UpdatedAt = s.now().UTC()
		return tx.Users().Update(ctx, u)
	})
	if err != nil {
		return err
	}
	s.logger.Info("user deactivated", zap.String("user_id", userID))
	return nil
}
