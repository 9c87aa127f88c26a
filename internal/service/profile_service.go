package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"typingclash/internal/credentials"
	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/repository"
	"typingclash/internal/validation"
)

// ErrInvalidMembership is returned for unknown tiers or levels
var ErrInvalidMembership = errors.New("invalid membership tier or level")

// ProfileInput carries the fields a user may change about themselves
type ProfileInput struct {
	Nickname     *string `json:"nickname" validate:"omitempty,notblank,max=32"`
	SoundEnabled *bool   `json:"soundEnabled"`
	Avatar       *string `json:"avatar" validate:"omitempty,max=64"`
}

// ProfileService manages a user's own profile, membership and role
type ProfileService struct {
	userRepo *repository.UserRepository
	filter   NameFilter
	log      *logger.Logger
}

// NewProfileService creates a new profile service. filter may be nil.
func NewProfileService(userRepo *repository.UserRepository, filter NameFilter, log *logger.Logger) *ProfileService {
	return &ProfileService{userRepo: userRepo, filter: filter, log: log}
}

// Get loads a user by id
func (s *ProfileService) Get(userID int64) (*models.User, error) {
	u, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Update applies the non-nil fields of in to user
func (s *ProfileService) Update(user *models.User, in ProfileInput) (*models.User, error) {
	if in.Nickname != nil {
		trimmed := strings.TrimSpace(*in.Nickname)
		in.Nickname = &trimmed
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	updated := *user
	if in.Nickname != nil {
		if s.filter != nil {
			_, found, err := s.filter.FindBadWord(*in.Nickname)
			if err != nil {
				return nil, fmt.Errorf("failed to check nickname: %w", err)
			}
			if found {
				return nil, ErrInappropriateName
			}
		}
		updated.Nickname = *in.Nickname
	}
	if in.SoundEnabled != nil {
		updated.SoundEnabled = *in.SoundEnabled
	}
	if in.Avatar != nil {
		updated.Avatar = strings.TrimSpace(*in.Avatar)
	}

	if err := s.userRepo.UpdateProfile(updated.ID, updated.Nickname, updated.SoundEnabled, updated.Avatar); err != nil {
		return nil, err
	}
	return &updated, nil
}

// SetMembership changes a user's tier. A nil expiry never lapses.
func (s *ProfileService) SetMembership(userID int64, tier models.Tier, expiresAt *time.Time) error {
	if tier != models.TierFree && tier != models.TierPremium {
		return ErrInvalidMembership
	}
	if tier == models.TierFree {
		expiresAt = nil
	}
	if err := s.userRepo.UpdateMembership(userID, tier, expiresAt); err != nil {
		return err
	}
	s.log.Info("membership changed", "user_id", userID, "tier", tier)
	return nil
}

// SetLevel changes a user's level, which unlocks games
func (s *ProfileService) SetLevel(userID int64, level int) error {
	if level < 1 {
		return ErrInvalidMembership
	}
	return s.userRepo.UpdateLevel(userID, level)
}

// SwitchRole changes a user between parent and student. Students always
// carry an invite code; parents never do.
func (s *ProfileService) SwitchRole(user *models.User, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, validation.ValidationError{Field: "role", Message: "role must be parent or student"}
	}
	if role == user.Role {
		return user, nil
	}

	updated := *user
	updated.Role = role
	updated.InviteCode = ""
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		if role == models.RoleStudent {
			code, err := credentials.GenerateInviteCode()
			if err != nil {
				return nil, fmt.Errorf("failed to generate invite code: %w", err)
			}
			updated.InviteCode = code
		}
		err := s.userRepo.UpdateRole(updated.ID, role, updated.InviteCode)
		if err == nil {
			s.log.Info("role switched", "user_id", user.ID, "role", role)
			return &updated, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) || role != models.RoleStudent {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to allocate a unique invite code after %d attempts", inviteCodeAttempts)
}
