package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"typingclash/internal/clock"
	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/progress"
	"typingclash/internal/repository"
	"typingclash/internal/validation"
)

var (
	ErrGiftNotFound    = errors.New("gift not found")
	ErrGiftNotOwned    = errors.New("you cannot change this gift")
	ErrGiftInactive    = errors.New("this gift is no longer available")
	ErrGiftNotRedeemed = errors.New("this gift has not been redeemed")
)

// InsufficientPointsError reports how far a redemption fell short
type InsufficientPointsError struct {
	Need      int
	Available int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("not enough points: need %d, available %d", e.Need, e.Available)
}

func (e *InsufficientPointsError) Unwrap() error {
	return progress.ErrInsufficientPoints
}

// GiftInput is a parent's gift definition
type GiftInput struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description" validate:"max=500"`
	Cost        int    `json:"cost" validate:"required,gt=0,lte=100000"`
}

// GiftService manages rewards parents offer and students redeem
type GiftService struct {
	giftRepo     *repository.GiftRepository
	relationRepo *repository.RelationRepository
	progressRepo *repository.ProgressRepository
	email        *EmailService
	clock        clock.Clock
	log          *logger.Logger
}

// NewGiftService creates a new gift service. email may be nil.
func NewGiftService(giftRepo *repository.GiftRepository, relationRepo *repository.RelationRepository,
	progressRepo *repository.ProgressRepository, email *EmailService, clk clock.Clock, log *logger.Logger) *GiftService {
	return &GiftService{
		giftRepo:     giftRepo,
		relationRepo: relationRepo,
		progressRepo: progressRepo,
		email:        email,
		clock:        clk,
		log:          log,
	}
}

// Create adds a gift for one of the parent's students
func (s *GiftService) Create(parent *models.User, studentID int64, in GiftInput) (*models.Gift, error) {
	if !parent.IsParent() {
		return nil, ErrNotParent
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	rel, err := s.relationRepo.Get(parent.ID, studentID)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, ErrNoAccess
	}

	g := &models.Gift{
		ParentID:    parent.ID,
		StudentID:   studentID,
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Cost:        in.Cost,
	}
	if err := s.giftRepo.Create(g); err != nil {
		return nil, err
	}
	s.log.Info("gift created", "gift_id", g.ID, "parent_id", parent.ID, "student_id", studentID, "cost", g.Cost)
	return g, nil
}

func (s *GiftService) ownedGift(parent *models.User, giftID int64) (*models.Gift, error) {
	g, err := s.giftRepo.Get(giftID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGiftNotFound
	}
	if g.ParentID != parent.ID {
		return nil, ErrGiftNotOwned
	}
	return g, nil
}

// Update edits an active gift the parent created
func (s *GiftService) Update(parent *models.User, giftID int64, in GiftInput) (*models.Gift, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	g, err := s.ownedGift(parent, giftID)
	if err != nil {
		return nil, err
	}
	g.Name = in.Name
	g.Description = strings.TrimSpace(in.Description)
	g.Cost = in.Cost
	if err := s.giftRepo.Update(g); err != nil {
		if errors.Is(err, repository.ErrGiftChanged) {
			return nil, ErrGiftInactive
		}
		return nil, err
	}
	return g, nil
}

// Delete removes a gift the parent created
func (s *GiftService) Delete(parent *models.User, giftID int64) error {
	if _, err := s.ownedGift(parent, giftID); err != nil {
		return err
	}
	return s.giftRepo.Delete(giftID)
}

// ForStudent lists the student's gifts, optionally by status
func (s *GiftService) ForStudent(student *models.User, status models.GiftStatus) ([]models.Gift, error) {
	gifts, err := s.giftRepo.ListForStudent(student.ID, status)
	if err != nil {
		return nil, err
	}
	if gifts == nil {
		gifts = []models.Gift{}
	}
	return gifts, nil
}

// ByParent lists the gifts a parent created, for one student when
// studentID is non-zero.
func (s *GiftService) ByParent(parent *models.User, studentID int64) ([]models.Gift, error) {
	if !parent.IsParent() {
		return nil, ErrNotParent
	}
	gifts, err := s.giftRepo.ListByParent(parent.ID, studentID)
	if err != nil {
		return nil, err
	}
	if gifts == nil {
		gifts = []models.Gift{}
	}
	return gifts, nil
}

// Redeem spends the student's points on a gift. Replaying the same key
// returns the redeemed gift without charging twice.
func (s *GiftService) Redeem(ctx context.Context, student *models.User, giftID int64, key string) (*models.Gift, error) {
	if key == "" {
		key = uuid.NewString()
	}
	check := func(g *models.Gift, p *models.Progress) error {
		if g == nil {
			return ErrGiftNotFound
		}
		if g.StudentID != student.ID {
			return ErrGiftNotOwned
		}
		if g.Status != models.GiftActive {
			return ErrGiftInactive
		}
		available := 0
		if p != nil {
			available = p.AvailablePoints()
		}
		if available < g.Cost {
			return &InsufficientPointsError{Need: g.Cost, Available: available}
		}
		return nil
	}

	g, err := s.giftRepo.Redeem(giftID, key, s.clock.Now(), check)
	if err != nil {
		if errors.Is(err, repository.ErrGiftChanged) {
			return nil, ErrGiftInactive
		}
		return nil, err
	}
	s.log.Info("gift redeemed", "gift_id", g.ID, "student_id", student.ID, "cost", g.Cost)
	s.notifyParents(ctx, student, g)
	return g, nil
}

func (s *GiftService) notifyParents(ctx context.Context, student *models.User, g *models.Gift) {
	if s.email == nil || !s.email.IsEnabled() {
		return
	}
	parents, err := s.relationRepo.ListParents(student.ID)
	if err != nil {
		s.log.Warn("failed to load parents for gift email", "student_id", student.ID, "error", err)
		return
	}
	remaining := 0
	if p, err := s.progressRepo.Get(student.ID); err == nil {
		remaining = p.AvailablePoints()
	}
	name := student.Nickname
	if name == "" {
		name = student.AccountName
	}
	for _, parent := range parents {
		if err := s.email.SendGiftRedeemedEmail(ctx, parent.Email, parent.Nickname, name, g.Name, g.Cost, remaining); err != nil {
			s.log.Warn("failed to send gift email", "parent_id", parent.ID, "error", err)
		}
	}
}

// Claim marks a redeemed gift as handed over. The student who redeemed it
// or a parent bound to that student may claim it.
func (s *GiftService) Claim(caller *models.User, giftID int64) error {
	g, err := s.giftRepo.Get(giftID)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrGiftNotFound
	}
	if caller.ID != g.StudentID {
		rel, err := s.relationRepo.Get(caller.ID, g.StudentID)
		if err != nil {
			return err
		}
		if rel == nil {
			return ErrNoAccess
		}
	}
	if err := s.giftRepo.Claim(giftID, s.clock.Now()); err != nil {
		if errors.Is(err, repository.ErrGiftChanged) {
			return ErrGiftNotRedeemed
		}
		return err
	}
	return nil
}
