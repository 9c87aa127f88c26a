package service

import (
	"errors"

	"github.com/google/uuid"

	"typingclash/internal/clock"
	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/repository"
	"typingclash/internal/validation"
)

// ErrInvalidPoints is returned for non-positive adjustments
var ErrInvalidPoints = errors.New("points amount must be positive")

// PointsAdjustment is a manual change to a student's balance
type PointsAdjustment struct {
	Amount int    `json:"amount" validate:"required,gt=0,lte=100000"`
	Key    string `json:"idempotencyKey" validate:"omitempty,max=100"`
}

// PointsService moves points through the ledger
type PointsService struct {
	pointsRepo   *repository.PointsRepository
	progressRepo *repository.ProgressRepository
	relationRepo *repository.RelationRepository
	clock        clock.Clock
	log          *logger.Logger
}

// NewPointsService creates a new points service
func NewPointsService(pointsRepo *repository.PointsRepository, progressRepo *repository.ProgressRepository,
	relationRepo *repository.RelationRepository, clk clock.Clock, log *logger.Logger) *PointsService {
	return &PointsService{
		pointsRepo:   pointsRepo,
		progressRepo: progressRepo,
		relationRepo: relationRepo,
		clock:        clk,
		log:          log,
	}
}

// Add credits amount to userID. It reports false when key was applied
// before.
func (s *PointsService) Add(userID int64, amount int, reason, key string) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidPoints
	}
	return s.apply(userID, amount, reason, key)
}

// Deduct charges amount to userID's used points
func (s *PointsService) Deduct(userID int64, amount int, reason, key string) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidPoints
	}
	p, err := s.progressRepo.Get(userID)
	if err != nil {
		return false, err
	}
	if p.AvailablePoints() < amount {
		return false, &InsufficientPointsError{Need: amount, Available: p.AvailablePoints()}
	}
	return s.apply(userID, -amount, reason, key)
}

func (s *PointsService) apply(userID int64, amount int, reason, key string) (bool, error) {
	if key == "" {
		key = uuid.NewString()
	}
	entry := &models.PointsEntry{
		UserID:         userID,
		Amount:         amount,
		Reason:         reason,
		IdempotencyKey: key,
		CreatedAt:      s.clock.Now(),
	}
	applied, err := s.pointsRepo.Apply(entry)
	if err != nil {
		return false, err
	}
	if applied {
		s.log.Info("points applied", "user_id", userID, "amount", amount, "reason", reason)
	}
	return applied, nil
}

// ParentAward lets a parent credit one of their students
func (s *PointsService) ParentAward(parent *models.User, studentID int64, adj PointsAdjustment) (bool, error) {
	if err := s.checkParent(parent, studentID, adj); err != nil {
		return false, err
	}
	return s.Add(studentID, adj.Amount, models.ReasonParentAward, adj.Key)
}

// ParentDeduct lets a parent charge one of their students
func (s *PointsService) ParentDeduct(parent *models.User, studentID int64, adj PointsAdjustment) (bool, error) {
	if err := s.checkParent(parent, studentID, adj); err != nil {
		return false, err
	}
	return s.Deduct(studentID, adj.Amount, models.ReasonParentDeduct, adj.Key)
}

func (s *PointsService) checkParent(parent *models.User, studentID int64, adj PointsAdjustment) error {
	if err := validation.Struct(adj); err != nil {
		return err
	}
	if !parent.IsParent() {
		return ErrNotParent
	}
	rel, err := s.relationRepo.Get(parent.ID, studentID)
	if err != nil {
		return err
	}
	if rel == nil {
		return ErrNoAccess
	}
	return nil
}

// Balance is a user's point totals
type Balance struct {
	TotalPoints     int `json:"totalPoints"`
	UsedPoints      int `json:"usedPoints"`
	AvailablePoints int `json:"availablePoints"`
}

// Balance returns the user's current totals
func (s *PointsService) Balance(userID int64) (*Balance, error) {
	p, err := s.progressRepo.Get(userID)
	if err != nil {
		return nil, err
	}
	return &Balance{TotalPoints: p.TotalPoints, UsedPoints: p.UsedPoints, AvailablePoints: p.AvailablePoints()}, nil
}

// History returns the user's ledger, newest first
func (s *PointsService) History(userID int64, limit int) ([]models.PointsEntry, error) {
	entries, err := s.pointsRepo.History(userID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.PointsEntry{}
	}
	return entries, nil
}
