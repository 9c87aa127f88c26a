package service

import (
	"errors"
	"fmt"
	"strings"

	"typingclash/internal/logger"
	"typingclash/internal/models"
	"typingclash/internal/playtime"
	"typingclash/internal/repository"
)

var (
	ErrNotParent           = errors.New("only parent accounts can do this")
	ErrNotStudent          = errors.New("only student accounts can do this")
	ErrStudentNotFound     = errors.New("no student found for that invite code or account name")
	ErrTargetNotStudent    = errors.New("that account is not a student account")
	ErrBindSelf            = errors.New("you cannot bind yourself")
	ErrAlreadyBoundByYou   = errors.New("this student is already bound to you")
	ErrAlreadyBoundByOther = errors.New("this student is already bound to another parent")
	ErrNoAccess            = errors.New("you have no access to this student")
	ErrRelationNotFound    = errors.New("relation not found")
	ErrInvalidRatio        = errors.New("practice and play minutes per slot must be positive")
)

// ParentService binds students to parents and exposes student data to them
type ParentService struct {
	userRepo     *repository.UserRepository
	relationRepo *repository.RelationRepository
	progressRepo *repository.ProgressRepository
	exerciseRepo *repository.ExerciseRepository
	gameRepo     *repository.GameRepository
	log          *logger.Logger
}

// NewParentService creates a new parent service
func NewParentService(userRepo *repository.UserRepository, relationRepo *repository.RelationRepository,
	progressRepo *repository.ProgressRepository, exerciseRepo *repository.ExerciseRepository,
	gameRepo *repository.GameRepository, log *logger.Logger) *ParentService {
	return &ParentService{
		userRepo:     userRepo,
		relationRepo: relationRepo,
		progressRepo: progressRepo,
		exerciseRepo: exerciseRepo,
		gameRepo:     gameRepo,
		log:          log,
	}
}

// BindByInviteCode binds the student owning code to parent
func (s *ParentService) BindByInviteCode(parent *models.User, code string) (*models.Relation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrStudentNotFound
	}
	student, err := s.userRepo.GetUserByInviteCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to find student: %w", err)
	}
	return s.bind(parent, student)
}

// BindByAccountName binds the student with accountName to parent
func (s *ParentService) BindByAccountName(parent *models.User, accountName string) (*models.Relation, error) {
	accountName = strings.ToLower(strings.TrimSpace(accountName))
	if accountName == "" {
		return nil, ErrStudentNotFound
	}
	student, err := s.userRepo.GetUserByAccountName(accountName)
	if err != nil {
		return nil, fmt.Errorf("failed to find student: %w", err)
	}
	return s.bind(parent, student)
}

func (s *ParentService) bind(parent, student *models.User) (*models.Relation, error) {
	if !parent.IsParent() {
		return nil, ErrNotParent
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}
	if student.ID == parent.ID {
		return nil, ErrBindSelf
	}
	if student.Role != models.RoleStudent {
		return nil, ErrTargetNotStudent
	}

	existing, err := s.relationRepo.GetByStudent(student.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, s.boundError(existing, parent.ID)
	}

	rel, err := s.relationRepo.Create(parent.ID, student.ID)
	if errors.Is(err, repository.ErrDuplicate) {
		// lost a race with another bind
		if existing, _ := s.relationRepo.GetByStudent(student.ID); existing != nil {
			return nil, s.boundError(existing, parent.ID)
		}
		return nil, ErrAlreadyBoundByOther
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("student bound", "parent_id", parent.ID, "student_id", student.ID)
	return rel, nil
}

func (s *ParentService) boundError(rel *models.Relation, parentID int64) error {
	if rel.ParentID == parentID {
		return ErrAlreadyBoundByYou
	}
	return ErrAlreadyBoundByOther
}

// Unbind removes the relation between parent and student. Either side of
// the relation may call it.
func (s *ParentService) Unbind(caller *models.User, parentID, studentID int64) error {
	if caller.ID != parentID && caller.ID != studentID {
		return ErrNoAccess
	}
	removed, err := s.relationRepo.Delete(parentID, studentID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrRelationNotFound
	}
	s.log.Info("student unbound", "parent_id", parentID, "student_id", studentID, "by", caller.ID)
	return nil
}

// Students lists the parent's bound students
func (s *ParentService) Students(parent *models.User) ([]models.StudentSummary, error) {
	if !parent.IsParent() {
		return nil, ErrNotParent
	}
	students, err := s.relationRepo.ListStudents(parent.ID)
	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []models.StudentSummary{}
	}
	return students, nil
}

// Parents lists the accounts supervising the student
func (s *ParentService) Parents(student *models.User) ([]models.User, error) {
	return s.relationRepo.ListParents(student.ID)
}

// Relation returns the parent's relation to studentID or ErrNoAccess
func (s *ParentService) Relation(parent *models.User, studentID int64) (*models.Relation, error) {
	if !parent.IsParent() {
		return nil, ErrNotParent
	}
	rel, err := s.relationRepo.Get(parent.ID, studentID)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, ErrNoAccess
	}
	return rel, nil
}

// StudentProgress returns a bound student's stored progress
func (s *ParentService) StudentProgress(parent *models.User, studentID int64) (*models.Progress, error) {
	if _, err := s.Relation(parent, studentID); err != nil {
		return nil, err
	}
	return s.progressRepo.Get(studentID)
}

// StudentRecords returns a bound student's daily records, newest first
func (s *ParentService) StudentRecords(parent *models.User, studentID int64) ([]models.DailyRecord, error) {
	if _, err := s.Relation(parent, studentID); err != nil {
		return nil, err
	}
	records, err := s.exerciseRepo.ListDailyRecords(studentID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.DailyRecord{}
	}
	return records, nil
}

// StudentGames returns a bound student's game records
func (s *ParentService) StudentGames(parent *models.User, studentID int64) ([]models.GameRecord, error) {
	if _, err := s.Relation(parent, studentID); err != nil {
		return nil, err
	}
	records, err := s.gameRepo.ListRecords(studentID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.GameRecord{}
	}
	return records, nil
}

// UpdateRatio sets the practice-to-play ratio for a bound student
func (s *ParentService) UpdateRatio(parent *models.User, studentID int64, ratio playtime.Ratio) (*models.Relation, error) {
	rel, err := s.Relation(parent, studentID)
	if err != nil {
		return nil, err
	}
	if ratio.PracticePerSlotMinutes <= 0 || ratio.PlayPerSlotMinutes <= 0 {
		return nil, ErrInvalidRatio
	}
	if ratio.MaxDailyPlayMinutes != nil && *ratio.MaxDailyPlayMinutes < 0 {
		return nil, ErrInvalidRatio
	}
	if err := s.relationRepo.UpdateRatio(rel.ID, ratio.PracticePerSlotMinutes, ratio.PlayPerSlotMinutes, ratio.MaxDailyPlayMinutes); err != nil {
		return nil, err
	}
	rel.PracticePerSlotMinutes = ratio.PracticePerSlotMinutes
	rel.PlayPerSlotMinutes = ratio.PlayPerSlotMinutes
	rel.MaxDailyPlayMinutes = ratio.MaxDailyPlayMinutes
	return rel, nil
}
