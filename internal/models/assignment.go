package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentType string

const (
	AssignmentQuiz       AssignmentType = "quiz"
	AssignmentAssignment AssignmentType = "assignment"
	AssignmentExam       AssignmentType = "exam"
)

func (t AssignmentType) IsValid() bool {
	switch t {
	case AssignmentQuiz, AssignmentAssignment, AssignmentExam:
		return true
	}
	return false
}

type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionLate      SubmissionStatus = "late"
	SubmissionGraded    SubmissionStatus = "graded"
	SubmissionReturned  SubmissionStatus = "returned"
)

// ReviewableStatuses are submissions waiting on a grader.
var ReviewableStatuses = []SubmissionStatus{SubmissionSubmitted, SubmissionLate}

type Assignment struct {
	ID           string         `json:"id" gorm:"primaryKey;size:36"`
	CourseID     string         `json:"course_id" gorm:"not null;size:36;index"`
	QuizID       *string        `json:"quiz_id" gorm:"size:36"`
	Title        string         `json:"title" gorm:"not null;size:200;index"`
	Description  *string        `json:"description" gorm:"type:text"`
	Type         AssignmentType `json:"type" gorm:"size:20;default:assignment;index"`
	DueDate      *time.Time     `json:"due_date"`
	MaxScore     float64        `json:"max_score" gorm:"not null;default:100"`
	Instructions *string        `json:"instructions" gorm:"type:text"`
	Status       PublishStatus  `json:"status" gorm:"size:20;default:draft;index"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`

	// Computed fields (not stored)
	SubmissionCount int64   `json:"submission_count" gorm:"-"`
	GradedCount     int64   `json:"graded_count" gorm:"-"`
	PendingCount    int64   `json:"pending_count" gorm:"-"`
	AverageScore    float64 `json:"average_score" gorm:"-"`
}

func (Assignment) TableName() string {
	return "assignments"
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

type Submission struct {
	ID           string           `json:"id" gorm:"primaryKey;size:36"`
	AssignmentID string           `json:"assignment_id" gorm:"not null;size:36;index"`
	UserID       string           `json:"user_id" gorm:"not null;size:255;index"`
	SubmittedAt  *time.Time       `json:"submitted_at"`
	FileURL      *string          `json:"file_url" gorm:"size:500"`
	AnswerText   *string          `json:"answer_text" gorm:"type:text"`
	Score        *float64         `json:"score"`
	Feedback     *string          `json:"feedback" gorm:"type:text"`
	Status       SubmissionStatus `json:"status" gorm:"size:20;default:pending;index"`
	GradedBy     *string          `json:"graded_by" gorm:"size:255"`
	GradedAt     *time.Time       `json:"graded_at"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	Student *Profile `json:"student,omitempty" gorm:"foreignKey:UserID"`
}

func (Submission) TableName() string {
	return "submissions"
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IsGraded reports whether a grader already scored the submission.
func (s *Submission) IsGraded() bool {
	return s.Status == SubmissionGraded || s.Status == SubmissionReturned
}
