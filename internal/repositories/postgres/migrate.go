package postgres

import (
	"fmt"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"gorm.io/gorm"
)

// Migrate creates the tables this service owns. The admin-owned read models are
// only created when withReadModels is set, for local development.
func Migrate(db *gorm.DB, withReadModels bool) error {
	owned := []interface{}{
		&models.Participant{},
		&models.OtpChallenge{},
		&models.ExamAttempt{},
		&models.AttemptAnswer{},
	}
	if withReadModels {
		owned = append(owned,
			&models.Exam{},
			&models.MCQ{},
			&models.ExamQuestion{},
			&models.Student{},
			&models.ClassOption{},
		)
	}

	if err := db.AutoMigrate(owned...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// One live attempt per student and exam; abandoned attempts do not block a retake.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_attempt_exam_student_active
		ON exam_attempts (exam_id, student_id)
		WHERE student_id IS NOT NULL AND status <> 'Abandoned'`).Error; err != nil {
		return fmt.Errorf("create student attempt index: %w", err)
	}
	return nil
}
