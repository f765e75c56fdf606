package memory

import (
	"context"
	"sort"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ===== PARTICIPANTS =====

type participantStore struct{ r *Repository }

func (p *participantStore) Create(ctx context.Context, tx *gorm.DB, participant *models.Participant) error {
	var err error
	p.r.write(tx, func(s *state) {
		if _, exists := s.participants[participant.ID]; exists {
			err = repositories.ErrDuplicate
			return
		}
		for _, existing := range s.participants {
			if existing.ExamID == participant.ExamID && existing.Phone == participant.Phone {
				err = repositories.ErrDuplicate
				return
			}
		}
		if participant.CreatedAt.IsZero() {
			participant.CreatedAt = time.Now()
		}
		s.participants[participant.ID] = *participant
	})
	return err
}

func (p *participantStore) GetByExamAndPhone(ctx context.Context, _ *gorm.DB, examID uint, phone string) (*models.Participant, error) {
	var found *models.Participant
	p.r.read(func(s *state) {
		for _, existing := range s.participants {
			if existing.ExamID == examID && existing.Phone == phone {
				match := existing
				found = &match
				return
			}
		}
	})
	if found == nil {
		return nil, repositories.ErrNotFound
	}
	return found, nil
}

// ===== OTP CHALLENGES =====

type otpStore struct{ r *Repository }

func (o *otpStore) Create(ctx context.Context, tx *gorm.DB, challenge *models.OtpChallenge) error {
	o.r.write(tx, func(s *state) {
		s.nextOtpID++
		challenge.ID = s.nextOtpID
		if challenge.CreatedAt.IsZero() {
			challenge.CreatedAt = time.Now()
		}
		s.otps[challenge.ID] = *challenge
	})
	return nil
}

func (o *otpStore) GetLatest(ctx context.Context, _ *gorm.DB, phone string) (*models.OtpChallenge, error) {
	var latest *models.OtpChallenge
	o.r.read(func(s *state) {
		for _, c := range s.otps {
			if c.Phone != phone || c.Superseded {
				continue
			}
			if latest == nil || c.IssuedAt.After(latest.IssuedAt) ||
				(c.IssuedAt.Equal(latest.IssuedAt) && c.ID > latest.ID) {
				match := c
				latest = &match
			}
		}
	})
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	return latest, nil
}

func (o *otpStore) SupersedeActive(ctx context.Context, tx *gorm.DB, phone string) error {
	o.r.write(tx, func(s *state) {
		for id, c := range s.otps {
			if c.Phone == phone && !c.Superseded && c.ConsumedAt == nil {
				c.Superseded = true
				s.otps[id] = c
			}
		}
	})
	return nil
}

func (o *otpStore) Consume(ctx context.Context, tx *gorm.DB, id uint, at time.Time) (bool, error) {
	var consumed bool
	o.r.write(tx, func(s *state) {
		c, ok := s.otps[id]
		if !ok || c.ConsumedAt != nil || c.Superseded {
			return
		}
		c.ConsumedAt = &at
		s.otps[id] = c
		consumed = true
	})
	return consumed, nil
}

func (o *otpStore) DecrementAttempts(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	var taken bool
	o.r.write(tx, func(s *state) {
		c, ok := s.otps[id]
		if !ok || c.AttemptsRemaining <= 0 {
			return
		}
		c.AttemptsRemaining--
		s.otps[id] = c
		taken = true
	})
	return taken, nil
}

func (o *otpStore) HasConsumedSince(ctx context.Context, _ *gorm.DB, phone string, since time.Time) (bool, error) {
	var found bool
	o.r.read(func(s *state) {
		for _, c := range s.otps {
			if c.Phone == phone && c.ConsumedAt != nil && !c.ConsumedAt.Before(since) {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (o *otpStore) DeleteExpiredBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	var deleted int64
	o.r.write(tx, func(s *state) {
		for id, c := range s.otps {
			if c.ExpiresAt.Before(cutoff) {
				delete(s.otps, id)
				deleted++
			}
		}
	})
	return deleted, nil
}

// ===== ATTEMPTS =====

type attemptStore struct{ r *Repository }

func (a *attemptStore) Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	var err error
	a.r.write(tx, func(s *state) {
		if _, exists := s.attempts[attempt.ID]; exists {
			err = repositories.ErrDuplicate
			return
		}
		for _, existing := range s.attempts {
			if attempt.ParticipantID != nil && existing.ParticipantID != nil &&
				*existing.ParticipantID == *attempt.ParticipantID {
				err = repositories.ErrDuplicate
				return
			}
			if attempt.StudentID != nil && existing.StudentID != nil &&
				*existing.StudentID == *attempt.StudentID &&
				existing.ExamID == attempt.ExamID &&
				existing.Status != models.AttemptAbandoned {
				err = repositories.ErrDuplicate
				return
			}
		}
		now := time.Now()
		if attempt.CreatedAt.IsZero() {
			attempt.CreatedAt = now
		}
		attempt.UpdatedAt = now
		s.attempts[attempt.ID] = cloneAttempt(*attempt)
	})
	return err
}

func (a *attemptStore) GetByID(ctx context.Context, _ *gorm.DB, id string) (*models.ExamAttempt, error) {
	var (
		found models.ExamAttempt
		ok    bool
	)
	a.r.read(func(s *state) {
		found, ok = s.attempts[id]
		if ok {
			found = cloneAttempt(found)
		}
	})
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &found, nil
}

// GetByIDForUpdate relies on WithTransaction serializing callers.
func (a *attemptStore) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.ExamAttempt, error) {
	return a.GetByID(ctx, tx, id)
}

func (a *attemptStore) GetActiveByStudent(ctx context.Context, _ *gorm.DB, examID uint, studentID string) (*models.ExamAttempt, error) {
	var found *models.ExamAttempt
	a.r.read(func(s *state) {
		for _, existing := range s.attempts {
			if existing.ExamID == examID && existing.StudentID != nil &&
				*existing.StudentID == studentID && existing.Status != models.AttemptAbandoned {
				match := cloneAttempt(existing)
				found = &match
				return
			}
		}
	})
	if found == nil {
		return nil, repositories.ErrNotFound
	}
	return found, nil
}

func (a *attemptStore) Update(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	var err error
	a.r.write(tx, func(s *state) {
		if _, ok := s.attempts[attempt.ID]; !ok {
			err = repositories.ErrNotFound
			return
		}
		attempt.UpdatedAt = time.Now()
		s.attempts[attempt.ID] = cloneAttempt(*attempt)
	})
	return err
}

func (a *attemptStore) UpsertAnswer(ctx context.Context, tx *gorm.DB, answer *models.AttemptAnswer) error {
	a.r.write(tx, func(s *state) {
		s.answers[answerKey{answer.AttemptID, answer.QuestionID}] = *answer
	})
	return nil
}

func (a *attemptStore) ListAnswers(ctx context.Context, _ *gorm.DB, attemptID string) ([]models.AttemptAnswer, error) {
	var answers []models.AttemptAnswer
	a.r.read(func(s *state) {
		for key, answer := range s.answers {
			if key.attemptID == attemptID {
				answers = append(answers, answer)
			}
		}
	})
	sort.Slice(answers, func(i, j int) bool { return answers[i].Sequence < answers[j].Sequence })
	return answers, nil
}

func (a *attemptStore) ListExpiredInProgress(ctx context.Context, _ *gorm.DB, now time.Time, limit int) ([]*models.ExamAttempt, error) {
	var expired []*models.ExamAttempt
	a.r.read(func(s *state) {
		for _, existing := range s.attempts {
			if existing.Status == models.AttemptInProgress && !existing.Deadline.After(now) {
				match := cloneAttempt(existing)
				expired = append(expired, &match)
			}
		}
	})
	sort.Slice(expired, func(i, j int) bool { return expired[i].Deadline.Before(expired[j].Deadline) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func isRanked(status models.AttemptStatus) bool {
	for _, s := range models.FinalizedStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (a *attemptStore) ListMeritRows(ctx context.Context, _ *gorm.DB, examID uint, filters repositories.MeritFilters) ([]repositories.MeritRow, error) {
	var rows []repositories.MeritRow
	a.r.read(func(s *state) {
		for _, attempt := range s.attempts {
			if attempt.ExamID != examID || !isRanked(attempt.Status) || attempt.EndTime == nil {
				continue
			}
			row := repositories.MeritRow{
				AttemptID:      attempt.ID,
				Score:          attempt.Score,
				Percentage:     attempt.Percentage,
				CorrectAnswers: attempt.CorrectAnswers,
				WrongAnswers:   attempt.WrongAnswers,
				StartTime:      attempt.StartTime,
				EndTime:        *attempt.EndTime,
			}
			switch {
			case attempt.ParticipantID != nil:
				if p, ok := s.participants[*attempt.ParticipantID]; ok {
					row.Name, row.Class, row.Institution = p.Name, p.Class, p.College
				}
			case attempt.StudentID != nil:
				if st, ok := s.students[*attempt.StudentID]; ok {
					row.Name, row.Class, row.Institution = st.Name, st.Class, st.Institution
				}
			}
			rows = append(rows, row)
		}
	})

	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].Score.Cmp(rows[j].Score); c != 0 {
			return c > 0
		}
		if di, dj := rows[i].Duration(), rows[j].Duration(); di != dj {
			return di < dj
		}
		if !rows[i].EndTime.Equal(rows[j].EndTime) {
			return rows[i].EndTime.Before(rows[j].EndTime)
		}
		return rows[i].AttemptID < rows[j].AttemptID
	})
	if filters.Limit > 0 && len(rows) > filters.Limit {
		rows = rows[:filters.Limit]
	}
	return rows, nil
}

func (a *attemptStore) CountFinalized(ctx context.Context, _ *gorm.DB, examID uint) (int64, error) {
	var count int64
	a.r.read(func(s *state) {
		for _, attempt := range s.attempts {
			if attempt.ExamID == examID && isRanked(attempt.Status) && attempt.EndTime != nil {
				count++
			}
		}
	})
	return count, nil
}

func (a *attemptStore) AggregateByStudent(ctx context.Context, _ *gorm.DB, filters repositories.LeaderboardFilters) ([]models.StudentAggregate, error) {
	byStudent := make(map[string]*models.StudentAggregate)
	a.r.read(func(s *state) {
		for _, attempt := range s.attempts {
			if attempt.StudentID == nil || !isRanked(attempt.Status) || attempt.EndTime == nil {
				continue
			}
			if filters.FinishedSince != nil && attempt.EndTime.Before(*filters.FinishedSince) {
				continue
			}
			agg, ok := byStudent[*attempt.StudentID]
			if !ok {
				agg = &models.StudentAggregate{StudentID: *attempt.StudentID, TotalScore: decimal.Zero}
				byStudent[*attempt.StudentID] = agg
			}
			agg.TotalScore = agg.TotalScore.Add(attempt.Score)
			agg.Attempts++
			if attempt.BestStreak > agg.BestStreak {
				agg.BestStreak = attempt.BestStreak
			}
			if attempt.EndTime.After(agg.LastFinished) {
				agg.LastFinished = *attempt.EndTime
			}
		}
	})

	aggregates := make([]models.StudentAggregate, 0, len(byStudent))
	for _, agg := range byStudent {
		aggregates = append(aggregates, *agg)
	}
	sort.Slice(aggregates, func(i, j int) bool { return aggregates[i].StudentID < aggregates[j].StudentID })
	return aggregates, nil
}

// ===== READ MODELS =====

type examStore struct{ r *Repository }

func (e *examStore) GetByID(ctx context.Context, _ *gorm.DB, id uint) (*models.Exam, error) {
	var (
		exam models.Exam
		ok   bool
	)
	e.r.read(func(s *state) { exam, ok = s.exams[id] })
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &exam, nil
}

func (e *examStore) GetQuestions(ctx context.Context, _ *gorm.DB, examID uint) ([]models.MCQ, error) {
	var questions []models.MCQ
	e.r.read(func(s *state) { questions = append([]models.MCQ(nil), s.questions[examID]...) })
	return questions, nil
}

type studentStore struct{ r *Repository }

func (st *studentStore) GetByID(ctx context.Context, _ *gorm.DB, id string) (*models.Student, error) {
	var (
		student models.Student
		ok      bool
	)
	st.r.read(func(s *state) { student, ok = s.students[id] })
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &student, nil
}

func (st *studentStore) GetByIDs(ctx context.Context, _ *gorm.DB, ids []string) (map[string]*models.Student, error) {
	result := make(map[string]*models.Student, len(ids))
	st.r.read(func(s *state) {
		for _, id := range ids {
			if student, ok := s.students[id]; ok {
				match := student
				result[id] = &match
			}
		}
	})
	return result, nil
}

func (st *studentStore) ListClassOptions(ctx context.Context, _ *gorm.DB) ([]models.ClassOption, error) {
	var options []models.ClassOption
	st.r.read(func(s *state) { options = append([]models.ClassOption(nil), s.classes...) })
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].SortOrder != options[j].SortOrder {
			return options[i].SortOrder < options[j].SortOrder
		}
		return options[i].Name < options[j].Name
	})
	return options, nil
}
