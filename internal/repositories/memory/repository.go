// Package memory keeps every store in process memory. It backs local
// development when no DATABASE_URL is configured, and the service tests.
package memory

import (
	"context"
	"sync"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"gorm.io/gorm"
)

type answerKey struct {
	attemptID  string
	questionID uint
}

type state struct {
	participants map[string]models.Participant
	otps         map[uint]models.OtpChallenge
	attempts     map[string]models.ExamAttempt
	answers      map[answerKey]models.AttemptAnswer
	exams        map[uint]models.Exam
	questions    map[uint][]models.MCQ
	students     map[string]models.Student
	classes      []models.ClassOption
	nextOtpID    uint
}

func newState() *state {
	return &state{
		participants: make(map[string]models.Participant),
		otps:         make(map[uint]models.OtpChallenge),
		attempts:     make(map[string]models.ExamAttempt),
		answers:      make(map[answerKey]models.AttemptAnswer),
		exams:        make(map[uint]models.Exam),
		questions:    make(map[uint][]models.MCQ),
		students:     make(map[string]models.Student),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.participants {
		c.participants[k] = v
	}
	for k, v := range s.otps {
		c.otps[k] = v
	}
	for k, v := range s.attempts {
		c.attempts[k] = cloneAttempt(v)
	}
	for k, v := range s.answers {
		c.answers[k] = v
	}
	for k, v := range s.exams {
		c.exams[k] = v
	}
	for k, v := range s.questions {
		c.questions[k] = append([]models.MCQ(nil), v...)
	}
	for k, v := range s.students {
		c.students[k] = v
	}
	c.classes = append([]models.ClassOption(nil), s.classes...)
	c.nextOtpID = s.nextOtpID
	return c
}

// Repository is safe for concurrent use. Transactions are serialized and
// rolled back by restoring a snapshot taken when they began. Writes made
// outside a transaction wait for the open one to finish, so a rollback never
// discards them. Reads do not wait and may observe uncommitted writes.
type Repository struct {
	txMu   sync.Mutex
	mu     sync.RWMutex
	data   *state
	active *gorm.DB

	participant *participantStore
	otp         *otpStore
	attempt     *attemptStore
	exam        *examStore
	student     *studentStore
}

func NewRepository() *Repository {
	r := &Repository{data: newState()}
	r.participant = &participantStore{r: r}
	r.otp = &otpStore{r: r}
	r.attempt = &attemptStore{r: r}
	r.exam = &examStore{r: r}
	r.student = &studentStore{r: r}
	return r
}

var _ repositories.Repository = (*Repository)(nil)

func (r *Repository) Participant() repositories.ParticipantRepository { return r.participant }
func (r *Repository) Otp() repositories.OtpRepository                 { return r.otp }
func (r *Repository) Attempt() repositories.AttemptRepository         { return r.attempt }
func (r *Repository) Exam() repositories.ExamRepository               { return r.exam }
func (r *Repository) Student() repositories.StudentRepository         { return r.student }

// WithTransaction hands fn a handle identifying the transaction; stores only
// compare it, they never use it as a connection.
func (r *Repository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	tx := &gorm.DB{}
	r.mu.Lock()
	snapshot := r.data.clone()
	r.active = tx
	r.mu.Unlock()

	err := fn(tx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = nil
	if err != nil {
		r.data = snapshot
	}
	return err
}

// SeedExam stores an exam and its questions in authoring order.
func (r *Repository) SeedExam(exam models.Exam, questions []models.MCQ) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.exams[exam.ID] = exam
	r.data.questions[exam.ID] = append([]models.MCQ(nil), questions...)
}

func (r *Repository) SeedStudent(student models.Student) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.students[student.ID] = student
}

func (r *Repository) SeedClassOptions(options ...models.ClassOption) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.classes = append(r.data.classes, options...)
}

func (r *Repository) read(fn func(s *state)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.data)
}

// write applies fn under the write lock. Callers outside the open
// transaction first wait for it to commit or roll back.
func (r *Repository) write(tx *gorm.DB, fn func(s *state)) {
	if !r.inTransaction(tx) {
		r.txMu.Lock()
		defer r.txMu.Unlock()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.data)
}

func (r *Repository) inTransaction(tx *gorm.DB) bool {
	if tx == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active == tx
}

func cloneAttempt(a models.ExamAttempt) models.ExamAttempt {
	a.QuestionIDs = append([]uint(nil), a.QuestionIDs...)
	a.Answers = nil
	return a
}
