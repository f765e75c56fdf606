package services

import (
	"log/slog"

	"github.com/anis2566/monorepo-new-sub002/internal/cache"
	"github.com/anis2566/monorepo-new-sub002/internal/config"
	"github.com/anis2566/monorepo-new-sub002/internal/events"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"github.com/anis2566/monorepo-new-sub002/internal/sms"
	"github.com/anis2566/monorepo-new-sub002/internal/storage"
	"github.com/anis2566/monorepo-new-sub002/internal/validator"
)

// ServiceManager hands out the wired services to transports and commands.
type ServiceManager interface {
	Otp() OtpService
	Participant() ParticipantService
	Attempt() AttemptService
	Ranking() RankingService
	Export() ExportService
	Catalog() CatalogService
	Sweeper() *Sweeper
}

// Dependencies are the infrastructure pieces a ServiceManager is built from.
type Dependencies struct {
	Repo      repositories.Repository
	Cache     cache.CacheService
	SMS       sms.Dispatcher
	Publisher events.EventPublisher
	Store     storage.ObjectStore
	Validator *validator.Validator
	Config    *config.Config
	Logger    *slog.Logger
}

type serviceManager struct {
	otp         OtpService
	participant ParticipantService
	attempt     AttemptService
	ranking     RankingService
	export      ExportService
	catalog     CatalogService
	sweeper     *Sweeper
}

func NewServiceManager(deps Dependencies) ServiceManager {
	cfg := deps.Config

	otp := NewOtpService(deps.Repo, deps.Cache, deps.SMS, deps.Publisher, deps.Validator, cfg.OTP, deps.Logger)
	ranking := NewRankingService(deps.Repo, deps.Cache, deps.Validator, cfg.Exam, deps.Logger)
	attempt := NewAttemptService(deps.Repo, ranking, deps.Publisher, deps.Validator, cfg.Exam, deps.Logger)

	return &serviceManager{
		otp:         otp,
		participant: NewParticipantService(deps.Repo, otp, deps.Publisher, deps.Validator, cfg.OTP.Required, cfg.Exam, deps.Logger),
		attempt:     attempt,
		ranking:     ranking,
		export:      NewExportService(ranking, deps.Store, deps.Logger),
		catalog:     NewCatalogService(deps.Repo, deps.Logger),
		sweeper:     NewSweeper(deps.Repo, attempt, otp, cfg.Exam, deps.Logger),
	}
}

func (m *serviceManager) Otp() OtpService                 { return m.otp }
func (m *serviceManager) Participant() ParticipantService { return m.participant }
func (m *serviceManager) Attempt() AttemptService         { return m.attempt }
func (m *serviceManager) Ranking() RankingService         { return m.ranking }
func (m *serviceManager) Export() ExportService           { return m.export }
func (m *serviceManager) Catalog() CatalogService         { return m.catalog }
func (m *serviceManager) Sweeper() *Sweeper               { return m.sweeper }
