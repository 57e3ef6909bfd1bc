package app

import (
	"ithakabot/internal/cache"
	"ithakabot/internal/catalog"
	"ithakabot/internal/config"
	"ithakabot/internal/llm"
	"ithakabot/internal/metrics"
	"ithakabot/internal/repository"
	"ithakabot/internal/service"

	"go.uber.org/zap"
)

// Deps are the infrastructure pieces a binary provides
type Deps struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	Sessions     repository.SessionStore
	Applications repository.ApplicationStore
	Locker       cache.ConversationLocker
	Notifier     service.Notifier
	Generator    llm.TextGenerator // nil runs offline
}

type App struct {
	Catalog      *catalog.Catalog
	Wizard       *service.WizardService
	Chat         *service.ChatService
	Applications *service.ApplicationService
	Auth         *service.AuthService
}

// New wires the services over d
func New(d Deps) *App {
	cfg := d.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := d.Locker
	if locker == nil {
		locker = cache.NewLocalLocker()
	}

	cat := catalog.Default()
	assist := service.NewAssistService(d.Generator, cfg.AI.Models.Extraction, logger.Named("assist"), d.Metrics)
	evaluator := service.NewEvaluatorService(d.Generator, cfg.AI.Models, cat, catalog.DefaultRubrics(), logger.Named("evaluator"), d.Metrics)
	wizard := service.NewWizardService(cat, assist, evaluator, cfg.Wizard.MaxImprovementIterations, logger.Named("wizard"), d.Metrics)

	return &App{
		Catalog:      cat,
		Wizard:       wizard,
		Chat:         service.NewChatService(wizard, d.Sessions, d.Applications, locker, d.Notifier, logger.Named("chat"), d.Metrics),
		Applications: service.NewApplicationService(d.Applications),
		Auth:         service.NewAuthService(cfg.Auth),
	}
}
