package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/archive"
	"github.com/auxct/auxmailer/internal/config"
	"github.com/auxct/auxmailer/internal/core"
	"github.com/auxct/auxmailer/internal/factory"
	"github.com/auxct/auxmailer/internal/logging"
	"github.com/auxct/auxmailer/internal/render"
)

// BuildContainer creates and configures a dependency injection container
// around an already-loaded configuration.
func BuildContainer(cfg *config.Config) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewSenderFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSendLogFactory); err != nil {
		return nil, err
	}

	// Register email transport
	if err := container.Provide(func(f *factory.SenderFactory) (core.EmailSender, error) {
		return f.CreateSender(context.Background())
	}); err != nil {
		return nil, err
	}

	// Register send log
	if err := container.Provide(func(f *factory.SendLogFactory) (core.SendLogRepository, error) {
		return f.CreateSendLog()
	}); err != nil {
		return nil, err
	}

	// Register archive store
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.ArchiveStore, error) {
		return archive.NewStore(cfg.GetString("archive.dir"), logger)
	}); err != nil {
		return nil, err
	}

	// Register template engine
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.Renderer {
		return render.NewEngine(cfg.GetString("templates.dir"), logger)
	}); err != nil {
		return nil, err
	}

	// Register batch mailer service
	if err := container.Provide(func(
		renderer core.Renderer,
		sender core.EmailSender,
		store core.ArchiveStore,
		sendLog core.SendLogRepository,
		logger *zap.Logger,
		cfg *config.Config,
	) *core.MailerService {
		email := cfg.GetEmail()
		return core.NewMailerService(renderer, sender, store, sendLog, logger, email.From, email.ReplyTo)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
