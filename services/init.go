package services

import (
	"github.com/mailgrove/mailgrove/config"
	"github.com/mailgrove/mailgrove/interfaces"
	"github.com/mailgrove/mailgrove/internal/logger"
	"github.com/mailgrove/mailgrove/internal/repository"
	"github.com/mailgrove/mailgrove/services/conversations"
	"github.com/mailgrove/mailgrove/services/email"
	"github.com/mailgrove/mailgrove/services/events"
	"github.com/mailgrove/mailgrove/services/imap"
	"github.com/mailgrove/mailgrove/services/sync"
	"github.com/mailgrove/mailgrove/services/threading"
)

type Services struct {
	EventsPublisher     interfaces.EventsPublisher
	ThreadingService    interfaces.ThreadingService
	ConversationService interfaces.ConversationService
	EmailService        interfaces.EmailService
	EmailSource         interfaces.EmailSource
	SyncService         interfaces.SyncService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	var publisher interfaces.EventsPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		publisherConfig := &events.PublisherConfig{
			MessageTTL:          events.DefaultMessageTTL,
			MaxRetries:          events.DefaultMaxRetries,
			PublishTimeout:      events.DefaultPublishTimeout,
			ReconnectBackoff:    events.DefaultReconnectBackoff,
			MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
		}
		rabbitPublisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, cfg.AppConfig.AppSource, log, publisherConfig)
		if err != nil {
			return nil, err
		}
		publisher = rabbitPublisher
	} else {
		log.Warn("RABBITMQ_URL not set, conversation events disabled")
		publisher = events.NewNoopPublisher()
	}

	threadingService := threading.NewThreadingService(log, repos, publisher, cfg.ThreadingConfig)
	emailSource := imap.NewIMAPSource(log)

	services := Services{
		EventsPublisher:     publisher,
		ThreadingService:    threadingService,
		ConversationService: conversations.NewConversationService(log, repos, threadingService, publisher),
		EmailService:        email.NewEmailService(log, repos, threadingService, cfg.SyncConfig),
		EmailSource:         emailSource,
		SyncService:         sync.NewSyncService(log, repos, emailSource, threadingService, cfg.SyncConfig),
	}

	return &services, nil
}
