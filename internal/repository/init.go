package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/mailgrove/mailgrove/config"
	"github.com/mailgrove/mailgrove/interfaces"
	"github.com/mailgrove/mailgrove/internal/models"
)

type Repositories struct {
	ConversationRepository    interfaces.ConversationRepository
	EmailRepository           interfaces.EmailRepository
	EmailAttachmentRepository interfaces.EmailAttachmentRepository
	OrphanEmailRepository     interfaces.OrphanEmailRepository
	QuarantineRepository      interfaces.QuarantineRepository
	SyncStateRepository       interfaces.SyncStateRepository
}

func InitRepositories(db *gorm.DB, attachmentStorage interfaces.StorageService) *Repositories {
	return &Repositories{
		ConversationRepository:    NewConversationRepository(db),
		EmailRepository:           NewEmailRepository(db),
		EmailAttachmentRepository: NewEmailAttachmentRepository(db, attachmentStorage),
		OrphanEmailRepository:     NewOrphanEmailRepository(db),
		QuarantineRepository:      NewQuarantineRepository(db),
		SyncStateRepository:       NewSyncStateRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, gormDB *gorm.DB) error {
	db, err := gormDB.DB()
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(5)

	err = gormDB.AutoMigrate(
		&models.Email{},
		&models.EmailAttachment{},
		&models.Conversation{},
		&models.OrphanEmail{},
		&models.QuarantinedEmail{},
		&models.SyncState{},
	)

	db.Close()

	db, _ = gormDB.DB()
	db.SetMaxIdleConns(dbConfig.MaxIdleConn)
	db.SetMaxOpenConns(dbConfig.MaxConn)
	db.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
