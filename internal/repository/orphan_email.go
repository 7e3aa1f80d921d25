package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/mailgrove/mailgrove/interfaces"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/tracing"
	"github.com/mailgrove/mailgrove/internal/utils"
)

type orphanEmailRepository struct {
	db *gorm.DB
}

func NewOrphanEmailRepository(db *gorm.DB) interfaces.OrphanEmailRepository {
	return &orphanEmailRepository{
		db: db,
	}
}

func (r *orphanEmailRepository) Create(ctx context.Context, orphan *models.OrphanEmail) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "orphanEmailRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if orphan == nil || orphan.MessageID == "" {
		return "", ErrInvalidInput
	}

	orphan.MessageID = utils.NormalizeMessageID(orphan.MessageID)
	orphan.ReferencedBy = utils.NormalizeMessageID(orphan.ReferencedBy)

	// A parent referenced twice stays recorded once, pointing at the
	// conversation that claimed it first.
	existing := &models.OrphanEmail{}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", orphan.UserID, orphan.MessageID).
		First(existing).Error
	if err == nil {
		span.SetTag("duplicate", true)
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		tracing.TraceErr(span, err)
		return "", err
	}

	if err := r.db.WithContext(ctx).Create(orphan).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return orphan.ID, nil
}

func (r *orphanEmailRepository) GetByUserAndMessageID(ctx context.Context, userID, messageID string) (*models.OrphanEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "orphanEmailRepository.GetByUserAndMessageID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUserID(span, userID)

	messageID = utils.NormalizeMessageID(messageID)

	var orphan models.OrphanEmail
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		First(&orphan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &orphan, nil
}

func (r *orphanEmailRepository) DeleteByConversationID(ctx context.Context, conversationID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "orphanEmailRepository.DeleteByConversationID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagConversation(span, conversationID)

	if conversationID == "" {
		return ErrInvalidInput
	}

	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&models.OrphanEmail{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
