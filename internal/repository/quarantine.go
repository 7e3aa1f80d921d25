package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/mailgrove/mailgrove/interfaces"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/tracing"
	"github.com/mailgrove/mailgrove/internal/utils"
)

type quarantineRepository struct {
	db *gorm.DB
}

func NewQuarantineRepository(db *gorm.DB) interfaces.QuarantineRepository {
	return &quarantineRepository{
		db: db,
	}
}

func (r *quarantineRepository) Create(ctx context.Context, quarantined *models.QuarantinedEmail) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "quarantineRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if quarantined == nil || quarantined.Reason == "" {
		return "", ErrInvalidInput
	}
	span.SetTag("reason", quarantined.Reason)

	quarantined.MessageID = utils.NormalizeMessageID(quarantined.MessageID)

	if err := r.db.WithContext(ctx).Create(quarantined).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return quarantined.ID, nil
}

func (r *quarantineRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.QuarantinedEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "quarantineRepository.ListByUser")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUserID(span, userID)

	var quarantined []*models.QuarantinedEmail
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&quarantined).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return quarantined, nil
}
