package repository

import (
	"context"
	"errors"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/mailgrove/mailgrove/interfaces"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/tracing"
	"github.com/mailgrove/mailgrove/internal/utils"
)

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailRepository {
	return &emailRepository{
		db: db,
	}
}

func (r *emailRepository) Create(ctx context.Context, email *models.Email) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if email == nil || email.UserID == "" {
		return "", ErrInvalidInput
	}

	if email.MessageID != "" {
		email.MessageID = utils.NormalizeMessageID(email.MessageID)
	}

	if email.Subject != "" {
		email.CleanSubject = utils.NormalizeSubject(email.Subject)
	}

	// Duplicate deliveries are absorbed, not errors
	existingEmail := &models.Email{}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", email.UserID, email.MessageID).
		First(existingEmail).Error

	if err == nil {
		span.SetTag("duplicate", true)
		return existingEmail.ID, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		tracing.TraceErr(span, err)
		return "", err
	}

	result := r.db.WithContext(ctx).Create(email)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return "", result.Error
	}

	return email.ID, nil
}

func (r *emailRepository) GetByID(ctx context.Context, id string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.Email
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

func (r *emailRepository) GetByUserAndMessageID(ctx context.Context, userID, messageID string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByUserAndMessageID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	messageID = utils.NormalizeMessageID(messageID)

	var email models.Email
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// ListByConversation returns conversation members in chronological order.
func (r *emailRepository) ListByConversation(ctx context.Context, conversationID string) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ListByConversation")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagConversation(span, conversationID)

	var emails []*models.Email
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("received_at ASC").
		Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return emails, nil
}

func (r *emailRepository) ListRecentByConversation(ctx context.Context, conversationID string, limit int) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ListRecentByConversation")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagConversation(span, conversationID)

	var emails []*models.Email
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("received_at DESC").
		Limit(limit).
		Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return emails, nil
}

func (r *emailRepository) ListByUser(ctx context.Context, userID string) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ListByUser")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUserID(span, userID)

	var emails []*models.Email
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("received_at ASC").
		Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return emails, nil
}

func (r *emailRepository) AssignConversation(ctx context.Context, emailID, conversationID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.AssignConversation")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagConversation(span, conversationID)

	if emailID == "" {
		return ErrInvalidInput
	}

	result := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("id = ?", emailID).
		Updates(map[string]interface{}{
			"conversation_id": conversationID,
			"updated_at":      utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEmailNotFound
	}

	return nil
}

func (r *emailRepository) UpdateFlags(ctx context.Context, id string, updates map[string]interface{}) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.UpdateFlags")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if id == "" || len(updates) == 0 {
		return ErrInvalidInput
	}

	allowed := map[string]bool{"is_read": true, "is_starred": true, "folder": true}
	for column := range updates {
		if !allowed[column] {
			tracing.TraceErr(span, ErrInvalidInput)
			return ErrInvalidInput
		}
	}
	updates["updated_at"] = utils.Now()

	result := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEmailNotFound
	}

	return nil
}

func (r *emailRepository) SetReadByConversation(ctx context.Context, conversationID string, isRead bool) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.SetReadByConversation")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagConversation(span, conversationID)

	result := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("conversation_id = ? AND is_read = ?", conversationID, !isRead).
		Updates(map[string]interface{}{
			"is_read":    isRead,
			"updated_at": utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

func (r *emailRepository) SetFolderByConversation(ctx context.Context, conversationID, folder string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.SetFolderByConversation")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagConversation(span, conversationID)

	result := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("conversation_id = ?", conversationID).
		Updates(map[string]interface{}{
			"folder":     folder,
			"updated_at": utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}

	return nil
}

func (r *emailRepository) HardDelete(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.HardDelete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if id == "" {
		return ErrInvalidInput
	}

	result := r.db.WithContext(ctx).
		Unscoped().
		Where("id = ?", id).
		Delete(&models.Email{})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEmailNotFound
	}

	return nil
}

func (r *emailRepository) MaxReceivedAtByConversation(ctx context.Context, conversationID string) (*time.Time, string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.MaxReceivedAtByConversation")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagConversation(span, conversationID)

	var email models.Email
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("received_at DESC").
		First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", nil
		}
		tracing.TraceErr(span, err)
		return nil, "", err
	}

	receivedAt := email.ReceivedAt
	return &receivedAt, email.MessageID, nil
}

func (r *emailRepository) AnyAttachmentByConversation(ctx context.Context, conversationID string) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.AnyAttachmentByConversation")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagConversation(span, conversationID)

	var exists bool
	err := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Select("COUNT(*) > 0").
		Where("conversation_id = ? AND has_attachment = ?", conversationID, true).
		Find(&exists).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return false, err
	}

	return exists, nil
}

func (r *emailRepository) ClearConversationID(ctx context.Context, userID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ClearConversationID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUserID(span, userID)

	err := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("user_id = ?", userID).
		Update("conversation_id", "").Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
