package repository

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mailgrove/mailgrove/interfaces"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/tracing"
	"github.com/mailgrove/mailgrove/internal/utils"
)

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) interfaces.ConversationRepository {
	return &conversationRepository{
		db: db,
	}
}

func (r *conversationRepository) Create(ctx context.Context, conversation *models.Conversation) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if conversation == nil || conversation.UserID == "" {
		err := errors.New("conversation and user ID cannot be empty")
		tracing.TraceErr(span, err)
		return "", err
	}

	if conversation.LastMessageID != "" {
		conversation.LastMessageID = utils.NormalizeMessageID(conversation.LastMessageID)
	}
	if conversation.Subject != "" && conversation.CleanSubject == "" {
		conversation.CleanSubject = utils.NormalizeSubject(conversation.Subject)
	}

	now := utils.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(conversation).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return conversation.ID, nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagConversation(span, id)

	if id == "" {
		return nil, ErrInvalidInput
	}

	var conversation models.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &conversation, nil
}

func (r *conversationRepository) GetByUserAndThreadKey(ctx context.Context, userID, threadKey string) (*models.Conversation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.GetByUserAndThreadKey")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUserID(span, userID)

	threadKey = utils.NormalizeMessageID(threadKey)

	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND thread_key = ?", userID, threadKey).
		First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &conversation, nil
}

func (r *conversationRepository) FindBySubjectAndUser(ctx context.Context, userID, cleanSubject string, since time.Time) ([]*models.Conversation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.FindBySubjectAndUser")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUserID(span, userID)

	if cleanSubject == "" {
		return nil, nil
	}

	var conversations []*models.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND clean_subject = ? AND last_message_at > ?", userID, cleanSubject, since).
		Order("last_message_at DESC").
		Find(&conversations).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return conversations, nil
}

func applyConversationFilter(query *gorm.DB, filter interfaces.ConversationFilter) *gorm.DB {
	if filter.UnreadOnly {
		query = query.Where("unread_count > 0")
	}
	if filter.StarredOnly {
		query = query.Where("starred = ?", true)
	}
	if filter.HasAttachments {
		query = query.Where("has_attachments = ?", true)
	}
	return query
}

// ListByUserAndFolder pages newest conversation first. The id tie-break
// keeps pagination stable when two conversations share a timestamp.
func (r *conversationRepository) ListByUserAndFolder(ctx context.Context, userID, folder string, filter interfaces.ConversationFilter, limit, offset int) ([]*models.Conversation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.ListByUserAndFolder")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUserID(span, userID)
	span.SetTag("folder", folder)
	span.SetTag("limit", limit)
	span.SetTag("offset", offset)

	var conversations []*models.Conversation
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if folder != "" {
		query = query.Where("folder = ?", folder)
	}
	query = applyConversationFilter(query, filter)
	err := query.
		Order("last_message_at DESC").
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&conversations).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return conversations, nil
}

func (r *conversationRepository) CountByUserAndFolder(ctx context.Context, userID, folder string, filter interfaces.ConversationFilter) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.CountByUserAndFolder")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUserID(span, userID)

	var count int64
	query := r.db.WithContext(ctx).Model(&models.Conversation{}).Where("user_id = ?", userID)
	if folder != "" {
		query = query.Where("folder = ?", folder)
	}
	query = applyConversationFilter(query, filter)
	if err := query.Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}

	return count, nil
}

func (r *conversationRepository) Search(ctx context.Context, userID, query, folder string, limit, offset int) ([]*models.Conversation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.Search")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUserID(span, userID)

	searchParam := "%" + query + "%"

	memberMatch := r.db.
		Table("emails").
		Select("DISTINCT conversation_id").
		Where("user_id = ? AND (subject ILIKE ? OR body_text ILIKE ? OR from_address ILIKE ? OR from_name ILIKE ?)",
			userID, searchParam, searchParam, searchParam, searchParam)

	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("subject ILIKE ? OR array_to_string(participants, ',') ILIKE ? OR id IN (?)",
			searchParam, searchParam, memberMatch)
	if folder != "" {
		q = q.Where("folder = ?", folder)
	}

	var conversations []*models.Conversation
	err := q.
		Order("last_message_at DESC").
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&conversations).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return conversations, nil
}

// ApplyAggregateDelta locks the conversation row and folds one change
// into its aggregate columns. unread_count never leaves the range
// [0, message_count].
func (r *conversationRepository) ApplyAggregateDelta(ctx context.Context, conversationID string, delta interfaces.AggregateDelta) (*models.Conversation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.ApplyAggregateDelta")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagConversation(span, conversationID)

	if conversationID == "" {
		return nil, ErrInvalidInput
	}

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		tracing.TraceErr(span, tx.Error)
		return nil, tx.Error
	}

	var conversation models.Conversation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", conversationID).
		First(&conversation).Error
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tracing.TraceErr(span, ErrConversationNotFound)
			return nil, ErrConversationNotFound
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	messageCount := conversation.MessageCount + delta.MessageCountDelta
	if messageCount < 0 {
		messageCount = 0
	}
	unreadCount := conversation.UnreadCount + delta.UnreadCountDelta
	if unreadCount < 0 {
		unreadCount = 0
	}
	if unreadCount > messageCount {
		unreadCount = messageCount
	}

	updates := map[string]interface{}{
		"message_count": messageCount,
		"unread_count":  unreadCount,
		"updated_at":    utils.Now(),
	}

	if delta.SetHasAttachments != nil {
		updates["has_attachments"] = *delta.SetHasAttachments
	}

	if delta.ForceRecompute {
		updates["last_message_at"] = delta.RecomputedAt
		if delta.RecomputedID != "" {
			updates["last_message_id"] = utils.NormalizeMessageID(delta.RecomputedID)
		} else {
			updates["last_message_id"] = ""
		}
	} else if delta.NewMessageAt != nil {
		if conversation.LastMessageAt == nil || delta.NewMessageAt.After(*conversation.LastMessageAt) {
			updates["last_message_at"] = delta.NewMessageAt
			updates["last_message_id"] = utils.NormalizeMessageID(delta.NewMessageID)
		}
		if conversation.FirstMessageAt == nil || delta.NewMessageAt.Before(*conversation.FirstMessageAt) {
			updates["first_message_at"] = delta.NewMessageAt
		}
	}

	if len(delta.AddParticipants) > 0 {
		merged := append([]string{}, conversation.Participants...)
		merged = append(merged, delta.AddParticipants...)
		updates["participants"] = pq.StringArray(utils.UniqueStrings(merged))
	}

	if delta.Folder != "" {
		updates["folder"] = delta.Folder
	}

	result := tx.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(updates)
	if result.Error != nil {
		tx.Rollback()
		tracing.TraceErr(span, result.Error)
		return nil, result.Error
	}

	if err := tx.Commit().Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return r.GetByID(ctx, conversationID)
}

func (r *conversationRepository) SetStarred(ctx context.Context, conversationID string, starred bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.SetStarred")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagConversation(span, conversationID)

	result := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"starred":    starred,
			"updated_at": utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}

	return nil
}

func (r *conversationRepository) SetFolder(ctx context.Context, conversationID, folder string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.SetFolder")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagConversation(span, conversationID)
	span.SetTag("folder", folder)

	result := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"folder":     folder,
			"updated_at": utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}

	return nil
}

func (r *conversationRepository) Delete(ctx context.Context, conversationID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagConversation(span, conversationID)

	if conversationID == "" {
		return ErrInvalidInput
	}

	result := r.db.WithContext(ctx).
		Where("id = ?", conversationID).
		Delete(&models.Conversation{})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}

	return nil
}

func (r *conversationRepository) DeleteByUser(ctx context.Context, userID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationRepository.DeleteByUser")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUserID(span, userID)

	if userID == "" {
		return ErrInvalidInput
	}

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Conversation{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
