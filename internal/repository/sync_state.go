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

type syncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) interfaces.SyncStateRepository {
	return &syncStateRepository{
		db: db,
	}
}

func (r *syncStateRepository) GetSyncState(ctx context.Context, userID, folderName string) (*models.SyncState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.GetSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUserID(span, userID)
	span.SetTag("folder", folderName)

	var state models.SyncState
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND folder_name = ?", userID, folderName).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &state, nil
}

func (r *syncStateRepository) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.SaveSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if state == nil || state.UserID == "" || state.FolderName == "" {
		return ErrInvalidInput
	}

	state.LastSync = utils.Now()

	existing := &models.SyncState{}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND folder_name = ?", state.UserID, state.FolderName).
		First(existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			tracing.TraceErr(span, err)
			return err
		}
		if err := r.db.WithContext(ctx).Create(state).Error; err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"last_uid":   state.LastUID,
			"last_sync":  state.LastSync,
			"updated_at": utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}

	return nil
}

func (r *syncStateRepository) DeleteSyncState(ctx context.Context, userID, folderName string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.DeleteSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUserID(span, userID)

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND folder_name = ?", userID, folderName).
		Delete(&models.SyncState{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
