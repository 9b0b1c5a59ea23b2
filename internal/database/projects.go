package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipscribe/clipscribe/internal/apperrors"
)

// ProjectStore persists transcription projects.
type ProjectStore struct {
	db *DB
}

// NewProjectStore creates a ProjectStore.
func NewProjectStore(db *DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// Create inserts a new project.
func (s *ProjectStore) Create(ctx context.Context, project *Project) error {
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return apperrors.DatabaseError("create project", err)
	}
	return nil
}

// ByID loads a project owned by userID. Other users' projects read as
// not found.
func (s *ProjectStore) ByID(ctx context.Context, id, userID uuid.UUID) (*Project, error) {
	var project Project
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("project", id.String())
		}
		return nil, apperrors.DatabaseError("load project", err)
	}
	return &project, nil
}

// ListByUser returns the user's projects, newest first.
func (s *ProjectStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var projects []Project
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&projects).Error
	if err != nil {
		return nil, apperrors.DatabaseError("list projects", err)
	}
	return projects, nil
}

// Update persists changed fields of a project owned by userID.
func (s *ProjectStore) Update(ctx context.Context, project *Project) error {
	result := s.db.WithContext(ctx).Model(&Project{}).
		Where("id = ? AND user_id = ?", project.ID, project.UserID).
		Updates(project)
	if result.Error != nil {
		return apperrors.DatabaseError("update project", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("project", project.ID.String())
	}
	return nil
}

// UpdateText replaces a project's transcript text, keeping timings.
func (s *ProjectStore) UpdateText(ctx context.Context, id, userID uuid.UUID, fullText, segmentsJSON, srt, vtt string) error {
	result := s.db.WithContext(ctx).Model(&Project{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"full_text":     fullText,
			"segments_json": segmentsJSON,
			"srt":           srt,
			"vtt":           vtt,
		})
	if result.Error != nil {
		return apperrors.DatabaseError("update project text", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("project", id.String())
	}
	return nil
}

// Delete soft-deletes a project owned by userID.
func (s *ProjectStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&Project{})
	if result.Error != nil {
		return apperrors.DatabaseError("delete project", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("project", id.String())
	}
	return nil
}

// CountByUser returns the total number of projects a user owns,
// regardless of status.
func (s *ProjectStore) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Project{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.DatabaseError("count projects", err)
	}
	return count, nil
}

// CountCompletedByUser returns the authoritative number of completed
// projects for a user. The free-tier gate reconciles its cached counter
// against this count.
func (s *ProjectStore) CountCompletedByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Project{}).
		Where("user_id = ? AND status = ?", userID, ProjectCompleted).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.DatabaseError("count completed projects", err)
	}
	return count, nil
}
