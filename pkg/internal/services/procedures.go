package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/database"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"gorm.io/gorm"
)

const (
	procCurrentBookExists = "community already has a current book"
	procBookNotInQueue    = "book not found in queue"
)

type SelectionResult struct {
	BookID          string `json:"book_id"`
	SuggestedByID   string `json:"suggested_by_id"`
	SuggestedByName string `json:"suggested_by_name"`
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
}

// AsError maps a failed procedure result onto the matching sentinel.
func (v SelectionResult) AsError() error {
	switch {
	case v.Success:
		return nil
	case strings.Contains(v.Error, procCurrentBookExists):
		return ErrCurrentBookExists
	case strings.Contains(v.Error, procBookNotInQueue):
		return ErrBookNotInQueue
	default:
		return errors.New(v.Error)
	}
}

type CompletionResult struct {
	CompletedID           uint      `json:"completed_id"`
	BookID                string    `json:"book_id"`
	StartedAt             time.Time `json:"started_at"`
	CompletedAt           time.Time `json:"completed_at"`
	AnnouncementChannelID *string   `json:"announcement_channel_id"`
}

// SelectBookFromQueue moves a queued book into the current slot inside tx.
// A business failure is reported through the result, only storage failures return an error.
func SelectBookFromQueue(tx *gorm.DB, communityID, bookID string, announcementChannelID *string, deadline *time.Time) (SelectionResult, error) {
	result := SelectionResult{BookID: bookID}

	var current int64
	if err := tx.Model(&models.CurrentBook{}).Where("community_id = ?", communityID).Count(&current).Error; err != nil {
		return result, err
	} else if current > 0 {
		result.Error = procCurrentBookExists
		return result, nil
	}

	var queued models.QueuedBook
	if err := tx.Where("community_id = ? AND book_id = ?", communityID, bookID).First(&queued).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result.Error = procBookNotInQueue
			return result, nil
		}
		return result, err
	}

	if err := tx.Delete(&queued).Error; err != nil {
		return result, err
	}
	if err := tx.Model(&models.QueuedBook{}).
		Where("community_id = ? AND position > ?", communityID, queued.Position).
		Update("position", gorm.Expr("position - 1")).Error; err != nil {
		return result, err
	}

	if err := tx.Create(&models.CurrentBook{
		CommunityID:           communityID,
		BookID:                bookID,
		StartedAt:             time.Now(),
		Deadline:              deadline,
		AnnouncementChannelID: announcementChannelID,
		SuggestedByID:         queued.SuggestedByID,
		SuggestedByName:       queued.SuggestedByName,
	}).Error; err != nil {
		if database.IsUniqueViolation(err) {
			result.Error = procCurrentBookExists
			return result, nil
		}
		return result, err
	}

	result.SuggestedByID = queued.SuggestedByID
	result.SuggestedByName = queued.SuggestedByName
	result.Success = true
	return result, nil
}

// FinishCurrentBook archives the current book of a community inside tx.
func FinishCurrentBook(tx *gorm.DB, communityID string) (CompletionResult, error) {
	var result CompletionResult

	var current models.CurrentBook
	if err := tx.Where("community_id = ?", communityID).First(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, ErrNoCurrentBook
		}
		return result, err
	}

	completed := models.CompletedBook{
		CommunityID:     communityID,
		BookID:          current.BookID,
		StartedAt:       current.StartedAt,
		CompletedAt:     time.Now(),
		SuggestedByID:   current.SuggestedByID,
		SuggestedByName: current.SuggestedByName,
	}
	if err := tx.Create(&completed).Error; err != nil {
		return result, err
	}
	if err := tx.Delete(&current).Error; err != nil {
		return result, err
	}

	return CompletionResult{
		CompletedID:           completed.ID,
		BookID:                completed.BookID,
		StartedAt:             completed.StartedAt,
		CompletedAt:           completed.CompletedAt,
		AnnouncementChannelID: current.AnnouncementChannelID,
	}, nil
}

func GetCurrentBook(ctx context.Context, communityID string) (*models.CurrentBook, error) {
	var current models.CurrentBook
	if err := database.C.WithContext(ctx).Where("community_id = ?", communityID).First(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &current, nil
}

func ListQueue(ctx context.Context, communityID string, limit int) ([]models.QueuedBook, error) {
	var queue []models.QueuedBook
	query := database.C.WithContext(ctx).Where("community_id = ?", communityID).Order("position ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&queue).Error; err != nil {
		return queue, err
	}
	return queue, nil
}

// EnqueueBook appends a book to the end of the community queue.
func EnqueueBook(ctx context.Context, item models.QueuedBook) (models.QueuedBook, error) {
	err := database.C.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last struct{ Position *int }
		if err := tx.Model(&models.QueuedBook{}).
			Select("MAX(position) AS position").
			Where("community_id = ?", item.CommunityID).
			Scan(&last).Error; err != nil {
			return err
		}
		item.Position = 1
		if last.Position != nil {
			item.Position = *last.Position + 1
		}
		return tx.Create(&item).Error
	})
	if err != nil && database.IsUniqueViolation(err) {
		return item, fmt.Errorf("book %s is already queued: %w", item.BookID, err)
	}
	return item, err
}
