package services

import (
	"context"
	"errors"
	"fmt"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/database"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PollRecord struct {
	Kind      models.PollKind       `json:"kind"`
	Selection *models.SelectionPoll `json:"selection,omitempty"`
	Rating    *models.RatingPoll    `json:"rating,omitempty"`
}

func (v PollRecord) Poll() models.Poll {
	if v.Selection != nil {
		return v.Selection.Poll
	}
	return v.Rating.Poll
}

func (v PollRecord) CommunityID() string {
	if v.Selection != nil {
		return v.Selection.CommunityID
	}
	return v.Rating.CommunityID
}

// GetPollByMessage looks up a tracked poll of either kind. A nil record means the message is unknown.
func GetPollByMessage(ctx context.Context, messageID string) (*PollRecord, error) {
	var selection models.SelectionPoll
	if err := database.C.WithContext(ctx).Where("message_id = ?", messageID).First(&selection).Error; err == nil {
		return &PollRecord{Kind: models.PollKindSelection, Selection: &selection}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var rating models.RatingPoll
	if err := database.C.WithContext(ctx).Where("message_id = ?", messageID).First(&rating).Error; err == nil {
		return &PollRecord{Kind: models.PollKindRating, Rating: &rating}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return nil, nil
}

// claimPoll flips processed from false to true. Only the caller that sees true may apply side effects.
func claimPoll(tx *gorm.DB, model any, messageID string) (bool, error) {
	result := tx.Model(model).
		Where("message_id = ? AND processed = ?", messageID, false).
		Update("processed", true)
	if result.Error != nil {
		return false, fmt.Errorf("unable to claim poll: %v", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func NewSelectionPoll(ctx context.Context, poll models.SelectionPoll) (models.SelectionPoll, error) {
	if err := database.C.WithContext(ctx).Create(&poll).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return poll, ErrActivePollExists
		}
		return poll, err
	}
	return poll, nil
}

func NewRatingPoll(ctx context.Context, poll models.RatingPoll) (models.RatingPoll, error) {
	if err := database.C.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "message_id"}}, DoNothing: true}).
		Create(&poll).Error; err != nil {
		return poll, err
	}
	return poll, nil
}
