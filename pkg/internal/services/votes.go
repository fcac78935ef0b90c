package services

import (
	"context"
	"errors"
	"fmt"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/database"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// openRatingPoll returns the unprocessed rating poll on messageID, or nil.
func openRatingPoll(ctx context.Context, messageID string) (*models.RatingPoll, error) {
	var poll models.RatingPoll
	if err := database.C.WithContext(ctx).Where("message_id = ?", messageID).First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if poll.Processed {
		return nil, nil
	}
	return &poll, nil
}

func IngestVoteAdded(ctx context.Context, channelID, messageID, userID, token string) error {
	poll, err := openRatingPoll(ctx, messageID)
	if err != nil || poll == nil {
		return err
	}

	rating, ok, err := Answers.Resolve(ctx, lookupChannel(channelID, poll), messageID, token)
	if err != nil {
		return fmt.Errorf("unable to resolve answer: %w", err)
	} else if !ok || rating < MinRating || rating > MaxRating {
		log.Warn().Str("message", messageID).Str("answer", token).Msg("Vote references an unknown answer, skipping...")
		return nil
	}

	return UpsertRating(ctx, userID, poll.CompletedBookID, rating)
}

func IngestVoteRemoved(ctx context.Context, channelID, messageID, userID, token string) error {
	poll, err := openRatingPoll(ctx, messageID)
	if err != nil || poll == nil {
		return err
	}

	var expect *int
	if rating, ok, err := Answers.Resolve(ctx, lookupChannel(channelID, poll), messageID, token); err != nil {
		log.Warn().Err(err).Str("message", messageID).Msg("Unable to resolve removed answer, dropping the rating anyway...")
	} else if ok {
		expect = &rating
	}

	_, err = RemoveRating(ctx, userID, poll.CompletedBookID, expect)
	return err
}

func lookupChannel(channelID string, poll *models.RatingPoll) string {
	if len(channelID) > 0 {
		return channelID
	}
	return poll.ChannelID
}
