package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/database"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/gap"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type GuardOutcome int

const (
	GuardNoActivePoll = GuardOutcome(iota)
	GuardKeepPoll
	GuardCancelledAndProceed
)

// FindActiveSelectionPoll returns the open, unexpired selection poll of a community without touching stale ones.
func FindActiveSelectionPoll(ctx context.Context, communityID string) (*models.SelectionPoll, error) {
	var poll models.SelectionPoll
	if err := database.C.WithContext(ctx).
		Where("community_id = ? AND processed = ? AND expires_at > ?", communityID, false, time.Now()).
		Order("expires_at DESC").
		First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &poll, nil
}

// ActiveSelectionPoll is FindActiveSelectionPoll after marking expired, unresolved polls processed.
// Only selection actions call it.
func ActiveSelectionPoll(ctx context.Context, communityID string) (*models.SelectionPoll, error) {
	if _, err := closeSelectionPolls(ctx, communityID, lo.ToPtr(time.Now())); err != nil {
		return nil, fmt.Errorf("unable to repair stale polls: %v", err)
	}
	return FindActiveSelectionPoll(ctx, communityID)
}

func CancelOpenSelectionPolls(ctx context.Context, communityID string) (int64, error) {
	return closeSelectionPolls(ctx, communityID, nil)
}

// closeSelectionPolls marks open polls of a community processed and drops their cached answers.
// A non-nil expiredBy limits it to polls that expired by then.
func closeSelectionPolls(ctx context.Context, communityID string, expiredBy *time.Time) (int64, error) {
	var closed []string
	var affected int64
	err := database.C.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&models.SelectionPoll{}).Where("community_id = ? AND processed = ?", communityID, false)
		if expiredBy != nil {
			query = query.Where("expires_at <= ?", *expiredBy)
		}
		if err := query.Pluck("message_id", &closed).Error; err != nil {
			return err
		} else if len(closed) == 0 {
			return nil
		}
		result := tx.Model(&models.SelectionPoll{}).
			Where("message_id IN ? AND processed = ?", closed, false).
			Update("processed", true)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, err
	}
	for _, messageID := range closed {
		Answers.Purge(messageID)
	}
	return affected, nil
}

// GuardSelectionAction runs before anything that would create or pick a book.
// A missing or failed answer from the user keeps the poll.
func GuardSelectionAction(ctx context.Context, communityID, channelID, userID string) (GuardOutcome, error) {
	poll, err := ActiveSelectionPoll(ctx, communityID)
	if err != nil {
		return GuardKeepPoll, err
	} else if poll == nil {
		return GuardNoActivePoll, nil
	}

	promptCtx, cancel := context.WithTimeout(ctx, Settings.GuardTimeout)
	defer cancel()

	decision, err := gap.Prompt.AskCancelPoll(promptCtx, channelID, userID, gap.GuardPrompt{
		CommunityID:   communityID,
		PollChannelID: poll.ChannelID,
		PollMessageID: poll.MessageID,
	})
	if err != nil {
		log.Warn().Err(err).Str("community", communityID).Msg("Unable to ask about the active poll, keeping it...")
		return GuardKeepPoll, nil
	} else if decision != gap.DecisionCancelAndProceed {
		return GuardKeepPoll, nil
	}

	if _, err := CancelOpenSelectionPolls(ctx, communityID); err != nil {
		return GuardKeepPoll, fmt.Errorf("unable to cancel selection poll: %v", err)
	}

	log.Info().Str("community", communityID).Str("message", poll.MessageID).Str("user", userID).Msg("Active selection poll cancelled by user.")
	return GuardCancelledAndProceed, nil
}
