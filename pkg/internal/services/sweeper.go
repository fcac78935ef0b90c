package services

import (
	"context"
	"time"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/database"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const sweepTimeout = 5 * time.Minute

func DoExpiredPollSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	log.Debug().Msg("Now sweeping expired polls...")
	if count, err := SweepExpiredPolls(ctx); err != nil {
		log.Error().Err(err).Msg("An error occurred when sweeping expired polls...")
	} else if count > 0 {
		log.Info().Int("count", count).Msg("Swept expired polls.")
	}
}

func DoDeadlineSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	log.Debug().Msg("Now checking reading deadlines...")
	if count, err := SweepDeadlines(ctx); err != nil {
		log.Error().Err(err).Msg("An error occurred when checking reading deadlines...")
	} else if count > 0 {
		log.Info().Int("count", count).Msg("Finished books past their deadline.")
	}
}

type expiredPoll struct {
	ChannelID string
	MessageID string
	ExpiresAt time.Time
}

// SweepExpiredPolls pushes every expired unprocessed poll through the completion check.
// Polls expired longer than the force window are resolved even if the platform never finalized them.
func SweepExpiredPolls(ctx context.Context) (int, error) {
	now := time.Now()

	var selections []models.SelectionPoll
	if err := database.C.WithContext(ctx).
		Where("processed = ? AND expires_at <= ?", false, now).
		Find(&selections).Error; err != nil {
		return 0, err
	}
	var ratings []models.RatingPoll
	if err := database.C.WithContext(ctx).
		Where("processed = ? AND expires_at <= ?", false, now).
		Find(&ratings).Error; err != nil {
		return 0, err
	}

	expired := append(
		lo.Map(selections, func(item models.SelectionPoll, _ int) expiredPoll {
			return expiredPoll{ChannelID: item.ChannelID, MessageID: item.MessageID, ExpiresAt: item.ExpiresAt}
		}),
		lo.Map(ratings, func(item models.RatingPoll, _ int) expiredPoll {
			return expiredPoll{ChannelID: item.ChannelID, MessageID: item.MessageID, ExpiresAt: item.ExpiresAt}
		})...,
	)

	for _, poll := range expired {
		force := Settings.ForceAfter > 0 && now.Sub(poll.ExpiresAt) >= Settings.ForceAfter
		if err := checkPollForCompletion(ctx, poll.ChannelID, poll.MessageID, force); err != nil {
			log.Warn().Err(err).Str("message", poll.MessageID).Msg("Unable to check expired poll, will retry next sweep...")
		}
	}

	return len(expired), nil
}

// SweepDeadlines finishes current books past their deadline in communities that opted in.
func SweepDeadlines(ctx context.Context) (int, error) {
	var configs []models.CommunityConfig
	if err := database.C.WithContext(ctx).
		Where("auto_complete_on_deadline = ?", true).
		Find(&configs).Error; err != nil {
		return 0, err
	}
	if len(configs) == 0 {
		return 0, nil
	}

	var due []models.CurrentBook
	if err := database.C.WithContext(ctx).
		Where("community_id IN ? AND deadline IS NOT NULL AND deadline <= ?", lo.Map(configs, func(item models.CommunityConfig, _ int) string {
			return item.CommunityID
		}), time.Now()).
		Find(&due).Error; err != nil {
		return 0, err
	}

	var finished int
	for _, current := range due {
		if _, err := FinishBook(ctx, current.CommunityID, "", TriggerDeadline); err != nil {
			log.Warn().Err(err).Str("community", current.CommunityID).Msg("Unable to finish book past its deadline...")
			continue
		}
		finished++
	}
	return finished, nil
}
