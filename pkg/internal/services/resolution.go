package services

import (
	"context"
	"errors"
	"fmt"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/database"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/gap"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CheckPollForCompletion resolves the poll on messageID once the platform reports it finalized.
// Events and the sweeper both land here, the processed flag decides who applies the outcome.
func CheckPollForCompletion(ctx context.Context, channelID, messageID string) error {
	return checkPollForCompletion(ctx, channelID, messageID, false)
}

// ForceResolvePoll resolves the poll with its current counts even when it is not finalized yet.
func ForceResolvePoll(ctx context.Context, messageID string) error {
	return checkPollForCompletion(ctx, "", messageID, true)
}

func checkPollForCompletion(ctx context.Context, channelID, messageID string, force bool) error {
	record, err := GetPollByMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("unable to look up poll: %v", err)
	} else if record == nil || record.Poll().Processed {
		return nil
	}
	if len(channelID) == 0 {
		channelID = record.Poll().ChannelID
	}

	state, err := gap.Chat.FetchPoll(ctx, channelID, messageID)
	if err != nil {
		if errors.Is(err, gap.ErrMessageNotFound) {
			return closeMissingPoll(ctx, record)
		}
		return fmt.Errorf("unable to fetch poll %s: %w", messageID, err)
	}
	if !state.Finalized && !force {
		return nil
	}

	logger := log.With().
		Str("run", uuid.NewString()).
		Str("message", messageID).
		Str("kind", string(record.Kind)).
		Bool("forced", !state.Finalized).
		Logger()

	switch record.Kind {
	case models.PollKindSelection:
		return resolveSelectionPoll(ctx, logger, *record.Selection, state)
	case models.PollKindRating:
		return resolveRatingPoll(ctx, logger, *record.Rating)
	default:
		return nil
	}
}

// claimSelectionPoll closes a selection poll that ends without a selection.
func claimSelectionPoll(ctx context.Context, logger zerolog.Logger, poll models.SelectionPoll) (bool, error) {
	won, err := claimPoll(database.C.WithContext(ctx), &models.SelectionPoll{}, poll.MessageID)
	if err != nil {
		return false, err
	} else if !won {
		logger.Debug().Msg("Selection poll was already resolved, skipping...")
		return false, nil
	}
	Answers.Purge(poll.MessageID)
	return true, nil
}

func resolveSelectionPoll(ctx context.Context, logger zerolog.Logger, poll models.SelectionPoll, state *gap.PollState) error {
	outcome := PickWinner(TallyAnswers(state))
	if !outcome.HasWinner {
		if won, err := claimSelectionPoll(ctx, logger, poll); err != nil || !won {
			return err
		}
		logger.Info().Msg("Selection poll ended without votes.")
		notify(ctx, poll.ChannelID, NoVotesMessage())
		return nil
	}
	if outcome.Index >= len(poll.BookOptions) {
		if won, err := claimSelectionPoll(ctx, logger, poll); err != nil || !won {
			return err
		}
		logger.Warn().Int("index", outcome.Index).Int("options", len(poll.BookOptions)).Msg("Winning answer has no matching book option, closed poll without selection.")
		return nil
	}

	bookID := poll.BookOptions[outcome.Index]
	book := LookupBook(ctx, bookID)

	config, err := GetCommunityConfig(ctx, poll.CommunityID)
	if err != nil {
		logger.Warn().Err(err).Msg("Unable to load community config, using defaults...")
		config = models.CommunityConfig{CommunityID: poll.CommunityID}
	}

	if verdict := CheckContentGate(ctx, poll.CommunityID, poll.ChannelID, book); !verdict.Allowed {
		if won, err := claimSelectionPoll(ctx, logger, poll); err != nil || !won {
			return err
		}
		logger.Info().Str("book", bookID).Msg("Winning book is mature content and not allowed here.")
		notify(ctx, poll.ChannelID, ContentBlockedMessage(book, verdict))
		return nil
	}

	// The claim and the selection commit together, a domain conflict still keeps the claim.
	var won bool
	var result SelectionResult
	if err := database.C.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if won, err = claimPoll(tx, &models.SelectionPoll{}, poll.MessageID); err != nil || !won {
			return err
		}
		if result, err = SelectBookFromQueue(tx, poll.CommunityID, bookID, config.AnnouncementChannelID, poll.Deadline); err != nil {
			return err
		} else if !result.Success {
			return nil
		}
		return tx.Model(&models.SelectionPoll{}).
			Where("message_id = ? AND selected_book_id IS NULL", poll.MessageID).
			Update("selected_book_id", bookID).Error
	}); err != nil {
		return fmt.Errorf("unable to apply selection: %w", err)
	}
	if !won {
		logger.Debug().Msg("Selection poll was already resolved, skipping...")
		return nil
	}
	Answers.Purge(poll.MessageID)

	if err := result.AsError(); err != nil {
		logger.Info().Err(err).Str("book", bookID).Msg("Unable to start the winning book.")
		notify(ctx, poll.ChannelID, SelectionConflictMessage(book, outcome, err))
		return nil
	}

	logger.Info().Str("book", bookID).Int("votes", outcome.Votes).Bool("tied", outcome.Tied).Msg("Selection poll resolved.")
	announce(ctx, config, poll.ChannelID, SelectionAnnouncement(book, result, outcome, poll.Deadline))
	return nil
}

func resolveRatingPoll(ctx context.Context, logger zerolog.Logger, poll models.RatingPoll) error {
	if won, err := claimPoll(database.C.WithContext(ctx), &models.RatingPoll{}, poll.MessageID); err != nil {
		return err
	} else if !won {
		logger.Debug().Msg("Rating poll was already resolved, skipping...")
		return nil
	}
	Answers.Purge(poll.MessageID)

	completed, err := GetCompletedBook(ctx, poll.CompletedBookID)
	if err != nil {
		logger.Error().Err(err).Uint("completed", poll.CompletedBookID).Msg("An error occurred when loading completed book...")
		return nil
	}

	logger.Info().Int("ratings", completed.TotalRatings).Msg("Rating poll resolved.")
	notify(ctx, poll.ChannelID, RatingSummaryMessage(LookupBook(ctx, completed.BookID), completed))
	return nil
}

// closeMissingPoll retires a poll whose message is gone without applying any outcome.
func closeMissingPoll(ctx context.Context, record *PollRecord) error {
	messageID := record.Poll().MessageID
	tx := database.C.WithContext(ctx)

	var err error
	switch record.Kind {
	case models.PollKindSelection:
		err = tx.Model(&models.SelectionPoll{}).
			Where("message_id = ? AND processed = ?", messageID, false).
			Updates(map[string]any{"processed": true, "selected_book_id": nil}).Error
	case models.PollKindRating:
		_, err = claimPoll(tx, &models.RatingPoll{}, messageID)
	}
	if err != nil {
		return fmt.Errorf("unable to close missing poll: %v", err)
	}

	Answers.Purge(messageID)
	log.Warn().Str("message", messageID).Str("kind", string(record.Kind)).Msg("Poll message is gone, closed poll without outcome.")
	return nil
}

// announce posts to the announcement channel with a fallback to origin, pinning when configured.
func announce(ctx context.Context, config models.CommunityConfig, origin string, msg gap.OutgoingMessage) *gap.SentMessage {
	target := announcementTarget(config, origin)
	sent := notify(ctx, target, msg)
	if sent == nil && target != origin {
		sent = notify(ctx, origin, msg)
	}
	if config.ShouldPinPolls() {
		pinMessage(ctx, sent)
	}
	return sent
}
