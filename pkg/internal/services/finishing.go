package services

import (
	"context"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/database"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/gap"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

const (
	TriggerManual   = "Book Completed!"
	TriggerDeadline = "Deadline Reached!"

	ratingEmoji = "✨"
)

type FinishOutcome struct {
	Completed CompletionResult   `json:"completed"`
	Book      BookInfo           `json:"book"`
	Poll      *models.RatingPoll `json:"poll"`
	Verdict   ContentVerdict     `json:"verdict"`
}

// FinishBook archives the current book and opens a rating poll for it.
// channelID is where the request came from, it is used when no announcement channel is configured.
func FinishBook(ctx context.Context, communityID, channelID, trigger string) (*FinishOutcome, error) {
	var completed CompletionResult
	if err := database.C.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		completed, err = FinishCurrentBook(tx, communityID)
		return err
	}); err != nil {
		return nil, err
	}

	outcome := &FinishOutcome{Completed: completed, Book: LookupBook(ctx, completed.BookID)}

	config, err := GetCommunityConfig(ctx, communityID)
	if err != nil {
		log.Warn().Err(err).Str("community", communityID).Msg("Unable to load community config, using defaults...")
		config = models.CommunityConfig{CommunityID: communityID}
	}
	target := announcementTarget(config, channelID)
	if len(target) == 0 && completed.AnnouncementChannelID != nil {
		target = *completed.AnnouncementChannelID
	}
	if len(target) == 0 {
		log.Warn().Str("community", communityID).Msg("No channel to post the rating poll in, skipping...")
		return outcome, nil
	}

	if outcome.Verdict = CheckContentGate(ctx, communityID, target, outcome.Book); !outcome.Verdict.Allowed {
		msg := ContentBlockedMessage(outcome.Book, outcome.Verdict)
		msg.Content += "\n\nNo rating poll was created for this book."
		notify(ctx, target, msg)
		return outcome, nil
	}

	poll, err := CreateRatingPoll(ctx, config, target, completed, outcome.Book, trigger)
	if err != nil {
		return outcome, err
	}
	outcome.Poll = poll
	return outcome, nil
}

func CreateRatingPoll(ctx context.Context, config models.CommunityConfig, channelID string, completed CompletionResult, book BookInfo, trigger string) (*models.RatingPoll, error) {
	msg := RatingPollMessage(book, completed, trigger)
	msg.Poll = &gap.OutgoingPoll{
		Question: fmt.Sprintf("How would you rate %s?", book.Title),
		Answers: lo.Map(lo.RangeFrom(MinRating, MaxRating), func(n int, _ int) gap.OutgoingAnswer {
			return gap.OutgoingAnswer{Text: fmt.Sprintf("%d/%d", n, MaxRating), Emoji: ratingEmoji}
		}),
		Duration: Settings.RatingDuration,
	}

	sent, err := gap.Chat.SendMessage(ctx, channelID, msg)
	if err != nil {
		return nil, fmt.Errorf("unable to send rating poll: %w", err)
	}
	if config.ShouldPinPolls() {
		pinMessage(ctx, sent)
	}

	poll, err := NewRatingPoll(ctx, models.RatingPoll{
		Poll: models.Poll{
			MessageID: sent.ID,
			ChannelID: sent.ChannelID,
			ExpiresAt: time.Now().Add(Settings.RatingDuration),
		},
		CommunityID:     config.CommunityID,
		CompletedBookID: completed.CompletedID,
	})
	if err != nil {
		return nil, err
	}
	Answers.Prime(sent.ID, sent.PollAnswers)

	log.Info().Str("community", config.CommunityID).Str("message", sent.ID).Uint("completed", completed.CompletedID).Msg("Rating poll created.")
	return &poll, nil
}
