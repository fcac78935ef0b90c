package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/gap"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	colorSuccess = 0x57F287
	colorWarning = 0xFEE75C
	colorDanger  = 0xED4245
)

// notify sends a message and only logs a failure.
func notify(ctx context.Context, channelID string, msg gap.OutgoingMessage) *gap.SentMessage {
	sent, err := gap.Chat.SendMessage(ctx, channelID, msg)
	if err != nil {
		log.Warn().Err(err).Str("channel", channelID).Msg("An error occurred when sending message...")
		return nil
	}
	return sent
}

func pinMessage(ctx context.Context, sent *gap.SentMessage) {
	if sent == nil {
		return
	}
	if err := gap.Chat.PinMessage(ctx, sent.ChannelID, sent.ID); err != nil {
		log.Warn().Err(err).Str("message", sent.ID).Msg("An error occurred when pinning message...")
	}
}

func describeBook(book BookInfo) string {
	return fmt.Sprintf("**%s** by %s", book.Title, book.AuthorLine())
}

func tieNote(outcome Outcome) string {
	if !outcome.Tied {
		return ""
	}
	return "\n\nThere was a tie, the earliest option among the tied books was chosen."
}

func SelectionAnnouncement(book BookInfo, result SelectionResult, outcome Outcome, deadline *time.Time) gap.OutgoingMessage {
	return selectionAnnouncement("The community picked", book, result, outcome, deadline)
}

func DirectSelectionAnnouncement(book BookInfo, result SelectionResult, deadline *time.Time) gap.OutgoingMessage {
	return selectionAnnouncement("Next up from the queue:", book, result, Outcome{}, deadline)
}

func selectionAnnouncement(lead string, book BookInfo, result SelectionResult, outcome Outcome, deadline *time.Time) gap.OutgoingMessage {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s", lead, describeBook(book)))
	if outcome.Votes > 0 {
		sb.WriteString(fmt.Sprintf(" with %d vote(s)", outcome.Votes))
	}
	sb.WriteString(".")
	if len(result.SuggestedByName) > 0 {
		sb.WriteString(fmt.Sprintf("\nSuggested by %s.", result.SuggestedByName))
	}
	if deadline != nil {
		sb.WriteString(fmt.Sprintf("\nDeadline: %s", deadline.UTC().Format(time.DateOnly)))
	}
	sb.WriteString(tieNote(outcome))
	return gap.OutgoingMessage{Title: "New Book Selected!", Content: sb.String(), Color: colorSuccess}
}

func NoVotesMessage() gap.OutgoingMessage {
	return gap.OutgoingMessage{
		Title:   "Selection Poll Ended",
		Content: "The poll ended without any votes, so no book was selected.",
		Color:   colorWarning,
	}
}

func SelectionConflictMessage(book BookInfo, outcome Outcome, err error) gap.OutgoingMessage {
	var reason string
	switch {
	case errors.Is(err, ErrCurrentBookExists):
		reason = "a book is already being read. Finish it before selecting another one."
	case errors.Is(err, ErrBookNotInQueue):
		reason = "it is no longer in the queue."
	default:
		reason = "an unexpected error occurred."
	}
	return gap.OutgoingMessage{
		Title:   "Selection Failed",
		Content: fmt.Sprintf("The poll picked %s, but it could not be started because %s%s", describeBook(book), reason, tieNote(outcome)),
		Color:   colorDanger,
	}
}

func ContentBlockedMessage(book BookInfo, verdict ContentVerdict) gap.OutgoingMessage {
	var reasons []string
	if !verdict.ChannelAllows {
		reasons = append(reasons, "- This channel is not marked as age-restricted.")
	}
	if !verdict.CommunityAllows {
		reasons = append(reasons, "- Mature content is disabled for this server.")
	}
	return gap.OutgoingMessage{
		Title: "Mature Content Blocked",
		Content: fmt.Sprintf(
			"**%s** is rated as mature content and cannot be shown here.\n%s",
			book.Title,
			strings.Join(reasons, "\n"),
		),
		Color: colorDanger,
	}
}

func RatingPollMessage(book BookInfo, completed CompletionResult, trigger string) gap.OutgoingMessage {
	days := int(completed.CompletedAt.Sub(completed.StartedAt).Hours() / 24)
	return gap.OutgoingMessage{
		Title: trigger,
		Content: fmt.Sprintf(
			"Finished %s after %d day(s) of reading.\nRate it in the poll below!",
			describeBook(book),
			days,
		),
		Color: colorSuccess,
	}
}

func RatingSummaryMessage(book BookInfo, completed models.CompletedBook) gap.OutgoingMessage {
	content := fmt.Sprintf("Ratings for %s are in.\n", describeBook(book))
	if completed.TotalRatings == 0 || completed.AverageRating == nil {
		content += "No ratings were submitted."
	} else {
		content += fmt.Sprintf("Average rating: **%.1f/5** from %d vote(s).", *completed.AverageRating, completed.TotalRatings)
	}
	return gap.OutgoingMessage{Title: "Rating Poll Complete", Content: content, Color: colorSuccess}
}
