package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/database"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/gap"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

const (
	MinSelectionSize  = 2
	MaxSelectionSize  = 10
	MinSelectionHours = 1
	MaxSelectionHours = 167

	maxAnswerLength = 55
)

type SelectionPollRequest struct {
	CommunityID string
	ChannelID   string
	UserID      string
	Size        int
	Hours       int
	Deadline    *time.Time
}

type SelectNextRequest struct {
	CommunityID string
	ChannelID   string
	UserID      string
	Deadline    *time.Time
}

// ParseDeadline reads a YYYY-MM-DD date as the end of that day in UTC.
func ParseDeadline(raw string, now time.Time) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, ErrInvalidDeadline
	}
	deadline := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, time.UTC)
	if deadline.Before(now) {
		return nil, ErrInvalidDeadline
	}
	return &deadline, nil
}

func truncateAnswer(text string) string {
	if utf8.RuneCountInString(text) <= maxAnswerLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxAnswerLength-1]) + "…"
}

func selectionLabel(idx int, book BookInfo) string {
	if book.Placeholder {
		return fmt.Sprintf("%d. [Book data unavailable]", idx+1)
	}
	return truncateAnswer(fmt.Sprintf("%d. %s — %s", idx+1, book.Title, book.AuthorLine()))
}

func CreateSelectionPoll(ctx context.Context, req SelectionPollRequest) (*models.SelectionPoll, error) {
	size := lo.Ternary(req.Size == 0, Settings.SelectionSize, req.Size)
	hours := lo.Ternary(req.Hours == 0, Settings.SelectionHours, req.Hours)
	if size < MinSelectionSize || size > MaxSelectionSize {
		return nil, fmt.Errorf("poll size must be between %d and %d", MinSelectionSize, MaxSelectionSize)
	} else if hours < MinSelectionHours || hours > MaxSelectionHours {
		return nil, fmt.Errorf("poll duration must be between %d and %d hours", MinSelectionHours, MaxSelectionHours)
	}

	if outcome, err := GuardSelectionAction(ctx, req.CommunityID, req.ChannelID, req.UserID); err != nil {
		return nil, err
	} else if outcome == GuardKeepPoll {
		return nil, ErrGuardKept
	}

	if current, err := GetCurrentBook(ctx, req.CommunityID); err != nil {
		return nil, err
	} else if current != nil {
		return nil, ErrCurrentBookExists
	}

	queue, err := ListQueue(ctx, req.CommunityID, size)
	if err != nil {
		return nil, err
	} else if len(queue) < MinSelectionSize {
		return nil, ErrQueueTooSmall
	}

	ids := lo.Map(queue, func(item models.QueuedBook, _ int) string {
		return item.BookID
	})
	books := LookupBooks(ctx, ids)

	config, err := GetCommunityConfig(ctx, req.CommunityID)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(hours) * time.Hour
	msg := gap.OutgoingMessage{
		Title:   "Book Selection Poll",
		Content: fmt.Sprintf("Vote for the next book! The poll closes in %d hour(s).", hours),
		Poll: &gap.OutgoingPoll{
			Question: "Which book should we read next?",
			Answers: lo.Map(books, func(item BookInfo, idx int) gap.OutgoingAnswer {
				return gap.OutgoingAnswer{Text: selectionLabel(idx, item)}
			}),
			Duration: duration,
		},
	}
	if req.Deadline != nil {
		msg.Content += fmt.Sprintf("\nReading deadline: %s", req.Deadline.UTC().Format(time.DateOnly))
	}

	target := announcementTarget(config, req.ChannelID)
	sent, err := gap.Chat.SendMessage(ctx, target, msg)
	if err != nil && target != req.ChannelID {
		log.Warn().Err(err).Str("channel", target).Msg("Unable to post poll to announcement channel, falling back...")
		sent, err = gap.Chat.SendMessage(ctx, req.ChannelID, msg)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to send poll: %w", err)
	}
	if config.ShouldPinPolls() {
		pinMessage(ctx, sent)
	}

	poll, err := NewSelectionPoll(ctx, models.SelectionPoll{
		Poll: models.Poll{
			MessageID: sent.ID,
			ChannelID: sent.ChannelID,
			ExpiresAt: time.Now().Add(duration),
		},
		CommunityID: req.CommunityID,
		BookOptions: ids,
		Deadline:    req.Deadline,
	})
	if err != nil {
		return nil, err
	}
	Answers.Prime(sent.ID, sent.PollAnswers)

	log.Info().Str("community", req.CommunityID).Str("message", sent.ID).Int("options", len(ids)).Msg("Selection poll created.")
	return &poll, nil
}

// SelectNextBook starts the head of the queue without a poll.
func SelectNextBook(ctx context.Context, req SelectNextRequest) (SelectionResult, error) {
	var result SelectionResult

	if outcome, err := GuardSelectionAction(ctx, req.CommunityID, req.ChannelID, req.UserID); err != nil {
		return result, err
	} else if outcome == GuardKeepPoll {
		return result, ErrGuardKept
	}

	queue, err := ListQueue(ctx, req.CommunityID, 1)
	if err != nil {
		return result, err
	} else if len(queue) == 0 {
		return result, ErrQueueEmpty
	}

	book := LookupBook(ctx, queue[0].BookID)
	config, err := GetCommunityConfig(ctx, req.CommunityID)
	if err != nil {
		return result, err
	}
	if verdict := CheckContentGate(ctx, req.CommunityID, announcementTarget(config, req.ChannelID), book); !verdict.Allowed {
		notify(ctx, req.ChannelID, ContentBlockedMessage(book, verdict))
		return result, ErrContentBlocked
	}

	err = database.C.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if result, err = SelectBookFromQueue(tx, req.CommunityID, queue[0].BookID, config.AnnouncementChannelID, req.Deadline); err != nil {
			return err
		}
		return result.AsError()
	})
	if err != nil {
		return result, err
	}

	announce(ctx, config, req.ChannelID, DirectSelectionAnnouncement(book, result, req.Deadline))
	return result, nil
}
