package gap

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMessageNotFound is returned when the poll message was deleted or is no longer reachable.
	ErrMessageNotFound = errors.New("message not found")
	// ErrPollMissing is returned when the message exists but carries no poll.
	ErrPollMissing = errors.New("message has no poll attached")
)

type PollAnswer struct {
	Token string `json:"token"`
	Text  string `json:"text"`
}

// PollState is what the platform reports about a poll at fetch time.
// Counts is keyed by answer token and is authoritative.
type PollState struct {
	Answers   []PollAnswer   `json:"answers"`
	Finalized bool           `json:"finalized"`
	Counts    map[string]int `json:"counts"`
	ExpiresAt *time.Time     `json:"expires_at"`
}

type OutgoingPoll struct {
	Question string
	Answers  []OutgoingAnswer
	Duration time.Duration
}

type OutgoingAnswer struct {
	Text  string
	Emoji string
}

type OutgoingMessage struct {
	Title   string
	Content string
	Color   int
	Poll    *OutgoingPoll
}

type SentMessage struct {
	ID          string
	ChannelID   string
	PollAnswers []PollAnswer
}

type ChatClient interface {
	SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) (*SentMessage, error)
	FetchPoll(ctx context.Context, channelID, messageID string) (*PollState, error)
	PinMessage(ctx context.Context, channelID, messageID string) error
	// ChannelAllowsMature reports whether the channel, or the parent of a thread, is marked adult.
	ChannelAllowsMature(ctx context.Context, channelID string) (bool, error)
}

type Decision int

const (
	DecisionKeep = Decision(iota)
	DecisionCancelAndProceed
)

type GuardPrompt struct {
	CommunityID   string
	PollChannelID string
	PollMessageID string
}

// Prompter asks the invoking user about an open selection poll.
// It must return DecisionKeep once ctx expires.
type Prompter interface {
	AskCancelPoll(ctx context.Context, channelID, userID string, prompt GuardPrompt) (Decision, error)
}

var (
	Chat   ChatClient
	Prompt Prompter
)
