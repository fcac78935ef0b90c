package gap

import "context"

// PollEvent is one of VoteAdded, VoteRemoved or MessageUpdated.
type PollEvent interface {
	pollEvent()
}

type VoteAdded struct {
	ChannelID   string
	MessageID   string
	UserID      string
	AnswerToken string
}

type VoteRemoved struct {
	ChannelID   string
	MessageID   string
	UserID      string
	AnswerToken string
}

type MessageUpdated struct {
	ChannelID string
	MessageID string
}

func (VoteAdded) pollEvent()      {}
func (VoteRemoved) pollEvent()    {}
func (MessageUpdated) pollEvent() {}

type EventHandler func(ctx context.Context, evt PollEvent)
