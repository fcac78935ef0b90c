package models

import (
	"time"

	"gorm.io/datatypes"
)

// Poll is the part shared by every poll the bot tracks.
// A poll is keyed by the platform message that carries it.
type Poll struct {
	MessageID string    `json:"message_id" gorm:"uniqueIndex;size:64"`
	ChannelID string    `json:"channel_id" gorm:"size:64"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
	Processed bool      `json:"processed" gorm:"not null;default:false;index"`
}

type SelectionPoll struct {
	BaseModel
	Poll

	// At most one open selection poll per community.
	CommunityID    string                      `json:"community_id" gorm:"size:64;uniqueIndex:idx_selection_polls_open_community,where:processed = false"`
	BookOptions    datatypes.JSONSlice[string] `json:"book_options"`
	Deadline       *time.Time                  `json:"deadline"`
	SelectedBookID *string                     `json:"selected_book_id"`
}

type RatingPoll struct {
	BaseModel
	Poll

	CommunityID     string `json:"community_id" gorm:"size:64;index"`
	CompletedBookID uint   `json:"completed_book_id" gorm:"index"`
}

// PollKind tells the two poll records apart after a lookup by message id.
type PollKind string

const (
	PollKindSelection = PollKind("selection")
	PollKindRating    = PollKind("rating")
)
