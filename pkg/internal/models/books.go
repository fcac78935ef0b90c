package models

import "time"

type QueuedBook struct {
	BaseModel

	CommunityID     string `json:"community_id" gorm:"size:64;uniqueIndex:idx_queued_books_community_book"`
	BookID          string `json:"book_id" gorm:"size:64;uniqueIndex:idx_queued_books_community_book"`
	Position        int    `json:"position" gorm:"index"`
	SuggestedByID   string `json:"suggested_by_id"`
	SuggestedByName string `json:"suggested_by_name"`
}

type CurrentBook struct {
	BaseModel

	CommunityID           string     `json:"community_id" gorm:"size:64;uniqueIndex"`
	BookID                string     `json:"book_id" gorm:"size:64"`
	StartedAt             time.Time  `json:"started_at"`
	Deadline              *time.Time `json:"deadline" gorm:"index"`
	AnnouncementChannelID *string    `json:"announcement_channel_id"`
	SuggestedByID         string     `json:"suggested_by_id"`
	SuggestedByName       string     `json:"suggested_by_name"`
}

type CompletedBook struct {
	BaseModel

	CommunityID     string    `json:"community_id" gorm:"size:64;index"`
	BookID          string    `json:"book_id" gorm:"size:64"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	SuggestedByID   string    `json:"suggested_by_id"`
	SuggestedByName string    `json:"suggested_by_name"`

	AverageRating *float64 `json:"average_rating"`
	TotalRatings  int      `json:"total_ratings"`
}

type BookRating struct {
	BaseModel

	UserID          string    `json:"user_id" gorm:"size:64;uniqueIndex:idx_book_ratings_user_book"`
	CompletedBookID uint      `json:"completed_book_id" gorm:"uniqueIndex:idx_book_ratings_user_book"`
	Rating          int       `json:"rating"`
	RatedAt         time.Time `json:"rated_at"`
}
