package services

import "errors"

var (
	ErrActivePollExists  = errors.New("an active selection poll already exists")
	ErrCurrentBookExists = errors.New("community already has a current book")
	ErrBookNotInQueue    = errors.New("book not found in queue")
	ErrNoCurrentBook     = errors.New("community has no current book")
	ErrQueueTooSmall     = errors.New("queue needs at least two books for a poll")
	ErrQueueEmpty        = errors.New("queue is empty")
	ErrGuardKept         = errors.New("the active selection poll was kept")
	ErrContentBlocked    = errors.New("book is not allowed in this channel")
	ErrInvalidDeadline   = errors.New("deadline must be a YYYY-MM-DD date that is not in the past")
)
