package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerResolverRefetchesOnMiss(t *testing.T) {
	env := setupTestEnv(t)
	poll := env.openSelectionPoll(t, "c1", "ch1", futureExpiry(), "a", "b", "c")
	ctx := context.Background()

	idx, ok, err := Answers.Resolve(ctx, "ch1", poll.MessageID, "101")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Equal(t, 1, env.chat.fetchCount(poll.MessageID))

	idx, ok, err = Answers.Resolve(ctx, "ch1", poll.MessageID, "102")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, idx)
	assert.Equal(t, 1, env.chat.fetchCount(poll.MessageID), "a cached list must not be refetched")
}

func TestAnswerResolverUnknownTokenAfterRefetch(t *testing.T) {
	env := setupTestEnv(t)
	poll := env.openSelectionPoll(t, "c1", "ch1", futureExpiry(), "a", "b")
	ctx := context.Background()

	_, ok, err := Answers.Resolve(ctx, "ch1", poll.MessageID, "999")
	require.NoError(t, err)
	assert.False(t, ok)

	// A cached entry lacking the token still triggers a fresh fetch.
	_, ok, err = Answers.Resolve(ctx, "ch1", poll.MessageID, "999")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, env.chat.fetchCount(poll.MessageID))
}

func TestAnswerResolverPrimeAndPurge(t *testing.T) {
	env := setupTestEnv(t)
	poll := env.openSelectionPoll(t, "c1", "ch1", futureExpiry(), "a", "b")
	ctx := context.Background()

	state, err := env.chat.FetchPoll(ctx, "ch1", poll.MessageID)
	require.NoError(t, err)
	Answers.Prime(poll.MessageID, state.Answers)
	fetched := env.chat.fetchCount(poll.MessageID)

	idx, ok, err := Answers.Resolve(ctx, "ch1", poll.MessageID, "100")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, fetched, env.chat.fetchCount(poll.MessageID))

	Answers.Purge(poll.MessageID)
	assert.Equal(t, 0, Answers.Len())

	_, _, err = Answers.Resolve(ctx, "ch1", poll.MessageID, "100")
	require.NoError(t, err)
	assert.Equal(t, fetched+1, env.chat.fetchCount(poll.MessageID))
}

func TestAnswerResolverPropagatesFetchError(t *testing.T) {
	env := setupTestEnv(t)
	poll := env.openSelectionPoll(t, "c1", "ch1", futureExpiry(), "a", "b")
	env.chat.fetchErr[poll.MessageID] = errors.New("gateway timeout")

	_, ok, err := Answers.Resolve(context.Background(), "ch1", poll.MessageID, "100")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, Answers.Len())
}
