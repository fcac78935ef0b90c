package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/database"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/gap"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

type sentRecord struct {
	ID        string
	ChannelID string
	Message   gap.OutgoingMessage
}

type fakeChat struct {
	mu sync.Mutex

	nextID   int
	polls    map[string]*gap.PollState
	fetchErr map[string]error
	sendErr  map[string]error
	mature   map[string]bool
	sent     []sentRecord
	pins     []string
	fetches  map[string]int
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		polls:    make(map[string]*gap.PollState),
		fetchErr: make(map[string]error),
		sendErr:  make(map[string]error),
		mature:   make(map[string]bool),
		fetches:  make(map[string]int),
	}
}

func (f *fakeChat) SendMessage(_ context.Context, channelID string, msg gap.OutgoingMessage) (*gap.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.sendErr[channelID]; err != nil {
		return nil, err
	}
	f.nextID++
	id := fmt.Sprintf("msg-%d", f.nextID)
	f.sent = append(f.sent, sentRecord{ID: id, ChannelID: channelID, Message: msg})

	out := &gap.SentMessage{ID: id, ChannelID: channelID}
	if msg.Poll != nil {
		// Tokens deliberately differ from positions.
		answers := lo.Map(msg.Poll.Answers, func(item gap.OutgoingAnswer, idx int) gap.PollAnswer {
			return gap.PollAnswer{Token: fmt.Sprintf("%d", 100+idx), Text: item.Text}
		})
		f.polls[id] = &gap.PollState{Answers: answers, Counts: make(map[string]int)}
		out.PollAnswers = answers
	}
	return out, nil
}

func (f *fakeChat) FetchPoll(_ context.Context, _ string, messageID string) (*gap.PollState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches[messageID]++
	if err := f.fetchErr[messageID]; err != nil {
		return nil, err
	}
	state, ok := f.polls[messageID]
	if !ok {
		return nil, gap.ErrMessageNotFound
	}
	return &gap.PollState{
		Answers:   append([]gap.PollAnswer{}, state.Answers...),
		Finalized: state.Finalized,
		Counts:    lo.Assign(state.Counts),
	}, nil
}

func (f *fakeChat) PinMessage(_ context.Context, _ string, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pins = append(f.pins, messageID)
	return nil
}

func (f *fakeChat) ChannelAllowsMature(_ context.Context, channelID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mature[channelID], nil
}

// setCounts stores counts by answer position and optionally finalizes the poll.
func (f *fakeChat) setCounts(messageID string, finalized bool, counts ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := f.polls[messageID]
	for idx, count := range counts {
		state.Counts[state.Answers[idx].Token] = count
	}
	state.Finalized = finalized
}

func (f *fakeChat) deleteMessage(messageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.polls, messageID)
}

func (f *fakeChat) fetchCount(messageID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[messageID]
}

func (f *fakeChat) titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Map(f.sent, func(item sentRecord, _ int) string {
		return item.Message.Title
	})
}

func (f *fakeChat) sentTo(channelID string) []sentRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Filter(f.sent, func(item sentRecord, _ int) bool {
		return item.ChannelID == channelID
	})
}

func (f *fakeChat) last() sentRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fakePrompter struct {
	mu       sync.Mutex
	decision gap.Decision
	wait     bool
	err      error
	calls    int
}

func (f *fakePrompter) AskCancelPoll(ctx context.Context, _, _ string, _ gap.GuardPrompt) (gap.Decision, error) {
	f.mu.Lock()
	f.calls++
	decision, wait, err := f.decision, f.wait, f.err
	f.mu.Unlock()

	if wait {
		<-ctx.Done()
		return gap.DecisionKeep, nil
	}
	return decision, err
}

type fakeCatalog struct {
	mu    sync.Mutex
	books map[string]BookInfo
	fail  map[string]bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{books: make(map[string]BookInfo), fail: make(map[string]bool)}
}

func (f *fakeCatalog) add(id, title string, mature bool, authors ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.books[id] = BookInfo{ID: id, Title: title, Authors: authors, IsMature: mature}
}

func (f *fakeCatalog) GetBook(_ context.Context, id string) (BookInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[id] {
		return BookInfo{}, errors.New("catalog unavailable")
	}
	if book, ok := f.books[id]; ok {
		return book, nil
	}
	return BookInfo{ID: id, Title: "Untitled " + id}, nil
}

type testEnv struct {
	chat    *fakeChat
	prompt  *fakePrompter
	catalog *fakeCatalog
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "bookclub.db")))
	require.NoError(t, err)
	conn, err := db.DB()
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, database.RunMigration(db))
	database.C = db

	env := &testEnv{
		chat:    newFakeChat(),
		prompt:  &fakePrompter{decision: gap.DecisionKeep},
		catalog: newFakeCatalog(),
	}
	gap.Chat = env.chat
	gap.Prompt = env.prompt
	Catalog = env.catalog
	Answers = lo.Must(NewAnswerResolver(64))
	Settings = DefaultSettings()
	return env
}

func seedQueue(t *testing.T, communityID string, bookIDs ...string) {
	t.Helper()
	for _, id := range bookIDs {
		_, err := EnqueueBook(context.Background(), models.QueuedBook{
			CommunityID:     communityID,
			BookID:          id,
			SuggestedByID:   "u-" + id,
			SuggestedByName: "Reader " + id,
		})
		require.NoError(t, err)
	}
}

// openSelectionPoll posts a poll through the fake chat and tracks it like CreateSelectionPoll would.
func (env *testEnv) openSelectionPoll(t *testing.T, communityID, channelID string, expiresAt time.Time, bookIDs ...string) models.SelectionPoll {
	t.Helper()
	sent, err := env.chat.SendMessage(context.Background(), channelID, gap.OutgoingMessage{
		Poll: &gap.OutgoingPoll{Answers: lo.Map(bookIDs, func(id string, _ int) gap.OutgoingAnswer {
			return gap.OutgoingAnswer{Text: id}
		})},
	})
	require.NoError(t, err)

	poll, err := NewSelectionPoll(context.Background(), models.SelectionPoll{
		Poll:        models.Poll{MessageID: sent.ID, ChannelID: channelID, ExpiresAt: expiresAt},
		CommunityID: communityID,
		BookOptions: bookIDs,
	})
	require.NoError(t, err)
	return poll
}

func (env *testEnv) openRatingPoll(t *testing.T, communityID, channelID, bookID string) models.RatingPoll {
	t.Helper()
	completed := models.CompletedBook{
		CommunityID: communityID,
		BookID:      bookID,
		StartedAt:   time.Now().Add(-72 * time.Hour),
		CompletedAt: time.Now(),
	}
	require.NoError(t, database.C.Create(&completed).Error)

	poll, err := CreateRatingPoll(
		context.Background(),
		models.CommunityConfig{CommunityID: communityID},
		channelID,
		CompletionResult{CompletedID: completed.ID, BookID: bookID, StartedAt: completed.StartedAt, CompletedAt: completed.CompletedAt},
		LookupBook(context.Background(), bookID),
		TriggerManual,
	)
	require.NoError(t, err)
	return *poll
}

func reloadSelectionPoll(t *testing.T, messageID string) models.SelectionPoll {
	t.Helper()
	var poll models.SelectionPoll
	require.NoError(t, database.C.Where("message_id = ?", messageID).First(&poll).Error)
	return poll
}

func futureExpiry() time.Time {
	return time.Now().Add(24 * time.Hour)
}

func pastExpiry(ago time.Duration) time.Time {
	return time.Now().Add(-ago)
}

func newSelectionRecord(messageID, communityID string) models.SelectionPoll {
	return models.SelectionPoll{
		Poll:        models.Poll{MessageID: messageID, ChannelID: "ch1", ExpiresAt: futureExpiry()},
		CommunityID: communityID,
		BookOptions: []string{"a", "b"},
	}
}
