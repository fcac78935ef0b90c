package api

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/database"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/gap"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

type stubChat struct {
	mu     sync.Mutex
	nextID int
	polls  map[string]*gap.PollState
}

func (s *stubChat) SendMessage(_ context.Context, channelID string, msg gap.OutgoingMessage) (*gap.SentMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	out := &gap.SentMessage{ID: fmt.Sprintf("m%d", s.nextID), ChannelID: channelID}
	if msg.Poll != nil {
		out.PollAnswers = lo.Map(msg.Poll.Answers, func(item gap.OutgoingAnswer, idx int) gap.PollAnswer {
			return gap.PollAnswer{Token: fmt.Sprintf("%d", idx+1), Text: item.Text}
		})
		s.polls[out.ID] = &gap.PollState{Answers: out.PollAnswers, Counts: map[string]int{}}
	}
	return out, nil
}

func (s *stubChat) FetchPoll(_ context.Context, _, messageID string) (*gap.PollState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.polls[messageID]; ok {
		return state, nil
	}
	return nil, gap.ErrMessageNotFound
}

func (s *stubChat) PinMessage(context.Context, string, string) error { return nil }

func (s *stubChat) ChannelAllowsMature(context.Context, string) (bool, error) { return false, nil }

type keepPrompter struct{}

func (keepPrompter) AskCancelPoll(context.Context, string, string, gap.GuardPrompt) (gap.Decision, error) {
	return gap.DecisionKeep, nil
}

func setupTestApp(t *testing.T) (*fiber.App, *stubChat) {
	t.Helper()

	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")))
	require.NoError(t, err)
	conn, err := db.DB()
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, database.RunMigration(db))
	database.C = db

	chat := &stubChat{polls: map[string]*gap.PollState{}}
	gap.Chat = chat
	gap.Prompt = keepPrompter{}
	services.Catalog = nil
	services.Answers = lo.Must(services.NewAnswerResolver(16))
	services.Settings = services.DefaultSettings()

	app := fiber.New()
	MapAPIs(app, "/api")
	return app, chat
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	_ = jsoniter.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestGetUnknownPoll(t *testing.T) {
	app, _ := setupTestApp(t)

	status, _ := doJSON(t, app, fiber.MethodGet, "/api/polls/nope", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSelectionPollLifecycle(t *testing.T) {
	app, chat := setupTestApp(t)

	for _, id := range []string{"a", "b", "c"} {
		status, _ := doJSON(t, app, fiber.MethodPost, "/api/communities/c1/queue", fmt.Sprintf(`{"book_id": %q, "suggested_by_id": "u1"}`, id))
		require.Equal(t, fiber.StatusOK, status)
	}

	status, poll := doJSON(t, app, fiber.MethodPost, "/api/communities/c1/selection-polls", `{"channel_id": "ch1", "user_id": "u1", "size": 3}`)
	require.Equal(t, fiber.StatusOK, status)
	messageId := poll["message_id"].(string)

	// The guard keeps the running poll.
	status, _ = doJSON(t, app, fiber.MethodPost, "/api/communities/c1/selection-polls", `{"channel_id": "ch1", "user_id": "u1"}`)
	assert.Equal(t, fiber.StatusConflict, status)

	chat.mu.Lock()
	chat.polls[messageId].Counts["3"] = 2
	chat.mu.Unlock()

	status, record := doJSON(t, app, fiber.MethodPost, "/api/polls/"+messageId+"/resolve", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "selection", record["kind"])
	selection := record["selection"].(map[string]any)
	assert.Equal(t, true, selection["processed"])
	assert.Equal(t, "c", selection["selected_book_id"])

	status, community := doJSON(t, app, fiber.MethodGet, "/api/communities/c1/", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "c", community["current"].(map[string]any)["book_id"])
	assert.Nil(t, community["active_poll"])
}

func TestSelectionPollValidation(t *testing.T) {
	app, _ := setupTestApp(t)

	status, _ := doJSON(t, app, fiber.MethodPost, "/api/communities/c1/selection-polls", `{"channel_id": "ch1", "user_id": "u1", "size": 20}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, fiber.MethodPost, "/api/communities/c1/selection-polls", `{"user_id": "u1"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, fiber.MethodPost, "/api/communities/c1/selection-polls", `{"channel_id": "ch1", "user_id": "u1", "deadline": "2001-01-01"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, fiber.MethodPost, "/api/communities/c1/selection-polls", `{"channel_id": "ch1", "user_id": "u1"}`)
	assert.Equal(t, fiber.StatusBadRequest, status, "an empty queue cannot hold a poll")
}

func TestFinishWithoutCurrentBook(t *testing.T) {
	app, _ := setupTestApp(t)

	status, _ := doJSON(t, app, fiber.MethodPost, "/api/communities/c1/finish", `{"channel_id": "ch1"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSelectNextAndFinish(t *testing.T) {
	app, _ := setupTestApp(t)

	status, _ := doJSON(t, app, fiber.MethodPost, "/api/communities/c1/queue", `{"book_id": "a", "suggested_by_id": "u1", "suggested_by_name": "Ana"}`)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = doJSON(t, app, fiber.MethodPost, "/api/communities/c1/queue", `{"book_id": "a", "suggested_by_id": "u2"}`)
	assert.Equal(t, fiber.StatusConflict, status)

	status, result := doJSON(t, app, fiber.MethodPost, "/api/communities/c1/select-next", `{"channel_id": "ch1", "user_id": "u1"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "a", result["book_id"])
	assert.Equal(t, "Ana", result["suggested_by_name"])

	status, outcome := doJSON(t, app, fiber.MethodPost, "/api/communities/c1/finish", `{"channel_id": "ch1"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.NotNil(t, outcome["poll"])
	assert.Equal(t, "Book (a)", outcome["book"].(map[string]any)["title"])
}

func TestOperatorToken(t *testing.T) {
	app, _ := setupTestApp(t)
	viper.Set("security.operator_token", "tok")
	t.Cleanup(func() { viper.Set("security.operator_token", "") })

	status, _ := doJSON(t, app, fiber.MethodGet, "/api/polls/x", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	req := httptest.NewRequest(fiber.MethodGet, "/api/polls/x", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer tok")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetCommunityKeepsExpiredPollResolvable(t *testing.T) {
	app, chat := setupTestApp(t)

	for _, id := range []string{"a", "b"} {
		status, _ := doJSON(t, app, fiber.MethodPost, "/api/communities/c1/queue", fmt.Sprintf(`{"book_id": %q, "suggested_by_id": "u1"}`, id))
		require.Equal(t, fiber.StatusOK, status)
	}
	status, poll := doJSON(t, app, fiber.MethodPost, "/api/communities/c1/selection-polls", `{"channel_id": "ch1", "user_id": "u1", "size": 2}`)
	require.Equal(t, fiber.StatusOK, status)
	messageId := poll["message_id"].(string)

	require.NoError(t, database.C.Model(&models.SelectionPoll{}).
		Where("message_id = ?", messageId).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)
	chat.mu.Lock()
	chat.polls[messageId].Counts["2"] = 3
	chat.mu.Unlock()

	status, community := doJSON(t, app, fiber.MethodGet, "/api/communities/c1/", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Nil(t, community["active_poll"])

	record, err := services.GetPollByMessage(context.Background(), messageId)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.False(t, record.Selection.Processed)

	chat.mu.Lock()
	chat.polls[messageId].Finalized = true
	chat.mu.Unlock()
	require.NoError(t, services.CheckPollForCompletion(context.Background(), "ch1", messageId))

	current, err := services.GetCurrentBook(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "b", current.BookID)
}
