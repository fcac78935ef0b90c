package gap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

const (
	guardCancelButton = "bookclub_guard_cancel"
	guardKeepButton   = "bookclub_guard_keep"

	embedColor = 0xB07D62
)

const gatewayIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentGuildMessagePolls

var session *discordgo.Session

type discordClient struct {
	s *discordgo.Session
}

func InitializeToDiscord(handler EventHandler) error {
	var err error
	session, err = discordgo.New("Bot " + viper.GetString("discord.token"))
	if err != nil {
		return fmt.Errorf("unable to create discord session: %v", err)
	}
	session.Identify.Intents = gatewayIntents

	session.AddHandler(func(_ *discordgo.Session, evt *discordgo.MessagePollVoteAdd) {
		handler(context.Background(), VoteAdded{
			ChannelID:   evt.ChannelID,
			MessageID:   evt.MessageID,
			UserID:      evt.UserID,
			AnswerToken: strconv.Itoa(evt.AnswerID),
		})
	})
	session.AddHandler(func(_ *discordgo.Session, evt *discordgo.MessagePollVoteRemove) {
		handler(context.Background(), VoteRemoved{
			ChannelID:   evt.ChannelID,
			MessageID:   evt.MessageID,
			UserID:      evt.UserID,
			AnswerToken: strconv.Itoa(evt.AnswerID),
		})
	})
	session.AddHandler(func(_ *discordgo.Session, evt *discordgo.MessageUpdate) {
		if evt.Message == nil {
			return
		}
		handler(context.Background(), MessageUpdated{
			ChannelID: evt.ChannelID,
			MessageID: evt.ID,
		})
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("unable to open discord gateway: %v", err)
	}

	client := &discordClient{s: session}
	Chat = client
	Prompt = client

	log.Info().Msg("Connected to discord gateway.")
	return nil
}

func CloseDiscord() {
	if session == nil {
		return
	}
	if err := session.Close(); err != nil {
		log.Warn().Err(err).Msg("An error occurred when closing discord session...")
	}
}

func isStatus(err error, status int) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == status
}

// withPollCounts asks the message endpoint to include the current answer counts.
func withPollCounts() discordgo.RequestOption {
	return func(cfg *discordgo.RequestConfig) {
		query := cfg.Request.URL.Query()
		query.Set("with_poll_counts", "true")
		cfg.Request.URL.RawQuery = query.Encode()
	}
}

func buildMessageSend(msg OutgoingMessage) *discordgo.MessageSend {
	send := &discordgo.MessageSend{Content: msg.Content}
	if len(msg.Title) > 0 {
		send.Content = ""
		send.Embeds = []*discordgo.MessageEmbed{{
			Title:       msg.Title,
			Description: msg.Content,
			Color:       lo.Ternary(msg.Color != 0, msg.Color, embedColor),
		}}
	}
	if msg.Poll != nil {
		send.Poll = &discordgo.Poll{
			Question: discordgo.PollMedia{Text: msg.Poll.Question},
			Answers: lo.Map(msg.Poll.Answers, func(item OutgoingAnswer, _ int) discordgo.PollAnswer {
				media := &discordgo.PollMedia{Text: item.Text}
				if len(item.Emoji) > 0 {
					media.Emoji = &discordgo.ComponentEmoji{Name: item.Emoji}
				}
				return discordgo.PollAnswer{Media: media}
			}),
			Duration: int(math.Ceil(msg.Poll.Duration.Hours())),
		}
	}
	return send
}

func (v *discordClient) SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) (*SentMessage, error) {
	send := buildMessageSend(msg)
	sent, err := v.s.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	out := &SentMessage{ID: sent.ID, ChannelID: sent.ChannelID}
	if sent.Poll != nil {
		out.PollAnswers = convertAnswers(sent.Poll.Answers)
	}
	return out, nil
}

func convertAnswers(in []discordgo.PollAnswer) []PollAnswer {
	return lo.Map(in, func(item discordgo.PollAnswer, _ int) PollAnswer {
		answer := PollAnswer{Token: strconv.Itoa(item.AnswerID)}
		if item.Media != nil {
			answer.Text = item.Media.Text
		}
		return answer
	})
}

func (v *discordClient) FetchPoll(ctx context.Context, channelID, messageID string) (*PollState, error) {
	msg, err := v.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx), withPollCounts())
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if msg.Poll == nil {
		return nil, ErrPollMissing
	}
	return convertPollState(msg.Poll), nil
}

func convertPollState(poll *discordgo.Poll) *PollState {
	state := &PollState{
		Answers:   convertAnswers(poll.Answers),
		Counts:    make(map[string]int),
		ExpiresAt: poll.Expiry,
	}
	if poll.Results != nil {
		state.Finalized = poll.Results.Finalized
		for _, count := range poll.Results.AnswerCounts {
			state.Counts[strconv.Itoa(count.ID)] = count.Count
		}
	}
	return state
}

func (v *discordClient) PinMessage(ctx context.Context, channelID, messageID string) error {
	return v.s.ChannelMessagePin(channelID, messageID, discordgo.WithContext(ctx))
}

func (v *discordClient) ChannelAllowsMature(ctx context.Context, channelID string) (bool, error) {
	channel, err := v.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		if isStatus(err, http.StatusForbidden) {
			return false, nil
		}
		return false, err
	}

	switch channel.Type {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews, discordgo.ChannelTypeGuildForum:
		return channel.NSFW, nil
	case discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread, discordgo.ChannelTypeGuildNewsThread:
		if len(channel.ParentID) == 0 {
			return false, nil
		}
		return v.ChannelAllowsMature(ctx, channel.ParentID)
	default:
		return false, nil
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func (v *discordClient) AskCancelPoll(ctx context.Context, channelID, userID string, prompt GuardPrompt) (Decision, error) {
	link := fmt.Sprintf("https://discord.com/channels/%s/%s/%s", prompt.CommunityID, prompt.PollChannelID, prompt.PollMessageID)
	sent, err := v.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Active Selection Poll",
			Description: fmt.Sprintf("A book selection poll is already running. [Jump to poll](%s)\n\nCancel it and continue, or keep it running?", link),
			Color:       embedColor,
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Cancel poll & proceed", Style: discordgo.DangerButton, CustomID: guardCancelButton},
				discordgo.Button{Label: "Keep poll", Style: discordgo.SecondaryButton, CustomID: guardKeepButton},
			}},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return DecisionKeep, fmt.Errorf("unable to send guard prompt: %v", err)
	}

	answer := make(chan Decision, 1)
	remove := v.s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionMessageComponent || i.Message == nil || i.Message.ID != sent.ID {
			return
		}
		if interactionUserID(i) != userID {
			return
		}

		var decision Decision
		var content string
		switch i.MessageComponentData().CustomID {
		case guardCancelButton:
			decision, content = DecisionCancelAndProceed, "The current selection poll was cancelled. Proceeding..."
		case guardKeepButton:
			decision, content = DecisionKeep, "Keeping the current selection poll."
		default:
			return
		}

		if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Content:    content,
				Embeds:     []*discordgo.MessageEmbed{},
				Components: []discordgo.MessageComponent{},
			},
		}); err != nil {
			log.Warn().Err(err).Msg("An error occurred when responding guard prompt...")
		}

		select {
		case answer <- decision:
		default:
		}
	})
	defer remove()

	select {
	case decision := <-answer:
		return decision, nil
	case <-ctx.Done():
		content := "No response in time. Keeping the current selection poll."
		components := []discordgo.MessageComponent{}
		embeds := []*discordgo.MessageEmbed{}
		if _, err := v.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:         sent.ID,
			Channel:    sent.ChannelID,
			Content:    &content,
			Components: &components,
			Embeds:     &embeds,
		}); err != nil {
			log.Warn().Err(err).Msg("An error occurred when expiring guard prompt...")
		}
		return DecisionKeep, nil
	}
}
