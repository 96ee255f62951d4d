package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"wingman/events"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(webhookID, token, wait, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Message), args.Error(1)
}

func TestParseWebhookURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantID    string
		wantToken string
		wantErr   bool
	}{
		{
			name:      "discord url",
			url:       "https://discord.com/api/webhooks/1234/abcd-token",
			wantID:    "1234",
			wantToken: "abcd-token",
		},
		{
			name:      "versioned api path",
			url:       "https://discord.com/api/v10/webhooks/99/tok",
			wantID:    "99",
			wantToken: "tok",
		},
		{
			name:    "missing token",
			url:     "https://discord.com/api/webhooks/1234",
			wantErr: true,
		},
		{
			name:    "not a webhook",
			url:     "https://example.com/hooks",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, token, err := ParseWebhookURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestAnnouncer_MarketResolved(t *testing.T) {
	executor := new(mockExecutor)
	announcer := &Announcer{session: executor, webhookID: "1", token: "t"}

	var params *discordgo.WebhookParams
	executor.On("WebhookExecute", "1", "t", false, mock.Anything).
		Run(func(args mock.Arguments) { params = args.Get(3).(*discordgo.WebhookParams) }).
		Return(&discordgo.Message{}, nil)

	announcer.handle(context.Background(), events.MarketResolvedEvent{
		MarketID:   uuid.New(),
		Title:      "Will Ana and Ben's date be a success?",
		Outcome:    false,
		TotalPool:  decimal.NewFromInt(4),
		Remainder:  decimal.RequireFromString("0.000001"),
		Evidence:   "no second date",
		ResolvedAt: time.Now(),
	})

	require.NotNil(t, params)
	require.Len(t, params.Embeds, 1)
	embed := params.Embeds[0]
	assert.Equal(t, ColorDanger, embed.Color)
	assert.Contains(t, embed.Description, "NO")
	assert.Len(t, embed.Fields, 4)
	executor.AssertExpectations(t)
}

func TestAnnouncer_IgnoresOtherEventsAndSwallowsErrors(t *testing.T) {
	executor := new(mockExecutor)
	announcer := &Announcer{session: executor, webhookID: "1", token: "t"}

	announcer.handle(context.Background(), events.BetPlacedEvent{})
	executor.AssertNotCalled(t, "WebhookExecute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	executor.On("WebhookExecute", "1", "t", false, mock.Anything).Return(nil, errors.New("429"))
	announcer.handle(context.Background(), events.MarketCreatedEvent{Title: "x", ResolvesAt: time.Now()})
	executor.AssertExpectations(t)
}
