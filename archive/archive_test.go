package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"wingman/events"
	"wingman/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPutter struct {
	mock.Mock
}

func (m *mockPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func resolvedEvent() events.MarketResolvedEvent {
	marketID := uuid.New()
	return events.MarketResolvedEvent{
		MarketID:    marketID,
		Title:       "Will Ana and Ben's date be a success?",
		ResolverID:  uuid.New(),
		Outcome:     true,
		TotalPool:   decimal.NewFromInt(150),
		WinningPool: decimal.NewFromInt(100),
		Remainder:   decimal.Zero,
		Payouts: []models.Payout{
			{BetID: uuid.New(), BettorID: uuid.New(), Amount: decimal.NewFromInt(60)},
			{BetID: uuid.New(), BettorID: uuid.New(), Amount: decimal.NewFromInt(90)},
		},
		ResolvedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSettlementArchive_Store(t *testing.T) {
	ctx := context.Background()
	event := resolvedEvent()

	putter := new(mockPutter)
	var uploaded *s3.PutObjectInput
	putter.On("PutObject", ctx, mock.AnythingOfType("*s3.PutObjectInput")).
		Run(func(args mock.Arguments) { uploaded = args.Get(1).(*s3.PutObjectInput) }).
		Return(&s3.PutObjectOutput{}, nil)

	archive := NewSettlementArchive(putter, "receipts")
	require.NoError(t, archive.Store(ctx, ReceiptFromEvent(event, time.Now())))

	require.NotNil(t, uploaded)
	assert.Equal(t, "receipts", aws.ToString(uploaded.Bucket))
	assert.Equal(t, "settlements/"+event.MarketID.String()+".json", aws.ToString(uploaded.Key))
	assert.Equal(t, "application/json", aws.ToString(uploaded.ContentType))

	body, err := io.ReadAll(uploaded.Body)
	require.NoError(t, err)

	var receipt Receipt
	require.NoError(t, json.Unmarshal(body, &receipt))
	assert.Equal(t, event.MarketID, receipt.MarketID)
	assert.True(t, receipt.TotalPool.Equal(decimal.NewFromInt(150)))
	assert.Len(t, receipt.Payouts, 2)
}

func TestSettlementArchive_UploadFailure(t *testing.T) {
	ctx := context.Background()
	putter := new(mockPutter)
	putter.On("PutObject", ctx, mock.Anything).Return(nil, errors.New("access denied"))

	archive := NewSettlementArchive(putter, "receipts")
	err := archive.Store(ctx, ReceiptFromEvent(resolvedEvent(), time.Now()))
	assert.ErrorContains(t, err, "access denied")

	// the subscriber only logs
	archive.handleMarketResolved(ctx, resolvedEvent())
}
