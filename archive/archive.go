// Package archive stores settlement receipts in an S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wingman/events"
	"wingman/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Config holds bucket connection settings. Endpoint is set for MinIO and other
// S3-compatible stores and switches on path-style addressing.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// ObjectPutter is the subset of the S3 client used for uploads
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Receipt is the archived record of a settled market
type Receipt struct {
	MarketID    uuid.UUID       `json:"marketId"`
	Title       string          `json:"title"`
	Outcome     bool            `json:"outcome"`
	ResolverID  uuid.UUID       `json:"resolverId"`
	Evidence    string          `json:"evidence,omitempty"`
	TotalPool   decimal.Decimal `json:"totalPool"`
	WinningPool decimal.Decimal `json:"winningPool"`
	Remainder   decimal.Decimal `json:"remainder"`
	Payouts     []models.Payout `json:"payouts"`
	ResolvedAt  time.Time       `json:"resolvedAt"`
	ArchivedAt  time.Time       `json:"archivedAt"`
}

// SettlementArchive writes one JSON receipt per resolved market
type SettlementArchive struct {
	client ObjectPutter
	bucket string
}

// New builds the S3 client from static credentials
func New(ctx context.Context, cfg Config) (*SettlementArchive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewSettlementArchive(client, cfg.Bucket), nil
}

func NewSettlementArchive(client ObjectPutter, bucket string) *SettlementArchive {
	return &SettlementArchive{client: client, bucket: bucket}
}

// ReceiptKey is the object key for a market's receipt
func ReceiptKey(marketID uuid.UUID) string {
	return fmt.Sprintf("settlements/%s.json", marketID)
}

// Store uploads the receipt, overwriting any earlier copy
func (a *SettlementArchive) Store(ctx context.Context, receipt *Receipt) error {
	body, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement receipt: %w", err)
	}

	key := ReceiptKey(receipt.MarketID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Register archives every market resolution
func (a *SettlementArchive) Register(bus *events.Bus) {
	bus.Subscribe(events.EventTypeMarketResolved, a.handleMarketResolved)
}

func (a *SettlementArchive) handleMarketResolved(ctx context.Context, event events.Event) {
	resolved, ok := event.(events.MarketResolvedEvent)
	if !ok {
		return
	}

	receipt := ReceiptFromEvent(resolved, time.Now().UTC())
	if err := a.Store(ctx, receipt); err != nil {
		log.WithError(err).WithField("marketID", resolved.MarketID).Error("Failed to archive settlement")
		return
	}
	log.WithField("key", ReceiptKey(resolved.MarketID)).Debug("Archived settlement receipt")
}

func ReceiptFromEvent(e events.MarketResolvedEvent, archivedAt time.Time) *Receipt {
	return &Receipt{
		MarketID:    e.MarketID,
		Title:       e.Title,
		Outcome:     e.Outcome,
		ResolverID:  e.ResolverID,
		Evidence:    e.Evidence,
		TotalPool:   e.TotalPool,
		WinningPool: e.WinningPool,
		Remainder:   e.Remainder,
		Payouts:     e.Payouts,
		ResolvedAt:  e.ResolvedAt,
		ArchivedAt:  archivedAt,
	}
}
