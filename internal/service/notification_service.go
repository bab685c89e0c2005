package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/asset-marketplace/internal/config"
	"github.com/spec-kit/asset-marketplace/internal/events"
)

// Publisher is the subset of the redis client used for fan-out.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// NotificationService fans committed marketplace events out to subscribers
// of the configured Redis channel. Unlisting and purchases additionally go
// to the webhook, when one is configured.
type NotificationService struct {
	publisher Publisher
	logger    *zap.Logger
	cfg       config.NotificationConfig
}

// NewNotificationService creates the service. A nil publisher disables
// channel publishing.
func NewNotificationService(publisher Publisher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

// Handle delivers one event.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventAssetUnlisted, events.EventAssetPurchased:
		n.logger.Info(string(event.Type),
			zap.Stringer("asset_id", event.AssetID),
			zap.String("actor", event.Actor.String()),
			zap.Any("payload", event.Payload))
		n.sendWebhookNotificationStub(ctx, event)
	default:
		n.logger.Debug(string(event.Type), zap.String("actor", event.Actor.String()), zap.Any("payload", event.Payload))
	}
	return n.publishToChannel(ctx, event)
}

func (n *NotificationService) publishToChannel(ctx context.Context, event events.Event) error {
	if n.publisher == nil || strings.TrimSpace(n.cfg.Channel) == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Type, err)
	}
	if err := n.publisher.Publish(ctx, n.cfg.Channel, body).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, n.cfg.Channel, err)
	}
	return nil
}

// TODO: replace with an HTTP POST once the receiving endpoint's payload
// contract is agreed.
func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Stringer("asset_id", event.AssetID),
		zap.String("event_type", string(event.Type)))
}
