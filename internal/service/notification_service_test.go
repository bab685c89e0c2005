package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/asset-marketplace/internal/config"
	"github.com/spec-kit/asset-marketplace/internal/domain"
	"github.com/spec-kit/asset-marketplace/internal/events"
)

type fakePublisher struct {
	channels []string
	messages [][]byte
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if p.err != nil {
		cmd.SetErr(p.err)
		return cmd
	}
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, message.([]byte))
	cmd.SetVal(1)
	return cmd
}

func TestNotificationService_PublishesEventJSON(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNotificationService(pub, nil, config.NotificationConfig{Channel: "marketplace.events", WebhookURL: "http://hook"})

	assetID := domain.Keccak256ID([]byte("a"))
	err := n.Handle(context.Background(), events.Event{
		ID:      "evt-1",
		Type:    events.EventAssetUnlisted,
		AssetID: &assetID,
		Actor:   "0xa11ce",
		Payload: events.AssetUnlistedPayload{UserID: domain.Keccak256ID([]byte("u"))},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"marketplace.events"}, pub.channels)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.messages[0], &decoded))
	require.Equal(t, "asset_unlisted", decoded["type"])
	require.Equal(t, assetID.String(), decoded["asset_id"])
}

func TestNotificationService_Disabled(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, NewNotificationService(nil, nil, config.NotificationConfig{Channel: "c"}).
		Handle(context.Background(), events.Event{Type: events.EventAssetMinted}))
	require.NoError(t, NewNotificationService(pub, nil, config.NotificationConfig{}).
		Handle(context.Background(), events.Event{Type: events.EventAssetMinted}))
	require.Empty(t, pub.channels)
}

func TestNotificationService_PublishFailure(t *testing.T) {
	down := errors.New("redis down")
	n := NewNotificationService(&fakePublisher{err: down}, nil, config.NotificationConfig{Channel: "c"})
	err := n.Handle(context.Background(), events.Event{Type: events.EventAssetPurchased})
	require.ErrorIs(t, err, down)
}
