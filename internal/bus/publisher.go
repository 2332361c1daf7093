package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MehdiEmrani/wazo-chatd/internal/models"
)

// Publisher emits domain events over Redis pub/sub after a mutation has
// been committed. Room events are addressed per participant, so each
// member's subscription sees the rooms and messages that concern them.
type Publisher struct {
	client *redis.Client
	logger *zap.Logger
}

func NewPublisher(client *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

func (p *Publisher) PresenceUpdated(ctx context.Context, user *models.User) error {
	event := PresenceUpdatedEvent{
		UUID:       user.UUID,
		TenantUUID: user.TenantUUID,
		State:      user.State,
		Status:     user.Status,
	}
	return p.publish(ctx, presenceUpdatedChannel(user.UUID), event)
}

func (p *Publisher) RoomCreated(ctx context.Context, room *models.Room) error {
	event := RoomCreatedEvent{
		UUID:       room.UUID,
		TenantUUID: room.TenantUUID,
		Users:      room.Users,
	}
	for _, user := range room.Users {
		if err := p.publish(ctx, roomCreatedChannel(user.UUID), event); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) MessageCreated(ctx context.Context, room *models.Room, message *models.RoomMessage) error {
	event := MessageCreatedEvent{
		RoomUUID:   message.RoomUUID,
		UserUUID:   message.UserUUID,
		TenantUUID: message.TenantUUID,
		WazoUUID:   message.WazoUUID,
		Content:    message.Content,
		CreatedAt:  message.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, user := range room.Users {
		if err := p.publish(ctx, messageCreatedChannel(user.UUID, room.UUID), event); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, channel string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	p.logger.Debug("event published", zap.String("channel", channel))
	return nil
}
