package bus

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MehdiEmrani/wazo-chatd/internal/models"
	"github.com/MehdiEmrani/wazo-chatd/internal/repository"
)

// Consumer reconciles the local tables against provisioning and
// telephony events. It is the only writer besides the REST layer, and
// every handler is idempotent: the bus redelivers, and two identical
// events applied in a row must leave the same state as one.
//
// A handler failure is logged and the event dropped — the next state
// change or a full resync brings the row back in line. Retrying here
// would stall the stream behind one poisoned event.
type Consumer struct {
	client    *redis.Client
	tenants   repository.TenantRepository
	users     repository.UserRepository
	sessions  repository.SessionRepository
	lines     repository.LineRepository
	endpoints repository.EndpointRepository
	logger    *zap.Logger
}

func NewConsumer(
	client *redis.Client,
	tenants repository.TenantRepository,
	users repository.UserRepository,
	sessions repository.SessionRepository,
	lines repository.LineRepository,
	endpoints repository.EndpointRepository,
	logger *zap.Logger,
) *Consumer {
	return &Consumer{
		client:    client,
		tenants:   tenants,
		users:     users,
		sessions:  sessions,
		lines:     lines,
		endpoints: endpoints,
		logger:    logger,
	}
}

// Run subscribes and dispatches until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	sub := c.client.Subscribe(ctx,
		ChannelTenantCreated,
		ChannelTenantDeleted,
		ChannelUserCreated,
		ChannelUserDeleted,
		ChannelSessionCreated,
		ChannelSessionDeleted,
		ChannelRefreshTokenCreated,
		ChannelRefreshTokenDeleted,
		ChannelLineAssociated,
		ChannelLineDissociated,
		ChannelDeviceStateChanged,
	)
	defer sub.Close()

	c.logger.Info("bus consumer started")
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("bus consumer stopping")
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := c.dispatch(ctx, msg.Channel, []byte(msg.Payload)); err != nil {
				c.logger.Error("event handling failed",
					zap.String("channel", msg.Channel),
					zap.Error(err),
				)
			}
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, channel string, payload []byte) error {
	switch channel {
	case ChannelTenantCreated:
		return c.onTenantCreated(ctx, payload)
	case ChannelTenantDeleted:
		return c.onTenantDeleted(ctx, payload)
	case ChannelUserCreated:
		return c.onUserCreated(ctx, payload)
	case ChannelUserDeleted:
		return c.onUserDeleted(ctx, payload)
	case ChannelSessionCreated:
		return c.onSessionCreated(ctx, payload)
	case ChannelSessionDeleted:
		return c.onSessionDeleted(ctx, payload)
	case ChannelRefreshTokenCreated:
		return c.onRefreshTokenCreated(ctx, payload)
	case ChannelRefreshTokenDeleted:
		return c.onRefreshTokenDeleted(ctx, payload)
	case ChannelLineAssociated:
		return c.onLineAssociated(ctx, payload)
	case ChannelLineDissociated:
		return c.onLineDissociated(ctx, payload)
	case ChannelDeviceStateChanged:
		return c.onDeviceStateChanged(ctx, payload)
	}
	c.logger.Warn("event on unexpected channel", zap.String("channel", channel))
	return nil
}

func (c *Consumer) onTenantCreated(ctx context.Context, payload []byte) error {
	event, err := decode[TenantEvent](payload)
	if err != nil {
		return err
	}
	// Create is an upsert-or-ignore, so redelivery is a no-op.
	_, err = c.tenants.Create(ctx, &models.Tenant{UUID: event.UUID})
	return err
}

func (c *Consumer) onTenantDeleted(ctx context.Context, payload []byte) error {
	event, err := decode[TenantEvent](payload)
	if err != nil {
		return err
	}
	return c.tenants.Delete(ctx, event.UUID)
}

func (c *Consumer) onUserCreated(ctx context.Context, payload []byte) error {
	event, err := decode[UserEvent](payload)
	if err != nil {
		return err
	}

	if _, err := c.users.Get(ctx, repository.ScopeAll(), event.UUID); err == nil {
		return nil
	} else if repository.AsNotFound(err) == nil {
		return err
	}

	// The tenant row may not have been seen yet; events arrive out of
	// order across services.
	if _, err := c.tenants.Create(ctx, &models.Tenant{UUID: event.TenantUUID}); err != nil {
		return err
	}
	_, err = c.users.Create(ctx, &models.User{
		UUID:       event.UUID,
		TenantUUID: event.TenantUUID,
		State:      models.StateUnavailable,
	})
	return err
}

func (c *Consumer) onUserDeleted(ctx context.Context, payload []byte) error {
	event, err := decode[UserEvent](payload)
	if err != nil {
		return err
	}
	return c.users.Delete(ctx, event.UUID)
}

func (c *Consumer) onSessionCreated(ctx context.Context, payload []byte) error {
	event, err := decode[SessionEvent](payload)
	if err != nil {
		return err
	}

	user, err := c.users.Get(ctx, repository.ScopeAll(), event.UserUUID)
	if err != nil {
		if nf := repository.AsNotFound(err); nf != nil {
			c.logger.Warn("session for unknown user ignored",
				zap.String("user_uuid", event.UserUUID.String()),
			)
			return nil
		}
		return err
	}

	return c.users.AddSession(ctx, user, models.Session{
		UUID:     event.UUID,
		Mobile:   event.Mobile,
		UserUUID: event.UserUUID,
	})
}

func (c *Consumer) onSessionDeleted(ctx context.Context, payload []byte) error {
	event, err := decode[SessionEvent](payload)
	if err != nil {
		return err
	}

	// Locate the session instead of trusting the event's user_uuid:
	// a re-pointed session must be detached from its current owner.
	session, err := c.sessions.Find(ctx, event.UUID)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	user, err := c.users.Get(ctx, repository.ScopeAll(), session.UserUUID)
	if err != nil {
		if repository.AsNotFound(err) != nil {
			return nil
		}
		return err
	}
	return c.users.RemoveSession(ctx, user, *session)
}

func (c *Consumer) onRefreshTokenCreated(ctx context.Context, payload []byte) error {
	event, err := decode[RefreshTokenEvent](payload)
	if err != nil {
		return err
	}

	user, err := c.users.Get(ctx, repository.ScopeAll(), event.UserUUID)
	if err != nil {
		if repository.AsNotFound(err) != nil {
			c.logger.Warn("refresh token for unknown user ignored",
				zap.String("user_uuid", event.UserUUID.String()),
			)
			return nil
		}
		return err
	}

	return c.users.AddRefreshToken(ctx, user, models.RefreshToken{
		ClientID: event.ClientID,
		UserUUID: event.UserUUID,
		Mobile:   event.Mobile,
	})
}

func (c *Consumer) onRefreshTokenDeleted(ctx context.Context, payload []byte) error {
	event, err := decode[RefreshTokenEvent](payload)
	if err != nil {
		return err
	}

	user, err := c.users.Get(ctx, repository.ScopeAll(), event.UserUUID)
	if err != nil {
		if repository.AsNotFound(err) != nil {
			return nil
		}
		return err
	}
	return c.users.RemoveRefreshToken(ctx, user, models.RefreshToken{
		ClientID: event.ClientID,
		UserUUID: event.UserUUID,
	})
}

func (c *Consumer) onLineAssociated(ctx context.Context, payload []byte) error {
	event, err := decode[LineEvent](payload)
	if err != nil {
		return err
	}

	user, err := c.users.Get(ctx, repository.ScopeAll(), event.UserUUID)
	if err != nil {
		if repository.AsNotFound(err) != nil {
			c.logger.Warn("line for unknown user ignored",
				zap.Int("line_id", event.ID),
				zap.String("user_uuid", event.UserUUID.String()),
			)
			return nil
		}
		return err
	}

	return c.users.AddLine(ctx, user, models.Line{
		ID:           event.ID,
		EndpointName: event.EndpointName,
		Media:        models.LineMedia(event.Media),
	})
}

func (c *Consumer) onLineDissociated(ctx context.Context, payload []byte) error {
	event, err := decode[LineEvent](payload)
	if err != nil {
		return err
	}

	line, err := c.lines.Find(ctx, event.ID)
	if err != nil {
		return err
	}
	if line == nil || line.UserUUID == nil {
		return nil
	}

	user, err := c.users.Get(ctx, repository.ScopeAll(), *line.UserUUID)
	if err != nil {
		if repository.AsNotFound(err) != nil {
			return nil
		}
		return err
	}
	return c.users.RemoveLine(ctx, user, *line)
}

func (c *Consumer) onDeviceStateChanged(ctx context.Context, payload []byte) error {
	event, err := decode[DeviceStateEvent](payload)
	if err != nil {
		return err
	}
	state, err := event.EndpointState()
	if err != nil {
		return err
	}
	return c.endpoints.Upsert(ctx, &models.Endpoint{Name: event.Name, State: state})
}
