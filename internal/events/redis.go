package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"nbp-rates/internal/domain"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// SyncedChannel carries a domain.SyncEvent as JSON for every archived currency.
const SyncedChannel = "rates_synced"

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

// InitRedis connects to addr, which is either host:port or a redis:// URL.
func InitRedis(ctx context.Context, addr string) (*redis.Client, error) {
	const op = "events.InitRedis"

	if addr == "" {
		addr = "localhost:6379"
	}

	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			return nil, errors.Wrap(err, op)
		}
		opts = parsed
	}

	client := newRedisClient(opts)
	if err := pingRedis(ctx, client); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, op)
	}
	slog.Info("connected to redis", "addr", opts.Addr)
	return client, nil
}

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Publisher announces archive syncs over Redis pub/sub.
type Publisher struct {
	rdb     publisher
	channel string
}

func NewPublisher(rdb publisher) *Publisher {
	return &Publisher{rdb: rdb, channel: SyncedChannel}
}

func (p *Publisher) PublishSynced(ctx context.Context, event domain.SyncEvent) error {
	const op = "events.PublishSynced"

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, op)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return errors.Wrap(err, op)
	}
	slog.Debug("published sync event", "channel", p.channel, "currency", event.Currency, "run_id", event.RunID)
	return nil
}
