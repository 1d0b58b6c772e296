package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"nbp-rates/internal/domain"

	"github.com/redis/go-redis/v9"
)

func stubRedis(t *testing.T, pingErr error) *string {
	t.Helper()

	origNewClient := newRedisClient
	origPing := pingRedis
	t.Cleanup(func() {
		newRedisClient = origNewClient
		pingRedis = origPing
	})

	var capturedAddr string
	newRedisClient = func(opts *redis.Options) *redis.Client {
		capturedAddr = opts.Addr
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return pingErr
	}
	return &capturedAddr
}

func TestInitRedisWithCustomAddr(t *testing.T) {
	addr := stubRedis(t, nil)

	client, err := InitRedis(context.Background(), "redis:9999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()
	if *addr != "redis:9999" {
		t.Fatalf("expected custom addr, got %s", *addr)
	}
}

func TestInitRedisDefaults(t *testing.T) {
	addr := stubRedis(t, nil)

	client, err := InitRedis(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()
	if *addr != "localhost:6379" {
		t.Fatalf("expected default addr, got %s", *addr)
	}
}

func TestInitRedisParsesURL(t *testing.T) {
	addr := stubRedis(t, nil)

	client, err := InitRedis(context.Background(), "redis://cache.local:6380/2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()
	if *addr != "cache.local:6380" {
		t.Fatalf("expected parsed addr, got %s", *addr)
	}
}

func TestInitRedisPingFailure(t *testing.T) {
	stubRedis(t, errors.New("connection refused"))

	if _, err := InitRedis(context.Background(), "redis:9999"); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestPublishSynced(t *testing.T) {
	rdb := &recordingPublisher{}
	p := NewPublisher(rdb)

	event := domain.SyncEvent{
		RunID:        "run-1",
		Currency:     "EUR",
		Start:        time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Observations: 3,
	}
	if err := p.PublishSynced(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rdb.channel != SyncedChannel {
		t.Fatalf("expected channel %s, got %s", SyncedChannel, rdb.channel)
	}

	var got domain.SyncEvent
	if err := json.Unmarshal(rdb.message.([]byte), &got); err != nil {
		t.Fatalf("payload should be json: %v", err)
	}
	if got.RunID != "run-1" || got.Currency != "EUR" || got.Observations != 3 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestPublishSyncedError(t *testing.T) {
	p := NewPublisher(&recordingPublisher{err: errors.New("closed")})
	if err := p.PublishSynced(context.Background(), domain.SyncEvent{Currency: "EUR"}); err == nil {
		t.Fatal("expected publish error")
	}
}

type recordingPublisher struct {
	channel string
	message any
	err     error
}

func (r *recordingPublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	r.channel = channel
	r.message = message
	cmd := redis.NewIntCmd(ctx)
	if r.err != nil {
		cmd.SetErr(r.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}
