package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"trivia-rank-service/internal/ranking"
)

const rankChannel = "trivia:ranks"

// RankRelay fans recomputation results out to every instance over Redis
// pub/sub, so websocket clients connected anywhere see the update.
type RankRelay struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRankRelay(client *redis.Client, logger *slog.Logger) *RankRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &RankRelay{client: client, logger: logger}
}

// Publish is shaped to be registered with ranking.Engine.OnRecompute.
func (r *RankRelay) Publish(res ranking.Result) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := r.client.Publish(context.Background(), rankChannel, raw).Err(); err != nil {
		r.logger.Warn("rank relay publish failed", slog.Any("err", err))
	}
}

// Run delivers every relayed result to fn until ctx is done. ready, when
// non-nil, is closed once the subscription is active.
func (r *RankRelay) Run(ctx context.Context, fn func(ranking.Result), ready chan<- struct{}) error {
	sub := r.client.Subscribe(ctx, rankChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var res ranking.Result
			if err := json.Unmarshal([]byte(msg.Payload), &res); err != nil {
				r.logger.Warn("rank relay dropped malformed message", slog.Any("err", err))
				continue
			}
			fn(res)
		}
	}
}
