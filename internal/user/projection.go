package user

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/HilmiKilavuz/EcoScan/internal/logger"
)

const (
	snapshotKeyPrefix     = "user:snapshot:"
	snapshotChannelPrefix = "user:updates:"
)

type statsStore interface {
	RefreshStats(ctx context.Context, userID int, totalPoints int64) (*User, error)
}

// Projection keeps the denormalized user view current and fans snapshots out
// to subscribers over redis pub/sub. Consumers treat each snapshot as
// authoritative at receipt time; the latest value always wins.
type Projection struct {
	store statsStore
	redis *redis.Client
}

func NewProjection(store statsStore, redisAddr string) *Projection {
	return &Projection{
		store: store,
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
	}
}

// Refresh overwrites the cached stats from the ledger-derived total and
// publishes the resulting snapshot.
func (p *Projection) Refresh(ctx context.Context, userID int, totalPoints int64) error {
	u, err := p.store.RefreshStats(ctx, userID, totalPoints)
	if err != nil {
		return err
	}

	return p.publish(ctx, snapshotOf(u))
}

func (p *Projection) publish(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s%d", snapshotKeyPrefix, snap.UserID)
	if err := p.redis.Set(ctx, key, data, 0).Err(); err != nil {
		logger.Errorf("Failed to store snapshot for user %d: %v", snap.UserID, err)
		return err
	}

	channel := fmt.Sprintf("%s%d", snapshotChannelPrefix, snap.UserID)
	if err := p.redis.Publish(ctx, channel, data).Err(); err != nil {
		logger.Errorf("Failed to publish snapshot for user %d: %v", snap.UserID, err)
		return err
	}

	return nil
}

// Subscribe returns a single-consumer channel of snapshots and a handle that
// cancels the subscription. The latest stored snapshot is delivered first,
// so a reconnecting consumer catches up immediately.
func (p *Projection) Subscribe(ctx context.Context, userID int) (<-chan Snapshot, func(), error) {
	channel := fmt.Sprintf("%s%d", snapshotChannelPrefix, userID)
	pubsub := p.redis.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan Snapshot, 8)

	go func() {
		defer close(out)

		key := fmt.Sprintf("%s%d", snapshotKeyPrefix, userID)
		if data, err := p.redis.Get(ctx, key).Bytes(); err == nil {
			if snap, err := decodeSnapshot(data); err == nil {
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}

		msgs := pubsub.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				snap, err := decodeSnapshot([]byte(msg.Payload))
				if err != nil {
					logger.Errorf("Bad snapshot payload for user %d: %v", userID, err)
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		pubsub.Close()
	}
	return out, cancel, nil
}

func (p *Projection) Close() error {
	return p.redis.Close()
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
