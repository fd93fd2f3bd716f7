package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
)

// RedisLocator is a per-guard fix mailbox. Devices submit fixes over HTTP;
// the workflow's CurrentPosition polls the mailbox until a sufficiently
// fresh fix appears or the wait times out.
type RedisLocator struct {
	client       redis.UniversalClient
	freshness    time.Duration
	pollInterval time.Duration
}

// mailboxEntry is the stored representation. Denied marks a device-side
// permission refusal, which is a distinct terminal outcome, not a timeout.
type mailboxEntry struct {
	Fix    *Fix `json:"fix,omitempty"`
	Denied bool `json:"denied,omitempty"`
}

const defaultFreshness = 30 * time.Second

func NewRedisLocator(client redis.UniversalClient) *RedisLocator {
	return &RedisLocator{
		client:       client,
		freshness:    defaultFreshness,
		pollInterval: 250 * time.Millisecond,
	}
}

func fixKey(guardID id.GuardID) string {
	return "watchpost:fix:" + guardID.String()
}

// SubmitFix records a device-reported fix. The entry expires with the
// freshness window so a stale fix can never satisfy a later wait.
func (l *RedisLocator) SubmitFix(ctx context.Context, guardID id.GuardID, fix Fix) error {
	if fix.ReportedAt.IsZero() {
		fix.ReportedAt = time.Now()
	}
	payload, err := json.Marshal(mailboxEntry{Fix: &fix})
	if err != nil {
		return fmt.Errorf("marshal fix: %w", err)
	}
	if err := l.client.Set(ctx, fixKey(guardID), payload, l.freshness).Err(); err != nil {
		return dErrors.Wrap(dErrors.CodeGeolocationUnavailable, "storing device fix", err)
	}
	return nil
}

// SubmitDenial records that the device refused to share its position.
func (l *RedisLocator) SubmitDenial(ctx context.Context, guardID id.GuardID) error {
	payload, err := json.Marshal(mailboxEntry{Denied: true})
	if err != nil {
		return fmt.Errorf("marshal denial: %w", err)
	}
	if err := l.client.Set(ctx, fixKey(guardID), payload, l.freshness).Err(); err != nil {
		return dErrors.Wrap(dErrors.CodeGeolocationUnavailable, "storing denial", err)
	}
	return nil
}

// CurrentPosition waits for a fresh fix, polling the mailbox. The deadline is
// the shorter of timeout and ctx's own deadline.
func (l *RedisLocator) CurrentPosition(ctx context.Context, guardID id.GuardID, timeout time.Duration) (*Fix, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	started := time.Now()
	for {
		entry, err := l.read(ctx, guardID)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			if entry.Denied {
				return nil, dErrors.New(dErrors.CodeGeolocationDenied, "device denied location access")
			}
			// A fix counts while it is inside the freshness window relative
			// to the start of the wait. A device that reported just before
			// the guard tapped check-in should not be asked again.
			if entry.Fix != nil && !entry.Fix.ReportedAt.Before(started.Add(-l.freshness)) {
				return entry.Fix, nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, dErrors.Wrap(dErrors.CodeGeolocationTimeout,
				"no location fix within the wait window", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocator) read(ctx context.Context, guardID id.GuardID) (*mailboxEntry, error) {
	raw, err := l.client.Get(ctx, fixKey(guardID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, dErrors.Wrap(dErrors.CodeGeolocationTimeout,
				"no location fix within the wait window", ctx.Err())
		}
		return nil, dErrors.Wrap(dErrors.CodeGeolocationUnavailable, "reading fix mailbox", err)
	}
	var entry mailboxEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeGeolocationUnavailable, "decoding fix mailbox", err)
	}
	return &entry, nil
}
