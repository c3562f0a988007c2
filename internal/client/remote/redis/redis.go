// Package redis implements remote.DocumentStore on Redis.
//
// Each document is a hash whose fields are the flattened document paths and
// whose values are JSON. A set per scope indexes the document ids, and every
// write publishes its delta on the scope's channel in the same MULTI/EXEC.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/mindshift/internal/client/remote"
	"github.com/dmitrijs2005/mindshift/internal/common"
	"github.com/dmitrijs2005/mindshift/internal/logging"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mindshift"

func docKey(scope, docID string) string { return keyPrefix + ":doc:" + scope + ":" + docID }
func indexKey(scope string) string      { return keyPrefix + ":docs:" + scope }
func channelKey(scope string) string    { return keyPrefix + ":changes:" + scope }

type message struct {
	DocID  string        `json:"docId"`
	Fields remote.Fields `json:"fields"`
}

type Store struct {
	rdb    redis.UniversalClient
	logger logging.Logger
}

var _ remote.DocumentStore = (*Store)(nil)

func New(rdb redis.UniversalClient, logger logging.Logger) *Store {
	return &Store{rdb: rdb, logger: logger.With("component", "remote.redis")}
}

// Open connects to a single Redis server and checks it is reachable.
func Open(ctx context.Context, addr, password string, db int, logger logging.Logger) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, logger), nil
}

func (s *Store) Write(ctx context.Context, scope, docID string, fields remote.Fields) error {
	values, err := remote.MarshalValues(fields)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(message{DocID: docID, Fields: fields})
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(values) > 0 {
			pipe.HSet(ctx, docKey(scope, docID), hashArgs(values)...)
		}
		pipe.SAdd(ctx, indexKey(scope), docID)
		pipe.Publish(ctx, channelKey(scope), msg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write document %s/%s: %w", scope, docID, err)
	}
	return nil
}

func (s *Store) Read(ctx context.Context, scope, docID string) (remote.Fields, error) {
	values, err := s.rdb.HGetAll(ctx, docKey(scope, docID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s/%s: %w", scope, docID, err)
	}
	if len(values) == 0 {
		isMember, err := s.rdb.SIsMember(ctx, indexKey(scope), docID).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read document %s/%s: %w", scope, docID, err)
		}
		if !isMember {
			return nil, remote.ErrNotFound
		}
		return remote.Fields{}, nil
	}
	return remote.UnmarshalValues(values)
}

func (s *Store) list(ctx context.Context, scope string) ([]remote.Change, error) {
	ids, err := s.rdb.SMembers(ctx, indexKey(scope)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	sort.Strings(ids)

	out := make([]remote.Change, 0, len(ids))
	for _, id := range ids {
		f, err := s.Read(ctx, scope, id)
		if errors.Is(err, remote.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, remote.Change{DocID: id, Fields: f})
	}
	return out, nil
}

// Watch subscribes before taking the snapshot so nothing published after it
// is missed.
func (s *Store) Watch(ctx context.Context, scope string) (<-chan remote.Change, error) {
	ps := s.rdb.Subscribe(ctx, channelKey(scope))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	snapshot, err := s.list(ctx, scope)
	if err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan remote.Change)
	go s.watch(ctx, ps, scope, snapshot, out)
	return out, nil
}

func (s *Store) watch(ctx context.Context, ps *redis.PubSub, scope string, snapshot []remote.Change, out chan<- remote.Change) {
	defer close(out)
	defer ps.Close()

	for _, c := range snapshot {
		select {
		case out <- c:
		case <-ctx.Done():
			return
		}
	}

	for {
		m, err := ps.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn(ctx, "subscription lost",
					"scope", scope, "error", fmt.Errorf("%w: %w", common.ErrSubscriptionDropped, err))
			}
			return
		}

		c, err := decodeMessage(m.Payload)
		if err != nil {
			s.logger.Debug(ctx, "ignoring message", "payload", m.Payload, "error", err)
			continue
		}

		select {
		case out <- c:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func decodeMessage(payload string) (remote.Change, error) {
	var m message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return remote.Change{}, err
	}
	if m.DocID == "" {
		return remote.Change{}, errors.New("change without document id")
	}
	if m.Fields == nil {
		m.Fields = remote.Fields{}
	}
	return remote.Change{DocID: m.DocID, Fields: m.Fields}, nil
}

// hashArgs flattens values into HSET's field/value argument list in a
// stable order.
func hashArgs(values map[string]string) []any {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, k, values[k])
	}
	return args
}
