package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"youthsessions/internal/sessions/metrics"
	"youthsessions/internal/sessions/models"
	platformstrings "youthsessions/pkg/platform/strings"
)

const (
	redisOverlayKeyPrefix   = "sessions:overlay:"
	redisStructureKeyPrefix = "sessions:structure:"
)

// upsertScript writes the overlay in KEYS[1] and indexes it in the structure
// set KEYS[2], carrying a stored closure over when the new value has none.
var upsertScript = redis.NewScript(`
local incoming = cjson.decode(ARGV[1])
local current = redis.call('GET', KEYS[1])
if current then
	local stored = cjson.decode(current)
	local missing = incoming.closed_at == nil or incoming.closed_at == cjson.null
	if missing and stored.closed_at ~= nil and stored.closed_at ~= cjson.null then
		incoming.closed_at = stored.closed_at
		redis.call('SET', KEYS[1], cjson.encode(incoming))
		redis.call('SADD', KEYS[2], incoming.session_id)
		return 1
	end
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SADD', KEYS[2], incoming.session_id)
return 0
`)

// closeScript closes every overlay key in KEYS[2..n] that is not closed yet.
// KEYS[1] is the structure set, ARGV[1] the structure id, ARGV[2] the closure time,
// ARGV[3] the modification time, ARGV[4..] the session ids matching KEYS[2..].
var closeScript = redis.NewScript(`
local closed = 0
for i = 2, #KEYS do
	local sessionID = ARGV[i + 2]
	local current = redis.call('GET', KEYS[i])
	local overlay
	if current then
		overlay = cjson.decode(current)
	else
		overlay = {session_id = sessionID, structure_id = ARGV[1], visible = false, auto_registration = false}
		redis.call('SADD', KEYS[1], sessionID)
	end
	if overlay.closed_at == nil or overlay.closed_at == cjson.null then
		overlay.closed_at = ARGV[2]
		overlay.modified_at = ARGV[3]
		redis.call('SET', KEYS[i], cjson.encode(overlay))
		closed = closed + 1
	end
end
return closed
`)

// RedisStore keeps one JSON document per overlay plus a set of session ids per structure.
type RedisStore struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewRedis constructs a Redis-backed overlay store. metrics may be nil.
func NewRedis(client *redis.Client, m *metrics.Metrics) *RedisStore {
	return &RedisStore{client: client, metrics: m}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (models.OptionalOverlay, error) {
	defer s.observe(time.Now())
	data, err := s.client.Get(ctx, overlayKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.NoOverlay(), nil
		}
		return models.NoOverlay(), fmt.Errorf("find overlay: %w", err)
	}
	o, err := decodeOverlay(data)
	if err != nil {
		return models.NoOverlay(), err
	}
	return models.SomeOverlay(o), nil
}

func (s *RedisStore) Upsert(ctx context.Context, overlay models.Overlay) error {
	payload, err := json.Marshal(overlay)
	if err != nil {
		return fmt.Errorf("encode overlay: %w", err)
	}
	keys := []string{overlayKey(overlay.SessionID), structureKey(overlay.StructureID)}
	if err := upsertScript.Run(ctx, s.client, keys, payload).Err(); err != nil {
		return fmt.Errorf("save overlay: %w", err)
	}
	return nil
}

func (s *RedisStore) GetAllForStructure(ctx context.Context, structureID string) ([]models.Overlay, error) {
	ids, err := s.client.SMembers(ctx, structureKey(structureID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list overlays: %w", err)
	}
	found, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	var out []models.Overlay
	for _, o := range found {
		// The set is an index; a session moved to another structure may still be listed.
		if o.StructureID == structureID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (s *RedisStore) GetMany(ctx context.Context, sessionIDs []string) (map[string]models.Overlay, error) {
	defer s.observe(time.Now())
	found, err := s.load(ctx, platformstrings.DedupeAndTrim(sessionIDs))
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Overlay, len(found))
	for _, o := range found {
		out[o.SessionID] = o
	}
	return out, nil
}

func (s *RedisStore) CloseMany(ctx context.Context, structureID string, sessionIDs []string, closedAt, modifiedAt time.Time) (int, error) {
	ids := platformstrings.DedupeAndTrim(sessionIDs)
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, structureKey(structureID))
	args := make([]any, 0, len(ids)+3)
	args = append(args, structureID, closedAt.UTC().Format(time.RFC3339Nano), modifiedAt.UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		keys = append(keys, overlayKey(id))
		args = append(args, id)
	}
	n, err := closeScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return 0, fmt.Errorf("close overlays: %w", err)
	}
	return n, nil
}

func (s *RedisStore) load(ctx context.Context, ids []string) ([]models.Overlay, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = overlayKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("find overlays: %w", err)
	}
	out := make([]models.Overlay, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		o, err := decodeOverlay([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func decodeOverlay(data []byte) (models.Overlay, error) {
	var o models.Overlay
	if err := json.Unmarshal(data, &o); err != nil {
		return models.Overlay{}, fmt.Errorf("decode overlay: %w", err)
	}
	return o, nil
}

func (s *RedisStore) observe(start time.Time) {
	s.metrics.ObserveOverlayLookup("redis", time.Since(start).Seconds())
}

func overlayKey(sessionID string) string {
	return redisOverlayKeyPrefix + sessionID
}

func structureKey(structureID string) string {
	return redisStructureKeyPrefix + structureID + ":overlays"
}
