package relay

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/alisoliman/realtime-api/internal/shared"
	"github.com/redis/go-redis/v9"
)

const metricsTTL = 7 * 24 * time.Hour

// Grant records one issued ephemeral token. The token itself is never
// stored, only issuance metadata.
type Grant struct {
	ID       string    `json:"id"`
	Voice    string    `json:"voice"`
	ClientIP string    `json:"client_ip"`
	IssuedAt time.Time `json:"issued_at"`
}

func (g *Grant) RedisKey() string {
	return "grant:" + g.ID
}

func metricsRedisKey(date string, hour int) string {
	return "relay:metrics:" + date + ":" + strconv.Itoa(hour)
}

// Stats aggregates issuance counters for one hour bucket.
type Stats struct {
	Date           string           `json:"date"`
	Hour           int              `json:"hour"`
	Issued         int64            `json:"issued"`
	UpstreamErrors int64            `json:"upstream_errors"`
	ByVoice        map[string]int64 `json:"by_voice,omitempty"`
}

type Store struct {
	redis    *redis.Client
	grantTTL time.Duration
}

func NewStore(redisClient *redis.Client, grantTTL time.Duration) *Store {
	if grantTTL <= 0 {
		grantTTL = time.Minute
	}
	return &Store{redis: redisClient, grantTTL: grantTTL}
}

// RecordIssued stores a grant for the token's lifetime and bumps the hourly
// counters.
func (s *Store) RecordIssued(ctx context.Context, voice, clientIP string) (*Grant, error) {
	grant := &Grant{
		ID:       shared.NewID("grant_"),
		Voice:    voice,
		ClientIP: clientIP,
		IssuedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(grant)
	if err != nil {
		return nil, err
	}

	now := grant.IssuedAt
	key := metricsRedisKey(now.Format("2006-01-02"), now.Hour())

	pipe := s.redis.Pipeline()
	pipe.Set(ctx, grant.RedisKey(), data, s.grantTTL)
	pipe.HIncrBy(ctx, key, "issued", 1)
	pipe.HIncrBy(ctx, key, "voice:"+voice, 1)
	pipe.Expire(ctx, key, metricsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return grant, nil
}

func (s *Store) RecordUpstreamError(ctx context.Context) error {
	now := time.Now().UTC()
	key := metricsRedisKey(now.Format("2006-01-02"), now.Hour())

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, "upstream_errors", 1)
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) GetGrant(ctx context.Context, id string) (*Grant, error) {
	data, err := s.redis.Get(ctx, "grant:"+id).Bytes()
	if err == redis.Nil {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var grant Grant
	if err := json.Unmarshal(data, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// GetStats walks the hourly buckets for the last N hours, skipping empty ones.
func (s *Store) GetStats(ctx context.Context, hours int) ([]*Stats, error) {
	now := time.Now().UTC()
	var stats []*Stats

	for i := 0; i < hours; i++ {
		t := now.Add(-time.Duration(i) * time.Hour)
		key := metricsRedisKey(t.Format("2006-01-02"), t.Hour())

		data, err := s.redis.HGetAll(ctx, key).Result()
		if err != nil || len(data) == 0 {
			continue
		}

		st := &Stats{
			Date: t.Format("2006-01-02"),
			Hour: t.Hour(),
		}
		for field, value := range data {
			n, _ := strconv.ParseInt(value, 10, 64)
			switch {
			case field == "issued":
				st.Issued = n
			case field == "upstream_errors":
				st.UpstreamErrors = n
			case len(field) > 6 && field[:6] == "voice:":
				if st.ByVoice == nil {
					st.ByVoice = make(map[string]int64)
				}
				st.ByVoice[field[6:]] = n
			}
		}
		stats = append(stats, st)
	}
	return stats, nil
}
