// Package journal records per-record progress so an interrupted load can resume.
package journal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// State of a dataset index in the journal
type State string

const (
	// StateUploaded means the object is stored but no row has been confirmed
	StateUploaded State = "uploaded"
	// StateDone means both the object and its row exist
	StateDone State = "done"
)

// Entry is the journal record for one dataset index
type Entry struct {
	State State
	ID    string
}

// Journal is a Redis hash keyed by dataset index
type Journal struct {
	client *redis.Client
	key    string
}

// Key returns the hash key used for a dataset split. A local dataset path,
// when set, identifies the source instead of the repository.
func Key(repo, split, datasetPath string) string {
	if datasetPath != "" {
		if abs, err := filepath.Abs(datasetPath); err == nil {
			datasetPath = abs
		}
		return "ocrloader:path:" + filepath.Clean(datasetPath)
	}
	return "ocrloader:" + repo + ":" + split
}

// Open connects to redisURL (redis://...) and verifies the connection
func Open(ctx context.Context, redisURL, key string) (*Journal, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctxPing).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return New(client, key), nil
}

// New wraps an existing client
func New(client *redis.Client, key string) *Journal {
	return &Journal{client: client, key: key}
}

func field(index int) string {
	return strconv.Itoa(index)
}

func encode(state State, id string) string {
	return string(state) + ":" + id
}

func decode(value string) (Entry, error) {
	state, id, ok := strings.Cut(value, ":")
	if !ok || id == "" {
		return Entry{}, fmt.Errorf("malformed journal value %q", value)
	}
	switch State(state) {
	case StateUploaded, StateDone:
	default:
		return Entry{}, fmt.Errorf("unknown journal state %q", state)
	}
	return Entry{State: State(state), ID: id}, nil
}

// Get returns the entry for a dataset index, if any
func (j *Journal) Get(ctx context.Context, index int) (Entry, bool, error) {
	value, err := j.client.HGet(ctx, j.key, field(index)).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read journal: %w", err)
	}

	entry, err := decode(value)
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// MarkUploaded records that the object for index has been stored under id
func (j *Journal) MarkUploaded(ctx context.Context, index int, id string) error {
	return j.set(ctx, index, StateUploaded, id)
}

// MarkDone records that the row for index has been inserted
func (j *Journal) MarkDone(ctx context.Context, index int, id string) error {
	return j.set(ctx, index, StateDone, id)
}

func (j *Journal) set(ctx context.Context, index int, state State, id string) error {
	if err := j.client.HSet(ctx, j.key, field(index), encode(state, id)).Err(); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	return nil
}

// Counts returns how many indices are in each state
func (j *Journal) Counts(ctx context.Context) (map[State]int, error) {
	values, err := j.client.HGetAll(ctx, j.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	counts := map[State]int{}
	for _, value := range values {
		entry, err := decode(value)
		if err != nil {
			continue
		}
		counts[entry.State]++
	}
	return counts, nil
}

// Reset forgets all progress for the split
func (j *Journal) Reset(ctx context.Context) error {
	return j.client.Del(ctx, j.key).Err()
}

func (j *Journal) Close() error {
	return j.client.Close()
}
