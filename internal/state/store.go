package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const opTimeout = 5 * time.Second

// Record is the single-row blob model backing the local store. One key,
// one opaque JSON payload.
type Record struct {
	Key       string `gorm:"primaryKey"`
	Blob      []byte
	UpdatedAt time.Time
}

// LocalStore persists the state blob in a local database. The path is
// either a SQLite file or a PostgreSQL connection string.
type LocalStore struct {
	db  *gorm.DB
	key string
}

func NewLocal(dbPath, key string) (*LocalStore, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("State database connected (PostgreSQL)")
	} else {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("State database initialized (SQLite)")
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return &LocalStore{db: db, key: key}, nil
}

func (s *LocalStore) Load() ([]byte, error) {
	var record Record
	err := s.db.First(&record, "key = ?", s.key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record.Blob, nil
}

func (s *LocalStore) Save(blob []byte) error {
	record := Record{Key: s.key, Blob: blob, UpdatedAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error
}

// RedisStore persists the state blob under a single Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedis(url, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	log.Info().Str("key", key).Msg("Redis state store connected")
	return &RedisStore{client: client, key: key}, nil
}

func (s *RedisStore) Load() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	blob, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return blob, nil
}

func (s *RedisStore) Save(blob []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.client.Set(ctx, s.key, blob, 0).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// backend is the minimal persistence contract both stores satisfy.
type backend interface {
	Load() ([]byte, error)
	Save(blob []byte) error
}

// Store layers an optional remote backend over a local one. Reads prefer
// the remote copy; writes go to both. When the remote degrades, the
// OnDegraded handler fires exactly once, and re-arms after the remote
// recovers, so a flapping Redis does not produce an alert storm.
type Store struct {
	remote backend
	local  backend

	// OnDegraded is invoked with the first error after a healthy period.
	OnDegraded func(err error)

	mu       sync.Mutex
	degraded bool
}

func NewStore(remote *RedisStore, local *LocalStore) *Store {
	s := &Store{local: local}
	if remote != nil {
		s.remote = remote
	}
	return s
}

func (s *Store) Load() ([]byte, error) {
	if s.remote != nil {
		blob, err := s.remote.Load()
		if err == nil {
			s.markHealthy()
			return blob, nil
		}
		s.markDegraded(err)
		log.Warn().Err(err).Msg("Remote state load failed, using local copy")
	}
	return s.local.Load()
}

func (s *Store) Save(blob []byte) error {
	localErr := s.local.Save(blob)
	if localErr != nil {
		log.Error().Err(localErr).Msg("Local state save failed")
	}

	if s.remote != nil {
		if err := s.remote.Save(blob); err != nil {
			s.markDegraded(err)
			log.Warn().Err(err).Msg("Remote state save failed")
		} else {
			s.markHealthy()
			return nil
		}
	}
	return localErr
}

func (s *Store) markDegraded(err error) {
	s.mu.Lock()
	fire := !s.degraded
	s.degraded = true
	handler := s.OnDegraded
	s.mu.Unlock()

	if fire && handler != nil {
		handler(err)
	}
}

func (s *Store) markHealthy() {
	s.mu.Lock()
	if s.degraded {
		log.Info().Msg("Remote state store recovered")
	}
	s.degraded = false
	s.mu.Unlock()
}
