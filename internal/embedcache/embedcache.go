// Package embedcache persists embeddings in a bbolt file so repeated runs over
// the same documents skip the remote embedding call.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
)

var bucketEmbeddings = []byte("embeddings")

type entry struct {
	Model  string    `json:"model"`
	Vector []float32 `json:"v"`
}

// Store is a bbolt-backed embedding cache.
type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache %q: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEmbeddings); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketEmbeddings, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Key identifies an embedding by model and input text.
func Key(model, text string) []byte {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return []byte(hex.EncodeToString(sum[:]))
}

// Get returns the cached vector, or ok=false on a miss.
func (s *Store) Get(model, text string) (ai.Embedding, bool, error) {
	var vec ai.Embedding
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEmbeddings).Get(Key(model, text))
		if data == nil {
			return nil
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("decode cached embedding: %w", err)
		}
		vec = e.Vector
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return vec, vec != nil, nil
}

func (s *Store) Put(model, text string, vec ai.Embedding) error {
	data, err := json.Marshal(entry{Model: model, Vector: vec})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).Put(Key(model, text), data)
	})
}

// Len reports the number of cached embeddings.
func (s *Store) Len() (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEmbeddings).Stats().KeyN
		return nil
	})
	return n, err
}

// Embedder serves embeddings from the store and falls through to next on a
// miss. Cache failures are logged and never fail the call.
type Embedder struct {
	next   ai.Embedder
	store  *Store
	logger *zap.Logger
}

func NewEmbedder(next ai.Embedder, store *Store, logger *zap.Logger) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{next: next, store: store, logger: logger}
}

func (e *Embedder) Embed(ctx context.Context, text string) (ai.Embedding, error) {
	model := e.next.Model()

	vec, ok, err := e.store.Get(model, text)
	if err != nil {
		e.logger.Warn("embedding cache read failed", zap.Error(err))
	}
	if ok {
		e.logger.Debug("embedding cache hit", zap.Int("dimensions", len(vec)))
		return vec, nil
	}

	vec, err = e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.store.Put(model, text, vec); err != nil {
		e.logger.Warn("embedding cache write failed", zap.Error(err))
	}
	return vec, nil
}

func (e *Embedder) Model() string {
	return e.next.Model()
}
