// Package cache decorates an embedding service with a persistent
// content-hash cache stored in a bbolt file.
//
// Keys are sha256(text) inside one bucket per model, so switching models
// never returns vectors of the wrong dimension. Cache write failures are
// logged and otherwise ignored.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/logger"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// FileName is the cache file name inside the data directory.
const FileName = "embeddings.bolt"

// openTimeout bounds how long Open waits for another process's file lock.
const openTimeout = 5 * time.Second

// EmbeddingService wraps another embedding service with a bbolt cache.
type EmbeddingService struct {
	next   driven.EmbeddingService
	db     *bbolt.DB
	bucket []byte
}

// New opens (or creates) the cache at path in front of next.
func New(next driven.EmbeddingService, path string) (*EmbeddingService, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}

	bucket := []byte("model:" + next.ModelName())
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}

	return &EmbeddingService{next: next, db: db, bucket: bucket}, nil
}

// Embed returns the cached vector for text or computes and stores it.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch serves cached vectors and sends only the misses to the wrapped
// service, in one batch.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([][]byte, len(texts))
	for i, t := range texts {
		keys[i] = contentKey(t)
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for i, k := range keys {
			if data := b.Get(k); data != nil {
				out[i] = decodeVector(data)
			}
		}
		return nil
	})
	if err != nil {
		logger.Warn("embedding cache read failed: %v", err)
	}

	var missIdx []int
	var missTexts []string
	for i, v := range out {
		if v == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missTexts) == 0 {
		logger.Debug("embedding cache: %d hits", len(texts))
		return out, nil
	}

	vecs, err := s.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d inputs", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for j, i := range missIdx {
			if err := b.Put(keys[i], encodeVector(vecs[j])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Warn("embedding cache write failed: %v", err)
	}

	logger.Debug("embedding cache: %d hits, %d misses", len(texts)-len(missTexts), len(missTexts))
	return out, nil
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.next.Dimensions()
}

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string {
	return s.next.ModelName()
}

// Ping checks the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Len returns the number of cached vectors for the current model.
func (s *EmbeddingService) Len() int {
	n := 0
	_ = s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return n
}

// Close closes the cache file and the wrapped service.
func (s *EmbeddingService) Close() error {
	dbErr := s.db.Close()
	if err := s.next.Close(); err != nil {
		return err
	}
	return dbErr
}

func contentKey(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return sum[:]
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v
}
