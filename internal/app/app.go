// Package app builds the rlm services from the data directory and hands
// them to the driving adapters.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/rlm/internal/adapters/driven/ai"
	"github.com/custodia-labs/rlm/internal/adapters/driven/codec/gzip"
	configfile "github.com/custodia-labs/rlm/internal/adapters/driven/config/file"
	"github.com/custodia-labs/rlm/internal/adapters/driven/embedding/none"
	"github.com/custodia-labs/rlm/internal/adapters/driven/fuzzy"
	"github.com/custodia-labs/rlm/internal/adapters/driven/project"
	"github.com/custodia-labs/rlm/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/rlm/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/rlm/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/rlm/internal/adapters/driven/tokens"
	"github.com/custodia-labs/rlm/internal/adapters/driven/watch"
	"github.com/custodia-labs/rlm/internal/adapters/driving/cli"
	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/core/services"
	"github.com/custodia-labs/rlm/internal/logger"
)

// Subdirectories of the data directory.
const (
	ChunksDir  = "chunks"
	ArchiveDir = "archive"
)

// stores holds the driven ports one invocation runs on.
type stores struct {
	chunks    driven.ChunkStore
	archive   driven.ArchiveIndex
	purgeLog  driven.PurgeLog
	content   driven.ContentStore
	blobs     driven.BlobStore
	insights  driven.InsightStore
	sessions  driven.SessionStore
	scheduler driven.SchedulerStore
	config    driven.ConfigStore

	// vectorDir holds the vector index and embedding cache.
	vectorDir string

	// watchDirs are watched for changes made by other processes.
	watchDirs []string
}

// closers releases resources in reverse order of acquisition.
type closers struct {
	mu  sync.Mutex
	fns []func() error
}

func (c *closers) add(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
}

func (c *closers) close() error {
	c.mu.Lock()
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()

	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Bootstrap builds every service. The data directory is $RLM_HOME or
// ~/.rlm; with opts.Ephemeral nothing outlives the process.
func Bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, func() error, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	cl := &closers{}

	var st *stores
	dir, err := configfile.DefaultDir()
	if err == nil {
		if opts.Ephemeral {
			st, err = openMemoryStores(dir, cl)
		} else {
			st, err = openFileStores(dir, cl)
		}
	}
	if err != nil {
		return nil, nil, errors.Join(err, cl.close())
	}

	services, err := build(ctx, st, cl)
	if err != nil {
		return nil, nil, errors.Join(err, cl.close())
	}
	logger.Elapsed("bootstrap", start)
	return services, cl.close, nil
}

// openFileStores opens the on-disk layout under dir.
func openFileStores(dir string, cl *closers) (*stores, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	logger.Debug("data directory: %s", dir)

	db, err := sqlite.NewStore(dir)
	if err != nil {
		return nil, err
	}
	cl.add(db.Close)

	chunksDir := filepath.Join(dir, ChunksDir)
	content, err := file.NewContentStore(chunksDir)
	if err != nil {
		return nil, err
	}
	archiveDir := filepath.Join(dir, ArchiveDir)
	blobs, err := file.NewBlobStore(archiveDir, file.ContentSuffix+gzip.Default().Extension())
	if err != nil {
		return nil, err
	}
	config, err := configfile.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	return &stores{
		chunks:    db.ChunkStore(),
		archive:   db.ArchiveIndex(),
		purgeLog:  db.PurgeLog(),
		content:   content,
		blobs:     blobs,
		insights:  db.InsightStore(),
		sessions:  db.SessionStore(),
		scheduler: db.SchedulerStore(),
		config:    config,
		vectorDir: dir,
		watchDirs: []string{chunksDir, archiveDir},
	}, nil
}

// openMemoryStores keeps everything in memory. Settings start from
// home's config.toml when there is one, but changes are not written back.
// The vector index still needs a file, so it lives in a temporary
// directory removed on close.
func openMemoryStores(home string, cl *closers) (*stores, error) {
	seed, err := configfile.ReadFile(filepath.Join(home, configfile.FileName))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	tmp, err := os.MkdirTemp("", "rlm-ephemeral-")
	if err != nil {
		return nil, fmt.Errorf("create temporary directory: %w", err)
	}
	cl.add(func() error { return os.RemoveAll(tmp) })

	archive := memory.NewArchiveIndex()
	return &stores{
		chunks:    memory.NewChunkStore(archive),
		archive:   archive,
		purgeLog:  memory.NewPurgeLog(),
		content:   memory.NewContentStore(),
		blobs:     memory.NewBlobStore(),
		insights:  memory.NewInsightStore(),
		sessions:  memory.NewSessionStore(),
		scheduler: memory.NewSchedulerStore(),
		config:    memory.NewConfigStoreFrom(seed),
		vectorDir: tmp,
	}, nil
}

func build(ctx context.Context, st *stores, cl *closers) (*cli.Services, error) {
	settingsSvc := services.NewSettingsService(st.config, ai.NewConfigValidator())
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	embed := ai.Initialize(ctx, settings.Embedding, st.vectorDir)
	cl.add(func() error {
		embed.Close()
		return nil
	})
	if embed.VectorIndex == nil {
		return nil, fmt.Errorf("%w: no vector index", domain.ErrVectorIndexUnavailable)
	}

	corpus := services.NewCorpusIndex(st.chunks, st.content, st.insights)
	cl.add(corpus.Close)

	retention := services.NewRetentionService(
		st.chunks, st.archive, st.purgeLog, st.content, st.blobs, gzip.Default(), settings.Retention.Policy,
	)
	retention.SetCorpus(corpus)
	retention.SetVectorIndex(embed.VectorIndex)

	sessions := services.NewSessionService(st.sessions, st.config)

	workDir, err := os.Getwd()
	if err != nil {
		workDir = ""
	}
	chunks := services.NewChunkService(services.ChunkServiceDeps{
		Chunks:    st.chunks,
		Archive:   st.archive,
		Content:   st.content,
		Retention: retention,
		Corpus:    corpus,
		Sessions:  sessions,
		Embedder:  embed.EmbeddingService,
		Vectors:   embed.VectorIndex,
		Tokens:    tokens.NewCounter(),
		Projects:  project.NewDetector(workDir),
		Fuzzy:     fuzzy.Matcher{},
		WorkDir:   workDir,
	})

	search := services.NewSearchService(corpus, st.archive, embed.VectorIndex, embed.EmbeddingService, settings.Search)
	insights := services.NewInsightService(st.insights, corpus)

	out := &cli.Services{
		Search:          search,
		Chunks:          chunks,
		Insights:        insights,
		Retention:       retention,
		Sessions:        sessions,
		Settings:        settingsSvc,
		SchedulerConfig: domain.SchedulerConfigFrom(*settings),
	}

	var scheduler *services.Scheduler
	if none.IsNone(embed.EmbeddingService) {
		scheduler = services.NewScheduler(out.SchedulerConfig, st.scheduler, retention, nil)
	} else {
		backfill := services.NewBackfillService(
			st.chunks, st.content, embed.EmbeddingService, embed.VectorIndex, services.DefaultBackfillConfig(),
		)
		out.Backfill = backfill
		scheduler = services.NewScheduler(out.SchedulerConfig, st.scheduler, retention, backfill)
	}
	out.Scheduler = scheduler

	if err := corpus.Warm(ctx); err != nil {
		// search rebuilds lazily, so a cold start is only slower
		logger.Warn("warming index: %v", err)
	}
	if len(st.watchDirs) > 0 {
		startWatch(ctx, corpus, watch.New(watch.DefaultDebounce, st.watchDirs...), cl)
	}
	return out, nil
}

// startWatch invalidates the corpus when another process writes to the
// chunk or archive directories. Close stops the watcher.
func startWatch(ctx context.Context, corpus *services.CorpusIndex, watcher driven.ChangeWatcher, cl *closers) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := corpus.Watch(ctx, watcher); err != nil {
			logger.Debug("index watcher stopped: %v", err)
		}
	}()
	cl.add(func() error {
		cancel()
		<-done
		return nil
	})
}
