// Command course-proxy is a read-through caching proxy for the public blog
// and course catalog endpoints of the course platform backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/course-client/internal/config"
	"github.com/Sternrassler/course-client/pkg/blog"
	"github.com/Sternrassler/course-client/pkg/cache"
	"github.com/Sternrassler/course-client/pkg/client"
	"github.com/Sternrassler/course-client/pkg/courses"
	"github.com/Sternrassler/course-client/pkg/logging"
	"github.com/Sternrassler/course-client/pkg/pagination"
	"github.com/Sternrassler/course-client/pkg/resource"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "course-proxy",
		Output:  os.Stderr,
	})
	logger := logging.NewLogger(logging.ComponentProxy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Proxy failed")
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	store, redisClient, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info().Str("cache_backend", store.Name()).Msg("Cache store ready")

	srv, err := newServer(cfg, cache.New(store), redisClient, logger)
	if err != nil {
		return err
	}

	if cfg.WarmUp {
		if err := srv.warmUp(ctx); err != nil {
			logger.Warn().Err(err).Msg("Cache warm-up incomplete")
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", httpServer.Addr).
			Str("backend", cfg.BackendURL).
			Str("user_agent", cfg.UserAgent).
			Msg("Starting course proxy")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newStore builds the configured cache store. The redis client is nil for
// in-process stores.
func newStore(ctx context.Context, cfg config.Config) (cache.Store, redis.UniversalClient, func(), error) {
	switch cfg.CacheBackend {
	case config.BackendRedis:
		opts, err := cfg.RedisOptions()
		if err != nil {
			return nil, nil, nil, err
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}

		codec, err := cache.CodecByName(cfg.CacheCodec)
		if err != nil {
			redisClient.Close()
			return nil, nil, nil, err
		}
		return cache.NewRedisStore(redisClient, codec), redisClient, func() { redisClient.Close() }, nil

	case config.BackendRistretto:
		store, err := cache.NewRistrettoStore(cache.DefaultRistrettoConfig())
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, store.Close, nil

	default:
		return cache.NewMemoryStore(cfg.CacheMaxEntries), nil, func() {}, nil
	}
}

// server holds the proxy dependencies.
type server struct {
	blog    *blog.Service
	courses *courses.Service
	redis   redis.UniversalClient
	logger  zerolog.Logger
}

func newServer(cfg config.Config, c *cache.Cache, redisClient redis.UniversalClient, logger zerolog.Logger) (*server, error) {
	clientCfg := client.DefaultConfig(cfg.BackendURL)
	clientCfg.UserAgent = cfg.UserAgent
	clientCfg.Timeout = cfg.Timeout
	clientCfg.RateLimit = cfg.RateLimit
	clientCfg.Burst = cfg.Burst

	api, err := client.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	blogSvc, err := blog.NewService(api, c, resource.DefaultConfig("blog"))
	if err != nil {
		return nil, err
	}
	courseSvc, err := courses.NewService(api, c, resource.DefaultConfig("courses"))
	if err != nil {
		return nil, err
	}

	return &server{
		blog:    blogSvc,
		courses: courseSvc,
		redis:   redisClient,
		logger:  logger,
	}, nil
}

// warmUp prefetches taxonomy and the first list pages in parallel.
func (s *server) warmUp(ctx context.Context) error {
	start := time.Now()
	first := pagination.DefaultPageSize

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	g.Go(func() error {
		_, err := s.blog.Categories(ctx)
		return wrapWarm("blog categories", err)
	})
	g.Go(func() error {
		_, err := s.blog.Tags(ctx)
		return wrapWarm("blog tags", err)
	})
	g.Go(func() error {
		_, err := s.blog.ListPosts(ctx, blog.ListOptions{Page: 1, PageSize: first})
		return wrapWarm("blog posts", err)
	})
	g.Go(func() error {
		_, err := s.courses.Categories(ctx)
		return wrapWarm("course categories", err)
	})
	g.Go(func() error {
		_, err := s.courses.ListCourses(ctx, courses.ListOptions{Page: 1, PageSize: first})
		return wrapWarm("courses", err)
	})

	err := g.Wait()
	s.logger.Info().Dur("duration", time.Since(start)).Bool("complete", err == nil).Msg("Cache warm-up finished")
	return err
}

func wrapWarm(what string, err error) error {
	if err != nil {
		return fmt.Errorf("warm %s: %w", what, err)
	}
	return nil
}
