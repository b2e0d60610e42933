package main

import (
	"context"
	"log/slog"

	"uniqiita/internal/config"
	"uniqiita/internal/credentials"
	"uniqiita/internal/moderation"
	"uniqiita/internal/platform/cache"
	"uniqiita/internal/platform/database"
	"uniqiita/internal/platform/migrate"
	"uniqiita/internal/tags"
	"uniqiita/internal/users"
)

type storeSet struct {
	Users      users.Repository
	Tags       tags.Repository
	Moderation moderation.Repository

	closers []func()
}

// Close releases connections in reverse order of acquisition.
func (s *storeSet) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storeSet, error) {
	set := &storeSet{}

	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory repository")
		userRepo := users.NewInMemoryRepository(seedLocalUsers())
		set.Users = userRepo
		set.Tags = tags.NewInMemoryRepository(seedLocalTags())
		set.Moderation = moderation.NewInMemoryRepository(func(ctx context.Context) ([]int64, error) {
			return userRepo.IDsMatchingEmail(ctx, moderation.IsDummyEmail)
		})
	} else {
		db, err := database.NewPostgres(ctx, cfg.DatabaseURL, dbPool(cfg))
		if err != nil {
			return nil, err
		}
		set.closers = append(set.closers, func() { _ = db.Close() })

		if err := migrate.Apply(ctx, db, logger); err != nil {
			set.Close()
			return nil, err
		}

		logger.Info("connected to postgres")
		set.Users = users.NewPostgresRepository(db)
		set.Tags = tags.NewPostgresRepository(db)
		set.Moderation = moderation.NewPostgresRepository(db)
	}

	if cfg.UseUserCache() {
		set.Users = withUserCache(ctx, cfg, set, logger)
	}

	return set, nil
}

// withUserCache wraps the user repository in Redis when configured and
// reachable. The in-process cache is used only when explicitly enabled,
// since a role change on one replica would not evict the others' entries.
func withUserCache(ctx context.Context, cfg config.Config, set *storeSet, logger *slog.Logger) users.Repository {
	ttl := cfg.Redis.UserCacheTTL

	if cfg.UseRedisCache() {
		client, err := cache.Connect(ctx, cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err == nil {
			set.closers = append(set.closers, func() { _ = client.Close() })
			logger.Info("user cache enabled", "backend", "redis", "addr", cfg.Redis.Addr, "ttl", ttl)
			return users.NewCachedRepository(set.Users, cache.NewRedisStore(client), ttl, logger)
		}
		logger.Warn("redis unavailable", "addr", cfg.Redis.Addr, "error", err)
	}

	if !cfg.Redis.LocalCache {
		logger.Warn("user cache disabled")
		return set.Users
	}

	logger.Info("user cache enabled", "backend", "local", "ttl", ttl)
	return users.NewCachedRepository(set.Users, cache.NewLocalStore(0, ttl), ttl, logger)
}

func dbPool(cfg config.Config) database.Pool {
	return database.Pool{
		MaxOpenConns:    cfg.Pool.MaxOpenConns,
		MaxIdleConns:    cfg.Pool.MaxIdleConns,
		ConnMaxLifetime: cfg.Pool.ConnMaxLifetime,
	}
}

func credentialSettings(cfg config.Config) credentials.Settings {
	return credentials.Settings{
		CredentialsFile:        cfg.Firebase.CredentialsFile,
		ApplicationCredentials: cfg.Firebase.ApplicationCredentials,
		LegacyCredentials:      cfg.Firebase.LegacyCredentials,
		CredentialsJSON:        cfg.Firebase.CredentialsJSON,
		ServiceAccountJSON:     cfg.Firebase.ServiceAccountJSON,
		GoogleCredentialsJSON:  cfg.Firebase.GoogleCredentialsJSON,
		CredentialsBase64:      cfg.Firebase.CredentialsBase64,
	}
}

func newCredentialManager(cfg config.Config, logger *slog.Logger) *credentials.Manager {
	resolver := credentials.NewResolver(credentialSettings(cfg), logger)
	return credentials.NewManager(resolver, credentials.NewFirebaseBuilder(cfg.Firebase.ProjectID), logger)
}
