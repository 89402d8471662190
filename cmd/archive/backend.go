package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gogotex/archive/internal/config"
	"github.com/gogotex/archive/internal/database"
	"github.com/gogotex/archive/internal/document/repository"
	"github.com/gogotex/archive/internal/storage"
	"github.com/gogotex/archive/pkg/logger"
)

// resources are the connections opened for one run.
type resources struct {
	store   *repository.Store
	redis   *redis.Client
	mongo   *mongo.Client
	objects *storage.MinIOStorage
}

func (r *resources) Close() {
	if r.redis != nil {
		_ = r.redis.Close()
	}
	if r.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.mongo.Disconnect(ctx)
	}
}

// Ping checks the remote dependencies in use.
func (r *resources) Ping(ctx context.Context) map[string]error {
	deps := map[string]error{}
	if r.redis != nil {
		deps["redis"] = r.redis.Ping(ctx).Err()
	}
	if r.mongo != nil {
		deps["mongo"] = r.mongo.Ping(ctx, nil)
	}
	if r.objects != nil {
		deps["minio"] = r.objects.Ping(ctx)
	}
	return deps
}

// openBackend builds the mirror selected by ARCHIVE_BACKEND and loads the
// collection from it.
func openBackend(ctx context.Context, cfg *config.Config) (*resources, error) {
	res := &resources{}
	if cfg.Redis.Host != "" {
		res.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	}

	var mirror repository.Mirror
	switch cfg.Archive.Backend {
	case config.BackendFile:
		mirror = repository.NewFileMirror(cfg.Archive.Path)
	case config.BackendMemory:
		mirror = repository.NewMemoryMirror()
	case config.BackendRedis:
		mirror = repository.NewRedisMirror(res.redis, cfg.Redis.Key)
	case config.BackendMongo:
		client, err := database.ConnectMongoRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			res.Close()
			return nil, err
		}
		res.mongo = client
		col := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
		mirror = repository.NewMongoMirror(col, "documents")
	case config.BackendMinIO:
		objects, err := storage.NewMinIOStorage(ctx, &cfg.MinIO)
		if err != nil {
			res.Close()
			return nil, err
		}
		res.objects = objects
		mirror = repository.NewMinIOMirror(objects, cfg.MinIO.Object)
	default:
		res.Close()
		return nil, fmt.Errorf("unknown backend %q", cfg.Archive.Backend)
	}
	if cfg.Archive.Compress {
		mirror = repository.NewCompressed(mirror)
	}

	res.store = repository.NewStore(mirror)
	if err := res.store.Load(ctx); err != nil {
		res.Close()
		return nil, err
	}
	logger.Debugf("catalog backend %s ready with %d documents", mirror.Name(), res.store.Len())
	return res, nil
}
