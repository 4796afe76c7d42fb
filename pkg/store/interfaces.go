package store

import (
	"context"

	"osmflex/pkg/model"
)

// ArtifactStore handles the catalog of downloaded and clipped files.
type ArtifactStore interface {
	GetArtifact(ctx context.Context, path string) (*model.Artifact, error)
	SaveArtifact(ctx context.Context, a *model.Artifact) error
	ListArtifacts(ctx context.Context, kind model.ArtifactKind) ([]*model.Artifact, error)
	DeleteArtifact(ctx context.Context, path string) error
}

// CacheStore handles generic key-value caching.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	HasCache(ctx context.Context, key string) (bool, error)
	SetCache(ctx context.Context, key string, val []byte) error
	ListCacheKeys(ctx context.Context, prefix string) ([]string, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
