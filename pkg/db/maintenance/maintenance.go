package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"osmflex/pkg/db"
	"osmflex/pkg/model"
	"osmflex/pkg/store"
)

const dataDirStateKey = "data_dir_mtime"

// DefaultCacheMaxAge is used when Run is given a non-positive max age.
const DefaultCacheMaxAge = 30 * 24 * time.Hour

// Run reconciles the catalog with dataDir and prunes cache entries older
// than cacheMaxAge. It blocks until completion.
func Run(ctx context.Context, s store.Store, d *db.DB, dataDir string, cacheMaxAge time.Duration) error {
	slog.Info("Starting catalog maintenance...")

	if err := reconcile(ctx, s, dataDir); err != nil {
		slog.Error("Catalog reconciliation failed", "error", err)
		// Not fatal: the catalog is advisory.
	} else {
		slog.Info("Catalog reconciliation completed")
	}

	if err := pruneCache(d, cacheMaxAge); err != nil {
		slog.Error("Cache pruning failed", "error", err)
	} else {
		slog.Info("Cache pruning completed")
	}

	return nil
}

// reconcile drops records whose file is gone and registers untracked
// extracts found in dataDir. The directory scan is skipped while the
// directory mtime matches the last recorded one.
func reconcile(ctx context.Context, s store.Store, dataDir string) error {
	all, err := s.ListArtifacts(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list artifacts: %w", err)
	}
	known := make(map[string]bool, len(all))
	removed := 0
	for _, a := range all {
		if _, err := os.Stat(a.Path); os.IsNotExist(err) {
			if err := s.DeleteArtifact(ctx, a.Path); err != nil {
				return fmt.Errorf("failed to delete artifact %s: %w", a.Path, err)
			}
			removed++
			continue
		}
		known[a.Path] = true
	}
	if removed > 0 {
		slog.Info("Removed stale catalog entries", "count", removed)
	}

	if dataDir == "" {
		return nil
	}
	info, err := os.Stat(dataDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat data dir: %w", err)
	}

	dirMTime := info.ModTime().UTC().Format(time.RFC3339Nano)
	if stored, found := s.GetState(ctx, dataDirStateKey); found && stored == dirMTime {
		return nil
	}

	added, err := importUntracked(ctx, s, dataDir, known)
	if err != nil {
		return err
	}
	if added > 0 {
		slog.Info("Registered untracked extracts", "count", added, "dir", dataDir)
	}

	if err := s.SetState(ctx, dataDirStateKey, dirMTime); err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}
	return nil
}

func importUntracked(ctx context.Context, s store.Store, dataDir string, known map[string]bool) (int, error) {
	count := 0
	err := filepath.WalkDir(dataDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !isExtract(entry.Name()) {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if known[abs] || known[path] {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		a := &model.Artifact{
			Kind:      model.ArtifactImported,
			Path:      abs,
			Bytes:     info.Size(),
			CreatedAt: info.ModTime().UTC(),
		}
		if err := s.SaveArtifact(ctx, a); err != nil {
			return fmt.Errorf("failed to save artifact %s: %w", abs, err)
		}
		count++
		return nil
	})
	return count, err
}

func isExtract(name string) bool {
	return strings.HasSuffix(name, ".osm.pbf") || strings.HasSuffix(name, ".poly")
}

func pruneCache(d *db.DB, maxAge time.Duration) error {
	if maxAge <= 0 {
		maxAge = DefaultCacheMaxAge
	}
	return d.PruneCache(maxAge)
}
