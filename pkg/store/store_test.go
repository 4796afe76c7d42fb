package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"osmflex/pkg/db"
	"osmflex/pkg/model"
)

// setupTestStore creates a test database and store for each test.
func setupTestStore(t *testing.T) (*SQLiteStore, func()) {
	t.Helper()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	d, err := db.Init(dbPath)
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}

	store := NewSQLiteStore(d)
	cleanup := func() { d.Close() }
	return store, cleanup
}

// =============================================================================
// ArtifactStore Tests
// =============================================================================

func TestArtifactStore_SaveAndGet(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	a := &model.Artifact{
		Kind:   model.ArtifactDownload,
		Path:   "/data/osm/germany-latest.osm.pbf",
		Source: "https://download.geofabrik.de/europe/germany-latest.osm.pbf",
		Region: "DEU",
		Bytes:  4096,
	}
	if err := s.SaveArtifact(ctx, a); err != nil {
		t.Fatalf("SaveArtifact failed: %v", err)
	}
	if a.ID == "" {
		t.Error("expected ID to be assigned")
	}
	if a.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be assigned")
	}

	got, err := s.GetArtifact(ctx, a.Path)
	if err != nil {
		t.Fatalf("GetArtifact failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetArtifact returned nil")
	}
	if got.ID != a.ID || got.Kind != a.Kind || got.Source != a.Source || got.Region != "DEU" || got.Bytes != 4096 {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, a)
	}

	missing, err := s.GetArtifact(ctx, "/nope")
	if err != nil || missing != nil {
		t.Errorf("GetArtifact(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestArtifactStore_UpsertByPath(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	path := "/data/osm/extract.osm.pbf"
	if err := s.SaveArtifact(ctx, &model.Artifact{Kind: model.ArtifactClip, Path: path, Bytes: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveArtifact(ctx, &model.Artifact{Kind: model.ArtifactClip, Path: path, Bytes: 2}); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListArtifacts(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 artifact after upsert, got %d", len(all))
	}
	if all[0].Bytes != 2 {
		t.Errorf("expected updated bytes 2, got %d", all[0].Bytes)
	}
}

func TestArtifactStore_List(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name string
		kind model.ArtifactKind
		want []string
	}{
		{"All", "", []string{"/c", "/b", "/a"}},
		{"Downloads", model.ArtifactDownload, []string{"/c", "/a"}},
		{"Clips", model.ArtifactClip, []string{"/b"}},
		{"None", model.ArtifactPoly, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, cleanup := setupTestStore(t)
			defer cleanup()
			ctx := context.Background()

			seed := []*model.Artifact{
				{Kind: model.ArtifactDownload, Path: "/a", CreatedAt: now.Add(-2 * time.Hour)},
				{Kind: model.ArtifactClip, Path: "/b", CreatedAt: now.Add(-time.Hour)},
				{Kind: model.ArtifactDownload, Path: "/c", CreatedAt: now},
			}
			for _, a := range seed {
				if err := s.SaveArtifact(ctx, a); err != nil {
					t.Fatal(err)
				}
			}

			got, err := s.ListArtifacts(ctx, tt.kind)
			if err != nil {
				t.Fatalf("ListArtifacts failed: %v", err)
			}
			var paths []string
			for _, a := range got {
				paths = append(paths, a.Path)
			}
			if len(paths) != len(tt.want) {
				t.Fatalf("got %v, want %v", paths, tt.want)
			}
			for i := range tt.want {
				if paths[i] != tt.want[i] {
					t.Errorf("got %v, want %v", paths, tt.want)
					break
				}
			}
		})
	}
}

func TestArtifactStore_Delete(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := s.SaveArtifact(ctx, &model.Artifact{Kind: model.ArtifactPoly, Path: "/tmp/x.poly"}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteArtifact(ctx, "/tmp/x.poly"); err != nil {
		t.Fatalf("DeleteArtifact failed: %v", err)
	}
	got, err := s.GetArtifact(ctx, "/tmp/x.poly")
	if err != nil || got != nil {
		t.Errorf("expected artifact to be gone, got %v, %v", got, err)
	}
}
