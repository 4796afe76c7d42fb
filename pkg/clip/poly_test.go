package clip

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
)

func TestWritePoly(t *testing.T) {
	dir := t.TempDir()
	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	multi := orb.MultiPolygon{
		{{{2.5, 2}, {3, 2}, {3, 3}, {2.5, 2}}},
	}

	path, err := WritePoly([]orb.Geometry{square, multi}, filepath.Join(dir, "test_poly"))
	if err != nil {
		t.Fatalf("WritePoly failed: %v", err)
	}
	if path != filepath.Join(dir, "test_poly.poly") {
		t.Errorf("unexpected path %s", path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Polygons\n" +
		"0\n" +
		"    0.0     0.0\n" +
		"    1.0     0.0\n" +
		"    1.0     1.0\n" +
		"    0.0     1.0\n" +
		"    0.0     0.0\n" +
		"END\n" +
		"1\n" +
		"    2.5     2.0\n" +
		"    3.0     2.0\n" +
		"    3.0     3.0\n" +
		"    2.5     2.0\n" +
		"END\n" +
		"END\n"
	if string(b) != want {
		t.Errorf("got:\n%s\nwant:\n%s", b, want)
	}
}

func TestWritePoly_ReplacesExtension(t *testing.T) {
	dir := t.TempDir()
	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}
	path, err := WritePoly([]orb.Geometry{square}, filepath.Join(dir, "area.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "area.poly" {
		t.Errorf("expected area.poly, got %s", path)
	}
}

func TestWritePoly_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "area.poly")
	if err := os.WriteFile(existing, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}
	if _, err := WritePoly([]orb.Geometry{square}, existing); !errors.Is(err, ErrDestinationExists) {
		t.Fatalf("expected ErrDestinationExists, got %v", err)
	}
	b, _ := os.ReadFile(existing)
	if string(b) != "keep" {
		t.Error("existing file was modified")
	}
}

func TestWritePoly_RejectsNonPolygon(t *testing.T) {
	_, err := WritePoly([]orb.Geometry{orb.Point{1, 2}}, filepath.Join(t.TempDir(), "p"))
	if !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape, got %v", err)
	}
}

func TestPolyNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{1, "1.0"},
		{-12, "-12.0"},
		{8.25, "8.25"},
		{47.123456, "47.123456"},
	}
	for _, tt := range tests {
		if got := polyNumber(tt.in); got != tt.want {
			t.Errorf("polyNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSimplifyShapes(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	tiny := orb.Polygon{{{5, 5}, {5.01, 5}, {5.01, 5.01}, {5, 5.01}, {5, 5}}}
	// Collinear midpoint within tolerance
	noisy := orb.Polygon{{{10, 10}, {11, 10}, {12, 10.001}, {13, 10}, {13, 13}, {10, 13}, {10, 10}}}

	got := simplifyShapes([]orb.Geometry{square, tiny})
	if len(got) != 1 {
		t.Fatalf("expected tiny shape to be dropped, got %d shapes", len(got))
	}
	if len(got[0].(orb.Polygon)[0]) != 5 {
		t.Errorf("square must keep its corners, got %v", got[0])
	}

	got = simplifyShapes([]orb.Geometry{noisy})
	if len(got) != 1 {
		t.Fatalf("expected 1 shape, got %d", len(got))
	}
	if n := len(got[0].(orb.Polygon)[0]); n != 5 {
		t.Errorf("expected near-collinear vertices removed (5 points), got %d", n)
	}
	if len(noisy[0]) != 7 {
		t.Error("input must not be modified")
	}

	if got := simplifyShapes([]orb.Geometry{tiny}); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}
