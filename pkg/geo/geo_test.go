package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

var (
	unitSquare = orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}}
	smallSquare = orb.Polygon{{{0, 0}, {0, 0.1}, {0.1, 0.1}, {0.1, 0}, {0, 0}}}
	bowtie      = orb.Polygon{{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}}
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		geom orb.Geometry
		want Kind
	}{
		{"Point", orb.Point{1, 2}, KindPoint},
		{"LineString", orb.LineString{{0, 0}, {1, 1}}, KindLine},
		{"Polygon", unitSquare, KindPolygon},
		{"MultiPolygon", orb.MultiPolygon{unitSquare}, KindPolygon},
		{"Collection", orb.Collection{orb.Point{0, 0}}, KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.geom); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArea(t *testing.T) {
	withHole := orb.Polygon{
		{{0, 0}, {0, 2}, {2, 2}, {2, 0}, {0, 0}},
		{{0.5, 0.5}, {1.5, 0.5}, {1.5, 1.5}, {0.5, 1.5}, {0.5, 0.5}},
	}

	tests := []struct {
		name string
		geom orb.Geometry
		want float64
	}{
		{"UnitSquare", unitSquare, 1},
		{"SmallSquare", smallSquare, 0.01},
		{"ClockwiseShell", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}, 1},
		{"WithHole", withHole, 3},
		{"Multi", orb.MultiPolygon{unitSquare, smallSquare}, 1.01},
		{"Point", orb.Point{0, 0}, 0},
		{"Line", orb.LineString{{0, 0}, {1, 0}, {1, 1}}, 0},
		{"Degenerate", orb.Polygon{{{0, 0}, {1, 0}, {2, 0}, {0, 0}}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Area(tt.geom); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Area() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	if !IsEmpty(nil) {
		t.Error("nil geometry should be empty")
	}
	if !IsEmpty(orb.MultiPolygon{}) {
		t.Error("empty multipolygon should be empty")
	}
	if IsEmpty(orb.Point{0, 0}) {
		t.Error("point should not be empty")
	}
	if IsEmpty(unitSquare) {
		t.Error("square should not be empty")
	}
}

func TestIsValid(t *testing.T) {
	strip := orb.Polygon{{{0, 0}, {0, 0.3}, {1, 0.3}, {1, 0}, {0, 0}}}

	tests := []struct {
		name string
		geom orb.Geometry
		want bool
	}{
		{"Square", unitSquare, true},
		{"Bowtie", bowtie, false},
		{"Unclosed", orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {1, 0}}}, false},
		{"TooShort", orb.Polygon{{{0, 0}, {1, 1}, {0, 0}}}, false},
		{"HoleOutside", orb.Polygon{unitSquare[0], {{2, 2}, {3, 2}, {3, 3}, {2, 3}, {2, 2}}}, false},
		{"HoleInside", orb.Polygon{
			{{0, 0}, {0, 4}, {4, 4}, {4, 0}, {0, 0}},
			{{1, 1}, {2, 1}, {2, 2}, {1, 2}, {1, 1}},
		}, true},
		{"DisjointMembers", orb.MultiPolygon{unitSquare, orb.Polygon{{{5, 5}, {5, 6}, {6, 6}, {6, 5}, {5, 5}}}}, true},
		{"OverlappingMembers", orb.MultiPolygon{strip, strip}, false},
		{"Line", orb.LineString{{0, 0}, {1, 1}, {0, 1}, {1, 0}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsValid(tt.geom)
			if err != nil {
				t.Fatalf("IsValid() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func mustValid(t *testing.T, g orb.Geometry) orb.Geometry {
	t.Helper()
	fixed, err := MakeValid(g)
	if err != nil {
		t.Fatalf("MakeValid() error = %v", err)
	}
	ok, err := IsValid(fixed)
	if err != nil {
		t.Fatalf("IsValid() error = %v", err)
	}
	if !ok {
		t.Fatalf("repaired geometry is still invalid: %v", fixed)
	}
	return fixed
}

func TestMakeValid(t *testing.T) {
	strip := orb.Polygon{{{0, 0}, {0, 0.3}, {1, 0.3}, {1, 0}, {0, 0}}}

	tests := []struct {
		name     string
		geom     orb.Geometry
		min, max float64
	}{
		{"Bowtie", bowtie, 0.25 - 1e-6, 0.5 + 1e-6},
		{"ClosesRing", orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {1, 0}}}, 1 - 1e-6, 1 + 1e-6},
		{"UnionsMembers", orb.MultiPolygon{strip, strip}, 0.3 - 1e-6, 0.3 + 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixed := mustValid(t, tt.geom)
			if got := Area(fixed); got < tt.min || got > tt.max {
				t.Errorf("Area() = %v, want in [%v, %v]", got, tt.min, tt.max)
			}
		})
	}
}

func TestMakeValid_LeavesAlone(t *testing.T) {
	degenerate := orb.Polygon{{{0, 0}, {1, 0}, {2, 0}, {0, 0}}}
	pt := orb.Point{3, 4}

	for _, g := range []orb.Geometry{unitSquare, degenerate, pt} {
		got, err := MakeValid(g)
		if err != nil {
			t.Fatalf("MakeValid(%v) error = %v", g, err)
		}
		if !orb.Equal(got, g) {
			t.Errorf("MakeValid(%v) = %v, want unchanged", g, got)
		}
	}
	if Area(degenerate) != 0 {
		t.Error("degenerate polygon must keep zero area")
	}
}

func TestPointWithin(t *testing.T) {
	donut := orb.Polygon{
		{{0, 0}, {0, 4}, {4, 4}, {4, 0}, {0, 0}},
		{{1, 1}, {3, 1}, {3, 3}, {1, 3}, {1, 1}},
	}

	tests := []struct {
		name string
		geom orb.Geometry
		pt   orb.Point
		want bool
	}{
		{"Interior", unitSquare, orb.Point{0.5, 0.5}, true},
		{"Outside", unitSquare, orb.Point{2, 2}, false},
		{"OnEdge", unitSquare, orb.Point{1, 0.5}, false},
		{"OnVertex", unitSquare, orb.Point{0, 0}, false},
		{"InHole", donut, orb.Point{2, 2}, false},
		{"InRingBody", donut, orb.Point{0.5, 0.5}, true},
		{"SecondMember", orb.MultiPolygon{smallSquare, donut}, orb.Point{3.5, 3.5}, true},
		{"NotPolygonal", orb.LineString{{0, 0}, {1, 1}}, orb.Point{0.5, 0.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PointWithin(tt.geom, tt.pt)
			if err != nil {
				t.Fatalf("PointWithin() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("PointWithin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	donut := orb.Polygon{
		{{0, 0}, {0, 4}, {4, 4}, {4, 0}, {0, 0}},
		{{1, 1}, {3, 1}, {3, 3}, {1, 3}, {1, 1}},
	}
	concave := orb.Polygon{{{0, 0}, {0, 2}, {1, 1}, {2, 2}, {2, 0}, {0, 0}}}

	tests := []struct {
		name string
		a, b orb.Geometry
		want bool
	}{
		{"SubSquare", unitSquare, smallSquare, true},
		{"Reverse", smallSquare, unitSquare, false},
		{"Identical", unitSquare, orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}}, true},
		{"Disjoint", unitSquare, orb.Polygon{{{5, 5}, {5, 6}, {6, 6}, {6, 5}, {5, 5}}}, false},
		{"Overlapping", unitSquare, orb.Polygon{{{0.5, 0.5}, {0.5, 1.5}, {1.5, 1.5}, {1.5, 0.5}, {0.5, 0.5}}}, false},
		{"OverHole", donut, orb.Polygon{{{0.5, 0.5}, {0.5, 3.5}, {3.5, 3.5}, {3.5, 0.5}, {0.5, 0.5}}}, false},
		{"InRingBody", donut, orb.Polygon{{{0.2, 0.2}, {0.2, 0.8}, {0.8, 0.8}, {0.8, 0.2}, {0.2, 0.2}}}, true},
		{"ConcaveNotch", concave, orb.Polygon{{{0.5, 0.5}, {0.5, 1.6}, {1.5, 1.6}, {1.5, 0.5}, {0.5, 0.5}}}, false},
		{"MultiContainer", orb.MultiPolygon{
			orb.Polygon{{{10, 10}, {10, 11}, {11, 11}, {11, 10}, {10, 10}}},
			unitSquare,
		}, smallSquare, true},
		{"Point", unitSquare, orb.Point{0.5, 0.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Contains(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Contains() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Contains() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWKB_Equality(t *testing.T) {
	a, err := WKB(unitSquare)
	if err != nil {
		t.Fatal(err)
	}
	b, err := WKB(orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}})
	if err != nil {
		t.Fatal(err)
	}
	c, err := WKB(smallSquare)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("identical geometries must serialize identically")
	}
	if string(a) == string(c) {
		t.Error("different geometries must serialize differently")
	}
}
