package geo

import (
	"encoding/binary"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// WKB serializes a geometry as little-endian well-known binary. It is used as
// an exact equality key: two geometries are duplicates iff their WKB matches.
func WKB(g orb.Geometry) ([]byte, error) {
	data, err := wkb.Marshal(g, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wkb: %w", err)
	}
	return data, nil
}
