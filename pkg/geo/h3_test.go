package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellOf(t *testing.T) {
	sf := orb.Point{-122.41795063018799, 37.775938728915946}

	cell, err := CellOf(sf, 9)
	require.NoError(t, err)
	assert.Equal(t, "8928308280fffff", cell)

	// A small square around the point lands in the same cell
	d := 1e-6
	square := orb.Polygon{{
		{sf[0] - d, sf[1] - d}, {sf[0] + d, sf[1] - d},
		{sf[0] + d, sf[1] + d}, {sf[0] - d, sf[1] + d},
		{sf[0] - d, sf[1] - d},
	}}
	cell, err = CellOf(square, 9)
	require.NoError(t, err)
	assert.Equal(t, "8928308280fffff", cell)
}

func TestCellOf_Errors(t *testing.T) {
	_, err := CellOf(orb.Point{0, 0}, 16)
	assert.ErrorIs(t, err, ErrInvalidResolution)

	_, err = CellOf(orb.Polygon{}, 5)
	assert.Error(t, err)
}
