package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPager_Wraparound(t *testing.T) {
	var p Pager
	p.SetMaps(3)

	assert.True(t, p.Prev())
	assert.Equal(t, 2, p.Index())

	assert.True(t, p.Next())
	assert.Equal(t, 0, p.Index())

	p.Next()
	p.Next()
	assert.Equal(t, 2, p.Index())
	p.Next()
	assert.Equal(t, 0, p.Index())
}

func TestPager_SingleMapIsNoop(t *testing.T) {
	var p Pager
	p.SetMaps(1)

	assert.False(t, p.Next())
	assert.False(t, p.Prev())
	assert.Equal(t, 0, p.Index())
	assert.False(t, p.Navigable())
}

func TestPager_NoMapsIsNoop(t *testing.T) {
	var p Pager

	assert.False(t, p.Next())
	assert.False(t, p.Prev())
	assert.Equal(t, 0, p.Index())
	assert.Empty(t, p.Label())
}

func TestPager_SetMaps(t *testing.T) {
	t.Run("shrinking below index resets", func(t *testing.T) {
		var p Pager
		p.SetMaps(4)
		p.Prev() // index 3
		p.SetMaps(2)
		assert.Equal(t, 0, p.Index())
		assert.Equal(t, 2, p.Count())
	})

	t.Run("shrinking above index keeps position", func(t *testing.T) {
		var p Pager
		p.SetMaps(4)
		p.Next() // index 1
		p.SetMaps(3)
		assert.Equal(t, 1, p.Index())
	})

	t.Run("zero maps leaves index alone", func(t *testing.T) {
		var p Pager
		p.SetMaps(3)
		p.Next()
		p.SetMaps(0)
		assert.Equal(t, 1, p.Index())
		assert.Equal(t, 0, p.Count())
	})

	t.Run("negative count treated as zero", func(t *testing.T) {
		var p Pager
		p.SetMaps(-2)
		assert.Equal(t, 0, p.Count())
	})
}

func TestPager_Label(t *testing.T) {
	var p Pager
	p.SetMaps(3)
	p.Next()
	assert.Equal(t, "Harta 2 / 3", p.Label())
	assert.True(t, p.Navigable())
}

func TestPager_Reset(t *testing.T) {
	var p Pager
	p.SetMaps(3)
	p.Next()
	p.Reset()
	assert.Equal(t, 0, p.Index())
	assert.Equal(t, 0, p.Count())
}
