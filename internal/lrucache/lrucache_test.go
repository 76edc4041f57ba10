package lrucache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testData struct {
	value    int
	dataSize uint64
}

func (td testData) Size() uint64 { return td.dataSize }

func TestCache_LookUpMissingReturnsNil(t *testing.T) {
	c := New()
	assert.Nil(t, c.LookUp(""))
	assert.Nil(t, c.LookUp("taco"))
}

func TestCache_InsertRejectsNilValue(t *testing.T) {
	c := New()
	err := c.Insert("taco", nil)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidEntry, err)
}

func TestCache_InsertThenLookUp(t *testing.T) {
	c := New()
	require.NoError(t, c.Insert("burrito", testData{value: 23, dataSize: 4}))
	require.NoError(t, c.Insert("taco", testData{value: 26, dataSize: 20}))

	assert.Equal(t, 23, c.LookUp("burrito").(testData).value)
	assert.Equal(t, 26, c.LookUp("taco").(testData).value)
	assert.Equal(t, uint64(24), c.TotalSize())
}

func TestCache_InsertOverwritesAndAdjustsSize(t *testing.T) {
	c := New()
	require.NoError(t, c.Insert("burrito", testData{value: 23, dataSize: 4}))
	require.NoError(t, c.Insert("burrito", testData{value: 99, dataSize: 10}))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, uint64(10), c.TotalSize())
	assert.Equal(t, 99, c.LookUp("burrito").(testData).value)
}

func TestCache_LeastRecentlyUsedOrder(t *testing.T) {
	c := New()
	require.NoError(t, c.Insert("burrito", testData{value: 1, dataSize: 1}))
	require.NoError(t, c.Insert("taco", testData{value: 2, dataSize: 1}))
	require.NoError(t, c.Insert("enchilada", testData{value: 3, dataSize: 1}))

	// burrito is now the least recently used of the three.
	key, val, ok := c.LeastRecentlyUsed()
	require.True(t, ok)
	assert.Equal(t, "burrito", key)
	assert.Equal(t, 1, val.(testData).value)

	// Touching burrito makes taco the new LRU victim.
	c.LookUp("burrito")
	key, _, ok = c.LeastRecentlyUsed()
	require.True(t, ok)
	assert.Equal(t, "taco", key)
}

func TestCache_LRUOrder(t *testing.T) {
	c := New()
	require.NoError(t, c.Insert("burrito", testData{value: 1, dataSize: 1}))
	require.NoError(t, c.Insert("taco", testData{value: 2, dataSize: 1}))
	require.NoError(t, c.Insert("enchilada", testData{value: 3, dataSize: 1}))

	assert.Equal(t, []string{"burrito", "taco", "enchilada"}, c.LRUOrder())

	c.LookUp("burrito")
	assert.Equal(t, []string{"taco", "enchilada", "burrito"}, c.LRUOrder())
}

func TestCache_EraseRemovesAndAdjustsSize(t *testing.T) {
	c := New()
	require.NoError(t, c.Insert("burrito", testData{value: 1, dataSize: 4}))
	require.NoError(t, c.Insert("taco", testData{value: 2, dataSize: 6}))

	erased := c.Erase("burrito")
	require.NotNil(t, erased)
	assert.Equal(t, 1, erased.(testData).value)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, uint64(6), c.TotalSize())
	assert.Nil(t, c.LookUp("burrito"))
}

func TestCache_EraseMissingReturnsNil(t *testing.T) {
	c := New()
	assert.Nil(t, c.Erase("ghost"))
}

func TestCache_CheckInvariantsPassesAfterMutation(t *testing.T) {
	c := New()
	require.NoError(t, c.Insert("a", testData{value: 1, dataSize: 1}))
	require.NoError(t, c.Insert("b", testData{value: 2, dataSize: 2}))
	c.Erase("a")
	c.LookUp("b")

	assert.NotPanics(t, c.CheckInvariants)
}
