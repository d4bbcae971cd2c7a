package collection

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionSnapshotIsStable(t *testing.T) {
	c := New([]int{1, 2, 3})
	before := c.Snapshot()

	changed := c.Update(func(cur []int) ([]int, bool) {
		next := append(append([]int(nil), cur...), 4)
		return next, true
	})
	require.True(t, changed)

	assert.Equal(t, []int{1, 2, 3}, before)
	assert.Equal(t, []int{1, 2, 3, 4}, c.Snapshot())
	assert.Equal(t, 4, c.Len())
}

func TestCollectionUpdateWithoutChange(t *testing.T) {
	c := New([]string{"a"})

	changed := c.Update(func(cur []string) ([]string, bool) {
		return nil, false
	})

	assert.False(t, changed)
	assert.Equal(t, []string{"a"}, c.Snapshot())
}

func TestCollectionSetCopiesInput(t *testing.T) {
	input := []int{1, 2}
	c := New(input)
	input[0] = 100

	assert.Equal(t, 1, c.Snapshot()[0])
}

func TestCollectionFind(t *testing.T) {
	c := New([]string{"white", "black"})

	got, ok := c.Find(func(s string) bool { return s == "black" })
	require.True(t, ok)
	assert.Equal(t, "black", got)

	_, ok = c.Find(func(s string) bool { return s == "red" })
	assert.False(t, ok)
}

func TestCollectionConcurrentUpdates(t *testing.T) {
	c := New[int](nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			c.Update(func(cur []int) ([]int, bool) {
				next := make([]int, len(cur), len(cur)+1)
				copy(next, cur)
				return append(next, v), true
			})
			_ = c.Snapshot()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, c.Len())
}
