package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRTree_SearchAndNearPoint(t *testing.T) {
	r := NewRTree()
	r.Insert(1, 0, 0, 10, 10)
	r.Insert(2, 20, 20, 30, 30)
	r.Insert(3, 5, 5, 25, 25)
	assert.Equal(t, 3, r.Size())

	assert.ElementsMatch(t, []int64{1, 3}, r.Search(0, 0, 6, 6))
	assert.ElementsMatch(t, []int64{2, 3}, r.SearchNearPoint(22, 22, 1))
	assert.Empty(t, r.Search(100, 100, 110, 110))
}
