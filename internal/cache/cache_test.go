package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_NoParams(t *testing.T) {
	assert.Equal(t, "search:", Key(SearchPrefix))
}

func TestKey_ParamOrderIrrelevant(t *testing.T) {
	a := Key(SearchPrefix, "q=shoes", "cat=outdoor", "page=1")
	b := Key(SearchPrefix, "page=1", "q=shoes", "cat=outdoor")

	assert.Equal(t, a, b)
}

func TestKey_DistinctParamsDistinctKeys(t *testing.T) {
	a := Key(SearchPrefix, "q=shoes", "page=1")
	b := Key(SearchPrefix, "q=shoes", "page=2")

	assert.NotEqual(t, a, b)
}

func TestKey_DoesNotMutateParams(t *testing.T) {
	params := []string{"z=1", "a=2"}
	Key(SearchPrefix, params...)

	assert.Equal(t, []string{"z=1", "a=2"}, params)
}

func TestProductKeys(t *testing.T) {
	assert.Equal(t, "product:id=p-1", ProductIDKey("p-1"))
	assert.Equal(t, "product:slug=trail-shoe", ProductSlugKey("trail-shoe"))
	assert.NotEqual(t, ProductIDKey("x"), ProductSlugKey("x"))
}
