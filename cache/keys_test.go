package cache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/salestaxio/poskit/cache"
)

func TestKey(t *testing.T) {
	require.Equal(t, "square:tax:abc", cache.Key("square", "tax", "abc"))
}

func TestHashKey_Stable(t *testing.T) {
	type taxInput struct {
		Items   []string
		Address string
		Exempt  bool
	}

	a := taxInput{Items: []string{"sku-1", "sku-2"}, Address: "austin tx", Exempt: false}
	b := taxInput{Items: []string{"sku-1", "sku-2"}, Address: "austin tx", Exempt: false}

	keyA, err := cache.HashKey("tax", a)
	require.NoError(t, err)
	keyB, err := cache.HashKey("tax", b)
	require.NoError(t, err)
	require.Equal(t, keyA, keyB)
}

func TestHashKey_DistinguishesInputs(t *testing.T) {
	type taxInput struct {
		Items  []string
		Exempt bool
	}

	base, err := cache.HashKey("tax", taxInput{Items: []string{"sku-1"}})
	require.NoError(t, err)

	differentItems, err := cache.HashKey("tax", taxInput{Items: []string{"sku-2"}})
	require.NoError(t, err)
	require.NotEqual(t, base, differentItems)

	exempt, err := cache.HashKey("tax", taxInput{Items: []string{"sku-1"}, Exempt: true})
	require.NoError(t, err)
	require.NotEqual(t, base, exempt)

	otherPrefix, err := cache.HashKey("products", taxInput{Items: []string{"sku-1"}})
	require.NoError(t, err)
	require.NotEqual(t, base, otherPrefix)
}

func TestHashKey_RejectsUnencodable(t *testing.T) {
	_, err := cache.HashKey("tax", make(chan int))
	require.Error(t, err)
}
