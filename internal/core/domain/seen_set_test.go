package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeenSet_AddIsIdempotent(t *testing.T) {
	seen := NewSeenSet()

	assert.True(t, seen.Add("https://site.example/item/1"))
	assert.False(t, seen.Add("https://site.example/item/1"))
	assert.False(t, seen.Add("https://site.example/item/1"))
	assert.Equal(t, 1, seen.Len())
}

// Сравнение строгое, посимвольное: вариации одного URL - разные элементы
func TestSeenSet_ExactStringComparison(t *testing.T) {
	seen := NewSeenSet()

	assert.True(t, seen.Add("https://site.example/item/1"))
	assert.True(t, seen.Add("https://site.example/item/1/"))
	assert.True(t, seen.Add("https://site.example/item/1?utm=x"))
	assert.Equal(t, 3, seen.Len())
}

func TestSeenSet_URLsKeepDiscoveryOrder(t *testing.T) {
	seen := NewSeenSet()
	seen.Add("https://site.example/b")
	seen.Add("https://site.example/a")
	seen.Add("https://site.example/b")
	seen.Add("https://site.example/c")

	assert.Equal(t, []string{
		"https://site.example/b",
		"https://site.example/a",
		"https://site.example/c",
	}, seen.URLs())
}
