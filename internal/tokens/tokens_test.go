package tokens

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCount(t *testing.T) {
	assert.Equal(t, 0, Count(""))
	assert.Greater(t, Count("Traceback (most recent call last):"), 3)
	assert.Less(t, Count(strings.Repeat("word ", 100)), 200)
}

func TestKeepTail(t *testing.T) {
	t.Run("short text is untouched", func(t *testing.T) {
		assert.Equal(t, "accuracy: 0.93\n", KeepTail("accuracy: 0.93\n", 2000))
	})

	t.Run("long text keeps the tail", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 3000; i++ {
			sb.WriteString("epoch loss 0.123456 acc 0.98765\n")
		}
		sb.WriteString("Traceback (most recent call last):\nValueError: bad shape\n")
		text := sb.String()

		out := KeepTail(text, 2000)
		assert.Less(t, Count(out), 2000)
		assert.True(t, strings.HasSuffix(text, out))
		assert.Contains(t, out, "ValueError: bad shape")
		// Trimming happens in whole chunks.
		assert.Zero(t, (len(text)-len(out))%DropChunk)
	})

	t.Run("multibyte text stays valid", func(t *testing.T) {
		text := strings.Repeat("数据", 5000) + "end"
		out := KeepTail(text, 500)
		assert.True(t, strings.HasSuffix(out, "end"))
		assert.True(t, strings.HasSuffix(text, out))
		assert.Equal(t, []rune(out), []rune(text)[len([]rune(text))-len([]rune(out)):])
	})

	t.Run("megabyte training log", func(t *testing.T) {
		text := strings.Repeat("epoch 1 loss 0.1234 acc 0.98 step 12345\n", 25000) +
			"Traceback (most recent call last):\nMemoryError\n"
		require.GreaterOrEqual(t, len(text), 1000000)

		start := time.Now()
		out := KeepTail(text, 2000)
		assert.Less(t, time.Since(start), 20*time.Second)

		assert.Less(t, Count(out), 2000)
		assert.Greater(t, Count(out), 1000)
		assert.True(t, strings.HasSuffix(out, "MemoryError\n"))
		assert.True(t, strings.HasSuffix(text, out))
		assert.Zero(t, (len(text)-len(out))%DropChunk)
	})

	t.Run("matches dropping one chunk at a time", func(t *testing.T) {
		inputs := []string{
			strings.Repeat("step 7 loss=0.5 val_loss=0.61\n", 1500),
			strings.Repeat("x", DropChunk*3),
			strings.Repeat("数据 ", 9000) + "done",
		}
		for _, text := range inputs {
			for _, limit := range []int{10, 300, 4000} {
				assert.Equal(t, dropChunks(text, limit), KeepTail(text, limit), "limit %d", limit)
			}
		}
	})

	t.Run("disabled limit", func(t *testing.T) {
		assert.Equal(t, "abc", KeepTail("abc", 0))
	})
}

// dropChunks trims text one chunk at a time, re-counting after every drop.
func dropChunks(text string, limit int) string {
	for text != "" && Count(text) >= limit {
		runes := []rune(text)
		if len(runes) <= DropChunk {
			return ""
		}
		text = string(runes[DropChunk:])
	}
	return text
}
