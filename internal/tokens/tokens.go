package tokens

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// DropChunk is how many characters KeepTail removes from the front per step.
const DropChunk = 2000

var loadCodec = sync.OnceValues(func() (tokenizer.Codec, error) {
	return tokenizer.Get(tokenizer.Cl100kBase)
})

// Count returns the number of cl100k_base tokens in text. If the encoding
// cannot be loaded it falls back to an estimate of four bytes per token.
func Count(text string) int {
	enc, err := loadCodec()
	if err == nil {
		if n, err := enc.Count(text); err == nil {
			return n
		}
	}
	return (len(text) + 3) / 4
}

// KeepTail drops DropChunk-character chunks from the front of text until it
// holds fewer than limit tokens. The end of the text, where tracebacks
// appear, is always kept.
//
// Only suffixes are tokenized: the search widens from the end of the text
// and then bisects between the last suffix that fits and the first that
// does not, so the cost follows the size of the result rather than the
// size of the input.
func KeepTail(text string, limit int) string {
	// Every token covers at least one byte.
	if limit <= 0 || len(text) < limit {
		return text
	}

	starts := chunkStarts(text)
	fits := func(k int) bool { return Count(text[starts[k]:]) < limit }

	// starts[hi] fits, starts[lo] does not; the last entry is the empty suffix.
	hi, lo := len(starts)-1, -1
	for step := 1; lo < 0; step *= 2 {
		k := hi - step
		if k <= 0 {
			if fits(0) {
				return text
			}
			lo = 0
			break
		}
		if fits(k) {
			hi = k
		} else {
			lo = k
		}
	}
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if fits(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return text[starts[hi]:]
}

// chunkStarts returns the byte offset of every DropChunk-rune boundary in
// text, starting with 0 and ending with len(text).
func chunkStarts(text string) []int {
	starts := []int{0}
	runes := 0
	for i := range text {
		if runes > 0 && runes%DropChunk == 0 {
			starts = append(starts, i)
		}
		runes++
	}
	return append(starts, len(text))
}
