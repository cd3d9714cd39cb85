package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks, err := Split("hello world", 100, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world"}, chunks)
}

func TestSplit_EmptyTextSingleEmptyChunk(t *testing.T) {
	chunks, err := Split("", 100, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, chunks)
}

func TestSplit_InvalidArguments(t *testing.T) {
	tests := []struct {
		name    string
		maxSize int
		overlap int
	}{
		{name: "zero maxSize", maxSize: 0, overlap: 0},
		{name: "negative maxSize", maxSize: -1, overlap: 0},
		{name: "negative overlap", maxSize: 10, overlap: -1},
		{name: "overlap at half maxSize", maxSize: 10, overlap: 5},
		{name: "overlap near maxSize", maxSize: 10, overlap: 8},
		{name: "overlap equals maxSize", maxSize: 10, overlap: 10},
		{name: "overlap exceeds maxSize", maxSize: 10, overlap: 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split("some text", tt.maxSize, tt.overlap)
			assert.ErrorIs(t, err, ErrInvalidChunking)
		})
	}
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	// The terminator sits inside the back-half scan window, so the first
	// chunk must end just after it.
	text := "First sentence ends here. Second sentence continues for a while longer."
	chunks, err := Split(text, 40, 5)
	require.NoError(t, err)
	assert.Equal(t, "First sentence ends here.", chunks[0])
}

func TestSplit_HardCutWithoutBoundary(t *testing.T) {
	text := strings.Repeat("a", 100)
	chunks, err := Split(text, 40, 10)
	require.NoError(t, err)
	assert.Len(t, chunks[0], 40, "no terminator in window forces a hard cut at maxSize")
}

func TestSplit_OverlapIsShared(t *testing.T) {
	text := strings.Repeat("a", 100)
	chunks, err := Split(text, 40, 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)
	// The tail of each chunk reappears at the head of the next.
	assert.Equal(t, chunks[0][30:], chunks[1][:10])
}

func TestSplit_CoversInput(t *testing.T) {
	texts := []string{
		strings.Repeat("word word word. ", 50),
		strings.Repeat("x", 333),
		"One. Two! Three? " + strings.Repeat("four ", 100),
	}
	for _, text := range texts {
		overlap := 10
		chunks, err := Split(text, 50, overlap)
		require.NoError(t, err)

		// Each chunk starts overlap runes before the previous chunk's end,
		// so dropping that prefix from every chunk after the first must
		// reconstruct the input exactly.
		rebuilt := chunks[0]
		for _, c := range chunks[1:] {
			rebuilt += string([]rune(c)[overlap:])
		}
		assert.Equal(t, text, rebuilt)
	}
}

func TestSplit_Terminates(t *testing.T) {
	// Dense terminators pull every cut toward the scan limit, the
	// worst case for forward progress.
	text := strings.Repeat("a. ", 200)
	for overlap := 0; overlap < 15; overlap++ {
		chunks, err := Split(text, 30, overlap)
		require.NoError(t, err, "overlap %d", overlap)
		assert.NotEmpty(t, chunks)
	}
}

func TestSplit_AggressiveOverlapRejected(t *testing.T) {
	// With terminators sitting right at the scan limit, an overlap in the
	// back half of the window would shrink the advance below the declared
	// overlap and make the chunk sequence unreconstructable. Those
	// arguments fail fast instead.
	text := strings.Repeat("aaaa.", 20)
	_, err := Split(text, 10, 8)
	assert.ErrorIs(t, err, ErrInvalidChunking)
}

func TestSplit_BoundaryCutsKeepExactOverlap(t *testing.T) {
	// The largest permitted overlap combined with terminators near the
	// scan limit: every chunk must still carry the full declared overlap
	// and dropping it must rebuild the input.
	text := strings.Repeat("aaaa.", 20)
	overlap := 4
	chunks, err := Split(text, 10, overlap)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	rebuilt := chunks[0]
	for i, c := range chunks[1:] {
		runes := []rune(c)
		require.Greater(t, len(runes), overlap, "chunk %d shorter than the declared overlap", i+1)
		assert.Equal(t, string([]rune(chunks[i])[len([]rune(chunks[i]))-overlap:]), string(runes[:overlap]),
			"chunk %d head must repeat the previous tail", i+1)
		rebuilt += string(runes[overlap:])
	}
	assert.Equal(t, text, rebuilt)
}

func TestSplit_ChunkCountBounded(t *testing.T) {
	text := strings.Repeat("x", 1000)
	maxSize, overlap := 100, 20
	chunks, err := Split(text, maxSize, overlap)
	require.NoError(t, err)
	// Hard cuts advance by maxSize-overlap each step.
	assert.LessOrEqual(t, len(chunks), len(text)/(maxSize-overlap)+1)
}

func TestSplit_RuneSafe(t *testing.T) {
	text := strings.Repeat("héllo wörld. ", 30)
	chunks, err := Split(text, 40, 8)
	require.NoError(t, err)
	for i, c := range chunks {
		assert.True(t, strings.Contains(text, c), "chunk %d must not split a multi-byte rune", i)
	}
}
