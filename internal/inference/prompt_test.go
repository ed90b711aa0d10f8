package inference

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate_ShortPromptUnchanged(t *testing.T) {
	out, cut := Truncate("hello", 100)
	assert.False(t, cut)
	assert.Equal(t, "hello", out)
}

func TestTruncate_ExactLimitUnchanged(t *testing.T) {
	p := strings.Repeat("a", 100)
	out, cut := Truncate(p, 100)
	assert.False(t, cut)
	assert.Equal(t, p, out)
}

func TestTruncate_TripleLengthFitsWithMarker(t *testing.T) {
	p := strings.Repeat("word ", 3*MaxPromptLength/5)
	out, cut := Truncate(p, MaxPromptLength)
	require.True(t, cut)
	assert.LessOrEqual(t, len([]rune(out)), MaxPromptLength)
	assert.Contains(t, out, truncationMarker)
}

func TestTruncate_PrefersNewline(t *testing.T) {
	p := strings.Repeat("x", 900) + "\n" + strings.Repeat("y", 500)
	out, cut := Truncate(p, 1000)
	require.True(t, cut)
	assert.Equal(t, strings.Repeat("x", 900)+"\n"+truncationMarker, out)
}

func TestTruncate_FallsBackToSentenceEnd(t *testing.T) {
	p := strings.Repeat("x", 900) + "." + strings.Repeat("y", 500)
	out, cut := Truncate(p, 1000)
	require.True(t, cut)
	assert.Equal(t, strings.Repeat("x", 900)+". "+truncationMarker, out)
}

func TestTruncate_IgnoresBreaksBeforeFloor(t *testing.T) {
	p := strings.Repeat("x", 100) + "\n" + strings.Repeat("y", 2000)
	out, cut := Truncate(p, 1000)
	require.True(t, cut)
	assert.True(t, strings.HasSuffix(out, hardCutSuffix))
	assert.Len(t, []rune(out), 1000)
}

func TestTruncate_CountsRunes(t *testing.T) {
	p := strings.Repeat("ồ", 2000)
	out, cut := Truncate(p, 1000)
	require.True(t, cut)
	assert.LessOrEqual(t, len([]rune(out)), 1000)
}

func TestSimplify(t *testing.T) {
	assert.Equal(t, "short", Simplify("short"))

	long := strings.Repeat("z", 1500)
	out := Simplify(long)
	assert.True(t, strings.HasPrefix(out, briefPrefix))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Len(t, out, len(briefPrefix)+500+3)
}
