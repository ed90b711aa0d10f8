package inference

import (
	"strings"
)

const (
	// MaxPromptLength is the longest prompt sent, in characters.
	MaxPromptLength = 15000

	truncationMarker = "[Content truncated]"
	hardCutSuffix    = "... " + truncationMarker
	briefPrefix      = "Respond briefly: "
	simplifyAbove    = 1000
	simplifyKeep     = 500
)

// Truncate shortens prompt to at most max characters, ending with a
// truncation marker. It prefers to cut at the last newline, then the last
// sentence end, found past 80% of max; otherwise it hard-cuts. The bool
// reports whether anything was cut.
func Truncate(prompt string, max int) (string, bool) {
	runes := []rune(prompt)
	if len(runes) <= max {
		return prompt, false
	}

	budget := max - len([]rune(hardCutSuffix))
	if budget <= 0 {
		return string(runes[:max]), true
	}
	head := runes[:budget]
	floor := int(float64(max) * 0.8)

	if nl := lastRune(head, '\n'); nl > floor {
		return string(runes[:nl]) + "\n" + truncationMarker, true
	}
	if dot := lastRune(head, '.'); dot > floor {
		return string(runes[:dot+1]) + " " + truncationMarker, true
	}
	return string(head) + hardCutSuffix, true
}

// Simplify shrinks long prompts to a short instruction used on retries after
// the service rejected or failed the original.
func Simplify(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= simplifyAbove {
		return prompt
	}
	var b strings.Builder
	b.WriteString(briefPrefix)
	b.WriteString(string(runes[:simplifyKeep]))
	b.WriteString("...")
	return b.String()
}

func lastRune(rs []rune, target rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == target {
			return i
		}
	}
	return -1
}
