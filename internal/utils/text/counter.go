// Package text provides utilities for text processing shared by the
// greeting generators.
package text

// CountRunes counts the number of Unicode characters (runes) in the given
// text. Greeting length limits are rune-based so multi-byte scripts such as
// Japanese and emoji count as one character each, matching how carriers
// segment SMS text.
//
// Examples:
//
//	CountRunes("hello")     // returns 5
//	CountRunes("こんにちは")  // returns 5
//	CountRunes("")          // returns 0
func CountRunes(text string) int {
	return len([]rune(text))
}
