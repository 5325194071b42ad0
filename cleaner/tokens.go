package cleaner

import "unicode/utf8"

// EstimateTokens gives a rough token count for a prompt without a tokenizer.
//
// Heuristic: utf8 rune count / 3. JSON blobs are dense in short keys and
// punctuation, so this lands close to what the API reports as prompt tokens.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	est := n / 3
	if est < 1 {
		return 1
	}
	return est
}
