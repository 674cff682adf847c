// Package membernumber implements the member identifier sequence assigned
// to students. A member number is one lowercase letter followed by a
// two-digit number, e.g. "k11". The numeric part stays within 11..99 so
// that lexicographic order equals allocation order, which lets the store
// find the current maximum with a plain string sort. The sequence starts at
// "k11" (seeded from the school's historical data), advances the number
// first and the letter on overflow, and wraps from "z99" back to "k11".
//
// The wraparound means numbers are reused after a full cycle; the sequence
// holds Capacity distinct values, which is the system's member ceiling.
package membernumber

import "fmt"

// First is the initial member number of an empty roster.
const First = "k11"

// Capacity is the number of distinct member numbers in one cycle:
// letters k..z, numbers 11..99.
const Capacity = 16 * 89

// Valid reports whether s is a well-formed member number: one lowercase
// letter and a numeric part within 11..99. Values like "k05" are rejected
// even though they parse, because they sort before the sequence start and
// would break the lexicographic-max allocation.
func Valid(s string) bool {
	if len(s) != 3 {
		return false
	}
	if s[0] < 'a' || s[0] > 'z' {
		return false
	}
	if s[1] < '0' || s[1] > '9' || s[2] < '0' || s[2] > '9' {
		return false
	}
	nn := int(s[1]-'0')*10 + int(s[2]-'0')
	return nn >= 11
}

// Next returns the member number following current. An empty or malformed
// current yields First. Successors: "k11"→"k12", "k99"→"l11", "z99"→"k11".
func Next(current string) string {
	if !Valid(current) {
		return First
	}

	letter := current[0]
	nn := int(current[1]-'0')*10 + int(current[2]-'0')

	if nn < 99 {
		return fmt.Sprintf("%c%02d", letter, nn+1)
	}
	if letter == 'z' {
		return First
	}
	return fmt.Sprintf("%c11", letter+1)
}
