package cases

import "strings"

// NormalizeAnswer canonicalizes a submission so that casing and incidental
// whitespace never decide correctness: trim, lowercase, collapse internal
// whitespace runs to a single space.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.Join(strings.Fields(answer), " "))
}
