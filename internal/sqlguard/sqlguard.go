// Package sqlguard decides whether an untrusted SQL string is safe to run
// against the shared investigations store. Two independent layers guard the
// allow-list boundary: a regex pre-filter over the raw text and a structural
// check over the parse tree. Ambiguity fails closed.
package sqlguard

import "regexp"

// Rule identifiers carried on ValidationError, also used as metric labels.
const (
	RuleEmptyQuery       = "empty_query"
	RuleForbiddenPattern = "forbidden_pattern"
	RuleWithClause       = "with_clause"
	RuleMalformedQuery   = "malformed_query"
	RuleNotSelect        = "not_select"
	RuleForbiddenKeyword = "forbidden_keyword"
	RuleTableNotAllowed  = "table_not_allowed"
)

// ValidationError reports a rejected submission. Message is learner-facing
// and names the violated rule without leaking anything outside the case's
// own allow-list.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Pattern is a raw-text rejection rule applied after comment stripping.
type Pattern struct {
	Name    string
	Expr    *regexp.Regexp
	Message string
}

// Ruleset is the immutable validator configuration. Constructed once at
// startup; tests substitute their own.
type Ruleset struct {
	ForbiddenKeywords []string
	ForbiddenPatterns []Pattern
	DefaultRowLimit   int
}

// DefaultRuleset returns the shipped rejection rules.
func DefaultRuleset(rowLimit int) Ruleset {
	if rowLimit <= 0 {
		rowLimit = 1000
	}
	return Ruleset{
		ForbiddenKeywords: []string{
			"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "TRUNCATE",
			"CREATE", "REPLACE", "GRANT", "REVOKE", "INTO", "MERGE",
			"CALL", "EXEC",
		},
		ForbiddenPatterns: []Pattern{
			{
				Name:    "statement_separator",
				Expr:    regexp.MustCompile(`;`),
				Message: "multiple statements are not allowed",
			},
			{
				Name:    "line_comment",
				Expr:    regexp.MustCompile(`--`),
				Message: "comments are not allowed",
			},
			{
				Name:    "block_comment_open",
				Expr:    regexp.MustCompile(`/\*`),
				Message: "comments are not allowed",
			},
			{
				Name:    "block_comment_close",
				Expr:    regexp.MustCompile(`\*/`),
				Message: "comments are not allowed",
			},
			{
				Name:    "into_keyword",
				Expr:    regexp.MustCompile(`(?i)\bINTO\b`),
				Message: "INTO is not allowed",
			},
			{
				Name:    "recursive_keyword",
				Expr:    regexp.MustCompile(`(?i)\bRECURSIVE\b`),
				Message: "RECURSIVE is not allowed",
			},
		},
		DefaultRowLimit: rowLimit,
	}
}
