package sqlguard

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/xwb1989/sqlparser"
)

var leadingWith = regexp.MustCompile(`(?i)^\s*WITH\b`)

// Validator checks raw SQL against a Ruleset and a per-case table
// allow-list, and injects a row cap when the query carries none.
type Validator struct {
	rules Ruleset
}

func NewValidator(rules Ruleset) *Validator {
	return &Validator{rules: rules}
}

// Validate returns the cleaned SQL that is safe to execute, or a
// *ValidationError describing why the submission was rejected.
//
// A query that references no tables at all (such as SELECT 1) is legal for
// any case. An empty allow-list therefore rejects every table reference but
// not every query; callers gate empty allow-lists before validation.
func (v *Validator) Validate(rawSQL string, allowedTables []string) (string, error) {
	cleaned := stripComments(rawSQL)
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, ";"))
	if cleaned == "" {
		return "", &ValidationError{Rule: RuleEmptyQuery, Message: "query is empty"}
	}

	for _, pattern := range v.rules.ForbiddenPatterns {
		if pattern.Expr.MatchString(cleaned) {
			return "", &ValidationError{Rule: RuleForbiddenPattern, Message: pattern.Message}
		}
	}

	// The parser has no CTE support, so WITH would surface as a useless
	// generic syntax error. Detect it up front for a usable message.
	if leadingWith.MatchString(cleaned) {
		return "", &ValidationError{
			Rule:    RuleWithClause,
			Message: "WITH clauses are not supported, rewrite the CTE as a subquery in FROM",
		}
	}

	stmt, err := parseStatement(cleaned)
	if err != nil {
		return "", &ValidationError{Rule: RuleMalformedQuery, Message: "malformed query"}
	}
	if _, ok := stmt.(sqlparser.SelectStatement); !ok {
		return "", &ValidationError{Rule: RuleNotSelect, Message: "only a single SELECT statement is allowed"}
	}

	if keyword, found := findForbiddenKeyword(cleaned, v.rules.ForbiddenKeywords); found {
		return "", &ValidationError{
			Rule:    RuleForbiddenKeyword,
			Message: fmt.Sprintf("forbidden keyword %s", keyword),
		}
	}

	allowed := make(map[string]struct{}, len(allowedTables))
	for _, table := range allowedTables {
		allowed[strings.ToLower(table)] = struct{}{}
	}
	for _, table := range referencedTables(stmt) {
		if _, ok := allowed[table]; !ok {
			return "", &ValidationError{
				Rule:    RuleTableNotAllowed,
				Message: fmt.Sprintf("table %s is not available in this case", table),
			}
		}
	}

	if !hasLimit(stmt) {
		cleaned = fmt.Sprintf("%s LIMIT %d", cleaned, v.rules.DefaultRowLimit)
	}
	return cleaned, nil
}

// parseStatement shields callers from parser panics on pathological input; a
// panic counts as a parse failure.
func parseStatement(cleaned string) (stmt sqlparser.Statement, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			stmt = nil
			err = fmt.Errorf("parser fault: %v", recovered)
		}
	}()
	return sqlparser.Parse(cleaned)
}

// referencedTables collects table names from FROM clauses, JOINs, subqueries,
// and union branches. Only tables reached through an aliased table expression
// count; bare TableName nodes also appear as column qualifiers and must not
// be mistaken for references.
//
// The parser normalizes a tableless select (SELECT 1) to FROM dual; that
// synthetic name is not a reference. A qualified name keeps its qualifier so
// schema-qualified references never match a bare allow-list entry.
func referencedTables(stmt sqlparser.Statement) []string {
	seen := map[string]struct{}{}
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		aliased, ok := node.(*sqlparser.AliasedTableExpr)
		if !ok {
			return true, nil
		}
		name, ok := aliased.Expr.(sqlparser.TableName)
		if !ok {
			return true, nil
		}
		table := strings.ToLower(name.Name.String())
		if qualifier := strings.ToLower(name.Qualifier.String()); qualifier != "" {
			table = qualifier + "." + table
		} else if table == "dual" {
			return true, nil
		}
		seen[table] = struct{}{}
		return true, nil
	}, stmt)

	tables := make([]string, 0, len(seen))
	for table := range seen {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	return tables
}

// hasLimit reports whether any branch of the statement carries a LIMIT. A
// limit anywhere suppresses injection: appending another at the top level of
// an already limited query would double-limit it.
func hasLimit(stmt sqlparser.Statement) bool {
	found := false
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if limit, ok := node.(*sqlparser.Limit); ok && limit != nil {
			found = true
			return false, nil
		}
		return true, nil
	}, stmt)
	return found
}
