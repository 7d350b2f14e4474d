package sqlguard

import "strings"

// stripComments removes -- line comments and /* */ block comments while
// leaving string and quoted-identifier literals untouched. A block comment
// becomes a single space so adjacent tokens stay separated.
func stripComments(input string) string {
	var out strings.Builder
	out.Grow(len(input))

	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateBacktick
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	for i := 0; i < len(input); i++ {
		c := input[i]
		switch state {
		case stateNormal:
			switch {
			case c == '\'':
				state = stateSingleQuote
				out.WriteByte(c)
			case c == '"':
				state = stateDoubleQuote
				out.WriteByte(c)
			case c == '`':
				state = stateBacktick
				out.WriteByte(c)
			case c == '-' && i+1 < len(input) && input[i+1] == '-':
				state = stateLineComment
				i++
			case c == '/' && i+1 < len(input) && input[i+1] == '*':
				state = stateBlockComment
				i++
			default:
				out.WriteByte(c)
			}
		case stateSingleQuote:
			out.WriteByte(c)
			if c == '\'' {
				state = stateNormal
			}
		case stateDoubleQuote:
			out.WriteByte(c)
			if c == '"' {
				state = stateNormal
			}
		case stateBacktick:
			out.WriteByte(c)
			if c == '`' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && i+1 < len(input) && input[i+1] == '/' {
				state = stateNormal
				out.WriteByte(' ')
				i++
			}
		}
	}
	return out.String()
}

// findForbiddenKeyword scans the cleaned text for a forbidden word outside
// string and quoted-identifier literals. Identifier characters bind into one
// word, so insert_log never matches INSERT.
func findForbiddenKeyword(cleaned string, keywords []string) (string, bool) {
	forbidden := make(map[string]struct{}, len(keywords))
	for _, keyword := range keywords {
		forbidden[strings.ToUpper(keyword)] = struct{}{}
	}

	var word strings.Builder
	check := func() (string, bool) {
		if word.Len() == 0 {
			return "", false
		}
		candidate := strings.ToUpper(word.String())
		word.Reset()
		_, found := forbidden[candidate]
		return candidate, found
	}

	var quote byte
	for i := 0; i < len(cleaned); i++ {
		c := cleaned[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"' || c == '`':
			if keyword, found := check(); found {
				return keyword, true
			}
			quote = c
		case isWordByte(c):
			word.WriteByte(c)
		default:
			if keyword, found := check(); found {
				return keyword, true
			}
		}
	}
	return check()
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
