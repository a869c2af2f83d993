package rawmap

import "strings"

const selectKeyword = "select"

// ValidateQuery reports whether query is acceptable as a read-only statement.
//
// The check is lexical: after trimming surrounding whitespace, the text must
// begin with the keyword SELECT (any case) followed by end of input or a
// character that cannot continue an identifier. It is not a SQL parser; a
// mutation hidden in a subquery, a second statement, or a comment is not
// detected.
//
// On rejection it returns an *InvalidQueryError, which matches ErrInvalidQuery.
func ValidateQuery(query string) error {
	q := strings.TrimSpace(query)
	if len(q) < len(selectKeyword) || !strings.EqualFold(q[:len(selectKeyword)], selectKeyword) {
		return &InvalidQueryError{Query: query}
	}
	if len(q) > len(selectKeyword) && isIdentByte(q[len(selectKeyword)]) {
		return &InvalidQueryError{Query: query}
	}
	return nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') ||
		c >= 0x80
}
