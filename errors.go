package rawmap

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidQuery is matched (via errors.Is) by every *InvalidQueryError.
var ErrInvalidQuery = errors.New("rawmap: only select queries are supported")

// ErrInsufficientColumns is matched (via errors.Is) by every *InsufficientColumnsError.
var ErrInsufficientColumns = errors.New("rawmap: query does not contain all of the needed columns")

// ErrSizeUnavailable is returned by Len when the cursor cannot report its row
// count and no Querier is available to count with.
var ErrSizeUnavailable = errors.New("rawmap: result size unavailable")

// InvalidQueryError is returned by Open and ValidateQuery when the query text
// does not start with the select keyword. Nothing has been executed.
type InvalidQueryError struct {
	Query string
}

func (e *InvalidQueryError) Error() string {
	q := strings.TrimSpace(e.Query)
	if len(q) > 40 {
		n := 40
		for n > 0 && !utf8.RuneStart(q[n]) {
			n--
		}
		q = q[:n] + "..."
	}
	return fmt.Sprintf("%s: %q", ErrInvalidQuery.Error(), q)
}

func (e *InvalidQueryError) Is(target error) bool { return target == ErrInvalidQuery }

// InsufficientColumnsError is returned when a row lacks columns the model
// declares. Missing lists them in model declaration order.
type InsufficientColumnsError struct {
	Model   string
	Missing []string
}

func (e *InsufficientColumnsError) Error() string {
	msg := ErrInsufficientColumns.Error()
	if e.Model != "" {
		msg += " of model " + e.Model
	}
	return msg + "; missing: " + strings.Join(e.Missing, ", ")
}

func (e *InsufficientColumnsError) Is(target error) bool { return target == ErrInsufficientColumns }
