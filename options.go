package rawmap

import (
	"log/slog"

	"github.com/go-mizu/rawmap/internal/logging"
)

// Translation renames a result column before it is matched against the model.
type Translation struct {
	From string `yaml:"from" toml:"from"`
	To   string `yaml:"to" toml:"to"`
}

// Option configures Open, OpenCursor, Query and Get.
type Option func(*options)

type options struct {
	args         []any
	translations []Translation
	normalize    bool
	logger       *slog.Logger
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	return o
}

// Params sets the positional bind parameters passed to the driver. The query
// text is not rewritten; use the placeholder style your driver expects.
func Params(args ...any) Option {
	return func(o *options) { o.args = append(o.args, args...) }
}

// Translate renames the first result column named from to to.
func Translate(from, to string) Option {
	return WithTranslations(Translation{From: from, To: to})
}

// WithTranslations appends renames, applied in order after any added earlier.
// A rename whose source column is absent is ignored.
func WithTranslations(ts ...Translation) Option {
	return func(o *options) { o.translations = append(o.translations, ts...) }
}

// Normalize strips identifier quotes ("x", `x`, [x]) from result column names
// and lower-cases them (ASCII) before translations are applied. The model's
// declared columns are normalized the same way when matching, so a model
// column "FirstName" matches a result column "FIRSTNAME".
func Normalize() Option {
	return func(o *options) { o.normalize = true }
}

// WithLogger sets the logger used for debug tracing. Errors are returned,
// never logged.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
