package log

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// StacktraceAttrKey is the field name under which the stack of a
// cockroachdb/errors value is emitted.
const StacktraceAttrKey = "stacktrace"

// installErrorStackMarshaler makes zerolog's Stack() emit the stack recorded
// by cockroachdb/errors.WithStack.
func installErrorStackMarshaler() {
	zerolog.ErrorStackFieldName = StacktraceAttrKey
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		if st := extractStacktrace(err); st != "" {
			return st
		}
		return nil
	}
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
