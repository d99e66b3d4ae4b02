// Package resp implements the wire-format pieces of the RESP protocol the
// benchmark core needs: a pure frame builder and an incremental, never-
// blocking reply parser.
package resp

import (
	"strconv"
	"strings"
)

// FormatCommandArgv encodes argv as a RESP multi-bulk frame, one bulk per
// entry, verbatim. The caller owns the returned slice.
func FormatCommandArgv(argv []string) []byte {
	size := 1 + len(strconv.Itoa(len(argv))) + 2
	for _, a := range argv {
		size += 1 + len(strconv.Itoa(len(a))) + 2 + len(a) + 2
	}
	buf := make([]byte, 0, size)
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(argv)), 10)
	buf = append(buf, '\r', '\n')
	for _, a := range argv {
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(a)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, a...)
		buf = append(buf, '\r', '\n')
	}
	return buf
}

// FormatCommand splits template on whitespace, substitutes "%s"/"%d"
// against args in order, and encodes the result as a multi-bulk frame.
// The number of bulks equals the whitespace-separated token count after
// substitution.
func FormatCommand(template string, args ...any) []byte {
	fields := strings.Fields(template)
	argv := make([]string, 0, len(fields))
	ai := 0
	for _, f := range fields {
		argv = append(argv, substitute(f, args, &ai))
	}
	return FormatCommandArgv(argv)
}

// substitute expands at most one %s/%d verb inside a single token. Tokens
// in command templates never carry more than one verb in this core's test
// catalog, so a single linear scan suffices.
func substitute(token string, args []any, ai *int) string {
	idx := strings.IndexByte(token, '%')
	if idx < 0 || idx+1 >= len(token) {
		return token
	}
	verb := token[idx+1]
	if verb != 's' && verb != 'd' {
		return token
	}
	if *ai >= len(args) {
		return token
	}
	val := argToString(args[*ai])
	*ai++
	return token[:idx] + val + token[idx+2:]
}

func argToString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}
