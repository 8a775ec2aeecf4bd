package wikitext

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// ByteRenderer accumulates rendered output. Render accepts a mix of strings,
// byte slices, bytes, runes and integers so markup can be written in one call.
type ByteRenderer struct {
	buf []byte
}

// Render appends the elements to the buffer, in order.
func (br *ByteRenderer) Render(elems ...any) {
	for _, e := range elems {
		switch v := e.(type) {
		case string:
			br.buf = append(br.buf, v...)
		case []byte:
			br.buf = append(br.buf, v...)
		case byte:
			br.buf = append(br.buf, v)
		case rune:
			br.buf = utf8.AppendRune(br.buf, v)
		case int:
			br.buf = strconv.AppendInt(br.buf, int64(v), 10)
		case fmt.Stringer:
			br.buf = append(br.buf, v.String()...)
		default:
			br.buf = fmt.Appendf(br.buf, "%v", v)
		}
	}
}

func (br *ByteRenderer) String() string {
	return string(br.buf)
}
