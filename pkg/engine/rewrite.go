package engine

import (
	"strconv"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/pkg/errors"
)

// kwPrefix marks keyword strings produced by rewriteSource.
const kwPrefix = "__kw_"

// rewriteSource prepares a script for zygomys. A run of semicolons starts
// a // comment, and :name becomes the string "__kw_name". String literals
// and comment text are copied unchanged.
func rewriteSource(src string) string {
	var sb strings.Builder
	sb.Grow(len(src) + len(src)/8)
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '"':
			j := stringEnd(src, i)
			sb.WriteString(src[i:j])
			i = j
		case c == ';':
			for i < len(src) && src[i] == ';' {
				i++
			}
			j := strings.IndexByte(src[i:], '\n')
			if j < 0 {
				j = len(src) - i
			}
			sb.WriteString("//")
			sb.WriteString(src[i : i+j])
			i += j
		case c == ':' && i+1 < len(src) && isLetter(src[i+1]):
			j := i + 1
			for j < len(src) && isKeywordChar(src[j]) {
				j++
			}
			sb.WriteString(strconv.Quote(kwPrefix + src[i+1:j]))
			i = j
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}

// stringEnd returns the index just past the string literal opening at i.
func stringEnd(src string, i int) int {
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(src)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKeywordChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

// keyword returns the name of a rewritten keyword string.
func keyword(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return strings.TrimPrefix(str.S, kwPrefix), true
}

// keywordArgs reads args as :name value pairs. Names outside allowed,
// positional arguments and keywords without a value are errors.
func keywordArgs(args []zygo.Sexp, allowed ...string) (map[string]zygo.Sexp, error) {
	out := make(map[string]zygo.Sexp, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		name, ok := keyword(args[i])
		if !ok {
			return nil, errors.Errorf("unexpected argument %s, want :%s", args[i].SexpString(nil), strings.Join(allowed, " or :"))
		}
		known := false
		for _, a := range allowed {
			known = known || a == name
		}
		if !known {
			return nil, errors.Errorf("unknown keyword :%s", name)
		}
		if i+1 >= len(args) {
			return nil, errors.Errorf(":%s needs a value", name)
		}
		out[name] = args[i+1]
	}
	return out, nil
}
