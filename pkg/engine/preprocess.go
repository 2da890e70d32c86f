package engine

import "strings"

// kwPrefix marks keyword arguments after preprocessing.
const kwPrefix = "__kw_"

// preprocessSource rewrites job script source into something zygomys reads:
//
//   - :keyword becomes the string "__kw_keyword", so keywords never clash
//     with user symbols;
//   - kebab-case identifiers become snake_case, since zygomys reads a hyphen
//     as subtraction (depth-per-pass inside a keyword is left alone);
//   - ; and ;; line comments become // comments.
//
// String literals, both "..." and `...`, pass through untouched.
func preprocessSource(source string) string {
	p := preprocessor{src: source}
	p.out.Grow(len(source) + len(source)/4)
	for p.i < len(p.src) {
		switch c := p.src[p.i]; {
		case c == '"':
			p.quoted('"', true)
		case c == '`':
			p.quoted('`', false)
		case c == ';':
			p.comment()
		case c == ':' && p.keyword():
		case c == '-' && p.kebab():
			p.out.WriteByte('_')
			p.i++
		default:
			p.out.WriteByte(c)
			p.i++
		}
	}
	return p.out.String()
}

type preprocessor struct {
	src string
	i   int
	out strings.Builder
}

// quoted copies a literal delimited by q, honouring backslash escapes when
// escapes is set. An unterminated literal runs to the end of the source.
func (p *preprocessor) quoted(q byte, escapes bool) {
	start := p.i
	p.i++
	for p.i < len(p.src) && p.src[p.i] != q {
		if escapes && p.src[p.i] == '\\' && p.i+1 < len(p.src) {
			p.i++
		}
		p.i++
	}
	if p.i < len(p.src) {
		p.i++
	}
	p.out.WriteString(p.src[start:p.i])
}

func (p *preprocessor) comment() {
	p.out.WriteString("//")
	for p.i < len(p.src) && p.src[p.i] == ';' {
		p.i++
	}
	end := strings.IndexByte(p.src[p.i:], '\n')
	if end < 0 {
		end = len(p.src) - p.i
	}
	p.out.WriteString(p.src[p.i : p.i+end])
	p.i += end
}

// keyword rewrites :name at p.i and reports whether it did. := is copied
// as is.
func (p *preprocessor) keyword() bool {
	if p.i+1 >= len(p.src) {
		return false
	}
	next := p.src[p.i+1]
	if next == '=' {
		p.out.WriteString(":=")
		p.i += 2
		return true
	}
	if !isLetter(next) {
		return false
	}
	j := p.i + 1
	for j < len(p.src) && isKWChar(p.src[j]) {
		j++
	}
	p.out.WriteByte('"')
	p.out.WriteString(kwPrefix)
	p.out.WriteString(p.src[p.i+1 : j])
	p.out.WriteByte('"')
	p.i = j
	return true
}

// kebab reports whether the hyphen at p.i joins two identifier parts
// rather than being a minus sign.
func (p *preprocessor) kebab() bool {
	return p.i > 0 && p.i+1 < len(p.src) &&
		isIdentChar(p.src[p.i-1]) && isLetter(p.src[p.i+1])
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isIdentChar(c) || c == '-'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
