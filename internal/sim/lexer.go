package sim

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lexLowerer = cases.Lower(language.Und)

// lexer turns an equation string into a forward-only stream of tokens with
// one-token lookahead. The source is lower-cased (Unicode-aware) once at
// construction, so identifiers are matched case-insensitively by construction
// rather than at comparison time.
type lexer struct {
	src  []rune
	pos  int
	line int
	col  int

	peeked    *token
	haveToken bool
}

func newLexer(src string) *lexer {
	return &lexer{
		src:  []rune(lexLowerer.String(src)),
		line: 1,
		col:  1,
	}
}

// peek returns the next token without consuming it.
func (l *lexer) peek() token {
	if !l.haveToken {
		l.peeked = l.lexPointer()
		l.haveToken = true
	}
	return *l.peeked
}

// next consumes and returns the next token.
func (l *lexer) next() token {
	t := l.peek()
	l.haveToken = false
	l.peeked = nil
	return t
}

func (l *lexer) lexPointer() *token {
	t := l.lex()
	return &t
}

func (l *lexer) cur() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) at(off int) rune {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *lexer) advance() rune {
	r := l.cur()
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.src) {
		r := l.cur()
		if unicode.IsSpace(r) {
			l.advance()
			continue
		}
		if r == '{' {
			// comments run to a matching '}'; unterminated comments silently
			// consume the remainder of input.
			for l.pos < len(l.src) && l.cur() != '}' {
				l.advance()
			}
			if l.pos < len(l.src) {
				l.advance() // consume closing '}'
			}
			continue
		}
		break
	}
}

func (l *lexer) lex() token {
	l.skipWhitespaceAndComments()

	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: l.line, col: l.col}
	}

	startLine, startCol := l.line, l.col
	r := l.cur()

	switch {
	case unicode.IsDigit(r) || (r == '.' && unicode.IsDigit(l.at(1))):
		return l.lexNumber(startLine, startCol)
	case unicode.IsLetter(r) || r == '_' || r == '"':
		return l.lexIdentOrWord(startLine, startCol)
	default:
		return l.lexPunct(startLine, startCol)
	}
}

// lexNumber matches approximately \d*(\.\d*)?(e\d*(\.\d*)?)?, greedy; a
// second '.' or 'e' ends the token.
func (l *lexer) lexNumber(line, col int) token {
	start := l.pos

	for unicode.IsDigit(l.cur()) {
		l.advance()
	}
	if l.cur() == '.' {
		l.advance()
		for unicode.IsDigit(l.cur()) {
			l.advance()
		}
	}
	if l.cur() == 'e' {
		// only consume as exponent marker if what follows can start a number
		if unicode.IsDigit(l.at(1)) || (l.at(1) == '.' && unicode.IsDigit(l.at(2))) {
			l.advance()
			for unicode.IsDigit(l.cur()) {
				l.advance()
			}
			if l.cur() == '.' {
				l.advance()
				for unicode.IsDigit(l.cur()) {
					l.advance()
				}
			}
		}
	}

	text := string(l.src[start:l.pos])
	return token{kind: tokNumber, text: text, line: line, col: col}
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// lexIdentOrWord reads a bare or double-quoted identifier, then classifies it
// as RESERVED, a word operator (rewritten to PUNCT), or plain IDENT.
func (l *lexer) lexIdentOrWord(line, col int) token {
	if l.cur() == '"' {
		l.advance() // opening quote
		start := l.pos
		for l.pos < len(l.src) && l.cur() != '"' {
			l.advance()
		}
		text := string(l.src[start:l.pos])
		if l.pos < len(l.src) {
			l.advance() // closing quote
		}
		return token{kind: tokIdent, text: text, line: line, col: col}
	}

	start := l.pos
	for isIdentRune(l.cur()) {
		l.advance()
	}
	text := string(l.src[start:l.pos])

	if reservedWords[text] {
		return token{kind: tokReserved, text: text, line: line, col: col}
	}
	if rewrite, ok := wordOperators[text]; ok {
		return token{kind: tokPunct, text: rewrite, line: line, col: col}
	}
	return token{kind: tokIdent, text: text, line: line, col: col}
}

// lexPunct recognizes the multi-rune comparison forms and rewrites them, and
// otherwise returns the single rune as its own token.
func (l *lexer) lexPunct(line, col int) token {
	r := l.advance()

	switch r {
	case '<':
		if l.cur() == '=' {
			l.advance()
			return token{kind: tokPunct, text: "≤", line: line, col: col}
		}
		if l.cur() == '>' {
			l.advance()
			return token{kind: tokPunct, text: "≠", line: line, col: col}
		}
		return token{kind: tokPunct, text: "<", line: line, col: col}
	case '>':
		if l.cur() == '=' {
			l.advance()
			return token{kind: tokPunct, text: "≥", line: line, col: col}
		}
		return token{kind: tokPunct, text: ">", line: line, col: col}
	case '=':
		if l.cur() == '=' {
			l.advance()
			return token{kind: tokPunct, text: "==", line: line, col: col}
		}
		return token{kind: tokPunct, text: "=", line: line, col: col}
	default:
		return token{kind: tokPunct, text: string(r), line: line, col: col}
	}
}
