package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lexAll(src string) []token {
	l := newLexer(src)
	var toks []token
	for {
		t := l.next()
		toks = append(toks, t)
		if t.kind == tokEOF {
			break
		}
	}
	return toks
}

func kinds(toks []token) []tokenKind {
	out := make([]tokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.kind
	}
	return out
}

func texts(toks []token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.text
	}
	return out
}

func TestLexer_ReservedWords(t *testing.T) {
	toks := lexAll("if X then Y else Z")
	assert.Equal(t, []tokenKind{tokReserved, tokIdent, tokReserved, tokIdent, tokReserved, tokIdent, tokEOF}, kinds(toks))
	assert.Equal(t, []string{"if", "x", "then", "y", "else", "z", ""}, texts(toks))
}

func TestLexer_WordOperatorRewrite(t *testing.T) {
	toks := lexAll("a and b or not c mod d")
	assert.Equal(t, []string{"a", "&", "b", "|", "!", "c", "%", "d", ""}, texts(toks))
	assert.Equal(t, tokPunct, toks[1].kind)
	assert.Equal(t, tokPunct, toks[3].kind)
}

func TestLexer_CompositePunctuation(t *testing.T) {
	toks := lexAll("a <= b >= c <> d == e")
	assert.Equal(t, []string{"a", "≤", "b", "≥", "c", "≠", "d", "==", "e", ""}, texts(toks))
}

func TestLexer_Comments(t *testing.T) {
	toks := lexAll("a {this is a comment} + b")
	assert.Equal(t, []string{"a", "+", "b", ""}, texts(toks))
}

func TestLexer_UnterminatedCommentConsumesRest(t *testing.T) {
	toks := lexAll("a {never closes + b")
	assert.Equal(t, []tokenKind{tokIdent, tokEOF}, kinds(toks))
}

func TestLexer_QuotedIdentifierAllowsSpaces(t *testing.T) {
	toks := lexAll(`"my variable" + 1`)
	assert.Equal(t, "my variable", toks[0].text)
	assert.Equal(t, tokIdent, toks[0].kind)
}

func TestLexer_CaseFolding(t *testing.T) {
	toks := lexAll("MyVar")
	assert.Equal(t, "myvar", toks[0].text)
}

func TestLexer_Numbers(t *testing.T) {
	cases := []string{"1", "1.5", "1.", ".5", "1e10", "1.5e2", "1e2.5"}
	for _, c := range cases {
		toks := lexAll(c)
		assert.Equal(t, tokNumber, toks[0].kind, c)
	}
}

func TestLexer_PeekDoesNotConsume(t *testing.T) {
	l := newLexer("a + b")
	first := l.peek()
	second := l.peek()
	assert.Equal(t, first, second)
	assert.Equal(t, first, l.next())
	assert.Equal(t, "+", l.next().text)
}

func TestLexer_EmptyInputIsEOF(t *testing.T) {
	toks := lexAll("")
	assert.Equal(t, []tokenKind{tokEOF}, kinds(toks))
}
