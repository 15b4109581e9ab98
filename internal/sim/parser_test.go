package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOK(t *testing.T, src string) *astNode {
	t.Helper()
	n, errs := parseEquation(src)
	require.Empty(t, errs, "src=%q", src)
	require.NotNil(t, n)
	return n
}

func TestParser_NumberLiteral(t *testing.T) {
	n := parseOK(t, "42")
	assert.Equal(t, astFloatLit, n.kind)
	assert.Equal(t, float64(42), n.floatVal)
}

func TestParser_Identifier(t *testing.T) {
	n := parseOK(t, "population")
	assert.Equal(t, astIdent, n.kind)
	assert.Equal(t, "population", n.ident)
}

func TestParser_ArithmeticPrecedence(t *testing.T) {
	// 1 + 2 * 3 should parse as 1 + (2 * 3)
	n := parseOK(t, "1 + 2 * 3")
	require.Equal(t, astBinary, n.kind)
	assert.Equal(t, "+", n.binOp)
	require.Equal(t, astBinary, n.rhs.kind)
	assert.Equal(t, "*", n.rhs.binOp)
}

func TestParser_PowerIsRightAssociative(t *testing.T) {
	// a^b^c = a^(b^c)
	n := parseOK(t, "a^b^c")
	require.Equal(t, astBinary, n.kind)
	assert.Equal(t, "^", n.binOp)
	assert.Equal(t, astIdent, n.lhs.kind)
	assert.Equal(t, "a", n.lhs.ident)
	require.Equal(t, astBinary, n.rhs.kind)
	assert.Equal(t, "^", n.rhs.binOp)
	assert.Equal(t, "b", n.rhs.lhs.ident)
	assert.Equal(t, "c", n.rhs.rhs.ident)
}

func TestParser_ComparisonChainLeftAssociative(t *testing.T) {
	// a < b < c = (a<b)<c
	n := parseOK(t, "a<b<c")
	require.Equal(t, astBinary, n.kind)
	assert.Equal(t, "<", n.binOp)
	require.Equal(t, astBinary, n.lhs.kind)
	assert.Equal(t, "<", n.lhs.binOp)
	assert.Equal(t, "a", n.lhs.lhs.ident)
	assert.Equal(t, "b", n.lhs.rhs.ident)
	assert.Equal(t, "c", n.rhs.ident)
}

func TestParser_IfThenElse(t *testing.T) {
	n := parseOK(t, "if x > 0 then 1 else -1")
	require.Equal(t, astIf, n.kind)
	require.NotNil(t, n.cond)
	require.NotNil(t, n.thenExpr)
	require.NotNil(t, n.elseExpr)
}

func TestParser_IfWithoutElse(t *testing.T) {
	n := parseOK(t, "if x then 1")
	require.Equal(t, astIf, n.kind)
	assert.Nil(t, n.elseExpr)
}

func TestParser_FunctionCall(t *testing.T) {
	n := parseOK(t, "pulse(10, 5, 2)")
	require.Equal(t, astCall, n.kind)
	assert.Equal(t, "pulse", n.fn)
	require.Len(t, n.args, 3)
}

func TestParser_ParenGrouping(t *testing.T) {
	n := parseOK(t, "(1 + 2) * 3")
	require.Equal(t, astBinary, n.kind)
	assert.Equal(t, "*", n.binOp)
	require.Equal(t, astParen, n.lhs.kind)
}

func TestParser_UnaryOperators(t *testing.T) {
	n := parseOK(t, "-x")
	require.Equal(t, astUnary, n.kind)
	assert.Equal(t, "-", n.unaryOp)

	n = parseOK(t, "!x")
	require.Equal(t, astUnary, n.kind)
	assert.Equal(t, "!", n.unaryOp)
}

func TestParser_WordOperatorsEquivalentToSymbolic(t *testing.T) {
	a := parseOK(t, "x and y")
	b := parseOK(t, "x & y")
	assert.Equal(t, a.binOp, b.binOp)
}

func TestParser_ErrorsAccumulate(t *testing.T) {
	_, errs := parseEquation("1 +")
	assert.NotEmpty(t, errs)
}

func TestParser_TrailingGarbageIsError(t *testing.T) {
	_, errs := parseEquation("1 2")
	assert.NotEmpty(t, errs)
}

func TestParser_EmptyEquationIsNil(t *testing.T) {
	n, errs := parseEquation("")
	assert.Nil(t, n)
	assert.Empty(t, errs)
}
