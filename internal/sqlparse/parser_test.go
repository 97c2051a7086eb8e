package sqlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_Empty(t *testing.T) {
	r := Parse("  ", true, true)
	assert.Equal(t, Empty, r.Kind)
}

func TestParse_SimpleNoParams(t *testing.T) {
	r := Parse("select 1", true, true)
	assert.Equal(t, Simple, r.Kind)
	assert.Equal(t, 0, r.Statements[0].NumParams())
	assert.Equal(t, "select 1", r.Statements[0].Text())
}

func TestParse_SimpleWithParams(t *testing.T) {
	r := Parse("select * from t where a = ? and b = ?", true, true)
	assert.Equal(t, Simple, r.Kind)
	assert.Equal(t, 2, r.Statements[0].NumParams())
	assert.Equal(t, 3, len(r.Statements[0].Fragments))
}

func TestParse_WithoutParameters(t *testing.T) {
	r := Parse("select * from t where a = ?", false, true)
	assert.Equal(t, Simple, r.Kind)
	assert.Equal(t, 0, r.Statements[0].NumParams())
	assert.Equal(t, 1, len(r.Statements[0].Fragments))
}

func TestParse_Composite(t *testing.T) {
	r := Parse("insert into t values (?); select ?;", true, true)
	assert.Equal(t, Composite, r.Kind)
	assert.Len(t, r.Statements, 2)
	assert.Equal(t, []Offset{{Query: 0, Param: 0}, {Query: 1, Param: 0}}, r.Offsets)
}

func TestParse_SemicolonInsideParensIsNotASplit(t *testing.T) {
	r := Parse("select (a; b)", true, true)
	assert.Equal(t, Simple, r.Kind)
}

func TestParse_QuestionMarkInsideSingleQuotedStringIsNotAPlaceholder(t *testing.T) {
	r := Parse("select '?' where a = ?", true, true)
	assert.Equal(t, 1, r.Statements[0].NumParams())
}

func TestParse_QuestionMarkInsideDoubleQuotedIdentifierIsNotAPlaceholder(t *testing.T) {
	r := Parse(`select "col?name" where a = ?`, true, true)
	assert.Equal(t, 1, r.Statements[0].NumParams())
}

func TestParse_LineCommentHidesPlaceholder(t *testing.T) {
	r := Parse("select 1 -- a = ?\nwhere b = ?", true, true)
	assert.Equal(t, 1, r.Statements[0].NumParams())
}

func TestParse_BlockCommentHidesPlaceholder(t *testing.T) {
	r := Parse("select 1 /* a = ? */ where b = ?", true, true)
	assert.Equal(t, 1, r.Statements[0].NumParams())
}

func TestParse_DollarQuotedBodyHidesPlaceholder(t *testing.T) {
	r := Parse("select $tag$literal ? text$tag$ where a = ?", true, true)
	assert.Equal(t, 1, r.Statements[0].NumParams())
}

func TestParse_UnterminatedDollarQuoteConsumesToEnd(t *testing.T) {
	r := Parse("select $tag$unterminated", true, true)
	assert.Equal(t, Simple, r.Kind)
	assert.Equal(t, 0, r.Statements[0].NumParams())
}

func TestParse_BareDollarIsNotATag(t *testing.T) {
	r := Parse("select $1 where a = ?", true, true)
	assert.Equal(t, 1, r.Statements[0].NumParams())
}

func TestParse_BackslashEscapesInNonStandardConformingStrings(t *testing.T) {
	// with standardConformingStrings=false, \' does not end the literal,
	// so the embedded ? stays inside the string and isn't a placeholder
	r := Parse(`select 'it\'s ?' where a = ?`, true, false)
	assert.Equal(t, 1, r.Statements[0].NumParams())
}

func TestParse_BackslashIsLiteralWhenStandardConforming(t *testing.T) {
	// with standardConformingStrings=true, \' does not escape, so the
	// literal ends at the first quote and the next ? is a second
	// placeholder, not still inside the string
	r := Parse(`select 'it\' where a = ? and b = ?`, true, true)
	assert.Equal(t, 2, r.Statements[0].NumParams())
}

func TestParse_TrailingSemicolonDoesNotProduceAnEmptyThirdStatement(t *testing.T) {
	r := Parse("select 1; select 2;", true, true)
	assert.Len(t, r.Statements, 2)
}
