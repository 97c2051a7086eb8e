package pgexec

import (
	"strings"

	"github.com/go-pgexec/pgexec/internal/sqlparse"
)

// OID is a 32-bit PostgreSQL type/object identifier.
type OID uint32

// Unspecified means "let the server infer the type" (spec GLOSSARY).
const Unspecified OID = 0

// Field describes one column of a RowDescription.
type Field struct {
	Name          string
	TableOID      OID
	ColumnAttrNum int16
	TypeOID       OID
	TypeLen       int16
	TypeMod       int32
	Format        int16
}

// preparedStatement is one Simple sub-query: a fixed fragment sequence
// plus whatever the server has told us about it. A Composite Query holds
// several of these; a Simple Query holds exactly one.
type preparedStatement struct {
	fragments []string
	name      string // server-assigned statement name; "" until Parse
	paramOIDs []OID
	fields    []Field

	statementDescribed bool
	portalDescribed     bool
}

func (s *preparedStatement) numParams() int {
	if len(s.fragments) == 0 {
		return 0
	}
	return len(s.fragments) - 1
}

func (s *preparedStatement) fieldsKnown() bool { return s.fields != nil }

// text re-renders the statement with $1..$n placeholders, the form sent
// to the server in a Parse message.
func (s *preparedStatement) text() string {
	if len(s.fragments) == 1 {
		return s.fragments[0]
	}
	var b strings.Builder
	for i, frag := range s.fragments {
		b.WriteString(frag)
		if i < len(s.fragments)-1 {
			b.WriteByte('$')
			b.WriteString(placeholderNumber(i + 1))
		}
	}
	return b.String()
}

func placeholderNumber(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	// rare path: >9 parameters in one statement.
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// Query is an opaque, Parser-produced handle: either one statement
// (Simple) or several (Composite), per spec §3. It is created by
// NewSimpleQuery / NewParameterizedQuery, mutated only by the Executor as
// it learns server-assigned names, OIDs, and fields, and reclaimed
// (server-side Close Statement emitted) once the caller drops its last
// reference — see internal/reclaim.
type Query struct {
	source    string
	composite bool
	stmts     []*preparedStatement
	offsets   []sqlparse.Offset // nil unless composite
}

// NewSimpleQuery parses sql against c's live standard_conforming_strings
// setting, with no `?` placeholder recognition (spec §6, createSimpleQuery;
// spec §4.1 on why the flag must come from the connection rather than a
// fixed default).
func NewSimpleQuery(c *Conn, sql string) *Query {
	return newQuery(sql, false, c.StandardConformingStrings())
}

// NewParameterizedQuery parses sql against c's live
// standard_conforming_strings setting, recognising `?` as a parameter
// placeholder boundary (spec §6, createParameterizedQuery).
func NewParameterizedQuery(c *Conn, sql string) *Query {
	return newQuery(sql, true, c.StandardConformingStrings())
}

func newQuery(sql string, withParameters, standardConformingStrings bool) *Query {
	res := sqlparse.Parse(sql, withParameters, standardConformingStrings)
	q := &Query{source: sql}
	switch res.Kind {
	case sqlparse.Empty:
		q.stmts = []*preparedStatement{{fragments: []string{""}}}
	case sqlparse.Simple:
		q.stmts = []*preparedStatement{{fragments: res.Statements[0].Fragments}}
	case sqlparse.Composite:
		q.composite = true
		q.offsets = res.Offsets
		q.stmts = make([]*preparedStatement, len(res.Statements))
		for i, st := range res.Statements {
			q.stmts[i] = &preparedStatement{fragments: st.Fragments}
		}
	}
	return q
}

// IsComposite reports whether this Query holds more than one statement.
func (q *Query) IsComposite() bool { return q.composite }

// NumStatements reports how many Simple sub-queries this Query holds
// (always 1 for a non-composite Query, including the empty-query
// sentinel).
func (q *Query) NumStatements() int { return len(q.stmts) }

// NumParams reports the total flat parameter count across all
// sub-queries, the width a ParameterList bound to this Query must have.
func (q *Query) NumParams() int {
	n := 0
	for _, s := range q.stmts {
		n += s.numParams()
	}
	return n
}

// offsetFor maps a flat parameter index to (statement index, local
// index within that statement), per spec §3's Composite offset table.
func (q *Query) offsetFor(flatIdx int) (stmtIndex, localIndex int) {
	if !q.composite {
		return 0, flatIdx
	}
	o := q.offsets[flatIdx]
	return o.Query, o.Param
}

// paramsFor slices params down to the flat range owned by sub-query i.
func (q *Query) paramsFor(i int, params *ParameterList) *ParameterList {
	if params == nil {
		return NewParameterList(0)
	}
	var idx []int
	for flat := 0; flat < params.Len(); flat++ {
		si, local := q.offsetFor(flat)
		if si != i {
			continue
		}
		// local is sub-query-relative; idx must preserve that order.
		for len(idx) <= local {
			idx = append(idx, 0)
		}
		idx[local] = flat
	}
	return params.slice(idx)
}
