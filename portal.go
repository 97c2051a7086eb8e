package pgexec

// Portal is a named server-side result cursor bound from a prepared
// statement (spec §3). Its query field is a strong reference: a portal
// cannot outlive its statement, and — because the reference is strong —
// the owning statement's reclamation (internal/reclaim) cannot fire
// until every portal bound from it is itself unreachable.
type Portal struct {
	name string
	stmt *preparedStatement
}

func newPortal(name string, stmt *preparedStatement) *Portal {
	return &Portal{name: name, stmt: stmt}
}

// Name returns the server-side portal name ("" for the unnamed portal).
func (p *Portal) Name() string { return p.name }
