package pgexec

// The five pending-message FIFOs (spec §3 "Pending queues", §4.2). Their
// order mirrors message order on the wire: whatever processResults reads
// next is matched against the front of the corresponding queue. All are
// cleared the moment ReadyForQuery is observed.

type pendingParseEntry struct {
	stmt *preparedStatement
	name string // name snapshot at send time
}

type pendingDescribeStatementEntry struct {
	stmt         *preparedStatement
	params       *ParameterList
	describeOnly bool
	name         string // name snapshot at send time
}

type pendingExecuteEntry struct {
	stmt   *preparedStatement
	portal *Portal // nil when bound into the unnamed portal
}

// pendingDescribePortalEntry correlates an incoming RowDescription/NoData
// with the statement it describes. alsoStatementDescribeTail is set when
// no standalone DescribePortal was sent because DescribeStatement's own
// reply already ends in this same message (spec §4.2 step 5's skip rule);
// processResults then also closes out the matching pendingDescribeStatement
// entry.
type pendingDescribePortalEntry struct {
	stmt                      *preparedStatement
	alsoStatementDescribeTail bool
}

type pendingQueues struct {
	parses             []pendingParseEntry
	bindDestinations   []*Portal
	describePortals    []pendingDescribePortalEntry
	describeStatements []pendingDescribeStatementEntry
	executes           []pendingExecuteEntry
}

func (q *pendingQueues) pushParse(stmt *preparedStatement, name string) {
	q.parses = append(q.parses, pendingParseEntry{stmt: stmt, name: name})
}

func (q *pendingQueues) popParse() (pendingParseEntry, bool) {
	if len(q.parses) == 0 {
		return pendingParseEntry{}, false
	}
	e := q.parses[0]
	q.parses = q.parses[1:]
	return e, true
}

func (q *pendingQueues) pushBind(p *Portal) {
	q.bindDestinations = append(q.bindDestinations, p)
}

func (q *pendingQueues) popBind() (*Portal, bool) {
	if len(q.bindDestinations) == 0 {
		return nil, false
	}
	p := q.bindDestinations[0]
	q.bindDestinations = q.bindDestinations[1:]
	return p, true
}

func (q *pendingQueues) pushDescribePortal(e pendingDescribePortalEntry) {
	q.describePortals = append(q.describePortals, e)
}

func (q *pendingQueues) popDescribePortal() (pendingDescribePortalEntry, bool) {
	if len(q.describePortals) == 0 {
		return pendingDescribePortalEntry{}, false
	}
	e := q.describePortals[0]
	q.describePortals = q.describePortals[1:]
	return e, true
}

func (q *pendingQueues) pushDescribeStatement(e pendingDescribeStatementEntry) {
	q.describeStatements = append(q.describeStatements, e)
}

// peekDescribeStatement returns the front entry without removing it —
// ParameterDescription (code 't') needs to inspect it before NoData/
// RowDescription decides whether to also pop it.
func (q *pendingQueues) peekDescribeStatement() (pendingDescribeStatementEntry, bool) {
	if len(q.describeStatements) == 0 {
		return pendingDescribeStatementEntry{}, false
	}
	return q.describeStatements[0], true
}

func (q *pendingQueues) popDescribeStatement() (pendingDescribeStatementEntry, bool) {
	if len(q.describeStatements) == 0 {
		return pendingDescribeStatementEntry{}, false
	}
	e := q.describeStatements[0]
	q.describeStatements = q.describeStatements[1:]
	return e, true
}

func (q *pendingQueues) pushExecute(e pendingExecuteEntry) {
	q.executes = append(q.executes, e)
}

func (q *pendingQueues) popExecute() (pendingExecuteEntry, bool) {
	if len(q.executes) == 0 {
		return pendingExecuteEntry{}, false
	}
	e := q.executes[0]
	q.executes = q.executes[1:]
	return e, true
}

// clear drops every queue's remaining entries. Called when ReadyForQuery
// closes a Sync window; any Parse left unpopped at that point failed
// (its ErrorResponse arrived and the rest of the window was drained
// without a matching ParseComplete) and must be un-prepared by the
// caller before clear runs — see unprepareFailedParses in executor.go.
func (q *pendingQueues) clear() {
	q.parses = nil
	q.bindDestinations = nil
	q.describePortals = nil
	q.describeStatements = nil
	q.executes = nil
}
