package pgexec

import (
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-pgexec/pgexec/internal/wire"
)

// fakeBackend plays the server side of the wire protocol against the
// net.Pipe half handed to a *Conn under test. It reuses internal/wire's
// framing directly — the byte layout of a backend message is the same
// [type][int32 length incl. self][payload] shape as a frontend one.
type fakeBackend struct {
	nc net.Conn
	rd *wire.Conn
}

func newFakeBackend(nc net.Conn) fakeBackend {
	return fakeBackend{nc: nc, rd: wire.NewConn(nc)}
}

func (f fakeBackend) send(msgType byte, build func(*wire.WriteBuffer)) {
	buf := wire.NewWriteBuffer()
	buf.StartMessage(wire.MsgType(msgType))
	build(buf)
	buf.FinishMessage()
	if _, err := f.nc.Write(buf.Take()); err != nil {
		panic(err)
	}
}

func (f fakeBackend) parseComplete() { f.send('1', func(*wire.WriteBuffer) {}) }
func (f fakeBackend) bindComplete()  { f.send('2', func(*wire.WriteBuffer) {}) }
func (f fakeBackend) noData()        { f.send('n', func(*wire.WriteBuffer) {}) }

func (f fakeBackend) parameterDescription(oids []OID) {
	f.send('t', func(b *wire.WriteBuffer) {
		b.WriteInt16(int16(len(oids)))
		for _, o := range oids {
			b.WriteInt32(int32(o))
		}
	})
}

func (f fakeBackend) rowDescription(fields []Field) {
	f.send('T', func(b *wire.WriteBuffer) {
		b.WriteInt16(int16(len(fields)))
		for _, fl := range fields {
			b.WriteString(fl.Name)
			b.WriteInt32(int32(fl.TableOID))
			b.WriteInt16(fl.ColumnAttrNum)
			b.WriteInt32(int32(fl.TypeOID))
			b.WriteInt16(fl.TypeLen)
			b.WriteInt32(fl.TypeMod)
			b.WriteInt16(fl.Format)
		}
	})
}

func (f fakeBackend) dataRow(cols ...string) {
	f.send('D', func(b *wire.WriteBuffer) {
		b.WriteInt16(int16(len(cols)))
		for _, c := range cols {
			b.WriteInt32(int32(len(c)))
			b.WriteBytes([]byte(c))
		}
	})
}

func (f fakeBackend) commandComplete(tag string) {
	f.send('C', func(b *wire.WriteBuffer) { b.WriteString(tag) })
}

func (f fakeBackend) portalSuspended() { f.send('s', func(*wire.WriteBuffer) {}) }

func (f fakeBackend) readyForQuery(status byte) {
	f.send('Z', func(b *wire.WriteBuffer) { b.WriteByte(status) })
}

func (f fakeBackend) errorResponse(msg string) {
	f.send('E', func(b *wire.WriteBuffer) {
		b.WriteByte('S')
		b.WriteString("ERROR")
		b.WriteByte('C')
		b.WriteString("XX000")
		b.WriteByte('M')
		b.WriteString(msg)
		b.WriteByte(0)
	})
}

func (f fakeBackend) copyInResponse() {
	f.send('G', func(b *wire.WriteBuffer) {
		b.WriteByte(0)
		b.WriteInt16(0)
	})
}

func (f fakeBackend) copyOutResponse() {
	f.send('H', func(b *wire.WriteBuffer) {
		b.WriteByte(0)
		b.WriteInt16(0)
	})
}

func (f fakeBackend) copyData(data []byte) {
	f.send('d', func(b *wire.WriteBuffer) { b.WriteBytes(data) })
}

// expect reads the next frontend message and asserts its type code,
// returning the raw payload for tests that want to inspect it further.
func (f fakeBackend) expect(want byte) []byte {
	code, n, err := f.rd.ReadMsgType()
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	ExpectWithOffset(1, byte(code)).To(Equal(want), "unexpected frontend message code")
	payload, err := f.rd.ReadN(n)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return cp
}

// resultCall/statusCall record one HandleResultRows/HandleCommandStatus
// invocation for later assertion.
type resultCall struct {
	fields []Field
	tuples [][][]byte
	cursor *Portal
}

type statusCall struct {
	status      string
	updateCount int64
	insertOID   OID
}

type recordingHandler struct {
	rows      []resultCall
	statuses  []statusCall
	warnings  []*Error
	errors    []*Error
	completed bool
}

func (h *recordingHandler) HandleResultRows(stmt *preparedStatement, fields []Field, tuples [][][]byte, cursor *Portal) {
	h.rows = append(h.rows, resultCall{fields: fields, tuples: tuples, cursor: cursor})
}

func (h *recordingHandler) HandleCommandStatus(status string, updateCount int64, insertOID OID) {
	h.statuses = append(h.statuses, statusCall{status: status, updateCount: updateCount, insertOID: insertOID})
}

func (h *recordingHandler) HandleWarning(warn *Error) { h.warnings = append(h.warnings, warn) }
func (h *recordingHandler) HandleError(err *Error)    { h.errors = append(h.errors, err) }
func (h *recordingHandler) HandleCompletion()         { h.completed = true }

func newPipeConn() (*Conn, net.Conn) {
	client, server := net.Pipe()
	return NewConn(client, Options{}), server
}

var _ = Describe("Execute", func() {
	It("delivers rows, then command status, then completion for a simple SELECT", func() {
		conn, server := newPipeConn()
		defer server.Close()

		serverErr := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			defer func() { serverErr <- nil }()
			be := newFakeBackend(server)
			be.expect('P') // Parse
			be.expect('B') // Bind
			be.expect('D') // Describe portal
			be.expect('E') // Execute
			be.expect('S') // Sync

			be.parseComplete()
			be.bindComplete()
			be.rowDescription([]Field{{Name: "?column?", TypeOID: 23, TypeLen: 4}})
			be.dataRow("1")
			be.commandComplete("SELECT 1")
			be.readyForQuery('I')
		}()

		handler := &recordingHandler{}
		query := NewSimpleQuery(conn, "SELECT 1")
		params := NewParameterList(0)

		err := conn.Execute(query, params, handler, 0, 0, SuppressBegin)
		Eventually(serverErr).Should(Receive(BeNil()))

		Expect(err).To(BeNil())
		Expect(handler.completed).To(BeTrue())
		Expect(handler.errors).To(BeEmpty())

		Expect(handler.rows).To(HaveLen(1))
		Expect(handler.rows[0].fields).To(HaveLen(1))
		Expect(handler.rows[0].fields[0].Name).To(Equal("?column?"))
		Expect(handler.rows[0].tuples).To(Equal([][][]byte{{[]byte("1")}}))
		Expect(handler.rows[0].cursor).To(BeNil())

		Expect(handler.statuses).To(HaveLen(1))
		Expect(handler.statuses[0].status).To(Equal("SELECT 1"))
		Expect(handler.statuses[0].updateCount).To(Equal(int64(0)))
	})

	It("sends DescribeStatement and records the server-described OIDs when every parameter is Unspecified", func() {
		conn, server := newPipeConn()
		defer server.Close()

		serverErr := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			defer func() { serverErr <- nil }()
			be := newFakeBackend(server)
			be.expect('P') // Parse
			be.expect('D') // Describe statement
			be.expect('B') // Bind
			be.expect('E') // Execute
			be.expect('S') // Sync

			be.parseComplete()
			be.parameterDescription([]OID{23})
			be.noData()
			be.bindComplete()
			be.commandComplete("INSERT 0 1")
			be.readyForQuery('I')
		}()

		handler := &recordingHandler{}
		query := NewParameterizedQuery(conn, "insert into t values (?)")
		params := NewParameterList(1)
		Expect(params.SetText(0, Unspecified, "42")).To(Succeed())

		err := conn.Execute(query, params, handler, 0, 0, NoResults|SuppressBegin)
		Eventually(serverErr).Should(Receive(BeNil()))

		Expect(err).To(BeNil())
		Expect(handler.statuses).To(HaveLen(1))
		Expect(handler.statuses[0]).To(Equal(statusCall{status: "INSERT 0 1", updateCount: 1, insertOID: 0}))
		Expect(query.stmts[0].paramOIDs).To(Equal([]OID{23}))
	})

	It("skips Parse on a second execute with the same OID vector", func() {
		conn, server := newPipeConn()
		defer server.Close()

		query := NewSimpleQuery(conn, "SELECT 1")
		params := NewParameterList(0)

		serverErr := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			defer func() { serverErr <- nil }()
			be := newFakeBackend(server)
			// First execute: full pipeline.
			be.expect('P')
			be.expect('B')
			be.expect('D')
			be.expect('E')
			be.expect('S')
			be.parseComplete()
			be.bindComplete()
			be.rowDescription([]Field{{Name: "?column?", TypeOID: 23, TypeLen: 4}})
			be.dataRow("1")
			be.commandComplete("SELECT 1")
			be.readyForQuery('I')

			// Second execute with the same Query/OIDs: no Parse, no
			// Describe (fields are already known), straight to Bind.
			be.expect('B')
			be.expect('E')
			be.expect('S')
			be.bindComplete()
			be.dataRow("1")
			be.commandComplete("SELECT 1")
			be.readyForQuery('I')
		}()

		h1 := &recordingHandler{}
		Expect(conn.Execute(query, params, h1, 0, 0, SuppressBegin)).To(BeNil())

		h2 := &recordingHandler{}
		Expect(conn.Execute(query, params, h2, 0, 0, SuppressBegin)).To(BeNil())

		Eventually(serverErr).Should(Receive(BeNil()))
		Expect(h2.statuses).To(HaveLen(1))
	})

	It("emits BEGIN iff the transaction state is idle and SuppressBegin is absent", func() {
		conn, server := newPipeConn()
		defer server.Close()

		serverErr := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			defer func() { serverErr <- nil }()
			be := newFakeBackend(server)

			// Implicit BEGIN: ONESHOT|NO_METADATA|NO_RESULTS -> P, B, E
			// (no Describe, unnamed statement and portal).
			beginParse := be.expect('P')
			Expect(string(beginParse[1:6])).To(Equal("BEGIN")) // name="" then text "BEGIN"
			be.expect('B')
			be.expect('E')

			// Main statement.
			be.expect('P')
			be.expect('B')
			be.expect('D')
			be.expect('E')
			be.expect('S')

			be.parseComplete() // begin's ParseComplete
			be.bindComplete()  // begin's BindComplete
			be.commandComplete("BEGIN")

			be.parseComplete()
			be.bindComplete()
			be.rowDescription([]Field{{Name: "?column?", TypeOID: 23, TypeLen: 4}})
			be.dataRow("1")
			be.commandComplete("SELECT 1")
			be.readyForQuery('T')
		}()

		handler := &recordingHandler{}
		query := NewSimpleQuery(conn, "SELECT 1")
		params := NewParameterList(0)

		err := conn.Execute(query, params, handler, 0, 0, 0)
		Eventually(serverErr).Should(Receive(BeNil()))

		Expect(err).To(BeNil())
		// The shim handler consumed BEGIN's own CommandComplete; only the
		// real statement's status reaches the caller's handler.
		Expect(handler.statuses).To(HaveLen(1))
		Expect(handler.statuses[0].status).To(Equal("SELECT 1"))
		Expect(conn.TransactionState()).To(Equal(TxOpen))
	})

	It("leaves the portal open on PortalSuspended and lets Fetch continue it", func() {
		conn, server := newPipeConn()
		defer server.Close()

		serverErr := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			defer func() { serverErr <- nil }()
			be := newFakeBackend(server)
			be.expect('P') // Parse
			be.expect('B') // Bind
			be.expect('D') // Describe portal
			be.expect('E') // Execute
			be.expect('S')

			be.parseComplete()
			be.bindComplete()
			be.rowDescription([]Field{{Name: "n", TypeOID: 23, TypeLen: 4}})
			be.dataRow("1")
			be.dataRow("2")
			be.portalSuspended()
			be.readyForQuery('I')

			// Fetch continuation: just an Execute + Sync, no re-Parse/Bind.
			be.expect('E')
			be.expect('S')
			be.dataRow("3")
			be.portalSuspended()
			be.readyForQuery('I')
		}()

		handler := &recordingHandler{}
		query := NewSimpleQuery(conn, "SELECT * FROM big")
		params := NewParameterList(0)

		Expect(conn.Execute(query, params, handler, 0, 2, ForwardCursor|SuppressBegin)).To(BeNil())
		Expect(handler.rows).To(HaveLen(1))
		Expect(handler.rows[0].cursor).NotTo(BeNil())
		Expect(handler.rows[0].tuples).To(HaveLen(2))

		cursor := handler.rows[0].cursor
		Expect(conn.Fetch(cursor, handler, 2)).To(BeNil())
		Eventually(serverErr).Should(Receive(BeNil()))

		Expect(handler.rows).To(HaveLen(2))
		Expect(handler.rows[1].cursor).NotTo(BeNil())
		Expect(handler.rows[1].tuples).To(HaveLen(1))
	})

	It("surfaces an ErrorResponse through HandleError after draining to ReadyForQuery", func() {
		conn, server := newPipeConn()
		defer server.Close()

		serverErr := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			defer func() { serverErr <- nil }()
			be := newFakeBackend(server)
			be.expect('P')
			be.expect('B')
			be.expect('D')
			be.expect('E')
			be.expect('S')

			be.parseComplete()
			be.errorResponse("relation \"missing\" does not exist")
			be.readyForQuery('I')
		}()

		handler := &recordingHandler{}
		query := NewSimpleQuery(conn, "SELECT * FROM missing")
		params := NewParameterList(0)

		err := conn.Execute(query, params, handler, 0, 0, SuppressBegin)
		Eventually(serverErr).Should(Receive(BeNil()))

		Expect(err).NotTo(BeNil())
		Expect(handler.errors).To(HaveLen(1))
		Expect(handler.completed).To(BeTrue())
	})
})
