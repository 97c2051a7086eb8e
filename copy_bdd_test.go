package pgexec

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-pgexec/pgexec/internal/wire"
)

func (f fakeBackend) copyDoneFrame() { f.send('c', func(*wire.WriteBuffer) {}) }

var _ = Describe("COPY", func() {
	It("drives StartCopy/WriteToCopy/EndCopy through a CopyIn session", func() {
		conn, server := newPipeConn()
		defer server.Close()

		serverErr := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			defer func() { serverErr <- nil }()
			be := newFakeBackend(server)
			be.expect('Q') // StartCopy's simple Query
			be.copyInResponse()

			be.expect('d') // first WriteToCopy chunk
			be.expect('d') // second WriteToCopy chunk
			be.expect('c') // EndCopy's CopyDone

			be.commandComplete("COPY 2")
			be.readyForQuery('I')
		}()

		op, err := conn.StartCopy("COPY t FROM STDIN", true)
		Expect(err).To(BeNil())
		Expect(op.Out()).To(BeFalse())

		Expect(op.WriteToCopy([]byte("1,a\n"))).To(BeNil())
		Expect(op.WriteToCopy([]byte("2,b\n"))).To(BeNil())

		rows, ferr := op.EndCopy()
		Eventually(serverErr).Should(Receive(BeNil()))

		Expect(ferr).To(BeNil())
		Expect(rows).To(Equal(int64(2)))
		Expect(conn.TransactionState()).To(Equal(TxIdle))
	})

	It("drains CopyOut chunks via ReadFromCopy until the server signals completion", func() {
		conn, server := newPipeConn()
		defer server.Close()

		serverErr := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			defer func() { serverErr <- nil }()
			be := newFakeBackend(server)
			be.expect('Q') // StartCopy's simple Query
			be.copyOutResponse()

			be.copyData([]byte("r1\n"))
			be.copyData([]byte("r2\n"))
			be.copyDoneFrame()
			be.commandComplete("COPY 2")
			be.readyForQuery('I')
		}()

		op, err := conn.StartCopy("COPY t TO STDOUT", true)
		Expect(err).To(BeNil())
		Expect(op.Out()).To(BeTrue())

		chunk1, err1 := op.ReadFromCopy()
		Expect(err1).To(BeNil())
		Expect(chunk1).To(Equal([]byte("r1\n")))

		chunk2, err2 := op.ReadFromCopy()
		Expect(err2).To(BeNil())
		Expect(chunk2).To(Equal([]byte("r2\n")))

		chunk3, err3 := op.ReadFromCopy()
		Eventually(serverErr).Should(Receive(BeNil()))

		Expect(err3).To(BeNil())
		Expect(chunk3).To(BeNil())
		Expect(conn.TransactionState()).To(Equal(TxIdle))
	})
})
