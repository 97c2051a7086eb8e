package pgexec

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// Entry point for the ginkgo specs in executor_bdd_test.go and
// copy_bdd_test.go. query_test.go's plain table tests live alongside this
// in the same package and run independently under `go test`.
func TestPgexecSpecs(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "pgexec executor/COPY pipeline suite")
}
