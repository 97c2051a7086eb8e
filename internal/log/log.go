// Package log is pgexec's ambient diagnostic sink, in the teacher's
// shape of a pair of package-level *log.Logger vars that are nil (silent)
// by default. Unlike the teacher's bare Logf(format, args), every line
// here is tagged with the backend ProcessID of the connection that
// produced it and, for fault events, this driver's own Error Code —
// so a multi-connection process's log output can be told apart without
// grepping for pointer addresses.
package log

import (
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	Logger      *log.Logger
	QueryLogger *log.Logger
)

// Event is one driver-internal diagnostic line. ConnID is the backend
// ProcessID of the connection that produced it (0 if unknown — startup
// is out of this driver's scope). Code is empty for routine
// protocol-flow events and set to an errors.Code string for fault
// events (AddWarning, forceClose).
type Event struct {
	ConnID int32
	Code   string
	Text   string
}

func (e Event) String() string {
	if e.Code == "" {
		return fmt.Sprintf("conn %d: %s", e.ConnID, e.Text)
	}
	return fmt.Sprintf("conn %d: %s: %s", e.ConnID, e.Code, e.Text)
}

// Logf writes a driver-internal diagnostic line. A no-op when Logger is
// nil. code is an errors.Code string, or "" for a routine event.
func Logf(connID int32, code, format string, args ...interface{}) {
	if Logger == nil {
		return
	}
	ev := Event{ConnID: connID, Code: code, Text: fmt.Sprintf(format, args...)}
	Logger.Output(2, ev.String())
}

// LogQuery traces a statement connID is about to parse or send, tagged
// with the file:line of the first caller whose source path does not
// contain this module's path.
func LogQuery(connID int32, sql string) {
	if QueryLogger == nil {
		return
	}
	file, line := fileLine(2)
	QueryLogger.Printf("conn %d %s:%d: %s", connID, file, line, strings.TrimRight(sql, "\t\n"))
}

const packageName = "go-pgexec/pgexec"

// fileLine walks past every frame whose file path contains packageName
// (the module path, so all of this module's packages) to find the
// caller's real file:line, the same skip-loop the teacher's logger uses.
func fileLine(depth int) (string, int) {
	for i := depth; ; i++ {
		_, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, packageName) {
			continue
		}
		return filepath.Base(file), line
	}
	return "", 0
}
