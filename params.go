package pgexec

import (
	"reflect"
	"strconv"

	"github.com/go-pg/zerochecker"
)

// paramKind records what, if anything, has been placed into a parameter
// slot. The zero value, paramUnset, is what a freshly allocated
// ParameterList starts with — intentionally, so the zerochecker-based
// IsUnset below can recognise it the same way urlstruct recognises a
// struct field nobody ever touched.
type paramKind int

const (
	paramUnset paramKind = iota
	paramNull
	paramText
	paramBinary
)

var isZeroParamKind = zerochecker.Checker(reflect.TypeOf(paramKind(0)))

// ParameterValue is one slot of a ParameterList: a value (null, text
// bytes, or binary bytes), a declared OID (Unspecified meaning "server
// may infer"), and whether it is to be sent in binary format.
type ParameterValue struct {
	kind paramKind
	oid  OID
	data []byte
}

// OID reports the declared type OID for this slot.
func (v ParameterValue) OID() OID { return v.oid }

// IsNull reports whether the slot was explicitly bound to SQL NULL.
func (v ParameterValue) IsNull() bool { return v.kind == paramNull }

// Binary reports whether the slot, if set, carries binary-format bytes.
func (v ParameterValue) Binary() bool { return v.kind == paramBinary }

// Bytes returns the wire payload for a non-null slot: nil for a NULL
// slot (callers must check IsNull first to distinguish NULL from an
// empty value).
func (v ParameterValue) Bytes() []byte { return v.data }

// ParameterList is the ordered collection of parameter slots bound to a
// Query before Bind. See spec §3: every slot must be either explicitly
// set or explicitly declared null before execute (but not before a
// describe-only pass).
type ParameterList struct {
	values []ParameterValue
}

// NewParameterList allocates a list of n unset slots.
func NewParameterList(n int) *ParameterList {
	return &ParameterList{values: make([]ParameterValue, n)}
}

// NewFastpathParameters is the fastpath-call flavor of the same
// allocation (spec §6, createFastpathParameters): the same unset slots,
// which may be set to text, binary, or NULL values like any other list.
func NewFastpathParameters(n int) *ParameterList {
	return NewParameterList(n)
}

// Len reports the number of slots.
func (p *ParameterList) Len() int { return len(p.values) }

// SetNull declares slot i as SQL NULL with the given type OID.
func (p *ParameterList) SetNull(i int, oid OID) {
	p.values[i] = ParameterValue{kind: paramNull, oid: oid}
}

// SetText binds slot i to a text-format value. The bytes must be valid
// UTF-8 (spec §3/§4.5/§10.3, the session guard's UTF-8 invariant applied
// eagerly at set-time instead of deferred to a server round-trip).
func (p *ParameterList) SetText(i int, oid OID, text string) error {
	return p.SetTextBytes(i, oid, []byte(text))
}

// SetTextBytes is SetText for callers that already hold a []byte rather
// than a string (avoids a redundant copy through string conversion).
func (p *ParameterList) SetTextBytes(i int, oid OID, text []byte) error {
	if !validUTF8(text) {
		return &Error{Code: CodeInvalidParameter, Message: "parameter " + strconv.Itoa(i) + " is not valid UTF-8"}
	}
	p.values[i] = ParameterValue{kind: paramText, oid: oid, data: text}
	return nil
}

// SetBinary binds slot i to a binary-format value.
func (p *ParameterList) SetBinary(i int, oid OID, data []byte) {
	p.values[i] = ParameterValue{kind: paramBinary, oid: oid, data: data}
}

// IsUnset reports whether slot i has never been set or declared null.
// Built on zerochecker the way urlstruct.Field decides whether a struct
// field was ever populated, applied here to the slot's own kind tag
// instead of a user struct field.
func (p *ParameterList) IsUnset(i int) bool {
	return isZeroParamKind(reflect.ValueOf(p.values[i].kind))
}

// Get returns slot i.
func (p *ParameterList) Get(i int) ParameterValue { return p.values[i] }

// OIDs returns the declared OID of every slot, in order — the vector the
// Executor compares against a Query's previously recorded OIDs to decide
// whether Parse can be skipped (spec §4.2 step 1, the "Parse reuse"
// testable property).
func (p *ParameterList) OIDs() []OID {
	oids := make([]OID, len(p.values))
	for i, v := range p.values {
		oids[i] = v.oid
	}
	return oids
}

// AdoptOIDs overwrites every still-Unspecified slot's OID with the
// corresponding entry from known (spec §4.2 step 3, "OID adoption").
func (p *ParameterList) AdoptOIDs(known []OID) {
	for i := range p.values {
		if p.values[i].oid == Unspecified && i < len(known) {
			p.values[i].oid = known[i]
		}
	}
}

// slice returns the slots at the flat indices idx, in that order, as a
// standalone list — used
// by the Executor to hand each Composite sub-query its own flat-index
// slice without copying the underlying byte payloads.
func (p *ParameterList) slice(idx []int) *ParameterList {
	out := &ParameterList{values: make([]ParameterValue, len(idx))}
	for i, flat := range idx {
		out.values[i] = p.values[flat]
	}
	return out
}

