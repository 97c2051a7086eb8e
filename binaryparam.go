package pgexec

import (
	"github.com/vmihailenco/bufpool"
	"github.com/vmihailenco/msgpack/v5"
)

// EncodeBinaryParam msgpack-encodes an arbitrary Go value into a binary
// ParameterValue bound to oid (spec §10.5's binary parameter helper, for
// callers with no native PG binary encoding of their own for v's type).
func EncodeBinaryParam(oid OID, v interface{}) (ParameterValue, error) {
	buf := bufpool.Get(0)
	defer bufpool.Put(buf)

	enc := msgpack.NewEncoder(buf)
	if err := enc.Encode(v); err != nil {
		return ParameterValue{}, &Error{Code: CodeInvalidParameter, Message: "pgexec: msgpack encode: " + err.Error()}
	}

	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())
	return ParameterValue{kind: paramBinary, oid: oid, data: data}, nil
}

// DecodeBinaryResult is EncodeBinaryParam's inverse, used against a
// column's raw binary bytes (spec §10.5). out must be a non-nil pointer.
func DecodeBinaryResult(data []byte, out interface{}) error {
	buf := bufpool.Get(len(data))
	defer bufpool.Put(buf)

	buf.Reset()
	buf.Write(data)

	dec := msgpack.NewDecoder(buf)
	if err := dec.Decode(out); err != nil {
		return &Error{Code: CodeInvalidParameter, Message: "pgexec: msgpack decode: " + err.Error()}
	}
	return nil
}
