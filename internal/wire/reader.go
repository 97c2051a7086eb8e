package wire

import "encoding/binary"

// MsgType is a single backend or frontend message type byte.
type MsgType byte

func (cn *Conn) ReadByte() (byte, error) {
	b, err := cn.br.ReadByte()
	return b, err
}

func (cn *Conn) ReadInt16() (int16, error) {
	b, err := cn.ReadN(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func (cn *Conn) ReadInt32() (int32, error) {
	b, err := cn.ReadN(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// ReadString reads a null-terminated C string, dropping the trailing zero.
func (cn *Conn) ReadString() (string, error) {
	s, err := cn.br.ReadString(0)
	if err != nil {
		return "", err
	}
	return s[:len(s)-1], nil
}

// ReadMsgType reads the one-byte type code and four-byte length prefix of
// the next backend message and returns the type plus the remaining payload
// length (i.e. excluding the four length bytes themselves).
func (cn *Conn) ReadMsgType() (MsgType, int, error) {
	c, err := cn.br.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	n, err := cn.ReadInt32()
	if err != nil {
		return 0, 0, err
	}
	return MsgType(c), int(n) - 4, nil
}

// ReadWireError decodes an ErrorResponse/NoticeResponse field sequence:
// repeated (one-byte field code, C string) pairs terminated by a zero byte.
func (cn *Conn) ReadWireError() (*WireError, error) {
	e := &WireError{fields: make(map[byte]string)}
	for {
		c, err := cn.br.ReadByte()
		if err != nil {
			return nil, err
		}
		if c == 0 {
			break
		}
		s, err := cn.ReadString()
		if err != nil {
			return nil, err
		}
		e.fields[c] = s
	}
	return e, nil
}
