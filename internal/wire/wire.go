package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	version byte = 1

	kindRequest  byte = 1
	kindResponse byte = 2

	// MaxArgs bounds the number of arguments in a request frame.
	MaxArgs = 8
	// MaxFrame bounds any single argument or payload.
	MaxFrame = 64 << 20
)

var (
	ErrCorrupt = errors.New("casrdzv: corrupt frame")
	// ErrTooLarge is returned by CheckArgs for requests the peer would reject.
	ErrTooLarge = errors.New("casrdzv: request too large")
	magic4      = [...]byte{'R', 'D', 'Z', 'V'}
)

// Op identifies a store operation carried by a request frame.
type Op byte

const (
	OpPing Op = iota + 1
	OpGet
	OpSet
	OpCompareSet
)

func (o Op) String() string {
	switch o {
	case OpPing:
		return "ping"
	case OpGet:
		return "get"
	case OpSet:
		return "set"
	case OpCompareSet:
		return "compare_set"
	default:
		return fmt.Sprintf("op(%d)", byte(o))
	}
}

// Status is the outcome carried by a response frame.
type Status byte

const (
	StatusOK Status = iota
	StatusError
	StatusTimeout
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// CheckArgs reports whether args fit in one request frame. The error wraps
// ErrTooLarge and names the offending argument.
func CheckArgs(args ...[]byte) error {
	if len(args) > MaxArgs {
		return fmt.Errorf("%w: %d args, max %d", ErrTooLarge, len(args), MaxArgs)
	}
	for i, a := range args {
		if len(a) > MaxFrame {
			return fmt.Errorf("%w: arg %d is %d bytes, max %d", ErrTooLarge, i, len(a), MaxFrame)
		}
	}
	return nil
}

// Request: magic(4) | ver(1) | kind(1=request) | op(1) | argc(1)
//
//	alen(u32 be) | arg(alen) * argc
func EncodeRequest(op Op, args ...[]byte) []byte {
	if len(args) > MaxArgs {
		panic("casrdzv: too many request args")
	}
	total := 4 + 1 + 1 + 1 + 1
	for _, a := range args {
		total += 4 + len(a)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindRequest)
	buf.WriteByte(byte(op))
	buf.WriteByte(byte(len(args)))

	var u4 [4]byte
	for _, a := range args {
		binary.BigEndian.PutUint32(u4[:], uint32(len(a)))
		buf.Write(u4[:])
		buf.Write(a)
	}
	return buf.Bytes()
}

// Response: magic(4) | ver(1) | kind(1=response) | status(1) | plen(u32 be) | payload(plen)
func EncodeResponse(st Status, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 1 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindResponse)
	buf.WriteByte(byte(st))

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

func readHeader(r *bufio.Reader, kind byte) (byte, error) {
	var hdr [7]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	if !hasMagic(hdr[:]) || hdr[4] != version || hdr[5] != kind {
		return 0, ErrCorrupt
	}
	return hdr[6], nil
}

func readBlock(r *bufio.Reader) ([]byte, error) {
	var u4 [4]byte
	if _, err := io.ReadFull(r, u4[:]); err != nil {
		return nil, unexpected(err)
	}
	n := binary.BigEndian.Uint32(u4[:])
	if n > MaxFrame {
		return nil, ErrCorrupt
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, unexpected(err)
	}
	return b, nil
}

// ReadRequest reads one request frame. A clean EOF before the first byte is
// returned as io.EOF so servers can tell a closed connection from a bad frame.
func ReadRequest(r *bufio.Reader) (Op, [][]byte, error) {
	op, err := readHeader(r, kindRequest)
	if err != nil {
		return 0, nil, err
	}
	argc, err := r.ReadByte()
	if err != nil {
		return 0, nil, unexpected(err)
	}
	if int(argc) > MaxArgs {
		return 0, nil, ErrCorrupt
	}
	args := make([][]byte, 0, argc)
	for i := 0; i < int(argc); i++ {
		a, err := readBlock(r)
		if err != nil {
			return 0, nil, err
		}
		args = append(args, a)
	}
	return Op(op), args, nil
}

// ReadResponse reads one response frame.
func ReadResponse(r *bufio.Reader) (Status, []byte, error) {
	st, err := readHeader(r, kindResponse)
	if err != nil {
		return 0, nil, unexpected(err)
	}
	payload, err := readBlock(r)
	if err != nil {
		return 0, nil, err
	}
	return Status(st), payload, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
