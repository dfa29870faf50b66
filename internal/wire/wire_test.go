package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func reader(b []byte) *bufio.Reader { return bufio.NewReader(bytes.NewReader(b)) }

func mustReadRequest(t *testing.T, b []byte) (Op, [][]byte) {
	t.Helper()
	op, args, err := ReadRequest(reader(b))
	if err != nil {
		t.Fatalf("ReadRequest error: %v", err)
	}
	return op, args
}

func TestRequestRTEmptyAndNonEmptyArgs(t *testing.T) {
	cases := []struct {
		op   Op
		args [][]byte
	}{
		{OpPing, nil},
		{OpGet, [][]byte{[]byte("rendezvous.job-42")}},
		{OpCompareSet, [][]byte{[]byte("k"), {}, []byte("Y2FuaW1hZGFt")}},
	}
	for _, tc := range cases {
		op, args := mustReadRequest(t, EncodeRequest(tc.op, tc.args...))
		if op != tc.op {
			t.Fatalf("op mismatch: got %v want %v", op, tc.op)
		}
		if len(args) != len(tc.args) {
			t.Fatalf("argc mismatch: got %d want %d", len(args), len(tc.args))
		}
		for i := range args {
			if !bytes.Equal(args[i], tc.args[i]) {
				t.Fatalf("arg %d mismatch: got %q want %q", i, args[i], tc.args[i])
			}
		}
	}
}

func TestResponseRT(t *testing.T) {
	for _, st := range []Status{StatusOK, StatusError, StatusTimeout} {
		gotSt, p, err := ReadResponse(reader(EncodeResponse(st, []byte("payload"))))
		if err != nil {
			t.Fatalf("ReadResponse: %v", err)
		}
		if gotSt != st || string(p) != "payload" {
			t.Fatalf("got (%d,%q) want (%d,payload)", gotSt, p, st)
		}
	}
}

func TestFramesAreSequential(t *testing.T) {
	var stream []byte
	stream = append(stream, EncodeRequest(OpGet, []byte("a"))...)
	stream = append(stream, EncodeRequest(OpSet, []byte("b"), []byte("v"))...)
	r := reader(stream)

	op, args, err := ReadRequest(r)
	if err != nil || op != OpGet || string(args[0]) != "a" {
		t.Fatalf("first frame: op=%v args=%q err=%v", op, args, err)
	}
	op, args, err = ReadRequest(r)
	if err != nil || op != OpSet || string(args[1]) != "v" {
		t.Fatalf("second frame: op=%v args=%q err=%v", op, args, err)
	}
	if _, _, err := ReadRequest(r); err != io.EOF {
		t.Fatalf("expected io.EOF after last frame, got %v", err)
	}
}

func TestRequestCorruptHeaders(t *testing.T) {
	enc := EncodeRequest(OpGet, []byte("abc"))

	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, _, err := ReadRequest(reader(badMagic)); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt on bad magic, got %v", err)
	}

	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, _, err := ReadRequest(reader(badVer)); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt on bad version, got %v", err)
	}

	// a response is not a request
	if _, _, err := ReadRequest(reader(EncodeResponse(StatusOK, nil))); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt on wrong kind, got %v", err)
	}

	badArgc := append([]byte(nil), enc...)
	badArgc[7] = MaxArgs + 1
	if _, _, err := ReadRequest(reader(badArgc)); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt on argc overflow, got %v", err)
	}
}

func TestRequestTruncatedAndOversized(t *testing.T) {
	enc := EncodeRequest(OpGet, []byte("abcdef"))
	if _, _, err := ReadRequest(reader(enc[:len(enc)-2])); err != io.ErrUnexpectedEOF {
		t.Fatalf("expected io.ErrUnexpectedEOF on truncated arg, got %v", err)
	}

	huge := append([]byte(nil), enc[:8]...)
	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], MaxFrame+1)
	huge = append(huge, u4[:]...)
	if _, _, err := ReadRequest(reader(huge)); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt on oversized arg, got %v", err)
	}
}

func TestResponseTruncated(t *testing.T) {
	enc := EncodeResponse(StatusOK, []byte("xyz"))
	for _, n := range []int{0, 3, 7, len(enc) - 1} {
		if _, _, err := ReadResponse(reader(enc[:n])); err == nil {
			t.Fatalf("expected error on truncation at %d", n)
		}
	}
}

func TestOpString(t *testing.T) {
	if OpCompareSet.String() != "compare_set" {
		t.Fatalf("unexpected name %q", OpCompareSet.String())
	}
	if Op(99).String() != "op(99)" {
		t.Fatalf("unexpected name %q", Op(99).String())
	}
}

func TestCheckArgs(t *testing.T) {
	if err := CheckArgs([]byte("k"), nil, make([]byte, MaxFrame)); err != nil {
		t.Fatalf("args at the limit rejected: %v", err)
	}
	if err := CheckArgs([]byte("k"), make([]byte, MaxFrame+1)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for oversized arg, got %v", err)
	}
	if err := CheckArgs(make([][]byte, MaxArgs+1)...); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for too many args, got %v", err)
	}
}
