package serial

import (
	"testing"
)

// mockPort scripts reads in chunks, like a UART delivering bytes over
// multiple timed reads.
type mockPort struct {
	chunks [][]byte
	writes [][]byte
}

func (m *mockPort) Read(p []byte) (int, error) {
	if len(m.chunks) == 0 {
		return 0, nil // timeout
	}
	n := copy(p, m.chunks[0])
	if n == len(m.chunks[0]) {
		m.chunks = m.chunks[1:]
	} else {
		m.chunks[0] = m.chunks[0][n:]
	}
	return n, nil
}

func (m *mockPort) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	m.writes = append(m.writes, buf)
	return len(p), nil
}

func (m *mockPort) Close() error { return nil }

func TestBusReadyAndReadByte(t *testing.T) {
	port := &mockPort{chunks: [][]byte{{'$', 'P'}}}
	bus := NewBus(port)

	if !bus.Ready() {
		t.Fatal("expected bus to be ready")
	}

	b, err := bus.ReadByte()
	if err != nil || b != '$' {
		t.Errorf("expected '$', got %q (err=%v)", b, err)
	}
}

func TestBusIdleSentinel(t *testing.T) {
	bus := NewBus(&mockPort{})

	if bus.Ready() {
		t.Error("expected not ready with no data")
	}
	b, err := bus.ReadByte()
	if err != nil {
		t.Fatalf("ReadByte failed: %v", err)
	}
	if b != idleByte {
		t.Errorf("expected idle sentinel 0xFF, got 0x%02X", b)
	}
}

func TestBusReadSpansChunks(t *testing.T) {
	port := &mockPort{chunks: [][]byte{{'A', 'B'}, {'C'}, {'D', 'E'}}}
	bus := NewBus(port)

	p := make([]byte, 5)
	if err := bus.Read(p); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(p) != "ABCDE" {
		t.Errorf("expected ABCDE, got %q", p)
	}
}

func TestBusReadStalls(t *testing.T) {
	port := &mockPort{chunks: [][]byte{{'A'}}}
	bus := NewBus(port)

	p := make([]byte, 4)
	if err := bus.Read(p); err == nil {
		t.Error("expected stall error for missing bytes")
	}
}

func TestBusWrite(t *testing.T) {
	port := &mockPort{}
	bus := NewBus(port)

	if err := bus.Write([]byte{0xB5, 0x62}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(port.writes) != 1 || len(port.writes[0]) != 2 {
		t.Errorf("unexpected writes: %v", port.writes)
	}
}
