package console

import (
	"bytes"
	"strings"
	"testing"

	"navcore/m8q"
)

// quietBus accepts writes and reports an idle stream.
type quietBus struct {
	writes [][]byte
}

func (b *quietBus) Ready() bool { return false }

func (b *quietBus) ReadByte() (byte, error) { return m8q.NoDataByte, nil }

func (b *quietBus) Read(p []byte) error {
	for i := range p {
		p[i] = m8q.NoDataByte
	}
	return nil
}

func (b *quietBus) Write(p []byte) error {
	buf := make([]byte, len(p))
	copy(buf, p)
	b.writes = append(b.writes, buf)
	return nil
}

func runConsole(t *testing.T, bus *quietBus, script string) string {
	t.Helper()
	dev, err := m8q.NewDevice(200, bus)
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	var out bytes.Buffer
	if err := New(dev, strings.NewReader(script), &out).Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return out.String()
}

func TestConsoleSendRateConfig(t *testing.T) {
	bus := &quietBus{}
	out := runConsole(t, bus, "send PUBX,40,GLL,0,0,0,0\nquit\n")

	if !strings.Contains(out, "ok") {
		t.Errorf("expected ok, got:\n%s", out)
	}
	if len(bus.writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(bus.writes))
	}
	sent := string(bus.writes[0])
	if !strings.HasPrefix(sent, "$PUBX,40,GLL") || !strings.HasSuffix(sent, "\r\n") {
		t.Errorf("unexpected sentence %q", sent)
	}
}

func TestConsoleRejectsShortRateConfig(t *testing.T) {
	bus := &quietBus{}
	out := runConsole(t, bus, "send PUBX,40,GLL,0\nquit\n")

	if !strings.Contains(out, "invalid config") {
		t.Errorf("expected invalid-config diagnostic, got:\n%s", out)
	}
	if len(bus.writes) != 0 {
		t.Errorf("rejected config must not reach the bus: %v", bus.writes)
	}
}

func TestConsoleRejectsMalformedUBXText(t *testing.T) {
	out := runConsole(t, &quietBus{}, "send B5,62,zz\nquit\n")

	if !strings.Contains(out, "malformed UBX text") {
		t.Errorf("expected conversion diagnostic, got:\n%s", out)
	}
}

func TestConsoleUnknownCommand(t *testing.T) {
	out := runConsole(t, &quietBus{}, "bogus\nquit\n")

	if !strings.Contains(out, "unknown command: bogus") {
		t.Errorf("expected unknown-command diagnostic, got:\n%s", out)
	}
}

func TestConsoleFixBeforeData(t *testing.T) {
	out := runConsole(t, &quietBus{}, "fix\nread\nquit\n")

	if !strings.Contains(out, "no position message") {
		t.Errorf("expected empty-fix diagnostic, got:\n%s", out)
	}
	if !strings.Contains(out, "no data pending") {
		t.Errorf("expected no-data diagnostic, got:\n%s", out)
	}
}
