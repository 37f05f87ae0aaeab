package serial

import (
	"bytes"
	"io"
	"testing"
	"time"

	"axisctl/core"
)

type pipePort struct {
	r       *io.PipeReader
	written bytes.Buffer
}

func (p *pipePort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipePort) Write(b []byte) (int, error) { return p.written.Write(b) }

func waitBuffered(t *testing.T, u *UART, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for u.Buffered() < n {
		if time.Now().After(deadline) {
			t.Fatalf("Buffered() = %d, want %d", u.Buffered(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestUARTBuffersInput(t *testing.T) {
	r, w := io.Pipe()
	port := &pipePort{r: r}
	u := NewUART(port)

	buf := make([]byte, 4)
	if n, err := u.Read(buf); n != 0 || err != nil {
		t.Fatalf("empty Read() = %d, %v", n, err)
	}

	go w.Write([]byte{0x10, 0x20})
	waitBuffered(t, u, 2)

	n, err := u.Read(buf[:1])
	if err != nil || n != 1 || buf[0] != 0x10 {
		t.Fatalf("Read() = %d, %v, %x", n, err, buf[0])
	}
	if u.Buffered() != 1 {
		t.Errorf("Buffered() = %d, want 1", u.Buffered())
	}

	w.Close()
	<-u.Done()
	n, err = u.Read(buf)
	if n != 1 || buf[0] != 0x20 || err != nil {
		t.Fatalf("Read() after close = %d, %v", n, err)
	}
	if _, err := u.Read(buf); err != io.EOF {
		t.Errorf("Read() on drained closed port err = %v, want EOF", err)
	}
}

func TestUARTDrivesTMCLink(t *testing.T) {
	r, w := io.Pipe()
	port := &pipePort{r: r}
	u := NewUART(port)
	link := core.NewTMCLink(u)

	go w.Write([]byte{core.TMC2209_STATUS_STALL})
	waitBuffered(t, u, 1)

	stalled, err := link.PollStall()
	if err != nil {
		t.Fatalf("PollStall() error = %v", err)
	}
	if !stalled {
		t.Error("PollStall() = false, want true")
	}
	want := []byte{core.TMC2209_SYNC, core.TMC2209_DRV_STATUS}
	if !bytes.Equal(port.written.Bytes(), want) {
		t.Errorf("written = %x, want %x", port.written.Bytes(), want)
	}
	w.Close()
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	if cfg.Baud != 115200 || cfg.Device != "/dev/ttyACM0" || cfg.ReadTimeout != 100 {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}
