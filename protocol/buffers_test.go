package protocol

import "testing"

func TestScratchOutput(t *testing.T) {
	scratch := NewScratchOutput()

	n, err := scratch.Write([]byte{1, 2, 3})
	if err != nil || n != 3 {
		t.Fatalf("Write returned %d, %v", n, err)
	}
	scratch.Write([]byte{4, 5})

	if scratch.Len() != 5 {
		t.Errorf("Expected length 5, got %d", scratch.Len())
	}

	result := scratch.Result()
	if len(result) != 5 || result[0] != 1 || result[4] != 5 {
		t.Errorf("Result mismatch: got %v", result)
	}

	// Test Reset
	scratch.Reset()
	if scratch.Len() != 0 {
		t.Errorf("After reset, expected length 0, got %d", scratch.Len())
	}
}

func TestScratchOutputOverflow(t *testing.T) {
	scratch := NewScratchOutput()

	big := make([]byte, OutputMax+10)
	n, _ := scratch.Write(big)
	if n != len(big) {
		t.Errorf("Write should report the full length, got %d", n)
	}
	if scratch.Len() != OutputMax {
		t.Errorf("Expected buffer full at %d, got %d", OutputMax, scratch.Len())
	}
	if scratch.Dropped() != 10 {
		t.Errorf("Expected 10 dropped bytes, got %d", scratch.Dropped())
	}
}

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(10)

	if fifo.Available() != 0 {
		t.Errorf("Empty FIFO should have 0 available, got %d", fifo.Available())
	}

	// Write some data
	data := []byte{1, 2, 3, 4, 5}
	written := fifo.Write(data)

	if written != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d", written)
	}

	if fifo.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", fifo.Available())
	}

	// Read some data
	readBuf := make([]byte, 3)
	read := fifo.Read(readBuf)

	if read != 3 {
		t.Errorf("Expected to read 3 bytes, read %d", read)
	}

	if readBuf[0] != 1 || readBuf[1] != 2 || readBuf[2] != 3 {
		t.Errorf("Read data mismatch: got %v", readBuf)
	}

	b, ok := fifo.ReadByte()
	if !ok || b != 4 {
		t.Errorf("Expected ReadByte to return 4, got %d, %v", b, ok)
	}
	if _, ok := fifo.ReadByte(); !ok {
		t.Error("Expected ReadByte to return the last byte")
	}
	if fifo.Available() != 0 {
		t.Errorf("After reading the last byte, expected empty, got %d", fifo.Available())
	}
	if _, ok := fifo.ReadByte(); ok {
		t.Error("ReadByte on empty FIFO should fail")
	}

	// Capacity keeps one slot free
	fifo.Reset()
	bigData := make([]byte, 12)
	written = fifo.Write(bigData)
	if written != 9 {
		t.Errorf("Expected to write 9 bytes to size-10 FIFO, wrote %d", written)
	}
	if fifo.Free() != 0 {
		t.Errorf("Expected no free space, got %d", fifo.Free())
	}

	fifo.ReadByte()
	if fifo.Free() != 1 {
		t.Errorf("Expected one free slot after a read, got %d", fifo.Free())
	}
}

func TestFifoBufferWrapAround(t *testing.T) {
	fifo := NewFifoBuffer(5)

	// Fill buffer
	fifo.Write([]byte{1, 2, 3, 4})

	// Read some
	readBuf := make([]byte, 2)
	fifo.Read(readBuf)

	// Write more (will wrap around)
	written := fifo.Write([]byte{5, 6})
	if written != 2 {
		t.Errorf("Expected to write 2 bytes, wrote %d", written)
	}

	// Verify order
	allData := make([]byte, 4)
	read := fifo.Read(allData)
	if read != 4 {
		t.Errorf("Expected to read 4 bytes, read %d", read)
	}
	if allData[0] != 3 || allData[1] != 4 || allData[2] != 5 || allData[3] != 6 {
		t.Errorf("Wrap-around data mismatch: got %v", allData)
	}
}
