package ringbuffer

import (
	"sync"
	"testing"
	"time"
)

func TestWriteReadRoundTrip(t *testing.T) {
	rb := New(16)
	data := []byte("hello world")

	n, err := rb.Write(data, 0)
	if err != nil || n != len(data) {
		t.Fatalf("Write() = %d, %v; want %d, nil", n, err, len(data))
	}

	buf := make([]byte, len(data))
	n, err = rb.Read(buf, 0)
	if err != nil || n != len(data) {
		t.Fatalf("Read() = %d, %v; want %d, nil", n, err, len(data))
	}
	if string(buf) != string(data) {
		t.Fatalf("Read() = %q; want %q", buf, data)
	}
}

func TestFIFOOrderingAcrossWrap(t *testing.T) {
	rb := New(8)
	var got []byte

	producer := func(chunks ...string) {
		for _, c := range chunks {
			if _, err := rb.Write([]byte(c), 0); err != nil {
				t.Errorf("Write(%q): %v", c, err)
			}
		}
		rb.DoneWrite()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		producer("ab", "cd", "ef", "gh", "ij")
	}()

	buf := make([]byte, 3)
	for {
		n, err := rb.Read(buf, 0)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if n == 0 {
			break
		}
		got = append(got, buf[:n]...)
	}
	<-done

	if string(got) != "abcdefghij" {
		t.Fatalf("got %q, want concatenation in write order", got)
	}
}

func TestDoneWriteDrainsThenEOF(t *testing.T) {
	rb := New(16)
	if _, err := rb.Write([]byte("abc"), 0); err != nil {
		t.Fatal(err)
	}
	rb.DoneWrite()

	buf := make([]byte, 16)
	n, err := rb.Read(buf, 0)
	if err != nil || n != 3 {
		t.Fatalf("Read() = %d, %v; want 3, nil", n, err)
	}

	n, err = rb.Read(buf, 0)
	if err != nil || n != 0 {
		t.Fatalf("Read() after drain = %d, %v; want 0, nil (EOF)", n, err)
	}
}

func TestCloseWakesBlockedReaderAndWriter(t *testing.T) {
	// One buffer cannot be full and empty at once, so the writer blocks on
	// a full buffer and the reader on an empty one; Close must wake each.
	full := New(4)
	if _, err := full.Write([]byte("abcd"), 0); err != nil {
		t.Fatal(err)
	}
	empty := New(4)

	var wg sync.WaitGroup
	wg.Add(2)

	var writeErr, readErr error
	go func() {
		defer wg.Done()
		_, writeErr = full.Write([]byte("e"), 0)
	}()
	go func() {
		defer wg.Done()
		buf := make([]byte, 4)
		_, readErr = empty.Read(buf, 0)
	}()

	time.Sleep(20 * time.Millisecond)
	full.Close()
	empty.Close()
	wg.Wait()

	if writeErr != ErrShutdown {
		t.Errorf("writer error = %v; want ErrShutdown", writeErr)
	}
	if readErr != ErrShutdown {
		t.Errorf("reader error = %v; want ErrShutdown", readErr)
	}
}

func TestResetRestoresEmptyOpenState(t *testing.T) {
	rb := New(8)
	rb.Write([]byte("xx"), 0)
	rb.Close()

	rb.Reset()

	if rb.AvailableRead() != 0 {
		t.Fatalf("AvailableRead() after Reset = %d; want 0", rb.AvailableRead())
	}
	n, err := rb.Write([]byte("y"), 0)
	if err != nil || n != 1 {
		t.Fatalf("Write() after Reset = %d, %v; want 1, nil", n, err)
	}
}

func TestWriteTimeoutReturnsPartial(t *testing.T) {
	rb := New(4)
	rb.Write([]byte("abcd"), 0) // fill

	n, err := rb.Write([]byte("ef"), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Write() error = %v; want nil (timeout is not an error)", err)
	}
	if n != 0 {
		t.Fatalf("Write() = %d; want 0 (buffer stayed full)", n)
	}
}

func TestDoneDistinguishesEOFFromTimeout(t *testing.T) {
	rb := New(4)
	if rb.Done() {
		t.Fatal("Done() on a fresh buffer with no writer signal")
	}

	if _, err := rb.Write([]byte("a"), 0); err != nil {
		t.Fatal(err)
	}
	if rb.Done() {
		t.Fatal("Done() while unread bytes remain")
	}

	buf := make([]byte, 4)
	if _, err := rb.Read(buf, 0); err != nil {
		t.Fatal(err)
	}
	if rb.Done() {
		t.Fatal("Done() before DoneWrite was ever called")
	}

	rb.DoneWrite()
	if !rb.Done() {
		t.Fatal("Done() should be true once DoneWrite is called and the buffer is drained")
	}
}

func TestReadTimeoutOnEmptyBuffer(t *testing.T) {
	rb := New(4)
	buf := make([]byte, 4)
	start := time.Now()
	n, err := rb.Read(buf, 10*time.Millisecond)
	if err != nil || n != 0 {
		t.Fatalf("Read() = %d, %v; want 0, nil", n, err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("Read() returned before the timeout elapsed")
	}
}
