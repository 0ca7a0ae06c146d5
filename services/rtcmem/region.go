package rtcmem

import "io"

// Mem is a plain in-memory Region. Boards without retained RAM wrap it.
type Mem struct {
	b [RecordSize]byte
}

func (m *Mem) Size() int { return RecordSize }

func (m *Mem) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= RecordSize {
		return 0, io.EOF
	}
	n := copy(p, m.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *Mem) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > RecordSize {
		return 0, io.ErrShortWrite
	}
	return copy(m.b[off:], p), nil
}

// Bytes returns a copy of the raw record.
func (m *Mem) Bytes() [RecordSize]byte { return m.b }
