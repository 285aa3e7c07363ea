package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// FileWriter appends entries as zstd-compressed JSON lines, one file per
// session: <dir>/<session id>.jsonl.zst.
type FileWriter struct {
	dir string

	mu      sync.Mutex
	session string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewFileWriter(dir string) *FileWriter {
	return &FileWriter{dir: dir}
}

// Path is the journal file of a session.
func (w *FileWriter) Path(sessionID string) string {
	return filepath.Join(w.dir, sessionID+".jsonl.zst")
}

func (w *FileWriter) Record(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if e.SessionID != w.session || w.w == nil {
		if err := w.openLocked(e.SessionID); err != nil {
			return err
		}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *FileWriter) openLocked(sessionID string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if sessionID == "" {
		return fmt.Errorf("journal entry has no session id")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.Path(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 32*1024)
	w.session = sessionID
	return nil
}

func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *FileWriter) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.session = ""
	return err
}

// ReadFile decodes a journal file. Files appended by several runs hold
// several zstd frames, which the decoder reads back to back.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("decode journal line %d: %w", len(out)+1, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
