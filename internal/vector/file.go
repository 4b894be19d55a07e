package vector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// PersistenceError reports a failed index save or load.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("index %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Meta identifies what an index file was built from.
type Meta struct {
	Fingerprint string
	Model       string
}

const fileMagic = "FAQIDX01"

// Save writes idx with its meta to path. The file is written to a temporary
// sibling and renamed into place, so readers see either the old or new file.
func Save(path string, idx *FlatIndex, meta Meta) error {
	if path == "" {
		return nil
	}
	payload, err := idx.MarshalBinary()
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	var buf bytes.Buffer
	buf.WriteString(fileMagic)
	writeString(&buf, meta.Fingerprint)
	writeString(&buf, meta.Model)
	buf.Write(payload)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: fmt.Errorf("create index dir: %w", err)}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return cleanup(fmt.Errorf("write: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("sync: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: path, Err: fmt.Errorf("rename: %w", err)}
	}
	return nil
}

// Load reads an index file written by Save. A missing file yields a
// PersistenceError wrapping os.ErrNotExist.
func Load(path string) (*FlatIndex, Meta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, Meta{}, &PersistenceError{Op: "load", Path: path, Err: err}
	}
	r := bytes.NewReader(b)
	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != fileMagic {
		return nil, Meta{}, &PersistenceError{Op: "load", Path: path, Err: ErrCorruptIndex}
	}
	var meta Meta
	if meta.Fingerprint, err = readString(r); err != nil {
		return nil, Meta{}, &PersistenceError{Op: "load", Path: path, Err: err}
	}
	if meta.Model, err = readString(r); err != nil {
		return nil, Meta{}, &PersistenceError{Op: "load", Path: path, Err: err}
	}
	rest := b[len(b)-r.Len():]
	idx := &FlatIndex{}
	if err := idx.UnmarshalBinary(rest); err != nil {
		return nil, Meta{}, &PersistenceError{Op: "load", Path: path, Err: err}
	}
	return idx, meta, nil
}

// IsNotExist reports whether err means no index file was found.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func writeString(buf *bytes.Buffer, s string) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	buf.Write(n[:])
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("read length: %w", ErrCorruptIndex)
	}
	if int64(n) > int64(r.Len()) {
		return "", fmt.Errorf("string length %d exceeds data: %w", n, ErrCorruptIndex)
	}
	s := make([]byte, n)
	if _, err := io.ReadFull(r, s); err != nil {
		return "", fmt.Errorf("read string: %w", ErrCorruptIndex)
	}
	return string(s), nil
}
