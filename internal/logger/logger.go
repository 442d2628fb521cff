package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// rotatingFile is an io.Writer that rotates the log file once it grows
// past maxBytes, keeping up to maxBackups numbered copies alongside it.
type rotatingFile struct {
	path       string
	maxBytes   int64
	maxBackups int

	mu   sync.Mutex
	file *os.File
	size int64
}

// Setup routes the standard logger to stdout and a size-rotated file.
// If the file cannot be opened, logging continues on stdout alone.
func Setup(path string, maxSizeMB int64, maxBackups int) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if path == "" {
		return
	}
	rf := &rotatingFile{
		path:       path,
		maxBytes:   maxSizeMB * 1024 * 1024,
		maxBackups: maxBackups,
	}
	if err := rf.open(); err != nil {
		log.Printf("WARNING: cannot open log file %s, using stdout only: %v", path, err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rf))
}

func (r *rotatingFile) open() error {
	info, err := os.Stat(r.path)
	if os.IsNotExist(err) {
		return r.create()
	}
	if err != nil {
		return err
	}
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	r.file = f
	r.size = info.Size()
	return nil
}

func (r *rotatingFile) create() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	r.file = f
	r.size = 0
	return nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}
	if r.size+int64(len(p)) > r.maxBytes {
		if err := r.rotate(); err != nil {
			// Keep writing to the current file rather than drop log lines.
			fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// rotate shifts log -> log.1 -> log.2 ... up to maxBackups, then opens
// a fresh file.
func (r *rotatingFile) rotate() error {
	if r.file != nil {
		r.file.Close()
	}
	for i := r.maxBackups - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", r.path, i)
		if _, err := os.Stat(from); os.IsNotExist(err) {
			continue
		}
		os.Rename(from, fmt.Sprintf("%s.%d", r.path, i+1))
	}
	if _, err := os.Stat(r.path); err == nil {
		os.Rename(r.path, r.path+".1")
	}
	return r.create()
}
