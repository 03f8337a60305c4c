package processor

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// FileWriter wraps an open destination file and counts the bytes written to it
type FileWriter struct {
	file              *os.File
	destPath          string
	totalBytesWritten int64
	closeOnce         sync.Once
	closeErr          error
}

func newFileWriter(file *os.File, destPath string) *FileWriter {
	return &FileWriter{
		file:     file,
		destPath: destPath,
	}
}

// Write writes incoming data to the file
func (w *FileWriter) Write(data []byte) (int, error) {
	n, err := w.file.Write(data)
	w.totalBytesWritten += int64(n)
	if err != nil {
		return n, fmt.Errorf("failed to write data: %w", err)
	}
	return n, nil
}

// Written returns the total number of bytes written so far
func (w *FileWriter) Written() int64 {
	return w.totalBytesWritten
}

// Path returns the destination path
func (w *FileWriter) Path() string {
	return w.destPath
}

// Close closes the file. The file is kept on disk whatever was written.
func (w *FileWriter) Close() error {
	w.closeOnce.Do(func() {
		if err := w.file.Close(); err != nil {
			w.closeErr = fmt.Errorf("failed to close file: %w", err)
			return
		}
		log.Printf("File writing completed: %s, %d bytes written", w.destPath, w.totalBytesWritten)
	})
	return w.closeErr
}
