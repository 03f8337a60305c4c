package processor

import (
	"errors"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"

	"wifitransfer/pkg/types"
)

// DefaultMimeType is used when the extension is unknown
const DefaultMimeType = "application/octet-stream"

var ErrNotRegularFile = errors.New("not a regular file")

// FileService handles basic file operations
type FileService struct{}

// NewFileService creates a new file service
func NewFileService() *FileService {
	return &FileService{}
}

// OpenReader opens a file for reading and returns its current size
func (f *FileService) OpenReader(filePath string) (*os.File, int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("failed to get file info: %w", err)
	}
	if !stat.Mode().IsRegular() {
		file.Close()
		return nil, 0, fmt.Errorf("%s: %w", filePath, ErrNotRegularFile)
	}

	return file, stat.Size(), nil
}

// CreateWriter creates (or truncates) the destination file
func (f *FileService) CreateWriter(destPath string) (*FileWriter, error) {
	file, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	log.Printf("File prepared for writing: %s", destPath)
	return newFileWriter(file, destPath), nil
}

// CreateMetadata describes the file at filePath
func (f *FileService) CreateMetadata(filePath string) (types.FileMetadata, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return types.FileMetadata{}, fmt.Errorf("failed to get file info: %w", err)
	}
	if !stat.Mode().IsRegular() {
		return types.FileMetadata{}, fmt.Errorf("%s: %w", filePath, ErrNotRegularFile)
	}

	filename := filepath.Base(filePath)

	return types.FileMetadata{
		Name:     filename,
		Size:     stat.Size(),
		MimeType: DetectMimeType(filename),
		Path:     filePath,
	}, nil
}

// DetectMimeType guesses the MIME type from the file extension
func DetectMimeType(filename string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(filename))
	if mimeType == "" {
		mimeType = DefaultMimeType // Default for unknown types
	}
	return mimeType
}
