package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrFileTypeNotAllowed = errors.New("file type is not allowed")
	ErrEmptyFile          = errors.New("file is empty")
)

// Leave attachments accepted by the portal form: pdf, doc, docx, jpg, png
var leaveAttachmentTypes = []string{
	"application/pdf",
	"application/msword",
	"application/x-ole-storage",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"image/jpeg",
	"image/png",
}

type FileService interface {
	// UploadLeaveAttachment stores a supporting document and returns its storage key
	UploadLeaveAttachment(ctx context.Context, userID string, file io.Reader, filename string) (string, error)

	DeleteFile(ctx context.Context, path string) error
	GetFileURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

type fileServiceImpl struct {
	storage storage.FileStorage
	maxSize int64
}

func NewFileService(storage storage.FileStorage, maxSize int64) FileService {
	return &fileServiceImpl{
		storage: storage,
		maxSize: maxSize,
	}
}

// UploadLeaveAttachment reads at most maxSize bytes, sniffs the content type
// and stores the file under leave/<user>/.
func (s *fileServiceImpl) UploadLeaveAttachment(ctx context.Context, userID string, file io.Reader, filename string) (string, error) {
	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(file, s.maxSize+1)); err != nil {
		return "", fmt.Errorf("failed to read attachment: %w", err)
	}
	if buf.Len() == 0 {
		return "", ErrEmptyFile
	}
	if int64(buf.Len()) > s.maxSize {
		return "", ErrFileTooLarge
	}

	mime := mimetype.Detect(buf.Bytes())
	if !mimetype.EqualsAny(mime.String(), leaveAttachmentTypes...) {
		return "", fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, mime.String())
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = mime.Extension()
	}

	path := filepath.Join("leave", userID, uuid.New().String()+ext)

	uploadedPath, err := s.storage.Upload(ctx, bytes.NewReader(buf.Bytes()), path, mime.String())
	if err != nil {
		return "", fmt.Errorf("failed to upload leave attachment: %w", err)
	}

	return uploadedPath, nil
}

// DeleteFile deletes a file from storage
func (s *fileServiceImpl) DeleteFile(ctx context.Context, path string) error {
	return s.storage.Delete(ctx, path)
}

// GetFileURL gets the URL for a file
func (s *fileServiceImpl) GetFileURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return s.storage.GetURL(ctx, path, expiry)
}
