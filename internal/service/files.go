package service

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/storage"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

var extractableExtensions = map[string]struct{}{
	".pdf":  {},
	".xlsx": {},
	".xlsm": {},
}

// sanitizeFileName keeps the base name of an upload usable as a storage key.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}

	return name
}

func isExtractable(name string) bool {
	_, ok := extractableExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func checkUpload(file *entity.UploadedFile, maxSize int64) error {
	if file == nil || len(file.Data) == 0 {
		return &ValidationError{Fields: []FieldError{{Field: "file", Message: "this field is required"}}}
	}
	if maxSize > 0 && int64(len(file.Data)) > maxSize {
		return &ValidationError{Fields: []FieldError{{Field: "file", Message: fmt.Sprintf("should be at most %d bytes", maxSize)}}}
	}

	return nil
}

func putFile(ctx context.Context, st storage.Storage, key string, data []byte) error {
	if err := st.Put(ctx, key, data); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	return nil
}
