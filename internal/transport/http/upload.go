package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"retailcast/internal/dataprocessing"
	apierrors "retailcast/internal/errors"
)

// UploadField is the multipart field carrying the line-item file
const UploadField = "file"

// maxUploadMemory is kept in memory; larger parts spill to temp files
const maxUploadMemory = 8 << 20

// readUpload parses the multipart file field through the ingest service
func readUpload(r *http.Request, ingest IngestServiceInterface) (*dataprocessing.Dataset, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, apierrors.InvalidRequestWithError(fmt.Errorf("expected a multipart/form-data body: %w", err))
	}

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		return nil, apierrors.ErrValidation(UploadField, "file is required")
	}
	defer file.Close()

	return ingest.Ingest(r.Context(), file, header.Filename)
}

// formFloat reads an optional float form value
func formFloat(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apierrors.ErrValidation(name, fmt.Sprintf("%s must be a number", name))
	}
	return &v, nil
}

// formInt reads an optional integer form value, 0 when absent
func formInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierrors.ErrValidation(name, fmt.Sprintf("%s must be a valid integer", name))
	}
	return v, nil
}
