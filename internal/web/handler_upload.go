package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/vbonduro/productreg/internal/domain"
	"github.com/vbonduro/productreg/internal/intake"
	"github.com/vbonduro/productreg/internal/stagestore"
)

const maxUploadSize = 50 * 1024 * 1024 // 50 MB

// parseUpload caps the request body at s.maxBody and parses it as multipart.
// It writes the error response itself and reports whether parsing succeeded.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request, allowPlain bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	err := r.ParseMultipartForm(s.maxBody)
	if err == nil || (allowPlain && errors.Is(err, http.ErrNotMultipart)) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
		return false
	}
	http.Error(w, "failed to parse form", http.StatusBadRequest)
	return false
}

// sniffLen is the number of bytes net/http.DetectContentType considers.
const sniffLen = 512

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	mime := http.DetectContentType(data)
	if domain.AllowedMediaTypes[mime] {
		return mime, true
	}
	return "", false
}

// detectMediaType returns the declared type of a part, or sniffs one from
// its first bytes when the browser declared nothing useful. The returned
// reader yields the full content, including any sniffed prefix.
func detectMediaType(declared string, r io.Reader) (string, io.Reader, error) {
	if mt := intake.NormalizeMediaType(declared); mt != "" && mt != "application/octet-stream" {
		return declared, r, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]
	content := io.MultiReader(bytes.NewReader(head), r)

	if mt, ok := allowedImageMIME(head); ok {
		return mt, content, nil
	}
	return http.DetectContentType(head), content, nil
}

// stageUploads hands one multipart batch to the controller as a single batch.
func (s *Server) stageUploads(r *http.Request, c *intake.Controller, headers []*multipart.FileHeader) error {
	batch := make([]intake.Candidate, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
		}
		defer closeWithLog(f, "upload file", s.logger)

		mediaType, content, err := detectMediaType(fh.Header.Get("Content-Type"), f)
		if err != nil {
			return fmt.Errorf("failed to read upload %q: %w", fh.Filename, err)
		}
		batch = append(batch, intake.Candidate{
			Name:      fh.Filename,
			MediaType: mediaType,
			Size:      fh.Size,
			Content:   content,
		})
	}
	return c.StageFiles(r.Context(), batch)
}

func (s *Server) handleStageFiles(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Lookup(w, r)

	if !s.parseUpload(w, r, false) {
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Error("failed to remove multipart temp files", "error", err)
		}
	}()

	err := s.stageUploads(r, sess.Intake, r.MultipartForm.File[domain.FieldFiles])
	switch {
	case err == nil:
	case errors.Is(err, intake.ErrInvalid):
		s.logger.Debug("file batch rejected", "session", sess.ID)
	default:
		s.logger.Error("stage files failed", "session", sess.ID, "error", err)
	}

	if err := s.renderPartial(w, "files", snapshotView(sess.Intake), "partials/files.html", "partials/field_error.html"); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

// handleGetStagedFile serves the index-th staged file of the caller's session.
func (s *Server) handleGetStagedFile(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Lookup(w, r)

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid file index", http.StatusBadRequest)
		return
	}
	files := sess.Intake.Snapshot().Files
	if index < 0 || index >= len(files) {
		http.NotFound(w, r)
		return
	}

	reader, mediaType, err := s.blobs.Get(r.Context(), files[index].StorageKey)
	if err != nil {
		if !errors.Is(err, stagestore.ErrNotFound) {
			s.logger.Error("get staged file failed", "session", sess.ID, "error", err)
		}
		http.NotFound(w, r)
		return
	}
	defer closeWithLog(reader, "staged file reader", s.logger)

	w.Header().Set("Content-Type", mediaType)
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write staged file failed", "session", sess.ID, "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
