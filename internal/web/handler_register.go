package web

import (
	"errors"
	"net/http"

	"github.com/vbonduro/productreg/internal/domain"
	"github.com/vbonduro/productreg/internal/intake"
)

var registerFormFiles = []string{
	"partials/register_form.html", "partials/files.html", "partials/field_error.html",
}

type registerView struct {
	ActiveNav  string
	Form       domain.FormRecord
	Files      []domain.StagedFile
	Errors     intake.ValidationErrors
	State      intake.State
	Notice     *intake.Notice
	Categories []domain.Option
	Models     []domain.Option
}

// snapshotView renders the controller without consuming its notice.
func snapshotView(c *intake.Controller) registerView {
	snap := c.Snapshot()
	return registerView{
		ActiveNav:  "register",
		Form:       snap.Form,
		Files:      snap.Files,
		Errors:     snap.Errors,
		State:      snap.State,
		Categories: domain.Categories,
		Models:     domain.Models,
	}
}

func newRegisterView(c *intake.Controller) registerView {
	v := snapshotView(c)
	v.Notice = c.TakeNotice()
	return v
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Lookup(w, r)

	files := append([]string{"base.html", "pages/register.html"}, registerFormFiles...)
	if err := s.renderPage(w, newRegisterView(sess.Intake), files...); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// handleUpdateField applies one field edit and returns that field's error slot.
func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Lookup(w, r)
	name := r.PathValue("name")

	if err := sess.Intake.UpdateField(name, r.FormValue(name)); err != nil {
		if errors.Is(err, intake.ErrUnknownField) {
			http.Error(w, "unknown field", http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to update field", http.StatusInternalServerError)
		s.logger.Error("update field failed", "field", name, "error", err)
		return
	}

	snap := sess.Intake.Snapshot()
	if err := s.renderPartial(w, "field_error", fieldError(snap.Errors, name), "partials/field_error.html"); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

var submitFields = []string{
	domain.FieldCategory, domain.FieldModel, domain.FieldSerialNumber, domain.FieldDateOfInvoice,
}

// handleSubmit applies any posted field values and files, then submits.
// HTMX requests get the re-rendered form; plain posts are redirected back.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Lookup(w, r)

	if !s.parseUpload(w, r, true) {
		return
	}
	if r.MultipartForm != nil {
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				s.logger.Error("failed to remove multipart temp files", "error", err)
			}
		}()
	}
	for _, field := range submitFields {
		if values, ok := r.Form[field]; ok && len(values) > 0 {
			if err := sess.Intake.UpdateField(field, values[0]); err != nil {
				s.logger.Error("update field failed", "field", field, "error", err)
			}
		}
	}

	// HTMX stages files as they are picked; only plain posts carry them here.
	if !isHTMX(r) && r.MultipartForm != nil {
		if headers := r.MultipartForm.File[domain.FieldFiles]; len(headers) > 0 {
			if err := s.stageUploads(r, sess.Intake, headers); err != nil && !errors.Is(err, intake.ErrInvalid) {
				s.logger.Error("stage files failed", "session", sess.ID, "error", err)
			}
		}
	}

	err := sess.Intake.Submit(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, intake.ErrInvalid):
		s.logger.Debug("submission rejected by validation", "session", sess.ID)
	case errors.Is(err, intake.ErrSubmitInFlight):
		s.logger.Warn("submission already in flight", "session", sess.ID)
	default:
		s.logger.Error("submission failed", "session", sess.ID, "error", err)
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := s.renderPartial(w, "register_form", newRegisterView(sess.Intake), registerFormFiles...); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}
