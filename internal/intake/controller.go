// Package intake owns the product registration form: field edits, file
// staging, validation and the submission lifecycle of one session.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vbonduro/productreg/internal/domain"
)

var (
	// ErrInvalid is returned when validation or file staging rejects input.
	// The reasons are available through Snapshot().Errors.
	ErrInvalid = errors.New("intake: invalid input")
	// ErrSubmitInFlight is returned by Submit while a submission is pending.
	ErrSubmitInFlight = errors.New("intake: submission already in flight")
	// ErrUnknownField is returned by UpdateField for names outside the form.
	ErrUnknownField = errors.New("intake: unknown field")
)

// Submitter sends a registration to the Submission Service.
type Submitter interface {
	Register(ctx context.Context, rec domain.Record) error
}

// Snapshot is a consistent copy of a controller's state for rendering.
type Snapshot struct {
	Form   domain.FormRecord
	Files  []domain.StagedFile
	Errors ValidationErrors
	State  State
}

// Controller is the state machine behind one intake session. It is safe for
// concurrent use.
type Controller struct {
	submitter Submitter
	blobs     blobStore
	limits    Limits
	prefix    string
	logger    *slog.Logger

	mu     sync.Mutex
	form   domain.FormRecord
	files  []domain.StagedFile
	errs   ValidationErrors
	state  State
	notice *Notice
}

// NewController creates an empty intake session. prefix namespaces the
// session's staged blobs.
func NewController(submitter Submitter, blobs blobStore, limits Limits, prefix string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		submitter: submitter,
		blobs:     blobs,
		limits:    limits,
		prefix:    prefix,
		logger:    logger.With("component", "intake", "session", prefix),
		errs:      ValidationErrors{},
		state:     State{Phase: PhaseIdle},
	}
}

// UpdateField sets a form field. The field's error is cleared only when value
// is non-empty; an empty value leaves a previous error until the next submit.
func (c *Controller) UpdateField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch name {
	case domain.FieldCategory:
		c.form.Category = value
	case domain.FieldModel:
		c.form.Model = value
	case domain.FieldSerialNumber:
		c.form.SerialNumber = value
	case domain.FieldDateOfInvoice:
		c.form.DateOfInvoice = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	if value != "" {
		delete(c.errs, name)
	}
	if c.state.Phase == PhaseSucceeded || c.state.Phase == PhaseFailed {
		c.state = State{Phase: PhaseIdle}
	}
	return nil
}

// Validate runs every rule against the current form and staged files without
// changing the controller.
func (c *Controller) Validate() ValidationErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Validate(c.form, c.files)
}

// Submit validates the form and, when valid, registers it with the
// Submission Service. On success the form and staged files are reset. On
// failure the form is kept, submission is re-enabled and the error returned.
// If ctx is cancelled before the service answers the outcome is discarded.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Submitting() {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}

	c.state = State{Phase: PhaseValidating}
	errs := Validate(c.form, c.files)
	if !errs.Empty() {
		c.errs = errs
		c.state = State{Phase: PhaseIdle}
		c.mu.Unlock()
		return ErrInvalid
	}

	c.errs = ValidationErrors{}
	c.state = State{Phase: PhaseSubmitting}
	c.notice = nil
	rec := c.form.ToRecord()
	c.mu.Unlock()

	c.logger.Info("submitting registration", "serial_number", rec.SNumber)
	err := c.submitter.Register(ctx, rec)

	c.mu.Lock()
	if err != nil {
		if ctx.Err() != nil {
			c.state = State{Phase: PhaseIdle}
			c.mu.Unlock()
			c.logger.Info("submission abandoned", "serial_number", rec.SNumber, "error", ctx.Err())
			return fmt.Errorf("submission cancelled: %w", ctx.Err())
		}
		c.state = State{Phase: PhaseFailed, Reason: err.Error()}
		n := failedNotice
		c.notice = &n
		c.mu.Unlock()
		c.logger.Error("submission failed", "serial_number", rec.SNumber, "error", err)
		return fmt.Errorf("failed to register product: %w", err)
	}

	submitted := c.files
	c.form = domain.FormRecord{}
	c.files = nil
	c.state = State{Phase: PhaseSucceeded}
	n := registeredNotice
	c.notice = &n
	c.mu.Unlock()

	c.logger.Info("registration submitted", "serial_number", rec.SNumber, "files", len(submitted))
	c.discard(context.WithoutCancel(ctx), submitted)
	return nil
}

// TakeNotice returns the pending notice, if any, and clears it.
func (c *Controller) TakeNotice() *Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.notice
	c.notice = nil
	return n
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Form:   c.form,
		Files:  append([]domain.StagedFile(nil), c.files...),
		Errors: c.errs.clone(),
		State:  c.state,
	}
}

// Reset drops the whole session, including staged blobs.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	files := c.files
	c.form = domain.FormRecord{}
	c.files = nil
	c.errs = ValidationErrors{}
	c.state = State{Phase: PhaseIdle}
	c.notice = nil
	c.mu.Unlock()

	c.discard(ctx, files)
}
