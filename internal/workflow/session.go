// Package workflow drives a plea from the filled-in form to the two service
// calls. A Session owns all mutable state for one user; nothing is global.
package workflow

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/example/plea-submit/internal/apperrors"
	"github.com/example/plea-submit/internal/attachment"
	"github.com/example/plea-submit/internal/crypto"
	"github.com/example/plea-submit/internal/filename"
	"github.com/example/plea-submit/internal/models"
	"github.com/example/plea-submit/internal/providers/plea"
	"github.com/example/plea-submit/internal/validator"
)

const (
	// ResetDelay is how long after an accepted plea the form is cleared.
	ResetDelay = 200 * time.Millisecond
	// PreCheckWindow is the debounce window of the phone pre-check.
	PreCheckWindow = 500 * time.Millisecond
)

// Observer receives every state transition of a submission attempt.
type Observer interface {
	OnState(event models.StateEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(event models.StateEvent)

// OnState calls f.
func (f ObserverFunc) OnState(event models.StateEvent) { f(event) }

// Dependencies collects the collaborators of a Session.
type Dependencies struct {
	Provider     plea.Provider
	Validator    *validator.Validator
	Observer     Observer
	Logger       zerolog.Logger
	Now          func() time.Time
	NewAttemptID func() string
}

// Session holds one user's form and enforces that at most one submission is
// in flight. It is safe for concurrent use.
type Session struct {
	provider     plea.Provider
	validator    *validator.Validator
	observer     Observer
	logger       zerolog.Logger
	now          func() time.Time
	newAttemptID func() string

	latch *semaphore.Weighted

	mu          sync.Mutex
	form        models.Form
	att         *attachment.Attachment
	state       models.State
	lockedUntil time.Time
	resetTimer  *time.Timer
	resetGen    uint64
}

// NewSession constructs a Session in the Idle state.
func NewSession(deps Dependencies) (*Session, error) {
	if deps.Provider == nil {
		return nil, errors.New("workflow: provider dependency is required")
	}

	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	logger = logger.With().Str("component", "workflow").Logger()

	v := deps.Validator
	if v == nil {
		v = validator.New(logger)
	}
	nowFunc := deps.Now
	if nowFunc == nil {
		nowFunc = time.Now
	}
	newID := deps.NewAttemptID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Session{
		provider:     deps.Provider,
		validator:    v,
		observer:     deps.Observer,
		logger:       logger,
		now:          nowFunc,
		newAttemptID: newID,
		latch:        semaphore.NewWeighted(1),
		state:        models.StateIdle,
	}, nil
}

// SetForm replaces the form and attachment and cancels a pending reset.
func (s *Session) SetForm(form models.Form, att *attachment.Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopResetLocked()
	s.form = form
	s.att = att
}

// Form returns the current form and attachment.
func (s *Session) Form() (models.Form, *attachment.Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form, s.att
}

// State returns the state of the current or last attempt.
func (s *Session) State() models.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close cancels a pending form reset.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopResetLocked()
}

// Submit validates the current form and performs the metadata call followed
// by the upload. A Result is returned once the metadata was accepted; an
// upload failure is reported in Result.UploadErr only.
func (s *Session) Submit(ctx context.Context) (*models.Result, error) {
	// Only the latch holder touches session state. A busy latch is reported
	// after checks 1 to 6.
	acquired := s.latch.TryAcquire(1)

	form, att := s.Form()
	normalized, err := s.validator.Validate(form, att)
	if !acquired {
		if err != nil {
			return nil, err
		}
		err = validator.InFlight()
		s.logger.Warn().Err(err).Msg("workflow: submission rejected")
		return nil, err
	}
	defer s.latch.Release(1)

	attemptID := s.newAttemptID()
	log := s.logger.With().Str("attempt_id", attemptID).Logger()

	s.transition(attemptID, models.StateValidating, nil)
	if err != nil {
		return nil, s.fail(log, attemptID, err)
	}

	s.transition(attemptID, models.StateEncrypting, nil)
	now := s.now()
	cipherPhone, err := crypto.EncryptPhone(normalized.ComplaintPhone, now.UnixMilli())
	if err != nil {
		return nil, s.fail(log, attemptID, apperrors.WrapCrypto(err))
	}
	name, err := filename.Build(normalized.UserPhone, filename.ExtensionOf(att.Name), now)
	if err != nil {
		return nil, s.fail(log, attemptID, apperrors.NewValidationCause(validator.CheckUserPhone, err))
	}
	req := &models.ComplaintRequest{
		OpenID:      normalized.OpenID,
		PleaType:    models.PleaType,
		PleaPhone:   cipherPhone,
		CompanyID:   normalized.CompanyID,
		CompanyName: normalized.CompanyName,
		PleaReason:  normalized.PleaReason,
		Filename:    name,
	}
	req.Sign, err = crypto.EncryptSign(crypto.SignPayload(req.SignFields()...))
	if err != nil {
		return nil, s.fail(log, attemptID, apperrors.WrapCrypto(err))
	}

	s.transition(attemptID, models.StateSubmittingMetadata, nil)
	addResp, err := s.provider.AddPlea(ctx, req)
	if err != nil {
		return nil, s.fail(log, attemptID, asNetwork(err))
	}
	if !addResp.OK() {
		return nil, s.fail(log, attemptID, apperrors.NewServerRejection(addResp.Code, addResp.Msg))
	}
	log.Info().Str("filename", name).Msg("workflow: plea accepted")

	result := &models.Result{AttemptID: attemptID, Filename: name, Add: addResp}

	s.transition(attemptID, models.StateUploadingFile, nil)
	uploadResp, err := s.provider.Upload(ctx, name, att)
	result.Upload = uploadResp
	if err != nil {
		result.UploadErr = err.Error()
		log.Warn().Err(err).Str("filename", name).Msg("workflow: upload failed")
	} else {
		log.Info().Str("filename", name).Int("status", uploadResp.StatusCode).Msg("workflow: upload completed")
	}

	s.transition(attemptID, models.StateSucceeded, nil)
	s.transition(attemptID, models.StateIdle, nil)
	s.scheduleReset()
	return result, nil
}

// PreCheck asks the service whether phone is a flagged number. Calls within
// PreCheckWindow of the previous one are rejected. The complaint phone is
// cleared from the form when the check fails.
func (s *Session) PreCheck(ctx context.Context, phone string) error {
	s.mu.Lock()
	now := s.now()
	if now.Before(s.lockedUntil) {
		s.mu.Unlock()
		return apperrors.ErrPreCheckLocked
	}
	s.lockedUntil = now.Add(PreCheckWindow)
	s.mu.Unlock()

	log := s.logger.With().Str("operation", "pre_check").Logger()

	normalized := validator.Normalize(models.Form{ComplaintPhone: phone}).ComplaintPhone
	if err := validator.ValidatePhone(normalized); err != nil {
		s.clearComplaintPhone()
		return err
	}

	cipherPhone, err := crypto.EncryptPhone(normalized, now.UnixMilli())
	if err != nil {
		return apperrors.WrapCrypto(err)
	}
	resp, err := s.provider.QueryPhone(ctx, cipherPhone)
	if err != nil {
		log.Warn().Err(err).Msg("workflow: phone check failed")
		return asNetwork(err)
	}
	if !resp.OK() {
		s.clearComplaintPhone()
		return apperrors.NewServerRejection(resp.Code, resp.Msg)
	}
	if resp.DataString() == "0" {
		s.clearComplaintPhone()
		return apperrors.NewServerRejectionCause(resp.Code, apperrors.ErrNotFlagged)
	}
	log.Debug().Msg("workflow: phone is flagged")
	return nil
}

func (s *Session) fail(log zerolog.Logger, attemptID string, err error) error {
	log.Warn().
		Err(err).
		Str("kind", apperrors.Kind(err)).
		Msg("workflow: submission failed")
	s.transition(attemptID, models.StateFailed, err)
	s.transition(attemptID, models.StateIdle, nil)
	return err
}

func (s *Session) transition(attemptID string, state models.State, err error) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	if s.observer == nil {
		return
	}
	event := models.StateEvent{AttemptID: attemptID, State: state, Timestamp: s.now()}
	if err != nil {
		event.Error = err.Error()
	}
	s.observer.OnState(event)
}

// scheduleReset clears the per-plea fields after ResetDelay. The account
// fields are kept for the next plea.
func (s *Session) scheduleReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopResetLocked()
	gen := s.resetGen
	s.resetTimer = time.AfterFunc(ResetDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.resetGen != gen {
			return
		}
		s.form = models.Form{OpenID: s.form.OpenID, UserPhone: s.form.UserPhone}
		s.att = nil
		s.resetTimer = nil
	})
}

func (s *Session) stopResetLocked() {
	s.resetGen++
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
}

func (s *Session) clearComplaintPhone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.ComplaintPhone = ""
}

func asNetwork(err error) error {
	if errors.Is(err, apperrors.ErrNetwork) {
		return err
	}
	return apperrors.WrapNetwork(err)
}
