// Package validator gates a plea before anything is encrypted or sent.
//
// Checks run in a fixed order and stop at the first failure, so exactly one
// reason is reported when several fields are wrong:
//
//  1. complaint phone present
//  2. complaint phone has at least MinPhoneDigits digits
//  3. company name present
//  4. company id has at least MinCompanyIDLen characters
//  5. complaint reason present
//  6. attachment present, JPEG or PNG, within the size limit
//  7. no submission already in flight
//
// Check 7 depends on workflow state; the workflow evaluates it through
// InFlight after Validate succeeds.
package validator

import (
	"reflect"

	"github.com/rs/zerolog"

	"github.com/example/plea-submit/internal/apperrors"
	"github.com/example/plea-submit/internal/attachment"
	"github.com/example/plea-submit/internal/models"
	"github.com/example/plea-submit/internal/util"
)

const (
	MinPhoneDigits  = 3
	MinCompanyIDLen = 15
)

// Check identifiers, in evaluation order.
const (
	CheckPhoneRequired       = "phone_required"
	CheckPhoneTooShort       = "phone_too_short"
	CheckCompanyNameRequired = "company_name_required"
	CheckCompanyIDFormat     = "company_id_format"
	CheckReasonRequired      = "reason_required"
	CheckAttachment          = "attachment"
	CheckInFlight            = "in_flight"

	// CheckUserPhone is raised while deriving the upload filename.
	CheckUserPhone = "user_phone"
)

// User-facing messages for each check.
const (
	MsgPhoneRequired       = "please enter the phone number to complain about"
	MsgPhoneTooShort       = "the complaint phone number must have at least 3 digits"
	MsgCompanyNameRequired = "the organization name must not be empty"
	MsgCompanyIDFormat     = "the organization registration id is malformed"
	MsgReasonRequired      = "the complaint reason must not be empty"
	MsgAttachmentRequired  = "the business license attachment must not be empty"
)

// Validator runs the ordered field checks.
type Validator struct {
	logger zerolog.Logger
}

// New constructs a Validator.
func New(logger zerolog.Logger) *Validator {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Validator{logger: logger}
}

// Normalize strips non-digits from the complaint phone and reduces the
// company id to upper-case alphanumerics. Other fields are kept verbatim.
func Normalize(form models.Form) models.Form {
	form.ComplaintPhone = util.DigitsOnly(form.ComplaintPhone)
	form.CompanyID = util.NormalizeCompanyID(form.CompanyID)
	return form
}

// Validate normalizes form and runs checks 1 to 6. The normalized form is
// returned even on failure.
func (v *Validator) Validate(form models.Form, att *attachment.Attachment) (models.Form, error) {
	form = Normalize(form)

	if err := ValidatePhone(form.ComplaintPhone); err != nil {
		return form, v.reject(err)
	}
	if util.IsBlank(form.CompanyName) {
		return form, v.reject(apperrors.NewValidation(CheckCompanyNameRequired, MsgCompanyNameRequired))
	}
	if util.EnsureMinRunes("company_id", form.CompanyID, MinCompanyIDLen) != nil {
		return form, v.reject(apperrors.NewValidation(CheckCompanyIDFormat, MsgCompanyIDFormat))
	}
	if util.IsBlank(form.PleaReason) {
		return form, v.reject(apperrors.NewValidation(CheckReasonRequired, MsgReasonRequired))
	}
	if att == nil {
		return form, v.reject(apperrors.NewValidation(CheckAttachment, MsgAttachmentRequired))
	}
	if err := att.Check(); err != nil {
		return form, v.reject(apperrors.NewValidationCause(CheckAttachment, err))
	}
	return form, nil
}

// ValidatePhone runs checks 1 and 2 on an already normalized phone number.
func ValidatePhone(phone string) error {
	if phone == "" {
		return apperrors.NewValidation(CheckPhoneRequired, MsgPhoneRequired)
	}
	if len(phone) < MinPhoneDigits {
		return apperrors.NewValidation(CheckPhoneTooShort, MsgPhoneTooShort)
	}
	return nil
}

// InFlight is the failure for check 7.
func InFlight() error {
	return apperrors.NewValidationCause(CheckInFlight, apperrors.ErrInFlight)
}

func (v *Validator) reject(err error) error {
	if ve, ok := err.(*apperrors.ValidationError); ok {
		v.logger.Debug().Str("check", ve.Check).Msg("validator: plea rejected")
	}
	return err
}
