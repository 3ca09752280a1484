// Package workflow drives the multi-step enrollment capture: identity,
// household, score preview, confirm. Steps are strictly linear going
// forward; each forward transition re-validates, and going back never
// discards entered data. One workflow instance serves one in-progress form.
package workflow

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"enrolld/internal/enrollment/models"
	"enrolld/internal/enrollment/scoring"
	"enrolld/internal/enrollment/store"
	"enrolld/internal/enrollment/validate"
	dErrors "enrolld/pkg/domain-errors"
	"enrolld/pkg/requestcontext"
)

// Step is the workflow position.
type Step string

const (
	StepIdentity     Step = "identity"
	StepHousehold    Step = "household"
	StepScorePreview Step = "score_preview"
	StepConfirm      Step = "confirm"
)

// FieldErrors aggregates per-field rejections from one step submission. The
// capture UI renders them next to the offending inputs.
type FieldErrors []*validate.FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

// ByField returns the rejection reasons keyed by field name.
func (e FieldErrors) ByField() map[string]validate.Reason {
	out := make(map[string]validate.Reason, len(e))
	for _, fe := range e {
		out[fe.Field] = fe.Reason
	}
	return out
}

// Workflow is the capture state machine. Not safe for concurrent use: a
// session drives exactly one in-progress form at a time.
type Workflow struct {
	step      Step
	person    models.PersonRecord
	household models.HouseholdRecord
	location  *models.Geolocation
	preview   *models.Assessment
	clientID  string
}

func New() *Workflow {
	return &Workflow{step: StepIdentity}
}

func (w *Workflow) Step() Step { return w.step }

// Person returns the identity data entered so far; valid after the Identity
// step has been passed at least once.
func (w *Workflow) Person() models.PersonRecord { return w.person }

// Household returns the household data entered so far.
func (w *Workflow) Household() models.HouseholdRecord { return w.household }

// Preview returns the score preview, or nil before the ScorePreview step
// has been reached.
func (w *Workflow) Preview() *models.Assessment { return w.preview }

// SetLocation attaches the device fix. Allowed at any step.
func (w *Workflow) SetLocation(loc *models.Geolocation) { w.location = loc }

// SubmitIdentity validates the identity fields and, when they all pass,
// stores them and advances to the Household step. On failure the workflow
// stays put and the returned FieldErrors carries every rejection at once.
// Entered data is kept either way so the surveyor can correct in place.
func (w *Workflow) SubmitIdentity(ctx context.Context, person models.PersonRecord) error {
	if w.step != StepIdentity {
		return dErrors.New(dErrors.CodeInvariantViolation, "identity step already completed; go back first")
	}

	var errs FieldErrors
	addErr := func(err error) {
		if fe, ok := err.(*validate.FieldError); ok {
			errs = append(errs, fe)
		}
	}

	person.FirstName = strings.TrimSpace(person.FirstName)
	person.LastName = strings.TrimSpace(person.LastName)
	if person.FirstName == "" {
		errs = append(errs, &validate.FieldError{Field: "first_name", Reason: validate.ReasonMissing})
	}
	if person.LastName == "" {
		errs = append(errs, &validate.FieldError{Field: "last_name", Reason: validate.ReasonMissing})
	}

	// NIP is optional; only validate the format when one was captured.
	if strings.TrimSpace(person.NationalID) != "" {
		if err := validate.NationalID(person.NationalID); err != nil {
			addErr(err)
		} else {
			person.NationalID = strings.TrimSpace(person.NationalID)
		}
	} else {
		person.NationalID = ""
	}

	if _, _, err := validate.BirthDate(person.BirthDate, requestcontext.Now(ctx)); err != nil {
		addErr(err)
	}

	// Enum fields are stored in their canonical form so scoring and the
	// authority payload never see a case variant of an accepted value.
	if gender, err := models.ParseGender(string(person.Gender)); err != nil {
		errs = append(errs, &validate.FieldError{Field: "gender", Reason: validate.ReasonInvalidFormat})
	} else {
		person.Gender = gender
	}

	if level, err := models.ParseEducationLevel(string(person.EducationLevel)); err != nil {
		errs = append(errs, &validate.FieldError{Field: "education_level", Reason: validate.ReasonInvalidFormat})
	} else {
		person.EducationLevel = level
	}

	normalizedPhone, err := validate.Phone(person.Phone)
	if err != nil {
		addErr(err)
	} else {
		person.Phone = normalizedPhone
	}

	if province, err := models.ParseProvince(string(person.Province)); err != nil {
		errs = append(errs, &validate.FieldError{Field: "province", Reason: validate.ReasonInvalidFormat})
	} else {
		person.Province = province
	}

	w.person = person
	if len(errs) > 0 {
		return errs
	}
	w.step = StepHousehold
	return nil
}

// SubmitHousehold validates the required household fields and advances to
// the ScorePreview step, recomputing the preview from the current snapshot.
func (w *Workflow) SubmitHousehold(ctx context.Context, household models.HouseholdRecord) error {
	if w.step != StepHousehold {
		return dErrors.New(dErrors.CodeInvariantViolation, "household step not reachable from " + string(w.step))
	}

	var errs FieldErrors
	if household.Size <= 0 {
		errs = append(errs, &validate.FieldError{Field: "size", Reason: validate.ReasonMissing})
	}
	if zone, err := models.ParseZoneType(string(household.ZoneType)); err != nil {
		reason := validate.ReasonInvalidFormat
		if strings.TrimSpace(string(household.ZoneType)) == "" {
			reason = validate.ReasonMissing
		}
		errs = append(errs, &validate.FieldError{Field: "zone_type", Reason: reason})
	} else {
		household.ZoneType = zone
	}

	answers := []struct {
		field string
		value *models.TriState
	}{
		{"has_electricity", &household.HasElectricity},
		{"has_water", &household.HasWater},
		{"has_disabled_member", &household.HasDisabledMember},
		{"has_savings", &household.HasSavings},
		{"has_food_security", &household.HasFoodSecurity},
	}
	for _, a := range answers {
		answer, err := models.ParseTriState(string(*a.value))
		if err != nil {
			errs = append(errs, &validate.FieldError{Field: a.field, Reason: validate.ReasonInvalidFormat})
			continue
		}
		*a.value = answer
	}

	w.household = household
	if len(errs) > 0 {
		return errs
	}

	// The preview always reflects the snapshot at this transition, never a
	// cached value from an earlier partial entry.
	preview := scoring.Compute(w.person, w.household, requestcontext.Now(ctx))
	w.preview = &preview
	w.step = StepScorePreview
	return nil
}

// Advance moves from ScorePreview to Confirm. The preview step is purely
// informational, so this transition is unconditional.
func (w *Workflow) Advance() error {
	if w.step != StepScorePreview {
		return dErrors.New(dErrors.CodeInvariantViolation, "nothing to advance from " + string(w.step))
	}
	w.step = StepConfirm
	return nil
}

// Back moves one step backward. Always permitted; entered data survives.
func (w *Workflow) Back() {
	switch w.step {
	case StepHousehold:
		w.step = StepIdentity
	case StepScorePreview:
		w.step = StepHousehold
	case StepConfirm:
		w.step = StepScorePreview
	}
}

// Save builds the EnrollmentRecord from the confirmed snapshot, enqueues it
// and resets the workflow to a fresh instance. The client ID is assigned on
// the first save attempt and reused if enqueue fails and is retried, so
// re-saving the same form can never duplicate a queue entry.
func (w *Workflow) Save(ctx context.Context, st store.Store) (string, error) {
	if w.step != StepConfirm {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "save requires the confirm step")
	}
	if w.clientID == "" {
		w.clientID = uuid.NewString()
	}

	record := &models.EnrollmentRecord{
		ClientID:   w.clientID,
		Person:     w.person,
		Household:  w.household,
		Location:   w.location,
		LocalScore: scoring.Compute(w.person, w.household, requestcontext.Now(ctx)),
		SyncStatus: models.SyncPending,
		CreatedAt:  requestcontext.Now(ctx),
	}

	clientID, err := st.Enqueue(ctx, record)
	if err != nil {
		// Keep state (including the assigned client ID) so the surveyor can
		// retry the save; losing the capture here is the worst failure mode.
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist enrollment")
	}

	*w = *New()
	return clientID, nil
}
