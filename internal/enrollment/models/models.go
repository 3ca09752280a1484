package models

import "time"

// PersonRecord is the identity portion of an enrollment, captured on the
// Identity step. BirthDate stays in its wire form (2006-01-02); the
// validators parse it and derive the age.
type PersonRecord struct {
	FirstName      string         `json:"first_name" db:"first_name"`
	LastName       string         `json:"last_name" db:"last_name"`
	NationalID     string         `json:"national_id,omitempty" db:"national_id"`
	BirthDate      string         `json:"birth_date" db:"birth_date"`
	Gender         Gender         `json:"gender" db:"gender"`
	Phone          string         `json:"phone,omitempty" db:"phone"`
	EducationLevel EducationLevel `json:"education_level,omitempty" db:"education_level"`
	Province       Province       `json:"province" db:"province"`
}

// HouseholdRecord is the household portion of an enrollment. MonthlyIncome
// is nil when the respondent could not state it; scoring treats missing
// income as zero.
type HouseholdRecord struct {
	Size              int      `json:"size" db:"size"`
	HasElectricity    TriState `json:"has_electricity" db:"has_electricity"`
	HasWater          TriState `json:"has_water" db:"has_water"`
	HasDisabledMember TriState `json:"has_disabled_member" db:"has_disabled_member"`
	HasSavings        TriState `json:"has_savings" db:"has_savings"`
	HasFoodSecurity   TriState `json:"has_food_security" db:"has_food_security"`
	MonthlyIncome     *float64 `json:"monthly_income,omitempty" db:"monthly_income"`
	ZoneType          ZoneType `json:"zone_type" db:"zone_type"`
}

// Geolocation is the device fix captured at save time, when available.
type Geolocation struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	AccuracyM  float64   `json:"accuracy_m"`
	CapturedAt time.Time `json:"captured_at"`
}

// EnrollmentRecord is the unit of sync: one beneficiary enrollment queued
// for reconciliation with the registry authority.
//
// Invariants:
//   - ClientID is assigned once and never changes; it doubles as the
//     idempotency key toward the authority.
//   - Status transitions are owned by the sync reconciler. The workflow only
//     ever creates records in PENDING.
//   - A record leaves the pending queue only by reaching SYNCED. FAILED
//     records stay queued for retry (or human attention when the failure is
//     permanent).
//   - ServerID and ServerScore are set exactly once, on successful sync.
//     LocalScore is preserved alongside so score divergence stays visible.
type EnrollmentRecord struct {
	ClientID  string          `json:"client_id"`
	Person    PersonRecord    `json:"person"`
	Household HouseholdRecord `json:"household"`
	Location  *Geolocation    `json:"location,omitempty"`

	LocalScore Assessment `json:"local_score"`

	SyncStatus       SyncStatus `json:"sync_status"`
	Attempts         int        `json:"attempts"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	FailurePermanent bool       `json:"failure_permanent,omitempty"`

	CreatedAt     time.Time `json:"created_at"`
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`

	ServerID    string `json:"server_id,omitempty"`
	ServerScore *int   `json:"server_score,omitempty"`
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate the durable representation behind the store's back.
func (r *EnrollmentRecord) Clone() *EnrollmentRecord {
	out := *r
	if r.Location != nil {
		loc := *r.Location
		out.Location = &loc
	}
	if r.Household.MonthlyIncome != nil {
		income := *r.Household.MonthlyIncome
		out.Household.MonthlyIncome = &income
	}
	if r.ServerScore != nil {
		score := *r.ServerScore
		out.ServerScore = &score
	}
	if r.LocalScore.Factors != nil {
		out.LocalScore.Factors = make([]Factor, len(r.LocalScore.Factors))
		copy(out.LocalScore.Factors, r.LocalScore.Factors)
	}
	return &out
}

// ScoreDiverged reports whether the authority recomputed a different score
// than the one previewed on the device. Only meaningful after sync.
func (r *EnrollmentRecord) ScoreDiverged() bool {
	return r.ServerScore != nil && *r.ServerScore != r.LocalScore.Score
}
