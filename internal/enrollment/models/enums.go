package models

import (
	"strings"

	dErrors "enrolld/pkg/domain-errors"
)

// Gender of the enrolled person.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// ParseGender validates a raw gender value.
func ParseGender(v string) (Gender, error) {
	switch Gender(strings.ToUpper(strings.TrimSpace(v))) {
	case GenderMale:
		return GenderMale, nil
	case GenderFemale:
		return GenderFemale, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "gender must be MALE or FEMALE")
	}
}

// EducationLevel is the highest level attained. The zero value means the
// surveyor did not capture it; scoring treats unset like NONE.
type EducationLevel string

const (
	EducationUnset     EducationLevel = ""
	EducationNone      EducationLevel = "NONE"
	EducationPrimary   EducationLevel = "PRIMARY"
	EducationSecondary EducationLevel = "SECONDARY"
	EducationHigher    EducationLevel = "HIGHER"
)

// ParseEducationLevel validates a raw education level. Empty input is valid
// and maps to EducationUnset.
func ParseEducationLevel(v string) (EducationLevel, error) {
	switch EducationLevel(strings.ToUpper(strings.TrimSpace(v))) {
	case EducationUnset:
		return EducationUnset, nil
	case EducationNone:
		return EducationNone, nil
	case EducationPrimary:
		return EducationPrimary, nil
	case EducationSecondary:
		return EducationSecondary, nil
	case EducationHigher:
		return EducationHigher, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "education_level must be one of NONE, PRIMARY, SECONDARY, HIGHER")
	}
}

// Province is one of the nine administrative regions of the program.
type Province string

const (
	ProvinceEstuaire       Province = "ESTUAIRE"
	ProvinceHautOgooue     Province = "HAUT_OGOOUE"
	ProvinceMoyenOgooue    Province = "MOYEN_OGOOUE"
	ProvinceNgounie        Province = "NGOUNIE"
	ProvinceNyanga         Province = "NYANGA"
	ProvinceOgooueIvindo   Province = "OGOOUE_IVINDO"
	ProvinceOgooueLolo     Province = "OGOOUE_LOLO"
	ProvinceOgooueMaritime Province = "OGOOUE_MARITIME"
	ProvinceWoleuNtem      Province = "WOLEU_NTEM"
)

var provinces = map[Province]struct{}{
	ProvinceEstuaire:       {},
	ProvinceHautOgooue:     {},
	ProvinceMoyenOgooue:    {},
	ProvinceNgounie:        {},
	ProvinceNyanga:         {},
	ProvinceOgooueIvindo:   {},
	ProvinceOgooueLolo:     {},
	ProvinceOgooueMaritime: {},
	ProvinceWoleuNtem:      {},
}

// ParseProvince validates a raw province value.
func ParseProvince(v string) (Province, error) {
	p := Province(strings.ToUpper(strings.TrimSpace(v)))
	if _, ok := provinces[p]; ok {
		return p, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "province is not a recognized administrative region")
}

// TriState captures survey answers where "don't know" is a real response,
// distinct from both yes and no.
type TriState string

const (
	TriYes     TriState = "yes"
	TriNo      TriState = "no"
	TriUnknown TriState = "unknown"
)

// ParseTriState validates a raw tri-state answer. Empty input maps to
// TriUnknown.
func ParseTriState(v string) (TriState, error) {
	switch TriState(strings.ToLower(strings.TrimSpace(v))) {
	case TriYes:
		return TriYes, nil
	case TriNo:
		return TriNo, nil
	case TriUnknown, "":
		return TriUnknown, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "answer must be yes, no or unknown")
	}
}

// ZoneType describes the household's habitat zone.
type ZoneType string

const (
	ZoneUrbanCenter     ZoneType = "URBAN_CENTER"
	ZoneUrbanPeriphery  ZoneType = "URBAN_PERIPHERY"
	ZoneRuralAccessible ZoneType = "RURAL_ACCESSIBLE"
	ZoneRuralRemote     ZoneType = "RURAL_REMOTE"
	ZoneCoastal         ZoneType = "COASTAL"
	ZoneForest          ZoneType = "FOREST"
	ZoneMining          ZoneType = "MINING"
)

var zoneTypes = map[ZoneType]struct{}{
	ZoneUrbanCenter:     {},
	ZoneUrbanPeriphery:  {},
	ZoneRuralAccessible: {},
	ZoneRuralRemote:     {},
	ZoneCoastal:         {},
	ZoneForest:          {},
	ZoneMining:          {},
}

// ParseZoneType validates a raw zone type value.
func ParseZoneType(v string) (ZoneType, error) {
	z := ZoneType(strings.ToUpper(strings.TrimSpace(v)))
	if _, ok := zoneTypes[z]; ok {
		return z, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "zone_type is not a recognized zone")
}

// SyncStatus is the reconciliation state of a queued enrollment record.
type SyncStatus string

const (
	SyncPending SyncStatus = "PENDING"
	SyncSyncing SyncStatus = "SYNCING"
	SyncSynced  SyncStatus = "SYNCED"
	SyncFailed  SyncStatus = "FAILED"
)
