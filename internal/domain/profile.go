package domain

import (
	"fmt"
	"strings"
	"time"
)

// PatientProfile is the normalized patient snapshot supplied by the profile
// provider. It is immutable for the duration of one matching pass; the engine
// never mutates it.
type PatientProfile struct {
	PatientID string `json:"patient_id" validate:"required"`

	// Demographics. Age and Sex are pointers because source records
	// frequently omit them; absence resolves to missing_data, never an error.
	Age  *int    `json:"age,omitempty"`
	Sex  *string `json:"sex,omitempty"`
	City string  `json:"city,omitempty"`

	Conditions  []PatientCondition `json:"conditions,omitempty"`
	LabResults  []LabResult        `json:"lab_results,omitempty"`
	Medications []Medication       `json:"medications,omitempty"`
}

// PatientCondition is one diagnosed condition from the patient record.
type PatientCondition struct {
	DisplayName    string         `json:"display_name"`
	ClinicalStatus ClinicalStatus `json:"clinical_status"`
}

// LabResult is one laboratory observation. Value is kept as a string because
// source systems mix numeric and coded values; the engine only summarizes it.
type LabResult struct {
	DisplayName string     `json:"display_name"`
	Value       string     `json:"value"`
	Unit        string     `json:"unit,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

// Medication is one medication order or statement.
type Medication struct {
	DisplayName string `json:"display_name"`
	Status      string `json:"status,omitempty"`
}

// Validate ensures the profile is structurally usable for matching.
// Missing demographics are fine; a missing identifier is not.
func (p *PatientProfile) Validate() error {
	if p.PatientID == "" {
		return fmt.Errorf("patient profile validation: %w", ErrMissingPatientID)
	}
	return nil
}

// ActiveConditionNames returns the display names of conditions whose clinical
// status is exactly "active".
func (p *PatientProfile) ActiveConditionNames() []string {
	names := make([]string, 0, len(p.Conditions))
	for _, c := range p.Conditions {
		if c.ClinicalStatus == ClinicalStatusActive {
			names = append(names, c.DisplayName)
		}
	}
	return names
}

// ConditionNames returns the display names of all conditions.
func (p *PatientProfile) ConditionNames() []string {
	names := make([]string, 0, len(p.Conditions))
	for _, c := range p.Conditions {
		names = append(names, c.DisplayName)
	}
	return names
}

// Summary renders a bounded plain-text description of the patient for
// prompting the text interpreter: age, sex, up to maxConditions condition
// names, up to maxMedications medication names, up to maxLabs lab entries.
func (p *PatientProfile) Summary(maxConditions, maxMedications, maxLabs int) string {
	var b strings.Builder

	if p.Age != nil {
		fmt.Fprintf(&b, "Age: %d years. ", *p.Age)
	} else {
		b.WriteString("Age: unknown. ")
	}
	if p.Sex != nil {
		fmt.Fprintf(&b, "Sex: %s. ", *p.Sex)
	} else {
		b.WriteString("Sex: unknown. ")
	}

	if len(p.Conditions) > 0 {
		b.WriteString("Conditions: ")
		b.WriteString(strings.Join(truncateList(p.ConditionNames(), maxConditions), "; "))
		b.WriteString(". ")
	}
	if len(p.Medications) > 0 {
		meds := make([]string, 0, len(p.Medications))
		for _, m := range p.Medications {
			meds = append(meds, m.DisplayName)
		}
		b.WriteString("Medications: ")
		b.WriteString(strings.Join(truncateList(meds, maxMedications), "; "))
		b.WriteString(". ")
	}
	if len(p.LabResults) > 0 {
		labs := make([]string, 0, len(p.LabResults))
		for _, l := range p.LabResults {
			entry := l.DisplayName + " " + l.Value
			if l.Unit != "" {
				entry += " " + l.Unit
			}
			labs = append(labs, entry)
		}
		b.WriteString("Recent labs: ")
		b.WriteString(strings.Join(truncateList(labs, maxLabs), "; "))
		b.WriteString(".")
	}

	return strings.TrimSpace(b.String())
}

func truncateList(items []string, max int) []string {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}
