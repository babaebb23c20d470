// Package models defines the public output types of a prescription
// extraction run.
package models

import (
	"time"

	"rxtract/internal/merge"
	"rxtract/internal/schema"
)

// Prescription is the extracted record. Every key is always present in the
// JSON output; absent fields render as null regardless of kind.
type Prescription struct {
	PatientName    *string `json:"patient_name"`
	PatientAddress *string `json:"patient_address"`
	PatientDOB     *string `json:"patient_dob"`
	PatientAge     *string `json:"patient_age"`
	PatientSex     *string `json:"patient_sex"`

	PrescriptionDate *string `json:"prescription_date"`
	DoctorName       *string `json:"doctor_name"`
	DoctorTitle      *string `json:"doctor_title"`
	ClinicAddress    *string `json:"clinic_address"`
	ClinicPhone      *string `json:"clinic_phone"`

	MedicineName      []string `json:"medicine_name"`
	MedicineDose      []string `json:"medicine_dose"`
	MedicineFrequency []string `json:"medicine_frequency"`
	MedicineDuration  []string `json:"medicine_duration"`

	Instructions     *string `json:"instructions"`
	Immunization     *string `json:"immunization"`
	ImmunizationDate *string `json:"immunization_date"`
	IsAllergic       *bool   `json:"is_allergic"`
	Weight           *string `json:"weight"`
	IsPregnant       *bool   `json:"is_pregnant"`
}

// FieldProvenance describes how one field was decided during the merge.
type FieldProvenance struct {
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
	Misaligned bool    `json:"misaligned,omitempty"`
}

// CompletionStatus summarizes how much of the schema a record fills.
type CompletionStatus struct {
	TotalFields                  int     `json:"total_fields"`
	CompletedFields              int     `json:"completed_fields"`
	RequiredFields               int     `json:"required_fields"`
	RequiredCompleted            int     `json:"required_completed"`
	CompletionPercentage         float64 `json:"completion_percentage"`
	RequiredCompletionPercentage float64 `json:"required_completion_percentage"`
}

// ExtractionMetadata carries run provenance alongside the record.
type ExtractionMetadata struct {
	RunID         string                     `json:"run_id,omitempty"`
	SourceFile    string                     `json:"source_file,omitempty"`
	ProcessedAt   time.Time                  `json:"processed_at"`
	OCRConfidence float32                    `json:"ocr_confidence,omitempty"`
	PageCount     int                        `json:"page_count,omitempty"`
	Accuracy      float64                    `json:"accuracy"`
	FieldSources  map[string]FieldProvenance `json:"field_sources,omitempty"`
}

// ExtractionOutput bundles a prescription with its metadata and completion
// summary for serialization.
type ExtractionOutput struct {
	Prescription     *Prescription       `json:"prescription"`
	CompletionStatus *CompletionStatus   `json:"completion_status"`
	Metadata         *ExtractionMetadata `json:"metadata"`

	// ValidationError carries the required-field failure message when the
	// record was released despite failing validation.
	ValidationError string `json:"validation_error,omitempty"`
}

// PrescriptionFromRecord maps a merged record onto the output struct.
func PrescriptionFromRecord(record *merge.Record) *Prescription {
	p := &Prescription{
		PatientName:      strField(record, schema.FieldPatientName),
		PatientAddress:   strField(record, schema.FieldPatientAddress),
		PatientDOB:       strField(record, schema.FieldPatientDOB),
		PatientAge:       strField(record, schema.FieldPatientAge),
		PatientSex:       strField(record, schema.FieldPatientSex),
		PrescriptionDate: strField(record, schema.FieldPrescriptionDate),
		DoctorName:       strField(record, schema.FieldDoctorName),
		DoctorTitle:      strField(record, schema.FieldDoctorTitle),
		ClinicAddress:    strField(record, schema.FieldClinicAddress),
		ClinicPhone:      strField(record, schema.FieldClinicPhone),

		MedicineName:      listField(record, schema.FieldMedicineName),
		MedicineDose:      listField(record, schema.FieldMedicineDose),
		MedicineFrequency: listField(record, schema.FieldMedicineFrequency),
		MedicineDuration:  listField(record, schema.FieldMedicineDuration),

		Instructions:     strField(record, schema.FieldInstructions),
		Immunization:     strField(record, schema.FieldImmunization),
		ImmunizationDate: strField(record, schema.FieldImmunizationDate),
		IsAllergic:       boolField(record, schema.FieldIsAllergic),
		Weight:           strField(record, schema.FieldWeight),
		IsPregnant:       boolField(record, schema.FieldIsPregnant),
	}
	return p
}

// CompletionFromRecord computes the completion summary for a merged record.
func CompletionFromRecord(record *merge.Record) *CompletionStatus {
	status := &CompletionStatus{TotalFields: schema.FieldCount}
	for _, spec := range schema.Fields() {
		present := record.Value(spec.Name).Present()
		if present {
			status.CompletedFields++
		}
		if spec.Required {
			status.RequiredFields++
			if present {
				status.RequiredCompleted++
			}
		}
	}
	if status.TotalFields > 0 {
		status.CompletionPercentage = float64(status.CompletedFields) / float64(status.TotalFields) * 100
	}
	if status.RequiredFields > 0 {
		status.RequiredCompletionPercentage = float64(status.RequiredCompleted) / float64(status.RequiredFields) * 100
	}
	return status
}

// ProvenanceFromRecord flattens the per-field merge provenance, keeping only
// decided fields.
func ProvenanceFromRecord(record *merge.Record) map[string]FieldProvenance {
	sources := make(map[string]FieldProvenance)
	for field, p := range record.Provenance {
		if p.Source == "" {
			continue
		}
		sources[string(field)] = FieldProvenance{
			Source:     p.Source,
			Confidence: p.Confidence,
			Misaligned: p.Misaligned,
		}
	}
	return sources
}

func strField(record *merge.Record, field schema.FieldName) *string {
	v := record.Value(field)
	if !v.Present() || v.Kind() != schema.KindString {
		return nil
	}
	s := v.Str()
	return &s
}

func boolField(record *merge.Record, field schema.FieldName) *bool {
	v := record.Value(field)
	if !v.Present() || v.Kind() != schema.KindBool {
		return nil
	}
	b := v.Bool()
	return &b
}

func listField(record *merge.Record, field schema.FieldName) []string {
	v := record.Value(field)
	if !v.Present() || v.Kind() != schema.KindList {
		return nil
	}
	return v.List()
}
