// Package schema defines the fixed 20-field prescription schema shared by
// every extraction strategy and by the reconciler.
//
// The schema is the contract of the whole pipeline: every ExtractionResult
// and every merged record carries exactly these fields, each holding a
// scalar string, a boolean, or an ordered list of strings. Absence is an
// explicit state, distinct from an empty string.
package schema

// FieldName identifies one of the 20 prescription schema fields.
type FieldName string

const (
	FieldPatientName       FieldName = "patient_name"
	FieldPatientAddress    FieldName = "patient_address"
	FieldPatientDOB        FieldName = "patient_dob"
	FieldPatientAge        FieldName = "patient_age"
	FieldPatientSex        FieldName = "patient_sex"
	FieldWeight            FieldName = "weight"
	FieldIsAllergic        FieldName = "is_allergic"
	FieldIsPregnant        FieldName = "is_pregnant"
	FieldDoctorName        FieldName = "doctor_name"
	FieldDoctorTitle       FieldName = "doctor_title"
	FieldClinicAddress     FieldName = "clinic_address"
	FieldClinicPhone       FieldName = "clinic_phone"
	FieldPrescriptionDate  FieldName = "prescription_date"
	FieldMedicineName      FieldName = "medicine_name"
	FieldMedicineDose      FieldName = "medicine_dose"
	FieldMedicineFrequency FieldName = "medicine_frequency"
	FieldMedicineDuration  FieldName = "medicine_duration"
	FieldInstructions      FieldName = "instructions"
	FieldImmunization      FieldName = "immunization"
	FieldImmunizationDate  FieldName = "immunization_date"
)

// FieldCount is the number of fields in the schema.
const FieldCount = 20

// Kind describes the shape of a field's value.
type Kind int

const (
	// KindString fields hold a single scalar string.
	KindString Kind = iota
	// KindBool fields hold a boolean (is_allergic, is_pregnant).
	KindBool
	// KindList fields hold an ordered list of strings. The medicine_*
	// fields are correlated: the i-th entries across them refer to the
	// same prescribed medicine when the extractor can align them.
	KindList
)

// FieldSpec describes a single schema field.
type FieldSpec struct {
	Name FieldName
	Kind Kind

	// Required marks fields counted toward required-field completion.
	// Only patient_name is structurally required by the validator.
	Required bool

	// Date marks string fields that hold a date and are canonicalized
	// by the validator.
	Date bool
}

// registry lists all schema fields in canonical output order.
var registry = []FieldSpec{
	{Name: FieldPatientName, Kind: KindString, Required: true},
	{Name: FieldPatientAddress, Kind: KindString},
	{Name: FieldPatientDOB, Kind: KindString, Required: true, Date: true},
	{Name: FieldPatientAge, Kind: KindString, Required: true},
	{Name: FieldPatientSex, Kind: KindString, Required: true},
	{Name: FieldWeight, Kind: KindString},
	{Name: FieldIsAllergic, Kind: KindBool},
	{Name: FieldIsPregnant, Kind: KindBool},
	{Name: FieldDoctorName, Kind: KindString, Required: true},
	{Name: FieldDoctorTitle, Kind: KindString, Required: true},
	{Name: FieldClinicAddress, Kind: KindString},
	{Name: FieldClinicPhone, Kind: KindString, Required: true},
	{Name: FieldPrescriptionDate, Kind: KindString, Required: true, Date: true},
	{Name: FieldMedicineName, Kind: KindList, Required: true},
	{Name: FieldMedicineDose, Kind: KindList, Required: true},
	{Name: FieldMedicineFrequency, Kind: KindList},
	{Name: FieldMedicineDuration, Kind: KindList, Required: true},
	{Name: FieldInstructions, Kind: KindString, Required: true},
	{Name: FieldImmunization, Kind: KindString},
	{Name: FieldImmunizationDate, Kind: KindString, Date: true},
}

// MedicineFields lists the correlated repeatable fields whose entries are
// expected to be index-aligned across a prescription's medicines.
var MedicineFields = []FieldName{FieldMedicineName, FieldMedicineDose, FieldMedicineFrequency, FieldMedicineDuration}

// Fields returns all schema fields in canonical order. The returned slice
// is a copy and may be modified by the caller.
func Fields() []FieldSpec {
	fields := make([]FieldSpec, len(registry))
	copy(fields, registry)
	return fields
}

// Lookup returns the FieldSpec for a field name.
func Lookup(name FieldName) (FieldSpec, bool) {
	for _, spec := range registry {
		if spec.Name == name {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// Source extractor identifiers, part of the data model: every extraction
// candidate and every provenance entry names the extractor it came from.
const (
	SourcePromptedModel = "prompted-model"
	SourceChainedModel  = "chained-model"
	SourcePattern       = "pattern"
	SourceEntity        = "entity"
)
