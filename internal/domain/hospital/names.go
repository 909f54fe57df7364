// Package hospital holds the enumerations shared by every patient-flow entity:
// department names and categories, staff roles, and the standard department
// set seeded when a hospital is onboarded.
package hospital

import (
	"fmt"
	"strings"
)

// DepartmentName is one of the fixed, hospital-independent department names.
type DepartmentName string

// DepartmentCategory groups departments by function.
type DepartmentCategory string

const (
	CategoryPatientFlow    DepartmentCategory = "PATIENT_FLOW"
	CategoryClinical       DepartmentCategory = "CLINICAL"
	CategoryDiagnostic     DepartmentCategory = "DIAGNOSTIC"
	CategoryTreatment      DepartmentCategory = "TREATMENT"
	CategorySupport        DepartmentCategory = "SUPPORT"
	CategoryAdministrative DepartmentCategory = "ADMINISTRATIVE"
	CategorySpecialized    DepartmentCategory = "SPECIALIZED"
)

const (
	Reception    DepartmentName = "RECEPTION"
	Triage       DepartmentName = "TRIAGE"
	Registration DepartmentName = "REGISTRATION"
	Admissions   DepartmentName = "ADMISSIONS"

	Emergency         DepartmentName = "EMERGENCY"
	Outpatient        DepartmentName = "OUTPATIENT"
	Inpatient         DepartmentName = "INPATIENT"
	IntensiveCareUnit DepartmentName = "INTENSIVE_CARE_UNIT"
	Cardiology        DepartmentName = "CARDIOLOGY"
	Neurology         DepartmentName = "NEUROLOGY"
	Orthopedics       DepartmentName = "ORTHOPEDICS"
	Pediatrics        DepartmentName = "PEDIATRICS"
	Maternity         DepartmentName = "MATERNITY"
	Oncology          DepartmentName = "ONCOLOGY"
	Psychiatry        DepartmentName = "PSYCHIATRY"
	Dermatology       DepartmentName = "DERMATOLOGY"
	Ophthalmology     DepartmentName = "OPHTHALMOLOGY"
	ENT               DepartmentName = "ENT"
	Urology           DepartmentName = "UROLOGY"
	Gastroenterology  DepartmentName = "GASTROENTEROLOGY"
	Endocrinology     DepartmentName = "ENDOCRINOLOGY"
	Pulmonology       DepartmentName = "PULMONOLOGY"
	Nephrology        DepartmentName = "NEPHROLOGY"
	Rheumatology      DepartmentName = "RHEUMATOLOGY"

	Laboratory           DepartmentName = "LABORATORY"
	Radiology            DepartmentName = "RADIOLOGY"
	MRIScan              DepartmentName = "MRI_SCAN"
	CTScan               DepartmentName = "CT_SCAN"
	Ultrasound           DepartmentName = "ULTRASOUND"
	Physiotherapy        DepartmentName = "PHYSIOTHERAPY"
	CardiacCathLab       DepartmentName = "CARDIAC_CATH_LAB"
	Electrocardiogram    DepartmentName = "ELECTROCARDIOGRAM"
	Electroencephalogram DepartmentName = "ELECTROENCEPHALOGRAM"
	Endoscopy            DepartmentName = "ENDOSCOPY"

	OperatingTheater  DepartmentName = "OPERATING_THEATER"
	RecoveryRoom      DepartmentName = "RECOVERY_ROOM"
	DaySurgery        DepartmentName = "DAY_SURGERY"
	Chemotherapy      DepartmentName = "CHEMOTHERAPY"
	RadiationOncology DepartmentName = "RADIATION_ONCOLOGY"
	DialysisUnit      DepartmentName = "DIALYSIS_UNIT"
	BurnUnit          DepartmentName = "BURN_UNIT"
	PainManagement    DepartmentName = "PAIN_MANAGEMENT"

	Pharmacy              DepartmentName = "PHARMACY"
	Nutrition             DepartmentName = "NUTRITION"
	MedicalRecords        DepartmentName = "MEDICAL_RECORDS"
	CentralSterileSupply  DepartmentName = "CENTRAL_STERILE_SUPPLY"
	BiomedicalEngineering DepartmentName = "BIOMEDICAL_ENGINEERING"
	Housekeeping          DepartmentName = "HOUSEKEEPING"
	Security              DepartmentName = "SECURITY"

	Billing               DepartmentName = "BILLING"
	HumanResources        DepartmentName = "HUMAN_RESOURCES"
	Administration        DepartmentName = "ADMINISTRATION"
	Marketing             DepartmentName = "MARKETING"
	InformationTechnology DepartmentName = "INFORMATION_TECHNOLOGY"
	QualityAssurance      DepartmentName = "QUALITY_ASSURANCE"

	Dental            DepartmentName = "DENTAL"
	DiabetesClinic    DepartmentName = "DIABETES_CLINIC"
	AllergyClinic     DepartmentName = "ALLERGY_CLINIC"
	SportsMedicine    DepartmentName = "SPORTS_MEDICINE"
	Rehabilitation    DepartmentName = "REHABILITATION"
	PalliativeCare    DepartmentName = "PALLIATIVE_CARE"
	SleepClinic       DepartmentName = "SLEEP_CLINIC"
	InfectiousDisease DepartmentName = "INFECTIOUS_DISEASE"
	GeneticsClinic    DepartmentName = "GENETICS_CLINIC"
)

// departmentCategories maps every known name to its default category. It is
// also the membership set for name validation.
var departmentCategories = map[DepartmentName]DepartmentCategory{
	Reception: CategoryPatientFlow, Triage: CategoryPatientFlow,
	Registration: CategoryPatientFlow, Admissions: CategoryPatientFlow,

	Emergency: CategoryClinical, Outpatient: CategoryClinical, Inpatient: CategoryClinical,
	IntensiveCareUnit: CategoryClinical, Cardiology: CategoryClinical, Neurology: CategoryClinical,
	Orthopedics: CategoryClinical, Pediatrics: CategoryClinical, Maternity: CategoryClinical,
	Oncology: CategoryClinical, Psychiatry: CategoryClinical, Dermatology: CategoryClinical,
	Ophthalmology: CategoryClinical, ENT: CategoryClinical, Urology: CategoryClinical,
	Gastroenterology: CategoryClinical, Endocrinology: CategoryClinical, Pulmonology: CategoryClinical,
	Nephrology: CategoryClinical, Rheumatology: CategoryClinical,

	Laboratory: CategoryDiagnostic, Radiology: CategoryDiagnostic, MRIScan: CategoryDiagnostic,
	CTScan: CategoryDiagnostic, Ultrasound: CategoryDiagnostic, Physiotherapy: CategoryDiagnostic,
	CardiacCathLab: CategoryDiagnostic, Electrocardiogram: CategoryDiagnostic,
	Electroencephalogram: CategoryDiagnostic, Endoscopy: CategoryDiagnostic,

	OperatingTheater: CategoryTreatment, RecoveryRoom: CategoryTreatment, DaySurgery: CategoryTreatment,
	Chemotherapy: CategoryTreatment, RadiationOncology: CategoryTreatment, DialysisUnit: CategoryTreatment,
	BurnUnit: CategoryTreatment, PainManagement: CategoryTreatment,

	Pharmacy: CategorySupport, Nutrition: CategorySupport, MedicalRecords: CategorySupport,
	CentralSterileSupply: CategorySupport, BiomedicalEngineering: CategorySupport,
	Housekeeping: CategorySupport, Security: CategorySupport,

	Billing: CategoryAdministrative, HumanResources: CategoryAdministrative,
	Administration: CategoryAdministrative, Marketing: CategoryAdministrative,
	InformationTechnology: CategoryAdministrative, QualityAssurance: CategoryAdministrative,

	Dental: CategorySpecialized, DiabetesClinic: CategorySpecialized, AllergyClinic: CategorySpecialized,
	SportsMedicine: CategorySpecialized, Rehabilitation: CategorySpecialized,
	PalliativeCare: CategorySpecialized, SleepClinic: CategorySpecialized,
	InfectiousDisease: CategorySpecialized, GeneticsClinic: CategorySpecialized,
}

var categories = map[DepartmentCategory]bool{
	CategoryPatientFlow: true, CategoryClinical: true, CategoryDiagnostic: true,
	CategoryTreatment: true, CategorySupport: true, CategoryAdministrative: true,
	CategorySpecialized: true,
}

// ParseDepartmentName validates s against the enumeration. Input is
// case-insensitive and surrounding space is ignored.
func ParseDepartmentName(s string) (DepartmentName, error) {
	n := DepartmentName(strings.ToUpper(strings.TrimSpace(s)))
	if !n.Valid() {
		return "", fmt.Errorf("unknown department name %q", s)
	}
	return n, nil
}

func (n DepartmentName) Valid() bool {
	_, ok := departmentCategories[n]
	return ok
}

// DefaultCategory is the category a department of this name is seeded with.
func (n DepartmentName) DefaultCategory() DepartmentCategory {
	return departmentCategories[n]
}

func (n DepartmentName) String() string { return string(n) }

// ParseCategory validates s against the category enumeration.
func ParseCategory(s string) (DepartmentCategory, error) {
	c := DepartmentCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !categories[c] {
		return "", fmt.Errorf("unknown department category %q", s)
	}
	return c, nil
}

// DepartmentNames returns every known name.
func DepartmentNames() []DepartmentName {
	out := make([]DepartmentName, 0, len(departmentCategories))
	for n := range departmentCategories {
		out = append(out, n)
	}
	return out
}
