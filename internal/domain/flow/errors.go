package flow

import "github.com/ehr/patientflow/pkg/apperr"

var (
	ErrNoHospital                 = apperr.New(apperr.KindUnauthorized, "NO_HOSPITAL", "acting user is not attached to a hospital")
	ErrNotAuthorizedForDepartment = apperr.New(apperr.KindUnauthorized, "NOT_AUTHORIZED_FOR_DEPARTMENT", "not authorized for this department")
	ErrActionNotPermitted         = apperr.New(apperr.KindUnauthorized, "ACTION_NOT_PERMITTED", "role may not perform this action")

	ErrDepartmentHasNoOperators = apperr.Precondition("DEPARTMENT_HAS_NO_OPERATORS", "department has no active operators")
	ErrDepartmentNotOperational = apperr.Precondition("DEPARTMENT_NOT_OPERATIONAL", "department is not operational")
	ErrInvalidDoctor            = apperr.Precondition("INVALID_DOCTOR", "doctor must be an active doctor in the assignment's department")
	ErrNotOwner                 = apperr.Precondition("NOT_OWNER", "only the doctor holding the assignment may complete it")
	ErrWrongActingDepartment    = apperr.Precondition("WRONG_ACTING_DEPARTMENT", "acting user is not in the department the patient is leaving")
	ErrLocationMismatch         = apperr.Precondition("LOCATION_MISMATCH", "patient is not recorded in the department they are leaving")
	ErrTargetNotOperational     = apperr.Precondition("TARGET_NOT_OPERATIONAL", "target department does not exist or is not operational")
	ErrTargetHasNoOperators     = apperr.Precondition("TARGET_HAS_NO_OPERATORS", "target department has no operators")
	ErrWrongDepartment          = apperr.Precondition("WRONG_DEPARTMENT", "only the receiving department may accept a transfer")
	ErrNotEligibleForDischarge  = apperr.Precondition("NOT_ELIGIBLE_FOR_DISCHARGE", "patient is not in a discharge department and the user may not discharge")
	ErrNoAssignedDoctor         = apperr.Precondition("NO_ASSIGNED_DOCTOR", "patient has no assigned doctor")

	ErrAlreadyDischarged = apperr.Conflict("ALREADY_DISCHARGED", "patient is already discharged")
	ErrPatientDeceased   = apperr.Conflict("PATIENT_DECEASED", "patient is recorded as deceased")
)
