// Package notification records and delivers staff alerts raised by patient
// flow. Delivery is best-effort: failures are logged and retried from a queue
// and never surface to the operation that raised the alert.
package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/hospital"
)

// ---------------------------------------------------------------------------
// Types and payloads
// ---------------------------------------------------------------------------

type Type string

const (
	TypeDepartmentAlert Type = "DEPARTMENT_ALERT"
	TypePatientTransfer Type = "PATIENT_TRANSFER"
	TypeCriticalResult  Type = "CRITICAL_RESULT"
	TypeNewAssignment   Type = "NEW_ASSIGNMENT"
	TypeBillingUpdate   Type = "BILLING_UPDATE"
)

// Payload is the structured data attached to a notification. Each Type has
// exactly one payload shape.
type Payload interface {
	Type() Type
}

type DepartmentAlertPayload struct {
	PatientID  *uuid.UUID              `json:"patient_id,omitempty"`
	Department hospital.DepartmentName `json:"department"`
	Event      string                  `json:"event"`
}

type PatientTransferPayload struct {
	PatientID      uuid.UUID               `json:"patient_id"`
	AssignmentID   uuid.UUID               `json:"assignment_id"`
	FromDepartment hospital.DepartmentName `json:"from_department"`
	ToDepartment   hospital.DepartmentName `json:"to_department"`
	Accepted       bool                    `json:"accepted"`
}

type CriticalResultPayload struct {
	PatientID uuid.UUID `json:"patient_id"`
	TestType  string    `json:"test_type"`
	Result    string    `json:"result"`
}

type NewAssignmentPayload struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	PatientID    uuid.UUID `json:"patient_id"`
}

type BillingUpdatePayload struct {
	BillingID   uuid.UUID `json:"billing_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	TotalAmount int64     `json:"total_amount"`
	Balance     int64     `json:"balance"`
}

func (DepartmentAlertPayload) Type() Type { return TypeDepartmentAlert }
func (PatientTransferPayload) Type() Type { return TypePatientTransfer }
func (CriticalResultPayload) Type() Type  { return TypeCriticalResult }
func (NewAssignmentPayload) Type() Type   { return TypeNewAssignment }
func (BillingUpdatePayload) Type() Type   { return TypeBillingUpdate }

// DecodePayload decodes raw into the payload shape registered for t. Unknown
// types are rejected.
func DecodePayload(t Type, raw []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch t {
	case TypeDepartmentAlert:
		var v DepartmentAlertPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case TypePatientTransfer:
		var v PatientTransferPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case TypeCriticalResult:
		var v CriticalResultPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case TypeNewAssignment:
		var v NewAssignmentPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case TypeBillingUpdate:
		var v BillingUpdatePayload
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("unknown notification type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// Notification
// ---------------------------------------------------------------------------

// Notification is one delivered alert for one recipient.
type Notification struct {
	ID         uuid.UUID  `json:"id"`
	HospitalID uuid.UUID  `json:"hospital_id"`
	Recipient  uuid.UUID  `json:"recipient"`
	Sender     *uuid.UUID `json:"sender,omitempty"`
	Message    string     `json:"message"`
	Type       Type       `json:"type"`
	Payload    Payload    `json:"payload"`
	Read       bool       `json:"read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (n *Notification) UnmarshalJSON(data []byte) error {
	type plain Notification
	aux := struct {
		*plain
		Payload json.RawMessage `json:"payload"`
	}{plain: (*plain)(n)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p, err := DecodePayload(n.Type, aux.Payload)
	if err != nil {
		return err
	}
	n.Payload = p
	return nil
}

// ---------------------------------------------------------------------------
// Recipients and messages
// ---------------------------------------------------------------------------

// Recipients describes who a message goes to. Department and hospital sets
// are expanded through the directory at delivery time.
type Recipients struct {
	Users      []uuid.UUID             `json:"users,omitempty"`
	Department hospital.DepartmentName `json:"department,omitempty"`
	Roles      []hospital.Role         `json:"roles,omitempty"`
	Hospital   bool                    `json:"hospital,omitempty"`
}

func ToUsers(ids ...uuid.UUID) Recipients { return Recipients{Users: ids} }

// ToDepartment addresses the staff of a department, optionally filtered by
// role.
func ToDepartment(dept hospital.DepartmentName, roles ...hospital.Role) Recipients {
	return Recipients{Department: dept, Roles: roles}
}

// ToHospital addresses every staff member of the hospital.
func ToHospital() Recipients { return Recipients{Hospital: true} }

// Message is a request to notify a set of recipients.
type Message struct {
	ID         uuid.UUID  `json:"id"`
	HospitalID uuid.UUID  `json:"hospital_id"`
	To         Recipients `json:"to"`
	Sender     *uuid.UUID `json:"sender,omitempty"`
	Text       string     `json:"text"`
	Payload    Payload    `json:"payload"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (m Message) Type() Type { return m.Payload.Type() }

func (m Message) MarshalJSON() ([]byte, error) {
	type plain Message
	return json.Marshal(struct {
		plain
		Type Type `json:"type"`
	}{plain: plain(m), Type: m.Payload.Type()})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	aux := struct {
		*plain
		Type    Type            `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p, err := DecodePayload(aux.Type, aux.Payload)
	if err != nil {
		return err
	}
	m.Payload = p
	return nil
}

// notificationID is stable per message and recipient so redelivery of the
// same message does not create duplicates.
func notificationID(messageID, recipient uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(messageID, recipient[:])
}

// Delivery is the handle returned for a dispatched message.
type Delivery struct {
	MessageID  uuid.UUID `json:"message_id"`
	Recipients int       `json:"recipients"`
	Queued     bool      `json:"queued"`
}

// CriticalResult addresses a critical test result to the patient's doctor.
func CriticalResult(hospitalID, doctor, patientID uuid.UUID, sender *uuid.UUID, testType, result string) Message {
	return Message{
		HospitalID: hospitalID,
		To:         ToUsers(doctor),
		Sender:     sender,
		Text:       fmt.Sprintf("Critical %s result for patient %s", testType, patientID),
		Payload:    CriticalResultPayload{PatientID: patientID, TestType: testType, Result: result},
	}
}
