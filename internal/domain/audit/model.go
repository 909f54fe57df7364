// Package audit keeps a per-hospital, hash-chained, append-only record of
// patient-flow commands.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionPatientRegistered   Action = "PATIENT_REGISTERED"
	ActionDepartmentAssigned  Action = "DEPARTMENT_ASSIGNED"
	ActionDoctorAssigned      Action = "DOCTOR_ASSIGNED"
	ActionAssignmentCompleted Action = "ASSIGNMENT_COMPLETED"
	ActionTransferInitiated   Action = "TRANSFER_INITIATED"
	ActionTransferAccepted    Action = "TRANSFER_ACCEPTED"
	ActionPatientDischarged   Action = "PATIENT_DISCHARGED"
	ActionPatientDeceased     Action = "PATIENT_DECEASED"
	ActionCriticalResult      Action = "CRITICAL_RESULT_REPORTED"
)

// GenesisHash is the previous hash of the first entry in every chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry maps to the audit_log table. Seq is dense per hospital, starting at 1.
type Entry struct {
	Seq        int64             `db:"seq" json:"seq"`
	HospitalID uuid.UUID         `db:"hospital_id" json:"hospital_id"`
	PatientID  *uuid.UUID        `db:"patient_id" json:"patient_id,omitempty"`
	Actor      uuid.UUID         `db:"actor_id" json:"actor_id"`
	Action     Action            `db:"action" json:"action"`
	Detail     map[string]string `db:"detail" json:"detail,omitempty"`
	PrevHash   string            `db:"prev_hash" json:"prev_hash"`
	Hash       string            `db:"hash" json:"hash"`
	At         time.Time         `db:"at" json:"at"`
}

// Seal links e after the entry with sequence prevSeq and hash prevHash.
func (e *Entry) Seal(prevSeq int64, prevHash string) {
	if prevHash == "" {
		prevHash = GenesisHash
	}
	// Postgres keeps microseconds; truncating here keeps stored entries
	// verifiable.
	e.At = e.At.UTC().Truncate(time.Microsecond)
	e.Seq = prevSeq + 1
	e.PrevHash = prevHash
	e.Hash = e.digest()
}

// Valid reports whether e's hash matches its content.
func (e *Entry) Valid() bool { return e.Hash == e.digest() }

func (e *Entry) digest() string {
	patient := ""
	if e.PatientID != nil {
		patient = e.PatientID.String()
	}
	detail, _ := json.Marshal(e.Detail)
	h := sha256.New()
	h.Write([]byte(strings.Join([]string{
		e.PrevHash,
		strconv.FormatInt(e.Seq, 10),
		e.HospitalID.String(),
		patient,
		e.Actor.String(),
		string(e.Action),
		string(detail),
		e.At.UTC().Format(time.RFC3339Nano),
	}, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// Verification is the outcome of re-walking a hospital's chain.
type Verification struct {
	Entries  int    `json:"entries"`
	Valid    bool   `json:"valid"`
	BrokenAt *int64 `json:"broken_at,omitempty"`
}

// VerifyChain checks entries, which must be in sequence order.
func VerifyChain(entries []*Entry) Verification {
	v := Verification{Entries: len(entries), Valid: true}
	prev, seq := GenesisHash, int64(0)
	for _, e := range entries {
		if e.Seq != seq+1 || e.PrevHash != prev || !e.Valid() {
			at := e.Seq
			v.Valid = false
			v.BrokenAt = &at
			return v
		}
		prev, seq = e.Hash, e.Seq
	}
	return v
}
