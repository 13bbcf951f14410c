package model

import (
	"sort"
	"strings"
	"time"
)

// ============================================================================
// Operation types
// ============================================================================

type OperationType string

const (
	OperationManualValidation    OperationType = "MANUAL_VALIDATION"
	OperationAutomaticValidation OperationType = "AUTOMATIC_VALIDATION"
)

// AllOperationTypes is the dashboard default when the caller does not pick any.
var AllOperationTypes = []OperationType{OperationAutomaticValidation, OperationManualValidation}

func (t OperationType) Valid() bool {
	return t == OperationManualValidation || t == OperationAutomaticValidation
}

// OperationTypeSet is a sorted, duplicate-free list of known operation types.
// Two sets built from the same members in any order compare and render equal.
type OperationTypeSet []OperationType

// NewOperationTypeSet normalises raw input: unknown values are dropped,
// duplicates collapse and the result is sorted.
func NewOperationTypeSet(types ...OperationType) OperationTypeSet {
	seen := make(map[OperationType]struct{}, len(types))
	set := make(OperationTypeSet, 0, len(types))
	for _, t := range types {
		t = OperationType(strings.ToUpper(strings.TrimSpace(string(t))))
		if !t.Valid() {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		set = append(set, t)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

func (s OperationTypeSet) Empty() bool {
	return len(s) == 0
}

func (s OperationTypeSet) Strings() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = string(t)
	}
	return out
}

// Key renders the set for cache keys, e.g. "AUTOMATIC_VALIDATION,MANUAL_VALIDATION".
func (s OperationTypeSet) Key() string {
	return strings.Join(s.Strings(), ",")
}

// ============================================================================
// Validation record
// ============================================================================

// ValidationRecord is one discount validation outcome reported by a POS terminal.
//
// Rows are only ever appended. created_at is the time axis for every dashboard
// filter, grouping and default sort.
type ValidationRecord struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	TicketCode    string        `gorm:"type:varchar(120);not null;index;index:idx_vr_ticket_created,priority:1" json:"ticket_code"`
	NumCupom      *int          `gorm:"index" json:"num_cupom"`
	NumCaixa      *int          `gorm:"index;index:idx_vr_caixa_created_op,priority:1;index:idx_vr_host_caixa,priority:2" json:"num_caixa"`
	NumPedEcf     *int          `json:"num_ped_ecf"`
	Hostname      *string       `gorm:"type:varchar(64);index:idx_vr_host_caixa,priority:1" json:"hostname"`
	VlTotal       float64       `gorm:"not null;index;index:idx_vr_value_created,priority:1" json:"vl_total"`
	OperationType OperationType `gorm:"type:varchar(32);not null;index;index:idx_vr_created_op,priority:2;index:idx_vr_created_success_op,priority:3;index:idx_vr_caixa_created_op,priority:3;check:chk_vr_operation_type,operation_type IN ('MANUAL_VALIDATION','AUTOMATIC_VALIDATION')" json:"operation_type"`
	Success       bool          `gorm:"not null;index;index:idx_vr_created_success_op,priority:2" json:"success"`
	Message       string        `gorm:"type:varchar(200)" json:"message"`
	CreatedAt     time.Time     `gorm:"autoCreateTime;index;index:idx_vr_created_op,priority:1;index:idx_vr_created_success_op,priority:1;index:idx_vr_caixa_created_op,priority:2;index:idx_vr_value_created,priority:2;index:idx_vr_ticket_created,priority:2" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ValidationRecord) TableName() string {
	return "validation_records"
}

const (
	StatusSuccessLabel = "Sucesso"
	StatusFailureLabel = "Falha"
)

// StatusLabel is the dashboard wording for the success flag.
func StatusLabel(success bool) string {
	if success {
		return StatusSuccessLabel
	}
	return StatusFailureLabel
}
