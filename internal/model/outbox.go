package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// OutboxMessage is written in the same transaction as the record it describes
// and later shipped to Kafka by the outbox sender job.
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// RecordCreatedEvent is the payload published for every new validation record.
type RecordCreatedEvent struct {
	RecordID      int64         `json:"record_id"`
	TicketCode    string        `json:"ticket_code"`
	NumCaixa      *int          `json:"num_caixa,omitempty"`
	VlTotal       float64       `json:"vl_total"`
	OperationType OperationType `json:"operation_type"`
	Success       bool          `json:"success"`
	CreatedAt     string        `json:"created_at"`
}
