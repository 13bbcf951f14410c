package service

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"validationlake/internal/infrastructure/logger"
	"validationlake/internal/model"
	"validationlake/internal/repository"
	"validationlake/pkg/idgen"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

type RecordService struct {
	db         *gorm.DB
	recordRepo *repository.RecordRepository
	outboxRepo *repository.OutboxRepository
	validate   *validator.Validate
	eventTopic string
	log        logrus.FieldLogger
}

// NewRecordService builds the ingestion service. When eventTopic is empty no
// record-created events are queued.
func NewRecordService(db *gorm.DB, eventTopic string, log logrus.FieldLogger) *RecordService {
	return &RecordService{
		db:         db,
		recordRepo: repository.NewRecordRepository(db),
		outboxRepo: repository.NewOutboxRepository(db),
		validate:   newValidator(),
		eventTopic: eventTopic,
		log:        logger.Component(log, "record_service"),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// CreateRecordRequest is the POST /items/ body. Pointer fields distinguish
// "absent" from the zero value.
type CreateRecordRequest struct {
	TicketCode    string   `json:"ticket_code" validate:"required,max=120"`
	NumCupom      *int     `json:"num_cupom"`
	NumCaixa      *int     `json:"num_caixa"`
	NumPedEcf     *int     `json:"num_ped_ecf"`
	Hostname      *string  `json:"hostname" validate:"omitempty,max=64"`
	VlTotal       *float64 `json:"vl_total" validate:"required"`
	OperationType string   `json:"operation_type" validate:"required,oneof=MANUAL_VALIDATION AUTOMATIC_VALIDATION"`
	Success       *bool    `json:"success" validate:"required"`
	Message       *string  `json:"message" validate:"required,max=200"`
}

func (s *RecordService) Create(ctx context.Context, req *CreateRecordRequest) (*model.ValidationRecord, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, fromValidator(err)
	}

	rec := &model.ValidationRecord{
		TicketCode:    req.TicketCode,
		NumCupom:      req.NumCupom,
		NumCaixa:      req.NumCaixa,
		NumPedEcf:     req.NumPedEcf,
		Hostname:      req.Hostname,
		VlTotal:       *req.VlTotal,
		OperationType: model.OperationType(req.OperationType),
		Success:       *req.Success,
		Message:       *req.Message,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.recordRepo.Create(ctx, tx, rec); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		if s.eventTopic == "" {
			return nil
		}

		payload, err := json.Marshal(model.RecordCreatedEvent{
			RecordID:      rec.ID,
			TicketCode:    rec.TicketCode,
			NumCaixa:      rec.NumCaixa,
			VlTotal:       rec.VlTotal,
			OperationType: rec.OperationType,
			Success:       rec.Success,
			CreatedAt:     rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		msg := &model.OutboxMessage{
			MessageKey: idgen.EventKey(),
			Topic:      s.eventTopic,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
			return fmt.Errorf("queue event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"id":             rec.ID,
		"ticket_code":    rec.TicketCode,
		"operation_type": rec.OperationType,
		"success":        rec.Success,
	}).Info("record created")
	return rec, nil
}

func (s *RecordService) Get(ctx context.Context, id int64) (*model.ValidationRecord, error) {
	return s.recordRepo.GetByID(ctx, id)
}

// List pages through records in insertion order. Negative skip reads as 0,
// a non-positive limit as DefaultListLimit and limits above MaxListLimit are capped.
func (s *RecordService) List(ctx context.Context, skip, limit int) ([]*model.ValidationRecord, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.recordRepo.List(ctx, skip, limit)
}
