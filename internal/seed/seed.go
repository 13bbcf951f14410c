// Package seed generates plausible validation records for local dashboards.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"validationlake/internal/model"
	"validationlake/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	chunkSize   = 100
	maxDaysBack = 30
	registers   = 32
	successRate = 0.95
)

var messages = []string{
	"Desconto aplicado",
	"Ticket validado no caixa",
	"Ticket expirado",
	"Ticket já utilizado",
	"Falha de comunicação com o servidor",
}

type Generator struct {
	rnd *rand.Rand
	now func() time.Time
}

func NewGenerator(seed int64, now func() time.Time) *Generator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Generator{rnd: rand.New(rand.NewSource(seed)), now: now}
}

// Record builds one record dated 1 to 30 days ago. Only automatic validations
// carry a register number.
func (g *Generator) Record() *model.ValidationRecord {
	op := model.OperationManualValidation
	if g.rnd.Intn(2) == 0 {
		op = model.OperationAutomaticValidation
	}

	host := fmt.Sprintf("%04d", 1+g.rnd.Intn(registers))
	cupom := g.rnd.Intn(10000)
	pedEcf := g.rnd.Intn(10000)
	ts := g.now().Add(-time.Duration(1+g.rnd.Intn(maxDaysBack)) * 24 * time.Hour)

	rec := &model.ValidationRecord{
		TicketCode:    uuid.NewString(),
		NumCupom:      &cupom,
		NumPedEcf:     &pedEcf,
		Hostname:      &host,
		VlTotal:       float64(g.rnd.Intn(10000)),
		OperationType: op,
		Success:       g.rnd.Float64() < successRate,
		Message:       messages[g.rnd.Intn(len(messages))],
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	if op == model.OperationAutomaticValidation {
		caixa := 1 + g.rnd.Intn(registers)
		rec.NumCaixa = &caixa
	}
	return rec
}

// Populate inserts total records in chunks and returns how many were written.
func Populate(ctx context.Context, repo *repository.RecordRepository, g *Generator, total int, log logrus.FieldLogger) (int, error) {
	written := 0
	for written < total {
		n := chunkSize
		if total-written < n {
			n = total - written
		}
		batch := make([]*model.ValidationRecord, n)
		for i := range batch {
			batch[i] = g.Record()
		}
		if err := repo.CreateBatch(ctx, batch); err != nil {
			return written, fmt.Errorf("insert chunk at %d: %w", written, err)
		}
		written += n
		if written%10000 == 0 {
			log.WithField("written", written).Info("seeding")
		}
	}
	return written, nil
}
