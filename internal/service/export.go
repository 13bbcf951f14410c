package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"validationlake/internal/model"

	"github.com/xuri/excelize/v2"
)

// MaxExportRows caps a single spreadsheet download.
const MaxExportRows = 100000

const exportSheet = "Registros"

var exportHeaders = []interface{}{
	"Ticket Code", "Num Cupom", "Num Caixa", "Num Ped ECF", "Valor Total",
	"Validação Manual", "Status", "Criado em",
}

// manualLabel is "Sim" for manual validations and "Não" otherwise.
func manualLabel(op model.OperationType) string {
	if op == model.OperationManualValidation {
		return "Sim"
	}
	return "Não"
}

func exportRow(rec *model.ValidationRecord, loc *time.Location) []interface{} {
	optional := func(v *int) interface{} {
		if v == nil {
			return nil
		}
		return *v
	}
	return []interface{}{
		rec.TicketCode,
		optional(rec.NumCupom),
		optional(rec.NumCaixa),
		optional(rec.NumPedEcf),
		rec.VlTotal,
		manualLabel(rec.OperationType),
		model.StatusLabel(rec.Success),
		rec.CreatedAt.In(loc).Format("02/01/2006 15:04"),
	}
}

// Export writes the filtered, searched and sorted table as an XLSX workbook,
// with times shown in the repository location. It returns the number of data
// rows written.
func (s *DashboardService) Export(ctx context.Context, q TableQuery, w io.Writer) (int, error) {
	f := q.filter()
	f.Search = q.Search

	records, err := s.records.Find(ctx, f, q.Sort, MaxExportRows)
	if err != nil {
		return 0, fmt.Errorf("load export rows: %w", err)
	}

	loc := s.records.Location()
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName("Sheet1", exportSheet); err != nil {
		return 0, err
	}
	sw, err := book.NewStreamWriter(exportSheet)
	if err != nil {
		return 0, err
	}
	if err := sw.SetRow("A1", exportHeaders); err != nil {
		return 0, err
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		if err := sw.SetRow(cell, exportRow(rec, loc)); err != nil {
			return 0, err
		}
	}
	if err := sw.Flush(); err != nil {
		return 0, err
	}

	if _, err := book.WriteTo(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	s.log.WithField("rows", len(records)).Info("table exported")
	return len(records), nil
}
