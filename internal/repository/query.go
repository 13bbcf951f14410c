package repository

import (
	"strings"
	"time"

	"validationlake/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordFilter is the dashboard filter shared by listings, counts and
// aggregations. Start and End are both inclusive.
type RecordFilter struct {
	Start          time.Time
	End            time.Time
	OperationTypes model.OperationTypeSet
	// Search is matched case-insensitively as a substring of ticket_code,
	// num_cupom or num_caixa. Blank means no search.
	Search string
}

// SearchTerm returns the trimmed search term.
func (f RecordFilter) SearchTerm() string {
	return strings.TrimSpace(f.Search)
}

// windowScope applies the date window and the operation-type set. An empty set
// matches nothing. Bounds are sent as UTC: SQLite compares timestamps as text,
// and the MySQL driver converts to its session zone itself.
func (f RecordFilter) windowScope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("created_at BETWEEN ? AND ?", f.Start.UTC(), f.End.UTC())
		if f.OperationTypes.Empty() {
			return db.Where("1 = 0")
		}
		return db.Where("operation_type IN ?", f.OperationTypes.Strings())
	}
}

// searchScope ANDs an OR across the three searchable columns.
func (f RecordFilter) searchScope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term := f.SearchTerm()
		if term == "" {
			return db
		}
		d := dialectOf(db)
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		return db.Where(
			"LOWER(ticket_code) LIKE ? ESCAPE '!' OR LOWER("+d.text("num_cupom")+") LIKE ? ESCAPE '!' OR LOWER("+d.text("num_caixa")+") LIKE ? ESCAPE '!'",
			pattern, pattern, pattern,
		)
	}
}

// escapeLike makes LIKE wildcards in user input literal, using '!' as the
// escape character because it behaves the same on MySQL, SQLite and Postgres.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// ============================================================================
// Sorting
// ============================================================================

// SortColumn is the closed set of columns the record table can be sorted by.
type SortColumn int

const (
	SortCreatedAt SortColumn = iota
	SortTicketCode
	SortNumCupom
	SortNumCaixa
	SortNumPedEcf
	SortHostname
	SortVlTotal
)

// ParseSortColumn maps a public column name to its SortColumn. ok is false for
// names outside the allow-list.
func ParseSortColumn(name string) (SortColumn, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "created_at":
		return SortCreatedAt, true
	case "ticket_code":
		return SortTicketCode, true
	case "num_cupom":
		return SortNumCupom, true
	case "num_caixa":
		return SortNumCaixa, true
	case "num_ped_ecf":
		return SortNumPedEcf, true
	case "hostname":
		return SortHostname, true
	case "vl_total":
		return SortVlTotal, true
	default:
		return SortCreatedAt, false
	}
}

func (c SortColumn) column() string {
	switch c {
	case SortTicketCode:
		return "ticket_code"
	case SortNumCupom:
		return "num_cupom"
	case SortNumCaixa:
		return "num_caixa"
	case SortNumPedEcf:
		return "num_ped_ecf"
	case SortHostname:
		return "hostname"
	case SortVlTotal:
		return "vl_total"
	default:
		return "created_at"
	}
}

func (c SortColumn) String() string {
	return c.column()
}

type SortOrder int

const (
	SortDesc SortOrder = iota
	SortAsc
)

func (o SortOrder) String() string {
	if o == SortAsc {
		return "asc"
	}
	return "desc"
}

// Sort is a resolved ordering for record listings.
type Sort struct {
	Column SortColumn
	Order  SortOrder
}

// DefaultSort is newest first.
var DefaultSort = Sort{Column: SortCreatedAt, Order: SortDesc}

// ParseSort resolves user input. An unknown column yields DefaultSort whatever
// the requested order; a known column is descending unless order is "asc".
func ParseSort(sortBy, sortOrder string) Sort {
	col, ok := ParseSortColumn(sortBy)
	if !ok {
		return DefaultSort
	}
	order := SortDesc
	if strings.EqualFold(strings.TrimSpace(sortOrder), "asc") {
		order = SortAsc
	}
	return Sort{Column: col, Order: order}
}

// scope orders by the chosen column and then by id in the same direction, so
// equal keys never reshuffle between pages and asc is the exact reverse of desc.
func (s Sort) scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		desc := s.Order == SortDesc
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: s.Column.column()}, Desc: desc}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
	}
}
