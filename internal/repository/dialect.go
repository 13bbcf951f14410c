package repository

import (
	"gorm.io/gorm"
)

// dialect renders the handful of expressions that differ between the stores we
// run on. Everything else goes through plain gorm clauses.
type dialect string

const (
	dialectMySQL    dialect = "mysql"
	dialectSQLite   dialect = "sqlite"
	dialectPostgres dialect = "postgres"
)

func dialectOf(db *gorm.DB) dialect {
	if db == nil || db.Dialector == nil {
		return dialectMySQL
	}
	return dialect(db.Dialector.Name())
}

func (d dialect) text(col string) string {
	if d == dialectMySQL {
		return "CAST(" + col + " AS CHAR)"
	}
	return "CAST(" + col + " AS TEXT)"
}

func (d dialect) date(col string) string {
	if d == dialectPostgres {
		return "CAST(" + col + " AS DATE)"
	}
	return "DATE(" + col + ")"
}
