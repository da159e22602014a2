// Package softdelete carries the "active only" visibility trait shared by every
// archivable model.
//
// A model opts in by declaring a field of type ActiveFlag. From then on gorm adds
// `<table>.<column> = true` to every SELECT/COUNT/UPDATE issued through that model,
// the same way gorm.DeletedAt hides deleted rows, and a DELETE becomes
// `UPDATE ... SET <column> = false`. Archive views and hard deletes opt out with
// Unscoped() (or the WithArchived / OnlyArchived scopes below).
package softdelete

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// SoftDeletable is implemented by every model that embeds an ActiveFlag.
type SoftDeletable interface {
	IsActive() bool
}

type ActiveFlag bool

const (
	Active   ActiveFlag = true
	Archived ActiveFlag = false
)

func (f *ActiveFlag) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*f = false
	case bool:
		*f = ActiveFlag(v)
	case int64:
		*f = v != 0
	case []byte:
		b, err := strconv.ParseBool(string(v))
		if err != nil {
			return fmt.Errorf("softdelete: cannot scan %q", string(v))
		}
		*f = ActiveFlag(b)
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("softdelete: cannot scan %q", v)
		}
		*f = ActiveFlag(b)
	default:
		return fmt.Errorf("softdelete: unsupported Scan type %T", value)
	}
	return nil
}

func (f ActiveFlag) Value() (driver.Value, error) {
	return bool(f), nil
}

func (ActiveFlag) QueryClauses(f *schema.Field) []clause.Interface {
	return []clause.Interface{activeOnlyClause{Field: f}}
}

func (ActiveFlag) UpdateClauses(f *schema.Field) []clause.Interface {
	return []clause.Interface{activeOnlyClause{Field: f}}
}

func (ActiveFlag) DeleteClauses(f *schema.Field) []clause.Interface {
	return []clause.Interface{archiveOnDeleteClause{Field: f}}
}

const clauseKey = "active_only_enabled"

type activeOnlyClause struct {
	Field *schema.Field
}

func (activeOnlyClause) Name() string               { return "" }
func (activeOnlyClause) Build(clause.Builder)       {}
func (activeOnlyClause) MergeClause(*clause.Clause) {}

func (c activeOnlyClause) ModifyStatement(stmt *gorm.Statement) {
	if _, ok := stmt.Clauses[clauseKey]; ok || stmt.Unscoped {
		return
	}

	// A lone OR condition must be grouped, otherwise `a OR b AND active` leaks rows.
	if cl, ok := stmt.Clauses["WHERE"]; ok {
		if where, ok := cl.Expression.(clause.Where); ok && len(where.Exprs) >= 1 {
			for _, expr := range where.Exprs {
				if orCond, ok := expr.(clause.OrConditions); ok && len(orCond.Exprs) == 1 {
					where.Exprs = []clause.Expression{clause.And(where.Exprs...)}
					cl.Expression = where
					stmt.Clauses["WHERE"] = cl
					break
				}
			}
		}
	}

	stmt.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: c.Field.DBName}, Value: true},
	}})
	stmt.Clauses[clauseKey] = clause.Clause{}
}

// archiveOnDeleteClause turns a scoped DELETE into an archive UPDATE.
type archiveOnDeleteClause struct {
	Field *schema.Field
}

func (archiveOnDeleteClause) Name() string               { return "" }
func (archiveOnDeleteClause) Build(clause.Builder)       {}
func (archiveOnDeleteClause) MergeClause(*clause.Clause) {}

func (c archiveOnDeleteClause) ModifyStatement(stmt *gorm.Statement) {
	if stmt.SQL.Len() > 0 || stmt.Unscoped {
		return
	}

	stmt.AddClause(clause.Set{{Column: clause.Column{Name: c.Field.DBName}, Value: Archived}})
	stmt.SetColumn(c.Field.DBName, Archived, true)

	// primary keys of the value passed to Delete, as gorm.DeletedAt does
	if stmt.Schema != nil {
		_, queryValues := schema.GetIdentityFieldValuesMap(stmt.Context, stmt.ReflectValue, stmt.Schema.PrimaryFields)
		column, values := schema.ToQueryValues(stmt.Table, stmt.Schema.PrimaryFieldDBNames, queryValues)
		if len(values) > 0 {
			stmt.AddClause(clause.Where{Exprs: []clause.Expression{clause.IN{Column: column, Values: values}}})
		}

		if stmt.ReflectValue.CanAddr() && stmt.Dest != stmt.Model && stmt.Model != nil {
			_, queryValues = schema.GetIdentityFieldValuesMap(stmt.Context, reflect.ValueOf(stmt.Model), stmt.Schema.PrimaryFields)
			column, values = schema.ToQueryValues(stmt.Table, stmt.Schema.PrimaryFieldDBNames, queryValues)
			if len(values) > 0 {
				stmt.AddClause(clause.Where{Exprs: []clause.Expression{clause.IN{Column: column, Values: values}}})
			}
		}
	}

	activeOnlyClause{Field: c.Field}.ModifyStatement(stmt)
	stmt.AddClauseIfNotExists(clause.Update{})
	stmt.Build(stmt.DB.Callback().Update().Clauses...)
}

/* ===============================
   Archive-aware scopes
=============================== */

// WithArchived lifts the active-only filter when include is true.
func WithArchived(include bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if include {
			return db.Unscoped()
		}
		return db
	}
}

// OnlyArchived returns archived rows only. column is the ActiveFlag column name.
func OnlyArchived(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Unscoped().Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: column},
			Value:  false,
		})
	}
}
