package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/Payphone-Digital/devcamper/pkg/advquery"
)

// Finder serves advquery specs from a gorm model table. Filter, select and sort
// keys are the model's JSON names; populate paths are JSON names of relations.
type Finder[T any] struct {
	db        *gorm.DB
	schema    *schema.Schema
	fields    map[string]*schema.Field
	relations map[string]*schema.Relationship
	scope     func(*gorm.DB) *gorm.DB
}

// NewFinder parses T's schema. scope, when given, is applied to every query
// (e.g. restricting courses to one bootcamp).
func NewFinder[T any](db *gorm.DB, scope func(*gorm.DB) *gorm.DB) (*Finder[T], error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("failed to parse model schema: %w", err)
	}

	f := &Finder[T]{
		db:        db,
		schema:    stmt.Schema,
		fields:    fieldIndex(stmt.Schema),
		relations: map[string]*schema.Relationship{},
		scope:     scope,
	}
	for _, rel := range stmt.Schema.Relationships.Relations {
		if name := jsonName(rel.Field); name != "" {
			f.relations[name] = rel
		}
	}
	return f, nil
}

// WithScope returns a copy of the finder that also applies scope.
func (f *Finder[T]) WithScope(scope func(*gorm.DB) *gorm.DB) *Finder[T] {
	cp := *f
	prev := f.scope
	cp.scope = func(db *gorm.DB) *gorm.DB {
		if prev != nil {
			db = prev(db)
		}
		return scope(db)
	}
	return &cp
}

func fieldIndex(s *schema.Schema) map[string]*schema.Field {
	out := make(map[string]*schema.Field, len(s.Fields)*2)
	for _, field := range s.Fields {
		if field.DBName == "" {
			continue
		}
		out[field.DBName] = field
		if name := jsonName(field); name != "" {
			out[name] = field
		}
	}
	return out
}

func jsonName(field *schema.Field) string {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

// Count returns the number of rows matching filter.
func (f *Finder[T]) Count(ctx context.Context, filter advquery.Filter) (int64, error) {
	tx, err := f.filtered(ctx, filter)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Find returns the rows described by spec.
func (f *Finder[T]) Find(ctx context.Context, spec advquery.QuerySpec) ([]T, error) {
	tx, err := f.filtered(ctx, spec.Filter)
	if err != nil {
		return nil, err
	}

	var rel *schema.Relationship
	if spec.Populate != nil && wantsRelation(spec.Fields, spec.Populate.Path) {
		var ok bool
		if rel, ok = f.relations[spec.Populate.Path]; !ok {
			return nil, advquery.InvalidField(spec.Populate.Path, "unknown relation")
		}
	}

	if len(spec.Fields) > 0 {
		cols, err := f.columns(spec.Fields, rel)
		if err != nil {
			return nil, err
		}
		tx = tx.Select(cols)
	}

	for _, s := range spec.Sort {
		field, ok := f.fields[s.Field]
		if !ok {
			return nil, advquery.InvalidField(s.Field, "unknown sort field")
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: field.DBName}, Desc: s.Desc})
	}

	if rel != nil {
		preload, err := f.preload(rel, spec.Populate.Select)
		if err != nil {
			return nil, err
		}
		tx = tx.Preload(rel.Name, preload)
	}

	if spec.Skip > 0 {
		tx = tx.Offset(spec.Skip)
	}
	if spec.Limit > 0 {
		tx = tx.Limit(spec.Limit)
	}

	out := []T{}
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Finder[T]) filtered(ctx context.Context, filter advquery.Filter) (*gorm.DB, error) {
	exprs, err := f.where(filter)
	if err != nil {
		return nil, err
	}
	tx := f.db.WithContext(ctx).Model(new(T))
	if f.scope != nil {
		tx = f.scope(tx)
	}
	if len(exprs) > 0 {
		tx = tx.Clauses(clause.Where{Exprs: exprs})
	}
	return tx, nil
}

func wantsRelation(fields []string, path string) bool {
	if len(fields) == 0 {
		return true
	}
	for _, field := range fields {
		if field == path {
			return true
		}
	}
	return false
}

// columns resolves a JSON selection into column names. The primary key is always
// selected, as is the foreign key a populated relation needs on this side.
func (f *Finder[T]) columns(fields []string, rel *schema.Relationship) ([]string, error) {
	var cols []string
	seen := map[string]bool{}
	add := func(col string) {
		if !seen[col] {
			seen[col] = true
			cols = append(cols, col)
		}
	}

	for _, pk := range f.schema.PrimaryFields {
		add(pk.DBName)
	}
	for _, name := range fields {
		if rel != nil && name == jsonName(rel.Field) {
			continue
		}
		field, ok := f.fields[name]
		if !ok {
			return nil, advquery.InvalidField(name, "unknown field")
		}
		add(field.DBName)
	}
	if rel != nil {
		for _, ref := range rel.References {
			if ref.OwnPrimaryKey {
				if ref.PrimaryKey != nil {
					add(ref.PrimaryKey.DBName)
				}
			} else if ref.ForeignKey != nil {
				add(ref.ForeignKey.DBName)
			}
		}
	}
	return cols, nil
}

// preload restricts the related rows to the selected columns plus the keys that
// join them back.
func (f *Finder[T]) preload(rel *schema.Relationship, fields []string) (func(*gorm.DB) *gorm.DB, error) {
	if len(fields) == 0 {
		return func(db *gorm.DB) *gorm.DB { return db }, nil
	}

	related := fieldIndex(rel.FieldSchema)
	var cols []string
	seen := map[string]bool{}
	add := func(col string) {
		if !seen[col] {
			seen[col] = true
			cols = append(cols, col)
		}
	}

	for _, pk := range rel.FieldSchema.PrimaryFields {
		add(pk.DBName)
	}
	for _, name := range fields {
		field, ok := related[name]
		if !ok {
			return nil, advquery.InvalidField(jsonName(rel.Field)+"."+name, "unknown field")
		}
		add(field.DBName)
	}
	for _, ref := range rel.References {
		if ref.OwnPrimaryKey {
			if ref.ForeignKey != nil {
				add(ref.ForeignKey.DBName)
			}
		} else if ref.PrimaryKey != nil {
			add(ref.PrimaryKey.DBName)
		}
	}

	return func(db *gorm.DB) *gorm.DB { return db.Select(cols) }, nil
}

func (f *Finder[T]) where(filter advquery.Filter) ([]clause.Expression, error) {
	var exprs []clause.Expression
	for _, name := range filter.Fields() {
		field, ok := f.fields[name]
		if !ok {
			return nil, advquery.InvalidField(name, "unknown field")
		}
		for _, cond := range filter[name] {
			expr, err := condition(field, cond)
			if err != nil {
				return nil, advquery.InvalidField(name, err.Error())
			}
			exprs = append(exprs, expr)
		}
	}
	return exprs, nil
}

func condition(field *schema.Field, cond advquery.FilterValue) (clause.Expression, error) {
	col := clause.Column{Name: field.DBName}

	if isJSONArray(field) {
		switch cond.Op {
		case "":
			return clause.Expr{SQL: "jsonb_exists(?, ?)", Vars: []interface{}{col, cond.Value}}, nil
		case advquery.StoreIn:
			set := cond.Values()
			if len(set) == 0 {
				return clause.Expr{SQL: "FALSE"}, nil
			}
			vars := []interface{}{col}
			for _, v := range set {
				vars = append(vars, v)
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(set)), ",")
			return clause.Expr{SQL: "jsonb_exists_any(?, ARRAY[" + placeholders + "]::text[])", Vars: vars}, nil
		default:
			return nil, fmt.Errorf("operator %s is not supported on list fields", cond.Op)
		}
	}

	if cond.Op == advquery.StoreIn {
		values := make([]interface{}, 0, len(cond.Values()))
		for _, raw := range cond.Values() {
			v, err := coerce(field, raw)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return clause.IN{Column: col, Values: values}, nil
	}

	v, err := coerce(field, cond.Value)
	if err != nil {
		return nil, err
	}
	switch cond.Op {
	case "":
		return clause.Eq{Column: col, Value: v}, nil
	case advquery.StoreGT:
		return clause.Gt{Column: col, Value: v}, nil
	case advquery.StoreGTE:
		return clause.Gte{Column: col, Value: v}, nil
	case advquery.StoreLT:
		return clause.Lt{Column: col, Value: v}, nil
	case advquery.StoreLTE:
		return clause.Lte{Column: col, Value: v}, nil
	default:
		return nil, fmt.Errorf("unsupported operator %s", cond.Op)
	}
}

func isJSONArray(field *schema.Field) bool {
	return strings.EqualFold(string(field.DataType), "json") || strings.EqualFold(string(field.DataType), "jsonb")
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// coerce converts a textual operand to the column's Go type.
func coerce(field *schema.Field, raw string) (interface{}, error) {
	switch field.DataType {
	case schema.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}
		return b, nil
	case schema.Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", raw)
		}
		return n, nil
	case schema.Uint:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an unsigned integer", raw)
		}
		return n, nil
	case schema.Float:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return n, nil
	case schema.Time:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("%q is not a timestamp", raw)
	default:
		return raw, nil
	}
}
