package db

import (
	"fmt"
	"strings"
)

type Op string

const (
	OpEq       Op = "="
	OpContains Op = "CONTAINS"
	OpGte      Op = ">="
	OpLte      Op = "<="
	OpIn       Op = "IN"
	OpEmpty    Op = "EMPTY"
	OpNotEmpty Op = "NOT EMPTY"
)

// Predicate is one filter condition. Value is always bound as a parameter.
type Predicate struct {
	Column string
	Op     Op
	Value  interface{}
}

func Eq(column string, value interface{}) Predicate {
	return Predicate{Column: column, Op: OpEq, Value: value}
}

func Contains(column, term string) Predicate {
	return Predicate{Column: column, Op: OpContains, Value: term}
}

func Between(column string, from, to interface{}) []Predicate {
	return []Predicate{
		{Column: column, Op: OpGte, Value: from},
		{Column: column, Op: OpLte, Value: to},
	}
}

func In(column string, values ...interface{}) Predicate {
	return Predicate{Column: column, Op: OpIn, Value: values}
}

// BuildWhere translates predicates into a WHERE clause with ? placeholders.
// Columns must appear in allowed; an empty predicate list yields "".
func BuildWhere(allowed map[string]bool, preds []Predicate) (string, []interface{}, error) {
	if len(preds) == 0 {
		return "", nil, nil
	}
	clauses := make([]string, 0, len(preds))
	args := []interface{}{}
	for _, p := range preds {
		if !allowed[p.Column] {
			return "", nil, fmt.Errorf("filter column not allowed: %q", p.Column)
		}
		switch p.Op {
		case OpEq, OpGte, OpLte:
			clauses = append(clauses, p.Column+" "+string(p.Op)+" ?")
			args = append(args, p.Value)
		case OpContains:
			term, _ := p.Value.(string)
			clauses = append(clauses, "lower("+p.Column+") LIKE ? ESCAPE '\\'")
			args = append(args, "%"+escapeLike(strings.ToLower(term))+"%")
		case OpIn:
			values, _ := p.Value.([]interface{})
			if len(values) == 0 {
				clauses = append(clauses, "1 = 0")
				continue
			}
			marks := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
			clauses = append(clauses, p.Column+" IN ("+marks+")")
			args = append(args, values...)
		case OpEmpty:
			clauses = append(clauses, "("+p.Column+" IS NULL OR trim("+p.Column+") = '')")
		case OpNotEmpty:
			clauses = append(clauses, "("+p.Column+" IS NOT NULL AND trim("+p.Column+") <> '')")
		default:
			return "", nil, fmt.Errorf("unsupported filter operator: %q", p.Op)
		}
	}
	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
