package postgres

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"restaurantcore/pkg/store"
)

var fieldName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// builder accumulates positional arguments for one statement. $1 is always
// the table name.
type builder struct {
	args []any
}

func newBuilder(table string) *builder {
	return &builder{args: []any{table}}
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// expr renders the SQL expression for a field, casting document values to
// the type of the comparison argument.
func expr(field string, sample any) (string, error) {
	if !fieldName.MatchString(field) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	if store.MetaColumn(field) {
		return field, nil
	}
	text := "(doc->>'" + field + "')"
	switch sample.(type) {
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		return text + "::numeric", nil
	case bool:
		return text + "::boolean", nil
	case time.Time, *time.Time:
		return text + "::timestamptz", nil
	}
	return text, nil
}

func (b *builder) where(q store.Query) (string, error) {
	clauses := []string{"tbl=$1"}
	if !q.WithDeleted {
		clauses = append(clauses, "deleted_at IS NULL")
	}
	for _, f := range q.Filters {
		c, err := b.filter(f)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, c)
	}
	return strings.Join(clauses, " AND "), nil
}

func (b *builder) filter(f store.Filter) (string, error) {
	if f.Op == store.OpIn {
		values, ok := f.Value.([]any)
		if !ok {
			return "", fmt.Errorf("filter %s: in expects a list", f.Field)
		}
		col, err := expr(f.Field, "")
		if err != nil {
			return "", err
		}
		texts := make([]string, len(values))
		for i, v := range values {
			texts[i] = fmt.Sprint(v)
		}
		return col + "::text = ANY(" + b.arg(pq.Array(texts)) + ")", nil
	}

	col, err := expr(f.Field, f.Value)
	if err != nil {
		return "", err
	}
	if f.Value == nil && f.Op == store.OpEq {
		return col + " IS NULL", nil
	}
	var sym string
	switch f.Op {
	case store.OpEq:
		sym = "="
	case store.OpGt:
		sym = ">"
	case store.OpGte:
		sym = ">="
	case store.OpLt:
		sym = "<"
	case store.OpLte:
		sym = "<="
	default:
		return "", fmt.Errorf("filter %s: unsupported op %q", f.Field, f.Op)
	}
	return col + " " + sym + " " + b.arg(value(f.Value)), nil
}

// value converts arguments lib/pq cannot bind directly.
func value(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	case fmt.Stringer:
		return x.String()
	}
	return v
}

func (b *builder) orderBy(orders []store.Order) (string, error) {
	terms := make([]string, 0, len(orders)+2)
	for _, o := range orders {
		if !fieldName.MatchString(o.Field) {
			return "", fmt.Errorf("invalid field name %q", o.Field)
		}
		// jsonb ordering keeps numbers numeric.
		col := "(doc->'" + o.Field + "')"
		if store.MetaColumn(o.Field) {
			col = o.Field
		}
		if o.Desc {
			col += " DESC"
		}
		terms = append(terms, col)
	}
	terms = append(terms, "created_at", "id")
	return " ORDER BY " + strings.Join(terms, ", "), nil
}

func (b *builder) page(q store.Query) string {
	var s string
	if q.Limit > 0 {
		s += " LIMIT " + b.arg(q.Limit)
	}
	if q.Offset > 0 {
		s += " OFFSET " + b.arg(q.Offset)
	}
	return s
}
