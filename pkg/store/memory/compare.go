package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"restaurantcore/pkg/store"
)

type row struct {
	rec store.Record
	doc map[string]any
}

func decodeDoc(raw json.RawMessage) (map[string]any, error) {
	doc := map[string]any{}
	if len(raw) == 0 {
		return doc, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r row) field(name string) any {
	switch name {
	case "id":
		return r.rec.ID
	case "version":
		return r.rec.Version
	case "created_at":
		return r.rec.CreatedAt
	case "updated_at":
		return r.rec.UpdatedAt
	case "deleted_at":
		if r.rec.DeletedAt == nil {
			return nil
		}
		return *r.rec.DeletedAt
	}
	return r.doc[name]
}

func matches(rec store.Record, filters []store.Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	doc, err := decodeDoc(rec.Doc)
	if err != nil {
		return false, err
	}
	r := row{rec: rec, doc: doc}
	for _, f := range filters {
		got := r.field(f.Field)
		switch f.Op {
		case store.OpEq:
			if compare(got, f.Value) != 0 {
				return false, nil
			}
		case store.OpIn:
			values, ok := f.Value.([]any)
			if !ok {
				return false, fmt.Errorf("filter %s: in expects a list", f.Field)
			}
			found := false
			for _, v := range values {
				if compare(got, v) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		case store.OpGt, store.OpGte, store.OpLt, store.OpLte:
			if got == nil {
				return false, nil
			}
			c := compare(got, f.Value)
			switch {
			case f.Op == store.OpGt && c <= 0,
				f.Op == store.OpGte && c < 0,
				f.Op == store.OpLt && c >= 0,
				f.Op == store.OpLte && c > 0:
				return false, nil
			}
		default:
			return false, fmt.Errorf("filter %s: unsupported op %q", f.Field, f.Op)
		}
	}
	return true, nil
}

func sortRows(recs []store.Record, orders []store.Order) {
	rows := make([]row, len(recs))
	for i, rec := range recs {
		doc, _ := decodeDoc(rec.Doc)
		rows[i] = row{rec: rec, doc: doc}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range orders {
			c := compare(rows[i].field(o.Field), rows[j].field(o.Field))
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		a, b := rows[i].rec, rows[j].rec
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	for i := range rows {
		recs[i] = rows[i].rec
	}
}

// normalize folds numeric types into float64 and pointers to times into
// values so that document fields and filter arguments compare directly.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case float64, string, bool, time.Time:
		return x
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func compare(a, b any) int {
	a, b = normalize(a), normalize(b)
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	case time.Time:
		if y, ok := asTime(b); ok {
			return x.Compare(y)
		}
	case string:
		if y, ok := b.(time.Time); ok {
			if t, ok := asTime(x); ok {
				return t.Compare(y)
			}
		}
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		return t, err == nil
	}
	return time.Time{}, false
}
