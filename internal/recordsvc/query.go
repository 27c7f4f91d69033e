package recordsvc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nhle/vibratodo/internal/recordapi"
)

// applyFetch filters, orders and projects records for a fetch call.
func applyFetch(records []recordapi.Record, params recordapi.FetchParams) ([]recordapi.Record, error) {
	for _, cond := range params.Where {
		if !strings.EqualFold(cond.Operator, recordapi.OperatorExactMatch) {
			return nil, fmt.Errorf("unsupported operator %q", cond.Operator)
		}
	}
	for _, o := range params.OrderBy {
		switch strings.ToUpper(o.Direction) {
		case recordapi.SortAsc, recordapi.SortDesc, "":
		default:
			return nil, fmt.Errorf("unsupported sort direction %q", o.Direction)
		}
	}

	out := make([]recordapi.Record, 0, len(records))
	for _, r := range records {
		if matchesAll(r, params.Where) {
			out = append(out, r)
		}
	}

	// Tables have no inherent order; start from Id order so results are stable.
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	for k := len(params.OrderBy) - 1; k >= 0; k-- {
		o := params.OrderBy[k]
		desc := strings.EqualFold(o.Direction, recordapi.SortDesc)
		sort.SliceStable(out, func(i, j int) bool {
			c := compareValues(out[i][o.Field], out[j][o.Field])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	if len(params.Fields) == 0 {
		return out, nil
	}
	projected := make([]recordapi.Record, len(out))
	for i, r := range out {
		p := make(recordapi.Record, len(params.Fields))
		for _, f := range params.Fields {
			if v, ok := r[f]; ok {
				p[f] = v
			}
		}
		projected[i] = p
	}
	return projected, nil
}

func matchesAll(r recordapi.Record, where []recordapi.Condition) bool {
	for _, cond := range where {
		got := valueString(r[cond.FieldName])
		matched := false
		for _, want := range cond.Values {
			if got == want {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func valueString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return recordapi.FormatID(x)
	default:
		return fmt.Sprint(x)
	}
}

// compareValues orders numbers numerically and everything else as strings.
// Missing values sort lowest.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(valueString(a), valueString(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
