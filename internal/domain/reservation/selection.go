package reservation

import (
	"fmt"
	"strings"
)

type OptionKind string

const (
	KindTable OptionKind = "table"
	KindCombo OptionKind = "combo"
)

// Option is one candidate table or combo returned by the availability endpoint.
type Option struct {
	Kind        OptionKind `json:"type"`
	TableIDs    []int64    `json:"table_ids"`
	TableLabels []string   `json:"table_numbers"`
	Capacity    int        `json:"capacity"`
}

// Validate checks the shape guarantees of an option: a single table carries exactly
// one id, a combo at least two, and ids never repeat.
func (o Option) Validate() error {
	switch o.Kind {
	case KindTable:
		if len(o.TableIDs) != 1 {
			return fmt.Errorf("table option with %d table ids", len(o.TableIDs))
		}
	case KindCombo:
		if len(o.TableIDs) < 2 {
			return fmt.Errorf("combo option with %d table ids", len(o.TableIDs))
		}
	default:
		return fmt.Errorf("unknown option type %q", o.Kind)
	}
	seen := make(map[int64]struct{}, len(o.TableIDs))
	for _, id := range o.TableIDs {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("duplicate table id %d", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Label is the human form used in option lists: "Table 4" or "Tables 1 + 2".
func (o Option) Label() string {
	joined := strings.Join(o.TableLabels, " + ")
	if o.Kind == KindCombo {
		return "Tables " + joined
	}
	return "Table " + joined
}

// SameTables compares the table sets of two options, ignoring order.
func SameTables(a, b Option) bool {
	if len(a.TableIDs) != len(b.TableIDs) {
		return false
	}
	set := make(map[int64]int, len(a.TableIDs))
	for _, id := range a.TableIDs {
		set[id]++
	}
	for _, id := range b.TableIDs {
		if set[id] == 0 {
			return false
		}
		set[id]--
	}
	return true
}

// FindOption returns the member of options holding the same tables as want.
func FindOption(options []Option, want Option) (Option, bool) {
	for _, o := range options {
		if SameTables(o, want) {
			return o, true
		}
	}
	return Option{}, false
}
