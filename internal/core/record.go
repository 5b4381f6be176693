package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/pifcsv/internal/pif"
)

// Diagnostic codes attached to records. Diagnostics never stop conversion.
const (
	DiagUnknownColumns = "HDR100"
	DiagManualUID      = "UID100"
)

// Diagnostic is a non-fatal note produced while building a record.
type Diagnostic struct {
	Code    string `json:"code"`
	Columns []int  `json:"columns,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return d.Code + ": " + d.Message
}

// Record is one converted data row.
type Record struct {
	// Line is the 1-based source line the row starts on.
	Line        int
	System      *pif.System
	Diagnostics []Diagnostic
}

// BuildRecord converts one data row into a system tree. Cells past the end of
// the header are treated like columns with an unrecognized keyword.
func BuildRecord(h *Header, row []string) (*Record, error) {
	builders := make(map[string]*SystemBuilder, len(h.subsystems))
	for _, key := range h.subsystems {
		builders[key] = NewSystemBuilder()
	}

	var allConditions []*pif.Value
	var unknown []int

	for j, raw := range row {
		if j >= len(h.Columns) {
			if raw != "" {
				unknown = append(unknown, j+1)
			}
			continue
		}
		col := h.Columns[j]
		cell := ParseCell(raw)

		switch {
		case col.Kind == KeywordAllCondition:
			if !cell.Empty() {
				allConditions = append(allConditions, conditionValue(col, cell))
			}
		case knownKeyword(col.Kind):
			if err := builders[col.Subsystem].Apply(col, cell); err != nil {
				return nil, err
			}
		default:
			unknown = append(unknown, j+1)
		}
	}

	main := builders[MainSystem].System()
	main.Properties = finalizeProperties(main.Properties, allConditions)
	// Only the root system drops unnamed steps; subsystems keep them.
	main.Preparation = namedSteps(main.Preparation)

	rec := &Record{System: main}
	manualUID := builders[MainSystem].manualUID

	for _, key := range h.subsystems {
		b := builders[key]
		if key == MainSystem {
			continue
		}
		manualUID = manualUID || b.manualUID
		if !b.system.IsEmpty() {
			main.SubSystems = append(main.SubSystems, b.system)
		}
	}

	if len(unknown) > 0 {
		rec.Diagnostics = append(rec.Diagnostics, Diagnostic{
			Code:    DiagUnknownColumns,
			Columns: unknown,
			Message: fmt.Sprintf("unknown header keyword in column(s) %s; these cells were skipped", joinInts(unknown)),
		})
	}
	if manualUID {
		rec.Diagnostics = append(rec.Diagnostics, Diagnostic{
			Code:    DiagManualUID,
			Message: "uids were set by hand; they must be unique across every record you publish",
		})
	}
	return rec, nil
}

// finalizeProperties drops properties with neither a value nor a file and
// gives every survivor its own copy of each allcondition.
func finalizeProperties(props []*pif.Property, allConditions []*pif.Value) []*pif.Property {
	out := props[:0]
	for _, p := range props {
		if p.Scalars.IsBlank() || (len(p.Scalars) == 0 && len(p.Files) == 0) {
			continue
		}
		for _, c := range allConditions {
			p.Conditions = append(p.Conditions, c.Clone())
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func namedSteps(steps []*pif.ProcessStep) []*pif.ProcessStep {
	out := steps[:0]
	for _, s := range steps {
		if s.Name != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
