package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/pifcsv/internal/pif"
)

// fieldHandler applies one cell to the system under construction.
type fieldHandler func(b *SystemBuilder, col Column, cell Cell) error

var handlers map[Keyword]fieldHandler

func init() {
	handlers = map[Keyword]fieldHandler{
		KeywordName:                  addName,
		KeywordFormula:               setFormula,
		KeywordUID:                   setUID,
		KeywordContact:               addContact,
		KeywordReference:             addReference,
		KeywordFile:                  addFile,
		KeywordIdentifier:            addIdentifier,
		KeywordClassification:        addClassification,
		KeywordProperty:              addProperty,
		KeywordCondition:             addCondition,
		KeywordMethod:                addMethod,
		KeywordFigureNumber:          displayItemSetter(figure, number),
		KeywordFigureCaption:         displayItemSetter(figure, caption),
		KeywordTableNumber:           displayItemSetter(table, number),
		KeywordTableCaption:          displayItemSetter(table, caption),
		KeywordDataType:              setDataType,
		KeywordPreparationStepName:   addStep,
		KeywordProcessStepName:       addStep,
		"preparationstep":            addStep,
		"processstep":                addStep,
		KeywordPreparationStepDetail: addStepDetail,
		KeywordProcessStepDetail:     addStepDetail,
		KeywordComposition:           compositionSetter(false),
		KeywordIdealComposition:      compositionSetter(false),
		KeywordActualComposition:     compositionSetter(true),
		KeywordIdealQuantity:         quantitySetter(false),
		KeywordActualQuantity:        quantitySetter(true),
	}
}

// knownKeyword reports whether a column kind is handled by the converter.
func knownKeyword(k Keyword) bool {
	if k == KeywordAllCondition {
		return true
	}
	_, ok := handlers[k]
	return ok
}

// SystemBuilder accumulates one row's cells into a system. It tracks the
// most recently created property, preparation step, person and reference so
// that follow-up columns (conditions, details, contact fields) know where to
// attach.
type SystemBuilder struct {
	system    *pif.System
	property  *pif.Property
	step      *pif.ProcessStep
	person    *pif.Person
	reference *pif.Reference
	manualUID bool
}

// NewSystemBuilder returns a builder for an empty system.
func NewSystemBuilder() *SystemBuilder {
	return &SystemBuilder{system: &pif.System{}}
}

// System returns the system built so far.
func (b *SystemBuilder) System() *pif.System {
	return b.system
}

// Apply routes a cell to the handler for its column kind. Cells in columns
// without a handler are ignored; callers report them through Header.Unknown.
func (b *SystemBuilder) Apply(col Column, cell Cell) error {
	h, ok := handlers[col.Kind]
	if !ok {
		return nil
	}
	return h(b, col, cell)
}

func addName(b *SystemBuilder, _ Column, cell Cell) error {
	if cell.Empty() || cell.Raw == "[]" {
		return nil
	}
	b.system.Names = append(b.system.Names, cell.Values...)
	return nil
}

func setFormula(b *SystemBuilder, col Column, cell Cell) error {
	// A repeated column is an error even when its cell is empty.
	if b.system.ChemicalFormula != "" {
		return columnError(KindDuplicate, "DUP001", col,
			"a chemical formula was already given for this system",
			"Give each system at most one formula column")
	}
	if cell.Empty() {
		return nil
	}
	if cell.List {
		return columnError(KindDuplicate, "DUP002", col,
			"a system can only have one chemical formula",
			"Remove the list brackets from the formula cell")
	}
	b.system.ChemicalFormula = cell.Raw
	return nil
}

func setUID(b *SystemBuilder, col Column, cell Cell) error {
	// A repeated column is an error even when its cell is empty.
	if b.system.UID != "" {
		return columnError(KindDuplicate, "DUP003", col,
			"a uid was already given for this system",
			"Give each system at most one uid column")
	}
	if cell.Empty() {
		return nil
	}
	if cell.List {
		return columnError(KindDuplicate, "DUP004", col,
			"a system can only have one uid",
			"Remove the list brackets from the uid cell")
	}
	b.system.UID = stripNonWord(cell.Raw)
	b.manualUID = true
	return nil
}

type personField struct {
	get func(*pif.Person) string
	set func(*pif.Person, string)
}

var personFields = map[string]personField{
	"name": {
		get: func(p *pif.Person) string { return p.Name },
		set: func(p *pif.Person, v string) { p.Name = v },
	},
	"email": {
		get: func(p *pif.Person) string { return p.Email },
		set: func(p *pif.Person, v string) { p.Email = v },
	},
	"url": {
		get: func(p *pif.Person) string { return p.URL },
		set: func(p *pif.Person, v string) { p.URL = v },
	},
}

// addContact fills the current person while the targeted field is empty and
// starts a new person otherwise. Unrecognized field names target the name.
func addContact(b *SystemBuilder, col Column, cell Cell) error {
	if cell.Empty() {
		return nil
	}
	f, ok := personFields[col.field()]
	if !ok {
		f = personFields["name"]
	}
	if b.person != nil && f.get(b.person) == "" {
		f.set(b.person, cell.Raw)
		return nil
	}
	p := &pif.Person{}
	f.set(p, cell.Raw)
	b.system.Contacts = append(b.system.Contacts, p)
	b.person = p
	return nil
}

type referenceField struct {
	get func(*pif.Reference) string
	set func(*pif.Reference, string)
}

var referenceFields = map[string]referenceField{
	"doi": {
		get: func(r *pif.Reference) string { return r.DOI },
		set: func(r *pif.Reference, v string) { r.DOI = v },
	},
	"isbn": {
		get: func(r *pif.Reference) string { return r.ISBN },
		set: func(r *pif.Reference, v string) { r.ISBN = v },
	},
	"publisher": {
		get: func(r *pif.Reference) string { return r.Publisher },
		set: func(r *pif.Reference, v string) { r.Publisher = v },
	},
	"title": {
		get: func(r *pif.Reference) string { return r.Title },
		set: func(r *pif.Reference, v string) { r.Title = v },
	},
	"year": {
		get: func(r *pif.Reference) string { return r.Year },
		set: func(r *pif.Reference, v string) { r.Year = v },
	},
	"journal": {
		get: func(r *pif.Reference) string { return r.Journal },
		set: func(r *pif.Reference, v string) { r.Journal = v },
	},
	"volume": {
		get: func(r *pif.Reference) string { return r.Volume },
		set: func(r *pif.Reference, v string) { r.Volume = v },
	},
}

// addReference behaves like addContact for the recognized bibliographic
// fields. Any other field name becomes a free-text citation on a reference
// of its own.
func addReference(b *SystemBuilder, col Column, cell Cell) error {
	if cell.Empty() {
		return nil
	}
	f, ok := referenceFields[col.field()]
	if ok && b.reference != nil && f.get(b.reference) == "" {
		f.set(b.reference, cell.Raw)
		return nil
	}
	r := &pif.Reference{}
	if ok {
		f.set(r, cell.Raw)
	} else {
		r.Citation = cell.Raw
	}
	b.system.References = append(b.system.References, r)
	b.reference = r
	return nil
}

var imageExtensions = map[string]bool{"tif": true, "jpg": true, "png": true}

func addFile(b *SystemBuilder, col Column, cell Cell) error {
	if col.Name == "" {
		return errMissingName(col, "file property")
	}
	if cell.Empty() {
		return nil
	}
	ext := cell.Raw
	if i := strings.LastIndexByte(ext, '.'); i >= 0 {
		ext = ext[i+1:]
	}
	major := "file"
	if imageExtensions[strings.ToLower(ext)] {
		major = "image"
	}
	p := &pif.Property{
		Name:  col.Name,
		Files: []*pif.FileReference{{RelativePath: cell.Raw, MimeType: major + "/" + ext}},
	}
	b.system.Properties = append(b.system.Properties, p)
	b.property = p
	return nil
}

func addIdentifier(b *SystemBuilder, col Column, cell Cell) error {
	if cell.Empty() {
		return nil
	}
	b.system.IDs = append(b.system.IDs, &pif.ID{Name: orDefault(col.Name, "ID"), Value: cell.Raw})
	return nil
}

func addClassification(b *SystemBuilder, col Column, cell Cell) error {
	if cell.Empty() {
		return nil
	}
	b.system.Classifications = append(b.system.Classifications,
		&pif.Classification{Name: orDefault(col.Name, "Classification"), Value: cell.Raw})
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func addProperty(b *SystemBuilder, col Column, cell Cell) error {
	if col.Name == "" {
		return errMissingName(col, "property")
	}
	if cell.Empty() {
		return nil
	}

	var scalars pif.Scalars
	switch {
	case cell.List:
		scalars = pif.ScalarValues(cell.Values...)
	case IsRangeLiteral(cell.Raw):
		lo, hi, err := ParseRange(cell.Raw)
		if err != nil {
			return atColumn(err, col.Index)
		}
		scalars = pif.RangeScalar(lo, hi)
	default:
		scalars = pif.ScalarValues(cell.Raw)
	}

	p := &pif.Property{Name: col.Name, Scalars: scalars, Units: col.Unit}
	b.system.Properties = append(b.system.Properties, p)
	b.property = p
	return nil
}

func addCondition(b *SystemBuilder, col Column, cell Cell) error {
	if cell.Empty() {
		return nil
	}
	if b.property == nil {
		return errConditionBeforeProperty(col)
	}
	if col.Name == "" {
		return errMissingName(col, "condition")
	}
	b.property.Conditions = append(b.property.Conditions, conditionValue(col, cell))
	return nil
}

func conditionValue(col Column, cell Cell) *pif.Value {
	return &pif.Value{Name: col.Name, Scalars: pif.ScalarValues(cell.Values...), Units: col.Unit}
}

func addMethod(b *SystemBuilder, col Column, cell Cell) error {
	if cell.Empty() {
		return nil
	}
	if b.property == nil {
		return columnError(KindSequence, "SEQ003", col,
			"a method was provided before a property was given",
			"Method columns must appear to the right of the property they belong to")
	}
	b.property.Methods = append(b.property.Methods, &pif.Method{Name: cell.Raw})
	return nil
}

type displayKind int

const (
	figure displayKind = iota
	table
)

type displayPart int

const (
	number displayPart = iota
	caption
)

// displayItemSetter fills the figure or table of the current property's
// first reference, creating both on demand.
func displayItemSetter(kind displayKind, part displayPart) fieldHandler {
	return func(b *SystemBuilder, col Column, cell Cell) error {
		if cell.Empty() {
			return nil
		}
		if b.property == nil {
			return columnError(KindSequence, "SEQ004", col,
				"a figure or table was provided before a property was given",
				"Figure and table columns must appear to the right of the property they belong to")
		}
		if len(b.property.References) == 0 {
			b.property.References = append(b.property.References, &pif.Reference{})
		}
		ref := b.property.References[0]

		slot := &ref.Figure
		if kind == table {
			slot = &ref.Table
		}
		if *slot == nil {
			*slot = &pif.DisplayItem{}
		}
		if part == number {
			(*slot).Number = cell.Raw
		} else {
			(*slot).Caption = cell.Raw
		}
		return nil
	}
}

func setDataType(b *SystemBuilder, col Column, cell Cell) error {
	if cell.Empty() {
		return nil
	}
	if b.property == nil {
		return columnError(KindSequence, "SEQ005", col,
			"a data type was provided before a property was given",
			"Data type columns must appear to the right of the property they belong to")
	}
	b.property.DataType = cell.Raw
	return nil
}

// addStep always opens a new step, even for an empty cell, so that the
// details that follow attach to it. Unnamed steps are pruned from the root
// system when the record is finalized.
func addStep(b *SystemBuilder, _ Column, cell Cell) error {
	s := &pif.ProcessStep{Name: cell.Raw}
	b.system.Preparation = append(b.system.Preparation, s)
	b.step = s
	return nil
}

func addStepDetail(b *SystemBuilder, col Column, cell Cell) error {
	if cell.Empty() {
		return nil
	}
	if b.step == nil {
		return columnError(KindSequence, "SEQ002", col,
			"step details were provided before a step name was given",
			"Step detail columns must appear to the right of the step name they belong to")
	}
	if col.Name == "" {
		return errMissingName(col, "step detail")
	}
	b.step.Details = append(b.step.Details,
		&pif.Value{Name: col.Name, Scalars: pif.ScalarValues(cell.Values...), Units: col.Unit})
	return nil
}

func compositionSetter(actual bool) fieldHandler {
	return func(b *SystemBuilder, col Column, cell Cell) error {
		if cell.Empty() {
			return nil
		}
		if col.Name == "" {
			return errMissingName(col, "composition element")
		}
		unit := strings.ToLower(col.Unit)
		scalars := pif.ScalarValues(cell.Values...)
		c := &pif.Composition{Element: col.Name}

		switch {
		case strings.Contains(unit, "atomic") || strings.Contains(unit, "at"):
			if actual {
				c.ActualAtomicPercent = scalars
			} else {
				c.IdealAtomicPercent = scalars
			}
		case strings.Contains(unit, "weight") || strings.Contains(unit, "wt"):
			if actual {
				c.ActualWeightPercent = scalars
			} else {
				c.IdealWeightPercent = scalars
			}
		default:
			return columnError(KindUnit, "UNIT001", col,
				fmt.Sprintf("composition unit %q is neither atomic nor weight percent", col.Unit),
				"Put (at%) or (wt%) after the element name")
		}
		b.system.Composition = append(b.system.Composition, c)
		return nil
	}
}

// quantitySetter replaces the system's quantity block on every call.
func quantitySetter(actual bool) fieldHandler {
	return func(b *SystemBuilder, col Column, cell Cell) error {
		if cell.Empty() {
			return nil
		}
		unit := strings.ToLower(col.Unit)
		scalars := pif.ScalarValues(cell.Values...)
		q := &pif.Quantity{}

		switch {
		case strings.Contains(unit, "mass"):
			if actual {
				q.ActualMassPercent = scalars
			} else {
				q.IdealMassPercent = scalars
			}
		case strings.Contains(unit, "volume"):
			if actual {
				q.ActualVolumePercent = scalars
			} else {
				q.IdealVolumePercent = scalars
			}
		case strings.Contains(unit, "number"):
			if actual {
				q.ActualNumberPercent = scalars
			} else {
				q.IdealNumberPercent = scalars
			}
		default:
			return columnError(KindUnit, "UNIT002", col,
				fmt.Sprintf("quantity unit %q is not mass, volume or number percent", col.Unit),
				"Put (mass%), (volume%) or (number%) in the quantity header")
		}
		b.system.Quantity = q
		return nil
	}
}
