package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/pifcsv/internal/pif"
)

// apply feeds cells to a fresh builder, failing the test on the first error.
func apply(t *testing.T, cols []Column, cells ...string) *pif.System {
	t.Helper()
	b := NewSystemBuilder()
	for i, raw := range cells {
		col := cols[i]
		col.Index = i
		require.NoError(t, b.Apply(col, ParseCell(raw)), "column %d", i+1)
	}
	return b.System()
}

func applyErr(t *testing.T, cols []Column, cells ...string) *ConversionError {
	t.Helper()
	b := NewSystemBuilder()
	for i, raw := range cells {
		col := cols[i]
		col.Index = i
		if err := b.Apply(col, ParseCell(raw)); err != nil {
			ce, ok := AsConversionError(err)
			require.True(t, ok, "want *ConversionError, got %v", err)
			return ce
		}
	}
	t.Fatal("expected an error")
	return nil
}

func col(kind Keyword, name, unit string) Column {
	return Column{Kind: kind, Name: name, Unit: unit, Subsystem: MainSystem}
}

func TestBuilder_Names(t *testing.T) {
	sys := apply(t,
		[]Column{col(KeywordName, "", ""), col(KeywordName, "", ""), col(KeywordName, "", ""), col(KeywordName, "", "")},
		"P20", "[Tool steel, 1.2311]", "", "[]")
	assert.Equal(t, []string{"P20", "Tool steel", "1.2311"}, sys.Names)
}

func TestBuilder_Contacts(t *testing.T) {
	cols := []Column{
		col(KeywordContact, "name", ""),
		col(KeywordContact, "url", ""),
		col(KeywordContact, "email", ""),
		col(KeywordContact, "name", ""),
	}
	sys := apply(t, cols, "Joanne Hill", "http://test", "jo2@email", "Jo Jo")

	require.Len(t, sys.Contacts, 2)
	assert.Equal(t, pif.Person{Name: "Joanne Hill", URL: "http://test", Email: "jo2@email"}, *sys.Contacts[0])
	assert.Equal(t, "Jo Jo", sys.Contacts[1].Name)
}

func TestBuilder_ContactLookBack(t *testing.T) {
	cols := []Column{col(KeywordContact, "name", ""), col(KeywordContact, "url", ""), col(KeywordContact, "name", "")}
	sys := apply(t, cols, "Ann", "http://a", "Bob")

	require.Len(t, sys.Contacts, 2)
	assert.Equal(t, "http://a", sys.Contacts[0].URL)
	assert.Equal(t, "Bob", sys.Contacts[1].Name)
	assert.Empty(t, sys.Contacts[1].URL)
}

func TestBuilder_ContactUnknownFieldTargetsName(t *testing.T) {
	cols := []Column{col(KeywordContact, "", ""), col(KeywordContact, "Phone", "")}
	sys := apply(t, cols, "Ann", "Bob")

	require.Len(t, sys.Contacts, 2)
	assert.Equal(t, "Ann", sys.Contacts[0].Name)
	assert.Equal(t, "Bob", sys.Contacts[1].Name)
}

func TestBuilder_References(t *testing.T) {
	cols := []Column{
		col(KeywordReference, "DOI", ""),
		col(KeywordReference, "Title", ""),
		col(KeywordReference, "DOI", ""),
		col(KeywordReference, "Notes", ""),
		col(KeywordReference, "Year", ""),
	}
	sys := apply(t, cols, "10.1/a", "Steels", "10.1/b", "Handbook p. 12", "1999")

	require.Len(t, sys.References, 3)
	assert.Equal(t, "10.1/a", sys.References[0].DOI)
	assert.Equal(t, "Steels", sys.References[0].Title)
	assert.Equal(t, "10.1/b", sys.References[1].DOI)
	assert.Equal(t, "Handbook p. 12", sys.References[2].Citation)
	assert.Equal(t, "1999", sys.References[2].Year)
}

func TestBuilder_FormulaAndUID(t *testing.T) {
	sys := apply(t, []Column{col(KeywordFormula, "", ""), col(KeywordUID, "", "")}, "Fe3C", "1./*2abcD345")
	assert.Equal(t, "Fe3C", sys.ChemicalFormula)
	assert.Equal(t, "12abcD345", sys.UID)
}

func TestBuilder_DuplicateErrors(t *testing.T) {
	tests := []struct {
		name     string
		cols     []Column
		cells    []string
		wantCode string
		wantCol  int
	}{
		{"second formula", []Column{col(KeywordFormula, "", ""), col(KeywordFormula, "", "")}, []string{"Fe", "C"}, "DUP001", 2},
		{"formula list", []Column{col(KeywordFormula, "", "")}, []string{"[Fe, C]"}, "DUP002", 1},
		{"second uid", []Column{col(KeywordUID, "", ""), col(KeywordUID, "", "")}, []string{"a", "b"}, "DUP003", 2},
		{"second formula empty", []Column{col(KeywordFormula, "", ""), col(KeywordFormula, "", "")}, []string{"Fe", ""}, "DUP001", 2},
		{"second uid empty", []Column{col(KeywordUID, "", ""), col(KeywordUID, "", "")}, []string{"a", ""}, "DUP003", 2},
		{"uid list", []Column{col(KeywordUID, "", "")}, []string{"[a, b]"}, "DUP004", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := applyErr(t, tt.cols, tt.cells...)
			assert.Equal(t, KindDuplicate, ce.Kind)
			assert.Equal(t, tt.wantCode, ce.Code)
			assert.Equal(t, tt.wantCol, ce.Column)
		})
	}
}

func TestBuilder_Properties(t *testing.T) {
	cols := []Column{
		col(KeywordProperty, "Hardness", "HV"),
		col(KeywordCondition, "Load", "kgf"),
		col(KeywordMethod, "", ""),
		col(KeywordDataType, "", ""),
		col(KeywordProperty, "Yield", "MPa"),
		col(KeywordProperty, "Density", ""),
	}
	sys := apply(t, cols, "[1200, 1210]", "10", "Vickers", "EXPERIMENTAL", "range(140, 165)", "")

	require.Len(t, sys.Properties, 2)
	hv := sys.Properties[0]
	assert.Equal(t, "Hardness", hv.Name)
	assert.Equal(t, "HV", hv.Units)
	assert.Equal(t, []string{"1200", "1210"}, hv.Scalars.Values())
	require.Len(t, hv.Conditions, 1)
	assert.Equal(t, pif.Value{Name: "Load", Units: "kgf", Scalars: pif.ScalarValues("10")}, *hv.Conditions[0])
	require.Len(t, hv.Methods, 1)
	assert.Equal(t, "Vickers", hv.Methods[0].Name)
	assert.Equal(t, "EXPERIMENTAL", hv.DataType)

	ys := sys.Properties[1]
	require.Len(t, ys.Scalars, 1)
	require.True(t, ys.Scalars[0].IsRange())
	assert.Equal(t, 140.0, *ys.Scalars[0].Minimum)
	assert.Equal(t, 165.0, *ys.Scalars[0].Maximum)
}

func TestBuilder_PropertyErrors(t *testing.T) {
	tests := []struct {
		name     string
		cols     []Column
		cells    []string
		wantKind ErrorKind
		wantCode string
	}{
		{"unnamed property", []Column{col(KeywordProperty, "", "")}, []string{"1"}, KindHeader, "HDR002"},
		{"unnamed property with empty cell", []Column{col(KeywordProperty, "", "")}, []string{""}, KindHeader, "HDR002"},
		{"condition first", []Column{col(KeywordCondition, "T", "K")}, []string{"300"}, KindSequence, "SEQ001"},
		{"unnamed condition", []Column{col(KeywordProperty, "a", ""), col(KeywordCondition, "", "")}, []string{"1", "2"}, KindHeader, "HDR002"},
		{"method first", []Column{col(KeywordMethod, "", "")}, []string{"XRD"}, KindSequence, "SEQ003"},
		{"figure first", []Column{col(KeywordFigureNumber, "", "")}, []string{"3"}, KindSequence, "SEQ004"},
		{"datatype first", []Column{col(KeywordDataType, "", "")}, []string{"FIT"}, KindSequence, "SEQ005"},
		{"bad range", []Column{col(KeywordProperty, "a", "")}, []string{"range(3, 1)"}, KindValue, "VAL002"},
		{"unnamed file", []Column{col(KeywordFile, "", "")}, []string{"a.csv"}, KindHeader, "HDR002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := applyErr(t, tt.cols, tt.cells...)
			assert.Equal(t, tt.wantKind, ce.Kind)
			assert.Equal(t, tt.wantCode, ce.Code)
			assert.Equal(t, len(tt.cells), ce.Column)
		})
	}
}

func TestBuilder_FiguresAndTables(t *testing.T) {
	cols := []Column{
		col(KeywordProperty, "Strain", ""),
		col(KeywordFigureNumber, "", ""),
		col(KeywordFigureCaption, "", ""),
		col(KeywordTableNumber, "", ""),
	}
	sys := apply(t, cols, "0.2", "3", "Stress strain curve", "T1")

	refs := sys.Properties[0].References
	require.Len(t, refs, 1)
	assert.Equal(t, &pif.DisplayItem{Number: "3", Caption: "Stress strain curve"}, refs[0].Figure)
	assert.Equal(t, &pif.DisplayItem{Number: "T1"}, refs[0].Table)
}

func TestBuilder_Files(t *testing.T) {
	cols := []Column{col(KeywordFile, "Raw data", ""), col(KeywordFile, "Micrograph", "")}
	sys := apply(t, cols, "testfile.csv", "testfile.png")

	require.Len(t, sys.Properties, 2)
	assert.Equal(t, "file/csv", sys.Properties[0].Files[0].MimeType)
	assert.Equal(t, "testfile.csv", sys.Properties[0].Files[0].RelativePath)
	assert.Equal(t, "image/png", sys.Properties[1].Files[0].MimeType)
}

func TestBuilder_IdentifiersAndClassifications(t *testing.T) {
	cols := []Column{
		col(KeywordIdentifier, "", ""),
		col(KeywordIdentifier, "Heat", ""),
		col(KeywordClassification, "", ""),
	}
	sys := apply(t, cols, "A-1", "H99", "tool steel")

	require.Len(t, sys.IDs, 2)
	assert.Equal(t, pif.ID{Name: "ID", Value: "A-1"}, *sys.IDs[0])
	assert.Equal(t, pif.ID{Name: "Heat", Value: "H99"}, *sys.IDs[1])
	require.Len(t, sys.Classifications, 1)
	assert.Equal(t, pif.Classification{Name: "Classification", Value: "tool steel"}, *sys.Classifications[0])
}

func TestBuilder_PreparationSteps(t *testing.T) {
	cols := []Column{
		col(KeywordPreparationStepName, "", ""),
		col(KeywordPreparationStepDetail, "Temperature", "C"),
		col(KeywordProcessStepName, "", ""),
		col(KeywordProcessStepDetail, "Time", "h"),
	}
	sys := apply(t, cols, "Anneal", "[800, 820]", "Quench", "2")

	require.Len(t, sys.Preparation, 2)
	assert.Equal(t, "Anneal", sys.Preparation[0].Name)
	assert.Equal(t, []string{"800", "820"}, sys.Preparation[0].Details[0].Scalars.Values())
	assert.Equal(t, "C", sys.Preparation[0].Details[0].Units)
	assert.Equal(t, "Time", sys.Preparation[1].Details[0].Name)

	ce := applyErr(t, []Column{col(KeywordPreparationStepDetail, "T", "")}, "1")
	assert.Equal(t, "SEQ002", ce.Code)
}

func TestBuilder_Composition(t *testing.T) {
	cols := []Column{
		col(KeywordComposition, "Fe", "wt%"),
		col(KeywordIdealComposition, "C", "at%"),
		col(KeywordActualComposition, "Cr", "weight percent"),
		col(KeywordActualComposition, "Mo", "Atomic %"),
	}
	sys := apply(t, cols, "95", "[1, 2]", "3", "0.5")

	require.Len(t, sys.Composition, 4)
	assert.Equal(t, pif.ScalarValues("95"), sys.Composition[0].IdealWeightPercent)
	assert.Equal(t, pif.ScalarValues("1", "2"), sys.Composition[1].IdealAtomicPercent)
	assert.Equal(t, pif.ScalarValues("3"), sys.Composition[2].ActualWeightPercent)
	assert.Equal(t, pif.ScalarValues("0.5"), sys.Composition[3].ActualAtomicPercent)

	ce := applyErr(t, []Column{col(KeywordComposition, "Fe", "ppm")}, "10")
	assert.Equal(t, KindUnit, ce.Kind)
	assert.Equal(t, "UNIT001", ce.Code)
}

func TestBuilder_QuantityReplaced(t *testing.T) {
	cols := []Column{col(KeywordIdealQuantity, "", "mass%"), col(KeywordIdealQuantity, "", "volume%")}
	sys := apply(t, cols, "10", "20")

	require.NotNil(t, sys.Quantity)
	assert.Equal(t, pif.ScalarValues("20"), sys.Quantity.IdealVolumePercent)
	assert.Nil(t, sys.Quantity.IdealMassPercent)

	sys = apply(t, []Column{col(KeywordActualQuantity, "", "number%")}, "5")
	assert.Equal(t, pif.ScalarValues("5"), sys.Quantity.ActualNumberPercent)

	ce := applyErr(t, []Column{col(KeywordActualQuantity, "", "%")}, "1")
	assert.Equal(t, "UNIT002", ce.Code)
}

func TestBuilder_EmptyCellsAreIgnored(t *testing.T) {
	cols := []Column{
		col(KeywordName, "", ""),
		col(KeywordContact, "name", ""),
		col(KeywordReference, "doi", ""),
		col(KeywordIdentifier, "", ""),
		col(KeywordClassification, "", ""),
		col(KeywordComposition, "Fe", "wt%"),
		col(KeywordIdealQuantity, "", "mass%"),
		col(KeywordCondition, "T", ""),
		col(KeywordMethod, "", ""),
	}
	sys := apply(t, cols, "", "", "", "", "", "", "", "", "")
	assert.True(t, sys.IsEmpty())
}

func TestBuilder_UnknownKindIgnored(t *testing.T) {
	sys := apply(t, []Column{col("color", "", "")}, "red")
	assert.True(t, sys.IsEmpty())
}
