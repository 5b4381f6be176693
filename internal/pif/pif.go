// Package pif defines the physical information record model populated by the
// CSV template converter.
//
// A record is a tree of [System] values. The root system describes the row's
// material; named subsystems from the header hang off SubSystems. Every list
// is owned by exactly one System and nothing is shared between rows.
//
// Field names follow the camelCase keys of the published PIF schema so the
// JSON and YAML encodings can be consumed by existing tooling.
package pif

// System is one chemical or material system.
type System struct {
	UID             string            `json:"uid,omitempty" yaml:"uid,omitempty"`
	ChemicalFormula string            `json:"chemicalFormula,omitempty" yaml:"chemicalFormula,omitempty"`
	Names           []string          `json:"names,omitempty" yaml:"names,omitempty"`
	Contacts        []*Person         `json:"contacts,omitempty" yaml:"contacts,omitempty"`
	References      []*Reference      `json:"references,omitempty" yaml:"references,omitempty"`
	Properties      []*Property       `json:"properties,omitempty" yaml:"properties,omitempty"`
	Preparation     []*ProcessStep    `json:"preparation,omitempty" yaml:"preparation,omitempty"`
	Composition     []*Composition    `json:"composition,omitempty" yaml:"composition,omitempty"`
	Quantity        *Quantity         `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	IDs             []*ID             `json:"ids,omitempty" yaml:"ids,omitempty"`
	Classifications []*Classification `json:"classifications,omitempty" yaml:"classifications,omitempty"`
	SubSystems      []*System         `json:"subSystems,omitempty" yaml:"subSystems,omitempty"`
}

// IsEmpty reports whether the system would serialize to an empty object.
func (s *System) IsEmpty() bool {
	if s == nil {
		return true
	}
	return s.UID == "" &&
		s.ChemicalFormula == "" &&
		len(s.Names) == 0 &&
		len(s.Contacts) == 0 &&
		len(s.References) == 0 &&
		len(s.Properties) == 0 &&
		len(s.Preparation) == 0 &&
		len(s.Composition) == 0 &&
		s.Quantity == nil &&
		len(s.IDs) == 0 &&
		len(s.Classifications) == 0 &&
		len(s.SubSystems) == 0
}

// Scalar is a single reported value, either a literal or a numeric range.
type Scalar struct {
	Value   string   `json:"value,omitempty" yaml:"value,omitempty"`
	Minimum *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
}

// IsRange reports whether the scalar carries min/max bounds.
func (s Scalar) IsRange() bool {
	return s.Minimum != nil || s.Maximum != nil
}

// Scalars is an ordered sequence of scalar values.
type Scalars []Scalar

// ScalarValues wraps literal strings as a scalar sequence.
func ScalarValues(values ...string) Scalars {
	out := make(Scalars, len(values))
	for i, v := range values {
		out[i] = Scalar{Value: v}
	}
	return out
}

// RangeScalar builds a single-element sequence holding a min/max range.
func RangeScalar(minimum, maximum float64) Scalars {
	return Scalars{{Minimum: &minimum, Maximum: &maximum}}
}

// Values returns the literal values of the sequence, skipping ranges.
func (s Scalars) Values() []string {
	out := make([]string, 0, len(s))
	for _, sc := range s {
		if !sc.IsRange() {
			out = append(out, sc.Value)
		}
	}
	return out
}

// IsBlank reports whether the sequence is exactly one empty literal.
func (s Scalars) IsBlank() bool {
	return len(s) == 1 && !s[0].IsRange() && s[0].Value == ""
}

// Clone returns a copy that shares no backing storage with s.
func (s Scalars) Clone() Scalars {
	if s == nil {
		return nil
	}
	out := make(Scalars, len(s))
	for i, sc := range s {
		out[i] = Scalar{Value: sc.Value}
		if sc.Minimum != nil {
			v := *sc.Minimum
			out[i].Minimum = &v
		}
		if sc.Maximum != nil {
			v := *sc.Maximum
			out[i].Maximum = &v
		}
	}
	return out
}

// Property is a measured or reported attribute of a system.
type Property struct {
	Name       string           `json:"name" yaml:"name"`
	Scalars    Scalars          `json:"scalars,omitempty" yaml:"scalars,omitempty"`
	Units      string           `json:"units,omitempty" yaml:"units,omitempty"`
	Conditions []*Value         `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Methods    []*Method        `json:"methods,omitempty" yaml:"methods,omitempty"`
	DataType   string           `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	References []*Reference     `json:"references,omitempty" yaml:"references,omitempty"`
	Files      []*FileReference `json:"files,omitempty" yaml:"files,omitempty"`
}

// Clone returns a deep copy of the property.
func (p *Property) Clone() *Property {
	if p == nil {
		return nil
	}
	out := &Property{
		Name:     p.Name,
		Scalars:  p.Scalars.Clone(),
		Units:    p.Units,
		DataType: p.DataType,
	}
	for _, c := range p.Conditions {
		out.Conditions = append(out.Conditions, c.Clone())
	}
	for _, m := range p.Methods {
		mc := *m
		out.Methods = append(out.Methods, &mc)
	}
	for _, r := range p.References {
		out.References = append(out.References, r.Clone())
	}
	for _, f := range p.Files {
		fc := *f
		out.Files = append(out.Files, &fc)
	}
	return out
}

// Value is a named quantity used for conditions and preparation details.
type Value struct {
	Name    string  `json:"name,omitempty" yaml:"name,omitempty"`
	Scalars Scalars `json:"scalars,omitempty" yaml:"scalars,omitempty"`
	Units   string  `json:"units,omitempty" yaml:"units,omitempty"`
}

// Clone returns a deep copy of the value.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	return &Value{Name: v.Name, Scalars: v.Scalars.Clone(), Units: v.Units}
}

// Method names the technique used to obtain a property.
type Method struct {
	Name string `json:"name" yaml:"name"`
}

// DisplayItem points at a figure or table in a reference.
type DisplayItem struct {
	Number  string `json:"number,omitempty" yaml:"number,omitempty"`
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// FileReference links a property to a file shipped alongside the records.
type FileReference struct {
	RelativePath string `json:"relativePath" yaml:"relativePath"`
	MimeType     string `json:"mimeType,omitempty" yaml:"mimeType,omitempty"`
}

// Person is a contact for a system. Only name, email and url are populated
// by the converter.
type Person struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Reference is a citation for a system or property.
type Reference struct {
	DOI       string       `json:"doi,omitempty" yaml:"doi,omitempty"`
	ISBN      string       `json:"isbn,omitempty" yaml:"isbn,omitempty"`
	Publisher string       `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Title     string       `json:"title,omitempty" yaml:"title,omitempty"`
	Year      string       `json:"year,omitempty" yaml:"year,omitempty"`
	Journal   string       `json:"journal,omitempty" yaml:"journal,omitempty"`
	Volume    string       `json:"volume,omitempty" yaml:"volume,omitempty"`
	Citation  string       `json:"citation,omitempty" yaml:"citation,omitempty"`
	Figure    *DisplayItem `json:"figure,omitempty" yaml:"figure,omitempty"`
	Table     *DisplayItem `json:"table,omitempty" yaml:"table,omitempty"`
}

// Clone returns a deep copy of the reference.
func (r *Reference) Clone() *Reference {
	if r == nil {
		return nil
	}
	out := *r
	if r.Figure != nil {
		f := *r.Figure
		out.Figure = &f
	}
	if r.Table != nil {
		t := *r.Table
		out.Table = &t
	}
	return &out
}

// Composition is the share of one element in a system.
type Composition struct {
	Element             string  `json:"element" yaml:"element"`
	IdealAtomicPercent  Scalars `json:"idealAtomicPercent,omitempty" yaml:"idealAtomicPercent,omitempty"`
	IdealWeightPercent  Scalars `json:"idealWeightPercent,omitempty" yaml:"idealWeightPercent,omitempty"`
	ActualAtomicPercent Scalars `json:"actualAtomicPercent,omitempty" yaml:"actualAtomicPercent,omitempty"`
	ActualWeightPercent Scalars `json:"actualWeightPercent,omitempty" yaml:"actualWeightPercent,omitempty"`
}

// Quantity is the share of a system within its parent.
type Quantity struct {
	IdealMassPercent    Scalars `json:"idealMassPercent,omitempty" yaml:"idealMassPercent,omitempty"`
	IdealVolumePercent  Scalars `json:"idealVolumePercent,omitempty" yaml:"idealVolumePercent,omitempty"`
	IdealNumberPercent  Scalars `json:"idealNumberPercent,omitempty" yaml:"idealNumberPercent,omitempty"`
	ActualMassPercent   Scalars `json:"actualMassPercent,omitempty" yaml:"actualMassPercent,omitempty"`
	ActualVolumePercent Scalars `json:"actualVolumePercent,omitempty" yaml:"actualVolumePercent,omitempty"`
	ActualNumberPercent Scalars `json:"actualNumberPercent,omitempty" yaml:"actualNumberPercent,omitempty"`
}

// ID is a named identifier.
type ID struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Classification is a named category label.
type Classification struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// ProcessStep is one step of a preparation route.
type ProcessStep struct {
	Name    string   `json:"name" yaml:"name"`
	Details []*Value `json:"details,omitempty" yaml:"details,omitempty"`
}
