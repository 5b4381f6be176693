package core

import (
	"strings"

	"github.com/JonMunkholm/pifcsv/internal/pif"
)

// PropertyGroup holds properties that share a signature.
type PropertyGroup struct {
	Signature  string
	Properties []*pif.Property
}

// propertySignature identifies properties measured the same way: same name,
// unit, conditions (by name and unit), methods and data type.
func propertySignature(p *pif.Property) string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteByte(0)
	b.WriteString(p.Units)
	for _, c := range p.Conditions {
		b.WriteByte(0)
		b.WriteString(c.Name)
		b.WriteByte(1)
		b.WriteString(c.Units)
	}
	b.WriteByte(2)
	for _, m := range p.Methods {
		b.WriteString(m.Name)
		b.WriteByte(0)
	}
	b.WriteByte(2)
	b.WriteString(p.DataType)
	return b.String()
}

// GroupProperties buckets properties by signature in first-seen order.
// Properties with neither scalars nor files are skipped.
func GroupProperties(props []*pif.Property) []PropertyGroup {
	var groups []PropertyGroup
	index := make(map[string]int)
	for _, p := range props {
		if len(p.Scalars) == 0 && len(p.Files) == 0 {
			continue
		}
		sig := propertySignature(p)
		i, ok := index[sig]
		if !ok {
			i = len(groups)
			index[sig] = i
			groups = append(groups, PropertyGroup{Signature: sig})
		}
		groups[i].Properties = append(groups[i].Properties, p)
	}
	return groups
}

// MergeProperties collapses each group into one property: a copy of the first
// member with the scalars, condition scalars and files of the others appended.
// The input properties are not modified.
func MergeProperties(props []*pif.Property) []*pif.Property {
	groups := GroupProperties(props)
	if len(groups) == 0 {
		return nil
	}
	out := make([]*pif.Property, 0, len(groups))
	for _, g := range groups {
		merged := g.Properties[0].Clone()
		for _, p := range g.Properties[1:] {
			merged.Scalars = append(merged.Scalars, p.Scalars.Clone()...)
			for j, c := range p.Conditions {
				if j < len(merged.Conditions) {
					merged.Conditions[j].Scalars = append(merged.Conditions[j].Scalars, c.Scalars.Clone()...)
				}
			}
			for _, f := range p.Files {
				fc := *f
				merged.Files = append(merged.Files, &fc)
			}
		}
		out = append(out, merged)
	}
	return out
}

func mergeSystem(s *pif.System) {
	if s == nil {
		return
	}
	if len(s.Properties) > 0 {
		s.Properties = MergeProperties(s.Properties)
	}
	for _, sub := range s.SubSystems {
		mergeSystem(sub)
	}
}
