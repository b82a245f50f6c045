// Package schema defines the generic rule schema that anchors every
// character sheet for an imported system.
package schema

import "strings"

// Attribute defines one base attribute of the system.
type Attribute struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Abbr     string `json:"abbr"`
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Default  int    `json:"defaultValue"`
	Category string `json:"category,omitempty"`
}

// Skill defines one skill linked to a base attribute.
type Skill struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	LinkedAttribute string `json:"linkedAttribute"`
}

// DerivedStat defines a computed stat. Formula is a closed arithmetic
// expression over attribute ids and abbreviations, evaluated by the
// formula package.
type DerivedStat struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Abbr        string `json:"abbr,omitempty"`
	Formula     string `json:"formula"`
	DisplayType string `json:"displayType"`
	Color       string `json:"color,omitempty"`
}

// ItemField defines one typed field inside an item category.
type ItemField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ItemCategory groups inventory items sharing a field layout.
type ItemCategory struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Fields []ItemField `json:"fields"`
}

// Condition defines one status condition with a display icon.
type Condition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IconName    string `json:"iconName,omitempty"`
}

// SheetSection is one ordered UI section descriptor.
type SheetSection struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Component   string `json:"component"`
	Order       int    `json:"order"`
	Collapsible bool   `json:"collapsible,omitempty"`
}

// Schema is the full rule definition for an imported system.
type Schema struct {
	Version        string         `json:"version"`
	Attributes     []Attribute    `json:"attributes"`
	Skills         []Skill        `json:"skills"`
	DerivedStats   []DerivedStat  `json:"derivedStats"`
	ItemCategories []ItemCategory `json:"itemCategories"`
	Conditions     []Condition    `json:"conditions"`
	SheetSections  []SheetSection `json:"sheetSections"`
}

// AttributeDefaults returns the default value for every attribute, keyed by
// both id and abbreviation in lowercase. Formula evaluation falls back to
// these values when a character has no explicit attribute entry.
func (s Schema) AttributeDefaults() map[string]int {
	defaults := make(map[string]int, len(s.Attributes)*2)
	for _, attr := range s.Attributes {
		defaults[strings.ToLower(attr.ID)] = attr.Default
		if attr.Abbr != "" {
			defaults[strings.ToLower(attr.Abbr)] = attr.Default
		}
	}
	return defaults
}
