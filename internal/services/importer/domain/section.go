package domain

import "regexp"

// Section identifies a named region of the sourcebook.
type Section int

// Sections recognized by the classifier.
const (
	SectionNone Section = iota
	SectionOrigins
	SectionSpells
	SectionWeapons
)

func (s Section) String() string {
	switch s {
	case SectionOrigins:
		return "origins"
	case SectionSpells:
		return "spells"
	case SectionWeapons:
		return "weapons"
	default:
		return "none"
	}
}

// Header patterns cover Portuguese sourcebooks and their common English
// equivalents. Matches are whole-line and case-insensitive.
var (
	originsHeader = regexp.MustCompile(`(?i)^(?:ORIGENS?|ORIGINS?)$`)
	spellsHeader  = regexp.MustCompile(`(?i)^(?:RITUAIS?|MAGIAS?|FEITIÇOS?|SPELLS?)$`)
	weaponsHeader = regexp.MustCompile(`(?i)^(?:ARMAS?|EQUIPAMENTOS?)$`)
)

// Classifier tags lines with the active document section. The section
// carries across the whole line stream and only changes when another
// header line is seen.
type Classifier struct {
	current Section
}

// Classify advances the classifier with one line. It returns the section
// the line belongs to and whether the line was a header. Header lines are
// consumed: they change the active section and carry no entity content.
func (c *Classifier) Classify(line string) (Section, bool) {
	switch {
	case originsHeader.MatchString(line):
		c.current = SectionOrigins
		return c.current, true
	case spellsHeader.MatchString(line):
		c.current = SectionSpells
		return c.current, true
	case weaponsHeader.MatchString(line):
		c.current = SectionWeapons
		return c.current, true
	}
	return c.current, false
}

// Current returns the active section.
func (c *Classifier) Current() Section {
	return c.current
}
