// Package domain implements the sourcebook parsing core: slug generation,
// line normalization, section classification, and per-section entity
// extraction.
package domain

// Origin is one extracted character origin or background.
type Origin struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Bonuses     map[string]int `json:"bonuses"`
	Abilities   []string       `json:"abilities"`
}

// Spell is one extracted spell or ritual.
type Spell struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	School      string `json:"school"`
	Cost        string `json:"cost"`
	Effect      string `json:"effect"`
}

// Weapon is one extracted weapon or equipment entry.
type Weapon struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Damage      string `json:"damage"`
	Description string `json:"description"`
}

// SystemData holds every record extracted from one sourcebook. It is
// persisted verbatim as the system's content document.
type SystemData struct {
	Origins []Origin `json:"origins"`
	Spells  []Spell  `json:"spells"`
	Weapons []Weapon `json:"weapons"`
}
