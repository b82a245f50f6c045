package schema

// Version of the synthesized schema document.
const Version = "1.0"

// Synthesize builds the generic starter schema for an imported system:
// five attributes on a 1-5 scale, nine linked skills, three bar-type
// derived stats, three item categories, three baseline conditions, and the
// ordered sheet layout. The output does not depend on the document
// content; it is the same starter sheet for every import.
func Synthesize(systemName string) Schema {
	return Schema{
		Version: Version,
		Attributes: []Attribute{
			{ID: "str", Name: "Força", Abbr: "FOR", Min: 1, Max: 5, Default: 1, Category: "combat"},
			{ID: "agi", Name: "Agilidade", Abbr: "AGI", Min: 1, Max: 5, Default: 1, Category: "combat"},
			{ID: "int", Name: "Intelecto", Abbr: "INT", Min: 1, Max: 5, Default: 1, Category: "mental"},
			{ID: "pre", Name: "Presença", Abbr: "PRE", Min: 1, Max: 5, Default: 1, Category: "social"},
			{ID: "vig", Name: "Vigor", Abbr: "VIG", Min: 1, Max: 5, Default: 1, Category: "combat"},
		},
		Skills: []Skill{
			{ID: "athletics", Name: "Atletismo", LinkedAttribute: "str"},
			{ID: "acrobatics", Name: "Acrobacia", LinkedAttribute: "agi"},
			{ID: "stealth", Name: "Furtividade", LinkedAttribute: "agi"},
			{ID: "investigation", Name: "Investigação", LinkedAttribute: "int"},
			{ID: "medicine", Name: "Medicina", LinkedAttribute: "int"},
			{ID: "persuasion", Name: "Persuasão", LinkedAttribute: "pre"},
			{ID: "intimidation", Name: "Intimidação", LinkedAttribute: "pre"},
			{ID: "perception", Name: "Percepção", LinkedAttribute: "pre"},
			{ID: "fortitude", Name: "Fortitude", LinkedAttribute: "vig"},
		},
		DerivedStats: []DerivedStat{
			{ID: "hp", Name: "Pontos de Vida", Abbr: "PV", Formula: "vig * 4 + 8", DisplayType: "bar", Color: "#ef4444"},
			{ID: "mp", Name: "Pontos de Esforço", Abbr: "PE", Formula: "pre + int + 2", DisplayType: "bar", Color: "#8b5cf6"},
			{ID: "san", Name: "Sanidade", Abbr: "SAN", Formula: "pre * 5", DisplayType: "bar", Color: "#06b6d4"},
		},
		ItemCategories: []ItemCategory{
			{
				ID:   "weapons",
				Name: "Armas",
				Fields: []ItemField{
					{ID: "damage", Name: "Dano", Type: "text"},
					{ID: "range", Name: "Alcance", Type: "text"},
					{ID: "crit", Name: "Crítico", Type: "text"},
				},
			},
			{
				ID:   "armor",
				Name: "Proteção",
				Fields: []ItemField{
					{ID: "defense", Name: "Defesa", Type: "number"},
					{ID: "penalty", Name: "Penalidade", Type: "number"},
				},
			},
			{
				ID:     "items",
				Name:   "Itens Gerais",
				Fields: []ItemField{{ID: "weight", Name: "Peso", Type: "number"}},
			},
		},
		Conditions: []Condition{
			{ID: "abalado", Name: "Abalado", Description: "Penalidade de -2 em testes de PRE", IconName: "brain"},
			{ID: "lento", Name: "Lento", Description: "Movimento reduzido à metade", IconName: "footprints"},
			{ID: "vulneravel", Name: "Vulnerável", Description: "Ataques contra você têm +2 de bônus", IconName: "shield-off"},
		},
		SheetSections: []SheetSection{
			{ID: "info", Title: "Informações", Component: "SheetInfo", Order: 0},
			{ID: "attributes", Title: "Atributos", Component: "SheetAttributes", Order: 1},
			{ID: "derived", Title: "Status", Component: "SheetDerivedStats", Order: 2},
			{ID: "skills", Title: "Perícias", Component: "SheetSkills", Order: 3},
			{ID: "inventory", Title: "Inventário", Component: "SheetInventory", Order: 4},
			{ID: "spells", Title: "Rituais", Component: "SheetSpells", Order: 5, Collapsible: true},
			{ID: "notes", Title: "Anotações", Component: "SheetNotes", Order: 6, Collapsible: true},
		},
	}
}
