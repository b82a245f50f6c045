package domain

import (
	"regexp"
	"strings"
)

// Entity-start patterns. A match begins a new record; the captured group is
// the entity name.
var (
	originStarts = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^origem[:\s]+(.+)`),
		regexp.MustCompile(`(?i)^origin[:\s]+(.+)`),
	}
	spellStarts = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^ritual[:\s]+(.+)`),
		regexp.MustCompile(`(?i)^magia[:\s]+(.+)`),
		regexp.MustCompile(`(?i)^feitiço[:\s]+(.+)`),
		regexp.MustCompile(`(?i)^spell[:\s]+(.+)`),
	}
	weaponStarts = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^arma[:\s]+(.+)`),
		regexp.MustCompile(`(?i)^weapon[:\s]+(.+)`),
		regexp.MustCompile(`(?i)^equipamento[:\s]+(.+)`),
	}
)

// Sub-field patterns consume a line into a named field instead of the
// free-text description. Spells try cost, then effect, then school; a line
// feeds at most one field. Weapons only declare damage. Origins have no
// sub-fields: their bonuses and abilities stay empty and are filled by
// later tooling, not by parsed text.
var (
	costPattern   = regexp.MustCompile(`(?i)custo[:\s]+(.+)`)
	effectPattern = regexp.MustCompile(`(?i)efeito[:\s]+(.+)`)
	schoolPattern = regexp.MustCompile(`(?i)escola[:\s]+(.+)`)
	damagePattern = regexp.MustCompile(`(?i)dano[:\s]+(.+)`)
)

func matchStart(patterns []*regexp.Regexp, line string) (string, bool) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

func matchField(pattern *regexp.Regexp, line string) (string, bool) {
	if m := pattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// pendingEntity accumulates fields for the record currently being read.
// Lines that match no sub-field pattern append to the description,
// space-joined.
type pendingEntity struct {
	name        string
	description string
	school      string
	cost        string
	effect      string
	damage      string
}

func (p *pendingEntity) appendDescription(line string) {
	p.description += " " + line
}

// Extractor accumulates records from classified lines. Each section holds
// at most one pending entity at a time; a pending entity is committed when
// the next entity-start line for its section arrives or when the stream
// ends. Pending entities with an empty captured name are dropped.
type Extractor struct {
	classifier Classifier

	pendingOrigin *pendingEntity
	pendingSpell  *pendingEntity
	pendingWeapon *pendingEntity

	origins []Origin
	spells  []Spell
	weapons []Weapon
}

// Consume advances the extractor with one normalized line.
func (e *Extractor) Consume(line string) {
	section, header := e.classifier.Classify(line)
	if header {
		return
	}
	switch section {
	case SectionOrigins:
		e.consumeOrigin(line)
	case SectionSpells:
		e.consumeSpell(line)
	case SectionWeapons:
		e.consumeWeapon(line)
	}
}

// Finish commits every still-pending entity and returns the extracted
// records. Collections are never nil.
func (e *Extractor) Finish() SystemData {
	e.flushOrigin()
	e.flushSpell()
	e.flushWeapon()
	data := SystemData{
		Origins: e.origins,
		Spells:  e.spells,
		Weapons: e.weapons,
	}
	if data.Origins == nil {
		data.Origins = []Origin{}
	}
	if data.Spells == nil {
		data.Spells = []Spell{}
	}
	if data.Weapons == nil {
		data.Weapons = []Weapon{}
	}
	return data
}

// Extract runs the classifier and extractor over normalized lines.
func Extract(lines []string) SystemData {
	var extractor Extractor
	for _, line := range lines {
		extractor.Consume(line)
	}
	return extractor.Finish()
}

func (e *Extractor) consumeOrigin(line string) {
	if name, ok := matchStart(originStarts, line); ok {
		e.flushOrigin()
		e.pendingOrigin = &pendingEntity{name: name}
		return
	}
	if e.pendingOrigin == nil {
		return
	}
	e.pendingOrigin.appendDescription(line)
}

func (e *Extractor) consumeSpell(line string) {
	if name, ok := matchStart(spellStarts, line); ok {
		e.flushSpell()
		e.pendingSpell = &pendingEntity{name: name}
		return
	}
	if e.pendingSpell == nil {
		return
	}
	if cost, ok := matchField(costPattern, line); ok {
		e.pendingSpell.cost = cost
		return
	}
	if effect, ok := matchField(effectPattern, line); ok {
		e.pendingSpell.effect = effect
		return
	}
	if school, ok := matchField(schoolPattern, line); ok {
		e.pendingSpell.school = school
		return
	}
	e.pendingSpell.appendDescription(line)
}

func (e *Extractor) consumeWeapon(line string) {
	if name, ok := matchStart(weaponStarts, line); ok {
		e.flushWeapon()
		e.pendingWeapon = &pendingEntity{name: name}
		return
	}
	if e.pendingWeapon == nil {
		return
	}
	if damage, ok := matchField(damagePattern, line); ok {
		e.pendingWeapon.damage = damage
		return
	}
	e.pendingWeapon.appendDescription(line)
}

func (e *Extractor) flushOrigin() {
	pending := e.pendingOrigin
	e.pendingOrigin = nil
	if pending == nil || pending.name == "" {
		return
	}
	e.origins = append(e.origins, Origin{
		ID:          Slugify(pending.name),
		Name:        pending.name,
		Description: pending.description,
		Bonuses:     map[string]int{},
		Abilities:   []string{},
	})
}

func (e *Extractor) flushSpell() {
	pending := e.pendingSpell
	e.pendingSpell = nil
	if pending == nil || pending.name == "" {
		return
	}
	e.spells = append(e.spells, Spell{
		ID:          Slugify(pending.name),
		Name:        pending.name,
		Description: pending.description,
		School:      pending.school,
		Cost:        pending.cost,
		Effect:      pending.effect,
	})
}

func (e *Extractor) flushWeapon() {
	pending := e.pendingWeapon
	e.pendingWeapon = nil
	if pending == nil || pending.name == "" {
		return
	}
	e.weapons = append(e.weapons, Weapon{
		ID:          Slugify(pending.name),
		Name:        pending.name,
		Type:        "melee",
		Damage:      pending.damage,
		Description: pending.description,
	})
}
