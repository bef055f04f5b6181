package enrich

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/entity"
)

var fallbacks = map[Facet]GeneratorFunc{
	FacetAppearance:  fallbackAppearance,
	FacetClothing:    fallbackClothing,
	FacetPersonality: fallbackPersonality,
	FacetDialogue:    fallbackDialogue,
	FacetBiography:   fallbackBiography,
	FacetSkills:      fallbackSkills,
}

var (
	heights = []string{"short", "of middling height", "tall"}
	builds  = []string{"slight", "wiry", "stocky", "broad-shouldered", "heavyset", "gaunt"}
	eyes    = []string{"dark brown", "black", "hazel", "grey", "amber"}
	marks   = []string{
		"a pockmarked cheek", "a crooked nose", "ink-stained fingers",
		"a missing tooth", "a scar across the brow", "calloused hands",
		"a rosary always at hand", "a nervous laugh",
	}
)

var complexionByCasta = map[entity.Casta][]string{
	entity.CastaEspanol: {"fair", "sun-weathered fair", "olive"},
	entity.CastaCriollo: {"fair", "olive", "sallow"},
	entity.CastaMestizo: {"olive", "light brown", "copper"},
	entity.CastaIndio:   {"copper", "deep brown", "bronze"},
	entity.CastaMulato:  {"light brown", "tawny", "bronze"},
	entity.CastaNegro:   {"dark brown", "deep ebony", "umber"},
}

var hairByCasta = map[entity.Casta][]string{
	entity.CastaEspanol: {"dark brown", "black", "chestnut", "powdered grey"},
	entity.CastaCriollo: {"dark brown", "black", "chestnut"},
	entity.CastaIndio:   {"straight black", "long black braided"},
	entity.CastaNegro:   {"tightly curled black", "close-cropped black"},
}

func fallbackAppearance(e *entity.Entity, src dice.Source) error {
	a := e.Appearance
	if a == nil {
		a = &entity.Appearance{}
	}
	if a.Age == 0 {
		a.Age = dice.Between(src, 16, 70)
	}
	if a.Height == "" {
		a.Height = dice.Pick(src, heights)
	}
	a.Build = dice.Pick(src, builds)
	if a.Hair == "" {
		hair, ok := hairByCasta[e.Casta]
		if !ok {
			hair = []string{"black", "dark brown"}
		}
		a.Hair = dice.Pick(src, hair)
		if a.Age > 55 {
			a.Hair = "greying " + a.Hair
		}
	}
	if a.Eyes == "" {
		a.Eyes = dice.Pick(src, eyes)
	}
	if a.Complexion == "" {
		c, ok := complexionByCasta[e.Casta]
		if !ok {
			c = []string{"olive", "light brown"}
		}
		a.Complexion = dice.Pick(src, c)
	}
	if len(a.Features) == 0 {
		a.Features = []string{dice.Pick(src, marks)}
	}
	if a.Description == "" {
		a.Description = fmt.Sprintf("A %s, %s %s of about %d with %s hair, %s eyes and %s.",
			a.Build, a.Height, genderNoun(e.Gender), a.Age, a.Hair, a.Eyes, a.Features[0])
	}
	e.Appearance = a
	return nil
}

var eliteGarments = map[entity.Gender][]string{
	entity.GenderMale:   {"embroidered waistcoat", "silk stockings", "buckled shoes", "tricorn hat", "lace cravat"},
	entity.GenderFemale: {"silk gown", "lace mantilla", "embroidered shawl", "tortoiseshell comb", "satin slippers"},
}

var commonGarments = map[entity.Gender][]string{
	entity.GenderMale:   {"cotton shirt", "woolen sarape", "leather sandals", "wide-brimmed hat", "rough breeches"},
	entity.GenderFemale: {"cotton huipil", "rebozo", "woolen skirt", "leather sandals", "plain apron"},
}

var conditions = []string{"worn but clean", "patched", "threadbare", "well kept", "dusty from the road"}

func fallbackClothing(e *entity.Entity, src dice.Source) error {
	c := e.Clothing
	if c == nil {
		c = &entity.Clothing{}
	}
	gender := e.Gender
	if gender == "" {
		gender = entity.GenderMale
	}
	garments := commonGarments[gender]
	c.Style = "plain working dress"
	if e.Class() == entity.ClassElite {
		garments = eliteGarments[gender]
		c.Style = "fashionable Bourbon-era attire"
	} else if occ := strings.ToLower(e.Occupation()); strings.Contains(occ, "priest") || strings.Contains(occ, "friar") || strings.Contains(occ, "fray") {
		garments = []string{"black cassock", "rope belt", "wooden crucifix"}
		c.Style = "clerical habit"
	}
	if len(c.Garments) == 0 {
		n := dice.Between(src, 2, 3)
		start := src.IntN(len(garments))
		for i := 0; i < n; i++ {
			c.Garments = append(c.Garments, garments[(start+i)%len(garments)])
		}
	}
	if c.Condition == "" {
		if e.Class() == entity.ClassElite {
			c.Condition = "immaculate"
		} else {
			c.Condition = dice.Pick(src, conditions)
		}
	}
	e.Clothing = c
	return nil
}

// occupationOffsets nudges Big Five scores by occupation keyword.
var occupationOffsets = map[string]entity.BigFive{
	"merchant":    {Extraversion: 10, Conscientiousness: 5},
	"shopkeeper":  {Extraversion: 8, Conscientiousness: 5},
	"priest":      {Agreeableness: 10, Conscientiousness: 8},
	"friar":       {Agreeableness: 10, Openness: 5},
	"soldier":     {Conscientiousness: 8, Agreeableness: -8},
	"moneylender": {Conscientiousness: 10, Agreeableness: -10},
	"collector":   {Agreeableness: -10, Neuroticism: 5},
	"scholar":     {Openness: 12, Extraversion: -5},
	"physician":   {Openness: 8, Conscientiousness: 8},
	"midwife":     {Agreeableness: 8, Openness: 5},
	"beggar":      {Neuroticism: 8, Conscientiousness: -8},
	"thief":       {Conscientiousness: -10, Openness: 5},
}

func fallbackPersonality(e *entity.Entity, src dice.Source) error {
	p := e.Personality
	if p == nil {
		p = &entity.Personality{}
	}
	b := entity.BigFive{
		Openness:          dice.Between(src, 30, 70),
		Conscientiousness: dice.Between(src, 30, 70),
		Extraversion:      dice.Between(src, 30, 70),
		Agreeableness:     dice.Between(src, 30, 70),
		Neuroticism:       dice.Between(src, 30, 70),
	}
	occ := strings.ToLower(e.Occupation())
	for _, keyword := range slices.Sorted(maps.Keys(occupationOffsets)) {
		if off := occupationOffsets[keyword]; strings.Contains(occ, keyword) {
			b.Openness += off.Openness
			b.Conscientiousness += off.Conscientiousness
			b.Extraversion += off.Extraversion
			b.Agreeableness += off.Agreeableness
			b.Neuroticism += off.Neuroticism
		}
	}
	b.Openness = clampScore(b.Openness)
	b.Conscientiousness = clampScore(b.Conscientiousness)
	b.Extraversion = clampScore(b.Extraversion)
	b.Agreeableness = clampScore(b.Agreeableness)
	b.Neuroticism = clampScore(b.Neuroticism)
	p.BigFive = &b
	if len(p.Traits) == 0 {
		p.Traits = traitsFor(b)
	}
	e.Personality = p
	return nil
}

func traitsFor(b entity.BigFive) []string {
	var traits []string
	pick := func(score int, high, low string) {
		switch {
		case score >= 60:
			traits = append(traits, high)
		case score <= 40:
			traits = append(traits, low)
		}
	}
	pick(b.Openness, "curious", "traditional")
	pick(b.Conscientiousness, "meticulous", "careless")
	pick(b.Extraversion, "gregarious", "reserved")
	pick(b.Agreeableness, "kind", "suspicious")
	pick(b.Neuroticism, "anxious", "steady")
	if len(traits) == 0 {
		traits = append(traits, "unremarkable")
	}
	return traits
}

func clampScore(v int) int {
	return max(0, min(v, 100))
}

var origins = []string{
	"the Valley of Mexico", "Puebla de los Ángeles", "Querétaro", "Oaxaca",
	"Veracruz", "Guanajuato", "a pueblo near Toluca", "Cádiz", "Sevilla",
}

func fallbackBiography(e *entity.Entity, src dice.Source) error {
	b := e.Biography
	if b == nil {
		b = &entity.Biography{}
	}
	if b.Origin == "" {
		origin := dice.Pick(src, origins[:7])
		if e.Casta == entity.CastaEspanol {
			origin = dice.Pick(src, origins[7:])
		}
		b.Origin = origin
	}
	occ := e.Occupation()
	if occ == "" {
		occ = "day laborer"
	}
	casta := string(e.Casta)
	if casta == "" {
		casta = "resident"
	}
	b.Background = fmt.Sprintf("A %s %s from %s, now living in the capital.", casta, strings.ToLower(occ), b.Origin)
	if len(b.Goals) == 0 {
		b.Goals = []string{dice.Pick(src, []string{
			"to settle an old debt", "to see a child married well", "to earn a guild license",
			"to find a cure for a sick relative", "to be left alone", "to rise above their station",
		})}
	}
	e.Biography = b
	return nil
}

// occupationSkills maps occupation keywords to the primary skill they train.
var occupationSkills = map[string]string{
	"apothecary":  "herbalism",
	"physician":   "medicine",
	"midwife":     "medicine",
	"curandera":   "herbalism",
	"merchant":    "trade",
	"shopkeeper":  "trade",
	"moneylender": "trade",
	"soldier":     "combat",
	"collector":   "intimidation",
	"priest":      "letters",
	"friar":       "letters",
	"scholar":     "letters",
	"notary":      "letters",
	"thief":       "stealth",
	"beggar":      "streetwise",
}

var baseSkills = []string{"herbalism", "medicine", "trade", "combat", "intimidation", "letters", "stealth", "streetwise"}

func fallbackSkills(e *entity.Entity, src dice.Source) error {
	skills := make(entity.Skills, len(baseSkills))
	for _, s := range baseSkills {
		skills[s] = dice.Between(src, 3, 8)
	}
	occ := strings.ToLower(e.Occupation())
	for _, keyword := range slices.Sorted(maps.Keys(occupationSkills)) {
		if strings.Contains(occ, keyword) {
			skills[occupationSkills[keyword]] = dice.Between(src, 12, 17)
		}
	}
	e.Skills = skills
	return nil
}

var greetings = map[entity.Class][]string{
	entity.ClassElite: {
		"Good day. I trust you know who I am.",
		"Ah, the apothecary. Be quick, I have affairs to attend.",
		"Your servant, though I am rarely anyone's.",
	},
	entity.ClassCommon: {
		"Buenos días, señor. Forgive the intrusion.",
		"God keep you. Have you a moment for a poor soul?",
		"Ave María Purísima. Is the shop open?",
	},
}

func fallbackDialogue(e *entity.Entity, src dice.Source) error {
	d := e.Dialogue
	if d == nil {
		d = &entity.Dialogue{}
	}
	class := e.Class()
	if class != entity.ClassElite {
		class = entity.ClassCommon
	}
	d.Greeting = dice.Pick(src, greetings[class])
	if d.Farewell == "" {
		d.Farewell = "Vaya con Dios."
	}
	if d.SpeechStyle == "" {
		d.SpeechStyle = speechStyle(e)
	}
	if len(d.Hooks) == 0 && e.Biography != nil {
		d.Hooks = append(d.Hooks, e.Biography.Goals...)
	}
	e.Dialogue = d
	return nil
}

func speechStyle(e *entity.Entity) string {
	style := "plain and direct"
	if e.Class() == entity.ClassElite {
		style = "formal and condescending"
	}
	if e.Personality != nil && e.Personality.BigFive != nil {
		switch {
		case e.Personality.BigFive.Extraversion >= 60:
			style += ", talkative"
		case e.Personality.BigFive.Extraversion <= 40:
			style += ", terse"
		}
	}
	return style
}

func genderNoun(g entity.Gender) string {
	switch g {
	case entity.GenderFemale:
		return "woman"
	case entity.GenderMale:
		return "man"
	}
	return "person"
}
