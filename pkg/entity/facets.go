package entity

// Casta is the colonial-era demographic classification used to condition
// name and appearance tables.
type Casta string

const (
	CastaEspanol Casta = "español"
	CastaCriollo Casta = "criollo"
	CastaMestizo Casta = "mestizo"
	CastaIndio   Casta = "indio"
	CastaMulato  Casta = "mulato"
	CastaNegro   Casta = "negro"
)

// Castas lists every known casta.
var Castas = []Casta{CastaEspanol, CastaCriollo, CastaMestizo, CastaIndio, CastaMulato, CastaNegro}

// Class is the broad social class used by the selection weights.
type Class string

const (
	ClassUnknown Class = ""
	ClassElite   Class = "elite"
	ClassCommon  Class = "common"
)

type SocialStanding struct {
	Class      Class  `json:"class,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Title      string `json:"title,omitempty"`
	Wealth     string `json:"wealth,omitempty"`
}

type Appearance struct {
	Age         int      `json:"age,omitempty"`
	Height      string   `json:"height,omitempty"`
	Build       string   `json:"build,omitempty"`
	Hair        string   `json:"hair,omitempty"`
	Eyes        string   `json:"eyes,omitempty"`
	Complexion  string   `json:"complexion,omitempty"`
	Features    []string `json:"features,omitempty"`
	Description string   `json:"description,omitempty"`
}

// BigFive holds OCEAN scores on a 0-100 scale.
type BigFive struct {
	Openness          int `json:"openness"`
	Conscientiousness int `json:"conscientiousness"`
	Extraversion      int `json:"extraversion"`
	Agreeableness     int `json:"agreeableness"`
	Neuroticism       int `json:"neuroticism"`
}

// Humor is one of the four classical temperaments.
type Humor string

const (
	HumorSanguine    Humor = "sanguine"
	HumorCholeric    Humor = "choleric"
	HumorMelancholic Humor = "melancholic"
	HumorPhlegmatic  Humor = "phlegmatic"
)

type Temperament struct {
	Primary   Humor             `json:"primary"`
	Secondary Humor             `json:"secondary,omitempty"`
	Scores    map[Humor]float64 `json:"scores,omitempty"`
}

type Personality struct {
	BigFive     *BigFive     `json:"big_five,omitempty"`
	Traits      []string     `json:"traits,omitempty"`
	Temperament *Temperament `json:"temperament,omitempty"`
}

type Clothing struct {
	Style       string   `json:"style,omitempty"`
	Garments    []string `json:"garments,omitempty"`
	Condition   string   `json:"condition,omitempty"`
	Accessories []string `json:"accessories,omitempty"`
}

type Biography struct {
	Background string   `json:"background,omitempty"`
	Origin     string   `json:"origin,omitempty"`
	Goals      []string `json:"goals,omitempty"`
	Secrets    []string `json:"secrets,omitempty"`
}

// Skills maps a skill name to a score on a 1-20 scale.
type Skills map[string]int

type Dialogue struct {
	Greeting     string   `json:"greeting,omitempty"`
	Farewell     string   `json:"farewell,omitempty"`
	SpeechStyle  string   `json:"speech_style,omitempty"`
	Hooks        []string `json:"hooks,omitempty"`
	Catchphrases []string `json:"catchphrases,omitempty"`
}
