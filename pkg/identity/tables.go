package identity

import "github.com/jwebster45206/encounter-engine/pkg/entity"

// Tables holds the name pools the generator draws from. Given names are
// partitioned by casta then gender; the empty casta key is the default pool.
type Tables struct {
	Given    map[entity.Casta]map[entity.Gender][]string `json:"given" yaml:"given"`
	Surnames map[entity.Casta][]string                   `json:"surnames" yaml:"surnames"`

	// SingleNameCasta uses a culturally distinct given-name pool and may go
	// without a surname.
	SingleNameCasta entity.Casta `json:"single_name_casta" yaml:"single_name_casta"`
	// SurnameOmitChance is the probability a SingleNameCasta identity has no
	// surname.
	SurnameOmitChance float64 `json:"surname_omit_chance" yaml:"surname_omit_chance"`
	// CastaWeights is the distribution used when no casta is requested.
	CastaWeights map[entity.Casta]float64 `json:"casta_weights" yaml:"casta_weights"`
}

var spanishMale = []string{
	"José", "Juan", "Francisco", "Manuel", "Antonio", "Pedro", "Miguel", "Diego",
	"Luis", "Ignacio", "Joaquín", "Andrés", "Felipe", "Tomás", "Vicente",
	"Agustín", "Rafael", "Mariano", "Bernardo", "Cristóbal",
}

var spanishFemale = []string{
	"María", "Josefa", "Juana", "Ana", "Gertrudis", "Manuela", "Francisca",
	"Teresa", "Isabel", "Inés", "Catalina", "Rosa", "Micaela", "Antonia",
	"Petra", "Luisa", "Ignacia", "Guadalupe", "Rita", "Leonor",
}

// IndigenousMale and IndigenousFemale are the Nahua given-name pools.
var IndigenousMale = []string{
	"Cuauhtli", "Tlacaelel", "Ixtli", "Mazatl", "Tochtli", "Yaotl", "Tenoch",
	"Xiuhcoatl", "Ocelotl", "Necalli", "Tezcatl", "Cuetlachtli",
}

var IndigenousFemale = []string{
	"Citlali", "Xochitl", "Itzel", "Yaretzi", "Tonalli", "Metztli", "Quetzalli",
	"Nelli", "Ameyali", "Xiuhtonal", "Coaxoch", "Tlazohtzin",
}

var elitesSurnames = []string{
	"de la Peña", "Fernández de Córdoba", "Vázquez", "Rivas", "Villaseñor",
	"Echeverría", "Ortiz de Zárate", "Alcántara", "Mendoza", "Sandoval",
	"Arriaga", "Olmedo", "Zavala", "Castañeda", "Gómez",
}

var commonSurnames = []string{
	"Hernández", "García", "López", "Martínez", "Ramírez", "Cruz", "Flores",
	"Reyes", "de la Cruz", "de los Santos", "Rosales", "Morales", "Torres",
	"Domínguez", "Jiménez",
}

var indigenousSurnames = []string{
	"de la Cruz", "de San Juan", "Juárez", "Martín", "Tzompa", "Cuautle",
	"Xicoténcatl", "Tecuatl",
}

// DefaultTables returns the built-in late-colonial New Spain name pools.
func DefaultTables() Tables {
	spanish := map[entity.Gender][]string{
		entity.GenderMale:   spanishMale,
		entity.GenderFemale: spanishFemale,
	}
	return Tables{
		Given: map[entity.Casta]map[entity.Gender][]string{
			"": spanish,
			entity.CastaIndio: {
				entity.GenderMale:   IndigenousMale,
				entity.GenderFemale: IndigenousFemale,
			},
		},
		Surnames: map[entity.Casta][]string{
			"":                  commonSurnames,
			entity.CastaEspanol: elitesSurnames,
			entity.CastaCriollo: elitesSurnames,
			entity.CastaIndio:   indigenousSurnames,
		},
		SingleNameCasta:   entity.CastaIndio,
		SurnameOmitChance: 0.5,
		CastaWeights: map[entity.Casta]float64{
			entity.CastaEspanol: 0.10,
			entity.CastaCriollo: 0.20,
			entity.CastaMestizo: 0.30,
			entity.CastaIndio:   0.25,
			entity.CastaMulato:  0.10,
			entity.CastaNegro:   0.05,
		},
	}
}

func (t Tables) given(casta entity.Casta, gender entity.Gender) []string {
	if byGender, ok := t.Given[casta]; ok && len(byGender[gender]) > 0 {
		return byGender[gender]
	}
	return t.Given[""][gender]
}

func (t Tables) surnames(casta entity.Casta) []string {
	if s, ok := t.Surnames[casta]; ok && len(s) > 0 {
		return s
	}
	return t.Surnames[""]
}
