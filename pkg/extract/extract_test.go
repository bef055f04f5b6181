package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/encounter-engine/pkg/entity"
	"github.com/jwebster45206/encounter-engine/pkg/store"
)

func TestRegexExtractor_ExtractNames(t *testing.T) {
	x := NewRegexExtractor(DefaultVocabulary())

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "all three patterns",
			text: "Doña Inés de Alvarado sweeps into the shop. Behind her, Fray Tomás mutters a prayer to the Virgen María. " +
				"Pedro Rivas waits by the door. The Plaza Mayor is loud today. Also present: Juana Pérez, Mateo.",
			want: []string{"Juana Pérez", "Mateo", "Doña Inés de Alvarado", "Fray Tomás", "Pedro Rivas"},
		},
		{
			name: "list with and",
			text: "In attendance: Lupe and Ramón",
			want: []string{"Lupe", "Ramón"},
		},
		{
			name: "sentence starts are not names",
			text: "The Botica smells of camphor. But nobody answers.",
			want: nil,
		},
		{
			name: "connectors stay inside names",
			text: "A letter arrives from Luis de Vargas y Mendoza today.",
			want: []string{"Luis de Vargas y Mendoza"},
		},
		{
			name: "duplicates collapse",
			text: "Pedro Rivas nods. Later, pedro rivas nods again. Pedro Rivas leaves.",
			want: []string{"Pedro Rivas"},
		},
		{
			name: "title longest match",
			text: "Señora Catalina Ruiz waves.",
			want: []string{"Señora Catalina Ruiz"},
		},
		{
			name: "no prose",
			text: "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, x.ExtractNames(tt.text))
		})
	}
}

func TestRegexExtractor_EmptyVocabulary(t *testing.T) {
	x := NewRegexExtractor(Vocabulary{})
	assert.Equal(t, []string{"Don Luis"}, x.ExtractNames("Don Luis arrives. Also present: Ana."))
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(nil)
	for _, e := range []*entity.Entity{
		{ID: "antagonist_don_luis", Type: entity.TypeAntagonist, Name: "Don Luis de Vargas"},
		{ID: "npc_pedro", Type: entity.TypeNPC, Name: "Pedro Rivas"},
	} {
		_, err := s.Register(e)
		require.NoError(t, err)
	}
	return s
}

func TestMaterializer_FromNames(t *testing.T) {
	s := newStore(t)
	m := NewMaterializer(s, nil, WithProtagonist("Catalina Torres"))

	created, err := m.FromNames([]string{"Don Luis", "Catalina", "Catalina Torres", "Pedro Ribas", "Fray Tomás", "Doña Inés"})
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.Equal(t, "npc_fray_tomas", created[0].ID)
	assert.Equal(t, entity.GenderMale, created[0].Gender)
	assert.Equal(t, entity.SourceNarrative, created[0].Metadata.DataSource)
	assert.Equal(t, entity.TierBackground, created[0].Tier)
	assert.True(t, created[0].HasTag("auto-generated"))

	assert.Equal(t, "npc_dona_ines", created[1].ID)
	assert.Equal(t, entity.GenderFemale, created[1].Gender)

	assert.Equal(t, 4, s.Count())

	again, err := m.FromNames([]string{"Fray Tomás", "Fray Tomas"})
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, 4, s.Count())
}

func TestMaterializer_FromMentions(t *testing.T) {
	s := newStore(t)
	m := NewMaterializer(s, nil)

	created, err := m.FromMentions([]Mention{
		{Text: "the Mortar", Type: entity.TypeItem},
		{Text: "Sor Juana", Tier: entity.TierRecurring, Casta: entity.CastaCriollo, Archetype: "Nun"},
		{Text: "  "},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty mention")
	require.Len(t, created, 2)

	assert.Equal(t, "item_mortar", created[0].ID)
	assert.Equal(t, entity.TypeItem, created[0].Type)
	assert.Empty(t, created[0].Gender, "items get no gender")

	assert.Equal(t, entity.TierRecurring, created[1].Tier)
	assert.Equal(t, entity.CastaCriollo, created[1].Casta)
	assert.Equal(t, entity.GenderFemale, created[1].Gender)
	assert.Equal(t, entity.SourceLLM, created[1].Metadata.DataSource)
}

func TestMaterializer_MentionsRefineKnownEntities(t *testing.T) {
	s := newStore(t)
	m := NewMaterializer(s, nil)

	created, err := m.FromMentions([]Mention{
		{Text: "Pedro Rivas", Faction: "cofradia", Archetype: "Water Carrier"},
		{Text: "Don Luis de Bargas", Tier: entity.TierStoryCritical},
	})
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Equal(t, 2, s.Count())

	pedro, ok := s.Raw("npc_pedro")
	require.True(t, ok)
	assert.Equal(t, "cofradia", pedro.Faction)
	assert.Equal(t, "Water Carrier", pedro.Archetype)
	assert.Equal(t, "Pedro Rivas", pedro.Name)

	luis, ok := s.Raw("antagonist_don_luis")
	require.True(t, ok)
	assert.Equal(t, entity.TierStoryCritical, luis.Tier)
	assert.Equal(t, entity.TypeAntagonist, luis.Type)

	// a bare mention carries nothing to merge
	before := s.Version()
	_, err = m.FromMentions([]Mention{{Text: "Pedro Rivas"}})
	require.NoError(t, err)
	assert.Equal(t, before, s.Version())

	// extracted names never rewrite known entities
	_, err = m.FromNames([]string{"Pedro Rivas"})
	require.NoError(t, err)
	assert.Equal(t, before, s.Version())
}

func TestMaterializer_IngestPrefersMentions(t *testing.T) {
	s := newStore(t)
	m := NewMaterializer(s, NewRegexExtractor(DefaultVocabulary()))

	created, err := m.Ingest("Ramón Gil enters.", []Mention{{Text: "Lupe"}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Lupe", created[0].Name)
	assert.False(t, s.HasName("Ramón Gil"))

	created, err = m.Ingest("Ramón Gil enters.", nil)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Ramón Gil", created[0].Name)

	m = NewMaterializer(s, nil)
	created, err = m.Ingest("Anyone", nil)
	assert.NoError(t, err)
	assert.Empty(t, created)
}

type flakyRegistry struct {
	*store.Store
	fail string
}

func (f flakyRegistry) Register(e *entity.Entity) (*entity.Entity, error) {
	if strings.Contains(e.Name, f.fail) {
		return nil, errors.New("malformed fragment")
	}
	return f.Store.Register(e)
}

func TestMaterializer_ContinuesPastFailures(t *testing.T) {
	s := store.New(nil)
	m := NewMaterializer(flakyRegistry{Store: s, fail: "Bad"}, nil)

	created, err := m.FromNames([]string{"Ana Soto", "Bad Fragment", "Beto Cruz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Bad Fragment"`)
	assert.Len(t, created, 2)
	assert.Equal(t, 2, s.Count())
}

func TestFuzzyKnown(t *testing.T) {
	m := NewMaterializer(store.New(nil), nil)
	known := []string{"Pedro Rivas", "Guadalupe Ortiz"}

	tests := []struct {
		name  string
		known bool
	}{
		{"Pedro Ribas", true},
		{"pedro  rivas", true},
		{"Guadalupe Ortis", true},
		{"Pedro Gómez", false},
		{"Lupe", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := m.fuzzyKnown(tt.name, known)
			assert.Equal(t, tt.known, ok)
		})
	}
}
