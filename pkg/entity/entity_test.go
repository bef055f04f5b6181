package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Don Luis", "don luis"},
		{"  Doña   Inés ", "dona ines"},
		{"The Old Güero", "old guero"},
		{"La Botica", "botica"},
		{"El", "el"},
		{"ANA", "ana"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestGenerateID(t *testing.T) {
	assert.Equal(t, "npc_don_luis", GenerateID(TypeNPC, "Don Luis"))
	assert.Equal(t, "patient_dona_ines_de_la_cruz", GenerateID(TypePatient, "Doña Inés de la Cruz"))
	assert.Equal(t, "item_mortar_pestle", GenerateID(TypeItem, "Mortar & Pestle!"))
	assert.Equal(t, "", GenerateID(TypeNPC, "  ??  "))
}

func TestTemplateName(t *testing.T) {
	e := &Entity{Name: TemplateName("Shopkeeper")}
	assert.True(t, e.IsTemplate())
	assert.Equal(t, "Shopkeeper", ArchetypeFromName(e.Name))
	assert.Equal(t, "", ArchetypeFromName("Pedro Rivas"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		entity  Entity
		wantErr error
	}{
		{"valid", Entity{ID: "npc_a", Type: TypeNPC}, nil},
		{"missing id", Entity{Type: TypeNPC}, ErrMissingID},
		{"missing type", Entity{ID: "x"}, ErrMissingType},
		{"unknown type", Entity{ID: "x", Type: "dragon"}, ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entity.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMerge_NestedObjectsMergeRecursively(t *testing.T) {
	base := &Entity{
		ID:         "npc_pedro",
		Type:       TypeNPC,
		Name:       "Pedro",
		Faction:    "guild",
		Appearance: &Appearance{Build: "stocky", Hair: "black"},
		State:      map[string]any{"mood": "calm", "coins": 3.0},
	}
	overlay := &Entity{
		Name:       "Pedro Rivas",
		Appearance: &Appearance{Eyes: "brown", Hair: "grey"},
		State:      map[string]any{"mood": "angry"},
	}

	merged, err := Merge(base, overlay)
	require.NoError(t, err)

	assert.Equal(t, "npc_pedro", merged.ID)
	assert.Equal(t, TypeNPC, merged.Type)
	assert.Equal(t, "Pedro Rivas", merged.Name)
	assert.Equal(t, "guild", merged.Faction)
	assert.Equal(t, "stocky", merged.Appearance.Build)
	assert.Equal(t, "grey", merged.Appearance.Hair)
	assert.Equal(t, "brown", merged.Appearance.Eyes)
	assert.Equal(t, "angry", merged.State["mood"])
	assert.Equal(t, 3.0, merged.State["coins"])

	// base untouched
	assert.Equal(t, "Pedro", base.Name)
	assert.Equal(t, "black", base.Appearance.Hair)
}

func TestPatch_ExplicitValues(t *testing.T) {
	base := &Entity{ID: "npc_a", Type: TypeNPC, Name: "A", Tags: []string{"x", "y"}}
	patched, err := Patch(base, map[string]any{
		"tags":      []any{"z"},
		"clickable": false,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, patched.Tags)
	assert.False(t, patched.IsClickable())
}

func TestClone_IsDeep(t *testing.T) {
	orig := &Entity{ID: "npc_a", Type: TypeNPC, Skills: Skills{"herbalism": 12}}
	c := orig.Clone()
	c.Skills["herbalism"] = 3
	assert.Equal(t, 12, orig.Skills["herbalism"])
}

func TestHelpers(t *testing.T) {
	e := &Entity{Type: TypeNPC, Archetype: "Shopkeeper", Tags: []string{"Debt-Collector"}}
	assert.True(t, e.HasTag("debt-collector"))
	assert.Equal(t, "Shopkeeper", e.Occupation())
	assert.Equal(t, ClassUnknown, e.Class())
	e.Social = &SocialStanding{Occupation: "moneylender", Class: ClassElite}
	assert.Equal(t, "moneylender", e.Occupation())
	assert.Equal(t, ClassElite, e.Class())
	assert.True(t, e.IsClickable())
	assert.False(t, (&Entity{Type: TypeQuest}).IsClickable())
	assert.True(t, TypePatient.IsPerson())
	assert.False(t, TypeItem.IsPerson())
}
