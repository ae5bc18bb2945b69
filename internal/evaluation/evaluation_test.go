package evaluation

import (
	"testing"

	"github.com/ndiayeb/passation-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offre(id string, tech, fin *float64) models.Soumissionnaire {
	s := models.Soumissionnaire{
		ID:             id,
		RaisonSociale:  id,
		NoteTechnique:  tech,
		NoteFinanciere: fin,
		Statut:         models.OffreConforme,
	}
	Noter(&s)
	return s
}

func f(v float64) *float64 { return &v }

func TestNoteFinale(t *testing.T) {
	assert.Equal(t, 86.5, NoteFinale(85, 90))
	assert.Equal(t, 72.0, NoteFinale(70, 76.7))
	assert.Equal(t, 100.0, NoteFinale(100, 100))
}

func TestNoterQualification(t *testing.T) {
	s := offre("s-1", f(85), f(90))
	assert.True(t, s.Qualifie)
	require.NotNil(t, s.NoteFinale)
	assert.Equal(t, 86.5, *s.NoteFinale)

	// Sous le seuil technique : pas de qualification, note finale absente
	// même si la note financière est fournie ensuite.
	s = offre("s-2", f(50), nil)
	assert.False(t, s.Qualifie)
	assert.Nil(t, s.NoteFinale)

	s.NoteFinanciere = f(95)
	Noter(&s)
	assert.False(t, s.Qualifie)
	assert.Nil(t, s.NoteFinale)

	// Seuil exact : qualifié.
	s = offre("s-3", f(70), f(80))
	assert.True(t, s.Qualifie)
}

func TestNoterOffreEliminee(t *testing.T) {
	s := offre("s-1", f(85), f(90))
	s.Statut = models.OffreElimine
	Noter(&s)
	assert.True(t, s.Qualifie)
	assert.Nil(t, s.NoteFinale)
}

func TestClasser(t *testing.T) {
	offres := []models.Soumissionnaire{
		offre("alpha", f(85), f(90)),   // finale 86.5
		offre("bravo", f(70), f(76.7)), // finale 72.0
		offre("charlie", f(94), f(81)), // finale 90.1
	}

	classees := Classer(offres)

	require.NotNil(t, classees[2].Rang)
	assert.Equal(t, 1, *classees[2].Rang)
	assert.Equal(t, models.OffreRetenu, classees[2].Statut)
	assert.Equal(t, 2, *classees[0].Rang)
	assert.Equal(t, models.OffreQualifie, classees[0].Statut)
	assert.Equal(t, 3, *classees[1].Rang)
	assert.Equal(t, models.OffreQualifie, classees[1].Statut)
}

func TestClasserIdempotent(t *testing.T) {
	offres := []models.Soumissionnaire{
		offre("alpha", f(85), f(90)),
		offre("bravo", f(70), f(76.7)),
		offre("charlie", f(94), f(81)),
	}

	premiere := Classer(offres)
	seconde := Classer(premiere)

	for i := range premiere {
		require.NotNil(t, seconde[i].Rang)
		assert.Equal(t, *premiere[i].Rang, *seconde[i].Rang)
		assert.Equal(t, premiere[i].Statut, seconde[i].Statut)
	}
}

func TestClasserEgaliteEnTete(t *testing.T) {
	// À note égale, la première offre évaluée garde le rang 1.
	offres := []models.Soumissionnaire{
		offre("premier", f(90), f(90)),
		offre("second", f(90), f(90)),
	}

	classees := Classer(offres)

	assert.Equal(t, 1, *classees[0].Rang)
	assert.Equal(t, models.OffreRetenu, classees[0].Statut)
	assert.Equal(t, 2, *classees[1].Rang)
	assert.Equal(t, models.OffreQualifie, classees[1].Statut)
}

func TestClasserHorsPerimetre(t *testing.T) {
	nonQualifie := offre("faible", f(50), f(99))
	ancienRang := 2
	nonQualifie.Rang = &ancienRang

	eliminee := offre("ecarte", f(95), f(95))
	eliminee.Statut = models.OffreElimine
	Noter(&eliminee)

	offres := []models.Soumissionnaire{
		offre("alpha", f(85), f(90)),
		nonQualifie,
		eliminee,
	}

	classees := Classer(offres)

	assert.Equal(t, 1, *classees[0].Rang)
	assert.Equal(t, models.OffreRetenu, classees[0].Statut)

	// Hors classement : rang effacé, statut inchangé.
	assert.Nil(t, classees[1].Rang)
	assert.Equal(t, models.OffreConforme, classees[1].Statut)
	assert.Nil(t, classees[2].Rang)
	assert.Equal(t, models.OffreElimine, classees[2].Statut)
}
