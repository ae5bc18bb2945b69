package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/ndiayeb/passation-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marcheEnStatut(statut models.MarcheStatut) *fakeMarcheRepo {
	return &fakeMarcheRepo{detail: &models.MarcheDetail{
		Marche: models.Marche{ID: "m-1", Reference: "DGM-2025-0042", Statut: statut},
	}}
}

func TestCreateSoumissionnaireApresEvaluation(t *testing.T) {
	svc := NewSoumissionnaireService(&fakeOffresRepo{}, marcheEnStatut(models.EnEvaluation), newTestLogger())

	_, err := svc.CreateSoumissionnaire(context.Background(), "m-1", models.SoumissionnaireRequest{RaisonSociale: "SOTRACOM"})

	var errResp *models.ErrorResponse
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusConflict, errResp.StatusCode)
}

func TestCreateSoumissionnaireLotEtranger(t *testing.T) {
	marches := marcheEnStatut(models.Publie)
	marches.detail.Allotissement = true
	marches.detail.Lots = []models.Lot{{ID: "l-1", MarcheID: "m-1", Numero: 1, Libelle: "Gros œuvre"}}
	svc := NewSoumissionnaireService(&fakeOffresRepo{}, marches, newTestLogger())

	autre := "l-99"
	_, err := svc.CreateSoumissionnaire(context.Background(), "m-1", models.SoumissionnaireRequest{
		RaisonSociale: "SOTRACOM",
		LotID:         &autre,
	})

	var errResp *models.ErrorResponse
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusBadRequest, errResp.StatusCode)
}

func TestCreateSoumissionnaireLotSurMarcheNonAlloti(t *testing.T) {
	svc := NewSoumissionnaireService(&fakeOffresRepo{}, marcheEnStatut(models.Publie), newTestLogger())

	lot := "l-1"
	_, err := svc.CreateSoumissionnaire(context.Background(), "m-1", models.SoumissionnaireRequest{
		RaisonSociale: "SOTRACOM",
		LotID:         &lot,
	})

	var errResp *models.ErrorResponse
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusBadRequest, errResp.StatusCode)
}

func TestEditSoumissionnaireNotation(t *testing.T) {
	offres := &fakeOffresRepo{offres: []models.Soumissionnaire{
		{ID: "s-1", MarcheID: "m-1", RaisonSociale: "SOTRACOM", Statut: models.OffreRecue},
	}}
	svc := NewSoumissionnaireService(offres, marcheEnStatut(models.EnEvaluation), newTestLogger())

	offre, err := svc.EditSoumissionnaire(context.Background(), "s-1", map[string]interface{}{
		"noteTechnique":  85.0,
		"noteFinanciere": 90.0,
	})

	require.NoError(t, err)
	assert.True(t, offre.Qualifie)
	require.NotNil(t, offre.NoteFinale)
	assert.Equal(t, 86.5, *offre.NoteFinale)
}

func TestEditSoumissionnaireNoteTechniqueInsuffisante(t *testing.T) {
	// Sous le seuil de qualification, la note finale reste vide.
	offres := &fakeOffresRepo{offres: []models.Soumissionnaire{
		{ID: "s-1", MarcheID: "m-1", RaisonSociale: "BTP Sahel", Statut: models.OffreRecue},
	}}
	svc := NewSoumissionnaireService(offres, marcheEnStatut(models.EnEvaluation), newTestLogger())

	offre, err := svc.EditSoumissionnaire(context.Background(), "s-1", map[string]interface{}{
		"noteTechnique":  50.0,
		"noteFinanciere": 95.0,
	})

	require.NoError(t, err)
	assert.False(t, offre.Qualifie)
	assert.Nil(t, offre.NoteFinale)
}

func TestEditSoumissionnaireNoteHorsBornes(t *testing.T) {
	offres := &fakeOffresRepo{offres: []models.Soumissionnaire{
		{ID: "s-1", MarcheID: "m-1", RaisonSociale: "SOTRACOM", Statut: models.OffreRecue},
	}}
	svc := NewSoumissionnaireService(offres, marcheEnStatut(models.EnEvaluation), newTestLogger())

	_, err := svc.EditSoumissionnaire(context.Background(), "s-1", map[string]interface{}{"noteTechnique": 120.0})

	var errResp *models.ErrorResponse
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusBadRequest, errResp.StatusCode)
}

func TestEditSoumissionnaireNotationHorsEvaluation(t *testing.T) {
	offres := &fakeOffresRepo{offres: []models.Soumissionnaire{
		{ID: "s-1", MarcheID: "m-1", RaisonSociale: "SOTRACOM", Statut: models.OffreRecue},
	}}
	svc := NewSoumissionnaireService(offres, marcheEnStatut(models.Publie), newTestLogger())

	_, err := svc.EditSoumissionnaire(context.Background(), "s-1", map[string]interface{}{"noteTechnique": 85.0})

	var errResp *models.ErrorResponse
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusConflict, errResp.StatusCode)
}

func TestEditSoumissionnaireCoordonneesApresEvaluation(t *testing.T) {
	offres := &fakeOffresRepo{offres: []models.Soumissionnaire{
		{ID: "s-1", MarcheID: "m-1", RaisonSociale: "SOTRACOM", Statut: models.OffreRecue},
	}}
	svc := NewSoumissionnaireService(offres, marcheEnStatut(models.EnEvaluation), newTestLogger())

	_, err := svc.EditSoumissionnaire(context.Background(), "s-1", map[string]interface{}{"telephone": "+221 77 123 45 67"})

	var errResp *models.ErrorResponse
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusConflict, errResp.StatusCode)
}

func TestEditSoumissionnaireStatutDirectInterdit(t *testing.T) {
	// Le statut retenu n'est posé que par le classement, jamais à la main.
	offres := &fakeOffresRepo{offres: []models.Soumissionnaire{
		{ID: "s-1", MarcheID: "m-1", RaisonSociale: "SOTRACOM", Statut: models.OffreRecue},
	}}
	svc := NewSoumissionnaireService(offres, marcheEnStatut(models.EnEvaluation), newTestLogger())

	_, err := svc.EditSoumissionnaire(context.Background(), "s-1", map[string]interface{}{"statut": "retenu"})

	var errResp *models.ErrorResponse
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusBadRequest, errResp.StatusCode)
}

func TestEditSoumissionnaireEliminationAvantEvaluation(t *testing.T) {
	// L'élimination d'une offre non conforme se constate dès le dépouillement,
	// sans attendre le démarrage de l'évaluation.
	offres := &fakeOffresRepo{offres: []models.Soumissionnaire{
		{ID: "s-1", MarcheID: "m-1", RaisonSociale: "SOTRACOM", Statut: models.OffreRecue},
	}}
	svc := NewSoumissionnaireService(offres, marcheEnStatut(models.Cloture), newTestLogger())

	offre, err := svc.EditSoumissionnaire(context.Background(), "s-1", map[string]interface{}{
		"statut":           "elimine",
		"motifElimination": "caution de soumission absente",
	})

	require.NoError(t, err)
	assert.Equal(t, models.OffreElimine, offre.Statut)
	assert.Nil(t, offre.NoteFinale)
}

func TestEditSoumissionnaireEliminationApresAttribution(t *testing.T) {
	offres := &fakeOffresRepo{offres: []models.Soumissionnaire{
		{ID: "s-1", MarcheID: "m-1", RaisonSociale: "SOTRACOM", Statut: models.OffreQualifie},
	}}
	svc := NewSoumissionnaireService(offres, marcheEnStatut(models.Attribue), newTestLogger())

	_, err := svc.EditSoumissionnaire(context.Background(), "s-1", map[string]interface{}{"statut": "elimine"})

	var errResp *models.ErrorResponse
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusConflict, errResp.StatusCode)
}

func TestReplaceLotsNumerosNonDenses(t *testing.T) {
	marches := marcheEnStatut(models.Brouillon)
	marches.detail.Allotissement = true
	svc := NewSoumissionnaireService(&fakeOffresRepo{}, marches, newTestLogger())

	_, err := svc.ReplaceLots(context.Background(), "m-1", []models.LotRequest{
		{Numero: 1, Libelle: "Gros œuvre"},
		{Numero: 3, Libelle: "Second œuvre"},
	})

	var errResp *models.ErrorResponse
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusBadRequest, errResp.StatusCode)
}

func TestReplaceLotsHorsBrouillon(t *testing.T) {
	marches := marcheEnStatut(models.Publie)
	marches.detail.Allotissement = true
	svc := NewSoumissionnaireService(&fakeOffresRepo{}, marches, newTestLogger())

	_, err := svc.ReplaceLots(context.Background(), "m-1", []models.LotRequest{{Numero: 1, Libelle: "Gros œuvre"}})

	var errResp *models.ErrorResponse
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusConflict, errResp.StatusCode)
}

func TestEditLotInfructueux(t *testing.T) {
	marches := marcheEnStatut(models.EnEvaluation)
	marches.detail.Allotissement = true
	marches.detail.Lots = []models.Lot{{ID: "l-1", MarcheID: "m-1", Numero: 1, Libelle: "Gros œuvre", Statut: models.LotEnCours}}
	svc := NewSoumissionnaireService(&fakeOffresRepo{}, marches, newTestLogger())

	lot, err := svc.EditLot(context.Background(), "m-1", "l-1", map[string]interface{}{"statut": "infructueux"})

	require.NoError(t, err)
	assert.Equal(t, models.LotInfructueux, lot.Statut)
}

func TestEditLotStatutDirectInterdit(t *testing.T) {
	// Le statut attribué n'est posé que par la transition d'attribution.
	marches := marcheEnStatut(models.EnEvaluation)
	marches.detail.Allotissement = true
	marches.detail.Lots = []models.Lot{{ID: "l-1", MarcheID: "m-1", Numero: 1, Libelle: "Gros œuvre", Statut: models.LotEnCours}}
	svc := NewSoumissionnaireService(&fakeOffresRepo{}, marches, newTestLogger())

	_, err := svc.EditLot(context.Background(), "m-1", "l-1", map[string]interface{}{"statut": "attribue"})

	var errResp *models.ErrorResponse
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusBadRequest, errResp.StatusCode)
}

func TestEditLotContenuHorsBrouillon(t *testing.T) {
	marches := marcheEnStatut(models.Publie)
	marches.detail.Allotissement = true
	marches.detail.Lots = []models.Lot{{ID: "l-1", MarcheID: "m-1", Numero: 1, Libelle: "Gros œuvre", Statut: models.LotEnCours}}
	svc := NewSoumissionnaireService(&fakeOffresRepo{}, marches, newTestLogger())

	_, err := svc.EditLot(context.Background(), "m-1", "l-1", map[string]interface{}{"libelle": "Second œuvre"})

	var errResp *models.ErrorResponse
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusConflict, errResp.StatusCode)
}

func TestRecalculerClassement(t *testing.T) {
	a, b := 85.0, 90.0
	c, d := 94.0, 81.0
	e := 50.0
	offres := &fakeOffresRepo{offres: []models.Soumissionnaire{
		{ID: "s-1", MarcheID: "m-1", RaisonSociale: "SOTRACOM", NoteTechnique: &a, NoteFinanciere: &b, Statut: models.OffreRecue},
		{ID: "s-2", MarcheID: "m-1", RaisonSociale: "BTP Sahel", NoteTechnique: &c, NoteFinanciere: &d, Statut: models.OffreRecue},
		{ID: "s-3", MarcheID: "m-1", RaisonSociale: "Treschos", NoteTechnique: &e, NoteFinanciere: &b, Statut: models.OffreRecue},
	}}
	svc := NewSoumissionnaireService(offres, marcheEnStatut(models.EnEvaluation), newTestLogger())

	classees, err := svc.RecalculerClassement(context.Background(), "m-1", nil)

	require.NoError(t, err)
	require.Len(t, classees, 3)
	parID := make(map[string]models.Soumissionnaire, len(classees))
	for _, offre := range classees {
		parID[offre.ID] = offre
	}

	// 94/81 donne 90.1 : premier et retenu.
	require.NotNil(t, parID["s-2"].Rang)
	assert.Equal(t, 1, *parID["s-2"].Rang)
	assert.Equal(t, models.OffreRetenu, parID["s-2"].Statut)
	assert.Equal(t, 90.1, *parID["s-2"].NoteFinale)

	require.NotNil(t, parID["s-1"].Rang)
	assert.Equal(t, 2, *parID["s-1"].Rang)
	assert.Equal(t, models.OffreQualifie, parID["s-1"].Statut)

	// Note technique insuffisante : hors classement.
	assert.Nil(t, parID["s-3"].Rang)
	assert.False(t, parID["s-3"].Qualifie)

	// Le classement recalculé est persisté.
	assert.Len(t, offres.classement, 3)
}

func TestRecalculerClassementIdempotent(t *testing.T) {
	a, b := 85.0, 90.0
	offres := &fakeOffresRepo{offres: []models.Soumissionnaire{
		{ID: "s-1", MarcheID: "m-1", RaisonSociale: "SOTRACOM", NoteTechnique: &a, NoteFinanciere: &b, Statut: models.OffreRecue},
	}}
	svc := NewSoumissionnaireService(offres, marcheEnStatut(models.EnEvaluation), newTestLogger())

	premier, err := svc.RecalculerClassement(context.Background(), "m-1", nil)
	require.NoError(t, err)
	second, err := svc.RecalculerClassement(context.Background(), "m-1", nil)
	require.NoError(t, err)

	assert.Equal(t, premier, second)
}

func TestRecalculerClassementHorsEvaluation(t *testing.T) {
	svc := NewSoumissionnaireService(&fakeOffresRepo{}, marcheEnStatut(models.Cloture), newTestLogger())

	_, err := svc.RecalculerClassement(context.Background(), "m-1", nil)

	var errResp *models.ErrorResponse
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusConflict, errResp.StatusCode)
}
