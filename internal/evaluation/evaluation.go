package evaluation

import (
	"math"
	"sort"

	"github.com/ndiayeb/passation-service/internal/models"
)

// Pondérations et seuil de qualification de la grille d'évaluation.
const (
	SeuilQualification = 70.0
	PoidsTechnique     = 0.7
	PoidsFinancier     = 0.3
)

// Qualifie indique si une note technique atteint le seuil de qualification.
func Qualifie(noteTechnique float64) bool {
	return noteTechnique >= SeuilQualification
}

// NoteFinale calcule la note pondérée, arrondie à une décimale.
func NoteFinale(noteTechnique, noteFinanciere float64) float64 {
	return math.Round((noteTechnique*PoidsTechnique+noteFinanciere*PoidsFinancier)*10) / 10
}

// Noter recalcule les champs dérivés d'une offre après saisie des notes :
// qualification, puis note finale si les deux notes sont posées et que
// l'offre est qualifiée et non éliminée. La note financière d'une offre non
// qualifiée est conservée mais exclue du calcul.
func Noter(s *models.Soumissionnaire) {
	s.Qualifie = s.NoteTechnique != nil && Qualifie(*s.NoteTechnique)

	if s.Qualifie && s.Statut != models.OffreElimine && s.NoteTechnique != nil && s.NoteFinanciere != nil {
		finale := NoteFinale(*s.NoteTechnique, *s.NoteFinanciere)
		s.NoteFinale = &finale
	} else {
		s.NoteFinale = nil
	}
}

// Classer attribue les rangs dans un périmètre (les offres d'un lot, ou du
// marché entier s'il n'est pas alloti). Seules les offres qualifiées, non
// éliminées et dotées d'une note finale sont classées, par note décroissante,
// rang dense de 1 à N. Le rang 1 passe au statut retenu, les autres classées
// au statut qualifié ; les offres hors classement perdent leur rang et
// gardent leur statut. En cas d'égalité en tête, l'ordre d'évaluation
// départage : la première offre ayant atteint la note l'emporte (choix
// assumé, stable mais arbitraire). L'opération est idempotente.
func Classer(offres []models.Soumissionnaire) []models.Soumissionnaire {
	classees := make([]int, 0, len(offres))
	for i := range offres {
		s := &offres[i]
		if s.Qualifie && s.Statut != models.OffreElimine && s.NoteFinale != nil {
			classees = append(classees, i)
		} else {
			s.Rang = nil
		}
	}

	// Tri stable : à note égale, l'ordre d'évaluation est préservé.
	sort.SliceStable(classees, func(a, b int) bool {
		return *offres[classees[a]].NoteFinale > *offres[classees[b]].NoteFinale
	})

	for rang, idx := range classees {
		r := rang + 1
		offres[idx].Rang = &r
		if r == 1 {
			offres[idx].Statut = models.OffreRetenu
		} else {
			offres[idx].Statut = models.OffreQualifie
		}
	}
	return offres
}
