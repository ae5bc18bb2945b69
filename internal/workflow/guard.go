package workflow

import (
	"fmt"

	"github.com/ndiayeb/passation-service/internal/models"
)

// transition identifie une arête du circuit de passation.
type transition struct {
	depuis models.MarcheStatut
	vers   models.MarcheStatut
}

// predicat vérifie une précondition sur l'instantané du marché et retourne
// un message de blocage, ou une chaîne vide si la condition est remplie.
type predicat func(detail *models.MarcheDetail) string

// Table des transitions autorisées et de leurs préconditions. Le circuit est
// strictement séquentiel, avec une seule arête de retour : le rejet de
// l'attribution renvoie le marché en évaluation.
var transitions = map[transition][]predicat{
	{models.Brouillon, models.Publie}: {
		demandeLiee,
		procedureDefinie,
		datesPublicationDefinies,
		clotureApresPublication,
		lotsSiAllotissement,
	},
	{models.Publie, models.Cloture}:        {},
	{models.Cloture, models.EnEvaluation}:  {auMoinsUneOffre},
	{models.EnEvaluation, models.Attribue}: {offresToutesEvaluees, auMoinsUnQualifie},
	{models.Attribue, models.Approuve}:     {},
	{models.Approuve, models.Signe}:        {contratPresent},
	// Arête de retour : rejet de l'attribution par l'autorité d'approbation.
	{models.Attribue, models.EnEvaluation}: {},
}

// Check évalue toutes les préconditions de la transition demandée et retourne
// la liste complète des motifs de blocage, vide si la transition est permise.
// Une arête absente de la table est une erreur, pas un no-op.
func Check(courant, cible models.MarcheStatut, detail *models.MarcheDetail) []string {
	predicats, ok := transitions[transition{depuis: courant, vers: cible}]
	if !ok {
		return []string{fmt.Sprintf("transition non autorisée : %s → %s", courant, cible)}
	}

	var violations []string
	for _, p := range predicats {
		if motif := p(detail); motif != "" {
			violations = append(violations, motif)
		}
	}
	return violations
}

// Autorise indique si une arête existe dans le circuit, préconditions mises à part.
func Autorise(courant, cible models.MarcheStatut) bool {
	_, ok := transitions[transition{depuis: courant, vers: cible}]
	return ok
}

func demandeLiee(d *models.MarcheDetail) string {
	if d.DemandeID == "" {
		return "le marché doit être lié à une demande de dépense validée"
	}
	return ""
}

func procedureDefinie(d *models.MarcheDetail) string {
	if d.Procedure == "" {
		return "la procédure de passation doit être définie"
	}
	return ""
}

func datesPublicationDefinies(d *models.MarcheDetail) string {
	if d.DatePublication == nil || d.DateCloture == nil {
		return "les dates de publication et de clôture doivent être renseignées"
	}
	return ""
}

func clotureApresPublication(d *models.MarcheDetail) string {
	if d.DatePublication == nil || d.DateCloture == nil {
		return ""
	}
	if !d.DateCloture.After(*d.DatePublication) {
		return "la date de clôture doit être strictement postérieure à la date de publication"
	}
	return ""
}

func lotsSiAllotissement(d *models.MarcheDetail) string {
	if d.Allotissement && len(d.Lots) == 0 {
		return "un marché alloti doit comporter au moins un lot"
	}
	return ""
}

func auMoinsUneOffre(d *models.MarcheDetail) string {
	if len(d.Soumissionnaires) == 0 {
		return "au moins une offre doit avoir été déposée"
	}
	return ""
}

func offresToutesEvaluees(d *models.MarcheDetail) string {
	for _, s := range d.Soumissionnaires {
		if s.Statut == models.OffreElimine {
			continue
		}
		// Une offre non qualifiée techniquement n'aura jamais de note finale ;
		// elle compte comme évaluée dès que sa note technique est posée.
		if s.NoteFinale == nil && !(s.NoteTechnique != nil && !s.Qualifie) {
			return fmt.Sprintf("l'offre de %s n'a pas encore été évaluée", s.RaisonSociale)
		}
	}
	return ""
}

func auMoinsUnQualifie(d *models.MarcheDetail) string {
	for _, s := range d.Soumissionnaires {
		if s.Qualifie && s.Statut != models.OffreElimine {
			return ""
		}
	}
	return "aucun soumissionnaire n'est techniquement qualifié"
}

func contratPresent(d *models.MarcheDetail) string {
	if d.ContratRef == nil || *d.ContratRef == "" {
		return "le contrat signé doit être joint au marché"
	}
	return ""
}
