package seuils

import (
	"sort"

	"github.com/ndiayeb/passation-service/internal/models"
)

// Bande associe un montant plancher (inclus) à une procédure recommandée.
type Bande struct {
	Plancher  int64
	Procedure models.Procedure
}

// Bareme est la table ordonnée des seuils de passation, en FCFA.
type Bareme struct {
	bandes []Bande
}

// Montants par défaut du barème, surchargés par la configuration.
const (
	DefautSeuilCotation    int64 = 10_000_000
	DefautSeuilCompetition int64 = 30_000_000
	DefautSeuilAppelOffres int64 = 100_000_000
)

// NewBareme construit un barème à partir des trois seuils de bascule.
// Un montant strictement inférieur au premier seuil relève de l'entente directe ;
// chaque seuil appartient à la bande supérieure (borne basse incluse).
func NewBareme(seuilCotation, seuilCompetition, seuilAppelOffres int64) Bareme {
	bandes := []Bande{
		{Plancher: 0, Procedure: models.EntenteDirecte},
		{Plancher: seuilCotation, Procedure: models.DemandeCotation},
		{Plancher: seuilCompetition, Procedure: models.CompetitionLimitee},
		{Plancher: seuilAppelOffres, Procedure: models.AppelOffresOuvert},
	}
	sort.Slice(bandes, func(i, j int) bool { return bandes[i].Plancher < bandes[j].Plancher })
	return Bareme{bandes: bandes}
}

// NewBaremeDefaut construit le barème avec les seuils par défaut.
func NewBaremeDefaut() Bareme {
	return NewBareme(DefautSeuilCotation, DefautSeuilCompetition, DefautSeuilAppelOffres)
}

// Recommander retourne la procédure recommandée pour un montant estimé.
func (b Bareme) Recommander(montant int64) models.Procedure {
	recommandee := b.bandes[0].Procedure
	for _, bande := range b.bandes {
		if montant >= bande.Plancher {
			recommandee = bande.Procedure
		}
	}
	return recommandee
}

// Coherent indique si la procédure choisie correspond au seuil recommandé.
// Les procédures indépendantes du montant sont toujours cohérentes.
func (b Bareme) Coherent(procedure models.Procedure, montant int64) bool {
	switch procedure {
	case models.EntenteDirecte, models.PrestationIntellectuelle:
		return true
	}
	return procedure == b.Recommander(montant)
}
