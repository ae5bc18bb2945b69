package models

import "time"

type SoumissionnaireStatut string // Statut d'une offre

const (
	OffreRecue    SoumissionnaireStatut = "recu"
	OffreConforme SoumissionnaireStatut = "conforme"
	OffreQualifie SoumissionnaireStatut = "qualifie"
	OffreRetenu   SoumissionnaireStatut = "retenu"
	OffreElimine  SoumissionnaireStatut = "elimine"
)

// Soumissionnaire représente une offre déposée pour un marché ou un lot.
type Soumissionnaire struct {
	ID                string                `json:"id"`
	MarcheID          string                `json:"marcheId"`
	LotID             *string               `json:"lotId"`
	SaisieManuelle    bool                  `json:"saisieManuelle"`
	PrestataireID     *string               `json:"prestataireId"`
	RaisonSociale     string                `json:"raisonSociale"`
	Email             *string               `json:"email"`
	Telephone         *string               `json:"telephone"`
	OffreTechniqueRef *string               `json:"offreTechniqueRef"`
	MontantOffre      *int64                `json:"montantOffre"`
	DateSoumission    time.Time             `json:"dateSoumission"`
	NoteTechnique     *float64              `json:"noteTechnique"`
	NoteFinanciere    *float64              `json:"noteFinanciere"`
	Qualifie          bool                  `json:"qualifie"`
	NoteFinale        *float64              `json:"noteFinale"`
	Rang              *int                  `json:"rang"`
	Statut            SoumissionnaireStatut `json:"statut"`
	MotifElimination  *string               `json:"motifElimination"`
}

// SoumissionnaireRequest représente la structure de requête pour créer ou remplacer une offre.
type SoumissionnaireRequest struct {
	ID                string     `json:"id"`
	LotID             *string    `json:"lotId"`
	SaisieManuelle    bool       `json:"saisieManuelle"`
	PrestataireID     *string    `json:"prestataireId"`
	RaisonSociale     string     `json:"raisonSociale"`
	Email             *string    `json:"email"`
	Telephone         *string    `json:"telephone"`
	OffreTechniqueRef *string    `json:"offreTechniqueRef"`
	MontantOffre      *int64     `json:"montantOffre"`
	DateSoumission    *time.Time `json:"dateSoumission"`
}
