package models

import "time"

type (
	MarcheStatut   string // Statut du marché dans le circuit de passation
	MarcheDecision string // Décision prise à l'approbation
	Procedure      string // Procédure de passation choisie
)

const (
	Brouillon    MarcheStatut = "brouillon"     // Marché en préparation
	Publie       MarcheStatut = "publie"        // Avis publié, dépôt des offres ouvert
	Cloture      MarcheStatut = "cloture"       // Dépôt des offres clos
	EnEvaluation MarcheStatut = "en_evaluation" // Commission d'évaluation en cours
	Attribue     MarcheStatut = "attribue"      // Attribution proposée
	Approuve     MarcheStatut = "approuve"      // Attribution approuvée
	Signe        MarcheStatut = "signe"         // Contrat signé

	ContratACreer      MarcheDecision = "contrat_a_creer"
	EngagementPossible MarcheDecision = "engagement_possible"

	EntenteDirecte           Procedure = "entente_directe"
	DemandeCotation          Procedure = "demande_cotation"
	CompetitionLimitee       Procedure = "competition_limitee"
	AppelOffresOuvert        Procedure = "appel_offres_ouvert"
	PrestationIntellectuelle Procedure = "prestation_intellectuelle"
)

// Statuts liste les statuts du circuit dans l'ordre de passage.
var Statuts = []MarcheStatut{Brouillon, Publie, Cloture, EnEvaluation, Attribue, Approuve, Signe}

// Marche représente un processus de passation lié à une demande de dépense validée.
type Marche struct {
	ID              string          `json:"id"`
	Reference       string          `json:"reference"`
	DemandeID       string          `json:"demandeId"`
	Exercice        string          `json:"exercice"`
	Procedure       Procedure       `json:"procedure"`
	SeuilRecommande Procedure       `json:"seuilRecommande"`
	Allotissement   bool            `json:"allotissement"`
	Statut          MarcheStatut    `json:"statut"`
	Decision        *MarcheDecision `json:"decision"`
	RetenuID        *string         `json:"retenuId"`
	MontantRetenu   *int64          `json:"montantRetenu"`
	DatePublication *time.Time      `json:"datePublication"`
	DateCloture     *time.Time      `json:"dateCloture"`
	PublieLe        *time.Time      `json:"publieLe"`
	PubliePar       *string         `json:"publiePar"`
	ClotureLe       *time.Time      `json:"clotureLe"`
	CloturePar      *string         `json:"cloturePar"`
	EvaluationLe    *time.Time      `json:"evaluationLe"`
	EvaluationPar   *string         `json:"evaluationPar"`
	AttribueLe      *time.Time      `json:"attribueLe"`
	AttribuePar     *string         `json:"attribuePar"`
	ApprouveLe      *time.Time      `json:"approuveLe"`
	ApprouvePar     *string         `json:"approuvePar"`
	SigneLe         *time.Time      `json:"signeLe"`
	SignePar        *string         `json:"signePar"`
	MotifRejet      *string         `json:"motifRejet"`
	DateReprise     *time.Time      `json:"dateReprise"`
	ContratRef      *string         `json:"contratRef"`
	PiecesJointes   []string        `json:"piecesJointes"`
	MontantEstime   int64           `json:"montantEstime"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// MarcheDetail regroupe un marché avec ses lots et ses soumissionnaires.
// C'est l'instantané que le garde de transition évalue.
type MarcheDetail struct {
	Marche
	Lots             []Lot             `json:"lots"`
	Soumissionnaires []Soumissionnaire `json:"soumissionnaires"`
}

// MarcheRequest représente la structure de requête pour créer un marché.
type MarcheRequest struct {
	Reference        string                   `json:"reference"`
	DemandeID        string                   `json:"demandeId"`
	Exercice         string                   `json:"exercice"`
	Procedure        Procedure                `json:"procedure"`
	Allotissement    bool                     `json:"allotissement"`
	MontantEstime    int64                    `json:"montantEstime"`
	DatePublication  *time.Time               `json:"datePublication"`
	DateCloture      *time.Time               `json:"dateCloture"`
	Lots             []LotRequest             `json:"lots"`
	Soumissionnaires []SoumissionnaireRequest `json:"soumissionnaires"`
}

// VerificationResult est la réponse du contrôle de préconditions.
type VerificationResult struct {
	Ok     bool     `json:"ok"`
	Errors []string `json:"errors"`
}

// CountsByStatut porte le nombre de marchés par statut pour un exercice.
type CountsByStatut map[MarcheStatut]int

// DemandeDepense représente une demande de dépense validée, source d'un marché.
type DemandeDepense struct {
	ID            string    `json:"id"`
	Reference     string    `json:"reference"`
	Objet         string    `json:"objet"`
	DirectionID   string    `json:"directionId"`
	Exercice      string    `json:"exercice"`
	MontantEstime int64     `json:"montantEstime"`
	Statut        string    `json:"statut"`
	CreatedAt     time.Time `json:"createdAt"`
}
