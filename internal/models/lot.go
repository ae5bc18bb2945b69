package models

type LotStatut string // Statut d'un lot

const (
	LotEnCours     LotStatut = "en_cours"
	LotAttribue    LotStatut = "attribue"
	LotAnnule      LotStatut = "annule"
	LotInfructueux LotStatut = "infructueux"
)

// Lot représente une subdivision d'un marché alloti.
type Lot struct {
	ID            string    `json:"id"`
	MarcheID      string    `json:"marcheId"`
	Numero        int       `json:"numero"`
	Libelle       string    `json:"libelle"`
	Description   string    `json:"description"`
	MontantEstime int64     `json:"montantEstime"`
	Statut        LotStatut `json:"statut"`
	RetenuID      *string   `json:"retenuId"`
	MontantRetenu *int64    `json:"montantRetenu"`
}

// LotRequest représente la structure de requête pour créer ou remplacer un lot.
type LotRequest struct {
	ID            string `json:"id"`
	Numero        int    `json:"numero"`
	Libelle       string `json:"libelle"`
	Description   string `json:"description"`
	MontantEstime int64  `json:"montantEstime"`
}
