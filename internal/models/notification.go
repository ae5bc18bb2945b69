package models

import "time"

// Roles utilisés pour le fan-out des notifications.
const (
	RoleControleBudgetaire  = "controle_budgetaire"
	RoleAutoriteApprobation = "autorite_approbation"
)

// Notification représente une notification applicative durable.
type Notification struct {
	ID            string    `json:"id"`
	UtilisateurID string    `json:"utilisateurId"`
	MarcheID      string    `json:"marcheId"`
	Titre         string    `json:"titre"`
	Message       string    `json:"message"`
	Lu            bool      `json:"lu"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Utilisateur représente un agent destinataire de notifications.
type Utilisateur struct {
	ID          string `json:"id"`
	Nom         string `json:"nom"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	DirectionID string `json:"directionId"`
}
