package models

import "strings"

// ErrorResponse décrit une erreur avec un code HTTP et un message.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Message    string `json:"reason"`
}

// NewErrorResponse crée une nouvelle erreur avec un code et un message.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Message:    message}
}

// Implémentation de la méthode Error() pour satisfaire l'interface error.
func (e *ErrorResponse) Error() string {
	return e.Message
}

// PreconditionsNonRemplies porte la liste complète des préconditions non
// satisfaites d'une transition. Toujours présentée en entier, jamais tronquée
// au premier motif.
type PreconditionsNonRemplies struct {
	Violations []string
}

func (e *PreconditionsNonRemplies) Error() string {
	return strings.Join(e.Violations, " ; ")
}
