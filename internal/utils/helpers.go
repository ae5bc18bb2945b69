package utils

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/ndiayeb/passation-service/internal/models"
)

// SendErrorResponse envoie une erreur au format JSON.
func SendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := models.ErrorResponse{
		StatusCode: statusCode,
		Message:    message,
	}
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Println(err)
	}
}

// SendJSON envoie une réponse au format JSON.
func SendJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Println(err)
	}
}

// ParsePagination convertit page et page_size en limit et offset.
func ParsePagination(pageStr, pageSizeStr string) (int, int, error) {
	page := 1
	pageSize := 20
	var err error

	if pageStr != "" {
		page, err = strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return 0, 0, fmt.Errorf("invalid page parameter, must be a positive integer")
		}
	}

	if pageSizeStr != "" {
		pageSize, err = strconv.Atoi(pageSizeStr)
		if err != nil || pageSize < 1 || pageSize > 100 {
			return 0, 0, fmt.Errorf("invalid page_size parameter, must be a positive integer [1:100]")
		}
	}

	return pageSize, (page - 1) * pageSize, nil
}

// HandleServiceError traduit une erreur de service en réponse HTTP : liste
// complète des préconditions non remplies, erreur typée avec son code, ou
// erreur générique.
func HandleServiceError(w http.ResponseWriter, err error, fallback string) {
	if precond, ok := err.(*models.PreconditionsNonRemplies); ok {
		SendJSON(w, http.StatusUnprocessableEntity, models.VerificationResult{
			Ok:     false,
			Errors: precond.Violations,
		})
		return
	}
	if errorResponse, ok := err.(*models.ErrorResponse); ok {
		SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
		return
	}
	SendErrorResponse(w, http.StatusInternalServerError, fallback)
}
