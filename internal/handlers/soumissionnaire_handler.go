package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ndiayeb/passation-service/internal/models"
	"github.com/ndiayeb/passation-service/internal/services"
	"github.com/ndiayeb/passation-service/internal/utils"

	"github.com/sirupsen/logrus"
)

// SoumissionnaireHandler - structure de traitement des requêtes HTTP sur les offres et les lots.
type SoumissionnaireHandler struct {
	Service *services.SoumissionnaireService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewSoumissionnaireHandler crée une nouvelle instance de SoumissionnaireHandler.
func NewSoumissionnaireHandler(service *services.SoumissionnaireService, logger *logrus.Logger, timeout time.Duration) *SoumissionnaireHandler {
	return &SoumissionnaireHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// createSoumissionnaireRequest porte une offre et le marché auquel l'ajouter.
type createSoumissionnaireRequest struct {
	MarcheID string `json:"marcheId"`
	models.SoumissionnaireRequest
}

// CreateSoumissionnaire traite les requêtes d'ajout d'une offre.
func (h *SoumissionnaireHandler) CreateSoumissionnaire(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req createSoumissionnaireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}
	if req.MarcheID == "" {
		utils.SendErrorResponse(w, http.StatusBadRequest, "le champ marcheId est obligatoire")
		return
	}

	offre, err := h.Service.CreateSoumissionnaire(ctx, req.MarcheID, req.SoumissionnaireRequest)
	if err != nil {
		h.Logger.WithError(err).Error("échec de l'ajout de l'offre")
		utils.HandleServiceError(w, err, "échec de l'ajout de l'offre")
		return
	}
	utils.SendJSON(w, http.StatusCreated, offre)
}

// EditSoumissionnaire traite les requêtes de modification d'une offre,
// notation comprise.
func (h *SoumissionnaireHandler) EditSoumissionnaire(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var updateFields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updateFields); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}

	offre, err := h.Service.EditSoumissionnaire(ctx, r.PathValue("soumissionnaireId"), updateFields)
	if err != nil {
		h.Logger.WithError(err).Error("échec de la modification de l'offre")
		utils.HandleServiceError(w, err, "échec de la modification de l'offre")
		return
	}
	utils.SendJSON(w, http.StatusOK, offre)
}

// DeleteSoumissionnaire traite les requêtes de retrait d'une offre.
func (h *SoumissionnaireHandler) DeleteSoumissionnaire(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Service.DeleteSoumissionnaire(ctx, r.PathValue("soumissionnaireId")); err != nil {
		utils.HandleServiceError(w, err, "échec du retrait de l'offre")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EditLot traite les requêtes de modification d'un lot, y compris le passage
// au statut annulé ou infructueux.
func (h *SoumissionnaireHandler) EditLot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var updateFields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updateFields); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}

	lot, err := h.Service.EditLot(ctx, r.PathValue("marcheId"), r.PathValue("lotId"), updateFields)
	if err != nil {
		h.Logger.WithError(err).Error("échec de la modification du lot")
		utils.HandleServiceError(w, err, "échec de la modification du lot")
		return
	}
	utils.SendJSON(w, http.StatusOK, lot)
}

// ReplaceLots traite les requêtes de remplacement de la liste des lots.
func (h *SoumissionnaireHandler) ReplaceLots(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var lots []models.LotRequest
	if err := json.NewDecoder(r.Body).Decode(&lots); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}

	remplaces, err := h.Service.ReplaceLots(ctx, r.PathValue("marcheId"), lots)
	if err != nil {
		h.Logger.WithError(err).Error("échec du remplacement des lots")
		utils.HandleServiceError(w, err, "échec du remplacement des lots")
		return
	}
	if remplaces == nil {
		remplaces = []models.Lot{}
	}
	utils.SendJSON(w, http.StatusOK, remplaces)
}

// ReplaceSoumissionnaires traite les requêtes de remplacement de la liste des offres.
func (h *SoumissionnaireHandler) ReplaceSoumissionnaires(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var offres []models.SoumissionnaireRequest
	if err := json.NewDecoder(r.Body).Decode(&offres); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}

	remplacees, err := h.Service.ReplaceSoumissionnaires(ctx, r.PathValue("marcheId"), offres)
	if err != nil {
		h.Logger.WithError(err).Error("échec du remplacement des offres")
		utils.HandleServiceError(w, err, "échec du remplacement des offres")
		return
	}
	if remplacees == nil {
		remplacees = []models.Soumissionnaire{}
	}
	utils.SendJSON(w, http.StatusOK, remplacees)
}

// RecalculerClassement traite les requêtes de recalcul du classement d'un
// périmètre : un lot si lotId est fourni, le marché entier sinon.
func (h *SoumissionnaireHandler) RecalculerClassement(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var lotID *string
	if v := r.URL.Query().Get("lotId"); v != "" {
		lotID = &v
	}

	classees, err := h.Service.RecalculerClassement(ctx, r.PathValue("marcheId"), lotID)
	if err != nil {
		h.Logger.WithError(err).Error("échec du recalcul du classement")
		utils.HandleServiceError(w, err, "échec du recalcul du classement")
		return
	}
	if classees == nil {
		classees = []models.Soumissionnaire{}
	}
	utils.SendJSON(w, http.StatusOK, classees)
}
