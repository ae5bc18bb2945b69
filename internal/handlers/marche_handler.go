package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ndiayeb/passation-service/internal/models"
	"github.com/ndiayeb/passation-service/internal/services"
	"github.com/ndiayeb/passation-service/internal/utils"

	"github.com/sirupsen/logrus"
)

// MarcheHandler - structure de traitement des requêtes HTTP sur les marchés.
type MarcheHandler struct {
	Service *services.MarcheService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewMarcheHandler crée une nouvelle instance de MarcheHandler.
func NewMarcheHandler(service *services.MarcheService, logger *logrus.Logger, timeout time.Duration) *MarcheHandler {
	return &MarcheHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// transitionRequest porte les effets de bord optionnels d'une transition.
type transitionRequest struct {
	DateCloture *time.Time             `json:"dateCloture"`
	ContratRef  *string                `json:"contratRef"`
	Decision    *models.MarcheDecision `json:"decision"`
	Motif       string                 `json:"motif"`
	DateReprise *time.Time             `json:"dateReprise"`
}

// listResponse enveloppe une page de marchés avec le total du filtre.
type listResponse struct {
	Marches []models.MarcheDetail `json:"marches"`
	Total   int                   `json:"total"`
}

// GetMarches traite les requêtes de liste paginée des marchés d'un exercice.
func (h *MarcheHandler) GetMarches(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	exercice := r.URL.Query().Get("exercice")
	statuts := r.URL.Query()["statut"]

	limit, offset, err := utils.ParsePagination(r.URL.Query().Get("page"), r.URL.Query().Get("page_size"))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	marches, total, err := h.Service.FetchMarches(ctx, exercice, limit, offset, statuts)
	if err != nil {
		h.Logger.WithError(err).Error("échec de la liste des marchés")
		utils.HandleServiceError(w, err, "échec de la liste des marchés")
		return
	}
	if marches == nil {
		marches = []models.MarcheDetail{}
	}
	utils.SendJSON(w, http.StatusOK, listResponse{Marches: marches, Total: total})
}

// GetCounts traite les requêtes de décompte des marchés par statut.
func (h *MarcheHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	counts, err := h.Service.CountByStatut(ctx, r.URL.Query().Get("exercice"))
	if err != nil {
		h.Logger.WithError(err).Error("échec du décompte des marchés")
		utils.HandleServiceError(w, err, "échec du décompte des marchés")
		return
	}
	utils.SendJSON(w, http.StatusOK, counts)
}

// GetDemandesEligibles traite les requêtes de liste des demandes validées
// non encore consommées par un marché.
func (h *MarcheHandler) GetDemandesEligibles(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	demandes, err := h.Service.FetchDemandesEligibles(ctx, r.URL.Query().Get("exercice"))
	if err != nil {
		h.Logger.WithError(err).Error("échec de la liste des demandes éligibles")
		utils.HandleServiceError(w, err, "échec de la liste des demandes éligibles")
		return
	}
	if demandes == nil {
		demandes = []models.DemandeDepense{}
	}
	utils.SendJSON(w, http.StatusOK, demandes)
}

// GetMarche traite les requêtes de consultation d'un marché.
func (h *MarcheHandler) GetMarche(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	detail, err := h.Service.GetMarche(ctx, r.PathValue("marcheId"))
	if err != nil {
		utils.HandleServiceError(w, err, "échec de la consultation du marché")
		return
	}
	utils.SendJSON(w, http.StatusOK, detail)
}

// CreateMarche traite les requêtes de création d'un marché.
func (h *MarcheHandler) CreateMarche(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.MarcheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}

	marche, err := h.Service.CreateMarche(ctx, req)
	if err != nil {
		h.Logger.WithError(err).Error("échec de la création du marché")
		utils.HandleServiceError(w, err, "échec de la création du marché")
		return
	}
	utils.SendJSON(w, http.StatusCreated, marche)
}

// EditMarche traite les requêtes de modification d'un marché en brouillon.
func (h *MarcheHandler) EditMarche(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var updateFields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updateFields); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}

	marche, err := h.Service.EditMarche(ctx, r.PathValue("marcheId"), updateFields)
	if err != nil {
		h.Logger.WithError(err).Error("échec de la modification du marché")
		utils.HandleServiceError(w, err, "échec de la modification du marché")
		return
	}
	utils.SendJSON(w, http.StatusOK, marche)
}

// VerifierTransition traite les requêtes de contrôle des préconditions d'une
// transition, sans l'appliquer.
func (h *MarcheHandler) VerifierTransition(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	cible := models.MarcheStatut(r.URL.Query().Get("cible"))
	result, err := h.Service.VerifierTransition(ctx, r.PathValue("marcheId"), cible)
	if err != nil {
		utils.HandleServiceError(w, err, "échec du contrôle des préconditions")
		return
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}
	utils.SendJSON(w, http.StatusOK, result)
}

// Publier traite les requêtes de publication d'un marché.
func (h *MarcheHandler) Publier(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.Publie, false)
}

// Cloturer traite les requêtes de clôture du dépôt des offres.
func (h *MarcheHandler) Cloturer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.Cloture, false)
}

// Evaluer traite les requêtes de démarrage de l'évaluation.
func (h *MarcheHandler) Evaluer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.EnEvaluation, false)
}

// Attribuer traite les requêtes de proposition d'attribution.
func (h *MarcheHandler) Attribuer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.Attribue, false)
}

// Approuver traite les requêtes d'approbation de l'attribution.
func (h *MarcheHandler) Approuver(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.Approuve, false)
}

// Rejeter traite les requêtes de rejet de l'attribution : le marché repart en
// évaluation, le motif est conservé. Refusé si le marché n'est pas attribué.
func (h *MarcheHandler) Rejeter(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.EnEvaluation, true)
}

// Signer traite les requêtes de signature du contrat.
func (h *MarcheHandler) Signer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.Signe, false)
}

// transition applique une transition du circuit ; l'acteur vient de la query,
// les effets de bord optionnels du corps JSON.
func (h *MarcheHandler) transition(w http.ResponseWriter, r *http.Request, cible models.MarcheStatut, rejet bool) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		utils.SendErrorResponse(w, http.StatusBadRequest, "corps de requête invalide")
		return
	}

	marche, err := h.Service.Transition(ctx, r.PathValue("marcheId"), cible, r.URL.Query().Get("acteur"), services.TransitionOptions{
		DateCloture: req.DateCloture,
		ContratRef:  req.ContratRef,
		Decision:    req.Decision,
		Motif:       req.Motif,
		DateReprise: req.DateReprise,
		Rejet:       rejet,
	})
	if err != nil {
		h.Logger.WithError(err).WithField("cible", cible).Warn("transition refusée")
		utils.HandleServiceError(w, err, "échec de la transition")
		return
	}
	utils.SendJSON(w, http.StatusOK, marche)
}

// DeleteMarche traite les requêtes de suppression administrative d'un marché.
func (h *MarcheHandler) DeleteMarche(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Service.DeleteMarche(ctx, r.PathValue("marcheId")); err != nil {
		utils.HandleServiceError(w, err, "échec de la suppression du marché")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
