package services

import (
	"context"
	"net/http"

	"github.com/ndiayeb/passation-service/internal/evaluation"
	"github.com/ndiayeb/passation-service/internal/models"
	"github.com/ndiayeb/passation-service/internal/repository"

	"github.com/sirupsen/logrus"
)

// SoumissionnaireService gère les offres d'un marché : saisie, notation,
// élimination et classement automatique.
type SoumissionnaireService struct {
	Repo    repository.SoumissionnaireRepository
	Marches repository.MarcheRepository
	Logger  *logrus.Logger
}

// NewSoumissionnaireService crée une nouvelle instance de SoumissionnaireService.
func NewSoumissionnaireService(repo repository.SoumissionnaireRepository, marches repository.MarcheRepository, logger *logrus.Logger) *SoumissionnaireService {
	return &SoumissionnaireService{
		Repo:    repo,
		Marches: marches,
		Logger:  logger,
	}
}

// statutsAvantEvaluation sont les statuts où la liste des offres peut encore bouger.
var statutsAvantEvaluation = map[models.MarcheStatut]bool{
	models.Brouillon: true,
	models.Publie:    true,
	models.Cloture:   true,
}

// CreateSoumissionnaire ajoute une offre à un marché avant l'évaluation.
func (s *SoumissionnaireService) CreateSoumissionnaire(ctx context.Context, marcheID string, req models.SoumissionnaireRequest) (*models.Soumissionnaire, error) {
	detail, err := s.Marches.GetMarcheDetail(ctx, marcheID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusNotFound, "marché introuvable")
	}
	if !statutsAvantEvaluation[detail.Statut] {
		return nil, models.NewErrorResponse(http.StatusConflict, "la liste des offres ne peut plus être modifiée à ce stade")
	}
	if req.RaisonSociale == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "la raison sociale du soumissionnaire est obligatoire")
	}
	if req.LotID != nil && !lotDuMarche(detail, *req.LotID) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "le lot indiqué n'appartient pas à ce marché")
	}
	if !detail.Allotissement && req.LotID != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "un marché non alloti ne porte pas d'offres par lot")
	}
	return s.Repo.CreateSoumissionnaire(ctx, marcheID, req)
}

// EditSoumissionnaire modifie une offre. Les coordonnées sont modifiables tant
// que l'évaluation n'a pas démarré ; les notes ne le sont qu'en cours
// d'évaluation, la conformité et l'élimination jusqu'à l'attribution. Les
// champs dérivés (qualification, note finale) sont recalculés à chaque saisie.
func (s *SoumissionnaireService) EditSoumissionnaire(ctx context.Context, soumissionnaireID string, updateFields map[string]interface{}) (*models.Soumissionnaire, error) {
	offre, err := s.Repo.GetSoumissionnaire(ctx, soumissionnaireID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusNotFound, "offre introuvable")
	}
	detail, err := s.Marches.GetMarcheDetail(ctx, offre.MarcheID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "erreur interne")
	}

	updates := make(map[string]interface{})

	if raison, ok := updateFields["raisonSociale"].(string); ok && raison != "" {
		updates["raison_sociale"] = raison
	}
	if email, ok := updateFields["email"].(string); ok {
		updates["email"] = email
	}
	if telephone, ok := updateFields["telephone"].(string); ok {
		updates["telephone"] = telephone
	}
	if ref, ok := updateFields["offreTechniqueRef"].(string); ok {
		updates["offre_technique_ref"] = ref
	}
	if montant, ok := updateFields["montantOffre"].(float64); ok {
		updates["montant_offre"] = int64(montant)
	}
	if len(updates) > 0 && !statutsAvantEvaluation[detail.Statut] {
		return nil, models.NewErrorResponse(http.StatusConflict, "les coordonnées d'une offre ne sont plus modifiables à ce stade")
	}

	notation := false
	if note, ok := updateFields["noteTechnique"].(float64); ok {
		if note < 0 || note > 100 {
			return nil, models.NewErrorResponse(http.StatusBadRequest, "la note technique doit être comprise entre 0 et 100")
		}
		offre.NoteTechnique = &note
		updates["note_technique"] = note
		notation = true
	}
	if note, ok := updateFields["noteFinanciere"].(float64); ok {
		if note < 0 || note > 100 {
			return nil, models.NewErrorResponse(http.StatusBadRequest, "la note financière doit être comprise entre 0 et 100")
		}
		offre.NoteFinanciere = &note
		updates["note_financiere"] = note
		notation = true
	}
	statutPose := false
	if statut, ok := updateFields["statut"].(string); ok && statut != "" {
		if models.SoumissionnaireStatut(statut) != models.OffreElimine &&
			models.SoumissionnaireStatut(statut) != models.OffreConforme {
			return nil, models.NewErrorResponse(http.StatusBadRequest, "seuls les statuts conforme et elimine peuvent être posés directement")
		}
		// La conformité et l'élimination se constatent à tout moment avant l'attribution.
		if !statutsAvantEvaluation[detail.Statut] && detail.Statut != models.EnEvaluation {
			return nil, models.NewErrorResponse(http.StatusConflict, "une offre ne peut plus être déclarée conforme ou éliminée après l'attribution")
		}
		offre.Statut = models.SoumissionnaireStatut(statut)
		updates["statut"] = statut
		if motif, ok := updateFields["motifElimination"].(string); ok {
			updates["motif_elimination"] = motif
		}
		statutPose = true
	}

	if notation && detail.Statut != models.EnEvaluation {
		return nil, models.NewErrorResponse(http.StatusConflict, "la notation n'est possible qu'en cours d'évaluation")
	}
	if notation || statutPose {
		evaluation.Noter(offre)
		updates["qualifie"] = offre.Qualifie
		updates["note_finale"] = offre.NoteFinale
	}

	if len(updates) == 0 {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "aucun champ valide à modifier")
	}
	return s.Repo.EditSoumissionnaire(ctx, soumissionnaireID, updates)
}

// DeleteSoumissionnaire retire une offre avant l'évaluation.
func (s *SoumissionnaireService) DeleteSoumissionnaire(ctx context.Context, soumissionnaireID string) error {
	offre, err := s.Repo.GetSoumissionnaire(ctx, soumissionnaireID)
	if err != nil {
		return models.NewErrorResponse(http.StatusNotFound, "offre introuvable")
	}
	detail, err := s.Marches.GetMarcheDetail(ctx, offre.MarcheID)
	if err != nil {
		return models.NewErrorResponse(http.StatusInternalServerError, "erreur interne")
	}
	if !statutsAvantEvaluation[detail.Statut] {
		return models.NewErrorResponse(http.StatusConflict, "la liste des offres ne peut plus être modifiée à ce stade")
	}
	return s.Repo.DeleteSoumissionnaire(ctx, soumissionnaireID)
}

// EditLot modifie un lot : le contenu n'est modifiable qu'en brouillon, le
// statut annule ou infructueux peut être posé en évaluation ou après
// attribution (lot sans offre qualifiée).
func (s *SoumissionnaireService) EditLot(ctx context.Context, marcheID, lotID string, updateFields map[string]interface{}) (*models.Lot, error) {
	detail, err := s.Marches.GetMarcheDetail(ctx, marcheID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusNotFound, "marché introuvable")
	}
	if !lotDuMarche(detail, lotID) {
		return nil, models.NewErrorResponse(http.StatusNotFound, "lot introuvable sur ce marché")
	}

	updates := make(map[string]interface{})
	if libelle, ok := updateFields["libelle"].(string); ok && libelle != "" {
		updates["libelle"] = libelle
	}
	if description, ok := updateFields["description"].(string); ok {
		updates["description"] = description
	}
	if montant, ok := updateFields["montantEstime"].(float64); ok && montant > 0 {
		updates["montant_estime"] = int64(montant)
	}
	if len(updates) > 0 && detail.Statut != models.Brouillon {
		return nil, models.NewErrorResponse(http.StatusConflict, "le contenu d'un lot n'est modifiable qu'en brouillon")
	}

	if statut, ok := updateFields["statut"].(string); ok && statut != "" {
		if models.LotStatut(statut) != models.LotAnnule && models.LotStatut(statut) != models.LotInfructueux {
			return nil, models.NewErrorResponse(http.StatusBadRequest, "seuls les statuts annule et infructueux peuvent être posés directement")
		}
		if detail.Statut != models.EnEvaluation && detail.Statut != models.Attribue {
			return nil, models.NewErrorResponse(http.StatusConflict, "le statut d'un lot ne se change qu'en évaluation ou après attribution")
		}
		updates["statut"] = statut
	}

	if len(updates) == 0 {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "aucun champ valide à modifier")
	}
	return s.Repo.EditLot(ctx, lotID, updates)
}

// ReplaceLots remplace la liste des lots d'un marché en brouillon.
func (s *SoumissionnaireService) ReplaceLots(ctx context.Context, marcheID string, lots []models.LotRequest) ([]models.Lot, error) {
	detail, err := s.Marches.GetMarcheDetail(ctx, marcheID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusNotFound, "marché introuvable")
	}
	if detail.Statut != models.Brouillon {
		return nil, models.NewErrorResponse(http.StatusConflict, "les lots ne sont modifiables qu'en brouillon")
	}
	if !detail.Allotissement {
		return nil, models.NewErrorResponse(http.StatusConflict, "ce marché n'est pas alloti")
	}
	if err := verifierNumerosLots(lots); err != nil {
		return nil, err
	}
	return s.Repo.ReplaceLots(ctx, marcheID, lots)
}

// ReplaceSoumissionnaires remplace la liste des offres d'un marché avant l'évaluation.
func (s *SoumissionnaireService) ReplaceSoumissionnaires(ctx context.Context, marcheID string, offres []models.SoumissionnaireRequest) ([]models.Soumissionnaire, error) {
	detail, err := s.Marches.GetMarcheDetail(ctx, marcheID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusNotFound, "marché introuvable")
	}
	if !statutsAvantEvaluation[detail.Statut] {
		return nil, models.NewErrorResponse(http.StatusConflict, "la liste des offres ne peut plus être modifiée à ce stade")
	}
	for _, offre := range offres {
		if offre.RaisonSociale == "" {
			return nil, models.NewErrorResponse(http.StatusBadRequest, "la raison sociale de chaque soumissionnaire est obligatoire")
		}
		if offre.LotID != nil && !lotDuMarche(detail, *offre.LotID) {
			return nil, models.NewErrorResponse(http.StatusBadRequest, "le lot indiqué n'appartient pas à ce marché")
		}
	}
	return s.Repo.ReplaceSoumissionnaires(ctx, marcheID, offres)
}

// RecalculerClassement recalcule la qualification, les notes finales et les
// rangs d'un périmètre (un lot, ou le marché entier) puis les persiste.
// L'opération est idempotente.
func (s *SoumissionnaireService) RecalculerClassement(ctx context.Context, marcheID string, lotID *string) ([]models.Soumissionnaire, error) {
	detail, err := s.Marches.GetMarcheDetail(ctx, marcheID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusNotFound, "marché introuvable")
	}
	if detail.Statut != models.EnEvaluation {
		return nil, models.NewErrorResponse(http.StatusConflict, "le classement ne se recalcule qu'en cours d'évaluation")
	}
	if lotID != nil && !lotDuMarche(detail, *lotID) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "le lot indiqué n'appartient pas à ce marché")
	}

	offres, err := s.Repo.ListByScope(ctx, marcheID, lotID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "erreur interne")
	}
	for i := range offres {
		evaluation.Noter(&offres[i])
	}
	classees := evaluation.Classer(offres)

	if err := s.Repo.SaveClassement(ctx, classees); err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "échec d'enregistrement du classement : "+err.Error())
	}
	return classees, nil
}

func lotDuMarche(detail *models.MarcheDetail, lotID string) bool {
	for _, lot := range detail.Lots {
		if lot.ID == lotID {
			return true
		}
	}
	return false
}

// verifierNumerosLots impose des numéros de lot denses à partir de 1, sans trou.
func verifierNumerosLots(lots []models.LotRequest) error {
	vus := make(map[int]bool, len(lots))
	for _, lot := range lots {
		if lot.Numero < 1 || lot.Numero > len(lots) || vus[lot.Numero] {
			return models.NewErrorResponse(http.StatusBadRequest, "les numéros de lot doivent être consécutifs à partir de 1")
		}
		vus[lot.Numero] = true
	}
	return nil
}
