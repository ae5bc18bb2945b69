package services

import (
	"context"
	"net/http"
	"time"

	"github.com/ndiayeb/passation-service/internal/models"
	"github.com/ndiayeb/passation-service/internal/repository"
	"github.com/ndiayeb/passation-service/internal/seuils"
	"github.com/ndiayeb/passation-service/internal/workflow"

	"github.com/sirupsen/logrus"
)

// MarcheService orchestre le circuit de passation : il compose le garde de
// transition, le stockage et le diffuseur de notifications.
type MarcheService struct {
	Repo   repository.MarcheRepository
	Offres repository.SoumissionnaireRepository
	Notifs *NotificationService
	Bareme seuils.Bareme
	Logger *logrus.Logger
}

// NewMarcheService crée une nouvelle instance de MarcheService.
func NewMarcheService(repo repository.MarcheRepository, offres repository.SoumissionnaireRepository, notifs *NotificationService, bareme seuils.Bareme, logger *logrus.Logger) *MarcheService {
	return &MarcheService{
		Repo:   repo,
		Offres: offres,
		Notifs: notifs,
		Bareme: bareme,
		Logger: logger,
	}
}

// TransitionOptions porte les effets de bord propres à certaines transitions.
type TransitionOptions struct {
	DateCloture *time.Time             // publication : peut fixer la date de clôture
	ContratRef  *string                // signature : référence du contrat signé
	Decision    *models.MarcheDecision // approbation : suite à donner
	Motif       string                 // rejet d'attribution : motif obligatoire
	DateReprise *time.Time             // rejet d'attribution : date de reprise de l'évaluation
	Rejet       bool                   // l'appel vient du point de rejet d'attribution
}

// FetchMarches retourne une page de marchés d'un exercice, filtrée par statut.
func (s *MarcheService) FetchMarches(ctx context.Context, exercice string, limit, offset int, statuts []string) ([]models.MarcheDetail, int, error) {
	if exercice == "" {
		return nil, 0, models.NewErrorResponse(http.StatusBadRequest, "le paramètre exercice est obligatoire")
	}
	for _, statut := range statuts {
		if !statutConnu(models.MarcheStatut(statut)) {
			return nil, 0, models.NewErrorResponse(http.StatusBadRequest, "statut inconnu : "+statut)
		}
	}
	return s.Repo.ListMarches(ctx, exercice, limit, offset, statuts)
}

// CountByStatut retourne le nombre de marchés par statut pour un exercice.
func (s *MarcheService) CountByStatut(ctx context.Context, exercice string) (models.CountsByStatut, error) {
	if exercice == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "le paramètre exercice est obligatoire")
	}
	return s.Repo.CountByStatut(ctx, exercice)
}

// FetchDemandesEligibles retourne les demandes validées non encore consommées.
func (s *MarcheService) FetchDemandesEligibles(ctx context.Context, exercice string) ([]models.DemandeDepense, error) {
	if exercice == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "le paramètre exercice est obligatoire")
	}
	return s.Repo.ListDemandesEligibles(ctx, exercice)
}

// GetMarche retourne un marché avec ses lots et ses soumissionnaires.
func (s *MarcheService) GetMarche(ctx context.Context, marcheID string) (*models.MarcheDetail, error) {
	detail, err := s.Repo.GetMarcheDetail(ctx, marcheID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusNotFound, "marché introuvable")
	}
	return detail, nil
}

// CreateMarche crée un marché en brouillon depuis une demande de dépense
// validée. Une demande ne peut générer qu'un seul marché.
func (s *MarcheService) CreateMarche(ctx context.Context, req models.MarcheRequest) (*models.MarcheDetail, error) {
	if req.Reference == "" || req.DemandeID == "" || req.Exercice == "" || req.Procedure == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "champs obligatoires manquants : reference, demandeId, exercice ou procedure")
	}
	if !procedureConnue(req.Procedure) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "procédure inconnue : "+string(req.Procedure))
	}

	demande, err := s.Repo.GetDemande(ctx, req.DemandeID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusNotFound, "demande de dépense introuvable")
	}
	if demande.Statut != "validee" {
		return nil, models.NewErrorResponse(http.StatusConflict, "seule une demande validée peut générer un marché")
	}
	consommee, err := s.Repo.DemandeConsommee(ctx, req.DemandeID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "erreur interne")
	}
	if consommee {
		return nil, models.NewErrorResponse(http.StatusConflict, "cette demande de dépense a déjà généré un marché")
	}

	if req.MontantEstime == 0 {
		req.MontantEstime = demande.MontantEstime
	}
	seuil := s.Bareme.Recommander(req.MontantEstime)
	if !s.Bareme.Coherent(req.Procedure, req.MontantEstime) {
		s.Logger.WithFields(logrus.Fields{
			"marche":    req.Reference,
			"procedure": req.Procedure,
			"seuil":     seuil,
		}).Warn("procédure choisie incohérente avec le seuil recommandé")
	}
	return s.Repo.CreateMarche(ctx, req, seuil)
}

// EditMarche modifie les champs d'un marché en brouillon.
func (s *MarcheService) EditMarche(ctx context.Context, marcheID string, updateFields map[string]interface{}) (*models.Marche, error) {
	detail, err := s.Repo.GetMarcheDetail(ctx, marcheID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusNotFound, "marché introuvable")
	}
	if detail.Statut != models.Brouillon {
		return nil, models.NewErrorResponse(http.StatusConflict, "seul un marché en brouillon peut être modifié")
	}

	updates := make(map[string]interface{})
	if reference, ok := updateFields["reference"].(string); ok && reference != "" {
		updates["reference"] = reference
	}
	if procedure, ok := updateFields["procedure"].(string); ok && procedure != "" {
		if !procedureConnue(models.Procedure(procedure)) {
			return nil, models.NewErrorResponse(http.StatusBadRequest, "procédure inconnue : "+procedure)
		}
		updates["procedure"] = procedure
	}
	if allotissement, ok := updateFields["allotissement"].(bool); ok {
		updates["allotissement"] = allotissement
	}
	if montant, ok := updateFields["montantEstime"].(float64); ok && montant > 0 {
		updates["montant_estime"] = int64(montant)
	}
	if datePublication, ok := parseDate(updateFields["datePublication"]); ok {
		updates["date_publication"] = datePublication
	}
	if dateCloture, ok := parseDate(updateFields["dateCloture"]); ok {
		updates["date_cloture"] = dateCloture
	}
	if pieces, ok := updateFields["piecesJointes"].([]interface{}); ok {
		refs := make([]string, 0, len(pieces))
		for _, p := range pieces {
			if ref, ok := p.(string); ok {
				refs = append(refs, ref)
			}
		}
		updates["pieces_jointes"] = refs
	}
	if len(updates) == 0 {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "aucun champ valide à modifier")
	}
	return s.Repo.EditMarche(ctx, marcheID, updates)
}

// VerifierTransition évalue les préconditions d'une transition sans l'appliquer.
func (s *MarcheService) VerifierTransition(ctx context.Context, marcheID string, cible models.MarcheStatut) (*models.VerificationResult, error) {
	if !statutConnu(cible) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "statut cible inconnu : "+string(cible))
	}
	detail, err := s.Repo.GetMarcheDetail(ctx, marcheID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusNotFound, "marché introuvable")
	}

	violations := workflow.Check(detail.Statut, cible, detail)
	return &models.VerificationResult{Ok: len(violations) == 0, Errors: violations}, nil
}

// Transition fait franchir une étape du circuit à un marché : re-contrôle des
// préconditions côté serveur, écriture conditionnelle du nouveau statut avec
// ses horodatages, puis diffusion des notifications : les enregistrements
// durables sont écrits avant de répondre, les courriels partent en tâche de fond.
func (s *MarcheService) Transition(ctx context.Context, marcheID string, cible models.MarcheStatut, acteur string, opts TransitionOptions) (*models.MarcheDetail, error) {
	if acteur == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "le paramètre acteur est obligatoire")
	}
	detail, err := s.Repo.GetMarcheDetail(ctx, marcheID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusNotFound, "marché introuvable")
	}
	depuis := detail.Statut
	if opts.Rejet && depuis != models.Attribue {
		return nil, models.NewErrorResponse(http.StatusConflict, "seule une attribution en cours peut être rejetée")
	}

	// Les pièces apportées par la requête font partie de l'instantané vérifié.
	if opts.ContratRef != nil {
		detail.ContratRef = opts.ContratRef
	}
	if opts.DateCloture != nil {
		detail.DateCloture = opts.DateCloture
	}

	if violations := workflow.Check(depuis, cible, detail); len(violations) > 0 {
		return nil, &models.PreconditionsNonRemplies{Violations: violations}
	}

	rejet := depuis == models.Attribue && cible == models.EnEvaluation
	if rejet && opts.Motif == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "le motif de rejet est obligatoire")
	}

	updates, err := s.transitionUpdates(detail, cible, acteur, rejet, opts)
	if err != nil {
		return nil, err
	}

	applied, err := s.Repo.ApplyTransition(ctx, marcheID, depuis, updates)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "échec de la transition : "+err.Error())
	}
	if !applied {
		return nil, models.NewErrorResponse(http.StatusConflict, "le statut du marché a changé entre-temps, veuillez réessayer")
	}

	if cible == models.Attribue && detail.Allotissement {
		s.attribuerLots(ctx, detail)
	}

	updated, err := s.Repo.GetMarcheDetail(ctx, marcheID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "erreur interne")
	}

	directionID := ""
	if demande, err := s.Repo.GetDemande(ctx, detail.DemandeID); err != nil {
		s.Logger.WithError(err).WithField("marche", marcheID).Warn("demande source introuvable pour la notification")
	} else {
		directionID = demande.DirectionID
	}
	s.Notifs.NotifierTransition(updated, depuis, cible, directionID, opts.Motif)

	return updated, nil
}

// transitionUpdates construit les colonnes à écrire pour la transition :
// statut cible, horodatage et acteur de l'étape, et effets de bord propres.
func (s *MarcheService) transitionUpdates(detail *models.MarcheDetail, cible models.MarcheStatut, acteur string, rejet bool, opts TransitionOptions) (map[string]interface{}, error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{"statut": cible}

	switch cible {
	case models.Publie:
		updates["publie_le"] = now
		updates["publie_par"] = acteur
		if opts.DateCloture != nil {
			updates["date_cloture"] = *opts.DateCloture
		}
	case models.Cloture:
		updates["cloture_le"] = now
		updates["cloture_par"] = acteur
	case models.EnEvaluation:
		if rejet {
			// Retour en évaluation : l'attribution est effacée, le motif conservé.
			updates["attribue_le"] = nil
			updates["attribue_par"] = nil
			updates["retenu_id"] = nil
			updates["montant_retenu"] = nil
			updates["motif_rejet"] = opts.Motif
			if opts.DateReprise != nil {
				updates["date_reprise"] = *opts.DateReprise
			}
		} else {
			updates["evaluation_le"] = now
			updates["evaluation_par"] = acteur
		}
	case models.Attribue:
		updates["attribue_le"] = now
		updates["attribue_par"] = acteur
		updates["motif_rejet"] = nil
		if !detail.Allotissement {
			retenu := offreRetenue(detail.Soumissionnaires, nil)
			if retenu == nil {
				return nil, models.NewErrorResponse(http.StatusConflict, "aucune offre retenue : recalculez le classement avant d'attribuer")
			}
			updates["retenu_id"] = retenu.ID
			updates["montant_retenu"] = retenu.MontantOffre
		}
	case models.Approuve:
		updates["approuve_le"] = now
		updates["approuve_par"] = acteur
		if opts.Decision != nil {
			updates["decision"] = *opts.Decision
		}
	case models.Signe:
		updates["signe_le"] = now
		updates["signe_par"] = acteur
		updates["contrat_ref"] = *detail.ContratRef
	}
	return updates, nil
}

// attribuerLots reporte sur chaque lot le soumissionnaire retenu de son périmètre.
func (s *MarcheService) attribuerLots(ctx context.Context, detail *models.MarcheDetail) {
	for _, lot := range detail.Lots {
		lotID := lot.ID
		retenu := offreRetenue(detail.Soumissionnaires, &lotID)
		if retenu == nil {
			continue
		}
		if err := s.Offres.AttribuerLot(ctx, lotID, retenu.ID, retenu.MontantOffre); err != nil {
			s.Logger.WithError(err).WithField("lot", lotID).Error("échec de l'attribution du lot")
		}
	}
}

// offreRetenue retourne l'offre au statut retenu d'un périmètre, s'il y en a une.
func offreRetenue(offres []models.Soumissionnaire, lotID *string) *models.Soumissionnaire {
	for i := range offres {
		s := &offres[i]
		if s.Statut != models.OffreRetenu {
			continue
		}
		if lotID == nil && s.LotID == nil {
			return s
		}
		if lotID != nil && s.LotID != nil && *s.LotID == *lotID {
			return s
		}
	}
	return nil
}

// DeleteMarche supprime un marché. Porte de sortie administrative, hors circuit.
func (s *MarcheService) DeleteMarche(ctx context.Context, marcheID string) error {
	if err := s.Repo.DeleteMarche(ctx, marcheID); err != nil {
		return models.NewErrorResponse(http.StatusNotFound, "marché introuvable")
	}
	return nil
}

func statutConnu(statut models.MarcheStatut) bool {
	for _, connu := range models.Statuts {
		if statut == connu {
			return true
		}
	}
	return false
}

func procedureConnue(procedure models.Procedure) bool {
	switch procedure {
	case models.EntenteDirecte, models.DemandeCotation, models.CompetitionLimitee,
		models.AppelOffresOuvert, models.PrestationIntellectuelle:
		return true
	}
	return false
}

// parseDate extrait une date RFC 3339 d'un champ de patch JSON.
func parseDate(valeur interface{}) (time.Time, bool) {
	brut, ok := valeur.(string)
	if !ok || brut == "" {
		return time.Time{}, false
	}
	date, err := time.Parse(time.RFC3339, brut)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
