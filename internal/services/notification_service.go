package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ndiayeb/passation-service/internal/models"
	"github.com/ndiayeb/passation-service/internal/notifier"
	"github.com/ndiayeb/passation-service/internal/repository"

	"github.com/sirupsen/logrus"
)

// NotificationService diffuse les notifications déclenchées par les
// transitions du circuit. Toute la diffusion est au mieux : un échec est
// journalisé et jamais remonté au déclencheur, le changement de statut déjà
// committé ne doit jamais être annulé ni signalé en échec.
type NotificationService struct {
	Annuaire repository.AnnuaireRepository
	Email    notifier.EmailSender
	Logger   *logrus.Logger
	Timeout  time.Duration
}

// NewNotificationService crée une nouvelle instance de NotificationService.
func NewNotificationService(annuaire repository.AnnuaireRepository, email notifier.EmailSender, logger *logrus.Logger, timeout time.Duration) *NotificationService {
	return &NotificationService{
		Annuaire: annuaire,
		Email:    email,
		Logger:   logger,
		Timeout:  timeout,
	}
}

// NotifierTransition détermine l'audience de la transition franchie et envoie
// à chaque destinataire une notification durable plus un courriel au mieux.
func (s *NotificationService) NotifierTransition(detail *models.MarcheDetail, depuis, cible models.MarcheStatut, directionID, motif string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	var destinataires []models.Utilisateur
	var titre, message string

	switch {
	case cible == models.Publie:
		titre = "Marché publié"
		message = fmt.Sprintf("Le marché %s a été publié, le dépôt des offres est ouvert.", detail.Reference)
		destinataires = s.direction(ctx, directionID)

	case cible == models.Cloture:
		titre = "Dépôt des offres clos"
		message = fmt.Sprintf("Le dépôt des offres du marché %s est clos.", detail.Reference)
		destinataires = s.role(ctx, models.RoleControleBudgetaire)

	case cible == models.Attribue:
		titre = "Proposition d'attribution"
		message = fmt.Sprintf("Une attribution est proposée pour le marché %s et attend votre approbation.", detail.Reference)
		destinataires = s.role(ctx, models.RoleAutoriteApprobation)

	case cible == models.Approuve:
		titre = "Attribution approuvée"
		message = fmt.Sprintf("L'attribution du marché %s a été approuvée.", detail.Reference)
		destinataires = append(s.role(ctx, models.RoleControleBudgetaire), s.direction(ctx, directionID)...)
		s.prevenirRetenu(detail)

	case depuis == models.Attribue && cible == models.EnEvaluation:
		titre = "Attribution rejetée"
		message = fmt.Sprintf("L'attribution du marché %s a été rejetée : %s", detail.Reference, motif)
		destinataires = s.role(ctx, models.RoleControleBudgetaire)

	default:
		// Pas d'audience définie pour cette transition.
		return
	}

	for _, u := range destinataires {
		if err := s.Annuaire.InsertNotification(ctx, u.ID, detail.ID, titre, message); err != nil {
			s.Logger.WithError(err).WithFields(logrus.Fields{
				"marche":      detail.ID,
				"utilisateur": u.ID,
			}).Warn("échec d'enregistrement de la notification")
		}
		if u.Email != "" {
			go s.envoyerEmail(u.Email, titre, message)
		}
	}
}

// prevenirRetenu envoie, hors du circuit, un courriel au soumissionnaire
// retenu si une adresse est connue.
func (s *NotificationService) prevenirRetenu(detail *models.MarcheDetail) {
	for _, offre := range detail.Soumissionnaires {
		if offre.Statut != models.OffreRetenu || offre.Email == nil || *offre.Email == "" {
			continue
		}
		corps := fmt.Sprintf("Votre offre pour le marché %s a été retenue et approuvée. Vous serez contacté pour la suite de la procédure.", detail.Reference)
		go s.envoyerEmail(*offre.Email, "Offre retenue", corps)
	}
}

func (s *NotificationService) envoyerEmail(destinataire, sujet, corps string) {
	if s.Email == nil {
		return
	}
	if err := s.Email.Send(destinataire, sujet, corps); err != nil {
		s.Logger.WithError(err).WithField("destinataire", destinataire).Warn("échec d'envoi du courriel")
	}
}

func (s *NotificationService) role(ctx context.Context, role string) []models.Utilisateur {
	utilisateurs, err := s.Annuaire.ListUtilisateursParRole(ctx, role)
	if err != nil {
		s.Logger.WithError(err).WithField("role", role).Warn("échec de recherche des titulaires du rôle")
		return nil
	}
	return utilisateurs
}

func (s *NotificationService) direction(ctx context.Context, directionID string) []models.Utilisateur {
	if directionID == "" {
		return nil
	}
	utilisateurs, err := s.Annuaire.ListUtilisateursParDirection(ctx, directionID)
	if err != nil {
		s.Logger.WithError(err).WithField("direction", directionID).Warn("échec de recherche des membres de la direction")
		return nil
	}
	return utilisateurs
}
