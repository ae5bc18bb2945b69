package services

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/ndiayeb/passation-service/internal/models"

	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeMarcheRepo garde un seul marché en mémoire et rejoue le comportement
// conditionnel d'ApplyTransition.
type fakeMarcheRepo struct {
	detail      *models.MarcheDetail
	demande     *models.DemandeDepense
	consommee   bool
	refuseCAS   bool
	transitions []map[string]interface{}
	seuil       models.Procedure
}

func (f *fakeMarcheRepo) ListMarches(_ context.Context, _ string, _, _ int, _ []string) ([]models.MarcheDetail, int, error) {
	if f.detail == nil {
		return nil, 0, nil
	}
	return []models.MarcheDetail{*f.detail}, 1, nil
}

func (f *fakeMarcheRepo) CountByStatut(_ context.Context, _ string) (models.CountsByStatut, error) {
	counts := make(models.CountsByStatut)
	for _, statut := range models.Statuts {
		counts[statut] = 0
	}
	if f.detail != nil {
		counts[f.detail.Statut]++
	}
	return counts, nil
}

func (f *fakeMarcheRepo) ListDemandesEligibles(_ context.Context, _ string) ([]models.DemandeDepense, error) {
	if f.demande == nil || f.demande.Statut != "validee" || f.consommee {
		return nil, nil
	}
	return []models.DemandeDepense{*f.demande}, nil
}

func (f *fakeMarcheRepo) GetDemande(_ context.Context, demandeID string) (*models.DemandeDepense, error) {
	if f.demande == nil || f.demande.ID != demandeID {
		return nil, errors.New("demande absente")
	}
	return f.demande, nil
}

func (f *fakeMarcheRepo) DemandeConsommee(_ context.Context, _ string) (bool, error) {
	return f.consommee, nil
}

func (f *fakeMarcheRepo) GetMarcheDetail(_ context.Context, marcheID string) (*models.MarcheDetail, error) {
	if f.detail == nil || f.detail.ID != marcheID {
		return nil, errors.New("marché absent")
	}
	copie := *f.detail
	return &copie, nil
}

func (f *fakeMarcheRepo) CreateMarche(_ context.Context, req models.MarcheRequest, seuil models.Procedure) (*models.MarcheDetail, error) {
	f.seuil = seuil
	f.detail = &models.MarcheDetail{
		Marche: models.Marche{
			ID:              "m-new",
			Reference:       req.Reference,
			DemandeID:       req.DemandeID,
			Exercice:        req.Exercice,
			Procedure:       req.Procedure,
			SeuilRecommande: seuil,
			Allotissement:   req.Allotissement,
			Statut:          models.Brouillon,
			MontantEstime:   req.MontantEstime,
		},
	}
	return f.detail, nil
}

func (f *fakeMarcheRepo) EditMarche(_ context.Context, marcheID string, updates map[string]interface{}) (*models.Marche, error) {
	if f.detail == nil || f.detail.ID != marcheID {
		return nil, errors.New("marché absent")
	}
	if reference, ok := updates["reference"].(string); ok {
		f.detail.Reference = reference
	}
	return &f.detail.Marche, nil
}

func (f *fakeMarcheRepo) ApplyTransition(_ context.Context, marcheID string, depuis models.MarcheStatut, updates map[string]interface{}) (bool, error) {
	if f.refuseCAS || f.detail == nil || f.detail.ID != marcheID || f.detail.Statut != depuis {
		return false, nil
	}
	f.transitions = append(f.transitions, updates)
	f.detail.Statut = updates["statut"].(models.MarcheStatut)
	if v, ok := updates["retenu_id"]; ok {
		if id, ok := v.(string); ok {
			f.detail.RetenuID = &id
		} else {
			f.detail.RetenuID = nil
		}
	}
	if v, ok := updates["montant_retenu"]; ok {
		if montant, ok := v.(*int64); ok {
			f.detail.MontantRetenu = montant
		} else {
			f.detail.MontantRetenu = nil
		}
	}
	if v, ok := updates["motif_rejet"]; ok {
		if motif, ok := v.(string); ok {
			f.detail.MotifRejet = &motif
		} else {
			f.detail.MotifRejet = nil
		}
	}
	if ref, ok := updates["contrat_ref"].(string); ok {
		f.detail.ContratRef = &ref
	}
	return true, nil
}

func (f *fakeMarcheRepo) DeleteMarche(_ context.Context, marcheID string) error {
	if f.detail == nil || f.detail.ID != marcheID {
		return errors.New("marché absent")
	}
	f.detail = nil
	return nil
}

// fakeOffresRepo garde les offres en mémoire et enregistre les attributions de lot.
type fakeOffresRepo struct {
	offres       []models.Soumissionnaire
	classement   []models.Soumissionnaire
	attributions map[string]string
}

func (f *fakeOffresRepo) CreateSoumissionnaire(_ context.Context, marcheID string, req models.SoumissionnaireRequest) (*models.Soumissionnaire, error) {
	offre := models.Soumissionnaire{
		ID:            "s-new",
		MarcheID:      marcheID,
		LotID:         req.LotID,
		RaisonSociale: req.RaisonSociale,
		Email:         req.Email,
		MontantOffre:  req.MontantOffre,
		Statut:        models.OffreRecue,
	}
	f.offres = append(f.offres, offre)
	return &offre, nil
}

func (f *fakeOffresRepo) GetSoumissionnaire(_ context.Context, soumissionnaireID string) (*models.Soumissionnaire, error) {
	for i := range f.offres {
		if f.offres[i].ID == soumissionnaireID {
			copie := f.offres[i]
			return &copie, nil
		}
	}
	return nil, errors.New("offre absente")
}

func (f *fakeOffresRepo) EditSoumissionnaire(_ context.Context, soumissionnaireID string, updates map[string]interface{}) (*models.Soumissionnaire, error) {
	for i := range f.offres {
		if f.offres[i].ID != soumissionnaireID {
			continue
		}
		offre := &f.offres[i]
		if note, ok := updates["note_technique"].(float64); ok {
			offre.NoteTechnique = &note
		}
		if note, ok := updates["note_financiere"].(float64); ok {
			offre.NoteFinanciere = &note
		}
		if qualifie, ok := updates["qualifie"].(bool); ok {
			offre.Qualifie = qualifie
		}
		if finale, ok := updates["note_finale"].(*float64); ok {
			offre.NoteFinale = finale
		}
		if statut, ok := updates["statut"].(string); ok {
			offre.Statut = models.SoumissionnaireStatut(statut)
		}
		copie := *offre
		return &copie, nil
	}
	return nil, errors.New("offre absente")
}

func (f *fakeOffresRepo) DeleteSoumissionnaire(_ context.Context, soumissionnaireID string) error {
	for i := range f.offres {
		if f.offres[i].ID == soumissionnaireID {
			f.offres = append(f.offres[:i], f.offres[i+1:]...)
			return nil
		}
	}
	return errors.New("offre absente")
}

func (f *fakeOffresRepo) ListByScope(_ context.Context, marcheID string, lotID *string) ([]models.Soumissionnaire, error) {
	var resultat []models.Soumissionnaire
	for _, offre := range f.offres {
		if offre.MarcheID != marcheID {
			continue
		}
		if lotID != nil && (offre.LotID == nil || *offre.LotID != *lotID) {
			continue
		}
		resultat = append(resultat, offre)
	}
	return resultat, nil
}

func (f *fakeOffresRepo) EditLot(_ context.Context, lotID string, updates map[string]interface{}) (*models.Lot, error) {
	lot := models.Lot{ID: lotID}
	if libelle, ok := updates["libelle"].(string); ok {
		lot.Libelle = libelle
	}
	if statut, ok := updates["statut"].(string); ok {
		lot.Statut = models.LotStatut(statut)
	}
	return &lot, nil
}

func (f *fakeOffresRepo) ReplaceLots(_ context.Context, marcheID string, lots []models.LotRequest) ([]models.Lot, error) {
	resultat := make([]models.Lot, 0, len(lots))
	for _, req := range lots {
		resultat = append(resultat, models.Lot{
			ID:       req.ID,
			MarcheID: marcheID,
			Numero:   req.Numero,
			Libelle:  req.Libelle,
			Statut:   models.LotEnCours,
		})
	}
	return resultat, nil
}

func (f *fakeOffresRepo) ReplaceSoumissionnaires(_ context.Context, marcheID string, offres []models.SoumissionnaireRequest) ([]models.Soumissionnaire, error) {
	resultat := make([]models.Soumissionnaire, 0, len(offres))
	for _, req := range offres {
		resultat = append(resultat, models.Soumissionnaire{
			ID:            req.ID,
			MarcheID:      marcheID,
			LotID:         req.LotID,
			RaisonSociale: req.RaisonSociale,
			Statut:        models.OffreRecue,
		})
	}
	f.offres = resultat
	return resultat, nil
}

func (f *fakeOffresRepo) SaveClassement(_ context.Context, offres []models.Soumissionnaire) error {
	f.classement = offres
	for _, classee := range offres {
		for i := range f.offres {
			if f.offres[i].ID == classee.ID {
				f.offres[i] = classee
			}
		}
	}
	return nil
}

func (f *fakeOffresRepo) AttribuerLot(_ context.Context, lotID, retenuID string, _ *int64) error {
	if f.attributions == nil {
		f.attributions = make(map[string]string)
	}
	f.attributions[lotID] = retenuID
	return nil
}

// fakeAnnuaire est protégé par un mutex : la diffusion des notifications part
// dans une goroutine.
type fakeAnnuaire struct {
	mu            sync.Mutex
	parRole       map[string][]models.Utilisateur
	parDirection  map[string][]models.Utilisateur
	notifications []notificationRecue
	insertErr     error
}

type notificationRecue struct {
	UtilisateurID string
	MarcheID      string
	Titre         string
	Message       string
}

func (f *fakeAnnuaire) ListUtilisateursParRole(_ context.Context, role string) ([]models.Utilisateur, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.parRole[role], nil
}

func (f *fakeAnnuaire) ListUtilisateursParDirection(_ context.Context, directionID string) ([]models.Utilisateur, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.parDirection[directionID], nil
}

func (f *fakeAnnuaire) InsertNotification(_ context.Context, utilisateurID, marcheID, titre, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.notifications = append(f.notifications, notificationRecue{utilisateurID, marcheID, titre, message})
	return nil
}

func (f *fakeAnnuaire) recues() []notificationRecue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notificationRecue(nil), f.notifications...)
}

type envoiEmail struct {
	Destinataire string
	Sujet        string
}

type fakeEmail struct {
	mu     sync.Mutex
	envois []envoiEmail
	err    error
}

func (f *fakeEmail) Send(destinataire, sujet, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.envois = append(f.envois, envoiEmail{destinataire, sujet})
	return nil
}

func (f *fakeEmail) emis() []envoiEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]envoiEmail(nil), f.envois...)
}
