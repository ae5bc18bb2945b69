package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ndiayeb/passation-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const soumissionnaireColumns = `id, marche_id, lot_id, saisie_manuelle, prestataire_id, raison_sociale,
email, telephone, offre_technique_ref, montant_offre, date_soumission,
note_technique, note_financiere, qualifie, note_finale, rang, statut, motif_elimination`

// dbExecutor est satisfait par le pool et par une transaction pgx.
type dbExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SoumissionnaireRepository - interface pour le stockage des offres et des lots.
type SoumissionnaireRepository interface {
	CreateSoumissionnaire(ctx context.Context, marcheID string, req models.SoumissionnaireRequest) (*models.Soumissionnaire, error)
	GetSoumissionnaire(ctx context.Context, soumissionnaireID string) (*models.Soumissionnaire, error)
	EditSoumissionnaire(ctx context.Context, soumissionnaireID string, updates map[string]interface{}) (*models.Soumissionnaire, error)
	DeleteSoumissionnaire(ctx context.Context, soumissionnaireID string) error
	ListByScope(ctx context.Context, marcheID string, lotID *string) ([]models.Soumissionnaire, error)
	EditLot(ctx context.Context, lotID string, updates map[string]interface{}) (*models.Lot, error)
	ReplaceLots(ctx context.Context, marcheID string, lots []models.LotRequest) ([]models.Lot, error)
	ReplaceSoumissionnaires(ctx context.Context, marcheID string, offres []models.SoumissionnaireRequest) ([]models.Soumissionnaire, error)
	SaveClassement(ctx context.Context, offres []models.Soumissionnaire) error
	AttribuerLot(ctx context.Context, lotID, retenuID string, montant *int64) error
}

// PostgresSoumissionnaireRepository - implémentation de SoumissionnaireRepository pour la base de données.
type PostgresSoumissionnaireRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresSoumissionnaireRepository crée une nouvelle instance de PostgresSoumissionnaireRepository.
func NewPostgresSoumissionnaireRepository(db *pgxpool.Pool) *PostgresSoumissionnaireRepository {
	return &PostgresSoumissionnaireRepository{DB: db}
}

func scanSoumissionnaire(row rowScanner) (models.Soumissionnaire, error) {
	var s models.Soumissionnaire
	err := row.Scan(
		&s.ID,
		&s.MarcheID,
		&s.LotID,
		&s.SaisieManuelle,
		&s.PrestataireID,
		&s.RaisonSociale,
		&s.Email,
		&s.Telephone,
		&s.OffreTechniqueRef,
		&s.MontantOffre,
		&s.DateSoumission,
		&s.NoteTechnique,
		&s.NoteFinanciere,
		&s.Qualifie,
		&s.NoteFinale,
		&s.Rang,
		&s.Statut,
		&s.MotifElimination,
	)
	return s, err
}

func insertSoumissionnaire(ctx context.Context, db dbExecutor, marcheID string, req models.SoumissionnaireRequest) (*models.Soumissionnaire, error) {
	if req.RaisonSociale == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "la raison sociale du soumissionnaire est obligatoire")
	}

	newOffre := models.Soumissionnaire{
		ID:                req.ID,
		MarcheID:          marcheID,
		LotID:             req.LotID,
		SaisieManuelle:    req.SaisieManuelle,
		PrestataireID:     req.PrestataireID,
		RaisonSociale:     req.RaisonSociale,
		Email:             req.Email,
		Telephone:         req.Telephone,
		OffreTechniqueRef: req.OffreTechniqueRef,
		MontantOffre:      req.MontantOffre,
		DateSoumission:    time.Now().UTC(),
		Statut:            models.OffreRecue,
	}
	if newOffre.ID == "" {
		newOffre.ID = uuid.New().String()
	}
	if req.DateSoumission != nil {
		newOffre.DateSoumission = req.DateSoumission.UTC()
	}

	insertQuery := `INSERT INTO soumissionnaire (id, marche_id, lot_id, saisie_manuelle, prestataire_id, raison_sociale,
	                email, telephone, offre_technique_ref, montant_offre, date_soumission, statut)
	                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := db.Exec(ctx, insertQuery,
		newOffre.ID,
		newOffre.MarcheID,
		newOffre.LotID,
		newOffre.SaisieManuelle,
		newOffre.PrestataireID,
		newOffre.RaisonSociale,
		newOffre.Email,
		newOffre.Telephone,
		newOffre.OffreTechniqueRef,
		newOffre.MontantOffre,
		newOffre.DateSoumission,
		newOffre.Statut)
	if err != nil {
		return nil, fmt.Errorf("failed to insert soumissionnaire: %w", err)
	}
	return &newOffre, nil
}

func insertLot(ctx context.Context, db dbExecutor, marcheID string, req models.LotRequest) error {
	lotID := req.ID
	if lotID == "" {
		lotID = uuid.New().String()
	}
	insertQuery := `INSERT INTO lot (id, marche_id, numero, libelle, description, montant_estime, statut)
	                VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := db.Exec(ctx, insertQuery, lotID, marcheID, req.Numero, req.Libelle, req.Description, req.MontantEstime, models.LotEnCours)
	if err != nil {
		return fmt.Errorf("failed to insert lot: %w", err)
	}
	return nil
}

// CreateSoumissionnaire ajoute une offre à un marché.
func (r *PostgresSoumissionnaireRepository) CreateSoumissionnaire(ctx context.Context, marcheID string, req models.SoumissionnaireRequest) (*models.Soumissionnaire, error) {
	return insertSoumissionnaire(ctx, r.DB, marcheID, req)
}

// GetSoumissionnaire retourne une offre par son identifiant.
func (r *PostgresSoumissionnaireRepository) GetSoumissionnaire(ctx context.Context, soumissionnaireID string) (*models.Soumissionnaire, error) {
	query := `SELECT ` + soumissionnaireColumns + ` FROM soumissionnaire WHERE id = $1`
	s, err := scanSoumissionnaire(r.DB.QueryRow(ctx, query, soumissionnaireID))
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// EditSoumissionnaire modifie les champs d'une offre (pattern SET dynamique).
func (r *PostgresSoumissionnaireRepository) EditSoumissionnaire(ctx context.Context, soumissionnaireID string, updates map[string]interface{}) (*models.Soumissionnaire, error) {
	if len(updates) == 0 {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "aucun champ à modifier")
	}

	var sets []string
	var args []interface{}
	argIndex := 1
	for champ, valeur := range updates {
		sets = append(sets, fmt.Sprintf("%s = $%d", champ, argIndex))
		args = append(args, valeur)
		argIndex++
	}
	sort.Strings(sets)

	query := `UPDATE soumissionnaire SET ` + strings.Join(sets, ", ") +
		fmt.Sprintf(" WHERE id = $%d RETURNING ", argIndex) + soumissionnaireColumns
	args = append(args, soumissionnaireID)

	s, err := scanSoumissionnaire(r.DB.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSoumissionnaire supprime une offre.
func (r *PostgresSoumissionnaireRepository) DeleteSoumissionnaire(ctx context.Context, soumissionnaireID string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM soumissionnaire WHERE id = $1`, soumissionnaireID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListByScope retourne les offres d'un périmètre : celles d'un lot, ou celles
// du marché entier si lotID est nul. L'ordre de soumission est préservé, il
// sert de départage en cas d'égalité au classement.
func (r *PostgresSoumissionnaireRepository) ListByScope(ctx context.Context, marcheID string, lotID *string) ([]models.Soumissionnaire, error) {
	query := `SELECT ` + soumissionnaireColumns + ` FROM soumissionnaire WHERE marche_id = $1`
	args := []interface{}{marcheID}
	if lotID != nil {
		query += ` AND lot_id = $2`
		args = append(args, *lotID)
	}
	query += ` ORDER BY date_soumission, id`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offres []models.Soumissionnaire
	for rows.Next() {
		s, err := scanSoumissionnaire(rows)
		if err != nil {
			return nil, err
		}
		offres = append(offres, s)
	}
	return offres, rows.Err()
}

// EditLot modifie les champs d'un lot (pattern SET dynamique).
func (r *PostgresSoumissionnaireRepository) EditLot(ctx context.Context, lotID string, updates map[string]interface{}) (*models.Lot, error) {
	if len(updates) == 0 {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "aucun champ à modifier")
	}

	var sets []string
	var args []interface{}
	argIndex := 1
	for champ, valeur := range updates {
		sets = append(sets, fmt.Sprintf("%s = $%d", champ, argIndex))
		args = append(args, valeur)
		argIndex++
	}
	sort.Strings(sets)

	query := `UPDATE lot SET ` + strings.Join(sets, ", ") +
		fmt.Sprintf(" WHERE id = $%d RETURNING id, marche_id, numero, libelle, description, montant_estime, statut, retenu_id, montant_retenu", argIndex)
	args = append(args, lotID)

	var l models.Lot
	err := r.DB.QueryRow(ctx, query, args...).Scan(
		&l.ID,
		&l.MarcheID,
		&l.Numero,
		&l.Libelle,
		&l.Description,
		&l.MontantEstime,
		&l.Statut,
		&l.RetenuID,
		&l.MontantRetenu,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ReplaceLots remplace la liste des lots d'un marché par différence :
// insertion des nouveaux, mise à jour des existants, suppression des absents,
// le tout dans une même transaction. Pas de delete-reinsert : un échec partiel
// ne laisse jamais la liste vide.
func (r *PostgresSoumissionnaireRepository) ReplaceLots(ctx context.Context, marcheID string, lots []models.LotRequest) ([]models.Lot, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	existants := make(map[string]bool)
	rows, err := tx.Query(ctx, `SELECT id FROM lot WHERE marche_id = $1`, marcheID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		existants[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	conserves := make(map[string]bool)
	for _, lot := range lots {
		if lot.ID != "" && existants[lot.ID] {
			_, err := tx.Exec(ctx,
				`UPDATE lot SET numero = $1, libelle = $2, description = $3, montant_estime = $4 WHERE id = $5`,
				lot.Numero, lot.Libelle, lot.Description, lot.MontantEstime, lot.ID)
			if err != nil {
				return nil, err
			}
			conserves[lot.ID] = true
			continue
		}
		if err := insertLot(ctx, tx, marcheID, lot); err != nil {
			return nil, err
		}
	}

	for id := range existants {
		if !conserves[id] {
			if _, err := tx.Exec(ctx, `UPDATE soumissionnaire SET lot_id = NULL WHERE lot_id = $1`, id); err != nil {
				return nil, err
			}
			if _, err := tx.Exec(ctx, `DELETE FROM lot WHERE id = $1`, id); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.listLots(ctx, marcheID)
}

func (r *PostgresSoumissionnaireRepository) listLots(ctx context.Context, marcheID string) ([]models.Lot, error) {
	query := `SELECT id, marche_id, numero, libelle, description, montant_estime, statut, retenu_id, montant_retenu
	          FROM lot WHERE marche_id = $1 ORDER BY numero`
	rows, err := r.DB.Query(ctx, query, marcheID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lots []models.Lot
	for rows.Next() {
		var l models.Lot
		if err := rows.Scan(&l.ID, &l.MarcheID, &l.Numero, &l.Libelle, &l.Description, &l.MontantEstime, &l.Statut, &l.RetenuID, &l.MontantRetenu); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

// ReplaceSoumissionnaires remplace la liste des offres d'un marché par
// différence, comme ReplaceLots. Les notes et rangs des offres conservées ne
// sont pas touchés par cette opération.
func (r *PostgresSoumissionnaireRepository) ReplaceSoumissionnaires(ctx context.Context, marcheID string, offres []models.SoumissionnaireRequest) ([]models.Soumissionnaire, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	existants := make(map[string]bool)
	rows, err := tx.Query(ctx, `SELECT id FROM soumissionnaire WHERE marche_id = $1`, marcheID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		existants[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	conserves := make(map[string]bool)
	for _, offre := range offres {
		if offre.ID != "" && existants[offre.ID] {
			_, err := tx.Exec(ctx,
				`UPDATE soumissionnaire SET lot_id = $1, prestataire_id = $2, raison_sociale = $3, email = $4,
				 telephone = $5, offre_technique_ref = $6, montant_offre = $7 WHERE id = $8`,
				offre.LotID, offre.PrestataireID, offre.RaisonSociale, offre.Email,
				offre.Telephone, offre.OffreTechniqueRef, offre.MontantOffre, offre.ID)
			if err != nil {
				return nil, err
			}
			conserves[offre.ID] = true
			continue
		}
		if _, err := insertSoumissionnaire(ctx, tx, marcheID, offre); err != nil {
			return nil, err
		}
	}

	for id := range existants {
		if !conserves[id] {
			if _, err := tx.Exec(ctx, `DELETE FROM soumissionnaire WHERE id = $1`, id); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.ListByScope(ctx, marcheID, nil)
}

// AttribuerLot enregistre le soumissionnaire retenu d'un lot et passe le lot
// au statut attribué.
func (r *PostgresSoumissionnaireRepository) AttribuerLot(ctx context.Context, lotID, retenuID string, montant *int64) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE lot SET statut = $1, retenu_id = $2, montant_retenu = $3 WHERE id = $4`,
		models.LotAttribue, retenuID, montant, lotID)
	return err
}

// SaveClassement persiste les rangs, statuts et notes finales d'un périmètre
// après recalcul, dans une même transaction.
func (r *PostgresSoumissionnaireRepository) SaveClassement(ctx context.Context, offres []models.Soumissionnaire) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range offres {
		_, err := tx.Exec(ctx,
			`UPDATE soumissionnaire SET qualifie = $1, note_finale = $2, rang = $3, statut = $4 WHERE id = $5`,
			s.Qualifie, s.NoteFinale, s.Rang, s.Statut, s.ID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
