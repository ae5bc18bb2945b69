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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const marcheColumns = `id, reference, demande_id, exercice, procedure, seuil_recommande, allotissement,
statut, decision, retenu_id, montant_retenu, montant_estime, date_publication, date_cloture,
publie_le, publie_par, cloture_le, cloture_par, evaluation_le, evaluation_par,
attribue_le, attribue_par, approuve_le, approuve_par, signe_le, signe_par,
motif_rejet, date_reprise, contrat_ref, pieces_jointes, created_at`

// MarcheRepository - interface pour le stockage des marchés.
type MarcheRepository interface {
	ListMarches(ctx context.Context, exercice string, limit, offset int, statuts []string) ([]models.MarcheDetail, int, error)
	CountByStatut(ctx context.Context, exercice string) (models.CountsByStatut, error)
	ListDemandesEligibles(ctx context.Context, exercice string) ([]models.DemandeDepense, error)
	GetDemande(ctx context.Context, demandeID string) (*models.DemandeDepense, error)
	DemandeConsommee(ctx context.Context, demandeID string) (bool, error)
	GetMarcheDetail(ctx context.Context, marcheID string) (*models.MarcheDetail, error)
	CreateMarche(ctx context.Context, req models.MarcheRequest, seuil models.Procedure) (*models.MarcheDetail, error)
	EditMarche(ctx context.Context, marcheID string, updates map[string]interface{}) (*models.Marche, error)
	ApplyTransition(ctx context.Context, marcheID string, depuis models.MarcheStatut, updates map[string]interface{}) (bool, error)
	DeleteMarche(ctx context.Context, marcheID string) error
}

// PostgresMarcheRepository - implémentation de MarcheRepository pour la base de données.
type PostgresMarcheRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresMarcheRepository crée une nouvelle instance de PostgresMarcheRepository.
func NewPostgresMarcheRepository(db *pgxpool.Pool) *PostgresMarcheRepository {
	return &PostgresMarcheRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarche(row rowScanner) (models.Marche, error) {
	var m models.Marche
	err := row.Scan(
		&m.ID,
		&m.Reference,
		&m.DemandeID,
		&m.Exercice,
		&m.Procedure,
		&m.SeuilRecommande,
		&m.Allotissement,
		&m.Statut,
		&m.Decision,
		&m.RetenuID,
		&m.MontantRetenu,
		&m.MontantEstime,
		&m.DatePublication,
		&m.DateCloture,
		&m.PublieLe,
		&m.PubliePar,
		&m.ClotureLe,
		&m.CloturePar,
		&m.EvaluationLe,
		&m.EvaluationPar,
		&m.AttribueLe,
		&m.AttribuePar,
		&m.ApprouveLe,
		&m.ApprouvePar,
		&m.SigneLe,
		&m.SignePar,
		&m.MotifRejet,
		&m.DateReprise,
		&m.ContratRef,
		&m.PiecesJointes,
		&m.CreatedAt,
	)
	return m, err
}

// ListMarches retourne une page de marchés d'un exercice avec leurs lots et
// leurs soumissionnaires, plus le nombre total de marchés correspondant au filtre.
func (r *PostgresMarcheRepository) ListMarches(ctx context.Context, exercice string, limit, offset int, statuts []string) ([]models.MarcheDetail, int, error) {
	query := `SELECT ` + marcheColumns + ` FROM marche WHERE exercice = $1`
	countQuery := `SELECT COUNT(*) FROM marche WHERE exercice = $1`
	args := []interface{}{exercice}
	argIndex := 2

	if len(statuts) > 0 {
		filtre := fmt.Sprintf(" AND statut = ANY($%d)", argIndex)
		query += filtre
		countQuery += filtre
		args = append(args, pq.Array(statuts))
		argIndex++
	}

	var total int
	if err := r.DB.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var marches []models.MarcheDetail
	var ids []string
	for rows.Next() {
		m, err := scanMarche(rows)
		if err != nil {
			return nil, 0, err
		}
		marches = append(marches, models.MarcheDetail{Marche: m})
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		lotsParMarche, err := r.lotsParMarche(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		offresParMarche, err := r.offresParMarche(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range marches {
			marches[i].Lots = lotsParMarche[marches[i].ID]
			marches[i].Soumissionnaires = offresParMarche[marches[i].ID]
		}
	}
	return marches, total, nil
}

// lotsParMarche charge les lots d'un ensemble de marchés, triés par numéro.
func (r *PostgresMarcheRepository) lotsParMarche(ctx context.Context, marcheIds []string) (map[string][]models.Lot, error) {
	query := `SELECT id, marche_id, numero, libelle, description, montant_estime, statut, retenu_id, montant_retenu
	          FROM lot WHERE marche_id = ANY($1)`
	rows, err := r.DB.Query(ctx, query, pq.Array(marcheIds))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parMarche := make(map[string][]models.Lot)
	for rows.Next() {
		var l models.Lot
		if err := rows.Scan(
			&l.ID,
			&l.MarcheID,
			&l.Numero,
			&l.Libelle,
			&l.Description,
			&l.MontantEstime,
			&l.Statut,
			&l.RetenuID,
			&l.MontantRetenu); err != nil {
			return nil, err
		}
		parMarche[l.MarcheID] = append(parMarche[l.MarcheID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for id := range parMarche {
		lots := parMarche[id]
		sort.Slice(lots, func(i, j int) bool { return lots[i].Numero < lots[j].Numero })
	}
	return parMarche, nil
}

// offresParMarche charge les soumissionnaires d'un ensemble de marchés.
func (r *PostgresMarcheRepository) offresParMarche(ctx context.Context, marcheIds []string) (map[string][]models.Soumissionnaire, error) {
	query := `SELECT ` + soumissionnaireColumns + ` FROM soumissionnaire WHERE marche_id = ANY($1) ORDER BY date_soumission, id`
	rows, err := r.DB.Query(ctx, query, pq.Array(marcheIds))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parMarche := make(map[string][]models.Soumissionnaire)
	for rows.Next() {
		s, err := scanSoumissionnaire(rows)
		if err != nil {
			return nil, err
		}
		parMarche[s.MarcheID] = append(parMarche[s.MarcheID], s)
	}
	return parMarche, rows.Err()
}

// CountByStatut retourne le nombre de marchés par statut pour un exercice,
// indépendamment de la pagination.
func (r *PostgresMarcheRepository) CountByStatut(ctx context.Context, exercice string) (models.CountsByStatut, error) {
	counts := make(models.CountsByStatut)
	for _, statut := range models.Statuts {
		counts[statut] = 0
	}

	query := `SELECT statut, COUNT(*) FROM marche WHERE exercice = $1 GROUP BY statut`
	rows, err := r.DB.Query(ctx, query, exercice)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var statut models.MarcheStatut
		var n int
		if err := rows.Scan(&statut, &n); err != nil {
			return nil, err
		}
		counts[statut] = n
	}
	return counts, rows.Err()
}

// ListDemandesEligibles retourne les demandes de dépense validées d'un exercice
// qui n'ont pas encore été consommées par un marché.
func (r *PostgresMarcheRepository) ListDemandesEligibles(ctx context.Context, exercice string) ([]models.DemandeDepense, error) {
	query := `SELECT d.id, d.reference, d.objet, d.direction_id, d.exercice, d.montant_estime, d.statut, d.created_at
	          FROM demande_depense d
	          WHERE d.exercice = $1 AND d.statut = 'validee'
	          AND NOT EXISTS (SELECT 1 FROM marche m WHERE m.demande_id = d.id)
	          ORDER BY d.created_at`
	rows, err := r.DB.Query(ctx, query, exercice)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var demandes []models.DemandeDepense
	for rows.Next() {
		var d models.DemandeDepense
		if err := rows.Scan(&d.ID, &d.Reference, &d.Objet, &d.DirectionID, &d.Exercice, &d.MontantEstime, &d.Statut, &d.CreatedAt); err != nil {
			return nil, err
		}
		demandes = append(demandes, d)
	}
	return demandes, rows.Err()
}

// GetDemande retourne une demande de dépense par son identifiant.
func (r *PostgresMarcheRepository) GetDemande(ctx context.Context, demandeID string) (*models.DemandeDepense, error) {
	var d models.DemandeDepense
	query := `SELECT id, reference, objet, direction_id, exercice, montant_estime, statut, created_at
	          FROM demande_depense WHERE id = $1`
	err := r.DB.QueryRow(ctx, query, demandeID).Scan(
		&d.ID,
		&d.Reference,
		&d.Objet,
		&d.DirectionID,
		&d.Exercice,
		&d.MontantEstime,
		&d.Statut,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DemandeConsommee vérifie si une demande a déjà généré un marché.
func (r *PostgresMarcheRepository) DemandeConsommee(ctx context.Context, demandeID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM marche WHERE demande_id = $1)`
	err := r.DB.QueryRow(ctx, query, demandeID).Scan(&exists)
	return exists, err
}

// GetMarcheDetail retourne un marché avec ses lots et ses soumissionnaires.
func (r *PostgresMarcheRepository) GetMarcheDetail(ctx context.Context, marcheID string) (*models.MarcheDetail, error) {
	query := `SELECT ` + marcheColumns + ` FROM marche WHERE id = $1`
	m, err := scanMarche(r.DB.QueryRow(ctx, query, marcheID))
	if err != nil {
		return nil, err
	}

	lots, err := r.lotsParMarche(ctx, []string{m.ID})
	if err != nil {
		return nil, err
	}
	offres, err := r.offresParMarche(ctx, []string{m.ID})
	if err != nil {
		return nil, err
	}
	return &models.MarcheDetail{Marche: m, Lots: lots[m.ID], Soumissionnaires: offres[m.ID]}, nil
}

// CreateMarche crée un marché avec ses lots et ses soumissionnaires initiaux
// dans une même transaction. L'unicité sur demande_id garantit qu'une demande
// ne génère qu'un seul marché.
func (r *PostgresMarcheRepository) CreateMarche(ctx context.Context, req models.MarcheRequest, seuil models.Procedure) (*models.MarcheDetail, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	marcheID := uuid.New().String()
	now := time.Now().UTC()

	insertQuery := `INSERT INTO marche (id, reference, demande_id, exercice, procedure, seuil_recommande,
	                allotissement, statut, montant_estime, date_publication, date_cloture, pieces_jointes, created_at)
	                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = tx.Exec(ctx, insertQuery,
		marcheID,
		req.Reference,
		req.DemandeID,
		req.Exercice,
		req.Procedure,
		seuil,
		req.Allotissement,
		models.Brouillon,
		req.MontantEstime,
		req.DatePublication,
		req.DateCloture,
		[]string{},
		now)
	if err != nil {
		if strings.Contains(err.Error(), "marche_demande_id_key") {
			return nil, models.NewErrorResponse(http.StatusConflict, "cette demande de dépense a déjà généré un marché")
		}
		return nil, fmt.Errorf("failed to insert marche: %w", err)
	}

	for _, lot := range req.Lots {
		if err := insertLot(ctx, tx, marcheID, lot); err != nil {
			return nil, err
		}
	}
	for _, offre := range req.Soumissionnaires {
		if _, err := insertSoumissionnaire(ctx, tx, marcheID, offre); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetMarcheDetail(ctx, marcheID)
}

// EditMarche modifie les champs d'un marché (pattern SET dynamique).
func (r *PostgresMarcheRepository) EditMarche(ctx context.Context, marcheID string, updates map[string]interface{}) (*models.Marche, error) {
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

	query := `UPDATE marche SET ` + strings.Join(sets, ", ") +
		fmt.Sprintf(" WHERE id = $%d RETURNING ", argIndex) + marcheColumns
	args = append(args, marcheID)

	m, err := scanMarche(r.DB.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ApplyTransition applique un changement de statut sous condition du statut
// courant. Le prédicat SQL `statut = depuis` est le re-contrôle côté serveur :
// deux transitions concurrentes depuis une lecture périmée ne peuvent pas
// toutes deux aboutir. Retourne false si aucune ligne n'a été modifiée.
func (r *PostgresMarcheRepository) ApplyTransition(ctx context.Context, marcheID string, depuis models.MarcheStatut, updates map[string]interface{}) (bool, error) {
	var sets []string
	var args []interface{}
	argIndex := 1
	for champ, valeur := range updates {
		sets = append(sets, fmt.Sprintf("%s = $%d", champ, argIndex))
		args = append(args, valeur)
		argIndex++
	}
	sort.Strings(sets)

	query := `UPDATE marche SET ` + strings.Join(sets, ", ") +
		fmt.Sprintf(" WHERE id = $%d AND statut = $%d", argIndex, argIndex+1)
	args = append(args, marcheID, depuis)

	tag, err := r.DB.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteMarche supprime un marché avec ses lots et ses soumissionnaires.
// Opération administrative, hors circuit normal.
func (r *PostgresMarcheRepository) DeleteMarche(ctx context.Context, marcheID string) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM notification WHERE marche_id = $1`, marcheID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM soumissionnaire WHERE marche_id = $1`, marcheID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM lot WHERE marche_id = $1`, marcheID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM marche WHERE id = $1`, marcheID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}
