package repository

import (
	"context"
	"time"

	"github.com/ndiayeb/passation-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnnuaireRepository - interface de recherche des destinataires et
// d'enregistrement des notifications durables.
type AnnuaireRepository interface {
	ListUtilisateursParRole(ctx context.Context, role string) ([]models.Utilisateur, error)
	ListUtilisateursParDirection(ctx context.Context, directionID string) ([]models.Utilisateur, error)
	InsertNotification(ctx context.Context, utilisateurID, marcheID, titre, message string) error
}

// PostgresAnnuaireRepository - implémentation de AnnuaireRepository pour la base de données.
type PostgresAnnuaireRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresAnnuaireRepository crée une nouvelle instance de PostgresAnnuaireRepository.
func NewPostgresAnnuaireRepository(db *pgxpool.Pool) *PostgresAnnuaireRepository {
	return &PostgresAnnuaireRepository{DB: db}
}

// ListUtilisateursParRole retourne les titulaires d'un rôle.
func (r *PostgresAnnuaireRepository) ListUtilisateursParRole(ctx context.Context, role string) ([]models.Utilisateur, error) {
	query := `SELECT id, nom, email, role, direction_id FROM utilisateur WHERE role = $1`
	return r.listUtilisateurs(ctx, query, role)
}

// ListUtilisateursParDirection retourne les membres d'une direction.
func (r *PostgresAnnuaireRepository) ListUtilisateursParDirection(ctx context.Context, directionID string) ([]models.Utilisateur, error) {
	query := `SELECT id, nom, email, role, direction_id FROM utilisateur WHERE direction_id = $1`
	return r.listUtilisateurs(ctx, query, directionID)
}

func (r *PostgresAnnuaireRepository) listUtilisateurs(ctx context.Context, query string, arg interface{}) ([]models.Utilisateur, error) {
	rows, err := r.DB.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var utilisateurs []models.Utilisateur
	for rows.Next() {
		var u models.Utilisateur
		if err := rows.Scan(&u.ID, &u.Nom, &u.Email, &u.Role, &u.DirectionID); err != nil {
			return nil, err
		}
		utilisateurs = append(utilisateurs, u)
	}
	return utilisateurs, rows.Err()
}

// InsertNotification enregistre une notification applicative durable.
func (r *PostgresAnnuaireRepository) InsertNotification(ctx context.Context, utilisateurID, marcheID, titre, message string) error {
	insertQuery := `INSERT INTO notification (id, utilisateur_id, marche_id, titre, message, lu, created_at)
	                VALUES ($1, $2, $3, $4, $5, false, $6)`
	_, err := r.DB.Exec(ctx, insertQuery, uuid.New().String(), utilisateurID, marcheID, titre, message, time.Now().UTC())
	return err
}
