package router

import (
	"net/http"

	"github.com/ndiayeb/passation-service/internal/handlers"
)

func InitRoutes(marcheHandler *handlers.MarcheHandler, soumissionnaireHandler *handlers.SoumissionnaireHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ping", handlers.PingHandler)

	mux.HandleFunc("GET /api/marches", marcheHandler.GetMarches)
	mux.HandleFunc("GET /api/marches/counts", marcheHandler.GetCounts)
	mux.HandleFunc("GET /api/demandes/eligibles", marcheHandler.GetDemandesEligibles)
	mux.HandleFunc("POST /api/marches/new", marcheHandler.CreateMarche)
	mux.HandleFunc("GET /api/marches/{marcheId}", marcheHandler.GetMarche)
	mux.HandleFunc("PATCH /api/marches/{marcheId}/edit", marcheHandler.EditMarche)
	mux.HandleFunc("DELETE /api/marches/{marcheId}", marcheHandler.DeleteMarche)

	mux.HandleFunc("GET /api/marches/{marcheId}/verifier", marcheHandler.VerifierTransition)
	mux.HandleFunc("PUT /api/marches/{marcheId}/publier", marcheHandler.Publier)
	mux.HandleFunc("PUT /api/marches/{marcheId}/cloturer", marcheHandler.Cloturer)
	mux.HandleFunc("PUT /api/marches/{marcheId}/evaluer", marcheHandler.Evaluer)
	mux.HandleFunc("PUT /api/marches/{marcheId}/attribuer", marcheHandler.Attribuer)
	mux.HandleFunc("PUT /api/marches/{marcheId}/approuver", marcheHandler.Approuver)
	mux.HandleFunc("PUT /api/marches/{marcheId}/rejeter", marcheHandler.Rejeter)
	mux.HandleFunc("PUT /api/marches/{marcheId}/signer", marcheHandler.Signer)

	mux.HandleFunc("PUT /api/marches/{marcheId}/lots", soumissionnaireHandler.ReplaceLots)
	mux.HandleFunc("PATCH /api/marches/{marcheId}/lots/{lotId}/edit", soumissionnaireHandler.EditLot)
	mux.HandleFunc("PUT /api/marches/{marcheId}/soumissionnaires", soumissionnaireHandler.ReplaceSoumissionnaires)
	mux.HandleFunc("POST /api/marches/{marcheId}/classement", soumissionnaireHandler.RecalculerClassement)

	mux.HandleFunc("POST /api/soumissionnaires/new", soumissionnaireHandler.CreateSoumissionnaire)
	mux.HandleFunc("PATCH /api/soumissionnaires/{soumissionnaireId}/edit", soumissionnaireHandler.EditSoumissionnaire)
	mux.HandleFunc("DELETE /api/soumissionnaires/{soumissionnaireId}", soumissionnaireHandler.DeleteSoumissionnaire)

	return mux
}
