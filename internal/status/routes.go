package status

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

func addRoutes(r chi.Router, source Source, checks map[string]Checker) {
	r.Get("/healthz", newHealthHandler(checks).check)
	r.Get("/board.png", handleBoard(source))
	r.Get("/teams", handleTeams(source))
}

type teamView struct {
	Name           string `json:"name"`
	Tile           string `json:"tile"`
	TileName       string `json:"tile_name"`
	Rerolls        int    `json:"rerolls"`
	Skips          int    `json:"skips"`
	LastRoll       int    `json:"last_roll"`
	Finished       bool   `json:"finished"`
	AwaitingChoice bool   `json:"awaiting_choice"`
}

func handleTeams(source Source) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := source.Status()
		out := make([]teamView, 0, len(snap.Teams))
		for _, t := range snap.Teams {
			v := teamView{
				Name:           t.Name,
				Tile:           t.Tile,
				TileName:       t.Tile,
				Rerolls:        t.Rerolls,
				Skips:          t.Skips,
				LastRoll:       t.LastRoll,
				Finished:       t.Finished,
				AwaitingChoice: t.AwaitingChoice(),
			}
			if tile, ok := snap.Tiles[t.Tile]; ok {
				v.TileName = tile.DisplayName()
			}
			out = append(out, v)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleBoard(source Source) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		png, err := source.Board()
		if err != nil {
			log.Warn().Err(err).Msg("Board render for status server failed")
			writeError(w, http.StatusInternalServerError, "board unavailable")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
