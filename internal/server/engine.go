package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"territory-engine/internal/domain"
	"territory-engine/internal/grid"
	"territory-engine/internal/service"
)

// EngineServer maps the HTTP surface onto the engine services: event
// ingestion, the query API and the admin API. Rule violations travel as
// result codes in 200 responses; only malformed requests and infrastructure
// failures use HTTP error statuses.
type EngineServer struct {
	influence *service.InfluenceService
	captures  *service.CaptureService
	queries   *service.QueryService
	rounds    *service.RoundService
	logger    zerolog.Logger
}

func NewEngineServer(
	influence *service.InfluenceService,
	captures *service.CaptureService,
	queries *service.QueryService,
	rounds *service.RoundService,
	logger zerolog.Logger,
) *EngineServer {
	return &EngineServer{
		influence: influence,
		captures:  captures,
		queries:   queries,
		rounds:    rounds,
		logger:    logger,
	}
}

// Routes registers every endpoint on a fresh mux.
func (s *EngineServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Event ingestion.
	mux.HandleFunc("POST /v1/events/kill", s.handleKill)
	mux.HandleFunc("POST /v1/events/block-place", s.eventHandler(domain.ActionBlockPlace))
	mux.HandleFunc("POST /v1/events/block-break", s.eventHandler(domain.ActionBlockBreak))
	mux.HandleFunc("POST /v1/events/banner-place", s.eventHandler(domain.ActionBannerPlace))
	mux.HandleFunc("POST /v1/events/banner-remove", s.eventHandler(domain.ActionBannerRemove))
	mux.HandleFunc("POST /v1/events/mob-kill", s.eventHandler(domain.ActionMobKill))

	// Query API.
	mux.HandleFunc("GET /v1/regions", s.handleAllRegions)
	mux.HandleFunc("GET /v1/regions/{id}", s.handleRegion)
	mux.HandleFunc("GET /v1/teams/{team}/regions", s.handleRegionsByOwner)
	mux.HandleFunc("GET /v1/regions/{id}/adjacent", s.handleAdjacent)
	mux.HandleFunc("GET /v1/regions/{id}/supply", s.handleSupply)
	mux.HandleFunc("GET /v1/regions/{id}/cutoff", s.handleCutOff)
	mux.HandleFunc("GET /v1/regions/{id}/influence", s.handleInfluence)

	// Admin API.
	mux.HandleFunc("POST /v1/admin/rounds", s.handleInitializeRound)
	mux.HandleFunc("POST /v1/admin/rounds/end", s.handleEndRound)
	mux.HandleFunc("POST /v1/admin/regions/{id}/capture", s.handleForceCapture)
	mux.HandleFunc("POST /v1/admin/regions/{id}/reset", s.handleResetRegion)
	mux.HandleFunc("POST /v1/admin/regions/{id}/state", s.handleSetState)
	mux.HandleFunc("POST /v1/admin/regions/{id}/influence", s.handleAddDirect)

	return mux
}

type eventRequest struct {
	PlayerID    string  `json:"player_id"`
	VictimID    string  `json:"victim_id,omitempty"`
	Region      string  `json:"region"`
	Team        string  `json:"team"`
	Multiplier  float64 `json:"multiplier,omitempty"`
	Workstation bool    `json:"workstation,omitempty"` // block-place only
}

type accrualResponse struct {
	Result   domain.Result `json:"result"`
	Points   float64       `json:"points"`
	Captured bool          `json:"captured"`
}

func (s *EngineServer) handleKill(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !decode(w, r, &req) {
		return
	}
	out := s.influence.AddInfluence(r.Context(), service.AccrualRequest{
		PlayerID:   req.PlayerID,
		VictimID:   req.VictimID,
		Region:     domain.RegionID(req.Region),
		Team:       domain.Team(req.Team),
		Kind:       domain.ActionKill,
		Multiplier: req.Multiplier,
	})
	writeJSON(w, http.StatusOK, accrualResponse{Result: out.Result, Points: out.Points, Captured: out.Captured})
}

func (s *EngineServer) eventHandler(kind domain.ActionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req eventRequest
		if !decode(w, r, &req) {
			return
		}
		k := kind
		if k == domain.ActionBlockPlace && req.Workstation {
			k = domain.ActionWorkstationPlace
		}
		out := s.influence.AddInfluence(r.Context(), service.AccrualRequest{
			PlayerID:   req.PlayerID,
			Region:     domain.RegionID(req.Region),
			Team:       domain.Team(req.Team),
			Kind:       k,
			Multiplier: req.Multiplier,
		})
		writeJSON(w, http.StatusOK, accrualResponse{Result: out.Result, Points: out.Points, Captured: out.Captured})
	}
}

type regionResponse struct {
	Region         string     `json:"region"`
	Owner          string     `json:"owner,omitempty"`
	State          string     `json:"state"`
	InfluenceRed   float64    `json:"influence_red"`
	InfluenceBlue  float64    `json:"influence_blue"`
	FortifiedUntil *time.Time `json:"fortified_until,omitempty"`
	OwnedSince     *time.Time `json:"owned_since,omitempty"`
	TimesCaptured  int        `json:"times_captured"`
}

func toRegionResponse(r *domain.Region) regionResponse {
	return regionResponse{
		Region:         r.ID.String(),
		Owner:          r.Owner.String(),
		State:          string(r.State),
		InfluenceRed:   r.InfluenceRed,
		InfluenceBlue:  r.InfluenceBlue,
		FortifiedUntil: r.FortifiedUntil,
		OwnedSince:     r.OwnedSince,
		TimesCaptured:  r.TimesCaptured,
	}
}

func (s *EngineServer) handleAllRegions(w http.ResponseWriter, r *http.Request) {
	regions, res := s.queries.AllStatuses(r.Context())
	if !res.OK() {
		writeResult(w, res)
		return
	}
	out := make([]regionResponse, len(regions))
	for i := range regions {
		out[i] = toRegionResponse(&regions[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *EngineServer) handleRegion(w http.ResponseWriter, r *http.Request) {
	region, res := s.queries.Status(r.Context(), domain.RegionID(r.PathValue("id")))
	if !res.OK() {
		writeResult(w, res)
		return
	}
	writeJSON(w, http.StatusOK, toRegionResponse(region))
}

func (s *EngineServer) handleRegionsByOwner(w http.ResponseWriter, r *http.Request) {
	team := domain.Team(r.PathValue("team"))
	if !team.IsValid() {
		http.Error(w, "unknown team", http.StatusBadRequest)
		return
	}
	regions, res := s.queries.ByOwner(r.Context(), team)
	if !res.OK() {
		writeResult(w, res)
		return
	}
	out := make([]regionResponse, len(regions))
	for i := range regions {
		out[i] = toRegionResponse(&regions[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *EngineServer) handleAdjacent(w http.ResponseWriter, r *http.Request) {
	id := domain.RegionID(r.PathValue("id"))
	if teamParam := r.URL.Query().Get("team"); teamParam != "" {
		team := domain.Team(teamParam)
		if !team.IsValid() {
			http.Error(w, "unknown team", http.StatusBadRequest)
			return
		}
		adjacent, res := s.queries.IsAdjacentToTeam(r.Context(), id, team)
		if !res.OK() {
			writeResult(w, res)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"adjacent": adjacent})
		return
	}

	neighbors, res := s.queries.Adjacent(r.Context(), id)
	if !res.OK() {
		writeResult(w, res)
		return
	}
	writeJSON(w, http.StatusOK, neighbors)
}

func (s *EngineServer) handleSupply(w http.ResponseWriter, r *http.Request) {
	team := domain.Team(r.URL.Query().Get("team"))
	if !team.IsValid() {
		http.Error(w, "unknown team", http.StatusBadRequest)
		return
	}
	id := domain.RegionID(r.PathValue("id"))

	dist, res := s.queries.ConnectedToHome(r.Context(), id, team)
	if !res.OK() {
		writeResult(w, res)
		return
	}
	eff, _ := s.queries.SupplyEfficiency(r.Context(), id, team)
	writeJSON(w, http.StatusOK, map[string]any{
		"connected":  dist != grid.Unreachable,
		"distance":   dist,
		"efficiency": eff,
	})
}

func (s *EngineServer) handleCutOff(w http.ResponseWriter, r *http.Request) {
	team := domain.Team(r.URL.Query().Get("team"))
	if !team.IsValid() {
		http.Error(w, "unknown team", http.StatusBadRequest)
		return
	}
	lost, res := s.queries.CutOff(r.Context(), domain.RegionID(r.PathValue("id")), team)
	if !res.OK() {
		writeResult(w, res)
		return
	}
	if lost == nil {
		lost = []domain.RegionID{}
	}
	writeJSON(w, http.StatusOK, lost)
}

func (s *EngineServer) handleInfluence(w http.ResponseWriter, r *http.Request) {
	team := domain.Team(r.URL.Query().Get("team"))
	if !team.IsValid() {
		http.Error(w, "unknown team", http.StatusBadRequest)
		return
	}
	id := domain.RegionID(r.PathValue("id"))

	influence, res := s.queries.Influence(r.Context(), id, team)
	if !res.OK() {
		writeResult(w, res)
		return
	}
	required, _ := s.queries.InfluenceRequired(r.Context(), id, team)
	writeJSON(w, http.StatusOK, map[string]float64{
		"influence": influence,
		"required":  required,
	})
}

type initializeRoundRequest struct {
	HomeRed  string `json:"home_red"`
	HomeBlue string `json:"home_blue"`
}

func (s *EngineServer) handleInitializeRound(w http.ResponseWriter, r *http.Request) {
	var req initializeRoundRequest
	if !decode(w, r, &req) {
		return
	}
	round, err := s.rounds.Initialize(r.Context(), domain.RegionID(req.HomeRed), domain.RegionID(req.HomeBlue))
	if err != nil {
		s.logger.Error().Err(err).Msg("round initialization failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"round_id": round.ID})
}

func (s *EngineServer) handleEndRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.rounds.End(r.Context())
	if err != nil {
		writeResult(w, domain.ResultNoActiveRound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"round_id": round.ID})
}

type forceCaptureRequest struct {
	Team           string     `json:"team"`
	FortifiedUntil *time.Time `json:"fortified_until,omitempty"`
}

func (s *EngineServer) handleForceCapture(w http.ResponseWriter, r *http.Request) {
	var req forceCaptureRequest
	if !decode(w, r, &req) {
		return
	}
	var until time.Time
	if req.FortifiedUntil != nil {
		until = *req.FortifiedUntil
	}
	res := s.captures.ForceCapture(r.Context(), domain.RegionID(r.PathValue("id")), domain.Team(req.Team), until)
	writeResult(w, res)
}

func (s *EngineServer) handleResetRegion(w http.ResponseWriter, r *http.Request) {
	res := s.captures.ResetRegion(r.Context(), domain.RegionID(r.PathValue("id")))
	writeResult(w, res)
}

type setStateRequest struct {
	State string `json:"state"`
	Owner string `json:"owner,omitempty"`
}

func (s *EngineServer) handleSetState(w http.ResponseWriter, r *http.Request) {
	var req setStateRequest
	if !decode(w, r, &req) {
		return
	}
	res := s.captures.SetRegionState(r.Context(),
		domain.RegionID(r.PathValue("id")),
		domain.RegionState(req.State),
		domain.Team(req.Owner))
	writeResult(w, res)
}

type addDirectRequest struct {
	Team   string  `json:"team"`
	Amount float64 `json:"amount"`
	Actor  string  `json:"actor,omitempty"`
}

func (s *EngineServer) handleAddDirect(w http.ResponseWriter, r *http.Request) {
	var req addDirectRequest
	if !decode(w, r, &req) {
		return
	}
	res := s.influence.AddDirect(r.Context(),
		domain.RegionID(r.PathValue("id")),
		domain.Team(req.Team), req.Amount, req.Actor)
	writeResult(w, res)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, res domain.Result) {
	writeJSON(w, http.StatusOK, map[string]domain.Result{"result": res})
}
