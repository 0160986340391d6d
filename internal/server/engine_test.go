package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"territory-engine/internal/database"
	"territory-engine/internal/domain"
	"territory-engine/internal/limiter"
	"territory-engine/internal/repository"
	"territory-engine/internal/service"
	"territory-engine/internal/tuning"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := zerolog.Nop()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), log)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tn := tuning.Default()
	guard := limiter.New()
	regionRepo := repository.NewRegionRepository(db, log)
	rounds := service.NewRoundService(repository.NewRoundRepository(db, log), regionRepo, guard, tn, log)
	captures := service.NewCaptureService(regionRepo, rounds, tn, log)
	influence := service.NewInfluenceService(
		captures, rounds, regionRepo,
		repository.NewContributionRepository(db, log),
		repository.NewRepeatKillRepository(db, log),
		repository.NewRateLimitRepository(db, log),
		guard, tn, log)
	queries := service.NewQueryService(rounds, regionRepo, tn, service.NewBinarySupplyModel(), log)

	srv := httptest.NewServer(NewEngineServer(influence, captures, queries, rounds, log).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, body any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post %s status = %d", url, resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func get(t *testing.T, url string, dst any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get %s status = %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestIngestionAndQueryRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	out := post(t, srv.URL+"/v1/admin/rounds", map[string]string{"home_red": "A1", "home_blue": "D4"})
	if out["round_id"] == "" {
		t.Fatalf("round init returned %v", out)
	}

	// A kill in a frontline region accrues points.
	out = post(t, srv.URL+"/v1/events/kill", map[string]any{
		"player_id": "p1", "victim_id": "v1", "region": "A2", "team": "red",
	})
	if out["result"] != string(domain.ResultSuccess) {
		t.Fatalf("kill result = %v", out["result"])
	}
	if out["points"].(float64) != 50 {
		t.Fatalf("kill points = %v, want 50", out["points"])
	}

	var region struct {
		Region       string  `json:"region"`
		State        string  `json:"state"`
		InfluenceRed float64 `json:"influence_red"`
	}
	get(t, srv.URL+"/v1/regions/A2", &region)
	if region.InfluenceRed != 50 || region.State != string(domain.StateNeutral) {
		t.Fatalf("region after kill = %+v", region)
	}

	// Rule violations are 200s carrying the result code.
	out = post(t, srv.URL+"/v1/events/kill", map[string]any{
		"player_id": "p1", "victim_id": "v1", "region": "C3", "team": "red",
	})
	if out["result"] != string(domain.ResultNotAdjacent) {
		t.Fatalf("isolated kill result = %v, want NOT_ADJACENT", out["result"])
	}
}

func TestAdminForceCaptureFlow(t *testing.T) {
	srv := newTestServer(t)
	post(t, srv.URL+"/v1/admin/rounds", map[string]string{"home_red": "A1", "home_blue": "D4"})

	out := post(t, srv.URL+"/v1/admin/regions/A2/capture", map[string]string{"team": "red"})
	if out["result"] != string(domain.ResultSuccess) {
		t.Fatalf("force capture = %v", out["result"])
	}

	var region struct {
		Owner         string `json:"owner"`
		State         string `json:"state"`
		TimesCaptured int    `json:"times_captured"`
	}
	get(t, srv.URL+"/v1/regions/A2", &region)
	if region.Owner != "red" || region.State != string(domain.StateFortified) || region.TimesCaptured != 1 {
		t.Fatalf("captured region = %+v", region)
	}

	var owned []struct {
		Region string `json:"region"`
	}
	get(t, srv.URL+"/v1/teams/red/regions", &owned)
	if len(owned) != 2 { // home + captured
		t.Fatalf("red regions = %d, want 2", len(owned))
	}
}

func TestSupplyEndpoint(t *testing.T) {
	srv := newTestServer(t)
	post(t, srv.URL+"/v1/admin/rounds", map[string]string{"home_red": "A1", "home_blue": "D4"})
	post(t, srv.URL+"/v1/admin/regions/A2/state", map[string]string{"state": "owned", "owner": "red"})

	var supply struct {
		Connected  bool    `json:"connected"`
		Distance   int     `json:"distance"`
		Efficiency float64 `json:"efficiency"`
	}
	get(t, srv.URL+"/v1/regions/A2/supply?team=red", &supply)
	if !supply.Connected || supply.Distance != 1 || supply.Efficiency != 1.0 {
		t.Fatalf("supply = %+v, want connected at distance 1", supply)
	}

	get(t, srv.URL+"/v1/regions/C4/supply?team=red", &supply)
	if supply.Connected || supply.Efficiency != 0.0 {
		t.Fatalf("unsupplied = %+v, want disconnected", supply)
	}
}

func TestUnknownTeamIsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	post(t, srv.URL+"/v1/admin/rounds", map[string]string{"home_red": "A1", "home_blue": "D4"})

	resp, err := http.Get(srv.URL + "/v1/regions/A2/supply?team=green")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown team status = %d, want 400", resp.StatusCode)
	}
}
