package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"pixelary/internal/app"
	"pixelary/internal/config"
	"pixelary/internal/store/sqlstore"

	"github.com/heroiclabs/nakama-common/runtime"
	_ "github.com/mattn/go-sqlite3"
)

func setupService(t *testing.T, words ...string) *sqlstore.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := sqlstore.InitDB(ctx, db); err != nil {
		t.Fatalf("init db: %v", err)
	}
	store := sqlstore.New(db)
	if len(words) > 0 {
		if _, err := store.AddWords(ctx, "default", "main", words); err != nil {
			t.Fatalf("add words: %v", err)
		}
	}

	settings := config.DefaultSettings()
	settings.ConfigCacheTTL = 0
	svc := app.NewService(settings, app.Deps{
		Counters: store,
		Pool:     store,
		Slates:   store,
		Config:   NewNakamaConfigAdapter(newFakeStorage()),
		Logger:   noopLogger{},
		Rng:      rand.New(rand.NewSource(1)),
	})
	wordSlates = svc
	t.Cleanup(func() {
		svc.Close()
		wordSlates = nil
	})
	return store
}

func userCtx(userID string) context.Context {
	return context.WithValue(context.Background(), runtime.RUNTIME_CTX_USER_ID, userID)
}

func TestRpcGetCandidates_EmptyPool(t *testing.T) {
	setupService(t)

	raw, err := RpcGetCandidates(userCtx("user-1"), noopLogger{}, nil, nil, "")
	if err != nil {
		t.Fatalf("RpcGetCandidates error: %v", err)
	}
	var resp struct {
		SlateID    string            `json:"slateId"`
		Candidates []json.RawMessage `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.SlateID == "" || len(resp.Candidates) != 3 {
		t.Fatalf("Expected slate id and three slots, got %s", raw)
	}
	for i, c := range resp.Candidates {
		if string(c) != "null" {
			t.Fatalf("slot %d = %s, want null", i, c)
		}
	}
}

func TestRpcTrackAction_ImpressionReflectedInStats(t *testing.T) {
	store := setupService(t, "cat", "dog", "tree", "moon")
	ctx := userCtx("user-1")

	raw, err := RpcGetCandidates(ctx, noopLogger{}, nil, nil, "")
	if err != nil {
		t.Fatalf("RpcGetCandidates error: %v", err)
	}
	var slate app.CandidatesResponse
	if err := json.Unmarshal([]byte(raw), &slate); err != nil {
		t.Fatalf("unmarshal slate: %v", err)
	}

	payload, _ := json.Marshal(app.TrackRequest{SlateID: slate.SlateID, Action: "impression"})
	ack, err := RpcTrackAction(ctx, noopLogger{}, nil, nil, string(payload))
	if err != nil || ack != `{"ok":true}` {
		t.Fatalf("Expected ok ack, got %s, %v", ack, err)
	}
	wordSlates.Close()

	words := make([]string, 0, 3)
	for _, c := range slate.Candidates {
		words = append(words, c.Word)
	}
	counters, err := store.Counters(context.Background(), "default", words)
	if err != nil {
		t.Fatalf("read counters: %v", err)
	}
	for _, w := range words {
		if counters[w].Served != 1 {
			t.Fatalf("served[%s] = %d, want 1", w, counters[w].Served)
		}
	}

	statsRaw, err := RpcGetWordStats(ctx, noopLogger{}, nil, nil, `{"limit":10}`)
	if err != nil {
		t.Fatalf("RpcGetWordStats error: %v", err)
	}
	var stats app.WordStatsResponse
	if err := json.Unmarshal([]byte(statsRaw), &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.PoolSize != 4 || len(stats.ByScore) != 4 || len(stats.ByUncertainty) != 4 {
		t.Fatalf("Unexpected stats %s", statsRaw)
	}
}

func TestRpcTrackAction_MalformedPayloadIsAcknowledged(t *testing.T) {
	setupService(t)

	for _, payload := range []string{`{not json`, `{"slateId":"s","action":"wave"}`} {
		ack, err := RpcTrackAction(userCtx("user-1"), noopLogger{}, nil, nil, payload)
		if err != nil {
			t.Fatalf("Expected no error for %s, got %v", payload, err)
		}
		if ack != `{"ok":false}` {
			t.Fatalf("ack = %s, want ok=false", ack)
		}
	}
}

func TestRpcRecordOutcome(t *testing.T) {
	store := setupService(t, "cat")

	ack, err := RpcRecordOutcome(userCtx("user-1"), noopLogger{}, nil, nil, `{"word":"Cat","outcome":"skip"}`)
	if err != nil || ack != `{"ok":true}` {
		t.Fatalf("Expected ok ack, got %s, %v", ack, err)
	}
	wordSlates.Close()

	counters, err := store.Counters(context.Background(), "default", []string{"cat"})
	if err != nil {
		t.Fatalf("read counters: %v", err)
	}
	if counters["cat"].Skips != 1 {
		t.Fatalf("skips[cat] = %d, want 1", counters["cat"].Skips)
	}
}

func TestRpcGetWordStats_RejectsBadLimit(t *testing.T) {
	setupService(t)

	_, err := RpcGetWordStats(context.Background(), noopLogger{}, nil, nil, `{"limit":-1}`)
	if err == nil {
		t.Fatal("Expected an error for a negative limit")
	}
	rtErr, ok := err.(*runtime.Error)
	if !ok || rtErr.Code != codeInvalidArgument {
		t.Fatalf("Expected invalid argument, got %v", err)
	}
}

func TestRpcBanditConfig_ReadAndServerUpdate(t *testing.T) {
	setupService(t)

	raw, err := RpcBanditConfig(userCtx("user-1"), noopLogger{}, nil, nil, "")
	if err != nil {
		t.Fatalf("read config error: %v", err)
	}
	var cfg config.BanditConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	if cfg.ExplorationRate != config.DefaultExplorationRate {
		t.Fatalf("ExplorationRate = %v, want default", cfg.ExplorationRate)
	}

	_, err = RpcBanditConfig(userCtx("user-1"), noopLogger{}, nil, nil, `{"explorationRate":0.5}`)
	rtErr, ok := err.(*runtime.Error)
	if !ok || rtErr.Code != codePermissionDenied {
		t.Fatalf("Expected permission denied for client update, got %v", err)
	}

	raw, err = RpcBanditConfig(context.Background(), noopLogger{}, nil, nil, `{"explorationRate":1.5,"weightPostRate":2}`)
	if err != nil {
		t.Fatalf("server update error: %v", err)
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	if cfg.ExplorationRate != 1 || cfg.WeightPostRate != 2 || cfg.Version != 1 {
		t.Fatalf("Expected clamped v1 config, got %+v", cfg)
	}
	if cfg.UpdatedAt.After(time.Now().Add(time.Second)) {
		t.Fatalf("Unexpected UpdatedAt %v", cfg.UpdatedAt)
	}
}

func TestRpc_Uninitialised(t *testing.T) {
	wordSlates = nil

	if _, err := RpcGetCandidates(context.Background(), noopLogger{}, nil, nil, ""); err == nil {
		t.Fatal("Expected an error before InitModule")
	}
	ack, err := RpcTrackAction(context.Background(), noopLogger{}, nil, nil, `{}`)
	if err != nil || ack != `{"ok":false}` {
		t.Fatalf("Expected tracking to stay best-effort, got %s, %v", ack, err)
	}
}

type fakeInitializer struct {
	runtime.Initializer
	rpcs map[string]bool
}

func (f *fakeInitializer) RegisterRpc(id string, fn func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)) error {
	f.rpcs[id] = true
	return nil
}

func TestRegisterRPCs(t *testing.T) {
	initializer := &fakeInitializer{rpcs: make(map[string]bool)}
	if err := RegisterRPCs(initializer); err != nil {
		t.Fatalf("RegisterRPCs error: %v", err)
	}
	for _, id := range []string{RpcWordSlateCandidates, RpcWordSlateTrack, RpcWordSlateStats, RpcWordSlateOutcome, RpcWordSlateConfig} {
		if !initializer.rpcs[id] {
			t.Fatalf("RPC %s not registered", id)
		}
	}
}

func TestLoadSettings_FromEnv(t *testing.T) {
	s, err := loadSettings(map[string]string{config.EnvNamespace: "eu", config.EnvDictionaries: "main, seasonal"})
	if err != nil {
		t.Fatalf("loadSettings error: %v", err)
	}
	if s.Namespace != "eu" || len(s.Dictionaries) != 2 || s.Dictionaries[1] != "seasonal" {
		t.Fatalf("Unexpected settings %+v", s)
	}
	if _, err := loadSettings(map[string]string{config.EnvConfigPath: "/does/not/exist.json"}); err == nil {
		t.Fatal("Expected an error for a missing settings file")
	}
}
