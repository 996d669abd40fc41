package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"pixelary/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// wordSlates is set by InitModule; tests replace it directly.
var wordSlates *app.Service

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	rpcs := map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error){
		RpcWordSlateCandidates: RpcGetCandidates,
		RpcWordSlateTrack:      RpcTrackAction,
		RpcWordSlateStats:      RpcGetWordStats,
		RpcWordSlateOutcome:    RpcRecordOutcome,
		RpcWordSlateConfig:     RpcBanditConfig,
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return err
		}
	}
	return nil
}

// RpcGetCandidates returns a slate of three word slots.
// Payload: unused.
// Returns: {"slateId": "...", "candidates": [{"word": "...", "dictionaryName": "..."} | null x3]}
func RpcGetCandidates(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	svc, err := service()
	if err != nil {
		return "", err
	}
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	resp, err := svc.GetCandidates(ctx)
	if err != nil {
		logger.Error("RpcGetCandidates [User:%s]: Failed to select words: %v", userID, err)
		return "", runtime.NewError("Failed to select words", codeInternal)
	}
	return marshal(logger, resp)
}

// RpcTrackAction records a slate action. It is best-effort and never fails the
// caller; a malformed payload is acknowledged with ok=false.
// Payload: {"slateId": "...", "action": "impression|click|publish", "word": "...", "metadata": {...}}
func RpcTrackAction(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	svc, err := service()
	if err != nil {
		return marshal(logger, app.TrackResponse{OK: false})
	}

	var req app.TrackRequest
	if err := decodePayload(payload, &req); err != nil {
		logger.Warn("RpcTrackAction: Invalid payload: %v", err)
		return marshal(logger, app.TrackResponse{OK: false})
	}
	return marshal(logger, svc.TrackAction(ctx, req))
}

// RpcRecordOutcome records a guess, skip or solve for a drawn word, best-effort.
// Payload: {"word": "...", "dictionaryName": "...", "outcome": "guess|skip|solve"}
func RpcRecordOutcome(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	svc, err := service()
	if err != nil {
		return marshal(logger, app.TrackResponse{OK: false})
	}

	var req app.OutcomeRequest
	if err := decodePayload(payload, &req); err != nil {
		logger.Warn("RpcRecordOutcome: Invalid payload: %v", err)
		return marshal(logger, app.TrackResponse{OK: false})
	}
	return marshal(logger, svc.RecordOutcome(ctx, req))
}

// RpcGetWordStats returns the diagnostic top-N lists.
// Payload: {"limit": 10} (optional)
func RpcGetWordStats(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	svc, err := service()
	if err != nil {
		return "", err
	}

	var req app.StatsRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", runtime.NewError("Invalid payload", codeInvalidArgument)
	}
	resp, err := svc.GetWordStats(ctx, req)
	if errors.Is(err, app.ErrInvalidRequest) {
		return "", runtime.NewError(err.Error(), codeInvalidArgument)
	}
	if err != nil {
		logger.Error("RpcGetWordStats: Failed to build stats: %v", err)
		return "", runtime.NewError("Failed to build stats", codeInternal)
	}
	return marshal(logger, resp)
}

// RpcBanditConfig returns the bandit parameters. A non-empty payload is a
// patch and is only accepted from server-to-server calls, which carry no user id.
// Payload: {"explorationRate": 0.2, "zScoreClamp": 3, "weightPickRate": 1, "weightPostRate": 1} (all optional)
func RpcBanditConfig(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	svc, err := service()
	if err != nil {
		return "", err
	}

	var patch app.ConfigPatch
	if err := decodePayload(payload, &patch); err != nil {
		return "", runtime.NewError("Invalid payload", codeInvalidArgument)
	}

	if patch == (app.ConfigPatch{}) {
		cfg, err := svc.GetConfig(ctx)
		if err != nil {
			logger.Error("RpcBanditConfig: Failed to read config: %v", err)
			return "", runtime.NewError("Failed to read config", codeInternal)
		}
		return marshal(logger, cfg)
	}

	if userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string); userID != "" {
		logger.Warn("RpcBanditConfig [User:%s]: Rejected config update from client session", userID)
		return "", runtime.NewError("Config updates are server-to-server only", codePermissionDenied)
	}

	cfg, err := svc.UpdateConfig(ctx, patch)
	if err != nil {
		logger.Error("RpcBanditConfig: Failed to update config: %v", err)
		return "", runtime.NewError("Failed to update config", codeInternal)
	}
	return marshal(logger, cfg)
}

func service() (*app.Service, error) {
	if wordSlates == nil {
		return nil, runtime.NewError("Word slate engine not initialised", codeUnavailable)
	}
	return wordSlates, nil
}

// decodePayload treats an empty payload as an empty object.
func decodePayload(payload string, v any) error {
	if strings.TrimSpace(payload) == "" {
		return nil
	}
	return json.Unmarshal([]byte(payload), v)
}

func marshal(logger runtime.Logger, v any) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to marshal response: %v", err)
		return "", runtime.NewError("Internal error", codeInternal)
	}
	return string(out), nil
}
