package nakama

const (
	// RpcWordSlateCandidates returns a fresh slate of candidate words.
	RpcWordSlateCandidates = "word_slate_candidates"
	// RpcWordSlateTrack records an impression, click or publish against a slate.
	RpcWordSlateTrack = "word_slate_track"
	// RpcWordSlateStats returns the top words by score and by uncertainty.
	RpcWordSlateStats = "word_slate_stats"
	// RpcWordSlateOutcome records a guess, skip or solve for a drawn word.
	RpcWordSlateOutcome = "word_slate_outcome"
	// RpcWordSlateConfig reads the bandit parameters, or updates them from server-to-server calls.
	RpcWordSlateConfig = "word_slate_config"
)

const (
	// SystemUserID owns engine-wide storage objects.
	SystemUserID = "00000000-0000-0000-0000-000000000000"

	banditConfigCollection = "word_slate_config"
	lockCollection         = "word_slate_locks"
)

// gRPC status codes used with runtime.NewError.
const (
	codeInvalidArgument  = 3
	codePermissionDenied = 7
	codeInternal         = 13
	codeUnavailable      = 14
)
