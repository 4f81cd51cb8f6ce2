package job

// Approximate Replicate pricing in USD.
const (
	costPerFrame           = 0.002
	costLipSyncPerSecond   = 0.16
	costVeoAudioPerSecond  = 0.40
	costVeoSilentPerSecond = 0.20
)

// MaxLipSyncSeconds is the longest audio the lip-sync model handles reliably.
const MaxLipSyncSeconds = 35.0

// speechCharsPerSecond approximates how fast synthesized speech reads text.
const speechCharsPerSecond = 15.0

// EstimateCost returns the approximate cost of a job and whether the kind
// has a known price. frames applies to keyframe jobs, seconds to lip-sync
// and Veo jobs, withAudio to Veo only.
func EstimateCost(kind Kind, frames int, seconds float64, withAudio bool) (float64, bool) {
	switch kind {
	case KindKeyframe:
		return float64(frames) * costPerFrame, true
	case KindLipSync, KindTTSLipSync:
		return seconds * costLipSyncPerSecond, true
	case KindVeo:
		if withAudio {
			return seconds * costVeoAudioPerSecond, true
		}
		return seconds * costVeoSilentPerSecond, true
	default:
		return 0, false
	}
}
