package queue

import "github.com/nikhilbhutani/lifereview/internal/ttscache"

const (
	TypeTTSWarm = "tts:warm"
)

// TTSWarmPayload asks a worker to pre-generate audio. Empty Items means the
// standard interview set.
type TTSWarmPayload struct {
	Voice string              `json:"voice"`
	Items []ttscache.WarmItem `json:"items,omitempty"`
}
