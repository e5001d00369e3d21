// Package clip contains the clip domain: webhook request validation, the
// persisted clip model, stream-offset math, and the ingestion service tying
// them together.
package clip

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedTimestamp reports an offset string that is not MM:SS or H:MM:SS.
// It indicates a data or logic defect; offsets produced by FormatOffset always parse.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// FormatOffset renders the stream-relative position of a captured moment.
// The capture instant is shifted back by the submitter-supplied delay, then
// measured against the broadcast start. A clip captured before the recorded
// start clamps to zero rather than going negative (scheduled vs actual start
// discrepancies make this a normal case, not an error).
//
// Offsets of an hour or more render as H:MM:SS (hours unpadded); shorter
// offsets render as MM:SS.
func FormatOffset(start, capture time.Time, delaySeconds int) string {
	elapsed := ElapsedSeconds(start, capture, delaySeconds)
	h := elapsed / 3600
	m := (elapsed % 3600) / 60
	s := elapsed % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// ElapsedSeconds is the clamped whole-second stream position FormatOffset
// renders: capture shifted back by the delay, measured against start, never
// negative.
func ElapsedSeconds(start, capture time.Time, delaySeconds int) int {
	adjusted := capture.Add(-time.Duration(delaySeconds) * time.Second)
	elapsed := int(adjusted.Sub(start) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

// OffsetSeconds parses an offset produced by FormatOffset back into whole
// seconds. Two components are minutes:seconds, three are hours:minutes:seconds.
func OffsetSeconds(text string) (int, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q has %d components", ErrMalformedTimestamp, text, len(parts))
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q component %q", ErrMalformedTimestamp, text, p)
		}
		nums[i] = n
	}
	if len(nums) == 2 {
		return nums[0]*60 + nums[1], nil
	}
	return nums[0]*3600 + nums[1]*60 + nums[2], nil
}
