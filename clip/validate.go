package clip

import (
	"regexp"
	"strconv"
	"strings"
)

// RejectKind classifies why a webhook request was rejected.
type RejectKind int

const (
	// RejectMissingParameter: a required field is absent/empty or delay is non-numeric.
	RejectMissingParameter RejectKind = iota
	// RejectUnresolvedPlaceholder: an identifier still carries a bot template variable.
	RejectUnresolvedPlaceholder
	// RejectInvalidIdentifier: chat or channel id fails the platform shape checks.
	RejectInvalidIdentifier
)

func (k RejectKind) String() string {
	switch k {
	case RejectMissingParameter:
		return "missing_parameter"
	case RejectUnresolvedPlaceholder:
		return "unresolved_placeholder"
	case RejectInvalidIdentifier:
		return "invalid_identifier"
	default:
		return "unknown"
	}
}

// ValidationError is returned for malformed requests. It maps to a 400 at the
// webhook boundary; nothing has been persisted when it is returned.
type ValidationError struct {
	Kind   RejectKind
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Request carries the raw webhook parameters. Delay stays a string until
// validation so a non-numeric value can be rejected rather than zeroed.
type Request struct {
	User      string
	ChannelID string
	ChatID    string
	Message   string
	Delay     string
}

// placeholders are the Nightbot template variables that arrive verbatim when
// the bot fails to resolve them. Exact string match, case preserved.
var placeholders = map[string]bool{
	"$(user)":        true,
	"$(chatid)":      true,
	"$(channelid)":   true,
	"$(querystring)": true,
}

var channelIDPattern = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)

const minChatIDLen = 22

// Validate checks the request and returns the parsed delay in seconds.
// It has no side effects and is deterministic.
func (r Request) Validate() (int, error) {
	if strings.TrimSpace(r.User) == "" || strings.TrimSpace(r.ChannelID) == "" || strings.TrimSpace(r.ChatID) == "" {
		return 0, &ValidationError{Kind: RejectMissingParameter, Reason: "Missing parameters"}
	}
	delay, err := strconv.Atoi(strings.TrimSpace(r.Delay))
	if err != nil {
		return 0, &ValidationError{Kind: RejectMissingParameter, Reason: "Missing parameters"}
	}
	if delay < 0 {
		return 0, &ValidationError{Kind: RejectMissingParameter, Reason: "Delay must be non-negative"}
	}
	for _, v := range []string{r.User, r.ChannelID, r.ChatID} {
		if placeholders[v] {
			return 0, &ValidationError{Kind: RejectUnresolvedPlaceholder, Reason: "Nightbot variables unresolved"}
		}
	}
	if len(r.ChatID) < minChatIDLen || !channelIDPattern.MatchString(r.ChannelID) {
		return 0, &ValidationError{Kind: RejectInvalidIdentifier, Reason: "Invalid IDs"}
	}
	return delay, nil
}
