package session

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format selects the payload shape written by Encode.
type Format int

const (
	// FormatHook wraps the rendered text in the host's hook envelope.
	FormatHook Format = iota

	// FormatJSON writes the structured Context.
	FormatJSON
)

var formatNames = map[Format]string{
	FormatHook: "hook",
	FormatJSON: "json",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFormat maps a flag value to a Format. The empty string is hook.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hook":
		return FormatHook, nil
	case "json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("unknown output format %q (want hook or json)", s)
}

// HookEvent is the event name of the session-start envelope.
const HookEvent = "SessionStart"

type hookOutput struct {
	HookSpecificOutput hookSpecificOutput `json:"hookSpecificOutput"`
}

type hookSpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

func envelope(text string) hookOutput {
	return hookOutput{HookSpecificOutput: hookSpecificOutput{
		HookEventName:     HookEvent,
		AdditionalContext: text,
	}}
}

// Encode writes exactly one JSON document for c, indented two spaces.
func Encode(w io.Writer, c Context, format Format) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	switch format {
	case FormatHook:
		return enc.Encode(envelope(Render(c)))
	case FormatJSON:
		return enc.Encode(c)
	}
	return fmt.Errorf("unknown output format %d", format)
}

// EncodeFatal writes the single-line envelope reporting a failed run.
func EncodeFatal(w io.Writer, err error) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(envelope("ERROR: uni session start failed: " + err.Error()))
}
