package streamhttp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rodrigoscoelho/mcp-anywhere-sub002/pkg/shared/mcpwire"
)

// dataMarker prefixes every payload line in a text/event-stream body.
const dataMarker = "data:"

// DecodeEventStream parses a complete event-stream body into the JSON-RPC
// envelopes carried by its data lines. The body is fully buffered before the
// call, so this is a pure function: decoding the same body twice yields the
// same envelopes.
//
// Per the SSE format, consecutive data lines within one event are joined with
// a newline and the event ends at a blank line. Events whose payload is not a
// JSON-RPC envelope (keep-alives, partial frames, unrelated event types) are
// skipped rather than treated as errors; the caller decides whether the
// surviving envelopes are sufficient.
func DecodeEventStream(body []byte) []mcpwire.Response {
	var (
		envelopes []mcpwire.Response
		data      []string
	)

	flush := func() {
		if len(data) == 0 {
			return
		}
		payload := strings.Join(data, "\n")
		data = data[:0]

		var env mcpwire.Response
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			return
		}
		if env.Version != mcpwire.Version {
			return
		}
		envelopes = append(envelopes, env)
	}

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			flush()
			continue
		}
		if !strings.HasPrefix(line, dataMarker) {
			// event:/id:/retry: fields and comments carry no payload.
			continue
		}
		value := line[len(dataMarker):]
		value = strings.TrimPrefix(value, " ")
		data = append(data, value)
	}
	flush()

	return envelopes
}

// firstMatching returns the first envelope correlated to the given request
// id. Later duplicate or partial envelopes for the same id are ignored.
func firstMatching(envelopes []mcpwire.Response, id interface{}) (*mcpwire.Response, bool) {
	for i := range envelopes {
		if envelopes[i].Matches(id) {
			return &envelopes[i], true
		}
	}
	return nil, false
}
