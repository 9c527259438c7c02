package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
)

type routerReply struct {
	Agents    []routerAgent `json:"agents"`
	Reasoning string        `json:"reasoning"`
}

type routerAgent struct {
	Name         string      `json:"name"`
	Query        string      `json:"query"`
	Dependencies stringOrArr `json:"dependencies"`
}

// stringOrArr accepts null, a single string or an array of strings.
type stringOrArr []string

func (s *stringOrArr) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		if one = strings.TrimSpace(one); one != "" {
			*s = stringOrArr{one}
		} else {
			*s = nil
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// parseRouterReply decodes the router model's reply, tolerating Markdown
// code fences and prose around the JSON object.
func parseRouterReply(raw string) (routerReply, error) {
	text := stripCodeFence(raw)
	if text == "" {
		return routerReply{}, fmt.Errorf("%w: empty reply", contractx.ErrPlanParse)
	}

	var reply routerReply
	err := json.Unmarshal([]byte(text), &reply)
	if err != nil {
		obj := extractJSONObject(text)
		if obj == "" {
			return routerReply{}, fmt.Errorf("%w: %v", contractx.ErrPlanParse, err)
		}
		reply = routerReply{}
		if err := json.Unmarshal([]byte(obj), &reply); err != nil {
			return routerReply{}, fmt.Errorf("%w: %v", contractx.ErrPlanParse, err)
		}
	}
	if len(reply.Agents) == 0 {
		return reply, fmt.Errorf("%w: agents is empty", contractx.ErrPlanParse)
	}
	return reply, nil
}

func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	// drop the language hint, e.g. json
	if idx := strings.IndexByte(t, '\n'); idx != -1 {
		t = t[idx+1:]
	} else {
		t = strings.TrimPrefix(strings.TrimSpace(t), "json")
	}
	if j := strings.LastIndex(t, "```"); j != -1 {
		t = t[:j]
	}
	return strings.TrimSpace(t)
}

// extractJSONObject returns the first balanced {...} in s, honouring
// string literals, or "" when there is none.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
