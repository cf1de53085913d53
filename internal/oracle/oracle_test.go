package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParsePatchPlainJSON(t *testing.T) {
	p, err := ParsePatch(`{"min_duration": 150, "quantize": true}`)
	if err != nil {
		t.Fatalf("ParsePatch: %v", err)
	}
	if p.MinDuration == nil || *p.MinDuration != 150 {
		t.Errorf("min duration = %v", p.MinDuration)
	}
	if p.Quantize == nil || !*p.Quantize {
		t.Errorf("quantize = %v", p.Quantize)
	}
	if p.MinVelocity != nil {
		t.Error("unset field came back non-nil")
	}
}

func TestParsePatchStripsCodeFence(t *testing.T) {
	answer := "```json\n{\"min_velocity\": 25}\n```"
	p, err := ParsePatch(answer)
	if err != nil {
		t.Fatalf("ParsePatch: %v", err)
	}
	if p.MinVelocity == nil || *p.MinVelocity != 25 {
		t.Errorf("min velocity = %v", p.MinVelocity)
	}

	// Bare fence without a language tag.
	p, err = ParsePatch("```\n{\"cluster_window\": 30}\n```")
	if err != nil {
		t.Fatalf("ParsePatch bare fence: %v", err)
	}
	if p.ClusterWindow == nil || *p.ClusterWindow != 30 {
		t.Errorf("cluster window = %v", p.ClusterWindow)
	}
}

func TestParsePatchRejectsGarbage(t *testing.T) {
	for _, answer := range []string{
		"sure, try lowering the velocity floor",
		"{broken",
		"",
	} {
		if _, err := ParsePatch(answer); err == nil {
			t.Errorf("ParsePatch(%q) accepted", answer)
		}
	}
}

func TestParsePatchRejectsEmptyObject(t *testing.T) {
	if _, err := ParsePatch(`{}`); err == nil {
		t.Error("empty patch accepted")
	}
	// Unknown keys alone are equivalent to an empty patch.
	if _, err := ParsePatch(`{"temperature": 0.7}`); err == nil {
		t.Error("patch with only unknown keys accepted")
	}
}

func TestClientSuggest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}
		resp := chatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message chatMessage `json:"message"`
		}{Message: chatMessage{Role: "assistant", Content: `{"min_duration": 90}`}})
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", "test-key")
	p, err := c.Suggest(context.Background(), Context{TrackType: "polyphonic"})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if p.MinDuration == nil || *p.MinDuration != 90 {
		t.Errorf("patch = %+v", p)
	}
}

func TestClientSuggestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", "")
	if _, err := c.Suggest(context.Background(), Context{}); err == nil {
		t.Error("Suggest swallowed a 503")
	}
}

func TestMockAdvisor(t *testing.T) {
	v := 10
	m := &Mock{Patch: &Patch{MinVelocity: &v}}
	p, err := m.Suggest(context.Background(), Context{})
	if err != nil || p.MinVelocity == nil || *p.MinVelocity != 10 {
		t.Errorf("Suggest = %+v, %v", p, err)
	}
	if m.Calls != 1 {
		t.Errorf("Calls = %d", m.Calls)
	}
}
