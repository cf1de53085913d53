// Package oracle asks an external language model for cleaning-parameter
// suggestions when the tuner stalls. The oracle is strictly advisory: a
// failed call or an unparseable answer never interrupts a tuning run.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Patch is the set of parameter changes the oracle may suggest. All
// fields are optional; anything outside this allow-list in the model's
// answer is ignored by the decoder.
type Patch struct {
	MinDuration      *int     `json:"min_duration,omitempty"`
	MinVelocity      *int     `json:"min_velocity,omitempty"`
	ClusterWindow    *int     `json:"cluster_window,omitempty"`
	ClusterPitch     *int     `json:"cluster_pitch,omitempty"`
	TripletTolerance *float64 `json:"triplet_tolerance,omitempty"`
	Quantize         *bool    `json:"quantize,omitempty"`
	RemoveTriplets   *bool    `json:"remove_triplets,omitempty"`
	MergeVoices      *bool    `json:"merge_voices,omitempty"`
}

func (p *Patch) empty() bool {
	return p.MinDuration == nil && p.MinVelocity == nil &&
		p.ClusterWindow == nil && p.ClusterPitch == nil &&
		p.TripletTolerance == nil && p.Quantize == nil &&
		p.RemoveTriplets == nil && p.MergeVoices == nil
}

// TrialSummary is one past trial as shown to the oracle.
type TrialSummary struct {
	Trial       int     `json:"trial"`
	Score       float64 `json:"score"`
	MinDuration int     `json:"min_duration"`
	MinVelocity int     `json:"min_velocity"`
}

// Context is everything the oracle sees about the stalled run.
type Context struct {
	TrackType    string         `json:"track_type"`
	BestScore    float64        `json:"best_score"`
	NotesBefore  int            `json:"notes_before"`
	NotesAfter   int            `json:"notes_after"`
	RecentTrials []TrialSummary `json:"recent_trials"`
	TopIssues    []string       `json:"top_issues,omitempty"`
}

// Decision records one oracle consultation for the status report.
type Decision struct {
	CallNumber       int    `json:"call_number" yaml:"call_number"`
	SuggestedChanges string `json:"suggested_changes" yaml:"suggested_changes"`
	ParsedOK         bool   `json:"parsed_ok" yaml:"parsed_ok"`
	Error            string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Advisor produces a parameter patch for a stalled tuning run.
type Advisor interface {
	Suggest(ctx context.Context, c Context) (*Patch, error)
}

const systemPrompt = `You tune MIDI cleaning parameters. Given trial history and note
statistics, answer with a single JSON object choosing new values for any
of: min_duration, min_velocity, cluster_window, cluster_pitch,
triplet_tolerance, quantize, remove_triplets, merge_voices.
Answer with JSON only, no prose.`

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	URL    string
	Model  string
	APIKey string
	HTTP   *http.Client
}

// NewClient builds a client with a request timeout suited for
// interactive tuning.
func NewClient(url, model, apiKey string) *Client {
	return &Client{
		URL:    url,
		Model:  model,
		APIKey: apiKey,
		HTTP:   &http.Client{Timeout: 30 * time.Second},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Suggest sends the run context to the model and parses its patch.
func (c *Client) Suggest(ctx context.Context, oc Context) (*Patch, error) {
	user, err := json.Marshal(oc)
	if err != nil {
		return nil, fmt.Errorf("encoding oracle context: %v", err)
	}
	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(user)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding oracle request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("oracle returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decoding oracle response: %v", err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("oracle returned no choices")
	}
	return ParsePatch(cr.Choices[0].Message.Content)
}

// ParsePatch extracts a Patch from a model answer. Markdown code fences
// around the JSON are tolerated; an answer that sets no known field is
// an error.
func ParsePatch(answer string) (*Patch, error) {
	text := strings.TrimSpace(answer)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}
	var p Patch
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, fmt.Errorf("parsing oracle patch: %v", err)
	}
	if p.empty() {
		return nil, fmt.Errorf("oracle patch sets no known parameter")
	}
	return &p, nil
}

// Mock is a canned advisor for tests.
type Mock struct {
	Patch *Patch
	Err   error
	Calls int
}

func (m *Mock) Suggest(ctx context.Context, c Context) (*Patch, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Patch, nil
}
