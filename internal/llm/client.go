package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	HTTPClient *http.Client
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
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Question is a multiple-choice problem posed to the model.
type Question struct {
	Context  string
	Question string
	Options  []string
	Letters  []string // admissible answers, e.g. A..E
}

const chooseSystem = "You are a careful logical reasoner. Read the problem and reply with the letter of the single correct option, formatted as: Answer: X"

// ChooseOption asks the model for an answer letter. The reply must name
// exactly one of q.Letters.
func (c *Client) ChooseOption(ctx context.Context, q Question) (string, error) {
	if len(q.Letters) == 0 {
		return "", fmt.Errorf("llm: no admissible letters")
	}
	reply, err := c.Chat(ctx, chooseSystem, formatQuestion(q))
	if err != nil {
		return "", err
	}
	letter, ok := ExtractLetter(reply, q.Letters)
	if !ok {
		return "", fmt.Errorf("llm: no option letter in reply %q", truncate(reply, 80))
	}
	return letter, nil
}

func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	if c.BaseURL == "" || c.Model == "" {
		return "", fmt.Errorf("llm: base URL and model required")
	}
	messages := []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: user}}
	payload, err := c.send(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return payload.Choices[0].Message.Content, nil
}

func (c *Client) send(ctx context.Context, messages []chatMessage) (*chatResponse, error) {
	reqBody, err := json.Marshal(chatRequest{Model: c.Model, Messages: messages})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var payload chatResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("llm: http %d", resp.StatusCode)
		}
		return nil, err
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("llm error: %s", payload.Error.Message)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("llm: http %d", resp.StatusCode)
	}
	return &payload, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func formatQuestion(q Question) string {
	var buf bytes.Buffer
	if strings.TrimSpace(q.Context) != "" {
		fmt.Fprintf(&buf, "Context:\n%s\n\n", strings.TrimSpace(q.Context))
	}
	fmt.Fprintf(&buf, "Question: %s\nOptions:\n", strings.TrimSpace(q.Question))
	for _, opt := range q.Options {
		fmt.Fprintf(&buf, "%s\n", strings.TrimSpace(opt))
	}
	fmt.Fprintf(&buf, "\nChoose one of: %s.\n", strings.Join(q.Letters, ", "))
	return buf.String()
}

var (
	answerLine = regexp.MustCompile(`(?i)answer\s*(?:is)?\s*[:=]?\s*\(?([A-Z])\)?\b`)
	bareLetter = regexp.MustCompile(`\b\(?([A-Z])\)?\b`)
)

// ExtractLetter finds the chosen letter in a model reply. An explicit
// "Answer: X" wins; otherwise the reply must mention exactly one admissible
// letter.
func ExtractLetter(reply string, letters []string) (string, bool) {
	allowed := make(map[string]bool, len(letters))
	for _, l := range letters {
		allowed[l] = true
	}
	if m := answerLine.FindAllStringSubmatch(reply, -1); len(m) > 0 {
		l := strings.ToUpper(m[len(m)-1][1])
		if allowed[l] {
			return l, true
		}
	}
	seen := map[string]bool{}
	var found string
	for _, m := range bareLetter.FindAllStringSubmatch(reply, -1) {
		if allowed[m[1]] && !seen[m[1]] {
			seen[m[1]] = true
			found = m[1]
		}
	}
	if len(seen) == 1 {
		return found, true
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
