package llm

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func reply(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestChooseOptionSuccess(t *testing.T) {
	client := &Client{
		BaseURL: "https://api.test/v1/chat/completions",
		Model:   "gpt-test",
		APIKey:  "secret",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				if got := req.Header.Get("Authorization"); got != "Bearer secret" {
					t.Fatalf("unexpected auth header %q", got)
				}
				body, _ := io.ReadAll(req.Body)
				for _, want := range []string{"Context:", "Question: Which is true?", "B) Bob is red", "Choose one of: A, B, C"} {
					if !strings.Contains(string(body), want) {
						t.Fatalf("expected %q in payload: %s", want, body)
					}
				}
				return reply(200, `{
					"choices":[{"message":{"role":"assistant","content":"Bob is red follows.\nAnswer: B"}}]
				}`)
			}),
		},
	}

	out, err := client.ChooseOption(context.Background(), Question{
		Context:  "Bob is big. Big things are red.",
		Question: "Which is true?",
		Options:  []string{"A) Bob is blue", "B) Bob is red", "C) Unknown"},
		Letters:  []string{"A", "B", "C"},
	})
	if err != nil {
		t.Fatalf("ChooseOption: %v", err)
	}
	if out != "B" {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestChooseOptionError(t *testing.T) {
	client := &Client{
		BaseURL: "https://api.test/v1/chat/completions",
		Model:   "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				return reply(200, `{"error":{"message":"bad"}}`)
			}),
		},
	}
	if _, err := client.ChooseOption(context.Background(), Question{Letters: []string{"A", "B"}}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := client.ChooseOption(context.Background(), Question{}); err == nil {
		t.Fatal("expected error without letters")
	}
}

func TestChooseOptionNoLetter(t *testing.T) {
	client := &Client{
		BaseURL: "https://api.test/v1/chat/completions",
		Model:   "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				return reply(200, `{"choices":[{"message":{"role":"assistant","content":"either A or B"}}]}`)
			}),
		},
	}
	if _, err := client.ChooseOption(context.Background(), Question{Letters: []string{"A", "B"}}); err == nil {
		t.Fatal("expected error for ambiguous reply")
	}
}

func TestHTTPStatus(t *testing.T) {
	client := &Client{
		BaseURL: "https://api.test/v1/chat/completions",
		Model:   "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				return reply(502, `bad gateway`)
			}),
		},
	}
	_, err := client.Chat(context.Background(), "system", "user")
	if err == nil || !strings.Contains(err.Error(), "http 502") {
		t.Fatalf("expected http error, got %v", err)
	}
}

func TestExtractLetter(t *testing.T) {
	letters := []string{"A", "B", "C", "D", "E"}
	cases := []struct {
		reply string
		want  string
		ok    bool
	}{
		{"Answer: D", "D", true},
		{"the answer is (c)", "C", true},
		{"I pick (E).", "E", true},
		{"A or B", "", false},
		{"Answer: Z", "", false},
		{"no idea", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractLetter(tc.reply, letters)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ExtractLetter(%q) = %q, %v; want %q, %v", tc.reply, got, ok, tc.want, tc.ok)
		}
	}
}

func TestChat(t *testing.T) {
	client := &Client{
		BaseURL: "https://api.test/v1/chat/completions",
		Model:   "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				return reply(200, `{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`)
			}),
		},
	}
	out, err := client.Chat(context.Background(), "system", "user prompt")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "hi" {
		t.Fatalf("unexpected chat output %s", out)
	}

	if _, err := (&Client{}).Chat(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error without base URL")
	}
}
