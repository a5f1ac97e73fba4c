// Package service holds clients for the external assistant backend:
// transcription, chat and clip-title generation. The backend is a black
// box; nothing here retries, a failed call surfaces to the caller.
package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Message is one turn of conversation history sent to the chat endpoint.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatReply is the chat endpoint's response. Repeat is the literal string
// "True" when the assistant wants another turn; that stringly contract
// belongs to the backend and is preserved here as-is.
type ChatReply struct {
	Reply        string `json:"reply"`
	Audio        string `json:"audio,omitempty"` // base64 MP3
	Repeat       string `json:"repeat,omitempty"`
	FunctionCall string `json:"function_call,omitempty"`
}

// FunctionEndConversation is the function call that terminates a dialogue.
const FunctionEndConversation = "end_conversation"

// WantsRepeat reports whether the assistant asked for another turn.
func (r ChatReply) WantsRepeat() bool {
	return r.Repeat == "True"
}

// AssistantClient talks to the assistant backend over HTTP.
type AssistantClient struct {
	baseURL string
	client  *http.Client
}

// NewAssistantClient creates a client for the backend at baseURL.
func NewAssistantClient(baseURL string) *AssistantClient {
	return &AssistantClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Transcribe uploads recorded audio and returns the recognized text.
// Empty text means no speech was detected; that is not an error.
func (c *AssistantClient) Transcribe(audio []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", "recording.mp3")
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}

	resp, err := c.client.Post(c.baseURL+"/transcribe", writer.FormDataContentType(), &body)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription server returned %d", resp.StatusCode)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode transcription: %w", err)
	}
	return result.Text, nil
}

// Chat sends the question with the full conversation history and returns
// the assistant's reply.
func (c *AssistantClient) Chat(question string, history []Message) (ChatReply, error) {
	payload := struct {
		Question string    `json:"question"`
		Messages []Message `json:"messages"`
	}{Question: question, Messages: history}

	var reply ChatReply
	if err := c.postJSON("/chat", payload, &reply); err != nil {
		return ChatReply{}, err
	}
	return reply, nil
}

// GenerateClipTitle asks the backend to title a clip from its transcript
// range. An empty title or an error means the caller should fall back to
// a templated title.
func (c *AssistantClient) GenerateClipTitle(episodeID string, startTime, endTime int) (string, error) {
	payload := struct {
		EpisodeID string `json:"episode_id"`
		StartTime int    `json:"start_time"`
		EndTime   int    `json:"end_time"`
	}{EpisodeID: episodeID, StartTime: startTime, EndTime: endTime}

	var result struct {
		Title string `json:"title"`
	}
	if err := c.postJSON("/generate-clip-title", payload, &result); err != nil {
		return "", err
	}
	return result.Title, nil
}

func (c *AssistantClient) postJSON(path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.client.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
