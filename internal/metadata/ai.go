// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/buivan/tosho/internal/platform/apperr"
)

// # AI Fallback

// aiTimeout bounds one assistant round trip. The resolver treats a timeout
// as "no contribution", so a slow model never stalls ingestion.
const aiTimeout = 20 * time.Second

// AIGuess is the assistant's reading of a filename.
type AIGuess struct {
	Series string   `json:"series"`
	Number *float64 `json:"number"`
	Volume *float64 `json:"volume"`
	Year   *int     `json:"year"`
}

// AIClient asks a local Ollama instance to interpret filenames the
// heuristic cascade could not resolve confidently.
type AIClient struct {
	baseURL string
	model   string
	client  *http.Client
}

/*
NewAIClient builds a client for an Ollama-compatible generate endpoint.

Parameters:
  - baseURL: string (For example "http://localhost:11434"; empty disables the client)
  - model: string (Model tag to generate with)

Returns:
  - *AIClient: nil when baseURL is empty
*/
func NewAIClient(baseURL string, model string) *AIClient {
	if baseURL == "" {
		return nil
	}
	return &AIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: aiTimeout},
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Format  string          `json:"format"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
}

/*
GuessFromFilename asks the model for series/number/volume/year.

Description: The model is pinned to JSON output at near-zero temperature.
The reply is shape-checked only (a non-empty series name); no attempt is
made to verify the guess against any catalog.

Parameters:
  - context: context.Context
  - filename: string (Original upload name)

Returns:
  - *AIGuess: Parsed guess
  - error: EXTERNAL_SERVICE_UNAVAILABLE when unreachable, timed out, or the
    reply fails the shape check
*/
func (client *AIClient) GuessFromFilename(context context.Context, filename string) (*AIGuess, error) {
	prompt := fmt.Sprintf(
		`You extract comic metadata from file names. For the file name %q respond with a single JSON object: {"series": string, "number": number or null, "volume": number or null, "year": number or null}. No prose.`,
		filename,
	)

	body, err := json.Marshal(generateRequest{
		Model:   client.model,
		Prompt:  prompt,
		Format:  "json",
		Stream:  false,
		Options: generateOptions{Temperature: 0.1},
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	request, err := http.NewRequestWithContext(context, http.MethodPost, client.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.client.Do(request)
	if err != nil {
		return nil, apperr.ExternalService("AI assistant is unreachable", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, apperr.ExternalService(fmt.Sprintf("AI assistant returned status %d", response.StatusCode), nil)
	}

	var envelope generateResponse
	if err := json.NewDecoder(response.Body).Decode(&envelope); err != nil {
		return nil, apperr.ExternalService("AI assistant reply is not valid JSON", err)
	}

	var guess AIGuess
	if err := json.Unmarshal([]byte(envelope.Response), &guess); err != nil {
		return nil, apperr.ExternalService("AI assistant guess is not valid JSON", err)
	}
	if strings.TrimSpace(guess.Series) == "" {
		return nil, apperr.ExternalService("AI assistant guess is missing a series name", nil)
	}
	guess.Series = strings.TrimSpace(guess.Series)

	return &guess, nil
}
