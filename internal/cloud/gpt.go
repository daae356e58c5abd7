package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
)

var (
	validPromptTypes   = map[string]bool{"php": true, "css": true, "js": true, "html": true}
	validExplainFields = map[string]bool{"code": true, "desc": true, "tags": true}
)

// AIResult carries the fields the cloud AI returns. The remote side
// abbreviates keys on the wire; only the populated fields are set.
type AIResult struct {
	Name  string `json:"name,omitempty"`
	Code  string `json:"code,omitempty"`
	Desc  string `json:"desc,omitempty"`
	Lines string `json:"lines,omitempty"`
	Tags  string `json:"tags,omitempty"`
}

type aiResponseWire struct {
	Response *struct {
		N string `json:"n"`
		C string `json:"c"`
		D string `json:"d"`
		T string `json:"t"`
	} `json:"response"`
}

// Prompt asks the cloud AI to generate a snippet of the given type
// from a free-text prompt. Requires a verified connection.
func (s *Service) Prompt(ctx context.Context, prompt, snippetType string) (*AIResult, *Error) {
	if prompt == "" {
		return nil, newError(ErrBusiness, "Cannot generate snippet for an empty prompt.")
	}
	if !validPromptTypes[snippetType] {
		return nil, newError(ErrBusiness, "Cannot generate code for invalid snippet type.")
	}

	wire, cerr := s.postAI(ctx, "gpt/prompt/"+snippetType, prompt)
	if cerr != nil {
		return nil, cerr
	}
	return &AIResult{Name: wire.Response.N, Code: wire.Response.C, Desc: wire.Response.D}, nil
}

// Explain asks the cloud AI to describe snippet code as a name,
// description, tags, or line-by-line commentary.
func (s *Service) Explain(ctx context.Context, code, field string) (*AIResult, *Error) {
	if code == "" {
		return nil, newError(ErrBusiness, "Cannot generate an explanation for empty snippet code.")
	}
	if !validExplainFields[field] {
		return nil, newError(ErrBusiness, "Cannot generate explanation for invalid snippet field.")
	}

	wire, cerr := s.postAI(ctx, "gpt/explain/"+field, code)
	if cerr != nil {
		return nil, cerr
	}
	return &AIResult{Name: wire.Response.N, Lines: wire.Response.C, Tags: wire.Response.T, Desc: wire.Response.D}, nil
}

func (s *Service) postAI(ctx context.Context, path, prompt string) (*aiResponseWire, *Error) {
	if !s.IsKeyVerified(ctx) {
		return nil, newError(ErrAuth, "Cannot access the cloud AI without a verified connection.")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("prompt", prompt); err != nil {
		return nil, wrapError(ErrTransport, "failed to build AI request", err)
	}
	if err := writer.Close(); err != nil {
		return nil, wrapError(ErrTransport, "failed to build AI request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.baseURL+path, &body)
	if err != nil {
		return nil, wrapError(ErrTransport, "failed to build AI request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	cloudToken, localToken := s.tokens(ctx)
	req.Header.Set("Authorization", "Bearer "+cloudToken)
	req.Header.Set("Local-Token", localToken)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, wrapError(ErrTransport, "cloud AI request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, newError(ErrAuth, "That token is invalid - please check and try again.")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(ErrTransport, "cloud AI request failed")
	}

	var wire aiResponseWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil || wire.Response == nil {
		return nil, newError(ErrTransport, "Did not receive a valid response from the cloud AI.")
	}
	return &wire, nil
}
