package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	stabilityBaseURL    = "https://api.stability.ai/v2beta"
	stabilityAccountURL = "https://api.stability.ai/v1/user/account"

	// MinVideoBytes guards against empty or error bodies disguised as a 200
	// result. Anything smaller is not a real video.
	MinVideoBytes = 10 * 1024

	// Fixed generation parameters, matching the upstream image-to-video
	// endpoint defaults the bot has always used.
	stabilitySeed         = "0"
	stabilityCfgScale     = "1.8"
	stabilityMotionBucket = "127"
)

// PollStatus classifies one status request into exactly three outcomes.
type PollStatus int

const (
	PollPending PollStatus = iota
	PollReady
	PollFailed
)

// PollResult is the classified response of a single PollOnce call.
type PollResult struct {
	Status PollStatus
	Video  []byte
	Reason error
}

// StabilityClient talks to the Stability AI image-to-video API. It performs
// single requests only; retry loops belong to the caller.
type StabilityClient struct {
	apiKey     string
	baseURL    string
	accountURL string
	httpClient *http.Client
}

func NewStabilityClient(apiKey string, timeout time.Duration) *StabilityClient {
	return &StabilityClient{
		apiKey:     apiKey,
		baseURL:    stabilityBaseURL,
		accountURL: stabilityAccountURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *StabilityClient) Name() string { return "stability" }

// Configured reports whether an API key is present.
func (c *StabilityClient) Configured() bool { return strings.TrimSpace(c.apiKey) != "" }

// Submit issues one multipart job-submission request and returns the opaque
// job id assigned by the provider.
func (c *StabilityClient) Submit(ctx context.Context, image []byte, prompt string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", "image.jpg")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(image); err != nil {
		return "", err
	}
	if err := writer.WriteField("seed", stabilitySeed); err != nil {
		return "", err
	}
	if err := writer.WriteField("cfg_scale", stabilityCfgScale); err != nil {
		return "", err
	}
	if err := writer.WriteField("motion_bucket_id", stabilityMotionBucket); err != nil {
		return "", err
	}
	if strings.TrimSpace(prompt) != "" {
		if err := writer.WriteField("prompt", prompt); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/image-to-video", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stability submit failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{Provider: c.Name(), Status: resp.StatusCode, Body: string(respBody)}
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", fmt.Errorf("bad submit response: %w", err)
	}
	if strings.TrimSpace(payload.ID) == "" {
		return "", fmt.Errorf("submit response carried no job id: %s", string(respBody))
	}
	return payload.ID, nil
}

// CheckAccount verifies the API key against the account endpoint. Used by
// the /test command only.
func (c *StabilityClient) CheckAccount(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.accountURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &ProviderError{Provider: c.Name(), Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// PollOnce issues one status request for a submitted job. It never sleeps.
func (c *StabilityClient) PollOnce(ctx context.Context, jobID string) (PollResult, error) {
	url := fmt.Sprintf("%s/image-to-video/result/%s", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return PollResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "video/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PollResult{}, fmt.Errorf("stability poll failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return PollResult{Status: PollPending}, nil
	case http.StatusOK:
		video, err := io.ReadAll(resp.Body)
		if err != nil {
			return PollResult{}, err
		}
		if len(video) < MinVideoBytes {
			return PollResult{
				Status: PollFailed,
				Reason: fmt.Errorf("result body too small to be a video (%d bytes)", len(video)),
			}, nil
		}
		return PollResult{Status: PollReady, Video: video}, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return PollResult{
			Status: PollFailed,
			Reason: &ProviderError{Provider: c.Name(), Status: resp.StatusCode, Body: string(body)},
		}, nil
	}
}
