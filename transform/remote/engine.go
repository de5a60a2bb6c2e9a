// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package remote implements transform.Engine against an HTTP encode
// service. The service receives batches of prepared image tensors and
// returns one latent embedding per input, in order.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/poiesic/latentcache/core"
)

// ErrEncodeRequest indicates the encode service rejected or failed a
// batch request.
var ErrEncodeRequest = errors.New("encode request failed")

const defaultTimeout = 120 * time.Second

type tensorPayload struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

type encodeRequest struct {
	Tensors []tensorPayload `json:"tensors"`
}

type encodeResponse struct {
	Embeddings []tensorPayload `json:"embeddings"`
}

// Engine encodes image tensors by POSTing them to a remote service.
type Engine struct {
	host          string
	scalingFactor float32
	client        *http.Client
}

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.client = client
	}
}

// WithTimeout sets the per-batch request timeout on the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		e.client.Timeout = timeout
	}
}

// NewEngine creates an engine talking to host (e.g.
// "http://localhost:8090"). scalingFactor comes from the encode model's
// configuration and is applied by callers to every returned embedding.
func NewEngine(host string, scalingFactor float32, opts ...Option) (*Engine, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: host required", ErrEncodeRequest)
	}
	e := &Engine{
		host:          host,
		scalingFactor: scalingFactor,
		client:        &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// EncodeBatch sends the batch to the service's /encode endpoint and
// returns the embeddings in input order.
func (e *Engine) EncodeBatch(ctx context.Context, batch []core.Tensor) ([]core.Embedding, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	request := encodeRequest{Tensors: make([]tensorPayload, len(batch))}
	for i, tensor := range batch {
		request.Tensors[i] = tensorPayload{Shape: tensor.Shape, Data: tensor.Data}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/encode", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrEncodeRequest, resp.StatusCode, detail)
	}

	var response encodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrEncodeRequest, err)
	}
	if len(response.Embeddings) != len(batch) {
		return nil, fmt.Errorf("%w: sent %d tensors, received %d embeddings",
			ErrEncodeRequest, len(batch), len(response.Embeddings))
	}

	embeddings := make([]core.Embedding, len(response.Embeddings))
	for i, payload := range response.Embeddings {
		embeddings[i] = core.Embedding{Shape: payload.Shape, Data: payload.Data}
		if err := core.ValidateTensor(&embeddings[i]); err != nil {
			return nil, fmt.Errorf("%w: embedding %d: %v", ErrEncodeRequest, i, err)
		}
	}
	return embeddings, nil
}

// ScalingFactor returns the configured latent scaling factor.
func (e *Engine) ScalingFactor() float32 {
	return e.scalingFactor
}
