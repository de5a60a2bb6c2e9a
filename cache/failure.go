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


package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/latentcache/core"
	"github.com/poiesic/latentcache/storage"
	"github.com/poiesic/latentcache/transform"
)

// FailurePolicy absorbs per-item failures so a corrupt source image never
// halts the run. It classifies the error, logs it, optionally deletes the
// offending source item, records the failure, and always returns control
// to the caller.
type FailurePolicy struct {
	backend           storage.DataBackend
	deleteProblematic bool
	logger            *slog.Logger

	mu      sync.Mutex
	records []core.FailureRecord
}

// NewFailurePolicy creates a policy. With deleteProblematic set,
// unreadable or undecodable source items are removed from the backend so
// future runs stop re-attempting them.
func NewFailurePolicy(backend storage.DataBackend, deleteProblematic bool, logger *slog.Logger) (*FailurePolicy, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FailurePolicy{
		backend:           backend,
		deleteProblematic: deleteProblematic,
		logger:            logger.With("component", "failures"),
	}, nil
}

// Handle processes one item failure. Never returns an error and never
// panics: the caller proceeds to the next item unconditionally.
func (p *FailurePolicy) Handle(ctx context.Context, identity string, err error) {
	recoverable := errors.Is(err, transform.ErrDecodeFailed) || errors.Is(err, storage.ErrNotFound)
	if recoverable {
		p.logger.Warn("skipping unreadable source item", "identity", identity, "err", err)
	} else {
		p.logger.Error("unexpected error processing source item", "identity", identity, "err", err)
	}

	deleted := false
	if p.deleteProblematic && recoverable {
		if delErr := p.backend.Delete(ctx, identity); delErr != nil {
			if !errors.Is(delErr, storage.ErrNotFound) {
				p.logger.Error("failed to delete problematic source item", "identity", identity, "err", delErr)
			}
		} else {
			p.logger.Info("deleted problematic source item", "identity", identity)
			deleted = true
		}
	}

	p.mu.Lock()
	p.records = append(p.records, core.FailureRecord{
		Identity: identity,
		Reason:   err.Error(),
		Deleted:  deleted,
		At:       time.Now().UTC(),
	})
	p.mu.Unlock()
}

// Records returns a copy of all failures handled so far.
func (p *FailurePolicy) Records() []core.FailureRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.FailureRecord, len(p.records))
	copy(out, p.records)
	return out
}

// Reset clears recorded failures, typically between runs.
func (p *FailurePolicy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = nil
}
