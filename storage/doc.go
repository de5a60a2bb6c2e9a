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


// Package storage provides the storage abstraction layer for latentcache.
//
// This package defines the DataBackend interface that decouples the cache
// pipeline from where source images and cache entries actually live. It
// allows different backends (local filesystem, BadgerDB, object stores)
// to be used interchangeably.
//
// # Architecture
//
// A DataBackend addresses items by path-like string keys and exposes the
// minimal surface the pipeline needs: directory creation, pattern-based
// listing, existence checks, binary reads, batched writes, and deletion.
// Backends identify themselves through DisplayName so callers can log
// which store a run targets without type-switching on implementations.
//
// # Usage
//
// Create a backend instance:
//
//	backend, err := local.NewBackend("/data/images")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Use in tests with in-memory storage:
//
//	backend, err := badger.NewMemoryBackend()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Thread Safety
//
// All backend implementations must be safe for concurrent use from
// multiple goroutines. The cache pipeline relies on idempotent overwrite
// semantics rather than locking, so concurrent writes of the same key
// must each fully succeed or fully fail.
//
// # Context Support
//
// All backend methods accept context.Context for cancellation and
// timeout support. Pass context.Background() for operations without
// specific timeout requirements.
package storage
