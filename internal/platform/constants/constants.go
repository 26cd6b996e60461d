// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, cache bounds, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Reader Cache: Entry bounds and expiry for the page structure cache.
  - Optimizer: Transcode geometry and quality settings.
  - Security: JWT issuer and header names.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "tosho-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	// Uploads can be large, so this is far more generous than a JSON API.
	DefaultReadTimeout = 5 * time.Minute

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	// Page streams to slow readers need headroom.
	DefaultWriteTimeout = 2 * time.Minute

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Reader Cache

const (
	// StructureCacheMaxEntries bounds the page structure cache. Exceeding it
	// evicts the single least recently accessed entry.
	StructureCacheMaxEntries = 500

	// StructureCacheTTL is how long an untouched entry survives the sweep.
	StructureCacheTTL = 1 * time.Hour

	// StructureCacheSweepInterval is how often the expiry sweep runs.
	StructureCacheSweepInterval = 1 * time.Hour
)

// # Optimizer

const (
	// TranscodeMaxWidth caps page image width. Smaller images are never upscaled.
	TranscodeMaxWidth = 1600

	// TranscodeQuality is the lossy encoder quality setting.
	TranscodeQuality = 80

	// IngestQueueDepth is the buffered job capacity of the ingestion queue.
	// Jobs beyond this are rejected rather than queued unbounded.
	IngestQueueDepth = 64
)

// # Uploads

const (
	// MaxUploadBytes caps a single multipart upload (512 MiB).
	MaxUploadBytes = 512 << 20
)

// # Security

const (
	// AuthIssuer is the expected 'iss' claim in bearer tokens.
	AuthIssuer = "tosho.app"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldItems   = "items"
	FieldTotal   = "total"
	FieldMessage = "message"
	FieldStatus  = "status"
)

// # Database Schemas

const (
	SchemaLibrary = "library"
)
