// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [DispatchDriver]: Consumes the wire request stream and owns transport,
//     retries, and final acknowledgement
//   - [Codec]: Compresses request bodies
//   - [Transformer]: Rewrites event payloads before serialization
//   - [Telemetry]: Fire-and-forget drop and build-failure signals
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app, internal/build) depends only on these
// interfaces. Infrastructure adapters (internal/adapters) implement them with
// concrete implementations (HTTP, klauspost/zstd, zerolog, etc.).
//
// This separation enables:
//   - Testing application logic with mock implementations
//   - Swapping infrastructure without changing business logic
//   - Clear boundaries and dependency direction
package ports
