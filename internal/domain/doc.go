// Package domain contains the core domain entities and value objects for
// eventship.
//
// This package represents the innermost layer of the Clean Architecture. It
// has no dependencies on infrastructure concerns (HTTP, compression, logging)
// and contains only pure business logic.
//
// # Entities
//
//   - [Event]: A single structured record with a payload, optional routing
//     key, and acknowledgement finalizers
//   - [Batch]: An ordered group of events sharing one partition key
//   - [WireRequest]: The bounded, finalizer-bearing artifact handed to the
//     dispatch driver
//
// # Design Principles
//
// Domain entities are:
//   - Single-owner: an event belongs to exactly one pipeline stage at a time
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
