// Package pkg provides the core libraries for coursier dependency
// resolution.
//
// # Overview
//
// The pkg directory is organized by concern:
//
//  1. [coord] - Coordinates, module keys, and version ordering
//  2. [descriptor] - Module descriptor model and its two dialects
//  3. [repo] - Repository URL layout and descriptor parsing
//  4. [cache] - Content-addressed download cache with locking and checksums
//  5. [httputil] - HTTP transport: retries, redirects, credentials
//  6. [resolve] - The fixed-point dependency resolver
//  7. [pipeline] - Orchestration: feed the resolver, fetch artifacts
//
// # Architecture
//
// The typical data flow:
//
//	Coordinates
//	     ↓
//	[resolve] asks for missing descriptors
//	     ↓
//	[pipeline] fetches them via [repo] URLs through [cache]/[httputil]
//	     ↓
//	[descriptor] parses, [resolve] reconciles and expands
//	     ↓
//	frozen graph → artifact files in classpath order
package pkg
