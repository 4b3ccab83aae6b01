// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

// Package services adapts long-running components to suture.Service.
//
//   - ReindexService: builds the engine indexes on startup and reloads them
//     from the repository on a fixed interval.
//   - HTTPServerService: runs an *http.Server and shuts it down gracefully
//     when the supervisor stops.
//   - StoreGCService: runs value log GC on the badger vector store.
package services
