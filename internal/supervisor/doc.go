// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

/*
Package supervisor runs CampusMatch's long-lived services under a suture
supervision tree.

The tree has two layers below the root. The data layer holds the reindex
service, the api layer holds the ops HTTP server. Each layer restarts its own
services with backoff, so a crashing rebuild loop does not take the health
endpoints down.

Supervisor events are logged through sutureslog, bridged to zerolog with
logging.NewSlogLogger.

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewReindexService(engine, reindexCfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second, logger))
	err := tree.Serve(ctx)
*/
package supervisor
