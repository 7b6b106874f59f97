// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

/*
Package supervisor runs the long-lived parts of readmark under a suture v4
supervisor tree.

	root ("readmark")
	├── background-layer
	│   ├── recommendation-scheduler
	│   └── session-cleanup
	└── api-layer
	    └── http-server

Services that return an error or panic are restarted with suture's backoff;
supervisor events are logged through sutureslog, which is bridged onto the
zerolog logger by logging.NewSlogLogger.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddBackgroundService(sched)
	tree.AddBackgroundService(services.NewSessionCleanupService(store, 5*time.Minute))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
