// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

// Package scheduler pushes recommendations to every bound reader on a cron
// schedule, by default at 10:00 on the 1st and 16th of each month.
//
// Job does one pass over the readers and can be run directly, which is what
// readmarkctl recommend run does. Scheduler wraps a Job in a suture service
// that sleeps until each tick.
package scheduler
