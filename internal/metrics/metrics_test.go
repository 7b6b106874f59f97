// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/books", "200"))
	RecordAPIRequest("GET", "/books", "200", 15*time.Millisecond)
	RecordAPIRequest("GET", "/books", "200", 25*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/books", "200"))
	if after-before != 2 {
		t.Errorf("api_requests_total delta = %v, want 2", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != start+2 {
		t.Errorf("active requests = %v, want %v", got, start+2)
	}
	TrackActiveRequest(false)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != start {
		t.Errorf("active requests = %v, want %v", got, start)
	}
}

func TestRecordRecommendation(t *testing.T) {
	tests := []struct {
		name         string
		personalised bool
		label        string
	}{
		{"personalised round", true, "personalised"},
		{"fallback round", false, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(RecommendationsTotal.WithLabelValues(tt.label))
			RecordRecommendation(tt.personalised, 4)
			after := testutil.ToFloat64(RecommendationsTotal.WithLabelValues(tt.label))
			if after-before != 1 {
				t.Errorf("recommendations_total{path=%q} delta = %v, want 1", tt.label, after-before)
			}
		})
	}
}

func TestOutcomeLabels(t *testing.T) {
	beforeOK := testutil.ToFloat64(ScheduleRunsTotal.WithLabelValues("success"))
	beforeFail := testutil.ToFloat64(ScheduleRunsTotal.WithLabelValues("failure"))

	RecordScheduleRun(time.Second, nil)
	RecordScheduleRun(time.Second, errors.New("library unreachable"))

	if d := testutil.ToFloat64(ScheduleRunsTotal.WithLabelValues("success")) - beforeOK; d != 1 {
		t.Errorf("success delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(ScheduleRunsTotal.WithLabelValues("failure")) - beforeFail; d != 1 {
		t.Errorf("failure delta = %v, want 1", d)
	}
}

func TestRecordWeChatMessage_EmptyType(t *testing.T) {
	before := testutil.ToFloat64(WeChatMessagesTotal.WithLabelValues("unknown"))
	RecordWeChatMessage("")
	if d := testutil.ToFloat64(WeChatMessagesTotal.WithLabelValues("unknown")) - before; d != 1 {
		t.Errorf("unknown delta = %v, want 1", d)
	}
}

func TestRecordDBQuery(t *testing.T) {
	RecordDBQuery("list_books", 3*time.Millisecond)
	if n := testutil.CollectAndCount(DBQueryDuration); n < 1 {
		t.Errorf("CollectAndCount(DBQueryDuration) = %d, want >= 1", n)
	}
}

func TestRecordBackup(t *testing.T) {
	okBefore := testutil.ToFloat64(BackupsTotal.WithLabelValues("success"))
	failBefore := testutil.ToFloat64(BackupsTotal.WithLabelValues("failure"))

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	RecordBackup(nil, at)
	RecordBackup(errors.New("disk full"), at.Add(time.Hour))

	if got := testutil.ToFloat64(BackupsTotal.WithLabelValues("success")) - okBefore; got != 1 {
		t.Errorf("backups_total{success} delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(BackupsTotal.WithLabelValues("failure")) - failBefore; got != 1 {
		t.Errorf("backups_total{failure} delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(BackupLastSuccess); got != float64(at.Unix()) {
		t.Errorf("last success = %v, want %v", got, at.Unix())
	}
}
