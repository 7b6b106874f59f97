// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// bits is a set of small integers, bit n set meaning n is a member.
type bits uint64

func (b bits) has(n int) bool { return b&(1<<uint(n)) != 0 }

func span(lo, hi int) bits {
	var b bits
	for i := lo; i <= hi; i++ {
		b |= 1 << uint(i)
	}
	return b
}

type fieldSpec struct {
	name   string
	lo, hi int
}

var fields = [5]fieldSpec{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 7},
}

// Cron is a parsed 5-field cron expression:
//
//	minute hour day-of-month month day-of-week
//
// Each field accepts *, n, n-m, lists separated by commas, and steps (*/s,
// n-m/s, n/s). Day-of-week 7 is Sunday, like 0. When both day fields are
// restricted a day matches if either does, as in Vixie cron.
type Cron struct {
	expr    string
	minute  bits
	hour    bits
	dom     bits
	month   bits
	dow     bits
	domStar bool
	dowStar bool
}

// ParseCron parses expr. The default schedule is "0 10 1,16 * *": 10:00 on
// the 1st and 16th of every month.
func ParseCron(expr string) (*Cron, error) {
	parts := strings.Fields(expr)
	if len(parts) != len(fields) {
		return nil, fmt.Errorf("cron expression must have 5 fields, got %d", len(parts))
	}

	var sets [5]bits
	for i, f := range fields {
		b, err := parseField(parts[i], f.lo, f.hi)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", f.name, err)
		}
		sets[i] = b
	}

	dow := sets[4]
	if dow.has(7) {
		dow = (dow &^ (1 << 7)) | 1
	}

	return &Cron{
		expr:    expr,
		minute:  sets[0],
		hour:    sets[1],
		dom:     sets[2],
		month:   sets[3],
		dow:     dow,
		domStar: parts[2] == "*",
		dowStar: parts[4] == "*",
	}, nil
}

func (c *Cron) String() string { return c.expr }

func parseField(field string, lo, hi int) (bits, error) {
	var out bits
	for _, part := range strings.Split(field, ",") {
		b, err := parsePart(part, lo, hi)
		if err != nil {
			return 0, err
		}
		out |= b
	}
	return out, nil
}

func parsePart(part string, lo, hi int) (bits, error) {
	rng, stepStr, hasStep := strings.Cut(part, "/")
	step := 1
	if hasStep {
		n, err := strconv.Atoi(stepStr)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid step value: %s", stepStr)
		}
		step = n
	}

	var start, end int
	switch {
	case rng == "*":
		start, end = lo, hi
	case strings.Contains(rng, "-"):
		a, b, _ := strings.Cut(rng, "-")
		var err error
		if start, err = atoiIn(a, lo, hi); err != nil {
			return 0, err
		}
		if end, err = atoiIn(b, lo, hi); err != nil {
			return 0, err
		}
		if start > end {
			return 0, fmt.Errorf("invalid range: %s", rng)
		}
	default:
		n, err := atoiIn(rng, lo, hi)
		if err != nil {
			return 0, err
		}
		start, end = n, n
		if hasStep {
			end = hi
		}
	}

	var out bits
	for i := start; i <= end; i += step {
		out |= 1 << uint(i)
	}
	return out, nil
}

func atoiIn(s string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid value: %s", s)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("value out of range: %d (min=%d, max=%d)", n, lo, hi)
	}
	return n, nil
}

func (c *Cron) dayMatches(t time.Time) bool {
	dom := c.dom.has(t.Day())
	dow := c.dow.has(int(t.Weekday()))
	switch {
	case c.domStar && c.dowStar:
		return true
	case c.domStar:
		return dow
	case c.dowStar:
		return dom
	default:
		return dom || dow
	}
}

// searchLimit bounds Next for expressions that never match, such as 0 0 31 2 *.
const searchLimit = 5 * 366 * 24 * time.Hour

// Next returns the first matching minute strictly after after, evaluated in
// loc. It returns the zero time if nothing matches within five years.
func (c *Cron) Next(after time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := after.In(loc).Truncate(time.Minute).Add(time.Minute)
	limit := t.Add(searchLimit)

	for t.Before(limit) {
		if !c.month.has(int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc)
			continue
		}
		if !c.dayMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
			continue
		}
		if !c.hour.has(t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, loc)
			continue
		}
		if !c.minute.has(t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t
	}
	return time.Time{}
}
