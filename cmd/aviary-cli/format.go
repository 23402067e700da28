/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"aviary/internal/model"
)

// DateLayout is the DD/MM/YY HH:MM form used for all prompts and output.
const DateLayout = "02/01/06 15:04"

const (
	birdRowFormat     = "%-30.30s %-20.20s %-15.15s %-15.15s\n"
	sightingRowFormat = "%-30.30s %-40.40s\n"
	noRecords         = "No record to show"
)

// parseDate reads a local DD/MM/YY HH:MM date. The value must format back
// to exactly the same text, so rolled-over or loosely written dates are
// rejected.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected DD/MM/YY HH:MM", s)
	}
	if t.Format(DateLayout) != s {
		return time.Time{}, fmt.Errorf("invalid date %q: not a calendar date", s)
	}
	return t, nil
}

func formatDate(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.In(time.Local).Format(DateLayout)
}

// sortSightings orders by name descending (case-insensitive), then by
// date descending with undated sightings last.
func sortSightings(sightings []model.Sighting) {
	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(sightings, func(i, j int) bool {
		a, b := sightings[i], sightings[j]
		if cmp := c.CompareString(a.Name, b.Name); cmp != 0 {
			return cmp > 0
		}
		switch {
		case a.Timestamp == nil:
			return false
		case b.Timestamp == nil:
			return true
		}
		return a.Timestamp.After(*b.Timestamp)
	})
}

func formatMeasure(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func printBirds(w io.Writer, birds []*model.Bird) {
	if len(birds) == 0 {
		fmt.Fprintln(w, noRecords)
		return
	}
	fmt.Fprintf(w, birdRowFormat, "Name", "Color", "Weight", "Height")
	for _, b := range birds {
		fmt.Fprintf(w, birdRowFormat, b.Name, b.Color, formatMeasure(b.Weight), formatMeasure(b.Height))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total number of records: %d\n", len(birds))
}

func printSightings(w io.Writer, sightings []model.Sighting) {
	if len(sightings) == 0 {
		fmt.Fprintln(w, noRecords)
		return
	}
	sortSightings(sightings)
	fmt.Fprintf(w, sightingRowFormat, "Name", "Date")
	for _, s := range sightings {
		fmt.Fprintf(w, sightingRowFormat, s.Name, formatDate(s.Timestamp))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total number of records: %d\n", len(sightings))
}
