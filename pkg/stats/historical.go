/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package stats

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
)

// timeseriesWindow bounds how far back the timeseries endpoint reaches.
const timeseriesWindow = 90 * 24 * time.Hour

// Historical reads the accounting CSV exports an external batch job drops
// under ACCOUNTING_PTH. Per Scheduler namespace three files exist:
// <ns>-full-agg.csv, <ns>-timeseries.csv and <ns>-users-agg.csv.
type Historical struct {
	dir string
	now func() time.Time
}

func NewHistorical() *Historical {
	return &Historical{dir: config.GetAccountingPath(), now: time.Now}
}

func newHistorical(dir string, now func() time.Time) *Historical {
	return &Historical{dir: dir, now: now}
}

// Row is one CSV record keyed by column name.
type Row map[string]string

func (h *Historical) load(name string) ([]Row, error) {
	if h.dir == "" {
		return nil, errors.NewInternalError("accounting path is not configured")
	}
	f, err := os.Open(filepath.Join(h.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("no accounting data: " + name)
		}
		return nil, errors.NewInternalError(fmt.Sprintf("accounting read failed: %v", err))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("malformed accounting file %s: %v", name, err))
	}
	if len(records) < 1 {
		return nil, nil
	}
	header := records[0]
	var rows []Row
	for _, record := range records[1:] {
		row := Row{}
		for i, field := range record {
			if i < len(header) {
				row[header[i]] = field
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ClusterAggregate is the all-time total of one namespace.
func (h *Historical) ClusterAggregate(namespace string) (Row, error) {
	rows, err := h.load(namespace + "-full-agg.csv")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return Row{}, nil
	}
	return rows[0], nil
}

// Timeseries returns the daily records of the last 90 days, oldest first.
// Rows whose date does not parse are dropped.
func (h *Historical) Timeseries(namespace string) ([]Row, error) {
	rows, err := h.load(namespace + "-timeseries.csv")
	if err != nil {
		return nil, err
	}
	cutoff := h.now().Add(-timeseriesWindow)
	var out []Row
	for _, row := range rows {
		date, err := time.Parse("2006-01-02", row["date"])
		if err != nil {
			continue
		}
		if date.Before(cutoff) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// UserAggregate is one user's all-time total in a namespace. Users without
// accounting records get a zeroed row rather than an error.
func (h *Historical) UserAggregate(namespace, owner string) (Row, error) {
	rows, err := h.load(namespace + "-users-agg.csv")
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row["owner"] == owner {
			return row, nil
		}
	}
	return Row{"owner": owner}, nil
}
