// Package netio reads and writes networks as a directory of CSV tables:
// one file per component collection, one file per time-varying attribute,
// plus the snapshot index. The layout round-trips exactly, so a saved
// network loads back byte-identical.
package netio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/cluso-gridprep/pkg/network"
)

const (
	snapshotsFile  = "snapshots.csv"
	snapshotLayout = time.RFC3339
)

// Load reads a network from dir. Missing collection files yield empty
// tables; a missing snapshot index is an error only when series files
// are present.
func Load(dir string) (*network.Network, error) {
	n := network.New()

	if err := loadSnapshots(dir, n); err != nil {
		return nil, err
	}
	for _, c := range n.Collections() {
		if err := loadStatic(dir, c); err != nil {
			return nil, err
		}
		if err := loadSeries(dir, c, len(n.Snapshots)); err != nil {
			return nil, err
		}
	}
	if err := loadStatic(dir, network.Collection{Name: "carriers", Static: n.Carriers}); err != nil {
		return nil, err
	}
	// Drops registry rows no component references; loaded carrier
	// metadata for carriers in use survives.
	n.RebuildCarriers()
	if err := n.CheckConsistency(); err != nil {
		return nil, err
	}
	return n, nil
}

// Save writes the network to dir, creating it if needed. Existing files
// for collections that are now empty are not removed; point Save at a
// fresh directory for a clean export.
func Save(dir string, n *network.Network) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := saveSnapshots(dir, n); err != nil {
		return err
	}
	for _, c := range n.Collections() {
		if c.Static.Len() > 0 {
			if err := saveStatic(dir, c); err != nil {
				return err
			}
		}
		for _, attr := range c.Series.Attributes() {
			if err := saveSeries(dir, c, attr, n.Snapshots); err != nil {
				return err
			}
		}
	}
	return saveStatic(dir, network.Collection{Name: "carriers", Static: n.Carriers})
}

func loadSnapshots(dir string, n *network.Network) error {
	records, err := readCSV(filepath.Join(dir, snapshotsFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(records) < 1 {
		return nil
	}
	header := records[0]
	weightCol := -1
	for i, h := range header {
		if h == "weightings" {
			weightCol = i
		}
	}
	snapshots := make([]time.Time, 0, len(records)-1)
	weightings := make([]float64, 0, len(records)-1)
	for _, rec := range records[1:] {
		ts, err := parseSnapshot(rec[0])
		if err != nil {
			return fmt.Errorf("%s: %w", snapshotsFile, err)
		}
		w := 1.0
		if weightCol >= 0 && weightCol < len(rec) {
			w, err = strconv.ParseFloat(rec[weightCol], 64)
			if err != nil {
				return fmt.Errorf("%s: weighting %q: %w", snapshotsFile, rec[weightCol], err)
			}
		}
		snapshots = append(snapshots, ts)
		weightings = append(weightings, w)
	}
	n.Snapshots = snapshots
	n.SnapshotWeightings = weightings
	return nil
}

func loadStatic(dir string, c network.Collection) error {
	path := filepath.Join(dir, c.Name+".csv")
	records, err := readCSV(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(records) < 2 {
		return nil
	}
	header := records[0]
	if len(header) == 0 || header[0] != "name" {
		return fmt.Errorf("%s: first column must be name, got %q", path, strings.Join(header, ","))
	}
	for _, rec := range records[1:] {
		row := network.Row{}
		for i := 1; i < len(rec) && i < len(header); i++ {
			if rec[i] == "" {
				continue
			}
			row[header[i]] = parseValue(rec[i])
		}
		if err := c.Static.Add(rec[0], row); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func loadSeries(dir string, c network.Collection, snapshots int) error {
	matches, err := filepath.Glob(filepath.Join(dir, c.Name+"-t-*.csv"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		base := filepath.Base(path)
		attr := strings.TrimSuffix(strings.TrimPrefix(base, c.Name+"-t-"), ".csv")
		records, err := readCSV(path)
		if err != nil {
			return err
		}
		if len(records) < 1 {
			continue
		}
		header := records[0]
		if len(records)-1 != snapshots {
			return fmt.Errorf("%s: %d rows for %d snapshots: %w",
				path, len(records)-1, snapshots, network.ErrSnapshotMismatch)
		}
		s := c.Series.Ensure(attr)
		for col := 1; col < len(header); col++ {
			values := make([]float64, snapshots)
			for i, rec := range records[1:] {
				if col >= len(rec) {
					return fmt.Errorf("%s: row %d is short", path, i+2)
				}
				v, err := strconv.ParseFloat(rec[col], 64)
				if err != nil {
					return fmt.Errorf("%s: row %d column %s: %w", path, i+2, header[col], err)
				}
				values[i] = v
			}
			s.Set(header[col], values)
		}
	}
	return nil
}

func saveSnapshots(dir string, n *network.Network) error {
	records := [][]string{{"snapshot", "weightings"}}
	for i, ts := range n.Snapshots {
		records = append(records, []string{
			ts.UTC().Format(snapshotLayout),
			strconv.FormatFloat(n.SnapshotWeightings[i], 'g', -1, 64),
		})
	}
	return writeCSV(filepath.Join(dir, snapshotsFile), records)
}

func saveStatic(dir string, c network.Collection) error {
	if c.Static.Len() == 0 {
		return nil
	}
	columns := c.Static.Columns()
	header := append([]string{"name"}, columns...)
	records := [][]string{header}
	for _, name := range c.Static.Names() {
		row, _ := c.Static.Get(name)
		rec := make([]string, 0, len(header))
		rec = append(rec, name)
		for _, col := range columns {
			v, ok := row[col]
			if !ok {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, v.AsString())
		}
		records = append(records, rec)
	}
	return writeCSV(filepath.Join(dir, c.Name+".csv"), records)
}

func saveSeries(dir string, c network.Collection, attr string, snapshots []time.Time) error {
	s := c.Series[attr]
	names := s.Names()
	if len(names) == 0 {
		return nil
	}
	header := append([]string{"snapshot"}, names...)
	records := [][]string{header}
	cols := make([][]float64, len(names))
	for i, name := range names {
		cols[i], _ = s.Get(name)
	}
	var rows int
	if len(cols) > 0 {
		rows = len(cols[0])
	}
	for i := 0; i < rows; i++ {
		rec := make([]string, 0, len(header))
		ts := ""
		if i < len(snapshots) {
			ts = snapshots[i].UTC().Format(snapshotLayout)
		}
		rec = append(rec, ts)
		for _, col := range cols {
			rec = append(rec, strconv.FormatFloat(col[i], 'g', -1, 64))
		}
		records = append(records, rec)
	}
	return writeCSV(filepath.Join(dir, fmt.Sprintf("%s-t-%s.csv", c.Name, attr)), records)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func parseSnapshot(s string) (time.Time, error) {
	for _, layout := range []string{snapshotLayout, "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized snapshot %q", s)
}

func parseValue(s string) network.Value {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return network.FloatValue(f)
	}
	if s == "True" || s == "False" {
		return network.BoolValue(s == "True")
	}
	return network.StringValue(s)
}
