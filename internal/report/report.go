// Package report renders the summary of a run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/andygrunwald/fuel-price-scraper/internal/models"
)

// Output formats accepted by Render.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

type document struct {
	StartedAt     time.Time        `json:"started_at" yaml:"started_at"`
	TotalAccepted int              `json:"total_accepted" yaml:"total_accepted"`
	Failed        []string         `json:"failed,omitempty" yaml:"failed,omitempty"`
	Sources       []sourceDocument `json:"sources" yaml:"sources"`
}

type sourceDocument struct {
	Source      string           `json:"source" yaml:"source"`
	Candidates  int              `json:"candidates" yaml:"candidates"`
	Accepted    int              `json:"accepted" yaml:"accepted"`
	Duplicate   int              `json:"duplicate" yaml:"duplicate"`
	OutOfBounds int              `json:"out_of_bounds" yaml:"out_of_bounds"`
	CapReached  int              `json:"cap_reached" yaml:"cap_reached"`
	Invalid     int              `json:"invalid" yaml:"invalid"`
	Excluded    int              `json:"excluded" yaml:"excluded"`
	StoreSize   int              `json:"store_size" yaml:"store_size"`
	Duration    string           `json:"duration" yaml:"duration"`
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`
	Records     []recordDocument `json:"records" yaml:"records"`
}

type recordDocument struct {
	Station string  `json:"station" yaml:"station"`
	Price   float64 `json:"price" yaml:"price"`
	Date    string  `json:"date" yaml:"date"`
	Fuel    string  `json:"fuel" yaml:"fuel"`
}

func newDocument(r *models.RunReport) document {
	doc := document{
		StartedAt:     r.StartedAt,
		TotalAccepted: r.TotalAccepted(),
		Failed:        r.Failed(),
		Sources:       make([]sourceDocument, 0, len(r.Sources)),
	}
	for _, s := range r.Sources {
		sd := sourceDocument{
			Source:      s.Source,
			Candidates:  s.Candidates,
			Accepted:    s.Accepted,
			Duplicate:   s.Duplicate,
			OutOfBounds: s.OutOfBounds,
			CapReached:  s.CapReached,
			Invalid:     s.Invalid,
			Excluded:    s.Excluded,
			StoreSize:   s.StoreSize,
			Duration:    s.Duration.Round(time.Millisecond).String(),
			Error:       s.Error,
			Records:     make([]recordDocument, 0, len(s.Records)),
		}
		for _, rec := range s.Records {
			sd.Records = append(sd.Records, recordDocument{
				Station: rec.Station,
				Price:   rec.Price,
				Date:    rec.ObservedDate.Format(models.DateLayout),
				Fuel:    string(rec.FuelCategory),
			})
		}
		doc.Sources = append(doc.Sources, sd)
	}
	return doc
}

// Render writes the report in the given format.
func Render(w io.Writer, format string, r *models.RunReport) error {
	switch format {
	case FormatTable, "":
		return renderTable(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newDocument(r)); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newDocument(r)); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func renderTable(w io.Writer, r *models.RunReport) error {
	summary := newTable(w)
	summary.SetTitle("Run started " + r.StartedAt.Format(time.RFC3339))
	summary.AppendHeader(table.Row{"Source", "Candidates", "Accepted", "Duplicate", "Out of bounds", "Cap reached", "Invalid", "Excluded", "Store size", "Duration", "Error"})
	for _, s := range r.Sources {
		summary.AppendRow(table.Row{
			s.Source,
			count(s.Candidates),
			count(s.Accepted),
			count(s.Duplicate),
			count(s.OutOfBounds),
			count(s.CapReached),
			count(s.Invalid),
			count(s.Excluded),
			count(s.StoreSize),
			s.Duration.Round(time.Millisecond).String(),
			s.Error,
		})
	}
	summary.AppendFooter(table.Row{"Total", "", count(r.TotalAccepted())})
	summary.Render()

	for _, s := range r.Sources {
		if s.Error != "" {
			continue
		}
		if len(s.Records) == 0 {
			if _, err := fmt.Fprintf(w, "%s: no new records\n", s.Source); err != nil {
				return err
			}
			continue
		}

		items := newTable(w)
		items.SetTitle(s.Source + ": added records")
		items.AppendHeader(table.Row{"Station", "Price", "Date", "Fuel"})
		for _, rec := range s.Records {
			items.AppendRow(table.Row{
				rec.Station,
				strconv.FormatFloat(rec.Price, 'f', 2, 64),
				rec.ObservedDate.Format(models.DateLayout),
				string(rec.FuelCategory),
			})
		}
		items.Render()
	}
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func count(n int) string {
	return humanize.Comma(int64(n))
}
