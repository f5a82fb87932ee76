// Package report renders a final ranking for people (text) or tools (YAML).
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/scenematch/internal/compare"
	"github.com/kikiluvv/scenematch/internal/rank"
)

// Formats
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// Options controls report rendering
type Options struct {
	Format    string
	PerMetric bool
}

type document struct {
	Best      int                     `yaml:"best_scene"`
	Ranking   []rank.Entry            `yaml:"ranking"`
	PerMetric map[string]rank.Ranking `yaml:"per_metric,omitempty"`
}

// Write renders final to w.
func Write(w io.Writer, final *rank.FinalRanking, opts Options) error {
	if final == nil || len(final.Entries) == 0 {
		return fmt.Errorf("nothing to report")
	}

	switch opts.Format {
	case "", FormatText:
		return writeText(w, final, opts.PerMetric)
	case FormatYAML:
		return writeYAML(w, final, opts.PerMetric)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

func writeText(w io.Writer, final *rank.FinalRanking, perMetric bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "scene_num\tavg_rank")
	for _, e := range final.Entries {
		fmt.Fprintf(tw, "%d\t%.2f\n", e.SceneNum, e.AvgRank)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if perMetric {
		fmt.Fprintln(w)
		if err := writeMetricTable(w, final); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "\nbest matching scene: %d\n", final.Best().SceneNum)
	return err
}

// writeMetricTable prints one rank column per metric, rows in final order.
func writeMetricTable(w io.Writer, final *rank.FinalRanking) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprint(tw, "scene_num")
	for _, m := range compare.Metrics {
		fmt.Fprintf(tw, "\t%s", m)
	}
	fmt.Fprintln(tw)

	for _, e := range final.Entries {
		fmt.Fprintf(tw, "%d", e.SceneNum)
		for _, m := range compare.Metrics {
			fmt.Fprintf(tw, "\t%d", final.PerMetric[m][e.SceneNum])
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func writeYAML(w io.Writer, final *rank.FinalRanking, perMetric bool) error {
	doc := document{
		Best:    final.Best().SceneNum,
		Ranking: final.Entries,
	}
	if perMetric {
		doc.PerMetric = make(map[string]rank.Ranking, len(final.PerMetric))
		for m, r := range final.PerMetric {
			doc.PerMetric[m.String()] = r
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}
