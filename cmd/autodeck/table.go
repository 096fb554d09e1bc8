package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/osa030/autodeck/internal/app/effects"
	"github.com/osa030/autodeck/internal/app/queue"
	"github.com/osa030/autodeck/internal/app/setplan"
	"github.com/osa030/autodeck/internal/app/transition"
	"github.com/osa030/autodeck/internal/infra/config"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// listSampleRate is only used to instantiate stages for their metadata.
const listSampleRate = 44100

func renderTable(title string, headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if title != "" {
		tw.SetTitle(title)
	}

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// printPlan prints the set roadmap without touching any audio.
func printPlan(cfg *config.Config, libPath string, ids []string) error {
	tracks, err := selectTracks(libPath, ids)
	if err != nil {
		return err
	}
	typ, err := transition.ParseType(cfg.Automation.TransitionType)
	if err != nil {
		return err
	}
	planner := setplan.NewPlanner(transition.NewPlanner(typ), typ, cfg.Automation.LoadLead(), cfg.Automation.StartLead())
	vp, err := planner.BuildVisualPlan(tracks)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(vp.TrackList))
	for _, t := range vp.TrackList {
		rows = append(rows, []string{
			fmt.Sprintf("%d", t.Index+1),
			t.Name,
			setplan.FormatClock(t.Duration),
			fmt.Sprintf("%.1f", t.BPM),
			t.Key,
			t.Camelot,
			fmt.Sprintf("%.2f", t.Energy),
		})
	}
	fmt.Println(renderTable("Tracks",
		[]string{"#", "Title", "Length", "BPM", "Key", "Camelot", "Energy"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignRight}))

	rows = rows[:0]
	for _, tr := range vp.Transitions {
		rows = append(rows, []string{
			tr.From + " -> " + tr.To,
			fmt.Sprintf("%d", tr.Bars),
			fmt.Sprintf("%.1fs", tr.Duration),
			string(tr.Speed),
			string(tr.EQStrategy),
			fmt.Sprintf("%.0f%% (%s)", tr.Compatibility*100, tr.Rating),
			fmt.Sprintf("%.1f", tr.BPMDiff),
			string(tr.EnergyFlow),
		})
	}
	fmt.Println(renderTable("Transitions",
		[]string{"Mix", "Bars", "Length", "Speed", "EQ", "Match", "BPM diff", "Energy"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft}))

	rows = rows[:0]
	for _, ev := range vp.Timeline {
		rows = append(rows, []string{ev.TimeStr, string(ev.Deck), ev.Action, ev.Description})
	}
	fmt.Println(renderTable("Timeline", []string{"Time", "Deck", "Action", "Description"}, rows, nil))
	fmt.Printf("Total: %s\n", vp.TotalDurationStr)
	return nil
}

// printMatrix prints every pair's compatibility, best first.
func printMatrix(libPath string, ids []string) error {
	tracks, err := selectTracks(libPath, ids)
	if err != nil {
		return err
	}

	pairs := queue.Matrix(tracks)
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{
			p.NameA,
			p.NameB,
			fmt.Sprintf("%.1f", p.BPMDiff),
			p.CamelotA + " / " + p.CamelotB,
			fmt.Sprintf("%.2f", p.Score),
			string(p.Rating),
		})
	}
	fmt.Println(renderTable("Compatibility",
		[]string{"Track A", "Track B", "BPM diff", "Camelot", "Score", "Rating"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft}))
	return nil
}

// printEffects prints the registered effect stages.
func printEffects() {
	registry := effects.GetRegistered()
	rows := make([][]string, 0, len(registry))
	for _, name := range effects.RegisteredNames() {
		st := registry[name](listSampleRate)
		rows = append(rows, []string{st.Name(), st.Description(), strings.Join(st.SettingsKeys(), ", ")})
	}
	fmt.Println(renderTable("Effect stages", []string{"Stage", "Description", "Settings"}, rows, nil))
}
