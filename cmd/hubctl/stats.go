package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"restaurant-hub/observability"
	"restaurant-hub/runtime"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type statsSnapshot struct {
	Process   observability.ProcessStats `json:"process"`
	Hub       runtime.Stats              `json:"hub"`
	SampledAt time.Time                  `json:"sampledAt"`
}

func statsCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show connection and process stats of a hub",
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshot, err := fetchStats(cmd.Context(), strings.TrimSuffix(cfg.URL, "/")+"/stats")
			if err != nil {
				return err
			}
			renderStats(cmd.OutOrStdout(), snapshot)
			return nil
		},
	}
}

func fetchStats(ctx context.Context, url string) (statsSnapshot, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return statsSnapshot{}, err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(request)
	if err != nil {
		return statsSnapshot{}, fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statsSnapshot{}, fmt.Errorf("fetch stats: unexpected status %s", resp.Status)
	}
	var snapshot statsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return statsSnapshot{}, fmt.Errorf("decode stats: %w", err)
	}
	return snapshot, nil
}

func renderStats(w io.Writer, s statsSnapshot) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	table.Append([]string{"connections", strconv.Itoa(s.Hub.Connections)})
	table.Append([]string{"rooms", strconv.Itoa(s.Hub.Rooms)})
	table.Append([]string{"memberships", strconv.Itoa(s.Hub.Memberships)})
	for _, kind := range sortedKeys(s.Hub.ByKind) {
		table.Append([]string{"connections." + kind, strconv.Itoa(s.Hub.ByKind[kind])})
	}
	for _, entity := range sortedKeys(s.Hub.ByEntity) {
		table.Append([]string{"rooms." + entity, strconv.Itoa(s.Hub.ByEntity[entity])})
	}
	if !s.SampledAt.IsZero() {
		table.Append([]string{"process.rss", fmt.Sprintf("%.1f MiB", float64(s.Process.RSSBytes)/(1<<20))})
		table.Append([]string{"process.cpu", fmt.Sprintf("%.1f%%", s.Process.CPUPercent)})
		table.Append([]string{"process.goroutines", strconv.Itoa(s.Process.Goroutines)})
		table.Append([]string{"sampled_at", s.SampledAt.Format(time.RFC3339)})
	}
	table.Render()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
