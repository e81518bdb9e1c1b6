package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"busdriver/internal/models"

	"github.com/charmbracelet/lipgloss"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	activeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2196F3"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	syncedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a94a6")).Width(14)
	headerStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
)

// formatMillis renders epoch millis in local time, or "-" when unset
func formatMillis(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return time.UnixMilli(*ms).Local().Format(timeLayout)
}

func renderStatus(s models.TripStatus) string {
	switch s {
	case models.TripStatusActive:
		return activeStyle.Render(string(s))
	case models.TripStatusCompleted:
		return completedStyle.Render(string(s))
	case models.TripStatusSynced:
		return syncedStyle.Render(string(s))
	}
	return string(s)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label), value)
}

func printTrips(w io.Writer, trips []models.Trip) {
	if len(trips) == 0 {
		fmt.Fprintln(w, "No trips recorded yet.")
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-36s  %-10s  %-19s  %-9s  %s", "TRIP", "ROUTE", "STARTED", "DURATION", "STATUS")))
	for _, t := range trips {
		start := t.StartTime
		fmt.Fprintf(w, "%-36s  %-10s  %-19s  %-9s  %s\n",
			t.ID, t.RouteID, formatMillis(&start), formatDuration(t.Duration()), renderStatus(t.Status))
	}
}

func printTripDetails(w io.Writer, d *models.TripDetails) {
	start := d.Trip.StartTime
	printField(w, "Trip", d.Trip.ID)
	printField(w, "Route", d.Trip.RouteID)
	printField(w, "Driver", d.Trip.DriverID)
	printField(w, "Status", renderStatus(d.Trip.Status))
	printField(w, "Started", formatMillis(&start))
	printField(w, "Ended", formatMillis(d.Trip.EndTime))
	printField(w, "Duration", formatDuration(d.Trip.Duration()))
	printField(w, "Points", fmt.Sprint(d.LocationCount))
	printField(w, "First point", formatMillis(d.FirstPointAt))
	printField(w, "Last point", formatMillis(d.LastPointAt))
}

func printRoutes(w io.Writer, routes []models.Route) {
	if len(routes) == 0 {
		fmt.Fprintln(w, "No routes cached. Run `busdriver refresh`.")
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-10s  %-24s  %s", "ROUTE", "NAME", "STOPS")))
	for _, r := range routes {
		fmt.Fprintf(w, "%-10s  %-24s  %s\n", r.ID, r.Name, stops(r))
	}
}

func stops(r models.Route) string {
	var parts []string
	if r.StartPoint != nil {
		parts = append(parts, *r.StartPoint)
	}
	if r.EndPoint != nil {
		parts = append(parts, *r.EndPoint)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " → ")
}
