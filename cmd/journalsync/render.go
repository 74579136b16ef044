package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"JournalSync/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	priorityStyles = map[domain.Priority]lipgloss.Style{
		domain.PriorityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		domain.PriorityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		domain.PriorityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		domain.PriorityCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
)

func priorityBadge(p domain.Priority) string {
	style, ok := priorityStyles[p]
	if !ok {
		style = dimStyle
	}
	return style.Render(strings.ToUpper(string(p)))
}

func renderClusters(clusters []domain.Cluster, now time.Time) string {
	if len(clusters) == 0 {
		return dimStyle.Render("no clusters formed")
	}

	blocks := make([]string, 0, len(clusters)+1)
	blocks = append(blocks, titleStyle.Render(fmt.Sprintf("%s clusters", humanize.Comma(int64(len(clusters))))))
	for _, c := range clusters {
		sentiment := "n/a"
		if c.Sentiment != nil {
			sentiment = fmt.Sprintf("%+.2f", *c.Sentiment)
		}
		body := strings.Join([]string{
			fmt.Sprintf("%s  %s", priorityBadge(c.Priority), titleStyle.Render(c.Title)),
			fmt.Sprintf("members %s · sentiment %s · confidence %.2f",
				humanize.Comma(int64(c.Size())), sentiment, c.Confidence),
			dimStyle.Render(fmt.Sprintf("keywords: %s", strings.Join(c.Keywords, ", "))),
			dimStyle.Render(fmt.Sprintf("%s · created %s", c.ID, humanize.RelTime(c.CreatedAt, now, "ago", "from now"))),
		}, "\n")
		blocks = append(blocks, boxStyle.Render(body))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func renderAlerts(alerts []domain.Alert, now time.Time) string {
	if len(alerts) == 0 {
		return dimStyle.Render("no alerts raised")
	}

	blocks := make([]string, 0, len(alerts)+1)
	blocks = append(blocks, titleStyle.Render(fmt.Sprintf("%s alerts", humanize.Comma(int64(len(alerts))))))
	for _, a := range alerts {
		body := strings.Join([]string{
			fmt.Sprintf("%s  %s", priorityBadge(a.Severity), titleStyle.Render(string(a.Category))),
			a.Message,
			dimStyle.Render(fmt.Sprintf("%s entries · raised %s",
				humanize.Comma(int64(len(a.EntryIDs))), humanize.RelTime(a.CreatedAt, now, "ago", "from now"))),
		}, "\n")
		blocks = append(blocks, boxStyle.Render(body))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func renderSweep(n int, olderThan time.Duration) string {
	if n == 0 {
		return dimStyle.Render(fmt.Sprintf("no entries stuck longer than %s", olderThan))
	}
	return titleStyle.Render(fmt.Sprintf("re-analyzed %s %s", humanize.Comma(int64(n)), pluralEntries(n)))
}

func pluralEntries(n int) string {
	if n == 1 {
		return "entry"
	}
	return "entries"
}
