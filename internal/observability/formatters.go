// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/reaction-reach/internal/stealth"
	"github.com/jonathan/reaction-reach/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSession outputs the restored session's identity and trust state.
func (p *Printer) PrintSession(sess *types.Session) {
	if sess == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Context:   %s\n", sess.ContextID))
	sb.WriteString(fmt.Sprintf("Trust:     %s\n", sess.TrustLevel))
	if !sess.LastValidatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Validated: %s", sess.LastValidatedAt.Format("2006-01-02 15:04:05")))
	} else {
		sb.WriteString("Validated: never")
	}

	p.printBox("BROWSING SESSION", sb.String())
}

// PrintPostResult outputs one post's harvest outcome.
func (p *Printer) PrintPostResult(result *types.PostResult) {
	if result == nil {
		return
	}

	var sb strings.Builder

	preview := result.Post.ContentPreview
	if len(preview) > 50 {
		preview = preview[:47] + "..."
	}
	if preview != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", preview))
	}

	declared := fmt.Sprintf("%d", result.Post.ReactionCountDeclared)
	if result.Post.ReactionCountDeclared < 0 {
		declared = "unknown"
	}
	sb.WriteString(fmt.Sprintf("Declared reactions: %s\n", declared))
	sb.WriteString(fmt.Sprintf("Harvested:          %d\n", result.HarvestedCount))
	sb.WriteString(fmt.Sprintf("Records:            %d", len(result.Records)))
	if low := result.LowConfidenceCount(); low > 0 {
		sb.WriteString(fmt.Sprintf(" (%d low-confidence)", low))
	}
	sb.WriteString("\n")

	if result.HarvestError != "" {
		sb.WriteString(fmt.Sprintf("⚠ %s\n", result.HarvestError))
	} else if result.Complete {
		sb.WriteString("✓ complete\n")
	} else {
		sb.WriteString("⚠ incomplete (modal stalled before declared count)\n")
	}

	count := min(len(result.Records), maxItemsToShow)
	if count > 0 {
		sb.WriteString("\n")
		for i := 0; i < count; i++ {
			rec := result.Records[i]
			sb.WriteString(fmt.Sprintf("  • %s", rec.Name))
			if rec.Title != "" {
				sb.WriteString(fmt.Sprintf(" — %s", rec.Title))
			}
			sb.WriteString("\n")
		}
		if len(result.Records) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.Records)-maxItemsToShow))
		}
	}

	p.printBox(fmt.Sprintf("POST %s", result.Post.ID), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintJobSummary outputs the run-level outcome.
func (p *Printer) PrintJobSummary(job *types.ExtractionJob) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Profile:  %s\n", job.ProfileURL))
	sb.WriteString(fmt.Sprintf("Status:   %s", job.Status))
	if job.FailureKind != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", job.FailureKind))
	}
	sb.WriteString("\n")

	totalRecords := 0
	incomplete := 0
	for _, post := range job.Posts {
		totalRecords += len(post.Records)
		if !post.Complete || post.HarvestError != "" {
			incomplete++
		}
	}
	sb.WriteString(fmt.Sprintf("Posts:    %d", len(job.Posts)))
	if incomplete > 0 {
		sb.WriteString(fmt.Sprintf(" (%d incomplete)", incomplete))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Records:  %d\n", totalRecords))

	if !job.FinishedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Duration: %s", job.FinishedAt.Sub(job.StartedAt).Round(10*time.Millisecond)))
	}

	p.printBox("EXTRACTION SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPacingStats outputs the scheduler's activity counters.
func (p *Printer) PrintPacingStats(stats stealth.Stats) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Actions:   %d\n", stats.TotalActions))
	sb.WriteString(fmt.Sprintf("Cooldowns: %d\n", stats.Cooldowns))

	for _, class := range []stealth.ActionClass{stealth.ActionNavigate, stealth.ActionClick, stealth.ActionScroll, stealth.ActionExtract} {
		if n, ok := stats.ByClass[class]; ok {
			sb.WriteString(fmt.Sprintf("  %-10s %d\n", class+":", n))
		}
	}

	p.printBox("PACING", strings.TrimSuffix(sb.String(), "\n"))
}
