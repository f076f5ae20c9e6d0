// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the Aleutian CLI.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Aleutian color palette - deep ocean teals and arctic waters
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Bright teal - highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Primary teal - main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // Deep teal - borders, accents
	ColorSlate       = lipgloss.Color("#2C4A54") // Slate - muted text, borders

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// Mode selects how a Printer formats output.
type Mode int

const (
	// ModeStyled uses colors, icons, and boxes.
	ModeStyled Mode = iota

	// ModePlain uses icons without colors.
	ModePlain

	// ModeMachine emits tab-separated lines for scripts.
	ModeMachine
)

// DetectMode returns ModeStyled when f is a terminal and ModePlain otherwise.
func DetectMode(f *os.File) Mode {
	if f == nil {
		return ModePlain
	}
	fd := f.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return ModeStyled
	}
	return ModePlain
}

// ChainLine is one completion as shown by the CLI.
type ChainLine struct {
	Title    string
	Body     string
	Expected string
	Length   int
}

// MemberLine is one type member as shown by the CLI.
type MemberLine struct {
	Kind   string
	Name   string
	Type   string
	Static bool
}

// SearchSummary holds the counters printed after a search.
type SearchSummary struct {
	Chains         int
	Visited        int
	Duration       time.Duration
	TimedOut       bool
	FrontierCapped bool
	Unresolved     []string
}

// Printer writes CLI output in one Mode.
//
// Thread Safety: Not safe for concurrent use.
type Printer struct {
	out  io.Writer
	err  io.Writer
	mode Mode
}

// NewPrinter creates a printer writing results to out and diagnostics to errOut.
func NewPrinter(out, errOut io.Writer, mode Mode) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{out: out, err: errOut, mode: mode}
}

// Mode returns the printer mode.
func (p *Printer) Mode() Mode {
	return p.mode
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if p.mode != ModeStyled {
		return text
	}
	return s.Render(text)
}

func (p *Printer) icon(i Icon) string {
	if p.mode != ModeStyled {
		return string(i)
	}
	return i.Render()
}

// Title prints a styled title
func (p *Printer) Title(text string) {
	if p.mode == ModeMachine {
		return
	}
	fmt.Fprintln(p.out, p.style(Styles.Title, text))
}

// Success prints a success message with checkmark
func (p *Printer) Success(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.out, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", p.icon(IconSuccess), p.style(Styles.Success, text))
}

// Warning prints a warning message
func (p *Printer) Warning(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.err, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.err, "%s %s\n", p.icon(IconWarning), p.style(Styles.Warning, text))
}

// Error prints an error message
func (p *Printer) Error(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.err, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.err, "%s %s\n", p.icon(IconError), p.style(Styles.Error, text))
}

// Info prints an informational message
func (p *Printer) Info(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintln(p.out, text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", p.style(Styles.Muted, "│"), text)
}

// Box prints text in a rounded box
func (p *Printer) Box(title, content string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintf(p.out, "%s: %s\n", title, content)
	case ModePlain:
		fmt.Fprintf(p.out, "%s\n%s\n", title, content)
	default:
		boxStyle := Styles.Box.Width(60)
		fmt.Fprintln(p.out, boxStyle.Render(Styles.Title.Render(title)+"\n"+content))
	}
}

// Chains prints completions, one per line.
func (p *Printer) Chains(lines []ChainLine) {
	if len(lines) == 0 {
		if p.mode != ModeMachine {
			fmt.Fprintln(p.out, p.style(Styles.Muted, "no chains found"))
		}
		return
	}

	width := 0
	for _, l := range lines {
		if len(l.Body) > width {
			width = len(l.Body)
		}
	}

	for i, l := range lines {
		if p.mode == ModeMachine {
			fmt.Fprintf(p.out, "%s\t%s\t%d\t%s\n", l.Expected, l.Body, l.Length, l.Title)
			continue
		}
		pad := strings.Repeat(" ", width-len(l.Body))
		fmt.Fprintf(p.out, "%s %s%s  %s %s\n",
			p.style(Styles.Muted, fmt.Sprintf("%2d.", i+1)),
			p.style(Styles.Highlight, l.Body), pad,
			p.icon(IconArrow),
			p.style(Styles.Subtitle, l.Expected),
		)
	}
}

// Members prints the members of a type.
func (p *Printer) Members(typeName string, lines []MemberLine) {
	if p.mode == ModeMachine {
		for _, l := range lines {
			fmt.Fprintf(p.out, "%s\t%s\t%s\t%t\n", l.Kind, l.Name, l.Type, l.Static)
		}
		return
	}

	fmt.Fprintln(p.out, p.style(Styles.Title, typeName))
	if len(lines) == 0 {
		fmt.Fprintln(p.out, p.style(Styles.Muted, "  (no members)"))
		return
	}
	for _, l := range lines {
		static := ""
		if l.Static {
			static = p.style(Styles.Muted, " static")
		}
		fmt.Fprintf(p.out, "  %s %-6s %s %s%s\n",
			p.icon(IconBullet), l.Kind, p.style(Styles.Bold, l.Name),
			p.style(Styles.Subtitle, l.Type), static)
	}
}

// Summary prints search counters.
func (p *Printer) Summary(s SearchSummary) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.err, "SUMMARY: chains=%d visited=%d duration_ms=%d timed_out=%t capped=%t\n",
			s.Chains, s.Visited, s.Duration.Milliseconds(), s.TimedOut, s.FrontierCapped)
		return
	}

	fmt.Fprintf(p.out, "\n%s %s  %s %s  %s\n",
		p.style(Styles.Success, fmt.Sprintf("%d", s.Chains)), p.style(Styles.Muted, "chains"),
		p.style(Styles.Bold, fmt.Sprintf("%d", s.Visited)), p.style(Styles.Muted, "visited"),
		p.style(Styles.Muted, s.Duration.Round(time.Microsecond).String()),
	)
	if len(s.Unresolved) > 0 {
		p.Warning("unresolved expected types: " + strings.Join(s.Unresolved, ", "))
	}
	if s.TimedOut {
		p.Warning("search timed out, results are partial")
	}
	if s.FrontierCapped {
		p.Warning("search frontier capped, results may be incomplete")
	}
}
