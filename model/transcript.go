package model

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentchat/core"
)

// Transcript renders history as plain "Author: text" lines for oracle
// prompts. Function calls and results are summarized on one line each.
// limit > 0 keeps only the most recent messages.
func Transcript(history []core.Message, limit int) string {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	var b strings.Builder

	for _, m := range history {
		who := m.Author
		if who == "" {
			who = string(m.Role)
		}

		switch {
		case m.HasFunctionCalls():
			names := make([]string, 0)
			for _, c := range m.FunctionCalls() {
				names = append(names, c.Name)
			}
			fmt.Fprintf(&b, "%s: [calls %s]", who, strings.Join(names, ", "))
			if t := m.Text(); t != "" {
				fmt.Fprintf(&b, " %s", t)
			}
		case m.Role == core.RoleTool:
			for i, r := range m.FunctionResults() {
				if i > 0 {
					b.WriteString("\n")
				}
				if r.Success() {
					fmt.Fprintf(&b, "tool %s: %s", r.Name, r.ResultString())
				} else {
					fmt.Fprintf(&b, "tool %s failed: %s", r.Name, r.Error)
				}
			}
		default:
			fmt.Fprintf(&b, "%s: %s", who, m.Text())
		}

		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// Roster renders participants as "- Name: Description" lines.
func Roster(participants []core.AgentDescriptor) string {
	var b strings.Builder
	for _, p := range participants {
		fmt.Fprintf(&b, "- %s", p.Name)
		if p.Description != "" {
			fmt.Fprintf(&b, ": %s", p.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
