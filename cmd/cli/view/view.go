package view

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/linecard/trainstack/internal/util"
	"github.com/linecard/trainstack/pkg/convention/deployment"
	"github.com/linecard/trainstack/pkg/convention/drift"
	"github.com/linecard/trainstack/pkg/convention/rules"
	"github.com/linecard/trainstack/pkg/topology"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang-module/carbon/v2"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	good    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	bad     = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	pending = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	plain   = lipgloss.NewStyle()
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// styleFor colors a provisioning status or rule severity.
func styleFor(status string) lipgloss.Style {
	switch {
	case status == string(rules.Error),
		strings.Contains(status, "FAILED"),
		strings.Contains(status, "ROLLBACK"):
		return bad
	case status == string(rules.Warning),
		strings.HasSuffix(status, "IN_PROGRESS"):
		return pending
	case strings.HasSuffix(status, "COMPLETE"):
		return good
	}
	return plain
}

func Outputs(w io.Writer, outputs map[string]string) {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	t := newTable(w)
	t.AppendHeader(table.Row{"Output", "Value"})
	for _, name := range names {
		t.AppendRow(table.Row{name, outputs[name]})
	}
	t.Render()
}

func Plan(w io.Writer, r topology.Resolved) {
	g := r.Graph

	resources := newTable(w)
	resources.SetTitle("Resources")
	resources.AppendHeader(table.Row{"Logical ID", "Kind", "Identifier"})
	for _, id := range g.Order() {
		kind, _ := g.Kind(id)

		identifier, exists := r.Attribute(id, topology.AttrName)
		if !exists {
			identifier, _ = r.Attribute(id, topology.AttrId)
		}

		resources.AppendRow(table.Row{id, kind, identifier})
	}
	resources.Render()

	bindings := newTable(w)
	bindings.SetTitle("Bindings")
	bindings.AppendHeader(table.Row{"Api", "Route", "Handler"})
	for _, api := range g.SyncApis {
		for _, b := range api.Bindings() {
			bindings.AppendRow(table.Row{api.ID, b.Method + " " + b.Path, b.Handler})
		}
	}
	for _, api := range g.StreamApis {
		for _, route := range api.Routes {
			bindings.AppendRow(table.Row{api.ID, route.Key, route.Handler})
		}
	}
	bindings.Render()

	statements := g.Statements()

	grants := newTable(w)
	grants.SetTitle("Grants")
	grants.AppendHeader(table.Row{"Owner", "Actions", "Resources"})
	for _, owner := range g.Order() {
		for _, s := range statements[owner] {
			resolved, err := r.Values(s.Resources)
			if err != nil {
				resolved = []string{err.Error()}
			}
			grants.AppendRow(table.Row{owner, strings.Join(s.Actions, "\n"), strings.Join(resolved, "\n")})
		}
	}
	grants.Render()

	inv := g.Inventory()
	fmt.Fprintf(w, "%d buckets, %d repositories, %d identities, %d handlers, %d rest apis (%d resources), %d websocket apis (%d stages), %d outputs\n",
		inv.Containers, inv.Repositories, inv.Identities, inv.Handlers, inv.SyncApis, inv.SyncResources, inv.StreamApis, inv.StreamStages, inv.Outputs)
}

func Violations(w io.Writer, violations []rules.Violation) {
	if len(violations) == 0 {
		fmt.Fprintln(w, good.Render("no rule violations"))
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Rule", "Resource", "Severity", "Message"})
	for _, v := range violations {
		t.AppendRow(table.Row{v.Rule, v.Resource, styleFor(string(v.Severity)).Render(string(v.Severity)), v.Message})
	}
	t.Render()
}

func Findings(w io.Writer, findings []drift.Finding) {
	if len(findings) == 0 {
		fmt.Fprintln(w, good.Render("no drift"))
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Resource", "Check", "Expected", "Actual"})
	for _, f := range findings {
		t.AppendRow(table.Row{f.Resource, f.Check, f.Expected, bad.Render(f.Actual)})
	}
	t.Render()
}

func Status(w io.Writer, s deployment.Status) {
	status := string(s.Stack.StackStatus)
	fmt.Fprintf(w, "%s %s\n", aws.ToString(s.Stack.StackName), styleFor(status).Render(status))

	for _, tag := range s.Stack.Tags {
		if aws.ToString(tag.Key) == "trainstack:git-sha" {
			fmt.Fprintf(w, "sha %s\n", util.UnsafeSlice(aws.ToString(tag.Value), 0, 7))
		}
	}

	if s.Stack.LastUpdatedTime != nil {
		fmt.Fprintf(w, "updated %s\n", carbon.CreateFromStdTime(*s.Stack.LastUpdatedTime).DiffForHumans())
	} else if s.Stack.CreationTime != nil {
		fmt.Fprintf(w, "created %s\n", carbon.CreateFromStdTime(*s.Stack.CreationTime).DiffForHumans())
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"When", "Resource", "Status", "Reason"})
	for _, e := range s.Events {
		when := ""
		if e.Timestamp != nil {
			when = carbon.CreateFromStdTime(*e.Timestamp).DiffForHumans()
		}

		eventStatus := string(e.ResourceStatus)
		t.AppendRow(table.Row{
			when,
			aws.ToString(e.LogicalResourceId),
			styleFor(eventStatus).Render(eventStatus),
			aws.ToString(e.ResourceStatusReason),
		})
	}
	t.Render()
}
