package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

var reportHeader = table.Row{
	"#",
	"Name",
	"Kind",
	"Label",
	"Parents",
}

// Report renders the schedule as a human-readable table.
func (s *Schedule) Report() string {
	t := table.NewWriter()
	t.AppendHeader(reportHeader)
	for i, n := range s.nodes {
		b := n.NodeBase()
		var parents []string
		for _, p := range b.Parents() {
			parents = append(parents, p.NodeBase().Name())
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("%d", i),
			b.Name(),
			b.Kind(),
			b.Label(),
			strings.Join(parents, ", "),
		})
	}
	return t.Render()
}

// WriteReport writes Report to path.
func (s *Schedule) WriteReport(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s.Report()+"\n"), 0o644)
}
