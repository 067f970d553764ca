package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/streambinder/hymnal/entity"
	"gopkg.in/yaml.v3"
)

// printReport renders report as yaml, or as a colored summary
func printReport(out io.Writer, report entity.Report, asYAML bool) error {
	if asYAML {
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(report); err != nil {
			return err
		}
		return encoder.Close()
	}

	var (
		green  = color.New(color.FgGreen).SprintFunc()
		red    = color.New(color.FgRed).SprintFunc()
		yellow = color.New(color.FgYellow).SprintFunc()
	)
	for _, file := range report.Files {
		fmt.Fprintf(out, "%s %s\n", green("✓"), filepath.Base(file))
	}
	for _, failure := range report.Failed {
		fmt.Fprintf(out, "%s %s\n", red("✗"), failure)
	}
	summary := fmt.Sprintf("%d/%d downloaded", report.Success, report.Total)
	if report.Cancelled {
		summary += ", " + yellow("cancelled")
	}
	fmt.Fprintln(out, summary)
	return nil
}
