package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/dhcgn/mht-to-html/inspect"
	"github.com/dhcgn/mht-to-html/source"
)

var (
	reportDir   string
	showActions bool
	strict      bool
	recursive   bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [mht file or directory]...",
	Short: "Analyse archives and report on their parts, recorded steps and converted output",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := source.Discover(args, recursive)
		if err != nil {
			return fmt.Errorf("discover inputs: %w", err)
		}

		var reports []inspect.Report
		issueCount := 0
		for _, path := range files {
			doc, err := source.ReadDocument(path)
			if err != nil {
				return err
			}

			report, err := inspect.Inspect(doc.Name, doc.Raw)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", path, err)
			}
			report.Name = path

			printReport(report, showActions)
			issueCount += len(report.Issues())
			reports = append(reports, report)
		}

		if reportDir != "" {
			if err := saveCSVReports(reports, reportDir); err != nil {
				return fmt.Errorf("error saving CSV reports: %w", err)
			}
			fmt.Printf("\nReports saved to directory: %s\n", reportDir)
		}

		if strict && issueCount > 0 {
			return fmt.Errorf("%d issue(s) found", issueCount)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&reportDir, "output", "o", "", "Output directory for CSV reports")
	inspectCmd.Flags().BoolVarP(&showActions, "actions", "a", false, "List every recorded action")
	inspectCmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when any issue is found")
	inspectCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories of directory inputs")
}

func printReport(r inspect.Report, actions bool) {
	pterm.DefaultSection.Println(r.Name)
	pterm.Info.Printf("Size: %d bytes, %d part(s)\n", r.Size, len(r.Parts))

	data := pterm.TableData{{"#", "Content-Type", "Location", "Encoding", "Size", "Image"}}
	for _, p := range r.Parts {
		img := ""
		if p.Format != "" {
			img = fmt.Sprintf("%s %dx%d", p.Format, p.Width, p.Height)
		}
		data = append(data, []string{strconv.Itoa(p.Index), p.ContentType, p.Location, p.Encoding, strconv.Itoa(p.Size), img})
	}
	if len(r.Parts) > 0 {
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}

	if rec := r.Recording; rec != nil {
		pterm.Info.Printf("Recorded steps: %d (%s - %s)\n", len(rec.Actions), rec.StartTime, rec.StopTime)
		if actions {
			steps := pterm.TableData{{"Step", "Time", "Description"}}
			for _, a := range rec.Actions {
				steps = append(steps, []string{a.Number, a.Time, a.Description})
			}
			_ = pterm.DefaultTable.WithHasHeader().WithData(steps).Render()
		}
	}

	if out := r.Output; out != nil {
		pterm.Info.Printf("Output: %s (%d bytes) %q\n", out.FileName, out.Bytes, out.Title)
		pterm.Info.Printf("Images: %d inline of %d, style blocks: %d, css rules: %d\n",
			out.DataImages, out.Images, out.StyleBlocks, out.CSSRules)
	}

	issues := r.Issues()
	if len(issues) == 0 {
		pterm.Success.Println("No issues found")
	}
	for _, issue := range issues {
		pterm.Warning.Println(issue)
	}
	pterm.Println()
}

func saveCSVReports(reports []inspect.Report, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	parts := [][]string{{"File", "Index", "ContentType", "Location", "Encoding", "Size", "Format", "Width", "Height"}}
	steps := [][]string{{"File", "Step", "Time", "Description"}}
	for _, r := range reports {
		for _, p := range r.Parts {
			parts = append(parts, []string{
				r.Name, strconv.Itoa(p.Index), p.ContentType, p.Location, p.Encoding,
				strconv.Itoa(p.Size), p.Format, strconv.Itoa(p.Width), strconv.Itoa(p.Height),
			})
		}
		if r.Recording == nil {
			continue
		}
		for _, a := range r.Recording.Actions {
			steps = append(steps, []string{r.Name, a.Number, a.Time, a.Description})
		}
	}

	if err := writeCSV(filepath.Join(dir, "report_parts.csv"), parts); err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, "report_steps.csv"), steps)
}

func writeCSV(path string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(records); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}
