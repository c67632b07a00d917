package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/auditd/internal/site"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	slugStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	missingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List registered sites and whether they can be audited",
	Long: `List the sites from the sites file with their content directory and
whether that directory exists. Only available sites can be audited.`,
	RunE: runSites,
}

var (
	sitesFile string
	sitesJSON bool
)

func init() {
	sitesCmd.Flags().StringVar(&sitesFile, "sites", "", "sites file, JSON or YAML (env AUDITD_SITES)")
	sitesCmd.Flags().BoolVar(&sitesJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(sitesCmd)
}

type siteRow struct {
	site.Descriptor
	Available bool `json:"available"`
}

func runSites(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("sites") {
		cfg.Sites = sitesFile
	}

	registry, err := site.Load(cfg.Sites)
	if err != nil {
		return err
	}

	rows := make([]siteRow, 0, registry.Len())
	for _, d := range registry.All() {
		rows = append(rows, siteRow{Descriptor: d, Available: d.ContentAvailable()})
	}

	out := cmd.OutOrStdout()
	if sitesJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	renderSites(out, rows)
	return nil
}

func renderSites(w io.Writer, rows []siteRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No sites registered."))
		return
	}

	slugWidth, nameWidth := len("SLUG"), len("NAME")
	for _, r := range rows {
		slugWidth = max(slugWidth, len(r.Slug))
		nameWidth = max(nameWidth, len(r.Name))
	}
	col := func(s lipgloss.Style, width int) lipgloss.Style { return s.Width(width + 2) }

	fmt.Fprintln(w,
		col(headerStyle, slugWidth).Render("SLUG")+
			col(headerStyle, nameWidth).Render("NAME")+
			col(headerStyle, len("unavailable")).Render("STATUS")+
			headerStyle.Render("URL"))

	available := 0
	for _, r := range rows {
		status := missingStyle.Render("unavailable")
		if r.Available {
			status = okStyle.Render("available")
			available++
		}
		fmt.Fprintln(w,
			col(slugStyle, slugWidth).Render(r.Slug)+
				col(lipgloss.NewStyle(), nameWidth).Render(r.Name)+
				col(lipgloss.NewStyle(), len("unavailable")).Render(status)+
				r.URL)
		if !r.Available {
			dir := r.ContentDir
			if dir == "" {
				dir = "(no content directory)"
			}
			fmt.Fprintln(w, dimStyle.Render("  └ "+dir))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d of %d sites available", available, len(rows))))
}
