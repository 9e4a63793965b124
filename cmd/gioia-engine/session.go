package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage analysis sessions",
	Long: `A session holds one research query, its document corpus, and every
stage output derived from them. Sessions are stored in a SQLite database
under the store directory.`,
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a session for a research query",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		name, _ := cmd.Flags().GetString("name")
		remarks, _ := cmd.Flags().GetString("remarks")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.store.NewSession(cmd.Context(), name, query)
		if err != nil {
			return err
		}
		if remarks != "" {
			sess.State.Remarks = remarks
			if err := a.store.SaveState(cmd.Context(), sess.ID, sess.Stage, sess.State); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), sess.ID)
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No sessions.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSTAGE\tDOCS\tUPDATED")
		for _, s := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Name, s.Stage, s.Documents, s.Updated.Local().Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a session as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.session(cmd.Context(), firstArg(args))
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(sess); err != nil {
			return err
		}
		return enc.Close()
	},
}

var sessionExportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Write a session snapshot to the exports directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.session(cmd.Context(), firstArg(args))
		if err != nil {
			return err
		}
		var path string
		switch format {
		case "yaml":
			path, err = a.store.ExportYAML(cmd.Context(), sess.ID)
		case "json":
			path, err = a.store.ExportJSON(cmd.Context(), sess.ID)
		default:
			return fmt.Errorf("unknown export format %q: use yaml or json", format)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session and its documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
		return nil
	},
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func init() {
	sessionNewCmd.Flags().String("query", "", "research query guiding the analysis")
	sessionNewCmd.Flags().String("name", "", "session name (default: the query)")
	sessionNewCmd.Flags().String("remarks", "", "additional remarks passed to the model stages")
	_ = sessionNewCmd.MarkFlagRequired("query")

	sessionExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	sessionCmd.AddCommand(sessionNewCmd, sessionListCmd, sessionShowCmd, sessionExportCmd, sessionDeleteCmd)
	rootCmd.AddCommand(sessionCmd)
}
