package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/journey/internal/presentation/graph"
	"github.com/aretw0/journey/pkg/adapters/file"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/schema"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <workflow-id|file>",
	Short: "Export the workflow graph visualization",
	Long: `Outputs the control flow of a workflow as a Mermaid diagram (graph TD), as JSON,
or as an SVG/PNG image rendered with Graphviz. With --session, the nodes the
session visited and its current position are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		sessionID, _ := cmd.Flags().GetString("session")

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		var wf *domain.Workflow
		if _, ok := schema.FormatFromPath(args[0]); ok {
			wf, err = file.LoadFile(args[0])
		} else {
			wf, err = app.Engine.Load(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}

		var sess *domain.Session
		if sessionID != "" {
			if sess, err = app.Store.Load(cmd.Context(), sessionID); err != nil {
				return err
			}
		}

		g := graph.Linearize(wf)
		var data []byte
		switch format {
		case "mermaid":
			data = []byte(graph.GenerateMermaid(g, graph.OverlayFor(sess)))
		case "json":
			if data, err = json.MarshalIndent(g, "", "  "); err != nil {
				return err
			}
			data = append(data, '\n')
		case "svg", "png":
			if data, err = graph.RenderImage(cmd.Context(), g, graph.ImageFormat(format)); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown format %q: expected mermaid, json, svg or png", format)
		}

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		_, err = w.Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid, json, svg or png")
	graphCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	graphCmd.Flags().String("session", "", "Highlight the position of a stored session")
}
