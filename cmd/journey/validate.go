package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/aretw0/journey/pkg/adapters/file"
	"github.com/aretw0/journey/pkg/schema"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Check workflow definitions for consistency",
	Long: `Parses workflow files against the document schema and reports dangling jump
targets, missing fields, unknown operators and other definition problems.
Without arguments, every workflow in the workflows directory is checked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")

		paths := args
		if len(paths) == 0 {
			var err error
			if paths, err = workflowFiles(cfg.WorkflowsDir); err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no workflow files found in %s", cfg.WorkflowsDir)
			}
		}

		failed := 0
		for _, path := range paths {
			if !validateFile(path, strict) {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d workflows failed validation", failed, len(paths))
		}
		fmt.Println("All workflows are valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().Bool("strict", false, "Treat warnings as errors")
}

func validateFile(path string, strict bool) bool {
	wf, err := file.LoadFile(path)
	if err != nil {
		fmt.Printf("✗ %s\n", path)
		if violations := schema.ValidationErrors(err); len(violations) > 0 {
			for _, v := range violations {
				fmt.Printf("    error %v\n", v)
			}
		} else {
			fmt.Printf("    error %v\n", err)
		}
		return false
	}

	issues := schema.Check(wf)
	ok := !issues.HasErrors() && (!strict || len(issues) == 0)
	mark := "✓"
	if !ok {
		mark = "✗"
	}
	fmt.Printf("%s %s (%s)\n", mark, path, wf.ID)
	for _, issue := range issues {
		fmt.Printf("    %s\n", issue)
	}
	return ok
}

func workflowFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("workflows directory %s does not exist", dir)
		}
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, ok := schema.FormatFromPath(path); ok {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}
