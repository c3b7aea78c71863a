package client

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	transports "github.com/rzbill/filings/internal/cmd/client/transports"
	"github.com/rzbill/filings/internal/filings"
)

// NewFilingsCommand constructs the `filings` command group and subcommands.
func NewFilingsCommand(baseURL BaseURLFunc) *cobra.Command {
	filingsCmd := &cobra.Command{Use: "filings", Short: "Filing operations"}
	filingsCmd.PersistentFlags().String("transport", "http", "Transport: http|grpc")

	filingsCmd.AddCommand(
		newGetCommand(baseURL),
		newListCommand(baseURL),
		newImportCommand(baseURL),
	)
	return filingsCmd
}

func transportFor(cmd *cobra.Command, baseURL BaseURLFunc) (transports.FilingsTransport, error) {
	name, _ := cmd.Flags().GetString("transport")
	if name != "http" && name != "grpc" {
		return nil, fmt.Errorf("invalid --transport %q; use http|grpc", name)
	}
	return getTransport(name, baseURL), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newGetCommand constructs the `filings get <id>` subcommand.
func newGetCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch one filing by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			t, err := transportFor(cmd, baseURL)
			if err != nil {
				return err
			}
			f, err := t.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, f)
		},
	}
}

// newListCommand constructs the `filings list <source>` subcommand.
func newListCommand(baseURL BaseURLFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list <source>",
		Short: "List a source's filings in id order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pageSize, _ := cmd.Flags().GetInt("page-size")
			after, _ := cmd.Flags().GetUint64("after")
			filter, _ := cmd.Flags().GetString("filter")
			t, err := transportFor(cmd, baseURL)
			if err != nil {
				return err
			}
			page, err := t.List(cmd.Context(), transports.ListRequest{
				Source:   args[0],
				PageSize: pageSize,
				After:    after,
				Filter:   filter,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, page)
		},
	}
	listCmd.Flags().Int("page-size", 0, "Max items to return (0 = server default)")
	listCmd.Flags().Uint64("after", 0, "Return filings with ids above this one")
	listCmd.Flags().String("filter", "", "CEL filter (server-side), e.g. form_type == \"10-K\"")
	return listCmd
}

// newImportCommand constructs the `filings import <file.json>` subcommand.
// The file holds either a JSON array of filings or {"filings": [...]}; it is
// sent in batches of at most --batch-size.
func newImportCommand(baseURL BaseURLFunc) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Bulk-insert filings from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchSize, _ := cmd.Flags().GetInt("batch-size")
			if batchSize <= 0 || batchSize > filings.MaxBatchSize {
				return fmt.Errorf("--batch-size must be in 1..%d", filings.MaxBatchSize)
			}
			items, err := readFilings(args[0])
			if err != nil {
				return err
			}
			t, err := transportFor(cmd, baseURL)
			if err != nil {
				return err
			}

			var total struct {
				Batches      int `json:"batches"`
				SuccessCount int `json:"successCount"`
				FailureCount int `json:"failureCount"`
			}
			for start := 0; start < len(items); start += batchSize {
				end := min(start+batchSize, len(items))
				res, err := t.Create(cmd.Context(), items[start:end])
				if err != nil {
					return fmt.Errorf("batch at %d: %w", start, err)
				}
				total.Batches++
				total.SuccessCount += res.Result.SuccessCount
				total.FailureCount += res.Result.FailureCount
			}
			return printJSON(cmd, total)
		},
	}
	importCmd.Flags().Int("batch-size", filings.MaxBatchSize, "Filings per request")
	return importCmd
}

func readFilings(path string) ([]filings.Filing, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []filings.Filing
	if err := json.Unmarshal(b, &items); err == nil {
		return items, nil
	}
	var wrapped struct {
		Filings []filings.Filing `json:"filings"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return wrapped.Filings, nil
}
