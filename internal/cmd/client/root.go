package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the filings client.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "filings",
		Short: "Filings client commands",
	}
	root.AddCommand(NewFilingsCommand(baseURL))
	return root
}
