package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/polifund/fundscan/constants"
	"github.com/polifund/fundscan/internal/common"
	"github.com/polifund/fundscan/internal/formtype"
)

func newFormsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forms",
		Short: "List supported form types with their models and field sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := common.LoadConfig()
			if root.configPath != "" {
				if err := cfg.ApplyFile(root.configPath); err != nil {
					return err
				}
			}
			registry := formtype.NewRegistry(cfg.Azure.Models)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FORM\tMODEL\tFIELDS")
			for _, name := range constants.FormTypes() {
				def, err := registry.Definition(name)
				if err != nil {
					return err
				}
				modelID, err := registry.ModelID(def.Type)
				if err != nil {
					modelID = "(not configured)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, modelID, strings.Join(def.Fields, ","))
			}
			return w.Flush()
		},
	}
}
