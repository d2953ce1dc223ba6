package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"metalwatch-service/internal/domain"
	"metalwatch-service/internal/index"
)

// NewIndicesCmd computes the indices of a single measurement offline.
func NewIndicesCmd() *cobra.Command {
	var (
		concentration float64
		limit         float64
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "indices",
		Short: "Compute CF, I-geo and PLI for one measurement",
		RunE: func(cmd *cobra.Command, args []string) error {
			ix := index.Compute(concentration, limit)
			class := index.Classify(ix.CF)
			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(struct {
					CF    domain.Number `json:"cf"`
					IGeo  domain.Number `json:"iGeo"`
					PLI   domain.Number `json:"pli"`
					Class index.Class   `json:"class"`
				}{domain.Number(ix.CF), domain.Number(ix.IGeo), domain.Number(ix.PLI), class})
			}
			_, err := fmt.Fprintf(out, "cf=%.3f igeo=%.3f pli=%.3f class=%s\n", ix.CF, ix.IGeo, ix.PLI, class)
			return err
		},
	}
	cmd.Flags().Float64Var(&concentration, "concentration", 0, "measured concentration")
	cmd.Flags().Float64Var(&limit, "limit", 0, "permissible limit")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	_ = cmd.MarkFlagRequired("concentration")
	_ = cmd.MarkFlagRequired("limit")
	return cmd
}
