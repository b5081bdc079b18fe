package derive

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Overclock-Validator/pdautil/pkg/base58"
	"github.com/Overclock-Validator/pdautil/pkg/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

var Cmd = cobra.Command{
	Use:   "derive",
	Short: "Find the canonical program-derived address for a seed list",
	Long: `Find the canonical program-derived address for a seed list.

Seeds are UTF-8 strings unless prefixed with "hex:" or "pubkey:".`,
	Args: cobra.NoArgs,
	RunE: run,
}

var (
	flagProgram string
	flagSeeds   []string
	flagBump    int
)

func init() {
	Cmd.Flags().StringVarP(&flagProgram, "program", "p", "", "Program id (base58)")
	Cmd.Flags().StringArrayVarP(&flagSeeds, "seed", "s", nil, "Seed, repeatable and order sensitive")
	Cmd.Flags().IntVarP(&flagBump, "bump", "b", -1, "Check this bump instead of searching for the canonical one")
	_ = Cmd.MarkFlagRequired("program")
}

func run(c *cobra.Command, _ []string) error {
	programId, err := base58.DecodeFromString(flagProgram)
	if err != nil {
		return fmt.Errorf("invalid program id %q: %w", flagProgram, err)
	}

	seeds, err := ParseSeeds(flagSeeds)
	if err != nil {
		return err
	}

	if flagBump >= 0 {
		if flagBump > 255 {
			return fmt.Errorf("bump %d out of range", flagBump)
		}
		addr, err := solana.CreateProgramAddress(append(seeds, []byte{byte(flagBump)}), programId)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "%s %d\n", addr, flagBump)
		return nil
	}

	addr, bump, err := solana.FindProgramAddress(seeds, programId)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "%s %d\n", addr, bump)
	return nil
}

// ParseSeeds decodes seed arguments. "hex:" seeds are hex encoded, "pubkey:"
// seeds are base58 addresses; anything else is taken verbatim.
func ParseSeeds(args []string) ([][]byte, error) {
	seeds := make([][]byte, 0, len(args))
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "hex:"):
			seed, err := hex.DecodeString(strings.TrimPrefix(arg, "hex:"))
			if err != nil {
				return nil, fmt.Errorf("invalid hex seed %q: %w", arg, err)
			}
			seeds = append(seeds, seed)
		case strings.HasPrefix(arg, "pubkey:"):
			pubkey, err := solanago.PublicKeyFromBase58(strings.TrimPrefix(arg, "pubkey:"))
			if err != nil {
				return nil, fmt.Errorf("invalid pubkey seed %q: %w", arg, err)
			}
			seeds = append(seeds, pubkey.Bytes())
		default:
			seeds = append(seeds, []byte(arg))
		}
	}
	return seeds, nil
}
