package simulate

import (
	"errors"
	"fmt"
	"os"

	"github.com/Overclock-Validator/pdautil/cmd/pdautil/derive"
	"github.com/Overclock-Validator/pdautil/pkg/sealevel"
	"github.com/Overclock-Validator/pdautil/pkg/solana"
	solanago "github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

// PayerSeed in a vault's seed list stands for the payer's address.
const PayerSeed = "payer"

type Config struct {
	// ProgramID of the vault program. A random id is used when empty.
	ProgramID        string        `yaml:"program_id"`
	Ledger           string        `yaml:"ledger"`
	ComputeUnitLimit uint64        `yaml:"compute_unit_limit"`
	Rent             RentConfig    `yaml:"rent"`
	Vaults           []VaultConfig `yaml:"vaults"`
}

type RentConfig struct {
	LamportsPerByteYear uint64  `yaml:"lamports_per_byte_year"`
	ExemptionThreshold  float64 `yaml:"exemption_threshold"`
	BurnPercent         uint8   `yaml:"burn_percent"`
}

type VaultConfig struct {
	Name     string   `yaml:"name"`
	Airdrop  uint64   `yaml:"airdrop"`
	Space    uint64   `yaml:"space"`
	MaxSeeds int      `yaml:"max_seeds"`
	Seeds    []string `yaml:"seeds"`
	// Bump overrides the canonical bump.
	Bump *int `yaml:"bump"`
}

var defaultVaultSeeds = []string{"vault", PayerSeed}

func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	err = dec.Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.setDefaults()
	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Rent == (RentConfig{}) {
		rent := sealevel.DefaultRent()
		c.Rent = RentConfig{
			LamportsPerByteYear: rent.LamportsPerUint8Year,
			ExemptionThreshold:  rent.ExemptionThreshold,
			BurnPercent:         rent.BurnPercent,
		}
	}
	for i := range c.Vaults {
		v := &c.Vaults[i]
		if v.Name == "" {
			v.Name = fmt.Sprintf("vault-%d", i)
		}
		if len(v.Seeds) == 0 {
			v.Seeds = defaultVaultSeeds
		}
		if v.MaxSeeds == 0 {
			v.MaxSeeds = solana.MaxSeeds
		}
	}
}

func (c *Config) Validate() error {
	if c.ProgramID != "" {
		if _, err := solanago.PublicKeyFromBase58(c.ProgramID); err != nil {
			return fmt.Errorf("invalid program_id: %w", err)
		}
	}
	if c.Rent.ExemptionThreshold < 0 {
		return errors.New("rent.exemption_threshold must not be negative")
	}
	if c.Rent.BurnPercent > 100 {
		return errors.New("rent.burn_percent must be at most 100")
	}
	if len(c.Vaults) == 0 {
		return errors.New("no vaults configured")
	}
	for _, v := range c.Vaults {
		if v.Bump != nil && (*v.Bump < 0 || *v.Bump > 255) {
			return fmt.Errorf("vault %s: bump %d out of range", v.Name, *v.Bump)
		}
		if v.MaxSeeds < 0 || v.MaxSeeds > 255 {
			return fmt.Errorf("vault %s: max_seeds %d out of range", v.Name, v.MaxSeeds)
		}
	}
	return nil
}

func (c *Config) RentParams() sealevel.SysvarRent {
	return sealevel.SysvarRent{
		LamportsPerUint8Year: c.Rent.LamportsPerByteYear,
		ExemptionThreshold:   c.Rent.ExemptionThreshold,
		BurnPercent:          c.Rent.BurnPercent,
	}
}

// SeedsFor resolves the vault's seed list for payer.
func (v *VaultConfig) SeedsFor(payer solanago.PublicKey) ([][]byte, error) {
	seeds := make([][]byte, 0, len(v.Seeds))
	for _, s := range v.Seeds {
		if s == PayerSeed {
			seeds = append(seeds, payer.Bytes())
			continue
		}
		parsed, err := derive.ParseSeeds([]string{s})
		if err != nil {
			return nil, fmt.Errorf("vault %s: %w", v.Name, err)
		}
		seeds = append(seeds, parsed[0])
	}
	return seeds, nil
}
