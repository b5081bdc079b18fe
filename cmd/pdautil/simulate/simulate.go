package simulate

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/Overclock-Validator/pdautil/pkg/bank"
	"github.com/Overclock-Validator/pdautil/pkg/base58"
	"github.com/Overclock-Validator/pdautil/pkg/pda"
	"github.com/Overclock-Validator/pdautil/pkg/sealevel"
	"github.com/Overclock-Validator/pdautil/pkg/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var Cmd = cobra.Command{
	Use:   "simulate <config.yaml>",
	Short: "Create vault accounts against a local bank",
	Args:  cobra.ExactArgs(1),
	Run:   run,
}

var (
	flagLedger  string
	flagMetrics bool
)

func init() {
	Cmd.Flags().StringVarP(&flagLedger, "ledger", "l", "", "RocksDB accounts directory, overrides the config")
	Cmd.Flags().BoolVar(&flagMetrics, "metrics", false, "Print bank metrics when done")
}

func run(c *cobra.Command, args []string) {
	cfg, err := LoadConfig(args[0])
	if err != nil {
		klog.Exitf("%s", err)
	}
	if flagLedger != "" {
		cfg.Ledger = flagLedger
	}

	registry := prometheus.NewRegistry()
	err = Run(c.Context(), cfg, registry, c.OutOrStdout())
	if err != nil {
		klog.Exitf("simulation failed: %s", err)
	}

	if flagMetrics {
		dumpMetrics(registry)
	}
}

// Run creates every configured vault in a fresh bank and writes one report
// line per vault to out.
func Run(ctx context.Context, cfg *Config, registry prometheus.Registerer, out io.Writer) error {
	programId := solanago.NewWallet().PublicKey()
	if cfg.ProgramID != "" {
		programId = solanago.MustPublicKeyFromBase58(cfg.ProgramID)
	}
	err := sealevel.RegisterNativeProgram(programId, pda.VaultProgram(programId))
	if err != nil {
		return fmt.Errorf("registering vault program %s: %w", programId, err)
	}

	store, closeLedger, err := openLedger(cfg.Ledger)
	if err != nil {
		return err
	}
	defer closeLedger()

	metrics, err := bank.NewMetrics(registry)
	if err != nil {
		return err
	}
	b, err := bank.NewBank(store, cfg.RentParams(), metrics)
	if err != nil {
		return err
	}
	if cfg.ComputeUnitLimit != 0 {
		b.ComputeUnitLimit = cfg.ComputeUnitLimit
	}

	klog.Infof("vault program %s", programId)

	prepared, err := prepareVaults(b, programId, cfg.Vaults)
	if err != nil {
		return err
	}

	for _, p := range prepared {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = p.process(b, out)
		if err != nil {
			return err
		}
	}
	return nil
}

type preparedVault struct {
	cfg  *VaultConfig
	addr solanago.PublicKey
	bump uint8
	tx   *solanago.Transaction
	err  error
}

// prepareVaults funds a fresh payer per vault and builds its signed create
// transaction. Bump searches run on a worker pool; results keep config order.
func prepareVaults(b *bank.Bank, programId solanago.PublicKey, vaults []VaultConfig) ([]*preparedVault, error) {
	prepared := make([]*preparedVault, len(vaults))
	for i := range vaults {
		prepared[i] = &preparedVault{cfg: &vaults[i]}
	}

	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(runtime.NumCPU(), func(i interface{}) {
		defer wg.Done()
		p := i.(*preparedVault)
		p.err = p.prepare(b, programId)
	})
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	for _, p := range prepared {
		wg.Add(1)
		err = pool.Invoke(p)
		if err != nil {
			wg.Done()
			return nil, err
		}
	}
	wg.Wait()

	for _, p := range prepared {
		if p.err != nil {
			return nil, p.err
		}
	}
	return prepared, nil
}

func (p *preparedVault) prepare(b *bank.Bank, programId solanago.PublicKey) error {
	v := p.cfg
	payer := solanago.NewWallet().PrivateKey
	if v.Airdrop != 0 {
		err := b.Airdrop(payer.PublicKey(), v.Airdrop)
		if err != nil {
			return fmt.Errorf("vault %s: airdrop: %w", v.Name, err)
		}
	}

	seeds, err := v.SeedsFor(payer.PublicKey())
	if err != nil {
		return err
	}

	// Address always comes from the canonical bump, so an overridden bump
	// exercises the seed check.
	p.addr, p.bump, err = solana.FindProgramAddress(seeds, programId)
	if err != nil {
		return fmt.Errorf("vault %s: %w", v.Name, err)
	}
	if v.Bump != nil {
		p.bump = uint8(*v.Bump)
	}

	instr, err := pda.NewVaultInstruction(programId, payer.PublicKey(), p.addr, &pda.VaultInstruction{
		Bump:     p.bump,
		Space:    v.Space,
		Seeds:    seeds,
		MaxSeeds: uint8(v.MaxSeeds),
	})
	if err != nil {
		return err
	}

	p.tx, err = solanago.NewTransaction([]solanago.Instruction{instr}, solanago.Hash{}, solanago.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return err
	}
	_, err = p.tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer
		}
		return nil
	})
	return err
}

func (p *preparedVault) process(b *bank.Bank, out io.Writer) error {
	v := p.cfg
	result, err := b.ProcessTransaction(p.tx)
	if err != nil {
		return fmt.Errorf("vault %s: %w", v.Name, err)
	}

	for _, line := range result.Logs {
		klog.V(3).Infof("%s: %s", v.Name, line)
	}

	if result.Err != nil {
		code, custom := result.ErrorCode()
		fmt.Fprintf(out, "%s\t%s\tbump=%d\tfailed: %s (code %d/%d)\n", v.Name, p.addr, p.bump, result.Err, code, custom)
		return nil
	}

	acct, err := b.GetAccount(p.addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\t%s\tbump=%d\tlamports=%d\tspace=%d\tcu=%d\thash=%s\n",
		v.Name, p.addr, p.bump, acct.Lamports, len(acct.Data), result.ComputeUnitsUsed, base58.Encode(result.AccountsDeltaHash))
	return nil
}

func dumpMetrics(g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		klog.Errorf("gathering metrics: %s", err)
		return
	}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				klog.Infof("%s %v", family.GetName(), m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				klog.Infof("%s count=%d sum=%v", family.GetName(), h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
}
