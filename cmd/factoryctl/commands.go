package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	factory "github.com/goliatone/go-factory"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) keygenCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an operator signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := loadKey(a.cfg.KeyFile); err == nil {
					return fmt.Errorf("key %s already exists (use --force to replace it)", a.cfg.KeyFile)
				}
			}
			id, err := generateKey(a.cfg.KeyFile)
			if err != nil {
				return err
			}
			a.printf(cmd, "%s\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing key")
	return cmd
}

func (a *app) addressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the derived record address and nonce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, closer, err := a.openFactory()
			if err != nil {
				return err
			}
			defer closer()
			addr := f.Address()
			a.printf(cmd, "address: %s\nnonce: %d\n", addr.Key, addr.Nonce)
			return nil
		},
	}
}

// recordOutput is the YAML form printed by show and the mutating commands.
type recordOutput struct {
	Address            string    `yaml:"address"`
	Nonce              uint8     `yaml:"nonce"`
	Admin              string    `yaml:"admin"`
	MinCollateralRatio uint16    `yaml:"min_collateral_ratio"`
	BaseFeeRate        uint16    `yaml:"base_fee_rate"`
	FeeRecipient       string    `yaml:"fee_recipient"`
	IsPaused           bool      `yaml:"is_paused"`
	TotalStablecoins   uint32    `yaml:"total_stablecoins"`
	Version            uint64    `yaml:"version,omitempty"`
	UpdatedAt          time.Time `yaml:"updated_at,omitempty"`
}

func (a *app) printRecord(ctx context.Context, cmd *cobra.Command, f *factory.Factory) error {
	rec, meta, err := f.Load(ctx)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(recordOutput{
		Address:            f.Address().Key.String(),
		Nonce:              rec.Nonce,
		Admin:              rec.Admin.String(),
		MinCollateralRatio: rec.MinCollateralRatio,
		BaseFeeRate:        rec.BaseFeeRate,
		FeeRecipient:       rec.FeeRecipient.String(),
		IsPaused:           rec.IsPaused,
		TotalStablecoins:   rec.TotalStablecoins,
		Version:            meta.Version,
		UpdatedAt:          meta.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the factory record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, closer, err := a.openFactory()
			if err != nil {
				return err
			}
			defer closer()
			return a.printRecord(cmd.Context(), cmd, f)
		},
	}
}

// submit signs operation with the operator key, hands it to the factory and
// prints the resulting record.
func (a *app) submit(cmd *cobra.Command, operation string, payload any) error {
	key, err := loadKey(a.cfg.KeyFile)
	if err != nil {
		return err
	}
	f, closer, err := a.openFactory()
	if err != nil {
		return err
	}
	defer closer()

	var body []byte
	if payload != nil {
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("encode %s payload: %w", operation, err)
		}
	}
	req, err := factory.SignRequest(key, operation, f.Address().Key, body)
	if err != nil {
		return err
	}
	if _, err := f.Handle(cmd.Context(), req); err != nil {
		return err
	}
	return a.printRecord(cmd.Context(), cmd, f)
}

func (a *app) initCmd() *cobra.Command {
	var params factory.InitializeParams
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the factory record with the operator key as admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.submit(cmd, factory.OpInitialize, params)
		},
	}
	cmd.Flags().Uint16Var(&params.MinCollateralRatio, "ratio", 150, "Minimum collateral ratio in percent (>= 100)")
	cmd.Flags().Uint16Var(&params.BaseFeeRate, "fee", 30, "Base fee rate in basis points (<= 10000)")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var (
		admin     string
		recipient string
		ratio     uint16
		fee       uint16
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change configuration fields; omitted flags stay unchanged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var params factory.UpdateParams
			flags := cmd.Flags()
			if flags.Changed("admin") {
				id, err := factory.ParseIdentity(admin)
				if err != nil {
					return err
				}
				params.NewAdmin = factory.Some(id)
			}
			if flags.Changed("ratio") {
				params.NewMinCollateralRatio = factory.Some(ratio)
			}
			if flags.Changed("fee") {
				params.NewBaseFeeRate = factory.Some(fee)
			}
			if flags.Changed("recipient") {
				id, err := factory.ParseIdentity(recipient)
				if err != nil {
					return err
				}
				params.NewFeeRecipient = factory.Some(id)
			}
			return a.submit(cmd, factory.OpUpdate, params)
		},
	}
	cmd.Flags().StringVar(&admin, "admin", "", "Transfer the admin role to this identity")
	cmd.Flags().Uint16Var(&ratio, "ratio", 0, "New minimum collateral ratio in percent")
	cmd.Flags().Uint16Var(&fee, "fee", 0, "New base fee rate in basis points")
	cmd.Flags().StringVar(&recipient, "recipient", "", "New fee recipient identity")
	return cmd
}

func (a *app) pauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Stop new stablecoin reservations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.submit(cmd, factory.OpPause, nil)
		},
	}
}

func (a *app) resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Allow stablecoin reservations again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.submit(cmd, factory.OpResume, nil)
		},
	}
}

func (a *app) reserveCmd() *cobra.Command {
	var (
		symbol string
		extra  map[string]string
	)
	cmd := &cobra.Command{
		Use:   "reserve",
		Short: "Reserve a stablecoin slot the way the creation subsystem does",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := factory.ReserveParams{Symbol: symbol}
			if len(extra) > 0 {
				params.Args = make(map[string]any, len(extra))
				for k, v := range extra {
					params.Args[k] = v
				}
			}
			return a.submit(cmd, factory.OpReserve, params)
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "Stablecoin symbol")
	cmd.Flags().StringToStringVar(&extra, "arg", nil, "Extra admission rule argument (key=value)")
	_ = cmd.MarkFlagRequired("symbol")
	return cmd
}

func (a *app) layoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Print the persisted record layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(factory.RecordLayout())
			if err != nil {
				return err
			}
			a.printf(cmd, "# %d bytes, little-endian\n", factory.RecordSize)
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
