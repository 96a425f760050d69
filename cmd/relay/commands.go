// cmd/relay/commands.go
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-relay/internal/fee"
	"github.com/rovshanmuradov/solana-relay/internal/relay"
	"github.com/rovshanmuradov/solana-relay/internal/submit"
	"github.com/rovshanmuradov/solana-relay/internal/utils/logger"
	"github.com/rovshanmuradov/solana-relay/internal/wallet"
)

func newMemoCmd(flags *globalFlags) *cobra.Command {
	var tables []string

	cmd := &cobra.Command{
		Use:   "memo <text>",
		Short: "Submit a memo transaction signed by the configured wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lookupTables, err := parseKeys(tables)
			if err != nil {
				return err
			}
			return withSession(cmd, flags, func(ctx context.Context, s *session) error {
				w, err := s.runner.Wallet()
				if err != nil {
					return err
				}
				op := s.logger.WithOperation("memo")
				op.Info("Submitting memo", zap.String("wallet", w.String()), zap.Int("tables", len(lookupTables)))

				res, err := s.runner.SendMemo(ctx, w, args[0], lookupTables, s.exec)
				if err != nil {
					return reportFailure(cmd, err)
				}
				logLanded(s.logger, "memo", res)
				printResult(cmd, res)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&tables, "table", nil, "address lookup table (switches to the versioned form)")
	return cmd
}

func newTransferCmd(flags *globalFlags) *cobra.Command {
	var to, mint, amount, feeWallet, memo string
	var tables []string

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer SPL tokens with the relay fee split",
		RunE: func(cmd *cobra.Command, args []string) error {
			recipient, err := solana.PublicKeyFromBase58(to)
			if err != nil {
				return fmt.Errorf("invalid recipient: %w", err)
			}
			mintKey, err := solana.PublicKeyFromBase58(mint)
			if err != nil {
				return fmt.Errorf("invalid mint: %w", err)
			}
			req := relay.TransferRequest{Recipient: recipient, Mint: mintKey, Amount: amount, Memo: memo}
			if feeWallet != "" {
				if req.FeeWallet, err = solana.PublicKeyFromBase58(feeWallet); err != nil {
					return fmt.Errorf("invalid fee wallet: %w", err)
				}
			}
			if req.Tables, err = parseKeys(tables); err != nil {
				return err
			}

			return withSession(cmd, flags, func(ctx context.Context, s *session) error {
				w, err := s.runner.Wallet()
				if err != nil {
					return err
				}
				res, err := s.runner.Transfer(ctx, w, req, s.exec)
				if err != nil {
					return reportFailure(cmd, err)
				}
				logLanded(s.logger, "transfer", res.Result)
				printResult(cmd, res.Result)
				cmd.Printf("transferred: %d (decimals %d), fee: %d\n", res.Split.Transfer, res.Decimals, res.Split.Fee)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient wallet")
	cmd.Flags().StringVar(&mint, "mint", "", "token mint")
	cmd.Flags().StringVar(&amount, "amount", "", "amount in token units, e.g. 1.5")
	cmd.Flags().StringVar(&feeWallet, "fee-wallet", "", "fee recipient (default relay wallet)")
	cmd.Flags().StringVar(&memo, "memo", "", "optional memo")
	cmd.Flags().StringSliceVar(&tables, "table", nil, "address lookup table (switches to the versioned form)")
	for _, name := range []string{"to", "mint", "amount"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newCheckCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <signature>",
		Short: "Look a signature up in the ledger using the finality profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := solana.SignatureFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("invalid signature: %w", err)
			}
			return withSession(cmd, flags, func(ctx context.Context, s *session) error {
				record := s.runner.Check(ctx, sig)
				switch {
				case record == nil:
					cmd.Println("not found")
				case record.Landed():
					cmd.Printf("landed in slot %d, fee %.9f SOL\n", record.Slot, fee.LamportsToSOL(record.Fee))
				default:
					cmd.Printf("failed in slot %d: %v\n", record.Slot, record.Err)
				}
				return nil
			})
		},
	}
}

func newBatchCmd(flags *globalFlags) *cobra.Command {
	var walletsPath, memo string
	var parallel int

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Send one memo from every wallet of a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, s *session) error {
				entries, err := s.runner.SendBatch(ctx, walletsPath, memo, parallel, s.exec)
				if err != nil {
					return err
				}
				failed := 0
				for _, e := range entries {
					if e.Err != nil {
						failed++
						cmd.Printf("%s: %v\n", e.Wallet, e.Err)
						continue
					}
					cmd.Printf("%s: %s (%d attempts)\n", e.Wallet, e.Result.Signature, len(e.Result.Attempts))
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d submissions failed", failed, len(entries))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&walletsPath, "wallets", "configs/wallets.csv", "CSV file with Name,PrivateKey columns")
	cmd.Flags().StringVar(&memo, "memo", "relay batch", "memo text")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "maximum concurrent submissions (0 = unbounded)")
	return cmd
}

func newAuthCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "auth <token>",
		Short: "Sign the ownership message for a relay auth token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(_ context.Context, s *session) error {
				w, err := s.runner.Wallet()
				if err != nil {
					return err
				}
				return printAuth(cmd, w, args[0])
			})
		},
	}
}

func printAuth(cmd *cobra.Command, w *wallet.Wallet, token string) error {
	sig, err := w.SignAuthMessage(token)
	if err != nil {
		return fmt.Errorf("sign auth message: %w", err)
	}
	cmd.Printf("wallet: %s\n", w)
	cmd.Printf("message: %s\n", wallet.AuthMessage(w.PublicKey, token))
	cmd.Printf("signature: %s\n", sig)
	return nil
}

func parseKeys(in []string) ([]solana.PublicKey, error) {
	out := make([]solana.PublicKey, 0, len(in))
	for _, s := range in {
		key, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("invalid key %q: %w", s, err)
		}
		out = append(out, key)
	}
	return out, nil
}

func printResult(cmd *cobra.Command, res *submit.Result) {
	cmd.Printf("signature: %s\n", res.Signature)
	for _, a := range res.Attempts {
		cmd.Printf("  attempt %d: fee %d micro-lamports, %s, %s\n", a.Index+1, a.Fee, a.Outcome, a.Duration)
	}
}

func logLanded(log *logger.Logger, operation string, res *submit.Result) {
	log.WithTransaction(res.Signature).Info("Transaction landed",
		zap.String("operation", operation),
		zap.Int("attempts", len(res.Attempts)))
}

// reportFailure печатает подпись последней попытки: её ещё можно отследить через check.
func reportFailure(cmd *cobra.Command, err error) error {
	var subErr *submit.Error
	if errors.As(err, &subErr) && !subErr.Signature.IsZero() {
		cmd.Printf("last signature: %s\n", subErr.Signature)
	}
	return err
}
