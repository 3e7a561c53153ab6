// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/votedeck/cliparse"
	"github.com/danielhkuo/votedeck/contract"
	"github.com/danielhkuo/votedeck/dashboard"
	"github.com/danielhkuo/votedeck/models"
	"github.com/danielhkuo/votedeck/views"
	"github.com/danielhkuo/votedeck/wallet"
)

func newStatusCmd(cfg *cliparse.Config) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Connect, fetch the contract state once and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := contract.Dial(ctx, cfg.RPCURL)
			if err != nil {
				return err
			}
			defer client.Close()

			provider, err := wallet.Dial(ctx, cfg.WalletURL)
			if err != nil {
				return err
			}
			defer provider.Close()

			voting := contract.New(cfg.Contract(), client, cfg.VotePrice())
			dash := dashboard.New(voting, provider, nil, dashboard.Config{
				SecondaryManager: cfg.Secondary(),
				ReceiptTimeout:   cfg.ReceiptTimeout,
			})
			if err := dash.Connect(ctx); err != nil {
				return fmt.Errorf("%s: %w", dash.Snapshot().Message, err)
			}

			state := dash.Snapshot()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(models.StateResponse{
					State:       state,
					Permissions: dashboard.Permissions(state),
					Accounts:    hexAddresses(dash.Accounts()),
				})
			}
			printStatus(cmd.OutOrStdout(), state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")
	return cmd
}

func newAccountsCmd(cfg *cliparse.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List the wallet's accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listAccounts(cmd.Context(), cmd.OutOrStdout(), cfg.WalletURL)
		},
	}
}

func listAccounts(ctx context.Context, w io.Writer, url string) error {
	provider, err := wallet.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer provider.Close()

	accounts, err := provider.RequestAccounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		fmt.Fprintln(w, a.Hex())
	}
	return nil
}

func printStatus(w io.Writer, s models.State) {
	fmt.Fprintf(w, "Account:   %s\n", s.Account.Hex())
	fmt.Fprintf(w, "Manager:   %s\n", s.Manager.Hex())
	if s.Destroyed {
		fmt.Fprintln(w, "Contract has been destroyed")
		return
	}
	fmt.Fprintf(w, "Balance:   %s ETH\n", views.FormatEther(s.Balance))
	fmt.Fprintf(w, "Remaining: %s votes\n", views.Count(s.RemainingVotes))
	if s.VotingEnded {
		fmt.Fprintf(w, "Voting ended, winner: %s\n", s.WinningProposal)
	} else {
		fmt.Fprintln(w, "Voting open")
	}

	fmt.Fprintln(w)
	for _, p := range s.Proposals {
		fmt.Fprintf(w, "  %-20s %s\n", p, views.Count(s.VotesFor(p)))
	}
	if len(s.History) > 0 {
		fmt.Fprintf(w, "\n%s votes in history\n", humanize.Comma(int64(len(s.History))))
	}
	if s.Message != "" {
		fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(s.Message))
	}
}

func hexAddresses(addrs []common.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Hex())
	}
	return out
}
