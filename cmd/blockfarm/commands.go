package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/form"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/model"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/publisher"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/registry"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/trace"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/watch"
)

const timeLayout = "2006-01-02 15:04:05 MST"

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Connect the wallet and show account, roles and available modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			ws, err := e.app.Connect(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Account: %s\n", ws.Address.Hex())
			fmt.Printf("Chain:   %s\n", ws.ChainID.String())

			sess := e.app.Session()
			if err := sess.RoleError(); err != nil {
				fmt.Println("Roles:   unavailable (retry later)")
			} else {
				fmt.Println("Roles:")
				for _, role := range model.AllRoles() {
					mark := " "
					if sess.HasRole(role) {
						mark = "x"
					}
					fmt.Printf("  [%s] %s\n", mark, role.Label())
				}
			}

			fmt.Println("Modules:")
			for _, tab := range e.app.VisibleTabs() {
				fmt.Printf("  - %s (%s)\n", tab.Label, tab.ID)
			}
			return nil
		},
	}
}

func newRegisterCmd() *cobra.Command {
	var (
		lot          form.LotForm
		legal        form.LegalForm
		generateCode bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new pharmaceutical lot",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if _, err := e.app.Connect(cmd.Context()); err != nil {
				return err
			}
			if err := requireTab(e, "register"); err != nil {
				return err
			}

			// Re-run the catalog auto-fill so ingredient and health
			// registration always match the selected medicine.
			lot.SetMedicineName(lot.MedicineName)
			if generateCode {
				fmt.Printf("Series code: %s\n", lot.GenerateSeriesCode())
			}

			summary, err := e.app.RegisterLot(cmd.Context(), lot, legal)
			if err != nil {
				return err
			}

			fmt.Printf("Lot registered: %s (%s)\n", summary.MedicineName, summary.SeriesCode)
			fmt.Printf("  Expiry:      %s\n", summary.ExpiryDate)
			fmt.Printf("  Quantity:    %s\n", summary.Quantity)
			fmt.Printf("  Responsible: %s (%s)\n", summary.Responsible.FullName, summary.Responsible.NationalID)
			fmt.Printf("  Transaction: %s\n", summary.ExplorerURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&lot.MedicineName, "medicine", "", "medicine name from the catalog")
	cmd.Flags().StringVar(&lot.SeriesCode, "series", "", "unique series code of the lot")
	cmd.Flags().BoolVar(&generateCode, "generate-code", false, "generate a fresh series code")
	cmd.Flags().StringVar(&lot.MfgDate, "mfg", "", "manufacture date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&lot.ExpDate, "exp", "", "expiry date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&lot.Quantity, "quantity", "", "number of units in the lot")
	cmd.Flags().StringVar(&legal.FullName, "resp-name", "", "legal representative full name")
	cmd.Flags().StringVar(&legal.NationalID, "resp-id", "", "legal representative DNI/RUC")
	cmd.Flags().StringVar(&legal.Phone, "resp-phone", "", "legal representative phone")
	cmd.Flags().StringVar(&legal.Email, "resp-email", "", "legal representative email")

	return cmd
}

func newTransferCmd() *cobra.Command {
	var f form.TransferForm

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer a lot to another license holder",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if _, err := e.app.Connect(cmd.Context()); err != nil {
				return err
			}
			if err := requireTab(e, "transfer"); err != nil {
				return err
			}

			result, err := e.app.TransferLot(cmd.Context(), f)
			if err != nil {
				return err
			}

			fmt.Printf("Lot transferred in block %d\n", result.BlockNumber)
			fmt.Printf("  Transaction: %s\n", e.app.TxURL(result.Hash))
			return nil
		},
	}

	cmd.Flags().StringVar(&f.SeriesCode, "series", "", "series code of the lot")
	cmd.Flags().StringVar(&f.Recipient, "to", "", "recipient address")
	cmd.Flags().StringVar(&f.Quantity, "quantity", "", "units to transfer")

	return cmd
}

func newTraceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trace <series-code>",
		Short: "Reconstruct the ownership timeline of a lot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			result, err := e.app.Trace(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, trace.ErrLotNotFound) {
					return fmt.Errorf("no lot is registered under series code %q", args[0])
				}
				return err
			}

			lot := result.Lot
			fmt.Printf("Lot %s\n", result.LotID.Hex())
			fmt.Printf("  Medicine:    %s (%s)\n", lot.Name, lot.ActiveIngredient)
			fmt.Printf("  Manufacture: %s\n", lot.ManufactureDate.Format("2006-01-02"))
			fmt.Printf("  Expiry:      %s\n", lot.ExpiryDate.Format("2006-01-02"))
			fmt.Printf("  Quantity:    %s\n", lot.Quantity.String())
			fmt.Printf("  Owner:       %s\n", lot.Owner.Hex())
			fmt.Printf("  Responsible: %s (%s)\n", lot.Responsible.FullName, lot.Responsible.NationalID)

			if result.TimelineErr != nil {
				fmt.Println("\nOwnership timeline is unavailable right now; run the query again.")
				return nil
			}

			fmt.Println("\nOwnership timeline:")
			for _, record := range result.Timeline {
				from := record.From.Hex()
				if record.Genesis() {
					from = "GENESIS"
				}
				marker := ""
				if record.IsCurrentOwner {
					marker = "  <- current owner"
				}
				fmt.Printf("  %s  %s -> %s%s\n",
					record.Timestamp.Format(timeLayout), from, record.To.Hex(), marker)
				if record.TxHash != (common.Hash{}) {
					fmt.Printf("      %s\n", e.app.TxURL(record.TxHash))
				}
			}
			return nil
		},
	}
}

func newRolesCmd() *cobra.Command {
	roles := &cobra.Command{
		Use:   "roles",
		Short: "Manage the operative roles of the network",
	}

	var f form.RoleForm
	addRoleFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&f.Role, "role", "", "one of ADMIN_ROLE, FABRICANTE_ROLE, DISTRIBUIDOR_ROLE, FARMACIA_ROLE")
		cmd.Flags().StringVar(&f.Address, "address", "", "target account address")
	}

	assign := &cobra.Command{
		Use:   "assign",
		Short: "Grant a role to an address",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoleWrite(cmd.Context(), f, true)
		},
	}
	addRoleFlags(assign)

	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke a role from an address",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoleWrite(cmd.Context(), f, false)
		},
	}
	addRoleFlags(revoke)

	var listAddress string
	list := &cobra.Command{
		Use:   "list",
		Short: "List role membership of an address",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			addr := listAddress
			if addr == "" {
				ws, err := e.app.Connect(cmd.Context())
				if err != nil {
					return err
				}
				addr = ws.Address.Hex()
			}

			parsed, err := form.ParseAddress("address", addr)
			if err != nil {
				return err
			}

			membership, err := e.app.RoleMembership(cmd.Context(), parsed)
			if err != nil {
				return err
			}

			fmt.Printf("Roles of %s:\n", parsed.Hex())
			for _, role := range model.AllRoles() {
				mark := " "
				if membership[role] {
					mark = "x"
				}
				fmt.Printf("  [%s] %s\n", mark, role.Label())
			}
			return nil
		},
	}
	list.Flags().StringVar(&listAddress, "address", "", "address to inspect (defaults to the connected account)")

	roles.AddCommand(assign, revoke, list)
	return roles
}

func runRoleWrite(ctx context.Context, f form.RoleForm, assign bool) error {
	e, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if _, err := e.app.Connect(ctx); err != nil {
		return err
	}
	if err := requireTab(e, "roles"); err != nil {
		return err
	}

	var result *registry.TxResult
	if assign {
		result, err = e.app.AssignRole(ctx, f)
	} else {
		result, err = e.app.RevokeRole(ctx, f)
	}
	if err != nil {
		return err
	}

	action := "revoked"
	if assign {
		action = "assigned"
	}
	fmt.Printf("Role %s in block %d\n", action, result.BlockNumber)
	fmt.Printf("  Transaction: %s\n", e.app.TxURL(result.Hash))
	return nil
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream registry events to the audit broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			e, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			if e.node.WsClient() == nil {
				return fmt.Errorf("watch mode needs ethereum.websocket_url in the configuration")
			}

			// Subscriptions need the websocket transport, so watch mode gets
			// its own read-only binding.
			source, err := registry.NewContract(&e.cfg.Registry, e.node.WsClient(), nil, e.logger)
			if err != nil {
				return err
			}

			kafkaPublisher := publisher.NewKafkaPublisher(&e.cfg.Kafka, e.logger)
			if err := kafkaPublisher.Connect(ctx); err != nil {
				return err
			}
			defer kafkaPublisher.Close()

			watcher := watch.NewWatcher(source, kafkaPublisher, e.cfg.Registry.StartBlock, e.logger)
			if err := watcher.Start(ctx); err != nil {
				return err
			}
			defer watcher.Stop()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			e.logger.Info("Shutdown signal received, gracefully shutting down...")
			cancel()
			return nil
		},
	}
}
