package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feral-file/ff-drug-registry/internal/api/shared/dto"
	"github.com/feral-file/ff-drug-registry/internal/domain"
)

func newRegisterCommand(opts *options) *cobra.Command {
	var req dto.RegisterDrugRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a drug owned by the authenticated caller",
		Long: `Register a drug. The owner is the wallet address of --private-key,
or the subject of --token; it can never be passed explicitly.

Timestamps are Unix seconds. The manufacture date must precede the expiry
date and must not lie in the future.

Examples:
  drugctl register --private-key $KEY \
    --id DRUG-001 --name Amoxicillin --batch B-2024-17 \
    --manufactured 1704067200 --expires 1767225600 \
    --dosage-form capsule --quantity 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			authorization, err := opts.authorization()
			if err != nil {
				return err
			}

			id, err := opts.client().WithAuthorization(authorization).RegisterDrug(cmd.Context(), req)
			if err != nil {
				return err
			}
			return opts.print(cmd, dto.RegisterDrugResponse{ID: id})
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.ID, "id", "", "Drug id (unique)")
	f.StringVar(&req.Name, "name", "", "Drug name")
	f.StringVar(&req.BatchNumber, "batch", "", "Batch number")
	f.Int64Var(&req.ManufactureTimestamp, "manufactured", 0, "Manufacture date (Unix seconds)")
	f.Int64Var(&req.ExpiryTimestamp, "expires", 0, "Expiry date (Unix seconds)")
	f.StringVar(&req.Details.RegistrationNumber, "registration-number", "", "Regulatory registration number")
	f.StringVar(&req.Details.ActiveIngredient, "active-ingredient", "", "Active ingredient")
	f.StringVar(&req.Details.Concentration, "concentration", "", "Concentration")
	f.StringVar(&req.Details.DosageForm, "dosage-form", "", "Dosage form")
	f.StringVar(&req.Details.Packaging, "packaging", "", "Packaging")
	f.Uint64Var(&req.Details.Quantity, "quantity", 0, "Quantity per package")
	f.StringVar(&req.Details.ManufacturerName, "manufacturer", "", "Manufacturer name")
	f.StringVar(&req.Details.DistributorName, "distributor", "", "Distributor name")
	f.StringVar(&req.Details.OriginCountry, "origin-country", "", "Country of origin")

	return cmd
}

func newGetCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a registered drug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			drug, err := opts.client().GetDrug(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.print(cmd, drug)
		},
	}
}

func newExistsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <id>",
		Short: "Check whether a drug id is registered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exists, err := opts.client().Exists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.print(cmd, dto.ExistsResponse{ID: args[0], Exists: exists})
		},
	}
}

func newExpiredCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "expired <id>",
		Short: "Check whether a registered drug has expired",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().IsExpired(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.print(cmd, res)
		},
	}
}

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list <owner>",
		Short: "List an owner's drug ids in registration order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().ListByOwner(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.print(cmd, res)
		},
	}
}

func newCountCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "count <owner>",
		Short: "Count an owner's registered drugs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := opts.client().CountByOwner(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.print(cmd, dto.OwnerCountResponse{Owner: args[0], Count: count})
		},
	}
}

func newTotalCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "total",
		Short: "Show the number of registered drugs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := opts.client().Total(cmd.Context())
			if err != nil {
				return err
			}
			return opts.print(cmd, dto.StatsResponse{Total: total})
		},
	}
}

func newEventsCommand(opts *options) *cobra.Command {
	var (
		anchor uint64
		limit  int
		owner  string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Page through the registration journal",
		Long: `Print registration events with a sequence greater than --anchor.

Examples:
  # First page
  drugctl events --limit 50

  # Everything one owner registered
  drugctl events --all --owner 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := domain.EventFilter{Anchor: anchor, Limit: limit}
			if owner != "" {
				o := domain.Owner(owner)
				filter.Owner = &o
			}

			c := opts.client()
			page, err := c.Events(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if !all {
				return opts.print(cmd, page)
			}

			events := page.Events
			for len(page.Events) > 0 && len(page.Events) == filter.NormalizedLimit() {
				filter.Anchor = page.NextAnchor
				if page, err = c.Events(cmd.Context(), filter); err != nil {
					return err
				}
				events = append(events, page.Events...)
			}
			return opts.print(cmd, dto.NewEventsResponse(events, anchor))
		},
	}

	cmd.Flags().Uint64Var(&anchor, "anchor", 0, "Return events after this sequence")
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultEventLimit, fmt.Sprintf("Page size (max %d)", domain.MaxEventLimit))
	cmd.Flags().StringVar(&owner, "owner", "", "Only events registered by this owner")
	cmd.Flags().BoolVar(&all, "all", false, "Follow pages until the end of the journal")

	return cmd
}

func newVerifyLedgerCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-ledger",
		Short: "Ask the registry to verify its hash-chained journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := opts.client().VerifyLedger(cmd.Context())
			if err != nil {
				return err
			}
			if err := opts.print(cmd, report); err != nil {
				return err
			}
			if !report.Valid {
				return fmt.Errorf("%w at sequence %d: %s", ErrLedgerInvalid, report.BrokenAt, report.Reason)
			}
			return nil
		},
	}
}
