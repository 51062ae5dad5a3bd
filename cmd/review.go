package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stormlightlabs.org/rankcore/internal/core"
	"stormlightlabs.org/rankcore/internal/db"
	"stormlightlabs.org/rankcore/internal/echo"
	"stormlightlabs.org/rankcore/internal/repository"
	"stormlightlabs.org/rankcore/internal/review"
)

// ReviewCmd creates the review command group, an operator-facing alternative
// to the HTTP API's /v1/review routes for adjudicating uncertain matches
// from a terminal.
func ReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Inspect and resolve the match review queue",
		Long:  "List, approve, or reject team-identity matches the matcher routed to manual review.",
	}
	cmd.AddCommand(ReviewListCmd())
	cmd.AddCommand(ReviewApproveCmd())
	cmd.AddCommand(ReviewRejectCmd())
	cmd.AddCommand(ReviewRequeueCmd())
	return cmd
}

// ReviewListCmd creates the list command under review.
func ReviewListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending review entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listReviewEntries(cmd, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to display")
	return cmd
}

// ReviewApproveCmd creates the approve command under review.
func ReviewApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending review entry",
		Args:  cobra.ExactArgs(1),
		RunE:  approveReviewEntry,
	}
}

// ReviewRejectCmd creates the reject command under review.
func ReviewRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending review entry",
		Args:  cobra.ExactArgs(1),
		RunE:  rejectReviewEntry,
	}
}

// ReviewRequeueCmd creates the requeue command under review.
func ReviewRequeueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "requeue <id>",
		Short: "Reset a resolved review entry back to pending",
		Args:  cobra.ExactArgs(1),
		RunE:  requeueReviewEntry,
	}
}

func listReviewEntries(cmd *cobra.Command, limit int) error {
	echo.Header("Pending Review Entries")

	database, err := connectToDB(cmd)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}
	defer database.Close()

	reviews := repository.NewReviewRepository(database.DB)
	entries, err := reviews.ListPending(cmd.Context(), core.Page{Limit: limit, Offset: 0})
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}

	if len(entries) == 0 {
		echo.Info("No pending review entries")
		return nil
	}

	for _, e := range entries {
		suggested := "none"
		if e.SuggestedMasterID != nil {
			suggested = string(*e.SuggestedMasterID)
		}
		echo.Infof("  [%d] provider=%s raw_name=%q confidence=%.2f suggested=%s", e.ID, e.ProviderID, e.RawName, e.Confidence, suggested)
	}
	echo.Infof("Total: %d", len(entries))
	return nil
}

func approveReviewEntry(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("error: invalid review id %q", args[0])
	}

	echo.Header("Approving Review Entry")

	queue, database, err := newReviewQueue(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	entry, err := queue.Reviews.Get(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}
	if entry == nil {
		return fmt.Errorf("error: review entry %d not found", id)
	}
	if entry.SuggestedMasterID == nil {
		return fmt.Errorf("error: review entry %d has no suggested master team to approve", id)
	}

	if err := queue.Approve(cmd.Context(), id, *entry.SuggestedMasterID); err != nil {
		return fmt.Errorf("error: %w", err)
	}

	echo.Successf("✓ Approved review entry %d -> master %s", id, *entry.SuggestedMasterID)
	return nil
}

func rejectReviewEntry(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("error: invalid review id %q", args[0])
	}

	echo.Header("Rejecting Review Entry")

	queue, database, err := newReviewQueue(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := queue.Reject(cmd.Context(), id); err != nil {
		return fmt.Errorf("error: %w", err)
	}

	echo.Successf("✓ Rejected review entry %d", id)
	return nil
}

func requeueReviewEntry(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("error: invalid review id %q", args[0])
	}

	echo.Header("Requeueing Review Entry")

	queue, database, err := newReviewQueue(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := queue.Requeue(cmd.Context(), id); err != nil {
		return fmt.Errorf("error: %w", err)
	}

	echo.Successf("✓ Requeued review entry %d", id)
	return nil
}

// newReviewQueue builds a review.Queue with no rematch hook: the CLI
// operates on one entry at a time and is not running an ingestion batch
// whose in-memory alias cache would need a live refresh signal, unlike the
// server process wired in cmd/server.go.
func newReviewQueue(cmd *cobra.Command) (*review.Queue, *db.DB, error) {
	database, err := connectToDB(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("error: %w", err)
	}

	reviews := repository.NewReviewRepository(database.DB)
	aliasRepo := repository.NewAliasRepository(database.DB)
	return review.New(reviews, aliasRepo, nil), database, nil
}
