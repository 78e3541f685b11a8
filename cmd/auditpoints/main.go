// Command auditpoints reconciles the points ledger against the daily_stats
// snapshots. By default it only reports; -repair writes the missing ledger
// entries and re-checks. Run it while the app is quiesced.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"reflectly/config"
	"reflectly/services"
	"reflectly/utils"
)

func main() {
	repair := flag.Bool("repair", false, "write missing ledger entries instead of only reporting")
	user := flag.Uint("user", 0, "limit the audit to one user id (0 = all users)")
	flag.Parse()

	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}

	config.InitDatabase()
	auditor := services.NewAuditor(config.DB())

	runID := uuid.NewString()
	fmt.Printf("audit run %s (repair=%v, user=%d)\n\n", runID, *repair, *user)

	discrepancies, err := auditor.Analyze(*user)
	if err != nil {
		utils.Sugar.Errorf("audit run %s analyze failed: %v", runID, err)
		fmt.Fprintf(os.Stderr, "analyze failed: %v\n", err)
		os.Exit(1)
	}

	printReport(discrepancies)
	if len(discrepancies) == 0 {
		fmt.Println("ledger and snapshots are consistent")
		return
	}

	if !*repair {
		fmt.Println("dry run: no changes written (use -repair to fix)")
		return
	}

	created, err := auditor.Repair(discrepancies)
	if err != nil {
		utils.Sugar.Errorf("audit run %s repair failed after %d entries: %v", runID, created, err)
		fmt.Fprintf(os.Stderr, "repair failed after %d entries: %v\n", created, err)
		os.Exit(1)
	}
	fmt.Printf("repair complete: %d ledger entries created\n\n", created)

	// Verification pass. Remaining findings are reported, not fatal: a
	// negative difference cannot be closed by appending entries.
	remaining, err := auditor.Analyze(*user)
	if err != nil {
		utils.Sugar.Errorf("audit run %s verification failed: %v", runID, err)
		fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
		os.Exit(1)
	}
	if len(remaining) == 0 {
		fmt.Println("verification: ledger and snapshots are now consistent")
		return
	}
	fmt.Printf("verification: %d discrepancies remain\n", len(remaining))
	printReport(remaining)
}

func printReport(discrepancies []services.Discrepancy) {
	if len(discrepancies) == 0 {
		return
	}
	fmt.Printf("found %d discrepancies:\n", len(discrepancies))
	for _, d := range discrepancies {
		fmt.Printf("  user %d %s: snapshot=%d ledger=%d diff=%+d\n",
			d.UserID, d.Date, d.SnapshotPoints, d.LedgerPoints, d.Difference)
		// Attribution is an estimate; goals spanning the day may belong to
		// an adjacent day's total.
		fmt.Printf("    likely sources: %d diary entries (~%d pts), %d decided goals (~%d pts), ~%d login bonus pts\n",
			d.DiaryEntries, d.ExpectedDiaryPoints, d.DecidedGoals, d.ExpectedGoalPoints, d.EstimatedLoginBonuses)
	}
	fmt.Println()
}
