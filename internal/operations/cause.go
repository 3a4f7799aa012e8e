// internal/operations/cause.go

package operations

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"

	"github.com/nixpig/nosreboot/internal/config"
	"github.com/nixpig/nosreboot/internal/rebootcause"
)

// ShowCauseOpts holds the options for the ShowCause operation.
type ShowCauseOpts struct {
	// Config is the resolved tool configuration.
	Config *config.Config
}

// ShowCause renders the reboot cause of the current boot.
func ShowCause(opts *ShowCauseOpts) (string, error) {
	store := rebootcause.NewStore(hostFS, opts.Config.CauseDir)

	rec, err := store.Previous()
	if err != nil {
		// A device that has never been through cause processing reports
		// Unknown rather than erroring.
		return rebootcause.UnknownCause, nil
	}

	return rec.String(), nil
}

// CauseHistoryOpts holds the options for the CauseHistory operation.
type CauseHistoryOpts struct {
	// Config is the resolved tool configuration.
	Config *config.Config
}

// CauseHistory renders the recorded reboot causes, oldest first.
func CauseHistory(opts *CauseHistoryOpts) (string, error) {
	store := rebootcause.NewStore(hostFS, opts.Config.CauseDir)

	records, err := store.History()
	if err != nil {
		return "", fmt.Errorf("read cause history: %w", err)
	}

	var sb strings.Builder

	tw := tabwriter.NewWriter(&sb, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "GEN_TIME\tCAUSE\tUSER\tTIME")

	for _, rec := range records {
		fmt.Fprintf(
			tw, "%s\t%s\t%s\t%s\n",
			rec.GenTime, rec.Cause, rec.User, rec.Time,
		)
	}

	if err := tw.Flush(); err != nil {
		return "", fmt.Errorf("render history: %w", err)
	}

	return sb.String(), nil
}

// ProcessCauseOpts holds the options for the ProcessCause operation.
type ProcessCauseOpts struct {
	// Config is the resolved tool configuration.
	Config *config.Config
}

// ProcessCause archives a pending reboot sign-off into the previous-cause
// record and the history. Run once per boot, before anything rewrites the
// cause state.
func ProcessCause(opts *ProcessCauseOpts) error {
	if !isRoot() {
		return ErrNotPermitted
	}

	store := rebootcause.NewStore(hostFS, opts.Config.CauseDir)

	rec, err := store.Process(timeNow())
	if err != nil {
		return fmt.Errorf("process reboot cause: %w", err)
	}

	log.Info().Str("cause", rec.Cause).Msg("previous reboot cause recorded")

	return nil
}
