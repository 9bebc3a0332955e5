package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"steam_reviews/internal/app"
	"steam_reviews/internal/render"
)

// Browse flags
var (
	flagReveal      int
	flagInteractive bool
	flagTitle       string
)

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse <appid>",
		Short: "Reveal reviews one at a time",
		Long: `Browse builds a paginated feed for the app and reveals --reveal reviews,
loading further pages as needed. With --interactive, commands are read from
stdin after the first render:

  enter, m, more   reveal one more review
  r, refresh       start over from the newest review
  q, quit          exit`,
		Args: oneAppID,
		RunE: runBrowse,
	}
	addOptionFlags(cmd)
	cmd.Flags().IntVarP(&flagReveal, "reveal", "n", 1, "Number of reviews to reveal")
	cmd.Flags().BoolVarP(&flagInteractive, "interactive", "i", false, "Read more/refresh/quit commands from stdin")
	cmd.Flags().StringVar(&flagTitle, "title", "Player reviews", "Dashboard title")
	return cmd
}

func runBrowse(cmd *cobra.Command, args []string) error {
	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	if flagReveal < 0 {
		return usageError{fmt.Errorf("--reveal must not be negative")}
	}
	format := formatOr("text")
	w, err := render.GetWriter(format)
	if err != nil {
		return usageError{err}
	}
	client, err := newClient(flagBase, flagRPS)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	feed := app.NewFeed(client, args[0], opts)
	defer feed.Close()
	if err := feed.Mount(ctx); err != nil {
		log.Debug().Err(err).Str("app_id", args[0]).Msg("initial fetch failed")
	}
	rv := app.NewRevealer(feed, flagReveal)
	revealUpTo(ctx, rv, flagReveal)

	if flagInteractive {
		return runInteractive(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), rv, flagTitle, w)
	}
	v := render.Dashboard(flagTitle, rv)
	if flagOut != "" {
		return render.WriteView(v, format, flagOut)
	}
	return w.Write(cmd.OutOrStdout(), v)
}

// revealUpTo loads pages until n reviews are visible or the stream ends.
func revealUpTo(ctx context.Context, rv *app.Revealer, n int) {
	for {
		snap := rv.Snapshot()
		if len(snap.Revealed) >= n || !snap.CanShowMore || snap.State.Error != "" {
			return
		}
		if err := rv.Next(ctx); err != nil {
			log.Debug().Err(err).Msg("reveal stopped")
			return
		}
	}
}

// runInteractive renders the dashboard, then applies one command per input
// line until quit or end of input.
func runInteractive(ctx context.Context, in io.Reader, out io.Writer, rv *app.Revealer, title string, w render.Writer) error {
	if err := w.Write(out, render.Dashboard(title, rv)); err != nil {
		return err
	}
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "[enter/m] more  [r] refresh  [q] quit > ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		var err error
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "", "m", "more":
			if !rv.Snapshot().CanShowMore {
				fmt.Fprintln(out, "no more reviews")
				continue
			}
			err = rv.Next(ctx)
		case "r", "refresh":
			err = rv.Refresh(ctx)
		case "q", "quit", "exit":
			return nil
		default:
			fmt.Fprintf(out, "unknown command %q\n", sc.Text())
			continue
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		// fetch failures also land in the feed state and render below
		if err := w.Write(out, render.Dashboard(title, rv)); err != nil {
			return err
		}
	}
}
