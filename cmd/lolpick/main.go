package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/atotto/clipboard"
	"github.com/urfave/cli/v2"

	"github.com/DoyleJ11/lol-pick/internal/engine"
	"github.com/DoyleJ11/lol-pick/internal/export"
	"github.com/DoyleJ11/lol-pick/internal/rng"
	"github.com/DoyleJ11/lol-pick/internal/store"
)

// copyText is swapped out in tests.
var copyText = clipboard.WriteAll

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	dirFlag := &cli.StringFlag{Name: "dir", Value: ".lolpick", Usage: "directory the roster is stored in", EnvVars: []string{"LOLPICK_STORE_DIR"}}
	keyFlag := &cli.StringFlag{Name: "key", Value: store.DefaultKey, Usage: "roster name inside the store"}
	copyFlag := func() cli.Flag {
		return &cli.BoolFlag{Name: "copy", Usage: "copy the result to the clipboard"}
	}

	return &cli.App{
		Name:   "lolpick",
		Usage:  "roll League roles for a group of five",
		Writer: out,
		Flags:  []cli.Flag{dirFlag, keyFlag},
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "replace the roster",
				ArgsUsage: "NAME[=role,role...] ...",
				Action: func(c *cli.Context) error {
					players, err := parseRoster(c.Args().Slice())
					if err != nil {
						return err
					}
					st, err := store.NewFile(c.String("dir"))
					if err != nil {
						return err
					}
					if err := st.Save(c.Context, c.String("key"), players); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "saved %d players\n", len(players))
					return nil
				},
			},
			{
				Name:  "roll",
				Usage: "assign roles and save the result",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "seed", Usage: "seed the draw for a reproducible roll"},
					copyFlag(),
				},
				Action: func(c *cli.Context) error {
					st, err := store.NewFile(c.String("dir"))
					if err != nil {
						return err
					}
					players, err := st.Load(c.Context, c.String("key"))
					if err != nil {
						return err
					}

					var rnd engine.Rand = rng.Random()
					if c.IsSet("seed") {
						rnd = rng.Seeded(c.Uint64("seed"))
					}
					_, rolled, err := engine.Roll(players, rnd)
					if err != nil {
						return err
					}
					if err := st.Save(c.Context, c.String("key"), rolled); err != nil {
						return err
					}
					return emit(c, export.Format(rolled))
				},
			},
			{
				Name:  "show",
				Usage: "print the last roll",
				Flags: []cli.Flag{copyFlag()},
				Action: func(c *cli.Context) error {
					st, err := store.NewFile(c.String("dir"))
					if err != nil {
						return err
					}
					players, err := st.Load(c.Context, c.String("key"))
					if err != nil {
						return err
					}
					return emit(c, export.Format(players))
				},
			},
			{
				Name:  "clear",
				Usage: "empty the roster",
				Action: func(c *cli.Context) error {
					st, err := store.NewFile(c.String("dir"))
					if err != nil {
						return err
					}
					return st.Save(c.Context, c.String("key"), nil)
				},
			},
		},
	}
}

func emit(c *cli.Context, text string) error {
	fmt.Fprintln(c.App.Writer, text)
	if !c.Bool("copy") {
		return nil
	}
	if err := copyText(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "copied to clipboard")
	return nil
}
