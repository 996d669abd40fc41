package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newWordsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "words",
		Short: "Manage dictionary words.",
	}
	cmd.AddCommand(newWordsImportCmd(c))
	return cmd
}

func newWordsImportCmd(c *cli) *cobra.Command {
	var dictionary string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Add one word per line to a dictionary; use - for stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			words, err := readWordList(in)
			if err != nil {
				return err
			}

			e, err := c.open(cmd.Context(), cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			added, err := e.store.AddWords(cmd.Context(), e.settings.Namespace, dictionary, words)
			if err != nil {
				return err
			}
			seeded, err := e.store.SeedCounters(cmd.Context(), e.settings.Namespace)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "read %d words, added %d to %q, seeded %d counters\n", len(words), added, dictionary, seeded)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dictionary, "dictionary", "d", "main", "dictionary to add the words to")

	return cmd
}

// readWordList returns the non-blank lines of r, skipping # comments.
func readWordList(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return words, nil
}
