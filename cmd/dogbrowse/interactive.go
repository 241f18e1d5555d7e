package main

import (
	"bufio"
	"context"
	"dogs-api-go/browse"
	"dogs-api-go/config"
	"dogs-api-go/filters"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
)

const interactiveHelp = `Type to search. Commands:
  :set <filter> <value>   set a filter (breed, sex, size, age, location,
                          availableCountry, availableRegion, organization)
  :clear <filter>         reset one filter
  :reset                  reset everything
  :more                   load the next page
  :filters                show the active filters
  :quit                   exit`

func newInteractiveCmd(conf config.Config) *cobra.Command {
	var pageSize int
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Browse dogs with live filters and debounced search",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(interactiveHelp)
			return runInteractive(cmd.Context(), svc, pageSize, delay, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", conf.Configuration.PageSize, "Dogs per page")
	cmd.Flags().DurationVar(&delay, "debounce", conf.DebounceDelay(), "Search debounce delay")
	return cmd
}

// syncWriter serializes writes from the input loop and session callbacks
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format, args...)
}

func renderView(out *syncWriter, v browse.View) {
	if v.Loading {
		return
	}
	if v.Err != nil {
		out.Printf("error: %v\n", v.Err)
		return
	}

	more := ""
	if v.HasMore {
		more = " (:more for next page)"
	}
	out.Printf("%d dog(s), %d active filter(s)%s\n", len(v.Dogs), v.Filters.ActiveFilterCount, more)
	for _, d := range v.Dogs {
		out.Printf("  %-24s %s\n", d.Name, d.StandardizedBreed)
	}
}

func runInteractive(ctx context.Context, src browse.Source, pageSize int, delay time.Duration, in io.Reader, w io.Writer) error {
	out := &syncWriter{w: w}

	sess := browse.New(ctx, src, browse.Options{
		PageSize:      pageSize,
		DebounceDelay: delay,
		OnChange:      func(v browse.View) { renderView(out, v) },
	})
	defer sess.Close()
	sess.Start()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, ":") {
			sess.Search().HandleSearchChange(line)
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case ":set":
			if len(fields) < 3 {
				out.Printf("usage: :set <filter> <value>\n")
				continue
			}
			if _, ok := filters.LookupShort(fields[1]); !ok {
				out.Printf("unknown filter: %s\n", fields[1])
				continue
			}
			sess.SetFilter(fields[1], strings.Join(fields[2:], " "))
		case ":clear":
			if len(fields) != 2 {
				out.Printf("usage: :clear <filter>\n")
				continue
			}
			if _, ok := filters.LookupShort(fields[1]); !ok {
				out.Printf("unknown filter: %s\n", fields[1])
				continue
			}
			sess.ClearFilter(fields[1])
		case ":reset":
			sess.Reset()
		case ":more":
			if !sess.LoadMore() {
				out.Printf("no more results\n")
			}
		case ":filters":
			snap := sess.Coordinator().Snapshot()
			for _, f := range snap.Filters.Active() {
				v, _ := snap.Filters.Get(f)
				out.Printf("  %s = %s\n", f.Short(), v)
			}
			if snap.ActiveFilterCount == 0 {
				out.Printf("no active filters\n")
			}
		case ":help":
			out.Printf("%s\n", interactiveHelp)
		case ":quit", ":q":
			sess.Wait()
			return nil
		default:
			out.Printf("unknown command %s, try :help\n", fields[0])
		}
	}

	sess.Wait()
	return scanner.Err()
}
