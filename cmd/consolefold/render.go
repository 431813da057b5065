package main

import (
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/net/html/atom"

	"pkt.systems/consolefold/core"
	"pkt.systems/consolefold/httpapi"
	"pkt.systems/consolefold/internal/appconfig"
	"pkt.systems/consolefold/internal/console"
	"pkt.systems/consolefold/internal/dom"
	"pkt.systems/consolefold/internal/logsource"
	"pkt.systems/consolefold/schema"
	"pkt.systems/pslog"
)

const staticPage = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s - consolefold</title>
<style>
%s
</style>
</head>
<body>
<header class="cf-bar"><span>%s</span></header>
<main id="pane">%s</main>
<script>
document.getElementById("pane").addEventListener("click", function (ev) {
  var header = ev.target.closest(".log-fs-multiline > .log-fs-header");
  if (header) { header.parentElement.classList.toggle("log-fs-expanded"); }
});
</script>
</body>
</html>
`

func newRenderCmd() *cobra.Command {
	var (
		cfgPath string
		outPath string
		title   string
		batch   int
		noANSI  bool
	)
	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render a console log into a standalone HTML page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			svcCfg := cfg.ServiceConfig()
			if noANSI {
				svcCfg.DisableANSI = true
			}
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			if batch <= 0 {
				batch = cfg.Source.BatchLines
			}
			tailer, err := logsource.NewFileTailer(logsource.TailConfig{Path: path, BatchLines: batch})
			if err != nil {
				return err
			}
			page, err := newStaticRenderer(svcCfg)
			if err != nil {
				return err
			}
			if err := tailer.Run(cmd.Context(), page); err != nil {
				return fmt.Errorf("read %s: %w", tailer.Name(), err)
			}
			if title == "" {
				title = defaultTitle(path)
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if err := page.WriteHTML(out, title); err != nil {
				return err
			}
			pslog.Ctx(cmd.Context()).Debug("console rendered", "source", tailer.Name(), "sections", len(page.tr.Snapshot()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write HTML to this file instead of stdout")
	cmd.Flags().StringVar(&title, "title", "", "page title (defaults to the file name)")
	cmd.Flags().IntVar(&batch, "batch", 0, "lines per transform batch (defaults to source.batch_lines)")
	cmd.Flags().BoolVar(&noANSI, "no-ansi", false, "strip ANSI escapes instead of rendering colours")
	return cmd
}

// staticRenderer feeds a visible transformer synchronously. It satisfies
// logsource.Sink so the file tailer can drive it.
type staticRenderer struct {
	tr *console.Transformer
}

func newStaticRenderer(cfg schema.ServiceConfig) (*staticRenderer, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	r := core.NewRenderer(normalized)
	return &staticRenderer{
		tr: console.New(dom.Element(atom.Div), console.Options{
			Formatter: r.LineFormatter(),
			Commands:  r.CommandFormatter(),
		}),
	}, nil
}

func (s *staticRenderer) Transform(_ context.Context, lines []string) error {
	s.tr.Transform(lines)
	return nil
}

func (s *staticRenderer) Complete(context.Context) error {
	s.tr.Drain()
	s.tr.Complete()
	return nil
}

func (s *staticRenderer) WriteHTML(w io.Writer, title string) error {
	css, err := httpapi.Asset("console.css")
	if err != nil {
		return err
	}
	var body strings.Builder
	if err := s.tr.Render(&body); err != nil {
		return err
	}
	escaped := html.EscapeString(title)
	_, err = fmt.Fprintf(w, staticPage, escaped, css, escaped, body.String())
	return err
}

func defaultTitle(path string) string {
	if path == "-" {
		return "stdin"
	}
	return filepath.Base(path)
}
