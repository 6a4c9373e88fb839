package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	datum "github.com/pumped-fn/datum-go"
	"github.com/pumped-fn/datum-go/extensions"
	"github.com/pumped-fn/datum-go/hclexpr"
)

type evalOptions struct {
	datums  []string
	inputs  []string
	links   []string
	sets    []string
	unlinks []string
	trees   []string
	metrics bool
}

func newEvalCmd(log *logrus.Logger) *cobra.Command {
	opts := &evalOptions{}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Declare datums, link them, apply edits and print the result",
		Example: `  datumctl eval -d a.x=2 -d b.y= --input b.y --link a.x:b.y --set a.x=5
  datumctl eval -d a.x=1 -d a.y="x * 10" -d b.z="a.y + 1" --tree b.z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.OutOrStdout(), log, opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.datums, "datum", "d", nil, "declare a datum as node.name=expression")
	f.StringArrayVar(&opts.inputs, "input", nil, "let node.name accept a single input link")
	f.StringArrayVar(&opts.links, "link", nil, "link source:target after the first evaluation")
	f.StringArrayVar(&opts.sets, "set", nil, "edit node.name=expression after linking")
	f.StringArrayVar(&opts.unlinks, "unlink", nil, "remove the link source:target after edits")
	f.StringArrayVar(&opts.trees, "tree", nil, "draw the upstream tree of node.name")
	f.BoolVar(&opts.metrics, "metrics", false, "print propagation metrics")

	return cmd
}

func runEval(out io.Writer, log *logrus.Logger, opts *evalOptions) error {
	reg := prometheus.NewRegistry()
	metrics, err := extensions.NewMetricsExtension(reg)
	if err != nil {
		return err
	}

	graphOpts := append(hclexpr.GraphOptions(),
		datum.WithLogger(log),
		datum.WithExtension(extensions.NewLoggingExtension(log)),
		datum.WithExtension(extensions.NewGraphDebugExtension(log)),
		datum.WithExtension(metrics),
	)
	g := datum.NewGraph(graphOpts...)
	defer func() {
		if err := g.Dispose(); err != nil {
			log.WithError(err).Warn("disposing graph")
		}
	}()

	engine, err := hclexpr.NewEngine(g)
	if err != nil {
		return err
	}

	if err := declare(g, engine, opts); err != nil {
		return err
	}
	for _, d := range g.Datums() {
		d.Update()
	}

	for _, spec := range opts.links {
		src, dst, err := lookupPair(g, spec)
		if err != nil {
			return err
		}
		if _, err := g.Connect(src, dst); err != nil {
			fmt.Fprintf(out, "link %s rejected: %v\n", spec, errors.Unwrap(err))
		}
	}

	for _, spec := range opts.sets {
		name, expr, err := splitAssign(spec)
		if err != nil {
			return err
		}
		d, ok := g.Datum(name)
		if !ok {
			return fmt.Errorf("--set %s: unknown datum %q", spec, name)
		}
		if err := d.SetExpr(expr); err != nil {
			fmt.Fprintf(out, "set %s refused: %v\n", name, err)
		}
	}

	for _, spec := range opts.unlinks {
		src, dst, err := lookupPair(g, spec)
		if err != nil {
			return err
		}
		dst.DeleteLink(src)
	}

	printDatums(out, g)

	for _, name := range opts.trees {
		d, ok := g.Datum(name)
		if !ok {
			return fmt.Errorf("--tree: unknown datum %q", name)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, extensions.UpstreamTree(d))
	}

	if opts.metrics {
		return printMetrics(out, reg)
	}
	return nil
}

func declare(g *datum.Graph, engine *hclexpr.Engine, opts *evalOptions) error {
	inputs := make(map[string]bool, len(opts.inputs))
	for _, name := range opts.inputs {
		inputs[name] = true
	}

	for _, spec := range opts.datums {
		name, expr, err := splitAssign(spec)
		if err != nil {
			return err
		}
		nodeName, datumName, ok := strings.Cut(name, ".")
		if !ok {
			return fmt.Errorf("--datum %s: name must be node.datum", spec)
		}

		n, found := g.Node(nodeName)
		if !found {
			if n, err = g.NewNode(nodeName); err != nil {
				return err
			}
		}

		var dopts []datum.DatumOption
		if inputs[name] {
			dopts = append(dopts, datum.WithInput(datum.SingleInput()))
			delete(inputs, name)
		}
		if _, err := n.NewDatum(datumName, engine.Source(expr), dopts...); err != nil {
			return err
		}
	}

	for _, name := range opts.inputs {
		if inputs[name] {
			return fmt.Errorf("--input %s: no such datum declared", name)
		}
	}
	return nil
}

func lookupPair(g *datum.Graph, spec string) (*datum.Datum, *datum.Datum, error) {
	srcName, dstName, ok := strings.Cut(spec, ":")
	if !ok {
		return nil, nil, fmt.Errorf("link %q: want source:target", spec)
	}
	src, ok := g.Datum(srcName)
	if !ok {
		return nil, nil, fmt.Errorf("link %q: unknown datum %q", spec, srcName)
	}
	dst, ok := g.Datum(dstName)
	if !ok {
		return nil, nil, fmt.Errorf("link %q: unknown datum %q", spec, dstName)
	}
	return src, dst, nil
}

func splitAssign(spec string) (string, string, error) {
	name, expr, ok := strings.Cut(spec, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("%q: want node.name=expression", spec)
	}
	return strings.TrimSpace(name), expr, nil
}

func printDatums(out io.Writer, g *datum.Graph) {
	for _, d := range g.Datums() {
		value := "<invalid>"
		if d.Valid() {
			value = hclexpr.FormatValue(d.Value())
		}
		flags := []string{}
		if d.Editable() {
			flags = append(flags, "editable")
		}
		if d.HasInputValue() {
			flags = append(flags, "linked")
		}
		fmt.Fprintf(out, "%s = %s -> %s [%s]\n", d.QualifiedName(), d.String(), value, strings.Join(flags, ","))
	}
}

func printMetrics(out io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	fmt.Fprintln(out)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			value := m.GetCounter().GetValue()
			if m.GetGauge() != nil {
				value = m.GetGauge().GetValue()
			}
			fmt.Fprintf(out, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}
