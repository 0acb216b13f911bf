package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/waypoint/core/kernel"
	"github.com/dmitrymomot/waypoint/core/route"
)

type routeInfo struct {
	Methods    []string `json:"methods"`
	URI        string   `json:"uri"`
	Name       string   `json:"name,omitempty"`
	Action     string   `json:"action"`
	Middleware []string `json:"middleware"`
}

func routesCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List registered routes and their resolved middleware",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := newKernel(flags, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			if err := k.Bootstrap(); err != nil {
				return err
			}

			infos, err := collectRoutes(k)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			return printRoutes(cmd.OutOrStdout(), infos)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print routes as JSON")

	return cmd
}

// collectRoutes lists each route with the middleware a request to it passes
// through: the global stack followed by the route's own resolved stack.
func collectRoutes(k *kernel.Kernel) ([]routeInfo, error) {
	r := k.Router()

	var global []string
	if !k.Application().ShouldSkipMiddleware() {
		global = k.ResolvedGlobalMiddleware()
	}

	routes := r.Routes()
	infos := make([]routeInfo, 0, len(routes))
	for _, rt := range routes {
		ids, err := r.GatherRouteMiddleware(rt)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", rt.URI(), err)
		}
		infos = append(infos, routeInfo{
			Methods:    rt.Methods(),
			URI:        rt.URI(),
			Name:       rt.Name(),
			Action:     actionName(rt.Action()),
			Middleware: append(append([]string{}, global...), ids...),
		})
	}
	return infos, nil
}

func actionName(a route.Action) string {
	if a == nil {
		return "-"
	}
	return a.String()
}

func printRoutes(w io.Writer, infos []routeInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tURI\tNAME\tACTION\tMIDDLEWARE")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			strings.Join(info.Methods, "|"),
			info.URI,
			info.Name,
			info.Action,
			strings.Join(info.Middleware, ", "),
		)
	}
	return tw.Flush()
}
