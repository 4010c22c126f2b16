package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/ettle/strcase"
	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/goliatone/go-dashboard-designer/components/dashboard"
	"github.com/goliatone/go-dashboard-designer/components/dashboard/commands"
	"github.com/goliatone/go-dashboard-designer/components/dashboard/gorouter"
	"github.com/goliatone/go-dashboard-designer/components/dashboard/httpapi"
)

type globals struct {
	Config   string `short:"c" type:"path" help:"YAML configuration file."`
	Storage  string `help:"Override the storage driver (memory, file, postgres)."`
	DataDir  string `type:"path" help:"Override the file storage directory."`
	Manifest string `type:"path" help:"Palette manifest (YAML/JSON) applied on top of the built-in widgets."`
}

type cli struct {
	globals

	Serve   serveCmd   `cmd:"" help:"Run the designer HTTP server."`
	List    listCmd    `cmd:"" help:"List stored dashboards."`
	Show    showCmd    `cmd:"" help:"Print a stored dashboard as JSON."`
	Export  exportCmd  `cmd:"" help:"Export a dashboard as YAML."`
	Import  importCmd  `cmd:"" help:"Import a dashboard from YAML."`
	Delete  deleteCmd  `cmd:"" help:"Delete a stored dashboard."`
	Seed    seedCmd    `cmd:"" help:"Store the demo pump dashboard."`
	Palette paletteCmd `cmd:"" help:"List the widget palette."`
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("designerctl"),
		kong.Description("Dashboard designer server and storage utility."),
		kong.UsageOnError(),
		kong.Bind(&c.globals),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

func withApp(ctx context.Context, g *globals, fn func(*app) error) error {
	a, err := newApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

type serveCmd struct {
	Addr   string `help:"Listen address (overrides config)."`
	Load   string `help:"Dashboard id to open; empty opens the most recent one."`
	Stdlib bool   `help:"Serve with net/http (httprouter) instead of fiber."`
}

func (cmd *serveCmd) Run(ctx context.Context, g *globals) error {
	return withApp(ctx, g, func(a *app) error {
		hook := dashboard.NewBroadcastHook().WithAllowedOrigins(a.cfg.Server.Origins...)
		svc, err := a.service(dashboard.RefreshHooks{
			hook,
			dashboard.LogHook{Logger: a.logger.Named("events")},
		})
		if err != nil {
			return err
		}
		hook.WithResizeReporter(svc)
		if err := svc.Init(ctx); err != nil {
			return err
		}
		load := cmd.Load
		if load == "" {
			load = a.cfg.Designer.DashboardID
		}
		if _, err := svc.Load(ctx, load); err != nil && !errors.Is(err, dashboard.ErrDashboardNotFound) {
			return err
		}

		renderer, err := dashboard.NewTemplateRenderer()
		if err != nil {
			return err
		}
		base := a.cfg.Server.BasePath
		controller := dashboard.NewController(dashboard.ControllerOptions{
			Service:    svc,
			Renderer:   renderer,
			SocketPath: base + "/ws",
		})
		executor := httpapi.NewCommandExecutor(svc, dashboard.NewZapTelemetry(a.logger.Named("commands")))

		addr := cmd.Addr
		if addr == "" {
			addr = a.cfg.Server.Addr
		}
		a.logger.Info("designer ready",
			zap.String("addr", addr),
			zap.String("page", base),
			zap.String("storage", a.cfg.Storage.Driver),
			zap.String("telemetry", a.cfg.Telemetry.Mode),
			zap.Bool("stdlib", cmd.Stdlib),
		)

		if cmd.Stdlib {
			return serveRoutes(router.NewHTTPServer(), gorouter.Config[*httprouter.Router]{
				Controller: controller,
				API:        executor,
				Broadcast:  hook,
				BasePath:   base,
			}, addr)
		}
		return serveRoutes(router.NewFiberAdapter(), gorouter.Config[*fiber.App]{
			Controller: controller,
			API:        executor,
			Broadcast:  hook,
			BasePath:   base,
		}, addr)
	})
}

func serveRoutes[T any](server router.Server[T], cfg gorouter.Config[T], addr string) error {
	cfg.Router = server.Router()
	if err := gorouter.Register(cfg); err != nil {
		return fmt.Errorf("designerctl: register routes: %w", err)
	}
	return server.Serve(addr)
}

type listCmd struct{}

func (cmd *listCmd) Run(ctx context.Context, g *globals) error {
	return withApp(ctx, g, func(a *app) error {
		list, err := a.store.List(ctx)
		if err != nil {
			return err
		}
		return writeTable(os.Stdout, list)
	})
}

func writeTable(out io.Writer, list []dashboard.Dashboard) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tWIDGETS")
	for _, d := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", d.ID, d.Name, len(d.Widgets))
	}
	return tw.Flush()
}

type showCmd struct {
	ID string `arg:"" optional:"" help:"Dashboard id; empty shows the most recent one."`
}

func (cmd *showCmd) Run(ctx context.Context, g *globals) error {
	return withApp(ctx, g, func(a *app) error {
		d, err := a.store.Get(ctx, cmd.ID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	})
}

type exportCmd struct {
	ID  string `arg:"" help:"Dashboard id."`
	Out string `short:"o" type:"path" help:"Output file; stdout when empty."`
}

func (cmd *exportCmd) Run(ctx context.Context, g *globals) error {
	return withApp(ctx, g, func(a *app) error {
		d, err := a.store.Get(ctx, cmd.ID)
		if err != nil {
			return err
		}
		data, err := dashboard.ExportYAML(d)
		if err != nil {
			return err
		}
		if cmd.Out == "" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(cmd.Out, data, 0o644); err != nil {
			return fmt.Errorf("designerctl: write %s: %w", cmd.Out, err)
		}
		fmt.Fprintf(os.Stdout, "✓ Exported %s to %s\n", d.Name, cmd.Out)
		return nil
	})
}

type importCmd struct {
	File   string `arg:"" type:"existingfile" help:"YAML dashboard file."`
	KeepID bool   `name:"keep-id" help:"Keep the id from the file instead of assigning a new one."`
}

func (cmd *importCmd) Run(ctx context.Context, g *globals) error {
	return withApp(ctx, g, func(a *app) error {
		data, err := os.ReadFile(cmd.File)
		if err != nil {
			return fmt.Errorf("designerctl: read %s: %w", cmd.File, err)
		}
		d, err := dashboard.ImportYAML(data)
		if err != nil {
			return err
		}
		if !cmd.KeepID {
			d.ID = ""
		}
		if err := a.store.Save(ctx, &d); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "✓ Imported %s as %s\n", d.Name, d.ID)
		return nil
	})
}

type deleteCmd struct {
	ID string `arg:"" help:"Dashboard id."`
}

func (cmd *deleteCmd) Run(ctx context.Context, g *globals) error {
	return withApp(ctx, g, func(a *app) error {
		if err := a.store.Delete(ctx, cmd.ID); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "✓ Deleted %s\n", cmd.ID)
		return nil
	})
}

type seedCmd struct {
	Name string `default:"Pump Overview" help:"Name of the demo dashboard."`
}

func (cmd *seedCmd) Run(ctx context.Context, g *globals) error {
	return withApp(ctx, g, func(a *app) error {
		seed := commands.NewSeedDashboardCommand(a.store, nil, dashboard.NewZapTelemetry(a.logger))
		if err := seed.Execute(ctx, commands.SeedDashboardInput{Name: cmd.Name}); err != nil {
			return err
		}
		list, err := a.store.List(ctx)
		if err != nil {
			return err
		}
		return writeTable(os.Stdout, list)
	})
}

type paletteCmd struct {
	JSON bool `help:"Print the palette as JSON."`
}

func (cmd *paletteCmd) Run(ctx context.Context, g *globals) error {
	return withApp(ctx, g, func(a *app) error {
		palette := a.registry.Palette()
		if cmd.JSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(palette)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tTYPE\tNAME\tICON")
		for _, cat := range palette {
			for _, def := range cat.Widgets {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cat.Name, strcase.ToKebab(string(def.Type)), def.Name, def.Icon)
			}
		}
		return tw.Flush()
	})
}
