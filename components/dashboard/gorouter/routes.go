// Package gorouter mounts the designer page, JSON API and widget event streams
// on a go-router router. It serves Fiber and net/http (httprouter) hosts alike.
package gorouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/goliatone/go-router/eventstream"
	"github.com/goliatone/go-router/ssefiber"

	"github.com/goliatone/go-dashboard-designer/components/dashboard"
	"github.com/goliatone/go-dashboard-designer/components/dashboard/commands"
	"github.com/goliatone/go-dashboard-designer/components/dashboard/httpapi"
	"github.com/goliatone/go-dashboard-designer/components/dashboard/queries"
)

// Config wires go-router with the designer controller, API and broadcast hook.
type Config[T any] struct {
	Router     router.Router[T]
	Controller *dashboard.Controller
	API        httpapi.Executor
	Broadcast  *dashboard.BroadcastHook
	BasePath   string
	Routes     RouteConfig
}

// RouteConfig customizes the relative paths of the designer endpoints.
type RouteConfig struct {
	HTML         string
	State        string
	Dashboards   string
	Load         string
	Save         string
	DashboardID  string
	Time         string
	Widgets      string
	WidgetID     string
	Select       string
	Retry        string
	Resize       string
	Refresh      string
	Layout       string
	Palette      string
	PaletteShow  string
	Editor       string
	ClearSelect  string
	CatalogLevel string
	WebSocket    string
	Events       string
}

// DefaultBasePath is where the designer mounts when Config.BasePath is empty.
const DefaultBasePath = "/designer"

// Register mounts the designer routes (HTML, JSON, WebSocket, SSE) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = DefaultBasePath
	}

	group := cfg.Router.Group(base)

	group.Get(routes.HTML, router.WrapHandler(func(ctx router.Context) error {
		var buf bytes.Buffer
		if err := cfg.Controller.RenderTemplate(ctx.Context(), &buf); err != nil {
			return respondError(ctx, err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send(buf.Bytes())
	}))

	if cfg.API != nil {
		registerAPI(group, cfg.API, routes)
	}

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
		registerEvents(group, cfg.Broadcast, routes.Events)
	}

	return nil
}

func registerAPI[T any](r router.Router[T], api httpapi.Executor, routes RouteConfig) {
	withState := func(ctx router.Context, status int) error {
		state, err := api.State(ctx.Context())
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(status, state)
	}

	r.Get(routes.State, router.WrapHandler(func(ctx router.Context) error {
		return withState(ctx, http.StatusOK)
	}))

	r.Get(routes.Dashboards, router.WrapHandler(func(ctx router.Context) error {
		list, err := api.Dashboards(ctx.Context())
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, list)
	}))

	r.Post(routes.Load, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.LoadDashboardInput
		if err := decodeOptional(ctx, &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		if err := api.Load(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return withState(ctx, http.StatusOK)
	}))

	r.Post(routes.Save, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.SaveDashboardInput
		if err := decodeOptional(ctx, &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		if err := api.Save(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return withState(ctx, http.StatusOK)
	}))

	r.Delete(routes.DashboardID, router.WrapHandler(func(ctx router.Context) error {
		id := ctx.Param("id")
		if id == "" {
			return respondStatus(ctx, http.StatusBadRequest, errors.New("dashboard id is required"))
		}
		if err := api.Delete(ctx.Context(), commands.DeleteDashboardInput{ID: id}); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "deleted"})
	}))

	r.Post(routes.Time, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.SetTimeContextInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		if err := api.SetTime(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return withState(ctx, http.StatusOK)
	}))

	r.Post(routes.Widgets, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.AddWidgetInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		if err := api.Add(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return withState(ctx, http.StatusCreated)
	}))

	r.Post(routes.Refresh, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.RefreshWidgetInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		if err := api.Refresh(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
	}))

	r.Delete(routes.WidgetID, router.WrapHandler(func(ctx router.Context) error {
		id := ctx.Param("id")
		if id == "" {
			return respondStatus(ctx, http.StatusBadRequest, errors.New("widget id is required"))
		}
		if err := api.Remove(ctx.Context(), commands.RemoveWidgetInput{WidgetID: id}); err != nil {
			return respondError(ctx, err)
		}
		return withState(ctx, http.StatusOK)
	}))

	r.Put(routes.WidgetID, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.UpdateWidgetInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		payload.WidgetID = ctx.Param("id")
		if err := api.Update(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return withState(ctx, http.StatusOK)
	}))

	r.Post(routes.Select, router.WrapHandler(func(ctx router.Context) error {
		if err := api.Select(ctx.Context(), commands.SelectWidgetInput{WidgetID: ctx.Param("id")}); err != nil {
			return respondError(ctx, err)
		}
		return withState(ctx, http.StatusOK)
	}))

	r.Post(routes.Retry, router.WrapHandler(func(ctx router.Context) error {
		if err := api.Retry(ctx.Context(), commands.RetryWidgetInput{WidgetID: ctx.Param("id")}); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusAccepted, map[string]string{"status": "retrying"})
	}))

	r.Post(routes.Resize, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.ResizeWidgetInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		payload.WidgetID = ctx.Param("id")
		if err := api.Resize(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusAccepted, map[string]string{"status": "resized"})
	}))

	r.Post(routes.Layout, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.ApplyLayoutInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		if err := api.Layout(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return withState(ctx, http.StatusOK)
	}))

	r.Get(routes.Palette, router.WrapHandler(func(ctx router.Context) error {
		palette, err := api.Palette(ctx.Context())
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, palette)
	}))

	r.Post(routes.PaletteShow, router.WrapHandler(func(ctx router.Context) error {
		if err := api.TogglePanel(ctx.Context()); err != nil {
			return respondError(ctx, err)
		}
		return withState(ctx, http.StatusOK)
	}))

	r.Post(routes.Editor, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.EditorInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		if err := api.Editor(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return withState(ctx, http.StatusOK)
	}))

	r.Post(routes.ClearSelect, router.WrapHandler(func(ctx router.Context) error {
		if err := api.ClearSelection(ctx.Context()); err != nil {
			return respondError(ctx, err)
		}
		return withState(ctx, http.StatusOK)
	}))

	r.Get(routes.CatalogLevel, router.WrapHandler(func(ctx router.Context) error {
		result, err := api.Catalog(ctx.Context(), queries.CatalogInput{
			Level:    ctx.Param("level"),
			ParentID: strings.TrimSpace(ctx.Query("parent")),
		})
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, result)
	}))
}

func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	cfg.Origins = hook.AllowedOrigins()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

// registerEvents mounts the SSE stream. Fiber cannot flush a net/http writer,
// so it streams through ssefiber backed by the hook's event stream.
func registerEvents[T any](r router.Router[T], hook *dashboard.BroadcastHook, path string) {
	if _, ok := any(r).(router.Router[*fiber.App]); ok {
		r.Get(path, ssefiber.Handler(
			ssefiber.WithStream(hook.EventStream()),
			ssefiber.WithScopeResolver(func(ctx router.Context) (eventstream.Scope, error) {
				return dashboard.WidgetScope(dashboard.ParseWidgetIDs(ctx.Query("widgets"))...), nil
			}),
		))
		return
	}
	r.Get(path, router.HandlerFromHTTP(http.HandlerFunc(hook.ServeSSE)))
}

func decodeOptional(ctx router.Context, dst any) error {
	body := ctx.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, dst)
}

func respondError(ctx router.Context, err error) error {
	return ctx.JSON(httpapi.StatusFor(err), httpapi.ErrorResponse(err))
}

func respondStatus(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	defaults := RouteConfig{
		HTML:         "/",
		State:        "/state",
		Dashboards:   "/dashboards",
		Load:         "/dashboards/load",
		Save:         "/save",
		DashboardID:  "/dashboards/:id",
		Time:         "/time",
		Widgets:      "/widgets",
		WidgetID:     "/widgets/:id",
		Select:       "/widgets/:id/select",
		Retry:        "/widgets/:id/retry",
		Resize:       "/widgets/:id/resize",
		Refresh:      "/refresh",
		Layout:       "/layout",
		Palette:      "/palette",
		PaletteShow:  "/palette/toggle",
		Editor:       "/editor",
		ClearSelect:  "/selection/clear",
		CatalogLevel: "/catalog/:level",
		WebSocket:    "/ws",
		Events:       "/events",
	}
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&routes.HTML, defaults.HTML)
	fill(&routes.State, defaults.State)
	fill(&routes.Dashboards, defaults.Dashboards)
	fill(&routes.Load, defaults.Load)
	fill(&routes.Save, defaults.Save)
	fill(&routes.DashboardID, defaults.DashboardID)
	fill(&routes.Time, defaults.Time)
	fill(&routes.Widgets, defaults.Widgets)
	fill(&routes.WidgetID, defaults.WidgetID)
	fill(&routes.Select, defaults.Select)
	fill(&routes.Retry, defaults.Retry)
	fill(&routes.Resize, defaults.Resize)
	fill(&routes.Refresh, defaults.Refresh)
	fill(&routes.Layout, defaults.Layout)
	fill(&routes.Palette, defaults.Palette)
	fill(&routes.PaletteShow, defaults.PaletteShow)
	fill(&routes.Editor, defaults.Editor)
	fill(&routes.ClearSelect, defaults.ClearSelect)
	fill(&routes.CatalogLevel, defaults.CatalogLevel)
	fill(&routes.WebSocket, defaults.WebSocket)
	fill(&routes.Events, defaults.Events)
	return routes
}
