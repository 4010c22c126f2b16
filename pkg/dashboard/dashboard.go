// Package dashboard is the public entry point of the designer for host
// applications.
package dashboard

import (
	core "github.com/goliatone/go-dashboard-designer/components/dashboard"
)

// Service exposes the underlying components/dashboard.Service type.
type Service = core.Service

// Options re-export for convenience.
type Options = core.Options

type (
	Dashboard   = core.Dashboard
	Widget      = core.Widget
	WidgetType  = core.WidgetType
	WidgetForm  = core.WidgetForm
	TimeContext = core.TimeContext
)

// NewService proxies to the internal constructor.
func NewService(opts Options) *Service {
	return core.NewService(opts)
}

// NewFileStore persists dashboards as one JSON document inside dir.
func NewFileStore(dir string) (core.DashboardStore, error) {
	blobs, err := core.NewFileBlobStore(dir)
	if err != nil {
		return nil, err
	}
	return core.NewCollectionStore(blobs), nil
}
