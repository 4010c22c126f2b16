package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-dashboard-designer/components/dashboard"
)

// SelectWidgetInput opens the property editor on a widget.
type SelectWidgetInput struct {
	WidgetID string `json:"widget_id"`
}

type selectService interface {
	SelectWidget(ctx context.Context, id string) (dashboard.EditorState, error)
}

// SelectWidgetCommand selects a widget.
type SelectWidgetCommand struct {
	service selectService
}

// NewSelectWidgetCommand creates the command.
func NewSelectWidgetCommand(service selectService) *SelectWidgetCommand {
	return &SelectWidgetCommand{service: service}
}

var _ gocommand.Commander[SelectWidgetInput] = (*SelectWidgetCommand)(nil)

// Execute selects the widget.
func (c *SelectWidgetCommand) Execute(ctx context.Context, msg SelectWidgetInput) error {
	if c.service == nil {
		return missingService("select")
	}
	_, err := c.service.SelectWidget(ctx, msg.WidgetID)
	return err
}

// EditorInput is one interaction with the open property editor. Exactly one of
// Selection, Form, Commit or Close is expected.
type EditorInput struct {
	Selection *dashboard.EditorSelection `json:"selection,omitempty"`
	Form      *dashboard.WidgetForm      `json:"form,omitempty"`
	Commit    bool                       `json:"commit,omitempty"`
	Close     bool                       `json:"close,omitempty"`
}

type editorService interface {
	SelectEntity(ctx context.Context, sel dashboard.EditorSelection) (dashboard.EditorState, error)
	EditForm(form dashboard.WidgetForm) (dashboard.EditorState, error)
	CommitEditor(ctx context.Context) (dashboard.Widget, error)
	CloseEditor()
}

// EditorCommand drives the property editor.
type EditorCommand struct {
	service   editorService
	telemetry Telemetry
}

// NewEditorCommand creates the command.
func NewEditorCommand(service editorService, telemetry Telemetry) *EditorCommand {
	return &EditorCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[EditorInput] = (*EditorCommand)(nil)

// Execute applies the interaction.
func (c *EditorCommand) Execute(ctx context.Context, msg EditorInput) error {
	if c.service == nil {
		return missingService("editor")
	}
	if msg.Selection != nil {
		if _, err := c.service.SelectEntity(ctx, *msg.Selection); err != nil {
			return err
		}
	}
	if msg.Form != nil {
		if _, err := c.service.EditForm(*msg.Form); err != nil {
			return err
		}
	}
	switch {
	case msg.Commit:
		w, err := c.service.CommitEditor(ctx)
		if err != nil {
			return err
		}
		c.telemetry.Record(ctx, "designer.command.commit", map[string]any{"widget_id": w.ID})
	case msg.Close:
		c.service.CloseEditor()
	}
	return nil
}

// ClearSelectionInput deselects the current widget.
type ClearSelectionInput struct{}

// TogglePanelInput flips the palette visibility.
type TogglePanelInput struct{}

type selectionService interface {
	ClearSelection()
	ToggleWidgetPanel() bool
}

// ClearSelectionCommand deselects.
type ClearSelectionCommand struct {
	service selectionService
}

// NewClearSelectionCommand creates the command.
func NewClearSelectionCommand(service selectionService) *ClearSelectionCommand {
	return &ClearSelectionCommand{service: service}
}

var _ gocommand.Commander[ClearSelectionInput] = (*ClearSelectionCommand)(nil)

// Execute clears the selection.
func (c *ClearSelectionCommand) Execute(ctx context.Context, _ ClearSelectionInput) error {
	if c.service == nil {
		return missingService("clear selection")
	}
	c.service.ClearSelection()
	return nil
}

// TogglePanelCommand shows or hides the palette.
type TogglePanelCommand struct {
	service selectionService
}

// NewTogglePanelCommand creates the command.
func NewTogglePanelCommand(service selectionService) *TogglePanelCommand {
	return &TogglePanelCommand{service: service}
}

var _ gocommand.Commander[TogglePanelInput] = (*TogglePanelCommand)(nil)

// Execute toggles the palette.
func (c *TogglePanelCommand) Execute(ctx context.Context, _ TogglePanelInput) error {
	if c.service == nil {
		return missingService("toggle panel")
	}
	c.service.ToggleWidgetPanel()
	return nil
}
