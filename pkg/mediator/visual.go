package mediator

import (
	"context"
	"strings"

	"github.com/buildscope/bimgraph/pkg/ai"
	"github.com/buildscope/bimgraph/pkg/logger"
)

const visualParseFailedMessage = "コマンドの解析に失敗しました"

// VisualTarget selects which elements a viewer command applies to. Empty
// fields mean "any".
type VisualTarget struct {
	ElementType string `json:"elementType,omitempty" jsonschema_description:"IFC element type the command targets, e.g. IfcWall"`
	ElementName string `json:"elementName,omitempty" jsonschema_description:"Specific element name"`
	Material    string `json:"material,omitempty" jsonschema_description:"Material name filter"`
	Floor       string `json:"floor,omitempty" jsonschema_description:"Storey name or number"`
}

// VisualCommand is one structured viewer instruction.
type VisualCommand struct {
	Type    string       `json:"type" jsonschema:"enum=color,enum=visibility,enum=highlight,enum=isolate,enum=reset,enum=camera,enum=transparency"`
	Target  VisualTarget `json:"target"`
	Color   string       `json:"color,omitempty" jsonschema_description:"Hex color like #ff0000, present for color commands"`
	Action  string       `json:"action,omitempty" jsonschema_description:"show or hide for visibility commands"`
	Opacity float64      `json:"opacity,omitempty" jsonschema_description:"0.0 to 1.0 for transparency commands"`
	Aspect  string       `json:"aspect,omitempty" jsonschema_description:"Camera aspect like top, front, side"`
}

// VisualResult is the parse outcome. HasCommand false means the input was
// conversational rather than a viewer instruction.
type VisualResult struct {
	HasCommand bool          `json:"has_command"`
	Command    VisualCommand `json:"command"`
	Message    string        `json:"message" jsonschema_description:"Friendly confirmation in the user's language"`
}

// ParseVisualCommand classifies the input as a 3D viewer instruction and
// extracts it into a structured command. Parse failures degrade to a
// no-command result with an error message, never an error.
func (m *Mediator) ParseVisualCommand(ctx context.Context, input string) *VisualResult {
	var result VisualResult
	err := m.client.GenerateCompletionWithFormat(
		ctx,
		"visual_command",
		"A structured 3D viewer command parsed from a natural language request",
		input,
		&result,
		ai.WithSystemPrompts(visualSystemPrompt),
	)
	if err != nil {
		logger.Warn("visual command parsing failed", "error", err)
		return &VisualResult{HasCommand: false, Message: visualParseFailedMessage}
	}

	if result.HasCommand {
		result.Command.Color = NormalizeColor(result.Command.Color)
	}

	return &result
}

var colorNames = map[string]string{
	"赤":      "#ff0000",
	"red":    "#ff0000",
	"緑":      "#00ff00",
	"green":  "#00ff00",
	"青":      "#0000ff",
	"blue":   "#0000ff",
	"黄":      "#ffff00",
	"yellow": "#ffff00",
	"白":      "#ffffff",
	"white":  "#ffffff",
	"黒":      "#000000",
	"black":  "#000000",
	"灰":      "#808080",
	"gray":   "#808080",
	"grey":   "#808080",
	"茶":      "#8b4513",
	"brown":  "#8b4513",
	"ピンク":    "#ffc0cb",
	"pink":   "#ffc0cb",
	"オレンジ":   "#ffa500",
	"orange": "#ffa500",
	"紫":      "#800080",
	"purple": "#800080",
}

// NormalizeColor maps Japanese and English color names to hex. Hex values
// pass through; unknown names are returned unchanged.
func NormalizeColor(color string) string {
	if color == "" || strings.HasPrefix(color, "#") {
		return color
	}

	if hex, ok := colorNames[strings.ToLower(color)]; ok {
		return hex
	}

	return color
}
