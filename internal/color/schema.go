package color

import "github.com/invopop/jsonschema"

// JSONSchema describes the text form used on the wire and in snapshots.
func (HSL) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Title:       "HSL color",
		Description: "hsl(H, S%, L%) with hue in degrees",
		Pattern:     hslPattern.String(),
	}
}
