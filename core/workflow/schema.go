package workflow

import (
	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of the encoded Workflow. Actions are
// described as a oneOf over the action kinds, discriminated by "action".
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}

	schema := reflector.Reflect(&Workflow{})
	schema.Title = "Workflow"

	variants := []struct {
		kind   ActionKind
		action Action
	}{
		{KindAnswer, &Answer{}},
		{KindPlayPrompt, &PlayPrompt{}},
		{KindRecognize, &Recognize{}},
		{KindRecord, &Record{}},
		{KindHangup, &Hangup{}},
	}

	oneOf := make([]*jsonschema.Schema, 0, len(variants))
	for _, variant := range variants {
		actionSchema := reflector.Reflect(variant.action)
		actionSchema.Version = ""
		actionSchema.Title = string(variant.kind)
		if actionSchema.Properties != nil {
			actionSchema.Properties.Set("action", &jsonschema.Schema{Type: "string", Const: string(variant.kind)})
		}
		actionSchema.Required = append([]string{"action"}, actionSchema.Required...)
		oneOf = append(oneOf, actionSchema)
	}

	if schema.Properties != nil {
		schema.Properties.Set("actions", &jsonschema.Schema{
			Type:  "array",
			Items: &jsonschema.Schema{OneOf: oneOf},
		})
	}

	return schema
}
