package node

import (
	"encoding/json"
)

// FieldInfo is the host's [type, options] pair for one input field.
type FieldInfo struct {
	Type    string
	Options map[string]any
}

// MarshalJSON renders the pair as a two element array, or a single element
// array when there are no options.
func (f FieldInfo) MarshalJSON() ([]byte, error) {
	if len(f.Options) == 0 {
		return json.Marshal([]any{f.Type})
	}
	return json.Marshal([]any{f.Type, f.Options})
}

// Info is the descriptor the host reads for one node class.
type Info struct {
	Input       map[string]map[string]FieldInfo `json:"input"`
	InputOrder  map[string][]string             `json:"input_order"`
	Output      []string                        `json:"output"`
	OutputName  []string                        `json:"output_name"`
	Name        string                          `json:"name"`
	DisplayName string                          `json:"display_name"`
	Category    string                          `json:"category"`
	Function    string                          `json:"function"`
	OutputNode  bool                            `json:"output_node"`
}

// Describe converts a definition into the host descriptor.
func Describe(def Definition, displayName string) Info {
	if displayName == "" {
		displayName = def.DisplayName
	}
	info := Info{
		Input:       map[string]map[string]FieldInfo{},
		InputOrder:  map[string][]string{},
		Output:      append([]string(nil), def.ReturnTypes...),
		Name:        def.Name,
		DisplayName: displayName,
		Category:    def.Category,
		Function:    def.Function,
		OutputNode:  def.OutputNode,
	}
	if len(def.ReturnNames) > 0 {
		info.OutputName = append([]string(nil), def.ReturnNames...)
	} else {
		info.OutputName = append([]string(nil), def.ReturnTypes...)
	}
	groups := []struct {
		name   string
		fields []Field
	}{
		{"required", def.Input.Required},
		{"optional", def.Input.Optional},
		{"hidden", def.Input.Hidden},
	}
	for _, g := range groups {
		if len(g.fields) == 0 {
			continue
		}
		group := make(map[string]FieldInfo, len(g.fields))
		order := make([]string, 0, len(g.fields))
		for _, f := range g.fields {
			group[f.Name] = fieldInfo(f)
			order = append(order, f.Name)
		}
		info.Input[g.name] = group
		info.InputOrder[g.name] = order
	}
	return info
}

func fieldInfo(f Field) FieldInfo {
	fi := FieldInfo{Type: f.Type}
	if !isWidget(f.Type) {
		return fi
	}
	fi.Options = map[string]any{}
	if f.Type == TypeString {
		fi.Options["multiline"] = f.Multiline
	}
	if f.Default != nil {
		fi.Options["default"] = f.Default
	}
	return fi
}

// ObjectInfo describes every registered node, keyed by name.
func (r *Registry) ObjectInfo() map[string]Info {
	out := make(map[string]Info, len(r.classes))
	for name, n := range r.classes {
		out[name] = Describe(n.Definition(), r.displayNames[name])
	}
	return out
}
