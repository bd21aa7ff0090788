package model

// ParamLocation is where a tool parameter is bound in the internal HTTP
// request, per spec.md §3.
type ParamLocation string

const (
	LocationQuery ParamLocation = "Query"
	LocationPath  ParamLocation = "Path"
	LocationBody  ParamLocation = "Body"
)

// ParamType is the JSON-Schema-ish type of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// ParamSpec describes one parameter of a tool's request or response, per
// spec.md §3.
type ParamSpec struct {
	Name         string
	Type         ParamType
	Required     bool
	Default      any
	Location     ParamLocation
	ItemType     ParamType // element type when Type == array
	NestedSchema []ParamSpec
	Description  string
}

// ToolBinding points a tool at an internal HTTP endpoint of this same
// service (loopback), per spec.md §3/§4.6.
type ToolBinding struct {
	HTTPMethod     string
	URLTemplate    string
	HeaderTemplate map[string]string
}

// ToolDescriptor is the declarative, machine-readable shape of one entry
// in the Tool Registry (C6), per spec.md §3/§4.6.
type ToolDescriptor struct {
	Name        string
	Description string
	Params      []ParamSpec
	Response    []ParamSpec
	Binding     ToolBinding
}
