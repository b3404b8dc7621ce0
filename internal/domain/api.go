package domain

import "strings"

// Placement says where an ApiInput's resolved value lands in the request.
type Placement string

const (
	PlaceURL    Placement = "URL"
	PlaceBody   Placement = "BODY"
	PlaceHeader Placement = "HEADER"
	PlaceFile   Placement = "FILE"
	PlaceBinary Placement = "BINARY"
)

// ValueSource says how an ApiInput's raw value is resolved.
type ValueSource string

const (
	SourceStatic      ValueSource = "static"
	SourceDynamic     ValueSource = "dynamic"
	SourceEnvironment ValueSource = "environment"
)

// Content types understood by the invoker's body builder.
const (
	ContentJSON      = "application/json"
	ContentForm      = "application/x-www-form-urlencoded"
	ContentMultipart = "multipart/form-data"
	ContentWav       = "audio/wav"
	ContentRaw       = "raw"
)

// APITypeSimple selects the flat {name: value} JSON body shape; any other
// value (including empty) selects the {"values":[{name,value}]} shape.
const APITypeSimple = "simple"

// ApiSpec is one named, parameterized HTTP call from the catalog.
type ApiSpec struct {
	APIID       int         `json:"APIId"`
	Name        string      `json:"Name,omitempty"`
	Method      string      `json:"Method"`
	URL         string      `json:"URL"`
	ContentType string      `json:"ContentType"`
	APIType     string      `json:"APIType,omitempty"`
	Inputs      []ApiInput  `json:"Inputs"`
	Outputs     []ApiOutput `json:"Outputs"`
}

// IsSimpleJSON reports whether the flat JSON body shape applies.
func (a *ApiSpec) IsSimpleJSON() bool {
	return strings.EqualFold(a.APIType, APITypeSimple)
}

// ApiInput is one templated request parameter.
type ApiInput struct {
	Name         string      `json:"Name"`
	RawValue     string      `json:"Value"`
	Placement    Placement   `json:"Placement"`
	ValueSource  ValueSource `json:"ValueSource"`
	DefaultValue string      `json:"DefaultValue,omitempty"`
}

// ApiOutput maps one response field into the variable store.
type ApiOutput struct {
	TagName            string `json:"TagName"`
	JSONField          string `json:"JSONField"`
	ParentField        string `json:"ParentField,omitempty"`
	IsList             bool   `json:"IsList,omitempty"`
	ListIndex          int    `json:"ListIndex,omitempty"`
	IsSuccessValidator bool   `json:"IsSuccessValidator,omitempty"`
	SuccessValue       string `json:"SuccessValue,omitempty"`
	DefaultValue       string `json:"DefaultValue,omitempty"`
}

// NormalizePlacement maps the wire spellings of a placement onto the
// canonical constants. Unrecognized values default to BODY.
func NormalizePlacement(p string) Placement {
	switch strings.ToUpper(strings.TrimSpace(p)) {
	case "URL", "PATH":
		return PlaceURL
	case "HEADER":
		return PlaceHeader
	case "FILE":
		return PlaceFile
	case "BINARY":
		return PlaceBinary
	default:
		return PlaceBody
	}
}

// NormalizeValueSource maps the wire spellings of a value source onto the
// canonical constants. "dynamic-from-tag" and "environment" both resolve
// through the store; unrecognized values default to static.
func NormalizeValueSource(s string) ValueSource {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dynamic", "dynamic-from-tag", "tag":
		return SourceDynamic
	case "environment", "env":
		return SourceEnvironment
	default:
		return SourceStatic
	}
}
